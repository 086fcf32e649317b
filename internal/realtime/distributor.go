package realtime

import (
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lumenworks/signboard/internal/model"
)

// PlanFinder is the slice of the persistence layer the distributor queries
// when deciding what a player should currently show. db.Store satisfies it.
type PlanFinder interface {
	ListActivePlans(now time.Time) ([]model.Plan, error)
}

// Publisher mirrors every push onto a side channel (MQTT) for players that
// subscribe to the broker instead of holding a socket. May be absent.
type Publisher interface {
	PublishToDevice(deviceID string, payload []byte) error
	PublishToAll(payload []byte) error
}

// Distributor decides what a player should currently be shown and pushes
// it. It is invoked by the scheduler on activation/expiry and by the hub
// path on fresh player registration (catch-up sync). Consumers treat every
// push as an idempotent "this is the current state" snapshot, never a delta.
type Distributor struct {
	hub    *Hub
	plans  PlanFinder
	mirror Publisher
	now    func() time.Time
}

// NewDistributor wires the fan-out layer. mirror may be nil when no MQTT
// broker is configured.
func NewDistributor(hub *Hub, plans PlanFinder, mirror Publisher) *Distributor {
	return &Distributor{
		hub:    hub,
		plans:  plans,
		mirror: mirror,
		now:    time.Now,
	}
}

// PushToDevice sends a campaign list to one device. A device with no live
// connection is not an error: the push is dropped and the player receives a
// catch-up push on its next registration.
func (d *Distributor) PushToDevice(deviceID string, campaigns model.CampaignList) {
	if campaigns == nil {
		campaigns = model.CampaignList{}
	}
	env, err := model.NewEnvelope(model.EventContentUpdate, campaigns)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode content update")
		return
	}
	if !d.hub.SendToDevice(deviceID, env) {
		log.Debug().Str("device_id", deviceID).Msg("device not connected, push dropped")
	}
	d.mirrorToDevice(deviceID, env)
}

// PushToAll broadcasts a campaign list to every connected session.
func (d *Distributor) PushToAll(campaigns model.CampaignList) {
	if campaigns == nil {
		campaigns = model.CampaignList{}
	}
	env, err := model.NewEnvelope(model.EventContentUpdate, campaigns)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode content update")
		return
	}
	d.hub.Broadcast(env)
	d.mirrorToAll(env)
}

// CatchUp pushes the currently-winning active plan's campaigns to a freshly
// registered device, or an explicit empty list when nothing is active, so
// the player never keeps showing stale content from a previous session.
func (d *Distributor) CatchUp(deviceID string) {
	plans, err := d.plans.ListActivePlans(d.now())
	if err != nil {
		log.Error().Err(err).Str("device_id", deviceID).Msg("failed to load active plans for catch-up")
		return
	}

	winner := pickCurrent(plans)
	if winner == nil {
		log.Debug().Str("device_id", deviceID).Msg("no active plan, clearing display")
		d.PushToDevice(deviceID, model.CampaignList{})
		return
	}
	log.Info().
		Str("device_id", deviceID).
		Str("plan_id", winner.ID).
		Msg("catch-up push")
	d.PushToDevice(deviceID, winner.Campaigns)
}

// PlanStarted broadcasts a plan activation to every connected session.
func (d *Distributor) PlanStarted(plan *model.Plan) {
	env, err := model.NewEnvelope(model.EventPlanStarted, model.PlanStartedPayload{
		PlanID:          plan.ID,
		Campaigns:       plan.Campaigns,
		MaxPlaysPerHour: plan.MaxPlaysPerHour,
		LocationAware:   plan.LocationAware,
		Priority:        plan.Priority,
	})
	if err != nil {
		log.Error().Err(err).Str("plan_id", plan.ID).Msg("failed to encode plan-started")
		return
	}
	d.hub.Broadcast(env)
	d.mirrorToAll(env)
}

// PlanEnded broadcasts the ended notice, then re-evaluates every connected
// device: whichever plan now wins is pushed, or an empty list clears the
// display.
func (d *Distributor) PlanEnded(planID string) {
	env, err := model.NewEnvelope(model.EventPlanEnded, model.PlanEndedPayload{PlanID: planID})
	if err != nil {
		log.Error().Err(err).Str("plan_id", planID).Msg("failed to encode plan-ended")
		return
	}
	d.hub.Broadcast(env)
	d.mirrorToAll(env)

	for _, deviceID := range d.hub.ConnectedDevices() {
		d.CatchUp(deviceID)
	}
}

// pickCurrent selects the single plan a player should show: highest
// priority first, earliest start breaking ties.
func pickCurrent(plans []model.Plan) *model.Plan {
	if len(plans) == 0 {
		return nil
	}
	sorted := make([]model.Plan, len(plans))
	copy(sorted, plans)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority > sorted[j].Priority
		}
		si, sj := sorted[i].Start, sorted[j].Start
		if si == nil || sj == nil {
			return sj == nil && si != nil
		}
		return si.Before(*sj)
	})
	return &sorted[0]
}

func (d *Distributor) mirrorToDevice(deviceID string, env model.Envelope) {
	if d.mirror == nil {
		return
	}
	payload, err := encodeEnvelope(env)
	if err != nil {
		return
	}
	if err := d.mirror.PublishToDevice(deviceID, payload); err != nil {
		log.Error().Err(err).Str("device_id", deviceID).Msg("mqtt mirror publish failed")
	}
}

func (d *Distributor) mirrorToAll(env model.Envelope) {
	if d.mirror == nil {
		return
	}
	payload, err := encodeEnvelope(env)
	if err != nil {
		return
	}
	if err := d.mirror.PublishToAll(payload); err != nil {
		log.Error().Err(err).Msg("mqtt mirror broadcast failed")
	}
}
