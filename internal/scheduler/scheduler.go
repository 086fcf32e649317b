package scheduler

import (
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lumenworks/signboard/internal/model"
)

// PlanStore is the slice of the persistence layer the scheduler reads and
// writes. db.Store satisfies it.
type PlanStore interface {
	GetPlanByID(id string) (*model.Plan, error)
	ListSchedulablePlans() ([]model.Plan, error)
	UpdatePlanStatus(id, status string) error
	ReschedulePlan(id string, start, end time.Time, status string) error
}

// Distributor receives plan transitions and fans them out to connected
// players. realtime.Distributor satisfies it.
type Distributor interface {
	PlanStarted(plan *model.Plan)
	PlanEnded(planID string)
}

// repeatInterval is the nominal shift between cycles of a repeating plan:
// exactly 24 hours, duration-preserving, never a wall-clock snap.
const repeatInterval = 24 * time.Hour

// Scheduler advances plans through pending -> active -> completed on timer
// fires, re-seeds repeating plans, and notifies the distributor. All timer
// mutations for one plan go through Initialize or its callbacks, never
// concurrently for the same id, because arming always disarms first.
type Scheduler struct {
	store  PlanStore
	timers *TimerRegistry
	dist   Distributor
	now    func() time.Time
}

func New(store PlanStore, dist Distributor) *Scheduler {
	return &Scheduler{
		store:  store,
		timers: NewTimerRegistry(),
		dist:   dist,
		now:    time.Now,
	}
}

// Timers exposes the registry for diagnostics endpoints and tests.
func (s *Scheduler) Timers() *TimerRegistry {
	return s.timers
}

// Initialize is the single entry point for arming a plan's schedule, used
// both when a plan is created/updated and during startup recovery. It is
// idempotent: it unconditionally disarms before evaluating, so calling it
// twice equals calling it once.
func (s *Scheduler) Initialize(planID string) error {
	plan, err := s.store.GetPlanByID(planID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn().Str("plan_id", planID).Msg("plan not found, skipping schedule")
			s.timers.Disarm(planID)
			return nil
		}
		log.Error().Err(err).Str("plan_id", planID).Msg("failed to load plan for scheduling")
		return err
	}

	s.timers.Disarm(planID)

	if plan.Status == model.PlanStatusCancelled || plan.Status == model.PlanStatusCompleted {
		return nil
	}
	if !plan.HasWindow() {
		log.Info().Str("plan_id", planID).Msg("plan has no start/end, nothing to schedule")
		return nil
	}

	now := s.now()
	if !now.Before(*plan.End) {
		// the window elapsed, possibly while the process was down
		return s.complete(planID)
	}
	if !now.Before(*plan.Start) {
		// already inside the window
		return s.activate(planID)
	}

	err = s.timers.Arm(planID, *plan.Start, TimerStart, func() {
		if err := s.activate(planID); err != nil {
			log.Error().Err(err).Str("plan_id", planID).Msg("start transition failed")
		}
	})
	if errors.Is(err, ErrPastDue) {
		return s.activate(planID)
	}
	if err != nil {
		return err
	}

	log.Info().
		Str("plan_id", planID).
		Time("start", *plan.Start).
		Time("end", *plan.End).
		Msg("plan scheduled to start")
	return nil
}

// RecoverAll re-arms every pending or active plan after a process start.
// A plan failing to initialize is logged and skipped; it must never take
// down scheduling for the others.
func (s *Scheduler) RecoverAll() error {
	plans, err := s.store.ListSchedulablePlans()
	if err != nil {
		log.Error().Err(err).Msg("failed to list plans for recovery")
		return err
	}

	for _, plan := range plans {
		if err := s.Initialize(plan.ID); err != nil {
			log.Error().Err(err).Str("plan_id", plan.ID).Msg("failed to recover plan schedule")
		}
	}
	log.Info().Int("count", len(plans)).Msg("recovered plan schedules")
	return nil
}

// Cancel disarms a plan and marks it cancelled.
func (s *Scheduler) Cancel(planID string) error {
	s.timers.Disarm(planID)
	return s.store.UpdatePlanStatus(planID, model.PlanStatusCancelled)
}

// Remove disarms a plan ahead of its deletion.
func (s *Scheduler) Remove(planID string) {
	s.timers.Disarm(planID)
}

// activate runs the pending -> active transition. Timer callbacks are
// potentially stale (disarm is advisory), so the plan is re-read and the
// transition re-validated before anything is persisted.
func (s *Scheduler) activate(planID string) error {
	plan, err := s.store.GetPlanByID(planID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn().Str("plan_id", planID).Msg("plan vanished before activation")
			s.timers.Disarm(planID)
			return nil
		}
		log.Error().Err(err).Str("plan_id", planID).Msg("failed to load plan for activation")
		return err
	}

	// stale-callback guard: status and window are both re-validated, since
	// the plan may have been cancelled or its window moved after this
	// callback was armed
	if plan.Status == model.PlanStatusCancelled || plan.Status == model.PlanStatusCompleted {
		log.Warn().Str("plan_id", planID).Str("status", plan.Status).Msg("skipping stale activation")
		return nil
	}
	if !plan.HasWindow() {
		return nil
	}
	now := s.now()
	if !now.Before(*plan.End) {
		return s.complete(planID)
	}
	if now.Before(*plan.Start) {
		log.Warn().
			Str("plan_id", planID).
			Time("start", *plan.Start).
			Msg("skipping stale activation, window not open yet")
		return nil
	}

	if err := s.store.UpdatePlanStatus(planID, model.PlanStatusActive); err != nil {
		// leave the plan in its prior persisted state; the next
		// re-initialization or restart sweep picks it up
		log.Error().Err(err).Str("plan_id", planID).Msg("failed to persist active status")
		return err
	}
	plan.Status = model.PlanStatusActive

	// arming the end timer is a sequential continuation of the start
	// transition, so the end can never be processed before the start
	err = s.timers.Arm(planID, *plan.End, TimerEnd, func() {
		if err := s.complete(planID); err != nil {
			log.Error().Err(err).Str("plan_id", planID).Msg("end transition failed")
		}
	})
	if errors.Is(err, ErrPastDue) {
		return s.complete(planID)
	}
	if err != nil {
		return err
	}

	s.dist.PlanStarted(plan)
	log.Info().
		Str("plan_id", planID).
		Int("campaigns", len(plan.Campaigns)).
		Time("end", *plan.End).
		Msg("plan started")
	return nil
}

// complete runs the active -> completed transition and re-seeds repeating
// plans with the next window.
func (s *Scheduler) complete(planID string) error {
	plan, err := s.store.GetPlanByID(planID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn().Str("plan_id", planID).Msg("plan vanished before completion")
			s.timers.Disarm(planID)
			return nil
		}
		log.Error().Err(err).Str("plan_id", planID).Msg("failed to load plan for completion")
		return err
	}

	// stale-callback guard: only a pending or active plan whose end has
	// actually elapsed may be completed. A duplicate callback on an already
	// completed plan, or one racing a window extension, declines here.
	if plan.Status != model.PlanStatusPending && plan.Status != model.PlanStatusActive {
		s.timers.Disarm(planID)
		return nil
	}
	if plan.HasWindow() && s.now().Before(*plan.End) {
		log.Warn().
			Str("plan_id", planID).
			Time("end", *plan.End).
			Msg("skipping stale completion, window still open")
		return nil
	}

	if err := s.store.UpdatePlanStatus(planID, model.PlanStatusCompleted); err != nil {
		log.Error().Err(err).Str("plan_id", planID).Msg("failed to persist completed status")
		return err
	}
	s.timers.Disarm(planID)

	if plan.Repeat == model.RepeatAlways && plan.HasWindow() {
		nextStart := plan.Start.Add(repeatInterval)
		nextEnd := nextStart.Add(plan.End.Sub(*plan.Start))

		if err := s.store.ReschedulePlan(planID, nextStart, nextEnd, model.PlanStatusPending); err != nil {
			log.Error().Err(err).Str("plan_id", planID).Msg("failed to re-seed repeating plan")
		} else {
			log.Info().
				Str("plan_id", planID).
				Time("next_start", nextStart).
				Time("next_end", nextEnd).
				Msg("repeating plan re-seeded")
			if err := s.Initialize(planID); err != nil {
				log.Error().Err(err).Str("plan_id", planID).Msg("failed to re-arm repeating plan")
			}
		}
	}

	s.dist.PlanEnded(planID)
	log.Info().Str("plan_id", planID).Msg("plan completed")
	return nil
}
