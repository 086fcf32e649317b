package scheduler

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// TimerKind distinguishes the two one-shot timers a plan may hold.
type TimerKind int

const (
	TimerStart TimerKind = iota
	TimerEnd
)

func (k TimerKind) String() string {
	if k == TimerStart {
		return "start"
	}
	return "end"
}

// ScheduleStatus is the diagnostic state of a plan's registry entry.
type ScheduleStatus string

const (
	StatusNone      ScheduleStatus = "none"
	StatusScheduled ScheduleStatus = "scheduled"
	StatusActive    ScheduleStatus = "active"
)

// ErrPastDue is returned by Arm when the fire time already elapsed beyond the
// grace tolerance. The caller runs the transition synchronously instead.
var ErrPastDue = errors.New("fire time already elapsed")

// pastDueGrace is how far in the past a fire time may be and still get armed
// as an immediate timer rather than rejected.
const pastDueGrace = time.Second

type timerEntry struct {
	startTimer *time.Timer
	endTimer   *time.Timer
	status     ScheduleStatus
}

// TimerRegistry is the single source of truth for which timers are armed for
// which plan. It holds at most one start timer and one end timer per plan id.
// It owns no persistence; it is rebuilt from the plan store on process start.
type TimerRegistry struct {
	mu      sync.Mutex
	entries map[string]*timerEntry
}

func NewTimerRegistry() *TimerRegistry {
	return &TimerRegistry{entries: make(map[string]*timerEntry)}
}

// Arm schedules fn to run once at fireAt. Arming a kind that already has a
// live timer for the plan stops the old one first, so the one-pair invariant
// holds even on misuse. Fire times in the past within the grace tolerance run
// on an immediate timer; older ones are rejected with ErrPastDue.
func (r *TimerRegistry) Arm(planID string, fireAt time.Time, kind TimerKind, fn func()) error {
	delay := time.Until(fireAt)
	if delay < -pastDueGrace {
		log.Warn().
			Str("plan_id", planID).
			Str("kind", kind.String()).
			Time("fire_at", fireAt).
			Msg("refusing to arm timer in the past")
		return ErrPastDue
	}
	if delay < 0 {
		delay = 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[planID]
	if !ok {
		e = &timerEntry{}
		r.entries[planID] = e
	}

	t := time.AfterFunc(delay, fn)
	switch kind {
	case TimerStart:
		if e.startTimer != nil {
			e.startTimer.Stop()
		}
		e.startTimer = t
		e.status = StatusScheduled
	case TimerEnd:
		// the start timer for this cycle has fired by the time the end
		// timer is armed; drop the stale handle
		if e.startTimer != nil {
			e.startTimer.Stop()
			e.startTimer = nil
		}
		if e.endTimer != nil {
			e.endTimer.Stop()
		}
		e.endTimer = t
		e.status = StatusActive
	}

	log.Debug().
		Str("plan_id", planID).
		Str("kind", kind.String()).
		Time("fire_at", fireAt).
		Msg("armed timer")
	return nil
}

// Disarm cancels both timers for a plan and removes its entry. Disarming a
// plan with no registered timers is a no-op, not an error. Cancellation is
// best-effort: a callback already in flight still runs to completion.
func (r *TimerRegistry) Disarm(planID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[planID]
	if !ok {
		return
	}
	if e.startTimer != nil {
		e.startTimer.Stop()
	}
	if e.endTimer != nil {
		e.endTimer.Stop()
	}
	delete(r.entries, planID)
	log.Debug().Str("plan_id", planID).Msg("disarmed timers")
}

// Status reports the last known scheduling status for diagnostics.
func (r *TimerRegistry) Status(planID string) ScheduleStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[planID]; ok {
		return e.status
	}
	return StatusNone
}

// Armed reports which timers are currently live for a plan.
func (r *TimerRegistry) Armed(planID string) (start, end bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[planID]
	if !ok {
		return false, false
	}
	return e.startTimer != nil, e.endTimer != nil
}
