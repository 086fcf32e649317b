package endpoints

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lumenworks/signboard/internal/db"
	"github.com/lumenworks/signboard/internal/http/api"
	"github.com/lumenworks/signboard/internal/http/api/admin/packets"
	"github.com/lumenworks/signboard/internal/model"
	"github.com/lumenworks/signboard/internal/scheduler"
)

type PlanController struct {
	store db.Store
	sched *scheduler.Scheduler
}

func NewPlanController(store db.Store, sched *scheduler.Scheduler) *PlanController {
	return &PlanController{store: store, sched: sched}
}

func PlanModule(store db.Store, sched *scheduler.Scheduler) api.Module {
	ctl := NewPlanController(store, sched)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/plans", ctl.listPlans)
		c.POST("/plans", ctl.createPlan)
		c.GET("/plans/:id", ctl.getPlan)
		c.PUT("/plans/:id", ctl.updatePlan)
		c.POST("/plans/:id/cancel", ctl.cancelPlan)
		c.DELETE("/plans/:id", ctl.deletePlan)
	})
}

// validWindow rejects windows where the end is not strictly after the start.
// This is the write boundary; the scheduler never sees an inverted window.
func validWindow(start, end *time.Time) bool {
	if start == nil || end == nil {
		return true
	}
	return end.After(*start)
}

func (p *PlanController) listPlans(ctx *gin.Context) (any, *api.APIError) {
	plans, err := p.store.ListPlans()
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "failed to list plans"}
	}

	response := make([]packets.PlanResponse, 0, len(plans))
	for _, plan := range plans {
		response = append(response, packets.NewPlanResponse(plan, string(p.sched.Timers().Status(plan.ID))))
	}
	return response, nil
}

func (p *PlanController) getPlan(ctx *gin.Context) (any, *api.APIError) {
	id := ctx.Param("id")
	plan, err := p.store.GetPlanByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &api.APIError{Code: http.StatusNotFound, Message: "plan not found"}
		}
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "failed to load plan"}
	}
	return packets.NewPlanResponse(*plan, string(p.sched.Timers().Status(id))), nil
}

func (p *PlanController) createPlan(ctx *gin.Context) (any, *api.APIError) {
	var request packets.CreatePlanRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}
	if !validWindow(request.Start, request.End) {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "end must be after start"}
	}

	plan := model.Plan{
		ID:        uuid.NewString(),
		Name:      request.Name,
		EventType: request.EventType,
		Start:     request.Start,
		End:       request.End,
		Repeat:    model.RepeatAlways,
		Status:    model.PlanStatusPending,
		Campaigns: request.Campaigns,
	}
	if request.Repeat != nil {
		plan.Repeat = *request.Repeat
	}
	if request.MaxPlaysPerHour != nil {
		plan.MaxPlaysPerHour = *request.MaxPlaysPerHour
	}
	if request.LocationAware != nil {
		plan.LocationAware = *request.LocationAware
	}
	if request.Priority != nil {
		plan.Priority = *request.Priority
	}

	created, err := p.store.CreatePlan(plan)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not create plan"}
	}

	if err := p.sched.Initialize(created.ID); err != nil {
		log.Error().Err(err).Str("plan_id", created.ID).Msg("failed to schedule new plan")
	}

	// the scheduler may already have advanced the status
	if current, err := p.store.GetPlanByID(created.ID); err == nil {
		created = *current
	}
	return packets.NewPlanResponse(created, string(p.sched.Timers().Status(created.ID))), nil
}

// updatePlan is a partial update: absent fields keep their stored values, so
// a window can be moved but not removed. Cancel is the way to stop a plan.
func (p *PlanController) updatePlan(ctx *gin.Context) (any, *api.APIError) {
	id := ctx.Param("id")
	var request packets.UpdatePlanRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	existing, err := p.store.GetPlanByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &api.APIError{Code: http.StatusNotFound, Message: "plan not found"}
		}
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "failed to load plan"}
	}

	// validate the window the plan will end up with
	start, end := existing.Start, existing.End
	if request.Start != nil {
		start = request.Start
	}
	if request.End != nil {
		end = request.End
	}
	if !validWindow(start, end) {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "end must be after start"}
	}

	updated, err := p.store.UpdatePlan(id, request.Name, request.EventType, request.Repeat,
		request.Start, request.End, request.MaxPlaysPerHour, request.Priority,
		request.LocationAware, request.Campaigns)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not update plan"}
	}

	if err := p.sched.Initialize(id); err != nil {
		log.Error().Err(err).Str("plan_id", id).Msg("failed to reschedule updated plan")
	}

	if current, err := p.store.GetPlanByID(id); err == nil {
		updated = current
	}
	return packets.NewPlanResponse(*updated, string(p.sched.Timers().Status(id))), nil
}

func (p *PlanController) cancelPlan(ctx *gin.Context) (any, *api.APIError) {
	id := ctx.Param("id")
	if _, err := p.store.GetPlanByID(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &api.APIError{Code: http.StatusNotFound, Message: "plan not found"}
		}
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "failed to load plan"}
	}

	if err := p.sched.Cancel(id); err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not cancel plan"}
	}
	return gin.H{"message": "cancelled"}, nil
}

func (p *PlanController) deletePlan(ctx *gin.Context) (any, *api.APIError) {
	id := ctx.Param("id")
	if _, err := p.store.GetPlanByID(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &api.APIError{Code: http.StatusNotFound, Message: "plan not found"}
		}
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "failed to load plan"}
	}

	// timers go first so a fire cannot race the delete
	p.sched.Remove(id)
	if err := p.store.DeletePlan(id); err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not delete plan"}
	}
	return gin.H{"message": "deleted"}, nil
}
