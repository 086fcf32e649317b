package db

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/lumenworks/signboard/internal/model"
)

const planColumns = `
	id, name, event_type, start_at, end_at, repeat, status,
	max_plays_per_hour, location_aware, priority, campaigns,
	created_at, updated_at`

// CreatePlan inserts a new plan and returns the stored row.
func CreatePlan(p model.Plan) (model.Plan, error) {
	var out model.Plan
	q := `
	INSERT INTO plans
	  (id, name, event_type, start_at, end_at, repeat, status,
	   max_plays_per_hour, location_aware, priority, campaigns,
	   created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
	RETURNING ` + planColumns + `;`
	err := DB.Get(&out, q,
		p.ID, p.Name, p.EventType, p.Start, p.End, p.Repeat, p.Status,
		p.MaxPlaysPerHour, p.LocationAware, p.Priority, p.Campaigns)
	if err != nil {
		log.Error().Err(err).Str("plan_id", p.ID).Msg("CreatePlan failed")
		return model.Plan{}, err
	}
	return out, nil
}

// GetPlanByID fetches a plan. Returns nil, sql.ErrNoRows if not found.
func GetPlanByID(id string) (*model.Plan, error) {
	var p model.Plan
	err := DB.Get(&p, `SELECT `+planColumns+` FROM plans WHERE id = $1;`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		log.Error().Err(err).Str("plan_id", id).Msg("GetPlanByID failed")
		return nil, err
	}
	return &p, nil
}

func ListPlans() ([]model.Plan, error) {
	var out []model.Plan
	q := `SELECT ` + planColumns + ` FROM plans ORDER BY created_at DESC;`
	if err := DB.Select(&out, q); err != nil {
		log.Error().Err(err).Msg("ListPlans failed")
		return nil, err
	}
	return out, nil
}

// ListSchedulablePlans returns every plan the scheduler has to look at on
// startup recovery: anything still pending or active, including plans whose
// window elapsed while the process was down (those get completed on init).
func ListSchedulablePlans() ([]model.Plan, error) {
	var out []model.Plan
	q := `
	SELECT ` + planColumns + `
	  FROM plans
	 WHERE status IN ('pending', 'active')
	 ORDER BY created_at;`
	if err := DB.Select(&out, q); err != nil {
		log.Error().Err(err).Msg("ListSchedulablePlans failed")
		return nil, err
	}
	return out, nil
}

// ListActivePlans returns plans whose window contains now, highest priority
// first, earliest start breaking ties.
func ListActivePlans(now time.Time) ([]model.Plan, error) {
	var out []model.Plan
	q := `
	SELECT ` + planColumns + `
	  FROM plans
	 WHERE status = 'active'
	   AND start_at IS NOT NULL AND end_at IS NOT NULL
	   AND start_at <= $1 AND end_at > $1
	 ORDER BY priority DESC, start_at ASC;`
	if err := DB.Select(&out, q, now.UTC()); err != nil {
		log.Error().Err(err).Msg("ListActivePlans failed")
		return nil, err
	}
	return out, nil
}

func UpdatePlanStatus(id, status string) error {
	_, err := DB.Exec(`
		UPDATE plans
		SET status = $2,
		updated_at = now()
		WHERE id = $1;`, id, status)
	if err != nil {
		log.Error().Err(err).Str("plan_id", id).Str("status", status).Msg("UpdatePlanStatus failed")
	}
	return err
}

// ReschedulePlan moves a plan onto its next activation window.
func ReschedulePlan(id string, start, end time.Time, status string) error {
	_, err := DB.Exec(`
		UPDATE plans
		SET start_at = $2,
		end_at = $3,
		status = $4,
		updated_at = now()
		WHERE id = $1;`, id, start, end, status)
	if err != nil {
		log.Error().Err(err).Str("plan_id", id).Msg("ReschedulePlan failed")
	}
	return err
}

// UpdatePlan patches the administrator-editable fields of a plan and returns
// the stored row. Nil pointers leave the column untouched, which means the
// window can be moved but never cleared back to NULL here; taking a plan out
// of rotation goes through Cancel instead.
func UpdatePlan(id string, name, eventType, repeat *string, start, end *time.Time,
	maxPlaysPerHour, priority *int, locationAware *bool, campaigns model.CampaignList) (*model.Plan, error) {

	var p model.Plan
	q := `
	UPDATE plans
	SET name = COALESCE($2, name),
	event_type = COALESCE($3, event_type),
	repeat = COALESCE($4, repeat),
	start_at = COALESCE($5, start_at),
	end_at = COALESCE($6, end_at),
	max_plays_per_hour = COALESCE($7, max_plays_per_hour),
	priority = COALESCE($8, priority),
	location_aware = COALESCE($9, location_aware),
	campaigns = COALESCE($10, campaigns),
	updated_at = now()
	WHERE id = $1
	RETURNING ` + planColumns + `;`

	var campaignsArg any
	if campaigns != nil {
		campaignsArg = campaigns
	}
	err := DB.Get(&p, q, id, name, eventType, repeat, start, end,
		maxPlaysPerHour, priority, locationAware, campaignsArg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		log.Error().Err(err).Str("plan_id", id).Msg("UpdatePlan failed")
		return nil, err
	}
	return &p, nil
}

func DeletePlan(id string) error {
	_, err := DB.Exec(`DELETE FROM plans WHERE id = $1;`, id)
	if err != nil {
		log.Error().Err(err).Str("plan_id", id).Msg("DeletePlan failed")
	}
	return err
}
