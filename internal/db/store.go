// exposes a Store interface that is passed to API calls and the
// scheduling/realtime components instead of the package-level functions
package db

import (
	"time"

	"github.com/lumenworks/signboard/internal/model"
)

type Store interface {
	// plan functions
	CreatePlan(p model.Plan) (model.Plan, error)
	GetPlanByID(id string) (*model.Plan, error)
	ListPlans() ([]model.Plan, error)
	ListSchedulablePlans() ([]model.Plan, error)
	ListActivePlans(now time.Time) ([]model.Plan, error)
	UpdatePlanStatus(id, status string) error
	ReschedulePlan(id string, start, end time.Time, status string) error
	UpdatePlan(id string, name, eventType, repeat *string, start, end *time.Time,
		maxPlaysPerHour, priority *int, locationAware *bool, campaigns model.CampaignList) (*model.Plan, error)
	DeletePlan(id string) error

	// player functions
	UpsertPlayerByDeviceID(deviceID, status string, heartbeat time.Time) (*model.Player, error)
	GetPlayerByDeviceID(deviceID string) (*model.Player, error)
	ListPlayers() ([]model.Player, error)
	SetPlayerStatus(deviceID, status string) error
	TouchPlayerHeartbeat(deviceID string, at time.Time) error
	UpdatePlayerSettings(deviceID string, settings model.PlayerSettings) error
	ListStalePlayers(olderThan time.Time) ([]model.Player, error)

	// user functions
	GetUserByID(id int) (*model.User, error)
	SetUserPresence(id int, online bool, lastActive time.Time) error
}

type pgStore struct{}

// compile-time check that pgStore implements Store
var _ Store = (*pgStore)(nil)

func NewStore() Store {
	return &pgStore{}
}

func (s *pgStore) CreatePlan(p model.Plan) (model.Plan, error) { return CreatePlan(p) }
func (s *pgStore) GetPlanByID(id string) (*model.Plan, error)  { return GetPlanByID(id) }
func (s *pgStore) ListPlans() ([]model.Plan, error)            { return ListPlans() }
func (s *pgStore) ListSchedulablePlans() ([]model.Plan, error) { return ListSchedulablePlans() }
func (s *pgStore) ListActivePlans(now time.Time) ([]model.Plan, error) {
	return ListActivePlans(now)
}
func (s *pgStore) UpdatePlanStatus(id, status string) error { return UpdatePlanStatus(id, status) }
func (s *pgStore) ReschedulePlan(id string, start, end time.Time, status string) error {
	return ReschedulePlan(id, start, end, status)
}
func (s *pgStore) UpdatePlan(id string, name, eventType, repeat *string, start, end *time.Time,
	maxPlaysPerHour, priority *int, locationAware *bool, campaigns model.CampaignList) (*model.Plan, error) {
	return UpdatePlan(id, name, eventType, repeat, start, end, maxPlaysPerHour, priority, locationAware, campaigns)
}
func (s *pgStore) DeletePlan(id string) error { return DeletePlan(id) }

func (s *pgStore) UpsertPlayerByDeviceID(deviceID, status string, heartbeat time.Time) (*model.Player, error) {
	return UpsertPlayerByDeviceID(deviceID, status, heartbeat)
}
func (s *pgStore) GetPlayerByDeviceID(deviceID string) (*model.Player, error) {
	return GetPlayerByDeviceID(deviceID)
}
func (s *pgStore) ListPlayers() ([]model.Player, error)        { return ListPlayers() }
func (s *pgStore) SetPlayerStatus(deviceID, status string) error {
	return SetPlayerStatus(deviceID, status)
}
func (s *pgStore) TouchPlayerHeartbeat(deviceID string, at time.Time) error {
	return TouchPlayerHeartbeat(deviceID, at)
}
func (s *pgStore) UpdatePlayerSettings(deviceID string, settings model.PlayerSettings) error {
	return UpdatePlayerSettings(deviceID, settings)
}
func (s *pgStore) ListStalePlayers(olderThan time.Time) ([]model.Player, error) {
	return ListStalePlayers(olderThan)
}

func (s *pgStore) GetUserByID(id int) (*model.User, error) { return GetUserByID(id) }
func (s *pgStore) SetUserPresence(id int, online bool, lastActive time.Time) error {
	return SetUserPresence(id, online, lastActive)
}
