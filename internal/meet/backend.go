package meet

import (
    "context"

    "github.com/iliyamo/swimmeet-console/internal/heat"
    "github.com/iliyamo/swimmeet-console/internal/model"
)

// Backend is the system of record for the meet.  Two implementations
// exist: the REST client in internal/backend and the MySQL adapter in
// internal/repository.  Write methods return *model.PersistenceError on
// failure.
type Backend interface {
    // Competition lists every event with its participant count.
    Competition(ctx context.Context) ([]model.Event, error)
    // HeatSheet returns the entries of an event with their heat and lane.
    HeatSheet(ctx context.Context, eventID uint64) ([]model.Entry, error)
    // TopQualifiers returns at most eight entries ordered fastest first.
    TopQualifiers(ctx context.Context, eventID uint64) ([]model.Entry, error)
    // EligibleSwimmers lists swimmers whose age group and gender match the event.
    EligibleSwimmers(ctx context.Context, eventID uint64) ([]model.Swimmer, error)

    AssignSwimmer(ctx context.Context, eventID, swimmerID uint64, pos heat.Position) error
    UpdateLanes(ctx context.Context, eventID uint64, changes []heat.Assignment) error
    UpdateTimes(ctx context.Context, records []TimeRecord) error
    UpdateFinalTimes(ctx context.Context, records []TimeRecord) error
    Recalculate(ctx context.Context, eventID uint64) error
}

// Notifier is told about every lane changeset that reached the backend.
type Notifier interface {
    LaneChangeset(ctx context.Context, cs Changeset) error
}

// Changeset is the set of lane assignments produced by one move.
type Changeset struct {
    EventID     uint64            `json:"event_id"`
    Heat        int               `json:"heat"`
    Assignments []heat.Assignment `json:"assignments"`
}

// TimeEntry is a time typed into one row of a heat sheet.  EntryID is the
// row's entry id.
type TimeEntry struct {
    EntryID string         `json:"participant_id"`
    Time    model.RaceTime `json:"time"`
}

// TimeRecord is a time addressed the way the backend stores it.  Exactly
// one of SwimmerEventID and RelayEventID is set.
type TimeRecord struct {
    EventID        uint64
    SwimmerEventID uint64
    RelayEventID   uint64
    Time           model.RaceTime
}
