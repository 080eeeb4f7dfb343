package backend

import (
    "bytes"
    "encoding/json"
    "strconv"

    "github.com/iliyamo/swimmeet-console/internal/model"
)

// eventJSON is one item of GET /competition_data.
type eventJSON struct {
    ID               uint64 `json:"id"`
    Name             string `json:"name"`
    AgeGroup         int    `json:"age_group"`
    Gender           string `json:"gender"`
    ParticipantCount int    `json:"participant_count"`
    TimeTrial        *bool  `json:"time_trial"`
}

func (e eventJSON) toModel() model.Event {
    return model.Event{
        ID:               e.ID,
        Name:             e.Name,
        AgeGroup:         e.AgeGroup,
        Gender:           e.Gender,
        ParticipantCount: e.ParticipantCount,
        Relay:            model.IsRelayName(e.Name),
        // only an explicit false means the heats feed a final
        HasFinal: e.TimeTrial != nil && !*e.TimeTrial,
    }
}

// clubName accepts both a bare club name and a club object.
type clubName string

func (c *clubName) UnmarshalJSON(b []byte) error {
    b = bytes.TrimSpace(b)
    if bytes.Equal(b, []byte("null")) {
        *c = ""
        return nil
    }
    if len(b) > 0 && b[0] == '"' {
        var s string
        if err := json.Unmarshal(b, &s); err != nil {
            return err
        }
        *c = clubName(s)
        return nil
    }
    var obj struct {
        Name string `json:"name"`
    }
    if err := json.Unmarshal(b, &obj); err != nil {
        return err
    }
    *c = clubName(obj.Name)
    return nil
}

type swimmerJSON struct {
    ID   uint64   `json:"id"`
    Name string   `json:"name"`
    DOB  string   `json:"dob"`
    Club clubName `json:"club"`
}

// participantJSON covers both shapes returned by /event_participants and
// /top_8_participants.  Relay rows carry a swimmers array; individual rows
// carry a nested swimmer.
type participantJSON struct {
    ID        uint64  `json:"id"`
    SwimmerID uint64  `json:"swimmer_id"`
    EventID   uint64  `json:"event_id"`
    HeatID    int     `json:"heat_id"`
    LaneID    int     `json:"lane_id"`
    Time      *string `json:"time"`

    Swimmer *swimmerJSON `json:"swimmer"`

    Swimmers     []string `json:"swimmers"`
    Club         clubName `json:"club"`
    ClubID       uint64   `json:"club_id"`
    RelayEventID uint64   `json:"relay_event_id"`
}

func (p participantJSON) toModel(eventID uint64) model.Entry {
    var t model.RaceTime
    if p.Time != nil {
        t = model.ParseRaceTime(*p.Time)
    }
    if p.Swimmers != nil {
        return model.NewRelayEntry(eventID, p.HeatID, p.LaneID, string(p.Club), t, model.Relay{
            RelayEventID: p.RelayEventID,
            ClubID:       p.ClubID,
            Swimmers:     p.Swimmers,
        })
    }
    ind := model.Individual{SwimmerEventID: p.ID, SwimmerID: p.SwimmerID}
    var club string
    if p.Swimmer != nil {
        ind.Name = p.Swimmer.Name
        ind.DOB = p.Swimmer.DOB
        club = string(p.Swimmer.Club)
    }
    return model.NewIndividualEntry(eventID, p.HeatID, p.LaneID, club, t, ind)
}

type assignRequest struct {
    SwimmerID uint64 `json:"swimmer_id"`
    EventID   uint64 `json:"event_id"`
    HeatID    int    `json:"heat_id"`
    LaneID    int    `json:"lane_id"`
}

// laneRequest is the body of POST /update_lane.  The backend expects the
// swimmer-event id as a string.
type laneRequest struct {
    SwimmerEventID string `json:"swimmer_event_id"`
    LaneID         int    `json:"lane_id"`
    HeatID         int    `json:"heat_id"`
}

type timeRequest struct {
    SwimmerEventID *uint64 `json:"swimmer_event_id,omitempty"`
    RelayEventID   *uint64 `json:"relay_event_id,omitempty"`
    EventID        *uint64 `json:"event_id,omitempty"`
    Time           string  `json:"time"`
}

type errorBody struct {
    Detail  json.RawMessage `json:"detail"`
    Message string          `json:"message"`
}

// text returns a readable message from a FastAPI style error body.
func (e errorBody) text() string {
    if len(e.Detail) > 0 {
        var s string
        if err := json.Unmarshal(e.Detail, &s); err == nil {
            return s
        }
        return string(e.Detail)
    }
    return e.Message
}

func formatID(id uint64) string { return strconv.FormatUint(id, 10) }
