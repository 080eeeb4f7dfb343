package model

import (
    "encoding/json"
    "fmt"
    "strconv"
    "strings"
)

// Payload identifies who swims in an entry.  It is either Individual or
// Relay; no other implementations exist.
type Payload interface{ isPayload() }

// Individual is a single swimmer's participation in an event.
type Individual struct {
    SwimmerEventID uint64 // swimmer_events.id
    SwimmerID      uint64 // swimmers.id
    Name           string
    DOB            string // as stored by the backend, may be empty
}

// Relay is a club team.  Swimmers keeps the order fixed when the team
// was entered; the console never reorders it.
type Relay struct {
    RelayEventID uint64 // relay_events.id
    ClubID       uint64
    Swimmers     []string
}

func (Individual) isPayload() {}
func (Relay) isPayload()      {}

// Entry is one occupied cell of a heat sheet.
//
// Fields:
//  ID      – stable key used in changesets.  The swimmer-event id for
//            individuals, "relay-<heat>-<lane>" of the loaded cell for relays.
//  EventID – event the entry belongs to.
//  Heat    – 1-based heat number.
//  Lane    – lane number 1..8.
//  Club    – club or school name.
//  Time    – recorded time, blank when not swum yet.
//  Payload – Individual or Relay.
type Entry struct {
    ID      string
    EventID uint64
    Heat    int
    Lane    int
    Club    string
    Time    RaceTime
    Payload Payload
}

// NewIndividualEntry builds an entry keyed by the swimmer-event id.
func NewIndividualEntry(eventID uint64, heat, lane int, club string, t RaceTime, p Individual) Entry {
    return Entry{
        ID:      strconv.FormatUint(p.SwimmerEventID, 10),
        EventID: eventID,
        Heat:    heat,
        Lane:    lane,
        Club:    club,
        Time:    t,
        Payload: p,
    }
}

// NewRelayEntry builds an entry keyed by the cell it was loaded from.
func NewRelayEntry(eventID uint64, heat, lane int, club string, t RaceTime, p Relay) Entry {
    return Entry{
        ID:      RelayEntryID(heat, lane),
        EventID: eventID,
        Heat:    heat,
        Lane:    lane,
        Club:    club,
        Time:    t,
        Payload: p,
    }
}

// RelayEntryID is the synthetic id of a relay loaded from (heat, lane).
func RelayEntryID(heat, lane int) string {
    return fmt.Sprintf("relay-%d-%d", heat, lane)
}

// ParseRelayEntryID is the inverse of RelayEntryID.
func ParseRelayEntryID(id string) (heat, lane int, ok bool) {
    rest, found := strings.CutPrefix(id, "relay-")
    if !found {
        return 0, 0, false
    }
    h, l, found := strings.Cut(rest, "-")
    if !found {
        return 0, 0, false
    }
    heat, err := strconv.Atoi(h)
    if err != nil || heat < 1 {
        return 0, 0, false
    }
    lane, err = strconv.Atoi(l)
    if err != nil || lane < 1 {
        return 0, 0, false
    }
    return heat, lane, true
}

// IsRelay reports whether the entry is a relay team.
func (e Entry) IsRelay() bool {
    _, ok := e.Payload.(Relay)
    return ok
}

// DisplayName is the first line printed in the name column.
func (e Entry) DisplayName() string {
    switch p := e.Payload.(type) {
    case Individual:
        return p.Name
    case Relay:
        return e.Club
    }
    return ""
}

type entryJSON struct {
    ID             string   `json:"id,omitempty"`
    EventID        uint64   `json:"event_id"`
    Heat           int      `json:"heat"`
    Lane           int      `json:"lane"`
    Kind           string   `json:"kind"`
    Club           string   `json:"club"`
    Time           RaceTime `json:"time"`
    SwimmerEventID uint64   `json:"swimmer_event_id,omitempty"`
    SwimmerID      uint64   `json:"swimmer_id,omitempty"`
    Name           string   `json:"name,omitempty"`
    DOB            string   `json:"dob,omitempty"`
    RelayEventID   uint64   `json:"relay_event_id,omitempty"`
    ClubID         uint64   `json:"club_id,omitempty"`
    Swimmers       []string `json:"swimmers,omitempty"`
}

// MarshalJSON flattens the payload and adds a "kind" discriminator so UI
// clients can tell relay rows (no DOB column) from individual rows.
func (e Entry) MarshalJSON() ([]byte, error) {
    out := entryJSON{
        ID:      e.ID,
        EventID: e.EventID,
        Heat:    e.Heat,
        Lane:    e.Lane,
        Club:    e.Club,
        Time:    e.Time,
    }
    switch p := e.Payload.(type) {
    case Individual:
        out.Kind = "individual"
        out.SwimmerEventID = p.SwimmerEventID
        out.SwimmerID = p.SwimmerID
        out.Name = p.Name
        out.DOB = p.DOB
    case Relay:
        out.Kind = "relay"
        out.RelayEventID = p.RelayEventID
        out.ClubID = p.ClubID
        out.Swimmers = p.Swimmers
    default:
        return nil, fmt.Errorf("entry %s: unknown payload %T", e.ID, e.Payload)
    }
    return json.Marshal(out)
}
