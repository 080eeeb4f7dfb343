package model

import (
    "fmt"
    "strings"
)

// Event describes one race of the meet as reported by the backend.
//
// Fields:
//  ID               – events.id, also the printed event number.
//  Name             – display name, e.g. "100 mt. Free Style".
//  AgeGroup         – 0 for seniors, otherwise the numeric group.
//  Gender           – "male" or "female".
//  ParticipantCount – entries (or relay teams) registered for the event.
//  Relay            – true when the event is a relay.
//  HasFinal         – true when the heats feed a final.
type Event struct {
    ID               uint64 `json:"id"`
    Name             string `json:"name"`
    AgeGroup         int    `json:"age_group"`
    Gender           string `json:"gender"`
    ParticipantCount int    `json:"participant_count"`
    Relay            bool   `json:"relay"`
    HasFinal         bool   `json:"has_final"`
}

// IsRelayName reports whether an event name denotes a relay.  The backend
// has no dedicated column for it; the name is the only marker.
func IsRelayName(name string) bool {
    return strings.Contains(name, "Relay")
}

// Title renders the heading printed above each heat sheet,
// e.g. "Event No. 7 : 50 mt. Back Stroke Girls Group 2".
func (e Event) Title() string {
    senior := e.AgeGroup == 0
    var who string
    switch {
    case strings.EqualFold(e.Gender, "male") && senior:
        who = "Men"
    case strings.EqualFold(e.Gender, "male"):
        who = "Boys"
    case senior:
        who = "Women"
    default:
        who = "Girls"
    }
    group := "Senior"
    if !senior {
        group = fmt.Sprintf("Group %d", e.AgeGroup)
    }
    return fmt.Sprintf("Event No. %d : %s %s %s", e.ID, e.Name, who, group)
}
