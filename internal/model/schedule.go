package model

import "strconv"

// Schedule splits the meet into days.  EventsByDay maps the day number
// (as a JSON object key) to an inclusive [first, last] event id range.
//
// A zero Schedule is a one-day meet that runs every event.
type Schedule struct {
    TotalDays   int                  `json:"totalDays"`
    EventsByDay map[string][2]uint64 `json:"eventsByDay"`
}

// Days returns the number of meet days, at least one.
func (s Schedule) Days() int {
    if s.TotalDays < 1 {
        return 1
    }
    return s.TotalDays
}

// Includes reports whether eventID runs on day.  Days without a configured
// range run every event; days past the end of the meet run none.
func (s Schedule) Includes(day int, eventID uint64) bool {
    if day < 1 || day > s.Days() {
        return false
    }
    r, ok := s.EventsByDay[strconv.Itoa(day)]
    if !ok {
        return true
    }
    return eventID >= r[0] && eventID <= r[1]
}
