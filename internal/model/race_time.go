package model

import (
    "strconv"
    "strings"
)

// BlankTime is the wire form of a time that has not been recorded yet.
const BlankTime = "::"

// RaceTime is a recorded swim time kept as the three text fields the
// officials type in: minutes, seconds and hundredths.  Fields are not
// range-checked; the backend owns validation.
type RaceTime struct {
    Minutes    string `json:"mm"`
    Seconds    string `json:"ss"`
    Hundredths string `json:"ms"`
}

// ParseRaceTime splits a colon-delimited "mm:ss:ms" value.  Missing fields
// are left blank, so "" and "::" both yield the zero RaceTime.
func ParseRaceTime(s string) RaceTime {
    parts := strings.SplitN(strings.TrimSpace(s), ":", 3)
    var t RaceTime
    if len(parts) > 0 {
        t.Minutes = strings.TrimSpace(parts[0])
    }
    if len(parts) > 1 {
        t.Seconds = strings.TrimSpace(parts[1])
    }
    if len(parts) > 2 {
        t.Hundredths = strings.TrimSpace(parts[2])
    }
    return t
}

// String joins the fields back into wire format.
func (t RaceTime) String() string {
    return t.Minutes + ":" + t.Seconds + ":" + t.Hundredths
}

// IsBlank reports whether no field has been filled in.
func (t RaceTime) IsBlank() bool {
    return t.Minutes == "" && t.Seconds == "" && t.Hundredths == ""
}

// maxField bounds each field for ranking.  Larger values cannot be real
// swim times and would overflow the total.
const maxField = 9999

// Total returns the time in hundredths of a second.  ok is false when any
// field is blank, not a non-negative integer or larger than maxField.
func (t RaceTime) Total() (hundredths int, ok bool) {
    var f [3]int
    for i, s := range [3]string{t.Minutes, t.Seconds, t.Hundredths} {
        n, err := strconv.Atoi(s)
        if err != nil || n < 0 || n > maxField {
            return 0, false
        }
        f[i] = n
    }
    return f[0]*60*100 + f[1]*100 + f[2], true
}
