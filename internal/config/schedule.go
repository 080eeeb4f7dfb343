package config

import (
    "encoding/json"
    "errors"
    "fmt"
    "io/fs"
    "os"
    "strconv"

    "github.com/iliyamo/swimmeet-console/internal/model"
)

// LoadSchedule reads the meet schedule, e.g.
//
//  {"totalDays": 2, "eventsByDay": {"1": [1, 24], "2": [25, 48]}}
//
// A missing file yields the zero Schedule: one day running every event.
func LoadSchedule(path string) (model.Schedule, error) {
    b, err := os.ReadFile(path)
    if err != nil {
        if errors.Is(err, fs.ErrNotExist) {
            return model.Schedule{}, nil
        }
        return model.Schedule{}, fmt.Errorf("read schedule: %w", err)
    }
    var s model.Schedule
    if err := json.Unmarshal(b, &s); err != nil {
        return model.Schedule{}, fmt.Errorf("parse schedule %s: %w", path, err)
    }
    if err := validateSchedule(s); err != nil {
        return model.Schedule{}, fmt.Errorf("schedule %s: %w", path, err)
    }
    return s, nil
}

func validateSchedule(s model.Schedule) error {
    if s.TotalDays < 0 {
        return fmt.Errorf("totalDays %d is negative", s.TotalDays)
    }
    for key, r := range s.EventsByDay {
        day, err := strconv.Atoi(key)
        if err != nil || day < 1 || day > s.Days() {
            return fmt.Errorf("day %q outside 1..%d", key, s.Days())
        }
        if r[0] > r[1] {
            return fmt.Errorf("day %d: first event %d after last event %d", day, r[0], r[1])
        }
    }
    return nil
}
