package model

import (
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestScheduleZeroValue(t *testing.T) {
    var s Schedule
    assert.Equal(t, 1, s.Days())
    assert.True(t, s.Includes(1, 1))
    assert.True(t, s.Includes(1, 999))
    assert.False(t, s.Includes(2, 1))
}

func TestScheduleRanges(t *testing.T) {
    s := Schedule{
        TotalDays: 2,
        EventsByDay: map[string][2]uint64{
            "1": {1, 20},
            "2": {21, 44},
        },
    }
    assert.Equal(t, 2, s.Days())
    assert.True(t, s.Includes(1, 20))
    assert.False(t, s.Includes(1, 21))
    assert.True(t, s.Includes(2, 21))
    assert.False(t, s.Includes(2, 45))
    assert.False(t, s.Includes(0, 1))
    assert.False(t, s.Includes(3, 30))
}
