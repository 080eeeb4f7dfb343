package heat

import "errors"

// ErrOutOfRange is returned when a heat or lane number falls outside the grid.
var ErrOutOfRange = errors.New("heat or lane out of range")

// ErrCrossEvent is returned when a move would take an entry from one
// event's grid into another event's grid.
var ErrCrossEvent = errors.New("move spans two events")

// ErrEmptyCell is returned when the source of a move holds no entry.
var ErrEmptyCell = errors.New("no entry in source lane")

// ErrHeatFull is returned when a cross-heat move targets a heat whose eight
// lanes are all occupied.
var ErrHeatFull = errors.New("destination heat is full")
