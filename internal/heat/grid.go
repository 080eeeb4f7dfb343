// Package heat keeps the heats x lanes grid of a single event.  A Grid is
// built fresh from the heat sheet every time an event is shown; it is a
// working copy, never the system of record.
package heat

import (
    "fmt"

    "github.com/iliyamo/swimmeet-console/internal/model"
)

// LanesPerHeat is the pool width.
const LanesPerHeat = 8

// Position addresses one cell.  Both numbers are 1-based.
type Position struct {
    Heat int `json:"heat"`
    Lane int `json:"lane"`
}

func (p Position) String() string { return fmt.Sprintf("heat %d lane %d", p.Heat, p.Lane) }

// Assignment is one line of a changeset sent to the backend.
type Assignment struct {
    EntryID string `json:"participant_id"`
    Heat    int    `json:"heat_id"`
    Lane    int    `json:"lane_id"`
}

// Grid maps (heat, lane) to an entry for one event.  Empty lanes are nil
// cells; every heat always has LanesPerHeat cells.
type Grid struct {
    EventID uint64
    Relay   bool
    heats   [][LanesPerHeat]*model.Entry

    unplaced []model.Entry
}

// Build allocates ceil(participantCount/8) heats of empty lanes.  The last
// heat is allocated in full even when it will be partly filled.
func Build(eventID uint64, participantCount int, relay bool) *Grid {
    n := 0
    if participantCount > 0 {
        n = (participantCount + LanesPerHeat - 1) / LanesPerHeat
    }
    return &Grid{
        EventID: eventID,
        Relay:   relay,
        heats:   make([][LanesPerHeat]*model.Entry, n),
    }
}

// Load builds the grid for an event and places every entry of its heat
// sheet.  The grid is sized from the larger of the reported participant
// count and the highest heat number present, so a stale count never drops
// an entry.  Two entries in one cell keep the later one.  Entries the
// backend has not placed yet (heat or lane 0) are kept aside; see Unplaced.
func Load(ev model.Event, entries []model.Entry) (*Grid, error) {
    count := ev.ParticipantCount
    for _, e := range entries {
        if need := e.Heat * LanesPerHeat; e.Heat > 0 && need > count {
            count = need
        }
    }
    g := Build(ev.ID, count, ev.Relay)
    for _, e := range entries {
        if e.Heat == 0 || e.Lane == 0 {
            g.unplaced = append(g.unplaced, e)
            continue
        }
        if err := g.Place(Position{Heat: e.Heat, Lane: e.Lane}, e); err != nil {
            return nil, fmt.Errorf("load event %d entry %s: %w", ev.ID, e.ID, err)
        }
    }
    return g, nil
}

// Unplaced returns the loaded entries that have no cell yet.
func (g *Grid) Unplaced() []model.Entry {
    return append([]model.Entry(nil), g.unplaced...)
}

// Heats returns the number of heats.
func (g *Grid) Heats() int { return len(g.heats) }

// Contains reports whether p addresses a cell of the grid.
func (g *Grid) Contains(p Position) bool {
    return p.Heat >= 1 && p.Heat <= len(g.heats) && p.Lane >= 1 && p.Lane <= LanesPerHeat
}

func (g *Grid) check(p Position) error {
    if !g.Contains(p) {
        return fmt.Errorf("%w: %s (event %d has %d heats)", ErrOutOfRange, p, g.EventID, len(g.heats))
    }
    return nil
}

// At returns the entry in a cell, or nil when the lane is empty or p is
// outside the grid.
func (g *Grid) At(p Position) *model.Entry {
    if !g.Contains(p) {
        return nil
    }
    return g.heats[p.Heat-1][p.Lane-1]
}

// Lanes returns a copy of one heat's cells in lane order.
func (g *Grid) Lanes(heat int) ([LanesPerHeat]*model.Entry, error) {
    if err := g.check(Position{Heat: heat, Lane: 1}); err != nil {
        return [LanesPerHeat]*model.Entry{}, err
    }
    return g.heats[heat-1], nil
}

// Place puts e into cell p, replacing whatever was there.  The entry's
// event, heat and lane fields are rewritten to match the cell.
func (g *Grid) Place(p Position, e model.Entry) error {
    if err := g.check(p); err != nil {
        return err
    }
    e.EventID = g.EventID
    e.Heat, e.Lane = p.Heat, p.Lane
    g.heats[p.Heat-1][p.Lane-1] = &e
    return nil
}

// Move relocates the entry at from to to within the same grid.
func (g *Grid) Move(from, to Position) error {
    return Move(g, g, from, to)
}

// Move drags the entry at from in src and drops it on to in dst.  The
// dragged row is inserted before the drop row and the destination heat is
// then renumbered densely from lane 1 in row order, leaving the trailing
// lanes empty.  A move into another heat vacates the source cell without
// renumbering the source heat.
//
// Every check runs before the first write, so a failed move leaves both
// grids untouched.  Dropping a row on itself is a no-op.
func Move(src, dst *Grid, from, to Position) error {
    if src.EventID != dst.EventID {
        return fmt.Errorf("%w: event %d to event %d", ErrCrossEvent, src.EventID, dst.EventID)
    }
    if err := src.check(from); err != nil {
        return err
    }
    if err := dst.check(to); err != nil {
        return err
    }
    if src == dst && from == to {
        return nil
    }
    dragged := src.heats[from.Heat-1][from.Lane-1]
    if dragged == nil {
        return fmt.Errorf("%w: %s", ErrEmptyCell, from)
    }
    sameHeat := src == dst && from.Heat == to.Heat

    // rows holds the destination heat in display order, dragged row removed
    rows := make([]*model.Entry, 0, LanesPerHeat+1)
    dropAt := -1
    for i, cell := range dst.heats[to.Heat-1] {
        if sameHeat && i == from.Lane-1 {
            continue
        }
        if i == to.Lane-1 {
            dropAt = len(rows)
        }
        rows = append(rows, cell)
    }
    rows = append(rows[:dropAt], append([]*model.Entry{dragged}, rows[dropAt:]...)...)

    occupants := make([]*model.Entry, 0, LanesPerHeat)
    for _, e := range rows {
        if e != nil {
            occupants = append(occupants, e)
        }
    }
    if len(occupants) > LanesPerHeat {
        return fmt.Errorf("%w: %s", ErrHeatFull, to)
    }

    if !sameHeat {
        src.heats[from.Heat-1][from.Lane-1] = nil
    }
    var heat [LanesPerHeat]*model.Entry
    for i, e := range occupants {
        moved := *e
        moved.EventID = dst.EventID
        moved.Heat = to.Heat
        moved.Lane = i + 1
        heat[i] = &moved
    }
    dst.heats[to.Heat-1] = heat
    return nil
}

// Emit lists every occupied cell in heat then lane order.  It does not
// change the grid, so repeated calls return equal changesets.
func (g *Grid) Emit() []Assignment {
    out := make([]Assignment, 0)
    for h := range g.heats {
        out = append(out, g.emitHeat(h+1)...)
    }
    return out
}

// EmitHeat lists the occupied cells of one heat.  It is the changeset
// pushed after a move into that heat.
func (g *Grid) EmitHeat(heat int) []Assignment {
    if heat < 1 || heat > len(g.heats) {
        return []Assignment{}
    }
    return g.emitHeat(heat)
}

func (g *Grid) emitHeat(heat int) []Assignment {
    out := make([]Assignment, 0, LanesPerHeat)
    for l, e := range g.heats[heat-1] {
        if e == nil {
            continue
        }
        out = append(out, Assignment{EntryID: e.ID, Heat: heat, Lane: l + 1})
    }
    return out
}

// Entries returns the occupied cells in heat then lane order.
func (g *Grid) Entries() []model.Entry {
    out := make([]model.Entry, 0)
    for _, heat := range g.heats {
        for _, e := range heat {
            if e != nil {
                out = append(out, *e)
            }
        }
    }
    return out
}

// Clone returns a deep copy whose cells can be mutated independently.
func (g *Grid) Clone() *Grid {
    c := &Grid{
        EventID: g.EventID,
        Relay:   g.Relay,
        heats:   make([][LanesPerHeat]*model.Entry, len(g.heats)),

        unplaced: append([]model.Entry(nil), g.unplaced...),
    }
    for h, heat := range g.heats {
        for l, e := range heat {
            if e != nil {
                cp := *e
                c.heats[h][l] = &cp
            }
        }
    }
    return c
}
