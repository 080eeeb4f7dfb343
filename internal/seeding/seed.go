// Package seeding places ranked swimmers into lanes: fastest in the centre
// of the pool, slower towards the walls.
package seeding

import (
    "errors"
    "fmt"
    "sort"

    "github.com/iliyamo/swimmeet-console/internal/heat"
    "github.com/iliyamo/swimmeet-console/internal/model"
)

// LaneOrder lists the lane for each rank, fastest first.
var LaneOrder = [heat.LanesPerHeat]int{4, 5, 3, 6, 2, 7, 1, 8}

// ErrInvalidRankCount is returned when more qualifiers than lanes are seeded.
var ErrInvalidRankCount = errors.New("more qualifiers than lanes")

// Seed assigns the i-th qualifier to lane LaneOrder[i].  qualifiers must
// already be ordered fastest first with ties broken; only their order is
// used.  Lanes beyond len(qualifiers) are absent from the result.
func Seed[T any](qualifiers []T) (map[int]T, error) {
    if len(qualifiers) > len(LaneOrder) {
        return nil, fmt.Errorf("%w: %d qualifiers for %d lanes", ErrInvalidRankCount, len(qualifiers), len(LaneOrder))
    }
    out := make(map[int]T, len(qualifiers))
    for i, q := range qualifiers {
        out[LaneOrder[i]] = q
    }
    return out, nil
}

// SlotFor returns the heat and lane of the k-th entrant (0-based) when a
// whole event is seeded eight at a time.
func SlotFor(k int) (heatNo, lane int) {
    return k/heat.LanesPerHeat + 1, LaneOrder[k%heat.LanesPerHeat]
}

// Rank returns a copy of entries sorted fastest first.  Entries without a
// usable time keep their relative order and go after every timed entry.
func Rank(entries []model.Entry) []model.Entry {
    out := make([]model.Entry, len(entries))
    copy(out, entries)
    sort.SliceStable(out, func(i, j int) bool {
        ti, okI := out[i].Time.Total()
        tj, okJ := out[j].Time.Total()
        switch {
        case okI && okJ:
            return ti < tj
        default:
            return okI && !okJ
        }
    })
    return out
}

// Recalculate ranks entries and reseeds the whole event.  The result is the
// changeset that moves every entry to its new cell.
func Recalculate(entries []model.Entry) []heat.Assignment {
    ranked := Rank(entries)
    out := make([]heat.Assignment, 0, len(ranked))
    for k, e := range ranked {
        h, l := SlotFor(k)
        out = append(out, heat.Assignment{EntryID: e.ID, Heat: h, Lane: l})
    }
    return out
}
