package meet

import (
    "github.com/iliyamo/swimmeet-console/internal/heat"
    "github.com/iliyamo/swimmeet-console/internal/model"
)

// LaneView is one row of a heat table.  Entry is nil for an empty lane.
type LaneView struct {
    Lane  int          `json:"lane"`
    Entry *model.Entry `json:"entry"`
}

// HeatView is one heat table.  Heats and finals render the same way.
type HeatView struct {
    Heat  int                         `json:"heat"`
    Lanes [heat.LanesPerHeat]LaneView `json:"lanes"`
}

// EventView is everything needed to print an event: its heats and, when
// the event has one, its final.  Unplaced lists entries the backend has
// not given a cell yet; a recalculation places them.
type EventView struct {
    Event    model.Event   `json:"event"`
    Title    string        `json:"title"`
    ShowDOB  bool          `json:"show_dob"`
    Heats    []HeatView    `json:"heats"`
    Final    *HeatView     `json:"final,omitempty"`
    Unplaced []model.Entry `json:"unplaced,omitempty"`
}

// Render lays a grid out as heat tables in heat order.
func Render(g *heat.Grid) []HeatView {
    out := make([]HeatView, 0, g.Heats())
    for h := 1; h <= g.Heats(); h++ {
        lanes, err := g.Lanes(h)
        if err != nil {
            break
        }
        hv := HeatView{Heat: h}
        for i, e := range lanes {
            hv.Lanes[i] = LaneView{Lane: i + 1}
            if e != nil {
                cp := *e
                hv.Lanes[i].Entry = &cp
            }
        }
        out = append(out, hv)
    }
    return out
}

func newEventView(ev model.Event, g *heat.Grid) EventView {
    return EventView{
        Event:    ev,
        Title:    ev.Title(),
        ShowDOB:  !ev.Relay,
        Heats:    Render(g),
        Unplaced: g.Unplaced(),
    }
}
