// Package queue defines message payloads exchanged over the message broker.
package queue

import "github.com/iliyamo/swimmeet-console/internal/heat"

// LaneChangesetQueue is both the queue name and the routing key.
const LaneChangesetQueue = "lane.changeset"

// LaneChangesetEvent is published after the backend accepted the lane
// assignments of one heat.  It carries the whole heat so consumers can
// print it without querying the backend.
type LaneChangesetEvent struct {
    ID          string            `json:"id"`
    EventID     uint64            `json:"event_id"`
    Heat        int               `json:"heat"`
    Assignments []heat.Assignment `json:"assignments"`
    PublishedAt string            `json:"published_at"`
}
