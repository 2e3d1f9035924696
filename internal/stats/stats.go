// Package stats collects a point-in-time snapshot of the mailbox fabric
// for the monitor CLI and the HTTP debug endpoint, grounded on the
// teacher's internal/domain/model.HubStats shape (a registry-wide counter
// snapshot consumed outside the hot path).
package stats

import (
	"github.com/pulsebeam-relay/signaling-relay/internal/domain/registry"
)

// GroupSnapshot describes one group's live occupancy.
type GroupSnapshot struct {
	GroupID    string
	PeerConns  int
}

// Snapshot is a point-in-time view of the whole fabric.
type Snapshot struct {
	GroupCount int
	Groups     []GroupSnapshot
}

// Collector reads a *registry.Manager without mutating it.
type Collector struct {
	manager *registry.Manager
}

func NewCollector(manager *registry.Manager) *Collector {
	return &Collector{manager: manager}
}

// Collect walks every tracked group and counts its live mailboxes. It
// never triggers lazy-creation: Peek only.
func (c *Collector) Collect() Snapshot {
	ids := c.manager.Groups()
	groups := make([]GroupSnapshot, 0, len(ids))
	for _, id := range ids {
		g, ok := c.manager.Peek(id)
		if !ok {
			continue
		}
		groups = append(groups, GroupSnapshot{GroupID: id, PeerConns: g.Len()})
	}
	return Snapshot{GroupCount: len(groups), Groups: groups}
}
