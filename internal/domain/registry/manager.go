package registry

import (
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/pulsebeam-relay/signaling-relay/internal/domain/relay"
)

// Manager is the top-level mailbox fabric: a mapping from group_id to
// Group, bounded by MaxGroups, with a background janitor reclaiming groups
// and mailboxes that have gone idle.
type Manager struct {
	cfgMu sync.RWMutex
	cfg   Config

	logger *slog.Logger

	groups *lru.Cache[string, *Group]
	sf     singleflight.Group

	stopCh chan struct{}
}

// Config mirrors spec §6: the tunables shared by every Group/Mailbox this
// Manager creates.
type Config struct {
	MaxGroups             int
	MaxPeersPerGroup      int
	MailboxCapacity       int
	SessionPollTimeout    time.Duration
	SessionPollLatency    time.Duration
	SessionBatchTimeout   time.Duration
	KeepAliveInterval     time.Duration
	EvictionSweepInterval time.Duration
}

// DefaultConfig returns the spec's §6 defaults.
func DefaultConfig() Config {
	return Config{
		MaxGroups:             65536,
		MaxPeersPerGroup:      16,
		MailboxCapacity:       32,
		SessionPollTimeout:    1200 * time.Second,
		SessionPollLatency:    5 * time.Second,
		SessionBatchTimeout:   5 * time.Millisecond,
		KeepAliveInterval:     45 * time.Second,
		EvictionSweepInterval: time.Minute,
	}
}

// NewManager builds a Manager and starts its idle-eviction janitor. Call
// Shutdown to stop it.
func NewManager(cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	cache, _ := lru.New[string, *Group](max(cfg.MaxGroups, 1))
	m := &Manager{
		cfg:    cfg,
		logger: logger,
		groups: cache,
		stopCh: make(chan struct{}),
	}
	go m.runEvictor()
	return m
}

// Get looks up or lazily creates the Group for groupID, serializing
// concurrent first-lookups via singleflight.
func (m *Manager) Get(groupID string) *Group {
	if g, ok := m.groups.Get(groupID); ok {
		return g
	}
	v, _, _ := m.sf.Do(groupID, func() (any, error) {
		if g, ok := m.groups.Get(groupID); ok {
			return g, nil
		}
		cfg := m.config()
		g := newGroup(groupID, cfg.MaxPeersPerGroup, cfg.MailboxCapacity)
		m.groups.Add(groupID, g)
		return g, nil
	})
	return v.(*Group)
}

// config returns a consistent snapshot of the current tunables.
func (m *Manager) config() Config {
	m.cfgMu.RLock()
	defer m.cfgMu.RUnlock()
	return m.cfg
}

// Config returns the tunables currently in effect, reflecting any
// UpdateConfig call made after construction.
func (m *Manager) Config() Config {
	return m.config()
}

// UpdateConfig hot-swaps the tunables. MaxPeersPerGroup and
// MailboxCapacity apply to groups created from this point on (an existing
// group keeps the values it was built with); the poll/batch timeouts and
// keep-alive interval are read on each use. MaxGroups and EvictionSweepInterval are
// fixed at construction: the former sizes the LRU cache up front, the
// latter is only read once to start the janitor's ticker.
func (m *Manager) UpdateConfig(cfg Config) {
	m.cfgMu.Lock()
	cfg.MaxGroups = m.cfg.MaxGroups
	cfg.EvictionSweepInterval = m.cfg.EvictionSweepInterval
	m.cfg = cfg
	m.cfgMu.Unlock()
}

// Remove drops one (peer_id, conn_id) connection from its group, and drops
// the group itself once it holds no more mailboxes.
func (m *Manager) Remove(peer relay.PeerInfo) {
	g, ok := m.groups.Peek(peer.GroupID)
	if !ok {
		return
	}
	g.Remove(PeerConn{PeerID: peer.PeerID, ConnID: peer.ConnID})
	if g.Len() == 0 {
		m.groups.Remove(peer.GroupID)
	}
}

// GroupCount reports how many groups are currently tracked. Used by the
// stats collector and the monitor CLI.
func (m *Manager) GroupCount() int {
	return m.groups.Len()
}

// Groups returns a snapshot of the currently tracked group ids.
func (m *Manager) Groups() []string {
	return m.groups.Keys()
}

// Peek returns the Group for groupID without creating it or touching its
// LRU recency.
func (m *Manager) Peek(groupID string) (*Group, bool) {
	return m.groups.Peek(groupID)
}

// InvalidateAll drops every group and mailbox, forgetting all state. This
// is the eviction-liveness scenario from spec §8 (S6): the system must
// stay usable immediately afterward, recreating mailboxes lazily on the
// next send/recv.
func (m *Manager) InvalidateAll() {
	m.groups.Purge()
}

func (m *Manager) runEvictor() {
	ticker := time.NewTicker(m.cfg.EvictionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Manager) sweep() {
	timeout := m.config().SessionPollTimeout
	reapedMailboxes := 0
	reapedGroups := 0
	for _, id := range m.groups.Keys() {
		g, ok := m.groups.Peek(id)
		if !ok {
			continue
		}
		reapedMailboxes += g.evictIdle(timeout)
		if g.Len() == 0 && g.IdleSince() > timeout {
			m.groups.Remove(id)
			reapedGroups++
		}
	}
	if reapedMailboxes > 0 || reapedGroups > 0 {
		m.logger.Debug("idle eviction swept the mailbox fabric",
			slog.Int("mailboxes_reaped", reapedMailboxes),
			slog.Int("groups_reaped", reapedGroups),
		)
	}
}

// Shutdown stops the janitor goroutine.
func (m *Manager) Shutdown() {
	close(m.stopCh)
}
