package client

import (
	"errors"
	"io"
	"sort"
	"sync"

	"github.com/secirc/secirc/internal/v1/metrics"
)

// ErrUsernameTaken is returned by CompleteAuth when another authenticated
// connection already owns the username.
var ErrUsernameTaken = errors.New("username already authenticated on another connection")

// Manager owns the process-wide client table and the username index.
// Clients are keyed by the stable integer id issued at accept; there is no
// socket scan anywhere.
type Manager struct {
	mu         sync.Mutex
	nextID     uint64
	clients    map[uint64]*Client
	byUsername map[string]uint64
}

// NewManager returns an empty client table.
func NewManager() *Manager {
	return &Manager{
		clients:    make(map[uint64]*Client),
		byUsername: make(map[string]uint64),
	}
}

// Add registers a freshly accepted connection and returns its Client.
func (m *Manager) Add(conn io.WriteCloser, remoteAddr string) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	c := newClient(m.nextID, conn, remoteAddr)
	m.clients[c.ID] = c
	metrics.IncConnection()
	return c
}

// Remove drops the client and, if present, its username index entry. It
// returns the removed client, or nil if the id is unknown (double removal).
func (m *Manager) Remove(id uint64) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.clients[id]
	if !ok {
		return nil
	}
	delete(m.clients, id)
	if name := c.Username(); name != "" {
		if owner, ok := m.byUsername[name]; ok && owner == id {
			delete(m.byUsername, name)
		}
	}
	metrics.DecConnection()
	return c
}

// Get returns the client with the given id.
func (m *Manager) Get(id uint64) (*Client, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	return c, ok
}

// ByUsername resolves an authenticated username to its client.
func (m *Manager) ByUsername(name string) (*Client, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byUsername[name]
	if !ok {
		return nil, false
	}
	c, ok := m.clients[id]
	return c, ok
}

// IsOnline reports whether an authenticated connection owns the username.
func (m *Manager) IsOnline(name string) bool {
	_, ok := m.ByUsername(name)
	return ok
}

// CompleteAuth promotes the client to Authenticated and publishes the
// username index entry. At most one authenticated client per username exists
// globally; a second one is rejected here regardless of what earlier checks
// said.
func (m *Manager) CompleteAuth(id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.clients[id]
	if !ok {
		return errors.New("unknown client id")
	}

	c.mu.Lock()
	name := c.username
	c.mu.Unlock()

	if owner, taken := m.byUsername[name]; taken && owner != id {
		return ErrUsernameTaken
	}

	c.mu.Lock()
	c.state = StateAuthenticated
	c.session = nil
	c.authFailures = 0
	c.mu.Unlock()

	m.byUsername[name] = id
	return nil
}

// Count returns the number of live connections.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

// AuthenticatedExcept snapshots every authenticated client except the given
// id, for all-client fan-out.
func (m *Manager) AuthenticatedExcept(exceptID uint64) []*Client {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Client
	for id, c := range m.clients {
		if id == exceptID {
			continue
		}
		if c.State() == StateAuthenticated {
			out = append(out, c)
		}
	}
	return out
}

// OnlineUsernames returns the sorted usernames of authenticated clients.
func (m *Manager) OnlineUsernames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.byUsername))
	for name := range m.byUsername {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All snapshots every live client, for shutdown.
func (m *Manager) All() []*Client {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, c)
	}
	return out
}
