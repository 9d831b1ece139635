// Package room tracks in-memory room membership. Rooms are keyed by their
// canonical lowercased name, auto-created on first join and auto-deleted when
// the last member leaves. Nothing here is persisted.
package room

import (
	"sort"
	"sync"

	"github.com/secirc/secirc/internal/v1/metrics"
)

// Room is one named multicast group. Creator is the user whose join created
// the room and is retained for its lifetime.
type Room struct {
	Name    string
	Creator string
	members map[string]struct{}
}

// Manager owns the room table. All methods are safe for concurrent use.
type Manager struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewManager returns an empty room table.
func NewManager() *Manager {
	return &Manager{rooms: make(map[string]*Room)}
}

// Join adds user to the named room, creating it with user as creator if it
// does not exist. It returns false iff user is already a member.
func (m *Manager) Join(name, user string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[name]
	if !ok {
		r = &Room{
			Name:    name,
			Creator: user,
			members: make(map[string]struct{}),
		}
		m.rooms[name] = r
		metrics.ActiveRooms.Inc()
	}
	if _, member := r.members[user]; member {
		return false
	}
	r.members[user] = struct{}{}
	return true
}

// Leave removes user from the named room, deleting the room when its member
// set becomes empty. It returns false if the room is absent or user is not a
// member.
func (m *Manager) Leave(name, user string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leaveLocked(name, user)
}

func (m *Manager) leaveLocked(name, user string) bool {
	r, ok := m.rooms[name]
	if !ok {
		return false
	}
	if _, member := r.members[user]; !member {
		return false
	}
	delete(r.members, user)
	if len(r.members) == 0 {
		delete(m.rooms, name)
		metrics.ActiveRooms.Dec()
	}
	return true
}

// IsMember reports whether user is in the named room.
func (m *Manager) IsMember(name, user string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rooms[name]
	if !ok {
		return false
	}
	_, member := r.members[user]
	return member
}

// Creator returns the user whose join created the named room, or "" if the
// room does not exist.
func (m *Manager) Creator(name string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rooms[name]
	if !ok {
		return ""
	}
	return r.Creator
}

// Exists reports whether the named room currently exists.
func (m *Manager) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.rooms[name]
	return ok
}

// Members returns the sorted member list of the named room, or nil if the
// room does not exist.
func (m *Manager) Members(name string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.membersLocked(name, "")
}

// MembersExcept returns the sorted member list without one user.
func (m *Manager) MembersExcept(name, except string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.membersLocked(name, except)
}

func (m *Manager) membersLocked(name, except string) []string {
	r, ok := m.rooms[name]
	if !ok {
		return nil
	}
	members := make([]string, 0, len(r.members))
	for user := range r.members {
		if user != except {
			members = append(members, user)
		}
	}
	sort.Strings(members)
	return members
}

// List returns the sorted names of all rooms.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.rooms))
	for name := range m.rooms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RemoveFromAll removes user from every room, returning the sorted names of
// the rooms the user belonged to. Rooms emptied by the removal are deleted.
func (m *Manager) RemoveFromAll(user string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var left []string
	for name, r := range m.rooms {
		if _, member := r.members[user]; member {
			left = append(left, name)
		}
	}
	sort.Strings(left)
	for _, name := range left {
		m.leaveLocked(name, user)
	}
	return left
}
