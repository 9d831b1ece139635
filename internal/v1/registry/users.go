// Package registry persists the two small on-disk registries: the user table
// (username -> public key) and the invite-token table (token -> issue time).
// Both are whole-file pretty-printed JSON objects, flushed with a
// write-then-rename so a crash mid-write cannot corrupt the file.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Users is the persistent username -> public-key registry. The key text is
// opaque here; any non-empty base64 string is stored as-is.
type Users struct {
	mu   sync.Mutex
	path string
	keys map[string]string
}

// LoadUsers reads the registry at path, creating an empty one if the file is
// missing.
func LoadUsers(path string) (*Users, error) {
	u := &Users{path: path, keys: make(map[string]string)}
	if err := u.Reload(); err != nil {
		return nil, err
	}
	return u, nil
}

// Reload re-reads the backing file, replacing the in-memory table. A missing
// file is created containing "{}".
func (u *Users) Reload() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	data, err := os.ReadFile(u.path)
	if os.IsNotExist(err) {
		u.keys = make(map[string]string)
		return u.flushLocked()
	}
	if err != nil {
		return fmt.Errorf("reading user registry: %w", err)
	}

	keys := make(map[string]string)
	if err := json.Unmarshal(data, &keys); err != nil {
		return fmt.Errorf("parsing user registry %s: %w", u.path, err)
	}
	u.keys = keys
	return nil
}

// Register inserts a new user iff the username is absent and flushes.
// It returns false without touching the file when the name is taken.
func (u *Users) Register(name, pubKey string) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if _, exists := u.keys[name]; exists {
		return false, nil
	}
	u.keys[name] = pubKey
	if err := u.flushLocked(); err != nil {
		delete(u.keys, name)
		return false, err
	}
	return true, nil
}

// PubKey returns the stored key text for name, or "" if unregistered.
func (u *Users) PubKey(name string) string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.keys[name]
}

// Exists reports whether name is registered.
func (u *Users) Exists(name string) bool {
	return u.PubKey(name) != ""
}

// Names returns all registered usernames, sorted.
func (u *Users) Names() []string {
	u.mu.Lock()
	defer u.mu.Unlock()

	names := make([]string, 0, len(u.keys))
	for name := range u.keys {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (u *Users) flushLocked() error {
	return writeJSON(u.path, u.keys)
}

// writeJSON flushes v pretty-printed to path via a temp file and rename.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("creating registry temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing registry temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("renaming registry into place: %w", err)
	}
	return nil
}
