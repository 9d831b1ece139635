// Package client tracks per-connection state: the auth state machine, the
// pending challenge, the auth-failure lockout, and the process-wide
// id and username indexes.
package client

import (
	"context"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/secirc/secirc/internal/v1/auth"
	"github.com/secirc/secirc/internal/v1/logging"
)

// State is the connection's position in the auth state machine.
type State int

const (
	// StateConnected is the initial state after accept.
	StateConnected State = iota
	// StateAuthPending means a valid HELLO was received and a challenge issued.
	StateAuthPending
	// StateAuthenticated means the challenge was answered correctly.
	StateAuthenticated
)

// Lockout parameters for repeated AUTH failures on one connection.
const (
	MaxAuthFailures = 5
	LockoutWindow   = 5 * time.Minute
)

// sendQueueSize bounds the per-client outbound buffer. A peer that cannot
// drain this many lines has its messages dropped rather than blocking the
// sender's dispatch.
const sendQueueSize = 256

// Client is one live connection.
type Client struct {
	ID         uint64
	RemoteAddr string

	conn io.WriteCloser

	mu           sync.Mutex
	state        State
	username     string
	session      *auth.Session
	connectedAt  time.Time
	lastActivity time.Time

	authFailures    int
	lastAuthFailure time.Time

	send      chan []byte
	closeOnce sync.Once
	closed    bool
	done      chan struct{}
}

func newClient(id uint64, conn io.WriteCloser, remoteAddr string) *Client {
	now := time.Now()
	return &Client{
		ID:           id,
		RemoteAddr:   remoteAddr,
		conn:         conn,
		state:        StateConnected,
		connectedAt:  now,
		lastActivity: now,
		send:         make(chan []byte, sendQueueSize),
		done:         make(chan struct{}),
	}
}

// State returns the current auth state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Username returns the username, empty until HELLO is accepted.
func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

// Touch records inbound activity.
func (c *Client) Touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActivity = time.Now()
}

// BeginAuth moves Connected -> AuthPending, recording the claimed username
// and the issued challenge.
func (c *Client) BeginAuth(session *auth.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateAuthPending
	c.username = session.Username
	c.session = session
}

// AuthSession returns the pending challenge, or nil outside AuthPending.
func (c *Client) AuthSession() *auth.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// ResetAuth drops a failed handshake back to Connected.
func (c *Client) ResetAuth() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateConnected
	c.username = ""
	c.session = nil
}

// RecordAuthFailure counts one failed AUTH for the lockout window.
func (c *Client) RecordAuthFailure(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authFailures++
	c.lastAuthFailure = now
}

// LockedOut reports whether the connection has burned its AUTH attempts.
// Once the window since the last failure elapses the counter resets.
func (c *Client) LockedOut(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.authFailures < MaxAuthFailures {
		return false
	}
	if now.Sub(c.lastAuthFailure) > LockoutWindow {
		c.authFailures = 0
		return false
	}
	return true
}

// Send queues one wire line for the write pump. It is best effort: a closed
// client ignores the write, a full queue drops it.
func (c *Client) Send(data []byte) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	select {
	case c.send <- data:
	case <-c.done:
	default:
		logging.Warn(context.Background(), "Client send queue full, dropping line",
			zap.Uint64("clientId", c.ID))
	}
}

// Close makes the write pump drain and close the underlying connection.
// Safe to call from any goroutine, any number of times.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
	})
}

// WritePump writes queued lines to the connection until Close is called or a
// write fails. A write error closes the connection; the failed peer is
// nobody else's problem.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for {
		select {
		case <-c.done:
			// Drain whatever was queued before shutdown.
			for {
				select {
				case data := <-c.send:
					if _, err := c.conn.Write(data); err != nil {
						return
					}
				default:
					return
				}
			}
		case data := <-c.send:
			if _, err := c.conn.Write(data); err != nil {
				c.Close()
				return
			}
		}
	}
}
