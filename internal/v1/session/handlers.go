package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/secirc/secirc/internal/v1/auth"
	"github.com/secirc/secirc/internal/v1/client"
	"github.com/secirc/secirc/internal/v1/logging"
	"github.com/secirc/secirc/internal/v1/metrics"
	"github.com/secirc/secirc/internal/v1/protocol"
)

// handleHello starts the handshake: the username must be registered and not
// already online, and the connection must not have a handshake in flight.
func (s *Server) handleHello(ctx context.Context, c *client.Client, cmd protocol.Hello) bool {
	if c.State() != client.StateConnected {
		c.Send(protocol.Error(protocol.ErrInvalidFormat, "Already in auth process"))
		return false
	}
	if !s.users.Exists(cmd.Username) {
		c.Send(protocol.Error(protocol.ErrUserNotFound, cmd.Username))
		return false
	}
	// Early check only; CompleteAuth re-verifies under the table lock.
	if s.clients.IsOnline(cmd.Username) {
		c.Send(protocol.Error(protocol.ErrInvalidFormat, "User already online"))
		return false
	}

	nonce, err := auth.NewChallenge()
	if err != nil {
		logging.Error(ctx, "Challenge generation failed", zap.Error(err))
		c.Send(protocol.Error(protocol.ErrAuthFailed, ""))
		return false
	}

	c.BeginAuth(&auth.Session{
		Username:  cmd.Username,
		Challenge: nonce,
		IssuedAt:  time.Now(),
	})
	c.Send(protocol.Challenge(nonce))
	return true
}

// handleAuth finishes the handshake. Expired challenge, unknown key, and bad
// response all collapse to the same AUTH_FAILED so the wire leaks nothing
// about which check tripped.
func (s *Server) handleAuth(ctx context.Context, c *client.Client, cmd protocol.Auth) bool {
	if c.State() != client.StateAuthPending {
		c.Send(protocol.Error(protocol.ErrInvalidFormat, "No auth in progress"))
		return false
	}

	now := time.Now()
	if c.LockedOut(now) {
		c.Send(protocol.Error(protocol.ErrRateLimited, ""))
		return false
	}

	sess := c.AuthSession()
	if sess == nil || sess.Expired(now) {
		s.failAuth(ctx, c, "expired challenge", sess)
		return false
	}

	pubKey := s.users.PubKey(sess.Username)
	if pubKey == "" {
		s.failAuth(ctx, c, "unknown public key", sess)
		return false
	}

	if !auth.Verify(pubKey, sess.Challenge, cmd.Signature) {
		s.failAuth(ctx, c, "bad challenge response", sess)
		return false
	}

	if err := s.clients.CompleteAuth(c.ID); err != nil {
		if errors.Is(err, client.ErrUsernameTaken) {
			c.ResetAuth()
			c.Send(protocol.Error(protocol.ErrInvalidFormat, "User already online"))
			return false
		}
		logging.Error(ctx, "Completing auth failed", zap.Error(err))
		c.ResetAuth()
		c.Send(protocol.Error(protocol.ErrAuthFailed, ""))
		return false
	}

	user := sess.Username
	logging.Info(logging.WithUsername(ctx, user), "Client authenticated",
		zap.Uint64("clientId", c.ID))

	s.broadcastAll(protocol.Online(user), c.ID)
	c.Send(protocol.Welcome(user))
	return true
}

// failAuth applies the uniform failure path: drop back to Connected, count
// the failure toward the lockout, log with the claimed identity, reply
// AUTH_FAILED.
func (s *Server) failAuth(ctx context.Context, c *client.Client, reason string, sess *auth.Session) {
	claimed := ""
	if sess != nil {
		claimed = sess.Username
	}
	logging.Warn(ctx, "Authentication failed",
		zap.Uint64("clientId", c.ID),
		zap.String("claimedUsername", claimed),
		zap.String("reason", reason))

	c.ResetAuth()
	c.RecordAuthFailure(time.Now())
	metrics.AuthFailuresTotal.Inc()
	c.Send(protocol.Error(protocol.ErrAuthFailed, ""))
}

// handleRegister is valid in any state: registration does not require (or
// advance) a handshake.
func (s *Server) handleRegister(ctx context.Context, c *client.Client, cmd protocol.Register) bool {
	if s.users.Exists(cmd.Username) {
		c.Send(protocol.Error(protocol.ErrUserExists, cmd.Username))
		return false
	}

	valid, err := s.tokens.Validate(cmd.Token)
	if err != nil {
		logging.Error(ctx, "Token validation failed", zap.Error(err))
		c.Send(protocol.Error(protocol.ErrInvalidToken, ""))
		return false
	}
	if !valid {
		c.Send(protocol.Error(protocol.ErrInvalidToken, ""))
		return false
	}

	inserted, err := s.users.Register(cmd.Username, cmd.PubKey)
	if err != nil {
		logging.Error(ctx, "User registration flush failed", zap.Error(err))
		c.Send(protocol.Error(protocol.ErrInvalidFormat, "Registration failed"))
		return false
	}
	if !inserted {
		c.Send(protocol.Error(protocol.ErrUserExists, cmd.Username))
		return false
	}

	logging.Info(ctx, "User registered", zap.String("newUsername", cmd.Username))
	c.Send(protocol.OK("REGISTER " + cmd.Username))
	return true
}

func (s *Server) handleJoin(ctx context.Context, c *client.Client, user string, cmd protocol.Join) bool {
	if !s.rooms.Join(cmd.Room, user) {
		c.Send(protocol.Error(protocol.ErrAlreadyInRoom, cmd.Room))
		return false
	}
	logging.Info(logging.WithUsername(ctx, user), "Joined room",
		zap.String("room", cmd.Room),
		zap.String("creator", s.rooms.Creator(cmd.Room)))

	s.broadcastRoom(cmd.Room, protocol.Joined(cmd.Room, user), user)
	c.Send(protocol.OK("JOIN " + cmd.Room))
	return true
}

func (s *Server) handleLeave(ctx context.Context, c *client.Client, user string, cmd protocol.Leave) bool {
	if !s.rooms.Exists(cmd.Room) {
		c.Send(protocol.Error(protocol.ErrRoomNotFound, cmd.Room))
		return false
	}
	if !s.rooms.IsMember(cmd.Room, user) {
		c.Send(protocol.Error(protocol.ErrNotInRoom, cmd.Room))
		return false
	}

	// Notify the others before membership changes so nobody tells the
	// departing user about their own exit.
	s.broadcastRoom(cmd.Room, protocol.Left(cmd.Room, user), user)
	s.rooms.Leave(cmd.Room, user)

	logging.Info(logging.WithUsername(ctx, user), "Left room", zap.String("room", cmd.Room))
	c.Send(protocol.OK("LEAVE " + cmd.Room))
	return true
}

func (s *Server) handleMsg(c *client.Client, user string, cmd protocol.Msg) bool {
	if !s.rooms.Exists(cmd.Room) {
		c.Send(protocol.Error(protocol.ErrRoomNotFound, cmd.Room))
		return false
	}
	if !s.rooms.IsMember(cmd.Room, user) {
		c.Send(protocol.Error(protocol.ErrNotInRoom, cmd.Room))
		return false
	}

	s.broadcastRoom(cmd.Room, protocol.RoomMsg(cmd.Room, user, cmd.Body), user)
	c.Send(protocol.OK("MSG"))
	return true
}

func (s *Server) handlePrivmsg(c *client.Client, user string, cmd protocol.Privmsg) bool {
	target, online := s.clients.ByUsername(cmd.Target)
	if !online {
		c.Send(protocol.Error(protocol.ErrUserNotFound, cmd.Target))
		return false
	}

	target.Send(protocol.Priv(user, cmd.Body))
	c.Send(protocol.OK("PRIVMSG"))
	return true
}

func (s *Server) handleWho(c *client.Client, cmd protocol.Who) bool {
	if !s.rooms.Exists(cmd.Room) {
		c.Send(protocol.Error(protocol.ErrRoomNotFound, cmd.Room))
		return false
	}
	c.Send(protocol.WhoList(cmd.Room, s.rooms.Members(cmd.Room)))
	return true
}
