// Package session runs the per-connection command loop: read a line, apply
// the rate limit, dispatch through the state machine, write the reply, and
// fan notifications out to peers. One goroutine per connection reads and
// dispatches; a second (the client write pump) drains the outbound queue.
package session

import (
	"bufio"
	"context"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/secirc/secirc/internal/v1/client"
	"github.com/secirc/secirc/internal/v1/logging"
	"github.com/secirc/secirc/internal/v1/metrics"
	"github.com/secirc/secirc/internal/v1/protocol"
	"github.com/secirc/secirc/internal/v1/ratelimit"
	"github.com/secirc/secirc/internal/v1/registry"
	"github.com/secirc/secirc/internal/v1/room"
)

// Server holds the shared state every session dispatches against.
type Server struct {
	users   *registry.Users
	tokens  *registry.Tokens
	rooms   *room.Manager
	clients *client.Manager
	limiter *ratelimit.MessageLimiter
	tracer  trace.Tracer
}

// NewServer wires the session dispatcher to its collaborators.
func NewServer(users *registry.Users, tokens *registry.Tokens, rooms *room.Manager, clients *client.Manager, limiter *ratelimit.MessageLimiter) *Server {
	return &Server{
		users:   users,
		tokens:  tokens,
		rooms:   rooms,
		clients: clients,
		limiter: limiter,
		tracer:  otel.Tracer("github.com/secirc/secirc/internal/v1/session"),
	}
}

// Clients exposes the client table for the front door's connection gate.
func (s *Server) Clients() *client.Manager {
	return s.clients
}

// Handle owns conn until EOF, a socket error, or QUIT. It registers the
// client, starts its write pump, runs the command loop, and performs the
// disconnect sweep on every exit path.
func (s *Server) Handle(ctx context.Context, conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()
	c := s.clients.Add(conn, remoteAddr)
	ctx = logging.WithConnection(ctx, uuid.NewString(), remoteAddr)

	go c.WritePump()
	defer s.disconnect(ctx, c)

	logging.Info(ctx, "Client connected", zap.Uint64("clientId", c.ID))

	reader := bufio.NewReaderSize(conn, protocol.MaxLineBytes+64)
	for {
		line, err := readLine(reader)
		if err != nil {
			return
		}
		if len(line) > protocol.MaxLineBytes {
			c.Send(protocol.Error(protocol.ErrInvalidFormat, "Line too long"))
			continue
		}
		if !s.limiter.Allow(ctx, c.ID) {
			c.Send(protocol.Error(protocol.ErrRateLimited, ""))
			continue
		}
		c.Touch()

		if quit := s.dispatch(ctx, c, protocol.Parse(line)); quit {
			return
		}
	}
}

// readLine returns the next line without its CRLF terminator. Lines longer
// than the reader buffer are still consumed to the newline so the connection
// can answer with INVALID_FORMAT and survive, but accumulation stops just
// past the limit: the tail of an oversized line is read and discarded, so a
// client streaming one endless line holds at most one extra buffer here.
func readLine(r *bufio.Reader) (string, error) {
	var buf []byte
	for {
		chunk, err := r.ReadSlice('\n')
		if len(buf) <= protocol.MaxLineBytes {
			buf = append(buf, chunk...)
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil {
			return "", err
		}
		break
	}
	line := strings.TrimSuffix(string(buf), "\n")
	return strings.TrimSuffix(line, "\r"), nil
}

// dispatch routes one parsed command. It reports whether the session should
// terminate (QUIT).
func (s *Server) dispatch(ctx context.Context, c *client.Client, cmd protocol.Command) bool {
	name := protocol.Name(cmd)
	ctx, span := s.tracer.Start(ctx, "session.dispatch",
		trace.WithAttributes(attribute.String("command", name)))
	defer span.End()

	start := time.Now()
	ok := true
	quit := false

	switch cmd := cmd.(type) {
	case protocol.Hello:
		ok = s.handleHello(ctx, c, cmd)
	case protocol.Auth:
		ok = s.handleAuth(ctx, c, cmd)
	case protocol.Register:
		ok = s.handleRegister(ctx, c, cmd)
	case protocol.Join:
		ok = s.requireAuth(c, func(user string) bool { return s.handleJoin(ctx, c, user, cmd) })
	case protocol.Leave:
		ok = s.requireAuth(c, func(user string) bool { return s.handleLeave(ctx, c, user, cmd) })
	case protocol.Msg:
		ok = s.requireAuth(c, func(user string) bool { return s.handleMsg(c, user, cmd) })
	case protocol.Privmsg:
		ok = s.requireAuth(c, func(user string) bool { return s.handlePrivmsg(c, user, cmd) })
	case protocol.Who:
		ok = s.requireAuth(c, func(string) bool { return s.handleWho(c, cmd) })
	case protocol.List:
		ok = s.requireAuth(c, func(string) bool {
			c.Send(protocol.RoomList(s.rooms.List()))
			return true
		})
	case protocol.Users:
		ok = s.requireAuth(c, func(string) bool {
			c.Send(protocol.UserList(s.clients.OnlineUsernames()))
			return true
		})
	case protocol.Ping:
		ok = s.requireAuth(c, func(string) bool {
			c.Send(protocol.Pong())
			return true
		})
	case protocol.Quit:
		ok = s.requireAuth(c, func(string) bool {
			c.Send(protocol.OK("QUIT"))
			return true
		})
		quit = true
	case protocol.Unknown:
		c.Send(protocol.Error(protocol.ErrUnknownCommand, ""))
		ok = false
	}

	status := "ok"
	if !ok {
		status = "error"
	}
	metrics.CommandsTotal.WithLabelValues(name, status).Inc()
	metrics.CommandDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	return quit
}

// requireAuth gates chat commands on the Authenticated state.
func (s *Server) requireAuth(c *client.Client, handler func(user string) bool) bool {
	if c.State() != client.StateAuthenticated {
		c.Send(protocol.Error(protocol.ErrNotAuthenticated, ""))
		return false
	}
	return handler(c.Username())
}

// disconnect runs the cleanup for one connection exactly once, on every exit
// path: sweep room membership with LEFT notices, announce QUIT to the other
// authenticated clients, drop the indexes, stop the write pump.
func (s *Server) disconnect(ctx context.Context, c *client.Client) {
	wasAuthenticated := c.State() == client.StateAuthenticated
	user := c.Username()

	if s.clients.Remove(c.ID) == nil {
		return
	}

	if wasAuthenticated {
		for _, name := range s.rooms.RemoveFromAll(user) {
			s.broadcastRoom(name, protocol.Left(name, user), user)
		}
		s.broadcastAll(protocol.QuitNotice(user), c.ID)
	}

	c.Close()
	logging.Info(ctx, "Client disconnected",
		zap.Uint64("clientId", c.ID),
		zap.Bool("authenticated", wasAuthenticated))
}
