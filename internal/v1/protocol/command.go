// Package protocol implements the line codec: parsing inbound command lines
// into a typed Command and formatting the fixed reply and notification shapes.
package protocol

// Wire limits. A line is measured without its CRLF terminator.
const (
	MaxLineBytes = 4096
	MaxBodyBytes = 2048

	MaxUsernameLen = 32
	MaxRoomLen     = 64
)

// Command is the tagged union of every inbound verb. Dispatch is an
// exhaustive type switch over the concrete types below.
type Command interface {
	isCommand()
}

// Hello starts the challenge/response handshake for a registered username.
type Hello struct {
	Username string
}

// Auth carries the base64 response to the pending challenge.
type Auth struct {
	Signature string
}

// Register creates a new user, gated by a single-use invite token.
type Register struct {
	Username string
	PubKey   string
	Token    string
}

// Join adds the sender to a room, creating it if needed.
type Join struct {
	Room string
}

// Leave removes the sender from a room. The room name is lowercased but its
// charset is not re-validated; a leave on a malformed name misses any room.
type Leave struct {
	Room string
}

// Msg posts a message body to a room the sender is a member of.
type Msg struct {
	Room string
	Body string
}

// Privmsg sends a directed message to one online user.
type Privmsg struct {
	Target string
	Body   string
}

// Who lists the members of a room.
type Who struct {
	Room string
}

// List requests the sorted room list.
type List struct{}

// Users requests the sorted list of online users.
type Users struct{}

// Ping requests a Pong.
type Ping struct{}

// Quit terminates the connection after the reply is written.
type Quit struct{}

// Unknown is the parse failure case: an unrecognized verb or a recognized
// verb with invalid arguments.
type Unknown struct {
	Verb string
}

func (Hello) isCommand()    {}
func (Auth) isCommand()     {}
func (Register) isCommand() {}
func (Join) isCommand()     {}
func (Leave) isCommand()    {}
func (Msg) isCommand()      {}
func (Privmsg) isCommand()  {}
func (Who) isCommand()      {}
func (List) isCommand()     {}
func (Users) isCommand()    {}
func (Ping) isCommand()     {}
func (Quit) isCommand()     {}
func (Unknown) isCommand()  {}

// Name returns the canonical verb of a command, used for metrics and
// trace span labels.
func Name(cmd Command) string {
	switch cmd.(type) {
	case Hello:
		return "HELLO"
	case Auth:
		return "AUTH"
	case Register:
		return "REGISTER"
	case Join:
		return "JOIN"
	case Leave:
		return "LEAVE"
	case Msg:
		return "MSG"
	case Privmsg:
		return "PRIVMSG"
	case Who:
		return "WHO"
	case List:
		return "LIST"
	case Users:
		return "USERS"
	case Ping:
		return "PING"
	case Quit:
		return "QUIT"
	default:
		return "UNKNOWN"
	}
}
