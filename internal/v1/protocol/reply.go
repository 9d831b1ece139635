package protocol

import "strings"

// ErrorCode is the machine-readable code carried on an ERROR line.
type ErrorCode string

const (
	ErrUnknownCommand   ErrorCode = "UNKNOWN_COMMAND"
	ErrNotAuthenticated ErrorCode = "NOT_AUTHENTICATED"
	ErrAuthFailed       ErrorCode = "AUTH_FAILED"
	ErrUserNotFound     ErrorCode = "USER_NOT_FOUND"
	ErrUserExists       ErrorCode = "USER_EXISTS"
	ErrInvalidToken     ErrorCode = "INVALID_TOKEN"
	ErrRoomNotFound     ErrorCode = "ROOM_NOT_FOUND"
	ErrAlreadyInRoom    ErrorCode = "ALREADY_IN_ROOM"
	ErrNotInRoom        ErrorCode = "NOT_IN_ROOM"
	ErrInvalidFormat    ErrorCode = "INVALID_FORMAT"
	ErrRateLimited      ErrorCode = "RATE_LIMITED"
)

const crlf = "\r\n"

func line(parts ...string) []byte {
	return []byte(strings.Join(parts, " ") + crlf)
}

// OK formats "OK [info]". Info may be empty.
func OK(info string) []byte {
	if info == "" {
		return line("OK")
	}
	return line("OK", info)
}

// Error formats "ERROR <CODE> [message]".
func Error(code ErrorCode, message string) []byte {
	if message == "" {
		return line("ERROR", string(code))
	}
	return line("ERROR", string(code), message)
}

// Challenge formats the auth challenge notification.
func Challenge(nonceB64 string) []byte {
	return line("CHALLENGE", nonceB64)
}

// Welcome formats the successful-auth reply.
func Welcome(user string) []byte {
	return line("WELCOME", user)
}

// RoomMsg formats a room message as seen by recipients.
func RoomMsg(room, sender, body string) []byte {
	return line("ROOM", room, sender, body)
}

// Priv formats a private message as seen by the target.
func Priv(sender, body string) []byte {
	return line("PRIV", sender, body)
}

// Joined announces a user entering a room.
func Joined(room, user string) []byte {
	return line("JOINED", room, user)
}

// Left announces a user leaving a room.
func Left(room, user string) []byte {
	return line("LEFT", room, user)
}

// Online announces a user completing authentication.
func Online(user string) []byte {
	return line("ONLINE", user)
}

// QuitNotice announces a user disconnecting.
func QuitNotice(user string) []byte {
	return line("QUIT", user)
}

// Pong answers a Ping.
func Pong() []byte {
	return line("PONG")
}

// RoomList formats the room listing. An empty list omits the body entirely.
func RoomList(rooms []string) []byte {
	if len(rooms) == 0 {
		return line("ROOMLIST")
	}
	return line(append([]string{"ROOMLIST"}, rooms...)...)
}

// UserList formats the online-user listing.
func UserList(users []string) []byte {
	if len(users) == 0 {
		return line("USERLIST")
	}
	return line(append([]string{"USERLIST"}, users...)...)
}

// WhoList formats the member listing of one room.
func WhoList(room string, members []string) []byte {
	if len(members) == 0 {
		return line("WHOLIST", room)
	}
	return line(append([]string{"WHOLIST", room}, members...)...)
}
