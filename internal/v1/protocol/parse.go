package protocol

import "strings"

// ValidUsername reports whether name is 1-32 chars of [A-Za-z0-9_].
func ValidUsername(name string) bool {
	if len(name) == 0 || len(name) > MaxUsernameLen {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_':
		default:
			return false
		}
	}
	return true
}

// ValidRoom reports whether name is a canonical room name: '#' or '&' prefix,
// at most 64 chars, body chars in [a-z0-9_-]. Callers lowercase first.
func ValidRoom(name string) bool {
	if len(name) < 2 || len(name) > MaxRoomLen {
		return false
	}
	if name[0] != '#' && name[0] != '&' {
		return false
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '-':
		default:
			return false
		}
	}
	return true
}

// Parse turns one line (without its CRLF) into a Command. Malformed input
// never returns an error; it collapses to Unknown so the dispatcher answers
// with a single UNKNOWN_COMMAND line.
func Parse(line string) Command {
	verb, rest := splitWord(line)
	if verb == "" {
		return Unknown{}
	}
	upper := strings.ToUpper(verb)

	switch upper {
	case "HELLO":
		name, extra := splitWord(rest)
		if name == "" || extra != "" || !ValidUsername(name) {
			return Unknown{Verb: upper}
		}
		return Hello{Username: name}

	case "AUTH":
		sig, extra := splitWord(rest)
		if sig == "" || extra != "" {
			return Unknown{Verb: upper}
		}
		return Auth{Signature: sig}

	case "REGISTER":
		fields := strings.Fields(rest)
		if len(fields) != 3 || !ValidUsername(fields[0]) {
			return Unknown{Verb: upper}
		}
		return Register{Username: fields[0], PubKey: fields[1], Token: fields[2]}

	case "JOIN":
		name, extra := splitWord(rest)
		if name == "" || extra != "" {
			return Unknown{Verb: upper}
		}
		name = strings.ToLower(name)
		if !ValidRoom(name) {
			return Unknown{Verb: upper}
		}
		return Join{Room: name}

	case "LEAVE":
		name, extra := splitWord(rest)
		if name == "" || extra != "" {
			return Unknown{Verb: upper}
		}
		// Lowercased only; charset is deliberately not re-checked.
		return Leave{Room: strings.ToLower(name)}

	case "MSG":
		room, body, ok := splitTarget(rest)
		if !ok {
			return Unknown{Verb: upper}
		}
		return Msg{Room: strings.ToLower(room), Body: body}

	case "PRIVMSG":
		target, body, ok := splitTarget(rest)
		if !ok {
			return Unknown{Verb: upper}
		}
		return Privmsg{Target: target, Body: body}

	case "WHO":
		name, extra := splitWord(rest)
		if name == "" || extra != "" {
			return Unknown{Verb: upper}
		}
		return Who{Room: strings.ToLower(name)}

	case "LIST":
		return List{}
	case "USERS":
		return Users{}
	case "PING":
		return Ping{}
	case "QUIT":
		return Quit{}
	default:
		return Unknown{Verb: upper}
	}
}

// splitWord splits off the first space-separated token, trimming leading
// spaces from the remainder.
func splitWord(s string) (word, rest string) {
	s = strings.TrimLeft(s, " ")
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i], strings.TrimLeft(s[i:], " ")
	}
	return s, ""
}

// splitTarget splits "<target> <tail>" where the tail is the message body and
// may contain spaces. It enforces the body size limit.
func splitTarget(s string) (target, body string, ok bool) {
	s = strings.TrimLeft(s, " ")
	i := strings.IndexByte(s, ' ')
	if i < 0 {
		return "", "", false
	}
	target = s[:i]
	body = s[i+1:]
	if target == "" || len(body) > MaxBodyBytes {
		return "", "", false
	}
	return target, body, true
}
