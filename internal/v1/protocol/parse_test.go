package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse_Hello(t *testing.T) {
	cmd := Parse("HELLO alice")
	assert.Equal(t, Hello{Username: "alice"}, cmd)

	// Verb is case-insensitive.
	assert.Equal(t, Hello{Username: "Alice_99"}, Parse("hello Alice_99"))
}

func TestParse_HelloRejectsBadUsernames(t *testing.T) {
	cases := []string{
		"HELLO",
		"HELLO ",
		"HELLO alice bob",
		"HELLO al ice",
		"HELLO " + strings.Repeat("a", 33),
		"HELLO alice!",
		"HELLO al-ice",
	}
	for _, line := range cases {
		assert.IsType(t, Unknown{}, Parse(line), "line %q", line)
	}
}

func TestParse_UsernameLengthBoundary(t *testing.T) {
	assert.Equal(t, Hello{Username: strings.Repeat("a", 32)}, Parse("HELLO "+strings.Repeat("a", 32)))
	assert.IsType(t, Unknown{}, Parse("HELLO "+strings.Repeat("a", 33)))
}

func TestParse_Auth(t *testing.T) {
	assert.Equal(t, Auth{Signature: "c2lnbmF0dXJl"}, Parse("AUTH c2lnbmF0dXJl"))
	assert.IsType(t, Unknown{}, Parse("AUTH"))
	assert.IsType(t, Unknown{}, Parse("AUTH sig extra"))
}

func TestParse_Register(t *testing.T) {
	cmd := Parse("REGISTER alice UFVCS0VZ TOK1")
	assert.Equal(t, Register{Username: "alice", PubKey: "UFVCS0VZ", Token: "TOK1"}, cmd)

	assert.IsType(t, Unknown{}, Parse("REGISTER alice UFVCS0VZ"))
	assert.IsType(t, Unknown{}, Parse("REGISTER alice UFVCS0VZ TOK1 extra"))
	assert.IsType(t, Unknown{}, Parse("REGISTER al!ce UFVCS0VZ TOK1"))
}

func TestParse_JoinNormalizesCase(t *testing.T) {
	assert.Equal(t, Join{Room: "#lobby"}, Parse("JOIN #Lobby"))
	assert.Equal(t, Join{Room: "&ops-room_2"}, Parse("join &OPS-Room_2"))
}

func TestParse_JoinRejectsInvalidRooms(t *testing.T) {
	cases := []string{
		"JOIN lobby",              // missing prefix
		"JOIN #",                  // empty body
		"JOIN #lob by",            // extra token
		"JOIN #lob!by",            // bad charset
		"JOIN #" + strings.Repeat("a", 64), // 65 chars total
		"JOIN",
	}
	for _, line := range cases {
		assert.IsType(t, Unknown{}, Parse(line), "line %q", line)
	}
	// 64 chars total is the maximum.
	long := "#" + strings.Repeat("a", 63)
	assert.Equal(t, Join{Room: long}, Parse("JOIN "+long))
}

func TestParse_LeaveLowercasesWithoutRevalidating(t *testing.T) {
	// LEAVE does not re-check prefix or charset; a leave on a malformed
	// name simply misses any room.
	assert.Equal(t, Leave{Room: "#lobby"}, Parse("LEAVE #LOBBY"))
	assert.Equal(t, Leave{Room: "not!a!room"}, Parse("LEAVE NOT!A!ROOM"))
	assert.IsType(t, Unknown{}, Parse("LEAVE"))
}

func TestParse_MsgKeepsBodySpaces(t *testing.T) {
	cmd := Parse("MSG #Lobby hello world  spaced")
	assert.Equal(t, Msg{Room: "#lobby", Body: "hello world  spaced"}, cmd)
}

func TestParse_MsgBodyBoundary(t *testing.T) {
	okBody := strings.Repeat("x", MaxBodyBytes)
	assert.Equal(t, Msg{Room: "#r", Body: okBody}, Parse("MSG #r "+okBody))

	tooLong := strings.Repeat("x", MaxBodyBytes+1)
	assert.IsType(t, Unknown{}, Parse("MSG #r "+tooLong))
}

func TestParse_MsgNeedsBody(t *testing.T) {
	assert.IsType(t, Unknown{}, Parse("MSG #lobby"))
	assert.IsType(t, Unknown{}, Parse("MSG"))
}

func TestParse_Privmsg(t *testing.T) {
	assert.Equal(t, Privmsg{Target: "bob", Body: "hi there"}, Parse("PRIVMSG bob hi there"))
	// Targets are usernames, not rooms: case preserved.
	assert.Equal(t, Privmsg{Target: "Bob", Body: "hi"}, Parse("PRIVMSG Bob hi"))
	assert.IsType(t, Unknown{}, Parse("PRIVMSG bob"))
}

func TestParse_Who(t *testing.T) {
	assert.Equal(t, Who{Room: "#lobby"}, Parse("WHO #LOBBY"))
	assert.IsType(t, Unknown{}, Parse("WHO"))
}

func TestParse_BareCommands(t *testing.T) {
	assert.Equal(t, List{}, Parse("LIST"))
	assert.Equal(t, Users{}, Parse("users"))
	assert.Equal(t, Ping{}, Parse("PING"))
	assert.Equal(t, Quit{}, Parse("QUIT"))
}

func TestParse_UnknownVerb(t *testing.T) {
	cmd := Parse("FROB #lobby")
	unknown, ok := cmd.(Unknown)
	assert.True(t, ok)
	assert.Equal(t, "FROB", unknown.Verb)

	assert.IsType(t, Unknown{}, Parse(""))
	assert.IsType(t, Unknown{}, Parse("   "))
}

func TestName(t *testing.T) {
	assert.Equal(t, "MSG", Name(Msg{}))
	assert.Equal(t, "UNKNOWN", Name(Unknown{}))
	assert.Equal(t, "HELLO", Name(Hello{}))
}
