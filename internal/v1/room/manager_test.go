package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoin_AutoCreates(t *testing.T) {
	m := NewManager()

	assert.True(t, m.Join("#lobby", "alice"))
	assert.True(t, m.Exists("#lobby"))
	assert.True(t, m.IsMember("#lobby", "alice"))
	assert.Equal(t, []string{"alice"}, m.Members("#lobby"))
}

func TestJoin_SecondJoinRejected(t *testing.T) {
	m := NewManager()
	m.Join("#lobby", "alice")

	assert.False(t, m.Join("#lobby", "alice"))
	// Membership unchanged.
	assert.Equal(t, []string{"alice"}, m.Members("#lobby"))
}

func TestLeave_LastMemberDeletesRoom(t *testing.T) {
	m := NewManager()
	m.Join("#lobby", "alice")
	m.Join("#lobby", "bob")

	assert.True(t, m.Leave("#lobby", "alice"))
	assert.True(t, m.Exists("#lobby"))

	assert.True(t, m.Leave("#lobby", "bob"))
	assert.False(t, m.Exists("#lobby"), "empty room must not exist")
}

func TestLeave_NotAMember(t *testing.T) {
	m := NewManager()
	m.Join("#lobby", "alice")

	assert.False(t, m.Leave("#lobby", "bob"))
	assert.False(t, m.Leave("#chat", "alice"))
}

func TestMembers_Sorted(t *testing.T) {
	m := NewManager()
	m.Join("#lobby", "carol")
	m.Join("#lobby", "alice")
	m.Join("#lobby", "bob")

	assert.Equal(t, []string{"alice", "bob", "carol"}, m.Members("#lobby"))
	assert.Equal(t, []string{"alice", "carol"}, m.MembersExcept("#lobby", "bob"))
	assert.Nil(t, m.Members("#missing"))
}

func TestList_Sorted(t *testing.T) {
	m := NewManager()
	m.Join("#zoo", "alice")
	m.Join("#bar", "alice")
	m.Join("&ops", "alice")

	assert.Equal(t, []string{"#bar", "#zoo", "&ops"}, m.List())
}

func TestRemoveFromAll(t *testing.T) {
	m := NewManager()
	m.Join("#lobby", "alice")
	m.Join("#lobby", "bob")
	m.Join("#chat", "alice")
	m.Join("#other", "bob")

	left := m.RemoveFromAll("alice")
	assert.Equal(t, []string{"#chat", "#lobby"}, left)

	// #chat had only alice and is gone; #lobby keeps bob.
	assert.False(t, m.Exists("#chat"))
	assert.Equal(t, []string{"bob"}, m.Members("#lobby"))
	assert.True(t, m.Exists("#other"))
}

func TestRemoveFromAll_NoMemberships(t *testing.T) {
	m := NewManager()
	m.Join("#lobby", "bob")

	assert.Empty(t, m.RemoveFromAll("alice"))
	assert.Equal(t, []string{"bob"}, m.Members("#lobby"))
}

func TestCreator(t *testing.T) {
	m := NewManager()
	m.Join("#lobby", "alice")
	m.Join("#lobby", "bob")

	assert.Equal(t, "alice", m.Creator("#lobby"), "creator is the first joiner")
	assert.Equal(t, "", m.Creator("#missing"))

	// Recreating an emptied room records the new creator.
	m.Leave("#lobby", "alice")
	m.Leave("#lobby", "bob")
	m.Join("#lobby", "bob")
	assert.Equal(t, "bob", m.Creator("#lobby"))
}
