package session

// Fan-out primitives. None of these are transactional: each recipient gets a
// best-effort queued write, and a slow or dead recipient never blocks the
// sender's command.

// broadcastRoom queues data for every current member of the named room
// except exceptUser, resolving members to their live connections.
func (s *Server) broadcastRoom(roomName string, data []byte, exceptUser string) {
	for _, member := range s.rooms.MembersExcept(roomName, exceptUser) {
		if target, online := s.clients.ByUsername(member); online {
			target.Send(data)
		}
	}
}

// broadcastAll queues data for every authenticated client except one
// connection.
func (s *Server) broadcastAll(data []byte, exceptID uint64) {
	for _, target := range s.clients.AuthenticatedExcept(exceptID) {
		target.Send(data)
	}
}
