package socket

import (
	"fmt"
	"log"

	socketio "github.com/googollee/go-socket.io"
)

// Room naming: every connected client joins a room keyed by its user id, and
// outbound delivery broadcasts into that room.
func userRoom(userID string) string {
	return "user:" + userID
}

// NewSocketServer initializes and returns a new Socket.IO server
func NewSocketServer() *socketio.Server {
	server := socketio.NewServer(nil)

	server.OnConnect("/", func(c socketio.Conn) error {
		log.Println("✅ Socket connected:", c.ID())
		return nil
	})

	// Clients announce their user id to receive relayed messages and notices.
	server.OnEvent("/", "join", func(c socketio.Conn, userID string) {
		if userID == "" {
			log.Println("❌ Invalid userId in join request")
			return
		}
		log.Printf("👥 Socket %s joined as user %s\n", c.ID(), userID)
		c.Join(userRoom(userID))
	})

	server.OnError("/", func(c socketio.Conn, err error) {
		log.Println("❌ Socket error:", err)
	})

	server.OnDisconnect("/", func(c socketio.Conn, reason string) {
		log.Println("❌ Socket disconnected:", reason)
	})

	return server
}

// Sender delivers texts to users over their per-user socket.io room. It is
// the outbound half of the relay; delivery is best-effort and a user with no
// connected client is reported as a failed send.
type Sender struct {
	Server *socketio.Server
}

func NewSender(server *socketio.Server) *Sender {
	return &Sender{Server: server}
}

func (s *Sender) SendToUser(userID, text string) error {
	room := userRoom(userID)
	if s.Server.RoomLen("/", room) == 0 {
		return fmt.Errorf("user %s has no connected client", userID)
	}
	s.Server.BroadcastToRoom("/", room, "message", text)
	return nil
}
