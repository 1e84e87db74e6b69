package fakeapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/syncbridge/internal/client/models"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) write(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// hub fans events out to the connections of a room.
type hub struct {
	mu    sync.Mutex
	rooms map[string]map[*wsConn]struct{}
}

func newHub() *hub {
	return &hub{rooms: map[string]map[*wsConn]struct{}{}}
}

func (h *hub) join(room string, c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = map[*wsConn]struct{}{}
	}
	h.rooms[room][c] = struct{}{}
}

func (h *hub) leave(room string, c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms[room], c)
	if len(h.rooms[room]) == 0 {
		delete(h.rooms, room)
	}
}

// Subscribers reports how many live feed connections are in room.
func (s *Server) Subscribers(room string) int {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return len(s.hub.rooms[room])
}

func (h *hub) broadcast(room string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.mu.Lock()
	recipients := make([]*wsConn, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		recipients = append(recipients, c)
	}
	h.mu.Unlock()

	for _, c := range recipients {
		_ = c.write(data)
	}
}

// CloseFeeds closes every live feed connection with code.
func (s *Server) CloseFeeds(code int, reason string) {
	s.hub.mu.Lock()
	var all []*wsConn
	for _, conns := range s.hub.rooms {
		for c := range conns {
			all = append(all, c)
		}
	}
	s.hub.mu.Unlock()

	msg := websocket.FormatCloseMessage(code, reason)
	for _, c := range all {
		c.mu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		c.mu.Unlock()
	}
}

func (s *Server) serveWS(c *gin.Context) {
	key := models.ThreadKey{
		FormID:        queryID(c, "form_id"),
		FunctionID:    queryID(c, "function_id"),
		NonfunctionID: queryID(c, "nonfunction_id"),
	}

	u, authErr := s.verify(c.Query("token"))
	if authErr == nil {
		s.mu.Lock()
		f, found := s.forms[key.FormID]
		allowed := found && key.Validate() == nil && canView(f, u)
		s.mu.Unlock()
		if !allowed {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	if authErr != nil {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid token"),
			time.Now().Add(writeWait))
		return
	}

	conn := &wsConn{conn: ws}
	room := key.Room()
	s.hub.join(room, conn)
	s.hub.broadcast(room, gin.H{"type": "presence", "action": "join", "user_id": u.ID, "display_name": u.DisplayName})
	defer func() {
		s.hub.leave(room, conn)
		s.hub.broadcast(room, gin.H{"type": "presence", "action": "leave", "user_id": u.ID, "display_name": u.DisplayName})
	}()

	ws.SetReadLimit(64 << 10)
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		if string(data) == "ping" {
			_ = conn.write([]byte(`{"type":"pong"}`))
		}
	}
}
