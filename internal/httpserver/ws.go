// internal/httpserver/ws.go
//
// Live play over a websocket at /game/{id}/ws.
// Client → server: {"type":"check","payload":{"text":"cat"}}, {"type":"ping"}
// Server → client: "state" on connect, "result" after every check (sent to
// every connection watching the game), "error" and "pong".

package httpserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/vocab-jumble/internal/game"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096
	sendBufferSize = 64
)

type msgType string

const (
	msgCheck  msgType = "check"
	msgPing   msgType = "ping"
	msgState  msgType = "state"
	msgResult msgType = "result"
	msgError  msgType = "error"
	msgPong   msgType = "pong"
)

type clientMsg struct {
	Type    msgType         `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type serverMsg struct {
	Type      msgType `json:"type"`
	Payload   any     `json:"payload,omitempty"`
	Timestamp string  `json:"timestamp"`
}

type checkPayload struct {
	Text string `json:"text"`
}

func newServerMsg(t msgType, payload any) serverMsg {
	return serverMsg{Type: t, Payload: payload, Timestamp: time.Now().UTC().Format(time.RFC3339)}
}

// watchers tracks the open connections per game.
type watchers struct {
	mu    sync.Mutex
	byGID map[string]map[*wsClient]struct{}
}

func (h *watchers) add(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.byGID == nil {
		h.byGID = make(map[string]map[*wsClient]struct{})
	}
	set, ok := h.byGID[c.game.ID]
	if !ok {
		set = make(map[*wsClient]struct{})
		h.byGID[c.game.ID] = set
	}
	set[c] = struct{}{}
}

func (h *watchers) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.byGID[c.game.ID]
	delete(set, c)
	if len(set) == 0 {
		delete(h.byGID, c.game.ID)
	}
}

func (h *watchers) broadcast(gameID string, msg serverMsg) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.byGID[gameID] {
		c.send(msg)
	}
}

// wsClient is one websocket connection bound to a game.
type wsClient struct {
	srv    *Server
	conn   *websocket.Conn
	game   *game.Game
	req    *http.Request
	out    chan []byte
	done   chan struct{}
	logger *zerolog.Logger

	mu     sync.Mutex // guards closed
	closed bool
}

// handleWS upgrades the connection and runs the pumps until the peer leaves.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	logger := hlog.FromRequest(r)
	g, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		status, code := errStatus(err)
		writeError(w, status, code)
		return
	}
	// Daily games are played through /daily/check so the result is recorded.
	if g.Daily != "" {
		writeError(w, http.StatusConflict, "use_daily")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &wsClient{
		srv:    s,
		conn:   conn,
		game:   g,
		req:    r,
		out:    make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	s.watchers.add(c)
	logger.Debug().Str("gameId", g.ID).Msg("websocket connected")

	c.send(newServerMsg(msgState, g.Snapshot()))
	go c.writePump()
	c.readPump()
}

// send queues msg, dropping it if the peer is not keeping up.
func (c *wsClient) send(msg serverMsg) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.out <- data:
	default:
		c.logger.Warn().Str("gameId", c.game.ID).Msg("send buffer full, message dropped")
	}
}

func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	_ = c.conn.Close()
}

func (c *wsClient) readPump() {
	defer func() {
		c.srv.watchers.remove(c)
		c.close()
		c.logger.Debug().Str("gameId", c.game.ID).Msg("websocket closed")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug().Err(err).Msg("websocket read error")
			}
			return
		}
		c.handle(data)
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) handle(data []byte) {
	var msg clientMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.send(newServerMsg(msgError, map[string]string{"error": "invalid_message"}))
		return
	}

	switch msg.Type {
	case msgCheck:
		var p checkPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.send(newServerMsg(msgError, map[string]string{"error": "invalid_payload"}))
			return
		}
		res := c.srv.check(c.req, c.game, p.Text)
		snap := c.game.Snapshot()
		c.srv.watchers.broadcast(c.game.ID, newServerMsg(msgResult, checkRes{
			Result:  res,
			Matches: snap.Matches,
			Target:  snap.Target,
		}))
	case msgPing:
		c.send(newServerMsg(msgPong, nil))
	default:
		c.send(newServerMsg(msgError, map[string]string{"error": "unknown_type"}))
	}
}
