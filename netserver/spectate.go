package netserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"jellybeanworld/world"
)

// spectateWriteWait bounds how long a best-effort spectator write may block
// before the connection is dropped (mirrors the teacher's websocket write
// deadline discipline).
const spectateWriteWait = 2 * time.Second

// spectateMessage is the read-only JSON snapshot pushed to browser-based map
// viewers on every tick: the tick number and each agent's position, facing
// and active flag (no patches or items), as JSON rather than the core's
// fixed-width binary wire format, and additive to it (§3.1).
type spectateMessage struct {
	Tick   uint64          `json:"tick"`
	Agents []spectateAgent `json:"agents"`
}

type spectateAgent struct {
	ID     uint64 `json:"id"`
	X      int64  `json:"x"`
	Y      int64  `json:"y"`
	Facing string `json:"facing"`
	Active bool   `json:"active"`
}

// SpectateHub fans out best-effort JSON snapshots to connected viewers. A
// slow or stalled viewer is dropped rather than allowed to back-pressure
// the simulation (§4.5's broadcaster never suspends inside Resolving, and
// this feed must not either).
type SpectateHub struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newSpectateHub() *SpectateHub {
	return &SpectateHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the request to a websocket and registers it as a
// spectator until the client disconnects.
func (h *SpectateHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	// Spectators are write-only from the server's perspective; drain and
	// discard anything they send until the socket closes.
	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.conns, conn)
			h.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *SpectateHub) publish(tick uint64, states []world.AgentState) {
	h.mu.Lock()
	if len(h.conns) == 0 {
		h.mu.Unlock()
		return
	}
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	agents := make([]spectateAgent, 0, len(states))
	for _, st := range states {
		agents = append(agents, spectateAgent{
			ID:     st.ID,
			X:      st.Position.X,
			Y:      st.Position.Y,
			Facing: st.Facing.String(),
			Active: st.Active,
		})
	}
	data, err := json.Marshal(spectateMessage{Tick: tick, Agents: agents})
	if err != nil {
		return
	}

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(spectateWriteWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.mu.Lock()
			delete(h.conns, conn)
			h.mu.Unlock()
			conn.Close()
		}
	}
}
