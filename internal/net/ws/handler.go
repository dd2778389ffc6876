package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"slipstream/internal/room"
)

// Config tunes the HTTP surface.
type Config struct {
	// ClientDir, when set, is served at / for the browser client.
	ClientDir string
	// TickRate is echoed in diagnostics.
	TickRate int
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Same stance as the rest of the corpus demos: open origins, tighten
		// behind a proxy in production.
		return true
	},
}

// NewMux wires the websocket endpoint, health, and diagnostics onto a fresh
// mux.
func NewMux(mgr *room.Manager, log *zap.SugaredLogger, cfg Config) *http.ServeMux {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warnw("websocket upgrade failed", "err", err)
			return
		}
		s := newSession(mgr, log, conn)
		go s.writePump()
		s.readLoop()
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w http.ResponseWriter, r *http.Request) {
		type roomDiag struct {
			ID      string         `json:"id"`
			Name    string         `json:"name"`
			Members int            `json:"members"`
			Seq     uint64         `json:"seq"`
			Metrics map[string]any `json:"metrics"`
		}
		infos := mgr.Rooms()
		rooms := make([]roomDiag, 0, len(infos))
		for _, info := range infos {
			if live, ok := mgr.Get(info.ID); ok {
				rooms = append(rooms, roomDiag{
					ID:      info.ID,
					Name:    info.Name,
					Members: info.Members,
					Seq:     live.Seq(),
					Metrics: live.MetricsSnapshot(),
				})
			}
		}
		payload := struct {
			Status     string     `json:"status"`
			ServerTime int64      `json:"serverTime"`
			TickRate   int        `json:"tickRate"`
			Rooms      []roomDiag `json:"rooms"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			TickRate:   cfg.TickRate,
			Rooms:      rooms,
		}
		data, err := json.Marshal(payload)
		if err != nil {
			http.Error(w, "failed to encode", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	if cfg.ClientDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(cfg.ClientDir)))
	}
	return mux
}
