package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"mbostrength-go/internal/signal"
)

// Source is the read/tune surface the server needs from the strategy.
type Source interface {
	Snapshot() (signal.Snapshot, bool)
	MaxTicks() int
	SetMaxTicks(n int) error
}

// Server serves snapshots over HTTP and pushes every published snapshot to websocket clients.
type Server struct {
	src       Source
	hub       *hub
	log       zerolog.Logger
	mux       *http.ServeMux
	closeOnce sync.Once
}

// NewServer wires routes and starts the websocket hub. Call Close to stop the hub.
func NewServer(src Source, log zerolog.Logger) *Server {
	s := &Server{
		src: src,
		hub: newHub(log),
		log: log,
		mux: http.NewServeMux(),
	}
	s.routes()
	go s.hub.run()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.mux }

// Broadcast is meant to be installed as the strategy publish hook.
func (s *Server) Broadcast(snap signal.Snapshot) {
	if !s.hub.publish(marshalWS("snapshot", newSnapshotPayload(snap, true))) {
		s.log.Debug().Msg("telemetry queue full, snapshot dropped")
	}
}

// Close stops the hub and disconnects websocket clients.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.hub.done) })
}

// ListenAndServe blocks until ctx is done, then shuts the listener down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}
	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("/ws", s.hub.serveWS)
	s.mux.HandleFunc("/api/health", s.apiHealth)
	s.mux.HandleFunc("/api/snapshot", s.apiSnapshot)
	s.mux.HandleFunc("/api/render", s.apiRender)
	s.mux.HandleFunc("/api/max_ticks", s.apiMaxTicks)
}

// snapshotPayload replaces NaN scalars with null so the document stays valid JSON.
type snapshotPayload struct {
	Symbol    string           `json:"symbol"`
	Published bool             `json:"published"`
	RefPrice  *float64         `json:"refPrice"`
	MaxTicks  int              `json:"maxTicks"`
	Bids      []signal.Level   `json:"bids"`
	Asks      []signal.Level   `json:"asks"`
	BidStats  signal.SideStats `json:"bidStats"`
	AskStats  signal.SideStats `json:"askStats"`
	Strength  *float64         `json:"strength"`
	Deviation *float64         `json:"deviation"`
	EMA       *float64         `json:"ema"`
	Ts        *time.Time       `json:"ts,omitempty"`
}

func newSnapshotPayload(snap signal.Snapshot, published bool) snapshotPayload {
	p := snapshotPayload{
		Symbol:    snap.Symbol,
		Published: published,
		RefPrice:  finite(snap.RefPrice),
		MaxTicks:  snap.MaxTicks,
		Bids:      snap.Bids,
		Asks:      snap.Asks,
		BidStats:  snap.Bid,
		AskStats:  snap.Ask,
		Strength:  finite(snap.Indicators.Strength),
		Deviation: finite(snap.Indicators.Deviation),
		EMA:       finite(snap.EMA),
	}
	if p.Bids == nil {
		p.Bids = []signal.Level{}
	}
	if p.Asks == nil {
		p.Asks = []signal.Level{}
	}
	if !snap.Ts.IsZero() {
		ts := snap.Ts
		p.Ts = &ts
	}
	return p
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func (s *Server) apiHealth(w http.ResponseWriter, r *http.Request) {
	_, published := s.src.Snapshot()
	writeJSON(w, map[string]any{"ok": true, "published": published})
}

func (s *Server) apiSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, published := s.src.Snapshot()
	writeJSON(w, newSnapshotPayload(snap, published))
}

func (s *Server) apiRender(w http.ResponseWriter, r *http.Request) {
	snap, _ := s.src.Snapshot()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(Render(snap)))
}

func (s *Server) apiMaxTicks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, map[string]any{"maxTicks": s.src.MaxTicks()})
	case http.MethodPost:
		var req struct {
			MaxTicks int `json:"maxTicks"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := s.src.SetMaxTicks(req.MaxTicks); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.log.Info().Int("max_ticks", req.MaxTicks).Msg("max ticks updated")
		writeJSON(w, map[string]any{"ok": true, "maxTicks": s.src.MaxTicks()})
	default:
		http.Error(w, "GET or POST required", http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
