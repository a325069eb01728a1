package server

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"bulletforce_proxy/internal/config"
	"bulletforce_proxy/internal/game"
)

// Server is the WebSocket splicing proxy: it accepts game client
// connections on loopback, splices each one to the upstream named in
// its handshake query string, and keeps HaxState in sync with the
// frames it relays.
type Server struct {
	cfg   *config.Config
	state *game.HaxState
	hook  *Hook

	upgrader websocket.Upgrader

	// Rate limiting per remote address
	rateLimiters sync.Map // map[string]*rate.Limiter

	// newConns announces freshly spliced connections to the tracker.
	newConns chan *Proxy

	startTime time.Time
}

// New creates a proxy server around the given shared state.
func New(cfg *config.Config, state *game.HaxState) *Server {
	s := &Server{
		cfg:   cfg,
		state: state,
		hook:  NewHook(state),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.Net.ReadBufferSize,
			WriteBufferSize: cfg.Net.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				// the loader rewrite points the game here on purpose
				return true
			},
		},
		newConns:  make(chan *Proxy, cfg.Net.ConnChannelSize),
		startTime: time.Now(),
	}

	go s.trackConnections()

	return s
}

// Start blocks serving the WebSocket endpoint plus health and metrics.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf("%s:%d", s.cfg.Proxy.Host, s.cfg.Proxy.Port)
	log.WithField("addr", addr).Info("starting websocket proxy")

	return http.ListenAndServe(addr, mux)
}

func (s *Server) acceptLimiter(addr string) *rate.Limiter {
	if limiter, ok := s.rateLimiters.Load(addr); ok {
		return limiter.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(rate.Limit(s.cfg.Net.AcceptRateLimit), s.cfg.Net.AcceptBurstLimit)
	s.rateLimiters.Store(addr, limiter)
	return limiter
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.state.Mu.Lock()
	lobby := s.state.Lobby != nil
	gameplay := s.state.Gameplay != nil
	s.state.Mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","uptime_seconds":%d,"lobby_active":%t,"gameplay_active":%t}`,
		int(time.Since(s.startTime).Seconds()), lobby, gameplay)
}
