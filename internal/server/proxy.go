package server

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Direction of a relayed frame.
type Direction int

const (
	ClientToServer Direction = iota
	ServerToClient
)

func (d Direction) String() string {
	if d == ClientToServer {
		return "c->s"
	}
	return "s->c"
}

// Role classifies which Photon endpoint a spliced connection targets,
// derived from the target URI's port.
type Role int

const (
	RoleUnknown Role = iota
	RoleLobbyServer
	RoleGameServer
)

const (
	lobbyServerPort = 2053
	gameServerPort  = 2083
)

// RoleFromPort maps a target port to the server role. Unknown ports
// still proxy but never touch tracked state.
func RoleFromPort(port uint16) Role {
	switch port {
	case lobbyServerPort:
		return RoleLobbyServer
	case gameServerPort:
		return RoleGameServer
	}
	return RoleUnknown
}

func (r Role) String() string {
	switch r {
	case RoleLobbyServer:
		return "lobby"
	case RoleGameServer:
		return "game"
	}
	return "unknown"
}

// forwardedHeaders are copied from the inbound handshake onto the
// upstream one. Gorilla manages key/version/extensions itself, so of
// these only the subprotocol survives to the wire; the list is kept
// complete so the policy is explicit.
var forwardedHeaders = []string{
	"Sec-Websocket-Protocol",
	"Sec-Websocket-Key",
	"Sec-Websocket-Version",
	"Sec-Websocket-Extensions",
}

// echoedHeaders are reflected back to the client in the handshake
// response. A single value only; a client proposing several protocols
// is not fully honored.
var echoedHeaders = []string{"Sec-Websocket-Protocol"}

// Proxy is one spliced WebSocket connection pair. The forwarding pumps
// own the read side of each socket; writes go through per-sink mutexes
// so out-of-band sends do not race the pumps.
type Proxy struct {
	id   string
	port uint16
	role Role

	client *websocket.Conn
	server *websocket.Conn

	clientMu sync.Mutex
	serverMu sync.Mutex

	closed    chan struct{}
	closeOnce sync.Once

	notifyTaken bool
}

// ID identifies the connection in logs.
func (p *Proxy) ID() string { return p.id }

// TargetPort is the port of the upstream this connection targets.
func (p *Proxy) TargetPort() uint16 { return p.port }

// Role is the classification of the upstream endpoint.
func (p *Proxy) Role() Role { return p.role }

// TakeNotifyClosed hands out the channel that is closed when either
// forwarding pump ends. It can be taken once.
func (p *Proxy) TakeNotifyClosed() <-chan struct{} {
	if p.notifyTaken {
		return nil
	}
	p.notifyTaken = true
	return p.closed
}

func (p *Proxy) signalClosed() {
	p.closeOnce.Do(func() {
		close(p.closed)
		metricActiveConnections.Dec()
	})
}

// SendToClient writes a message to the game client outside the normal
// forwarding path.
func (p *Proxy) SendToClient(messageType int, data []byte) error {
	p.clientMu.Lock()
	defer p.clientMu.Unlock()
	return p.client.WriteMessage(messageType, data)
}

// SendToServer writes a message to the upstream outside the normal
// forwarding path.
func (p *Proxy) SendToServer(messageType int, data []byte) error {
	p.serverMu.Lock()
	defer p.serverMu.Unlock()
	return p.server.WriteMessage(messageType, data)
}

// handleWebSocket accepts one inbound proxy connection: it resolves the
// upstream target from the handshake query string, dials it with the
// forwarded headers, announces the new Proxy to the tracker and starts
// the two forwarding pumps.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.acceptLimiter(r.RemoteAddr).Allow() {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	target, err := targetFromRequest(r)
	if err != nil {
		metricHandshakeFailures.Inc()
		log.WithError(err).Warn("rejecting websocket connection")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	port := uint16(0)
	if p := target.Port(); p != "" {
		fmt.Sscanf(p, "%d", &port)
	}
	role := RoleFromPort(port)

	connID := uuid.NewString()[:8]
	connLog := log.WithFields(log.Fields{
		"conn":   connID,
		"target": target.String(),
		"role":   role.String(),
	})

	// echo the client's subprotocol back verbatim
	responseHeader := http.Header{}
	forward := http.Header{}
	for _, name := range forwardedHeaders {
		if v := r.Header.Get(name); v != "" {
			forward.Set(name, v)
		}
	}
	for _, name := range echoedHeaders {
		if v := r.Header.Get(name); v != "" {
			responseHeader.Set(name, v)
		}
	}

	clientConn, err := s.upgrader.Upgrade(w, r, responseHeader)
	if err != nil {
		metricHandshakeFailures.Inc()
		connLog.WithError(err).Error("websocket upgrade failed")
		return
	}

	dialHeader := http.Header{}
	if v := forward.Get("Sec-Websocket-Protocol"); v != "" {
		dialHeader.Set("Sec-Websocket-Protocol", v)
	}
	serverConn, _, err := websocket.DefaultDialer.Dial(target.String(), dialHeader)
	if err != nil {
		metricHandshakeFailures.Inc()
		connLog.WithError(err).Error("failed to connect to upstream server")
		clientConn.Close()
		return
	}

	proxy := &Proxy{
		id:     connID,
		port:   port,
		role:   role,
		client: clientConn,
		server: serverConn,
		closed: make(chan struct{}),
	}

	connLog.Info("new websocket connection spliced")
	metricConnectionsTotal.WithLabelValues(role.String()).Inc()
	metricActiveConnections.Inc()

	// a full channel blocks here, which is fine: new connections are
	// rare relative to frames
	s.newConns <- proxy

	go s.pump(proxy, ClientToServer, connLog)
	go s.pump(proxy, ServerToClient, connLog)
}

// targetFromRequest parses the inbound handshake URI's query string as
// the full upstream URI.
func targetFromRequest(r *http.Request) (*url.URL, error) {
	query := r.URL.RawQuery
	if query == "" {
		return nil, fmt.Errorf("websocket handshake had no query string")
	}
	unescaped, err := url.QueryUnescape(query)
	if err != nil {
		unescaped = query
	}
	target, err := url.Parse(unescaped)
	if err != nil || target.Host == "" {
		return nil, fmt.Errorf("websocket handshake query string did not contain a valid uri: %q", query)
	}
	return target, nil
}

// pump relays frames in one direction until the source closes. Binary
// frames run through the hook first; text and control frames pass
// through untouched.
func (s *Server) pump(p *Proxy, dir Direction, connLog *log.Entry) {
	pumpLog := connLog.WithField("direction", dir.String())
	defer p.signalClosed()

	src, dst := p.client, p.server
	lock := &p.serverMu
	if dir == ServerToClient {
		src, dst = p.server, p.client
		lock = &p.clientMu
	}

	for {
		messageType, data, err := src.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				pumpLog.WithError(err).Debug("read side ended")
			}
			return
		}

		if messageType == websocket.BinaryMessage && p.role != RoleUnknown {
			metricFramesTotal.WithLabelValues(p.role.String(), dir.String()).Inc()

			rewritten, forward, err := s.hook.HandleFrame(data, p.role, dir)
			if err != nil {
				metricParseFailures.WithLabelValues(p.role.String()).Inc()
				pumpLog.WithError(err).Debug("websocket hook failed, forwarding frame verbatim")
				rewritten, forward = nil, true
			}
			if !forward {
				metricFramesDropped.WithLabelValues(p.role.String()).Inc()
				continue
			}
			if rewritten != nil {
				metricFramesRewritten.WithLabelValues(p.role.String()).Inc()
				data = rewritten
			}
		}

		lock.Lock()
		err = dst.WriteMessage(messageType, data)
		lock.Unlock()
		if err != nil {
			// a closed peer is unremarkable, anything else is logged
			if err != websocket.ErrCloseSent {
				pumpLog.WithError(err).Error("failed to forward frame")
			}
			return
		}
	}
}
