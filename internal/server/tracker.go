package server

import (
	log "github.com/sirupsen/logrus"

	"bulletforce_proxy/internal/game"
)

// trackConnections is the long-lived bookkeeping task: every newly
// spliced connection is bound to the HaxState slot matching its role,
// and a watcher clears the slot again once the connection's forwarding
// pumps have ended. At most one lobby and one gameplay slot are
// occupied at any time.
func (s *Server) trackConnections() {
	for proxy := range s.newConns {
		connLog := log.WithFields(log.Fields{
			"conn": proxy.ID(),
			"role": proxy.Role().String(),
		})

		switch proxy.Role() {
		case RoleLobbyServer:
			s.installLobby(proxy, connLog)
		case RoleGameServer:
			s.installGameplay(proxy, connLog)
		default:
			log.WithField("port", proxy.TargetPort()).
				Warn("websocket connection initiated over unknown target port")
		}
	}
	log.Debug("websocket proxy receiver closed")
}

func (s *Server) installLobby(proxy *Proxy, connLog *log.Entry) {
	notifyClosed := proxy.TakeNotifyClosed()

	s.state.Mu.Lock()
	if s.state.Lobby != nil {
		connLog.Warn("lobby socket connection created while one already existed, was teardown missed?")
	}
	s.state.Lobby = &game.LobbySlot{Conn: proxy, State: &game.LobbyState{}}
	s.state.Mu.Unlock()

	if notifyClosed == nil {
		connLog.Warn("lobby connection has no closed notifier, slot cleanup will not run")
		return
	}
	go func() {
		<-notifyClosed
		connLog.Info("lobby websocket closed")
		s.state.Mu.Lock()
		if s.state.Lobby == nil {
			connLog.Warn("lobby socket connection was closed but the slot was already empty")
		}
		s.state.Lobby = nil
		s.state.Mu.Unlock()
	}()
}

func (s *Server) installGameplay(proxy *Proxy, connLog *log.Entry) {
	notifyClosed := proxy.TakeNotifyClosed()

	s.state.Mu.Lock()
	if s.state.Gameplay != nil {
		connLog.Warn("gameplay socket connection created while one already existed, was teardown missed?")
	}
	s.state.Gameplay = &game.GameplaySlot{Conn: proxy, State: game.NewGameplayState()}
	s.state.Mu.Unlock()

	if notifyClosed == nil {
		connLog.Warn("gameplay connection has no closed notifier, slot cleanup will not run")
		return
	}
	go func() {
		<-notifyClosed
		connLog.Info("gameplay websocket closed")
		s.state.Mu.Lock()
		if s.state.Gameplay == nil {
			connLog.Warn("gameplay socket connection was closed but the slot was already empty")
		}
		s.state.Gameplay = nil
		s.state.Mu.Unlock()
	}()
}
