// Command replay drives synthetic Photon traffic through a running
// proxy instance to exercise the full splice path: it starts a stub
// upstream that speaks just enough of the lobby protocol, then opens N
// client connections through the proxy and measures what comes back.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"bulletforce_proxy/internal/protocol"
)

func main() {
	proxyAddr := flag.String("proxy", "127.0.0.1:48898", "address of the running proxy")
	upstreamPort := flag.Int("upstream-port", 2053, "port for the stub upstream (2053 is classified as lobby)")
	numClients := flag.Int("clients", 50, "number of concurrent clients")
	duration := flag.Duration("duration", 15*time.Second, "test duration")
	flag.Parse()

	log.Printf("starting replay: %d clients for %v", *numClients, *duration)

	if err := startStubUpstream(*upstreamPort); err != nil {
		log.Fatalf("failed to start stub upstream: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	var connected, failed, framesReceived int64

	var wg sync.WaitGroup
	for i := 0; i < *numClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			if err := runClient(ctx, *proxyAddr, *upstreamPort, &framesReceived); err != nil {
				atomic.AddInt64(&failed, 1)
				log.Printf("client %d: %v", clientID, err)
				return
			}
			atomic.AddInt64(&connected, 1)
		}(i)

		// throttle connection rate
		if i%10 == 0 {
			time.Sleep(10 * time.Millisecond)
		}
	}

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				log.Printf("ok=%d failed=%d frames=%d",
					atomic.LoadInt64(&connected),
					atomic.LoadInt64(&failed),
					atomic.LoadInt64(&framesReceived))
			}
		}
	}()

	wg.Wait()
	log.Printf("replay completed: ok=%d failed=%d frames=%d",
		connected, failed, atomic.LoadInt64(&framesReceived))
}

// startStubUpstream serves a minimal lobby endpoint: on connect it
// sends an init response, drains whatever the client sends, and pushes
// a game list event every second.
func startStubUpstream(port int) error {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		initFrame, err := protocol.EncodeFrame(protocol.InitResponse{})
		if err != nil {
			return
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, initFrame); err != nil {
			return
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				frame, err := protocol.EncodeFrame(gameListEvent())
				if err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
					return
				}
			}
		}
	})

	server := &http.Server{Addr: fmt.Sprintf("127.0.0.1:%d", port), Handler: mux}
	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()
	select {
	case err := <-errCh:
		return err
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

func gameListEvent() *protocol.EventData {
	room := protocol.NewOrderedMap()
	room.Set(protocol.NewString("roomName"), protocol.NewString("Replay Arena"))
	room.Set(protocol.NewByte(protocol.GamePropPlayerCount), protocol.NewByte(3))
	room.Set(protocol.NewByte(protocol.GamePropMaxPlayers), protocol.NewByte(8))
	room.Set(protocol.NewString("password"), protocol.NewString("hunter2"))
	room.Set(protocol.NewString("storeID"), protocol.NewString("BALYZE_MOBILE"))
	room.Set(protocol.NewString("gameVersion"), protocol.NewString("1.0.0"))

	games := protocol.NewOrderedMap()
	games.Set(protocol.NewString("replay-room"), protocol.NewHashtable(room))

	params := protocol.NewParamMap()
	params.Set(protocol.ParamGameList, protocol.NewHashtable(games))
	return &protocol.EventData{Code: protocol.EvGameList, Params: params}
}

func authenticateRequest() *protocol.OperationRequest {
	params := protocol.NewParamMap()
	params.Set(protocol.ParamAppVersion, protocol.NewString("1.0.0_2.40"))
	params.Set(protocol.ParamUserID, protocol.NewString("replay-user"))
	return &protocol.OperationRequest{Code: protocol.OpAuthenticate, Params: params}
}

func runClient(ctx context.Context, proxyAddr string, upstreamPort int, framesReceived *int64) error {
	// the proxy resolves its upstream from the query string
	target := fmt.Sprintf("ws://%s/?ws://127.0.0.1:%d/", proxyAddr, upstreamPort)
	conn, _, err := websocket.DefaultDialer.Dial(target, nil)
	if err != nil {
		return fmt.Errorf("failed to connect through proxy: %w", err)
	}
	defer conn.Close()

	authFrame, err := protocol.EncodeFrame(authenticateRequest())
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, authFrame); err != nil {
		return fmt.Errorf("write error: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			conn.SetReadDeadline(time.Now().Add(time.Second))
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					return fmt.Errorf("read error: %w", err)
				}
				continue
			}
			if _, err := protocol.DecodeFrame(data); err != nil {
				return fmt.Errorf("received undecodable frame: %w", err)
			}
			atomic.AddInt64(framesReceived, 1)
		}
	}
}
