package gateway

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Default upgrader for WebSocket connections.
var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWS upgrades the request and runs a JSON-RPC read loop over the
// socket. Each message is handled in its own goroutine so a slow compute
// call never blocks other calls on the same connection; writes are
// serialized with a mutex. Only GET is accepted for the handshake.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log().Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var (
		writeMu sync.Mutex
		wg      sync.WaitGroup
	)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var msg JSONRPCMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			reply := &JSONRPCMessage{
				JSONRPC: "2.0",
				Error:   &RPCError{Code: codeParseError, Message: "parse error"},
			}
			writeWSMessage(conn, &writeMu, reply)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if resp := s.handler.Handle(r.Context(), &msg); resp != nil {
				writeWSMessage(conn, &writeMu, resp)
			}
		}()
	}
	wg.Wait()
}

func writeWSMessage(conn *websocket.Conn, mu *sync.Mutex, msg *JSONRPCMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	_ = conn.WriteMessage(websocket.TextMessage, data)
}
