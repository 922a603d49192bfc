package transport

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"vocalfx/internal/log"
)

const (
	writeWait      = time.Second
	broadcastQueue = 64
)

// ErrTransportClosed is returned by Send after Close.
var ErrTransportClosed = errors.New("transport closed")

// WebSocketTransport implements the Transport interface for WebSocket
// connections. It does not own a listener: mount it on a router and every
// upgraded client receives each update as JSON. Slow clients are dropped.
type WebSocketTransport struct {
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]struct{}
	clientsMu sync.Mutex
	broadcast chan any
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	log       *log.Logger
}

// NewWebSocketTransport creates a transport and starts its broadcast loop.
func NewWebSocketTransport() *WebSocketTransport {
	wst := &WebSocketTransport{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true // Local monitoring pages are served from anywhere
			},
		},
		clients:   make(map[*websocket.Conn]struct{}),
		broadcast: make(chan any, broadcastQueue),
		done:      make(chan struct{}),
		log:       log.Named("websocket"),
	}

	wst.wg.Add(1)
	go wst.handleBroadcasts()
	return wst
}

// ServeHTTP upgrades the connection and registers the client.
func (wst *WebSocketTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-wst.done:
		http.Error(w, ErrTransportClosed.Error(), http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		wst.log.Warnf("upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = struct{}{}
	n := len(wst.clients)
	wst.clientsMu.Unlock()
	wst.log.Infof("client %s connected, total: %d", conn.RemoteAddr(), n)

	// Read until the client goes away; incoming messages are ignored.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wst.remove(conn)
				return
			}
		}
	}()
}

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

func (wst *WebSocketTransport) remove(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	n := len(wst.clients)
	wst.clientsMu.Unlock()
	if ok {
		conn.Close()
		wst.log.Infof("client %s disconnected, total: %d", conn.RemoteAddr(), n)
	}
}

// handleBroadcasts sends messages to all connected clients
func (wst *WebSocketTransport) handleBroadcasts() {
	defer wst.wg.Done()
	for {
		select {
		case <-wst.done:
			return
		case data := <-wst.broadcast:
			wst.clientsMu.Lock()
			for client := range wst.clients {
				client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteJSON(data); err != nil {
					wst.log.Debugf("dropping client %s: %v", client.RemoteAddr(), err)
					client.Close()
					delete(wst.clients, client)
				}
			}
			wst.clientsMu.Unlock()
		}
	}
}

// Send queues data for every connected client. A full queue drops the
// message.
func (wst *WebSocketTransport) Send(data any) error {
	select {
	case <-wst.done:
		return ErrTransportClosed
	default:
	}
	select {
	case wst.broadcast <- data:
	default:
		// Channel full, drop message
	}
	return nil
}

// Close disconnects every client and stops the broadcast loop.
func (wst *WebSocketTransport) Close() error {
	wst.closeOnce.Do(func() {
		close(wst.done)
		wst.wg.Wait()

		wst.clientsMu.Lock()
		for client := range wst.clients {
			client.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(writeWait))
			client.Close()
		}
		clear(wst.clients)
		wst.clientsMu.Unlock()
	})
	return nil
}

// Ensure WebSocketTransport satisfies the interface
var _ Transport = (*WebSocketTransport)(nil)
var _ http.Handler = (*WebSocketTransport)(nil)
