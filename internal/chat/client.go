package chat

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	closeTimeout   = 5 * time.Second
	maxFrameSize   = 512 * 1024
)

// WSClient wraps one websocket connection. The write pump is the only
// goroutine touching the connection for data frames; SendJSON enqueues.
type WSClient struct {
	conn     *websocket.Conn
	send     chan interface{}
	roomKey  string
	userKey  string
	done     chan struct{} // signal for coordinating goroutine shutdown
	once     sync.Once
	mu       sync.Mutex
	isClosed bool
}

func NewWSClient(conn *websocket.Conn, roomKey, userKey string) *WSClient {
	return &WSClient{
		conn:    conn,
		send:    make(chan interface{}, sendBufferSize),
		roomKey: roomKey,
		userKey: userKey,
		done:    make(chan struct{}),
	}
}

// SendJSON queues a payload for the write pump. It fails instead of blocking
// when the client is gone or its buffer is full, so a stalled peer never
// holds up a broadcast.
func (cl *WSClient) SendJSON(v interface{}) error {
	select {
	case <-cl.done:
		return fmt.Errorf("client %s: connection closed", cl.userKey)
	default:
	}

	select {
	case cl.send <- v:
		return nil
	case <-cl.done:
		return fmt.Errorf("client %s: connection closed", cl.userKey)
	default:
		return fmt.Errorf("client %s: send buffer full", cl.userKey)
	}
}

// Close tears the connection down. Safe to call from any goroutine and more
// than once; the registry uses it when a duplicate connect supersedes this
// handle.
func (cl *WSClient) Close() error {
	cl.once.Do(func() {
		close(cl.done)
	})

	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.isClosed {
		return nil
	}
	cl.isClosed = true
	return cl.conn.Close()
}

// reject sends a policy-violation close frame and shuts the client down.
// Used for every Authenticating/Admitting failure.
func (cl *WSClient) reject(reason string) {
	deadline := time.Now().Add(closeTimeout)
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	if err := cl.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		log.Printf("client %s: write close frame: %v", cl.userKey, err)
	}
	cl.Close()
}

func (cl *WSClient) writePump() {
	defer cl.Close()

	for {
		select {
		case <-cl.done:
			return
		case msg := <-cl.send:
			cl.mu.Lock()
			if cl.isClosed {
				cl.mu.Unlock()
				return
			}
			err := cl.conn.WriteJSON(msg)
			cl.mu.Unlock()

			if err != nil {
				log.Printf("client %s: write message: %v", cl.userKey, err)
				return
			}
		}
	}
}

func (cl *WSClient) keepAlive() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cl.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(closeTimeout)
			if err := cl.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				log.Printf("client %s: ping: %v", cl.userKey, err)
				return
			}
		}
	}
}

func isExpectedClose(err error) bool {
	closeErr, ok := err.(*websocket.CloseError)
	if !ok {
		return false
	}
	return closeErr.Code == websocket.CloseNormalClosure ||
		closeErr.Code == websocket.CloseGoingAway ||
		closeErr.Code == websocket.CloseNoStatusReceived
}
