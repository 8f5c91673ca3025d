package transport

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joomcode/errorx"
	"github.com/sirupsen/logrus"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteWait        = 10 * time.Second
)

var expectedCloseStatuses = []int{
	websocket.CloseNormalClosure,
	websocket.CloseGoingAway,
	websocket.CloseNoStatusReceived,
}

// WebSocketClient is a Transport over a single gorilla/websocket connection.
type WebSocketClient struct {
	dialer    *websocket.Dialer
	writeWait time.Duration
	log       *logrus.Entry

	mu      sync.Mutex
	started bool
	conn    *websocket.Conn
	events  chan Event
	done    chan struct{}
	once    sync.Once
}

func NewWebSocketClient(log *logrus.Entry) *WebSocketClient {
	return &WebSocketClient{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: defaultHandshakeTimeout,
		},
		writeWait: defaultWriteWait,
		log:       log.WithField("component", "websocket"),
		events:    make(chan Event, 1),
		done:      make(chan struct{}),
	}
}

func (c *WebSocketClient) Events() <-chan Event {
	return c.events
}

// Connect dials url asking for the given sub-protocol (Sec-WebSocket-Protocol).
func (c *WebSocketClient) Connect(ctx context.Context, url string, protocol string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return errors.New("websocket already connected")
	}
	c.started = true

	dialer := *c.dialer
	dialer.Subprotocols = []string{protocol}

	go func() {
		c.log.WithField("url", url).Infof("connecting with sub-protocol %v", protocol)
		conn, resp, err := dialer.DialContext(ctx, url, nil)
		if err != nil {
			if resp != nil {
				err = errorx.Decorate(err, "handshake failed with HTTP %d", resp.StatusCode)
			}
			c.emit(Event{Kind: EventError, Err: err})
			return
		}
		if negotiated := conn.Subprotocol(); negotiated != protocol {
			c.log.Warnf("central system negotiated sub-protocol %q, requested %q", negotiated, protocol)
		}

		c.mu.Lock()
		select {
		case <-c.done:
			c.mu.Unlock()
			conn.Close()
			return
		default:
		}
		c.conn = conn
		c.mu.Unlock()

		c.emit(Event{Kind: EventOpen})
		c.readLoop(conn)
	}()
	return nil
}

func (c *WebSocketClient) readLoop(conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && websocket.IsCloseError(err, expectedCloseStatuses...) {
				c.emit(Event{Kind: EventClose, Code: closeErr.Code, Err: err})
			} else {
				c.emit(Event{Kind: EventError, Err: err})
			}
			return
		}
		c.emit(Event{Kind: EventMessage, Data: message})
	}
}

func (c *WebSocketClient) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// Send writes one text message.
func (c *WebSocketClient) Send(data []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("websocket is not open")
	}

	if err := conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		return err
	}
	w, err := conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	if _, err = w.Write(data); err != nil {
		return err
	}
	return w.Close()
}

// Close sends a normal close frame and releases the connection. Safe to call more than once.
func (c *WebSocketClient) Close() error {
	var err error
	c.once.Do(func() {
		c.mu.Lock()
		close(c.done)
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)) //nolint:errcheck
		err = conn.Close()
		c.log.Info("connection closed")
	})
	return err
}
