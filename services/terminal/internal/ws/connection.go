package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	maxMessageSize = 1024 * 1024
	sendBufferSize = 16
)

var (
	errConnectionClosed = errors.New("ws: connection closed")
	errSendBufferFull   = errors.New("ws: send buffer full")
)

// Conn is the subset of *websocket.Conn the terminal uses.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Dialer opens the push channel.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// GorillaDialer dials with gorilla/websocket.
type GorillaDialer struct {
	Dialer *websocket.Dialer
	Header http.Header
}

// Dial implements Dialer.
func (d GorillaDialer) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, url, d.Header)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Connection runs the read and write pumps of one established channel.
type Connection struct {
	id           string
	ws           Conn
	send         chan []byte
	done         chan struct{}
	closeOnce    sync.Once
	logger       *zap.Logger
	pingInterval time.Duration
	writeTimeout time.Duration
	readTimeout  time.Duration
	onMessage    func(raw []byte)
	onClose      func(c *Connection)
}

// NewConnection builds connection wrapper.
func NewConnection(ws Conn, cfg ManagerConfig, logger *zap.Logger, onMessage func([]byte), onClose func(*Connection)) *Connection {
	id := uuid.NewString()
	return &Connection{
		id:           id,
		ws:           ws,
		send:         make(chan []byte, sendBufferSize),
		done:         make(chan struct{}),
		logger:       logger.With(zap.String("conn_id", id)),
		pingInterval: cfg.PingInterval,
		writeTimeout: cfg.WriteTimeout,
		readTimeout:  cfg.ReadTimeout,
		onMessage:    onMessage,
		onClose:      onClose,
	}
}

// ID returns identifier.
func (c *Connection) ID() string {
	return c.id
}

// Start launches read/write pumps.
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

func (c *Connection) readPump() {
	defer c.cleanup()
	c.ws.SetReadLimit(maxMessageSize)
	c.extendReadDeadline()
	c.ws.SetPongHandler(func(string) error {
		c.extendReadDeadline()
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Info("connection read closed", zap.Error(err))
			}
			return
		}
		c.onMessage(message)
	}
}

func (c *Connection) extendReadDeadline() {
	if c.readTimeout > 0 {
		_ = c.ws.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
}

func (c *Connection) writePump() {
	var tick <-chan time.Time
	if c.pingInterval > 0 {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.logger.Warn("write failed, closing connection", zap.Error(err))
				_ = c.ws.Close()
				return
			}
		case <-tick:
			if err := c.write(websocket.PingMessage, []byte("ping")); err != nil {
				_ = c.ws.Close()
				return
			}
		}
	}
}

// Send enqueues a message for writing.
func (c *Connection) Send(msg []byte) error {
	select {
	case <-c.done:
		return errConnectionClosed
	default:
	}
	select {
	case c.send <- msg:
		return nil
	case <-c.done:
		return errConnectionClosed
	default:
		c.logger.Warn("dropping outgoing message, buffer full")
		return errSendBufferFull
	}
}

// Close stops both pumps. The close callback still runs once the read pump exits.
func (c *Connection) Close() {
	c.closeOnce.Do(func() { close(c.done) })
	_ = c.ws.Close()
}

func (c *Connection) write(messageType int, data []byte) error {
	if c.writeTimeout > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.ws.WriteMessage(messageType, data)
}

func (c *Connection) cleanup() {
	c.closeOnce.Do(func() { close(c.done) })
	_ = c.ws.Close()
	if c.onClose != nil {
		c.onClose(c)
	}
}
