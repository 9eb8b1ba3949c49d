package gateway

import (
	"context"
	"errors"
	"sitestatus/internal/providers"
	"sitestatus/internal/structures"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var ErrConnectionGone = errors.New("gateway: connection gone")

const defaultSendTimeout = 2 * time.Second

// Gateway pushes bytes to a live connection identified by an opaque ID.
type Gateway interface {
	PostToConnection(ctx context.Context, connectionID string, data []byte) error
}

// Conn is the write side of a websocket connection.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type Connection struct {
	ID   string
	conn Conn
	mu   sync.Mutex
}

func (c *Connection) send(ctx context.Context, data []byte, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WebsocketGateway tracks the websocket connections open on this process.
type WebsocketGateway struct {
	mu      sync.RWMutex
	conns   map[string]*Connection
	timeout time.Duration
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
}

func NewWebsocketGateway(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface) *WebsocketGateway {
	timeout := conf.Delivery.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &WebsocketGateway{
		conns:   make(map[string]*Connection),
		timeout: timeout,
		logger:  logger,
		metrics: metrics,
	}
}

// Register assigns a new connection ID.
func (g *WebsocketGateway) Register(conn Conn) *Connection {
	c := &Connection{ID: uuid.NewString(), conn: conn}
	g.mu.Lock()
	g.conns[c.ID] = c
	count := len(g.conns)
	g.mu.Unlock()

	g.metrics.SetConnections(count)
	return c
}

func (g *WebsocketGateway) Unregister(connectionID string) {
	g.mu.Lock()
	c, ok := g.conns[connectionID]
	delete(g.conns, connectionID)
	count := len(g.conns)
	g.mu.Unlock()

	if ok {
		_ = c.conn.Close()
	}
	g.metrics.SetConnections(count)
}

func (g *WebsocketGateway) PostToConnection(ctx context.Context, connectionID string, data []byte) error {
	g.mu.RLock()
	c, ok := g.conns[connectionID]
	g.mu.RUnlock()
	if !ok {
		return ErrConnectionGone
	}

	if err := c.send(ctx, data, g.timeout); err != nil {
		g.logger.Warnf(providers.TypeWs, "Send to %s failed: %s", connectionID, err)
		g.Unregister(connectionID)
		return err
	}
	return nil
}

func (g *WebsocketGateway) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.conns)
}

func (g *WebsocketGateway) CloseAll() {
	g.mu.Lock()
	conns := g.conns
	g.conns = make(map[string]*Connection)
	g.mu.Unlock()

	for _, c := range conns {
		_ = c.conn.Close()
	}
	g.metrics.SetConnections(0)
}
