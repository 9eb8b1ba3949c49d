package controllers

import (
	"context"
	json "github.com/goccy/go-json"
	"net/http"
	"sitestatus/internal/gateway"
	"sitestatus/internal/providers"
	"sitestatus/internal/services"
	"time"

	"github.com/gorilla/websocket"
)

const storeOpTimeout = 5 * time.Second

// ConnectionController upgrades subscriber websockets. Each connection is
// subscribed to one site at a time; a {"site": "..."} message moves it.
type ConnectionController struct {
	logger      providers.Logger
	subscribers services.SubscriberServiceInterface
	gateway     *gateway.WebsocketGateway
	upgrader    websocket.Upgrader
}

func NewConnectionController(logger providers.Logger, subscribers services.SubscriberServiceInterface, gw *gateway.WebsocketGateway) *ConnectionController {
	return &ConnectionController{
		logger:      logger,
		subscribers: subscribers,
		gateway:     gw,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type subscribeMessage struct {
	Site string `json:"site"`
}

func (cc *ConnectionController) Connect(w http.ResponseWriter, r *http.Request) {
	site := r.URL.Query().Get("site")
	if site == "" {
		writeError(w, http.StatusBadRequest, "site query parameter required")
		return
	}

	conn, err := cc.upgrader.Upgrade(w, r, nil)
	if err != nil {
		cc.logger.Warnf(providers.TypeWs, "Websocket upgrade failed: %s", err)
		return
	}

	conn.SetReadLimit(maxRequestBodySize)
	c := cc.gateway.Register(conn)
	cc.logger.Infof(providers.TypeWs, "Connected %s for site %s", c.ID, site)
	cc.subscribe(c.ID, site)

	go cc.readLoop(c.ID, conn)
}

func (cc *ConnectionController) readLoop(connectionID string, conn *websocket.Conn) {
	defer func() {
		cc.unsubscribe(connectionID)
		cc.gateway.Unregister(connectionID)
		cc.logger.Infof(providers.TypeWs, "Disconnected %s", connectionID)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg subscribeMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Site == "" {
			cc.logger.Debugf(providers.TypeWs, "Ignoring message from %s: %q", connectionID, data)
			continue
		}
		cc.subscribe(connectionID, msg.Site)
	}
}

// subscribe failures are logged and the connection stays open.
func (cc *ConnectionController) subscribe(connectionID, site string) {
	ctx, cancel := context.WithTimeout(context.Background(), storeOpTimeout)
	defer cancel()
	if err := cc.subscribers.Subscribe(ctx, connectionID, site); err != nil {
		cc.logger.Errorf(providers.TypeWs, "Subscribe %s to %s failed: %s", connectionID, site, err)
	}
}

func (cc *ConnectionController) unsubscribe(connectionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), storeOpTimeout)
	defer cancel()
	if err := cc.subscribers.Unsubscribe(ctx, connectionID); err != nil {
		cc.logger.Errorf(providers.TypeWs, "Unsubscribe %s failed: %s", connectionID, err)
	}
}
