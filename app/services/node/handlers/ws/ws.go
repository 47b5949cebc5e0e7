// Package ws serves the node's live event feed over a websocket
// connection, one text frame per event.Send call anywhere in the node.
package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/chainforge/ledger/foundation/events"
	"github.com/chainforge/ledger/foundation/web"
)

// pingInterval keeps intermediary proxies from closing an otherwise idle
// connection.
const pingInterval = 10 * time.Second

// Handlers bundles what the events endpoint needs.
type Handlers struct {
	Log  *zap.SugaredLogger
	Evts *events.Events
}

// Events upgrades the request to a websocket and relays every event sent
// on the node's Events feed until the client disconnects.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, open := <-ch:
			if !open {
				return nil
			}

			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}
