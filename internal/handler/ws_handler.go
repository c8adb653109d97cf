/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

The connection carries no identity at upgrade time. Identity is established by
the reconnect message once the relay client is running.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"presence/internal/app/relay"
	"presence/internal/pkg/logx"
)

// HandleWebSocket creates an HTTP HandlerFunc that upgrades the request and
// serves the relay client until the socket closes.
func HandleWebSocket(hub *relay.Hub, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		logx.Debug("WebSocket connection upgraded", "remote_ip", logx.AnonymizeIP(r.RemoteAddr))

		relay.NewClient(hub, conn).Serve()
	}
}
