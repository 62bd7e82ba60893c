package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/playperu/questboard/internal/notify"
)

const wsWriteTimeout = 5 * time.Second

// handleWS pushes the player's events over a WebSocket. Messages from the
// client are read and discarded so close frames are processed.
func handleWS(logger *slog.Logger, broker *notify.Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := playerFrom(r)
		ch := broker.Subscribe(playerID)
		defer broker.Unsubscribe(playerID, ch)

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ctx := conn.CloseRead(r.Context())
		for {
			select {
			case <-ctx.Done():
				logger.Debug("websocket closed", "player_id", playerID)
				return
			case data := <-ch:
				if err := writeWS(ctx, conn, data); err != nil {
					logger.Debug("websocket write failed", "player_id", playerID, "error", err)
					return
				}
			}
		}
	}
}

func writeWS(ctx context.Context, conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
