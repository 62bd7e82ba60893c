package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/playperu/questboard/internal/notify"
)

const eventPingInterval = 30 * time.Second

// handleEvents streams broker events for the topic chosen by the request
// as Server-Sent Events. Game clients follow their own player ID; the
// admin console follows notify.AllPlayers.
func handleEvents(broker *notify.Broker, topic func(*http.Request) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		key := topic(r)
		ch := broker.Subscribe(key)
		defer broker.Unsubscribe(key, ch)

		h := w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		ping := time.NewTicker(eventPingInterval)
		defer ping.Stop()

		for {
			var err error
			select {
			case <-r.Context().Done():
				return
			case data := <-ch:
				_, err = fmt.Fprintf(w, "event: update\ndata: %s\n\n", data)
			case <-ping.C:
				_, err = fmt.Fprint(w, ": ping\n\n")
			}
			if err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func adminFeed(*http.Request) string { return notify.AllPlayers }
