package progress

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sumochan15/agentworkflow/pkg/log"
)

// pingInterval keeps proxies from closing an idle stream.
const pingInterval = 15 * time.Second

// ServeSSE streams events to the client until a terminal event arrives, the
// stream closes, or the client disconnects. Frames are `data: <json>` lines;
// idle periods carry `: ping` comments.
func ServeSSE(w http.ResponseWriter, r *http.Request, events <-chan Event) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(w, event); err != nil {
				log.Warn("SSE write failed: %v", err)
				return
			}
			flusher.Flush()
			if event.Terminal() {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
