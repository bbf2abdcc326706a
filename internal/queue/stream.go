package queue

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bissquit/barber-queue/internal/pkg/ctxlog"
	"github.com/bissquit/barber-queue/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
)

const streamKeepAlive = 25 * time.Second

// StreamQueue handles GET /barbers/{barberID}/queue/stream.
// Each change of the queue is sent as a Server-Sent Event named "queue"
// carrying the viewer's projection of the full snapshot.
func (h *Handler) StreamQueue(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.Error(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	barberID := chi.URLParam(r, "barberID")
	ctx := ctxlog.With(r.Context(), "barber_id", barberID, "stream", true)
	logger := ctxlog.FromContext(ctx)

	// Latest view wins when the client reads slower than the queue changes.
	views := make(chan QueueView, 1)
	unsubscribe, err := h.service.Subscribe(ctx, barberID, httputil.GetViewer(r), func(v QueueView) {
		select {
		case views <- v:
		default:
			select {
			case <-views:
			default:
			}
			select {
			case views <- v:
			default:
			}
		}
	})
	if err != nil {
		httputil.HandleError(ctx, w, err, errorMappings)
		return
	}
	defer unsubscribe()
	logger.Debug("queue stream opened")

	// Streams outlive the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case v := <-views:
			data, err := json.Marshal(v)
			if err != nil {
				logger.Error("failed to encode queue view", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: queue\ndata: %s\n\n", data); err != nil {
				logger.Debug("queue stream closed", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}
