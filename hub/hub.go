package hub

import (
	"sync"

	"voyageflow/internal/metrics"
	"voyageflow/logger"
	"voyageflow/models"
)

// Viewer is one connected dashboard instance. The hub writes marshaled
// envelopes to Send; a single consumer draining Send in order preserves
// per-viewer delivery order.
type Viewer struct {
	ID   string
	Send chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

// NewViewer builds a viewer with the given outbound buffer size.
func NewViewer(id string, buffer int) *Viewer {
	return &Viewer{
		ID:   id,
		Send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

// Done is closed once the viewer has been removed from the hub. The write
// pump uses it to learn about a drop and shut the connection down; Send is
// never closed, so in-flight publishes cannot panic.
func (v *Viewer) Done() <-chan struct{} {
	if v.done == nil {
		return nil
	}
	return v.done
}

func (v *Viewer) close() {
	v.closeOnce.Do(func() {
		if v.done != nil {
			close(v.done)
		}
	})
}

// Hub maintains the set of live viewers and fans dataset change events out to
// all of them. Delivery is fire-and-forget: a viewer whose outbound buffer is
// full or whose connection died is dropped, never retried, and never holds up
// the other viewers.
type Hub struct {
	mu      sync.Mutex
	viewers map[string]*Viewer
	log     *logger.Log
}

func New() *Hub {
	return &Hub{
		viewers: make(map[string]*Viewer),
		log:     logger.GetLogger(),
	}
}

// Subscribe adds a viewer to the membership set.
func (h *Hub) Subscribe(v *Viewer) {
	h.mu.Lock()
	h.viewers[v.ID] = v
	count := len(h.viewers)
	h.mu.Unlock()

	metrics.ConnectedViewers.Set(float64(count))
	h.log.WithComponent("hub").WithFields(logger.Fields{
		"viewer_id": v.ID,
		"viewers":   count,
	}).Info("viewer subscribed")
}

// Unsubscribe removes a viewer and signals its Done channel so the connection
// pumps tear the socket down. Safe to call more than once for the same id.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	v, ok := h.viewers[id]
	if ok {
		delete(h.viewers, id)
	}
	count := len(h.viewers)
	h.mu.Unlock()

	if !ok {
		return
	}
	v.close()
	metrics.ConnectedViewers.Set(float64(count))
	h.log.WithComponent("hub").WithFields(logger.Fields{
		"viewer_id": id,
		"viewers":   count,
	}).Info("viewer unsubscribed")
}

// Count reports the current number of subscribed viewers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.viewers)
}

// Publish serializes one {type, payload} envelope and attempts delivery to
// every currently subscribed viewer. The registry is copied before iterating
// so a drop during delivery cannot invalidate the loop. A viewer that cannot
// accept the message immediately is treated as disconnected and removed.
func (h *Hub) Publish(eventType string, payload interface{}) {
	data, err := models.Event{Type: eventType, Payload: payload}.Marshal()
	if err != nil {
		h.log.WithComponent("hub").WithError(err).WithFields(logger.Fields{
			"event_type": eventType,
		}).Error("failed to marshal event")
		return
	}

	h.mu.Lock()
	targets := make([]*Viewer, 0, len(h.viewers))
	for _, v := range h.viewers {
		targets = append(targets, v)
	}
	h.mu.Unlock()

	delivered := 0
	for _, v := range targets {
		select {
		case v.Send <- data:
			delivered++
		default:
			metrics.DeliveryFailures.Inc()
			h.log.WithComponent("hub").WithFields(logger.Fields{
				"viewer_id":  v.ID,
				"event_type": eventType,
			}).Warn("viewer send buffer full, dropping viewer")
			h.Unsubscribe(v.ID)
		}
	}

	metrics.EventsPublished.WithLabelValues(eventType).Inc()
	h.log.WithComponent("hub").WithFields(logger.Fields{
		"event_type": eventType,
		"delivered":  delivered,
		"targets":    len(targets),
		"bytes":      len(data),
	}).Debug("event published")
	logger.IncrementBroadcast(len(data) * delivered)
}
