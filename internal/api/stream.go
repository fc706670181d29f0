package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"stakepool-custody/internal/domain"
	"stakepool-custody/internal/observability"
)

const (
	streamBuffer     = 64
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
)

// Hub fans receipts out to websocket subscribers. It implements penalty.Notifier.
type Hub struct {
	mu       sync.Mutex
	clients  map[*subscriber]struct{}
	upgrader websocket.Upgrader
	log      *logrus.Entry
}

type subscriber struct {
	pool string // empty subscribes to all pools
	send chan *domain.TransferReceipt
}

// NewHub creates a new Hub.
func NewHub(log *logrus.Entry) *Hub {
	return &Hub{
		clients: make(map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: log.WithField("component", "stream"),
	}
}

// Publish delivers r to every matching subscriber without blocking.
// Subscribers whose buffer is full miss the receipt.
func (h *Hub) Publish(r *domain.TransferReceipt) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if c.pool != "" && c.pool != r.PoolIdentity {
			continue
		}
		select {
		case c.send <- r:
		default:
			h.log.WithField("receipt_id", r.ReceiptID).Warn("stream subscriber too slow, receipt dropped")
		}
	}
}

func (h *Hub) subscribe(pool string) *subscriber {
	c := &subscriber{pool: pool, send: make(chan *domain.TransferReceipt, streamBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	observability.DefaultMetrics.StreamClients.Inc()
	return c
}

func (h *Hub) unsubscribe(c *subscriber) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	observability.DefaultMetrics.StreamClients.Dec()
}

func (h *Hub) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// serveWS streams receipts as JSON text frames. The optional "pool" query
// parameter restricts the stream to one pool.
func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.log.WithError(err).Debug("websocket upgrade failed")
		return nil
	}
	defer conn.Close()

	c := h.subscribe(r.URL.Query().Get("pool"))
	defer h.unsubscribe(c)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case receipt := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(newReceiptResponse(receipt)); err != nil {
				return nil
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case <-closed:
			return nil
		case <-r.Context().Done():
			return nil
		}
	}
}
