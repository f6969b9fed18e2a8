package nado

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait         = 10 * time.Second
	wsReadWait          = 30 * time.Second
	wsReconnectDelay    = 2 * time.Second
	wsMaxReconnectDelay = 60 * time.Second

	// Queries unanswered after this many poll intervals are dropped.
	wsPendingIntervals = 5
)

// BookHandler receives each depth reply from the stream.
type BookHandler func(productID int64, book MarketLiquidity)

// wsQuery is a market_liquidity query sent over the socket.
type wsQuery struct {
	Type      string `json:"type"`
	ProductID int64  `json:"product_id"`
	Depth     int    `json:"depth"`
	ID        int64  `json:"id"`
}

type pendingQuery struct {
	productID int64
	sent      time.Time
}

// wsReply is the gateway's answer to a wsQuery.
type wsReply struct {
	envelope
	ID int64 `json:"id"`
}

// BookStream polls market_liquidity over the gateway WebSocket for a set of
// products and hands every reply to a BookHandler. It reconnects with
// exponential backoff until its context ends.
type BookStream struct {
	wsURL      string
	productIDs []int64
	depth      int
	interval   time.Duration
	onBook     BookHandler
	logger     *slog.Logger

	// reconnectDelay is the first backoff step after a disconnect.
	reconnectDelay time.Duration

	mu      sync.Mutex
	pending map[int64]pendingQuery // by request id
	nextID  int64
}

// NewBookStream creates a stream for productIDs. interval is the poll period.
func NewBookStream(wsURL string, productIDs []int64, depth int, interval time.Duration, onBook BookHandler, logger *slog.Logger) *BookStream {
	if depth <= 0 {
		depth = 20
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &BookStream{
		wsURL:      wsURL,
		productIDs: productIDs,
		depth:      depth,
		interval:   interval,
		onBook:     onBook,
		logger:     logger.With(slog.String("component", "nado_book_stream")),

		reconnectDelay: wsReconnectDelay,
		pending:        make(map[int64]pendingQuery),
	}
}

// Run blocks until ctx is cancelled.
func (s *BookStream) Run(ctx context.Context) error {
	if len(s.productIDs) == 0 {
		return fmt.Errorf("nado/ws: no products to stream")
	}
	delay := s.reconnectDelay
	for {
		start := time.Now()
		err := s.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Since(start) > wsMaxReconnectDelay {
			delay = s.reconnectDelay
		}
		s.logger.Warn("nado ws disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("delay", delay),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, wsMaxReconnectDelay)
	}
}

func (s *BookStream) runConnection(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("nado/ws: connect: %w", err)
	}
	defer conn.Close()

	s.mu.Lock()
	clear(s.pending)
	s.mu.Unlock()

	s.logger.Info("nado ws connected", slog.Int("products", len(s.productIDs)))

	readErr := make(chan error, 1)
	go func() { readErr <- s.readLoop(conn) }()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if err := s.sendQueries(conn); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteWait))
			return ctx.Err()
		case err := <-readErr:
			return err
		case <-ticker.C:
			if err := s.sendQueries(conn); err != nil {
				return err
			}
		}
	}
}

func (s *BookStream) sendQueries(conn *websocket.Conn) error {
	now := time.Now()
	s.prunePending(now)
	for _, pid := range s.productIDs {
		s.mu.Lock()
		s.nextID++
		id := s.nextID
		s.pending[id] = pendingQuery{productID: pid, sent: now}
		s.mu.Unlock()

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(wsQuery{Type: "market_liquidity", ProductID: pid, Depth: s.depth, ID: id}); err != nil {
			return fmt.Errorf("nado/ws: write query: %w", err)
		}
	}
	return nil
}

// prunePending drops queries the gateway never answered, for example when
// replies come back without the request id.
func (s *BookStream) prunePending(now time.Time) {
	cutoff := now.Add(-wsPendingIntervals * s.interval)
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, q := range s.pending {
		if q.sent.Before(cutoff) {
			delete(s.pending, id)
		}
	}
}

func (s *BookStream) readLoop(conn *websocket.Conn) error {
	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadWait))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("nado/ws: read: %w", err)
		}

		var reply wsReply
		if err := json.Unmarshal(data, &reply); err != nil {
			s.logger.Debug("nado ws: unparseable message", slog.String("error", err.Error()))
			continue
		}

		s.mu.Lock()
		q, ok := s.pending[reply.ID]
		delete(s.pending, reply.ID)
		s.mu.Unlock()
		if !ok {
			continue
		}
		pid := q.productID
		if reply.Status == "failure" {
			s.logger.Warn("nado ws query failed",
				slog.Int64("product_id", pid),
				slog.String("error", reply.Error),
			)
			continue
		}

		var book MarketLiquidity
		if err := json.Unmarshal(reply.Data, &book); err != nil {
			s.logger.Warn("nado ws: decode book", slog.Int64("product_id", pid), slog.String("error", err.Error()))
			continue
		}
		if s.onBook != nil {
			s.onBook(pid, book)
		}
	}
}
