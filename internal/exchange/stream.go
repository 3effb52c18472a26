package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"funding-rate-lab/internal/domain"
)

// StreamConfig configures live funding stream behavior.
type StreamConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultStreamConfig returns default stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// FundingUpdate is one live funding rate observation from a venue stream.
type FundingUpdate struct {
	Venue      domain.Venue
	Instrument string
	Rate       float64
	NextAt     time.Time // next settlement time
	ObservedAt time.Time
}

// FundingStream consumes the Binance mark price stream, which carries the
// predicted next funding rate for each instrument. Updates are delivered on
// a single channel; the stream reconnects with exponential backoff.
type FundingStream struct {
	endpoint string
	config   StreamConfig
	logger   *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	updates chan FundingUpdate
	done    chan struct{}
	wg      sync.WaitGroup
}

// BinanceStreamURL builds the combined mark price stream endpoint for a set
// of instruments.
func BinanceStreamURL(base string, instruments []string) string {
	streams := make([]string, len(instruments))
	for i, inst := range instruments {
		streams[i] = strings.ToLower(inst) + "usdt@markPrice"
	}
	return base + "/stream?streams=" + strings.Join(streams, "/")
}

// NewFundingStream connects to the endpoint and starts the read and ping loops.
func NewFundingStream(ctx context.Context, endpoint string, config *StreamConfig) (*FundingStream, error) {
	cfg := DefaultStreamConfig()
	if config != nil {
		cfg = *config
	}

	s := &FundingStream{
		endpoint: endpoint,
		config:   cfg,
		logger:   log.New(os.Stderr, "[stream] ", log.LstdFlags),
		// Blocking send ensures no update loss; buffer absorbs bursts
		updates: make(chan FundingUpdate, 1024),
		done:    make(chan struct{}),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go s.readLoop()

	s.wg.Add(1)
	go s.pingLoop()

	return s, nil
}

// Updates returns the funding update channel. Closed when the stream closes.
func (s *FundingStream) Updates() <-chan FundingUpdate {
	return s.updates
}

// Close closes the stream and its update channel.
func (s *FundingStream) Close() error {
	if s.closed.Swap(true) {
		return nil // Already closed
	}

	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	close(s.updates)
	return nil
}

// connect establishes the WebSocket connection.
func (s *FundingStream) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.conn = conn
	return nil
}

// readLoop reads messages and reconnects on failure with exponential backoff.
func (s *FundingStream) readLoop() {
	defer s.wg.Done()

	reconnectDelay := s.config.ReconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			if !s.reconnect(reconnectDelay) {
				return
			}
			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > s.config.MaxReconnectDelay {
				reconnectDelay = s.config.MaxReconnectDelay
			}
			continue
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}
			s.logger.Printf("read error, reconnecting: %v", err)

			s.connMu.Lock()
			s.conn.Close()
			s.conn = nil
			s.connMu.Unlock()
			continue
		}

		// Reset delay on successful read
		reconnectDelay = s.config.ReconnectDelay

		s.handleMessage(message)
	}
}

// reconnect waits and re-dials. Returns false on shutdown.
func (s *FundingStream) reconnect(delay time.Duration) bool {
	select {
	case <-s.done:
		return false
	case <-time.After(delay):
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.connect(ctx); err != nil {
		s.logger.Printf("reconnect failed: %v", err)
	}
	return true
}

// markPriceEvent is the Binance combined-stream mark price payload.
type markPriceEvent struct {
	Stream string `json:"stream"`
	Data   struct {
		EventType       string `json:"e"`
		EventTime       int64  `json:"E"` // ms epoch
		Symbol          string `json:"s"`
		FundingRate     string `json:"r"`
		NextFundingTime int64  `json:"T"` // ms epoch
	} `json:"data"`
}

// handleMessage parses a mark price event and dispatches a funding update.
func (s *FundingStream) handleMessage(message []byte) {
	var event markPriceEvent
	if err := json.Unmarshal(message, &event); err != nil {
		return
	}
	if event.Data.EventType != "markPriceUpdate" || event.Data.FundingRate == "" {
		return
	}

	rate, err := strconv.ParseFloat(event.Data.FundingRate, 64)
	if err != nil {
		s.logger.Printf("bad funding rate %q on %s", event.Data.FundingRate, event.Data.Symbol)
		return
	}

	update := FundingUpdate{
		Venue:      domain.VenueBinance,
		Instrument: strings.TrimSuffix(event.Data.Symbol, "USDT"),
		Rate:       rate,
		NextAt:     time.UnixMilli(event.Data.NextFundingTime).UTC(),
		ObservedAt: time.UnixMilli(event.Data.EventTime).UTC(),
	}

	// Block until we can send - never drop updates
	select {
	case s.updates <- update:
	case <-s.done:
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (s *FundingStream) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			s.connMu.Unlock()
		}
	}
}
