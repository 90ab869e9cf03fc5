package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"groundwater-lab/internal/domain"
)

// WSSourceConfig controls connection behavior of the live feed client.
type WSSourceConfig struct {
	HandshakeTimeout  time.Duration
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	ReadTimeout       time.Duration
}

// DefaultWSConfig returns production defaults.
func DefaultWSConfig() WSSourceConfig {
	return WSSourceConfig{
		HandshakeTimeout:  10 * time.Second,
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		ReadTimeout:       60 * time.Second,
	}
}

// wsObservation is the wire format of one telemetry frame.
type wsObservation struct {
	StationID string  `json:"station_id"`
	Timestamp string  `json:"timestamp"` // RFC 3339
	LevelM    float64 `json:"level_m"`
	Unit      string  `json:"unit"`
}

// WSObservationSource streams observations from a telemetry WebSocket
// endpoint. Dropped connections are redialed with exponential backoff.
type WSObservationSource struct {
	endpoint string
	config   WSSourceConfig
}

// NewWSObservationSource creates a new WebSocket-based observation source.
func NewWSObservationSource(endpoint string, config *WSSourceConfig) *WSObservationSource {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	return &WSObservationSource{endpoint: endpoint, config: cfg}
}

var _ ObservationSource = (*WSObservationSource)(nil)

// Subscribe connects to the endpoint and returns a channel of parsed
// observations. The channel is closed when the context is cancelled.
func (s *WSObservationSource) Subscribe(ctx context.Context) (<-chan *domain.RawObservation, error) {
	conn, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}

	// Buffer absorbs bursts; blocking send ensures no frame loss
	out := make(chan *domain.RawObservation, 1000)

	go func() {
		defer close(out)
		// conn is nil between a failed redial and the next attempt.
		defer func() {
			if conn != nil {
				conn.Close()
			}
		}()

		delay := s.config.ReconnectDelay
		for {
			err := s.readLoop(ctx, conn, out)
			if ctx.Err() != nil {
				return
			}
			log.Printf("[ws-feed] connection lost: %v, reconnecting in %v", err, delay)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
			if delay < s.config.MaxReconnectDelay {
				delay *= 2
				if delay > s.config.MaxReconnectDelay {
					delay = s.config.MaxReconnectDelay
				}
			}

			if conn != nil {
				conn.Close()
				conn = nil
			}
			conn, err = s.dial(ctx)
			if err != nil {
				log.Printf("[ws-feed] redial failed: %v", err)
				continue
			}
			delay = s.config.ReconnectDelay
		}
	}()

	return out, nil
}

func (s *WSObservationSource) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: s.config.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", s.endpoint, err)
	}
	return conn, nil
}

// readLoop reads frames until the connection breaks or ctx is cancelled.
func (s *WSObservationSource) readLoop(ctx context.Context, conn *websocket.Conn, out chan<- *domain.RawObservation) error {
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	for {
		if err := conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout)); err != nil {
			return err
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		obs, err := parseFrame(data)
		if err != nil {
			// Malformed frames are logged and dropped, not fatal
			log.Printf("[ws-feed] drop frame: %v", err)
			continue
		}

		select {
		case out <- obs:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func parseFrame(data []byte) (*domain.RawObservation, error) {
	var frame wsObservation
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("unmarshal frame: %w", err)
	}
	if frame.StationID == "" {
		return nil, fmt.Errorf("frame missing station_id")
	}

	ts, err := time.Parse(time.RFC3339, frame.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", frame.Timestamp, err)
	}

	unit := frame.Unit
	if unit == "" {
		unit = "m"
	}

	return &domain.RawObservation{
		WellID:    frame.StationID,
		Timestamp: ts.UTC(),
		Level:     frame.LevelM,
		Unit:      unit,
	}, nil
}
