package sink

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"NetDecoy/internal/config"
	"NetDecoy/internal/model"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS nat_flows (
    Timestamp DateTime,
    SrcMAC    String,
    DstMAC    String,
    SrcIP     String,
    DstIP     String,
    NatSrcIP  String,
    SrcPort   UInt16,
    DstPort   UInt16
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Timestamp, SrcIP);
`

// flushInterval bounds how long a learned flow sits in the buffer
// before it is archived.
const flushInterval = 5 * time.Second

// ClickHouseSink archives learned-flow events. Events are buffered in
// memory and written in batches; the datapath never waits on the
// database.
type ClickHouseSink struct {
	conn driver.Conn

	mu     sync.Mutex
	buffer []*model.FlowEvent

	stop chan struct{}
	done chan struct{}
}

// NewClickHouseSink connects, ensures the table exists and starts the
// background flusher.
func NewClickHouseSink(cfg config.ClickHouseConfig) (*ClickHouseSink, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), createTableStatement); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	log.Println("Successfully connected to ClickHouse and ensured table exists.")

	s := &ClickHouseSink{
		conn: conn,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go s.run()
	return s, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: false,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return conn, nil
}

// Notify queues one event for archival.
func (s *ClickHouseSink) Notify(ev *model.FlowEvent) error {
	s.mu.Lock()
	s.buffer = append(s.buffer, ev)
	s.mu.Unlock()
	return nil
}

// Close flushes the remaining buffer and shuts the sink down.
func (s *ClickHouseSink) Close() {
	close(s.stop)
	<-s.done
	if err := s.flush(); err != nil {
		log.Printf("Final ClickHouse flush failed: %v", err)
	}
	s.conn.Close()
}

func (s *ClickHouseSink) run() {
	defer close(s.done)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.flush(); err != nil {
				log.Printf("ClickHouse flush failed: %v", err)
			}
		case <-s.stop:
			return
		}
	}
}

func (s *ClickHouseSink) flush() error {
	s.mu.Lock()
	pending := s.buffer
	s.buffer = nil
	s.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(context.Background(), "INSERT INTO nat_flows")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	for _, ev := range pending {
		err = batch.Append(
			ev.Timestamp,
			ev.SrcMAC,
			ev.DstMAC,
			ev.SrcIP,
			ev.DstIP,
			ev.NATSrcIP,
			ev.SrcPort,
			ev.DstPort,
		)
		if err != nil {
			return fmt.Errorf("failed to append flow to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Printf("Archived %d learned flows to ClickHouse", len(pending))
	return nil
}
