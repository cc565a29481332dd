package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"PulseScan/internal/domain/models"
	"PulseScan/internal/domain/repository"
	pkgkafka "PulseScan/pkg/kafka"
)

// ClickHouseScanStore implements ResultStore for ClickHouse. One row per
// ranked entry per cycle.
type ClickHouseScanStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseScanStore creates ClickHouse scan storage.
func NewClickHouseScanStore(db *sql.DB, table string) repository.ResultStore {
	if table == "" {
		table = "scan_scores"
	}
	return &ClickHouseScanStore{db: db, table: table}
}

func (s *ClickHouseScanStore) Init(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		cycle_id       String,
		seq            UInt64,
		started_at     DateTime64(3),
		status         LowCardinality(String),
		symbol         LowCardinality(String),
		version        UInt64,
		rank           UInt32,
		composite      Float64,
		price_score    Float64,
		momentum_score Float64,
		volume_score   Float64,
		catalyst_score Float64,
		float_score    Float64,
		duration_ms    UInt64
	) ENGINE = MergeTree()
	PARTITION BY toYYYYMMDD(started_at)
	ORDER BY (symbol, started_at)
	TTL toDateTime(started_at) + INTERVAL 30 DAY`, s.table)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("init scan schema: %w", err)
	}
	return nil
}

func (s *ClickHouseScanStore) Store(ctx context.Context, r *models.ScanResult) error {
	if r == nil || len(r.Entries) == 0 {
		return nil
	}
	// Batch insert using VALUES multi-row to reduce round-trips.
	const chunkSize = 2000
	const colsPerRow = 14
	durationMS := uint64(r.Duration.Milliseconds())
	for start := 0; start < len(r.Entries); start += chunkSize {
		end := start + chunkSize
		if end > len(r.Entries) {
			end = len(r.Entries)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*colsPerRow)
		for _, e := range r.Entries[start:end] {
			if e.Symbol == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				r.CycleID,
				r.Seq,
				r.StartedAt,
				string(r.Status),
				e.Symbol,
				e.Version,
				uint32(e.Rank),
				e.Value,
				e.PillarValue(models.PillarPrice),
				e.PillarValue(models.PillarMomentum),
				e.PillarValue(models.PillarVolume),
				e.PillarValue(models.PillarCatalyst),
				e.PillarValue(models.PillarFloat),
				durationMS,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (cycle_id, seq, started_at, status, symbol, version, rank, composite, price_score, momentum_score, volume_score, catalyst_score, float_score, duration_ms) VALUES %s",
			s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("store scan entries: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseScanStore) QuerySymbol(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.CompositeScore, error) {
	q := fmt.Sprintf("SELECT symbol, version, rank, composite, price_score, momentum_score, volume_score, catalyst_score, float_score FROM %s WHERE symbol = ? AND started_at >= ? AND started_at <= ? ORDER BY started_at DESC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []models.CompositeScore
	for rows.Next() {
		var c models.CompositeScore
		var rank uint32
		var vals [models.NumPillars]float64
		if err := rows.Scan(&c.Symbol, &c.Version, &rank, &c.Value,
			&vals[0], &vals[1], &vals[2], &vals[3], &vals[4]); err != nil {
			return nil, err
		}
		c.Rank = int(rank)
		for i, p := range models.Pillars() {
			c.Pillars[i] = models.PillarScore{Symbol: c.Symbol, Pillar: p, Value: vals[i], Version: c.Version}
		}
		scores = append(scores, c)
	}
	return scores, rows.Err()
}

func (s *ClickHouseScanStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseScanStore) Close() error {
	return nil // Managed by pkg
}

// KafkaResultPublisher implements ResultPublisher for Kafka.
type KafkaResultPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaResultPublisher creates a Kafka result publisher.
func NewKafkaResultPublisher(producer *pkgkafka.Producer, topic string) repository.ResultPublisher {
	return &KafkaResultPublisher{producer: producer, topic: topic}
}

func (p *KafkaResultPublisher) Publish(ctx context.Context, r *models.ScanResult) error {
	entries := make([]map[string]interface{}, 0, len(r.Entries))
	for _, e := range r.Entries {
		entries = append(entries, map[string]interface{}{
			"symbol":   e.Symbol,
			"rank":     e.Rank,
			"score":    e.Value,
			"version":  e.Version,
			"price":    e.PillarValue(models.PillarPrice),
			"momentum": e.PillarValue(models.PillarMomentum),
			"volume":   e.PillarValue(models.PillarVolume),
			"catalyst": e.PillarValue(models.PillarCatalyst),
			"float":    e.PillarValue(models.PillarFloat),
		})
	}
	payload := map[string]interface{}{
		"cycle_id":    r.CycleID,
		"seq":         r.Seq,
		"started_at":  r.StartedAt.UnixMilli(),
		"duration_ms": r.Duration.Milliseconds(),
		"status":      string(r.Status),
		"reason":      r.Reason,
		"skipped":     r.Skipped,
		"entries":     entries,
	}
	return p.producer.Publish(ctx, p.topic, []byte(r.CycleID), payload)
}

func (p *KafkaResultPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
