package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	domrepo "PulseScan/internal/domain/repository"
	pkgch "PulseScan/pkg/clickhouse"
	applogger "PulseScan/pkg/logger"
)

// CHBaselineStore implements BaselineReader backed by ClickHouse daily
// volume aggregates. The table is filled by the nightly ETL, not by the
// scanner itself.
type CHBaselineStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHBaselineStore(ch *pkgch.Client, table string) *CHBaselineStore {
	if table == "" {
		table = "daily_volumes"
	}
	return &CHBaselineStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHBaselineStore) SetLogger(l *applogger.Logger) { s.l = l }

var _ domrepo.BaselineReader = (*CHBaselineStore)(nil)

func (s *CHBaselineStore) AvgDailyVolume(ctx context.Context, symbol string, window domrepo.BaselineWindow) (float64, error) {
	start := time.Now()
	if !domrepo.IsValidBaselineWindow(window) {
		window = domrepo.DefaultBaselineWindow()
	}
	const qtpl = `
        SELECT avg(volume)
        FROM %s
        WHERE symbol = ? AND day >= today() - ?
    `
	q := fmt.Sprintf(qtpl, s.table)
	var avg sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, q, symbol, window.Days()).Scan(&avg); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse avg_volume query error",
				applogger.String("table", s.table),
				applogger.String("symbol", symbol),
				applogger.String("window", string(window)),
				applogger.Error(err),
			)
		}
		return 0, fmt.Errorf("avg daily volume: %w", err)
	}
	if !avg.Valid || avg.Float64 <= 0 {
		return 0, fmt.Errorf("no volume history for %s", symbol)
	}
	if s.l != nil {
		s.l.Debug("clickhouse avg_volume ok",
			applogger.String("symbol", symbol),
			applogger.String("window", string(window)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return avg.Float64, nil
}

func (s *CHBaselineStore) AvgDailyVolumes(ctx context.Context, symbols []string, window domrepo.BaselineWindow) (map[string]float64, error) {
	start := time.Now()
	out := make(map[string]float64, len(symbols))
	if len(symbols) == 0 {
		return out, nil
	}
	if !domrepo.IsValidBaselineWindow(window) {
		window = domrepo.DefaultBaselineWindow()
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(symbols)), ",")
	q := fmt.Sprintf(`SELECT symbol, avg(volume) FROM %s WHERE symbol IN (%s) AND day >= today() - ? GROUP BY symbol`,
		s.table, placeholders)
	args := make([]interface{}, 0, len(symbols)+1)
	for _, sym := range symbols {
		args = append(args, sym)
	}
	args = append(args, window.Days())

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse avg_volumes query error",
				applogger.String("table", s.table),
				applogger.Int("symbols", len(symbols)),
				applogger.String("window", string(window)),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("avg daily volumes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sym string
		var avg float64
		if err := rows.Scan(&sym, &avg); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse avg_volumes scan error",
					applogger.String("table", s.table),
					applogger.Error(err),
				)
			}
			return nil, fmt.Errorf("scan volume: %w", err)
		}
		if avg > 0 {
			out[sym] = avg
		}
	}
	if err := rows.Err(); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse avg_volumes rows error",
				applogger.String("table", s.table),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse avg_volumes ok",
			applogger.String("table", s.table),
			applogger.Int("symbols", len(symbols)),
			applogger.Int("found", len(out)),
			applogger.String("window", string(window)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}
