package cache

import (
	"context"
	"time"
)

// BytesCache stores rendered API responses as raw bytes with TTL. Scan
// results change every cycle, so TTLs here are sub-second to single-digit
// seconds; history responses can live longer.
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
