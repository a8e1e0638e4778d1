// Package tally keeps per-day check-in counters in Redis so kiosk screens
// can poll occupancy totals without hitting Postgres. The attendance event
// table stays the source of truth; tallies are a cache the worker rebuilds
// one increment at a time.
package tally

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Tally increments and reads daily counters.
type Tally struct {
	client *redis.Client
}

// New creates a tally backed by the shared redis client.
func New(client *redis.Client) *Tally {
	return &Tally{client: client}
}

func dayKey(date time.Time) string {
	return "kiosk:tally:" + date.Format("2006-01-02")
}

func floorKey(date time.Time, floor int) string {
	return fmt.Sprintf("%s:f%d", dayKey(date), floor)
}

// Record bumps the day total and the per-floor counter for one recorded
// event. Keys expire a day after the date ends so stale tallies clean
// themselves up.
func (t *Tally) Record(ctx context.Context, date time.Time, floor int) error {
	day := dayKey(date)
	fl := floorKey(date, floor)
	expireAt := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location()).
		Add(48 * time.Hour)

	pipe := t.client.TxPipeline()
	pipe.Incr(ctx, day)
	pipe.Incr(ctx, fl)
	pipe.ExpireAt(ctx, day, expireAt)
	pipe.ExpireAt(ctx, fl, expireAt)
	_, err := pipe.Exec(ctx)
	return err
}

// Count reads a counter; floor 0 selects the day total. ok is false when the
// key is absent (cold cache), in which case callers should fall back to a
// store count.
func (t *Tally) Count(ctx context.Context, date time.Time, floor int) (n int, ok bool, err error) {
	key := dayKey(date)
	if floor > 0 {
		key = floorKey(date, floor)
	}
	n, err = t.client.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}
