package timeseries

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/acarshub/acars-hub-engine/internal/store"
)

// Period identifies one of the cache's fixed windows.
type Period string

const (
	Period1Hour   Period = "1hr"
	Period6Hour   Period = "6hr"
	Period12Hour  Period = "12hr"
	Period24Hour  Period = "24hr"
	Period1Week   Period = "1wk"
	Period30Day   Period = "30day"
	Period6Month  Period = "6mon"
	Period1Year   Period = "1yr"
)

// refreshInterval is the wall-clock-aligned schedule each period
// refreshes on, per the spec's table: fine-grained periods refresh on
// the same cadence as the writer, coarser ones refresh less often since
// their buckets change more slowly.
var refreshInterval = map[Period]time.Duration{
	Period1Hour:  time.Minute,
	Period6Hour:  time.Minute,
	Period12Hour: time.Minute,
	Period24Hour: 5 * time.Minute,
	Period1Week:  30 * time.Minute,
	Period30Day:  time.Hour,
	Period6Month: 6 * time.Hour,
	Period1Year:  6 * time.Hour,
}

// bucketSize is the downsample width for a period; periods at 1 minute
// use the raw 1min rows directly.
var bucketSize = map[Period]time.Duration{
	Period1Hour:  time.Minute,
	Period6Hour:  time.Minute,
	Period12Hour: time.Minute,
	Period24Hour: 5 * time.Minute,
	Period1Week:  30 * time.Minute,
	Period30Day:  time.Hour,
	Period6Month: 6 * time.Hour,
	Period1Year:  6 * time.Hour,
}

var windowDuration = map[Period]time.Duration{
	Period1Hour:  time.Hour,
	Period6Hour:  6 * time.Hour,
	Period12Hour: 12 * time.Hour,
	Period24Hour: 24 * time.Hour,
	Period1Week:  7 * 24 * time.Hour,
	Period30Day:  30 * 24 * time.Hour,
	Period6Month: 182 * 24 * time.Hour,
	Period1Year:  365 * 24 * time.Hour,
}

var allPeriods = []Period{
	Period1Hour, Period6Hour, Period12Hour, Period24Hour,
	Period1Week, Period30Day, Period6Month, Period1Year,
}

// Point is one zero-filled, possibly-downsampled bucket in a cached
// series.
type Point struct {
	Timestamp  int64
	ACARS      int64
	VDLM       int64
	HFDL       int64
	IMSL       int64
	IRDM       int64
	Total      int64
	ErrorCount int64
}

// Broadcaster is invoked once per refreshed period, after the cache's
// snapshot pointer for that period has already been swapped in.
type Broadcaster func(p Period, points []Point)

// Cache holds one atomically-replaced snapshot slice per period. Readers
// always see either the previous complete snapshot or the new one, never
// a partially-built one.
type Cache struct {
	st          *store.Store
	log         zerolog.Logger
	broadcaster Broadcaster
	snapshots   map[Period]*atomic.Pointer[[]Point]
	clock       func() time.Time
}

func NewCache(st *store.Store, log zerolog.Logger) *Cache {
	c := &Cache{
		st:        st,
		log:       log.With().Str("component", "timeseries-cache").Logger(),
		snapshots: make(map[Period]*atomic.Pointer[[]Point], len(allPeriods)),
		clock:     time.Now,
	}
	for _, p := range allPeriods {
		c.snapshots[p] = &atomic.Pointer[[]Point]{}
	}
	return c
}

// Init synchronously warms every period's snapshot without invoking the
// broadcaster, then the caller should call Run to arm the refresh timers.
func (c *Cache) Init(broadcaster Broadcaster) error {
	c.broadcaster = broadcaster
	for _, p := range allPeriods {
		points, err := c.compute(p)
		if err != nil {
			return err
		}
		c.snapshots[p].Store(&points)
	}
	return nil
}

// Run arms one refresh timer per period; it blocks until ctx is
// canceled. Each period's timer fires on the schedule refreshInterval
// gives it, independent of the others.
func (c *Cache) Run(ctx context.Context) {
	for _, p := range allPeriods {
		go c.runPeriod(ctx, p)
	}
	<-ctx.Done()
}

// runPeriod fires on the next wall-clock boundary of interval, then every
// interval after that, mirroring Writer.Run so a period's first refresh
// after startup never lags by up to a full interval.
func (c *Cache) runPeriod(ctx context.Context, p Period) {
	interval := refreshInterval[p]
	first := c.clock()
	delay := time.Until(first.Truncate(interval).Add(interval))
	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			points, err := c.compute(p)
			if err != nil {
				c.log.Error().Err(err).Str("period", string(p)).Msg("timeseries cache refresh failed")
			} else {
				c.snapshots[p].Store(&points)
				if c.broadcaster != nil {
					c.broadcaster(p, points)
				}
			}
			timer.Reset(interval)
		}
	}
}

// Get returns the current snapshot for p, or nil if the cache has not
// warmed yet. The returned slice is never mutated in place; a refresh
// always builds and stores a brand new one.
func (c *Cache) Get(p Period) []Point {
	ptr := c.snapshots[p]
	if ptr == nil {
		return nil
	}
	v := ptr.Load()
	if v == nil {
		return nil
	}
	return *v
}

func (c *Cache) compute(p Period) ([]Point, error) {
	now := c.clock()
	window := windowDuration[p]
	bucket := bucketSize[p]
	from := now.Add(-window).Unix()
	to := now.Unix()

	// Every period downsamples from the writer's raw 1-min rows; coarser
	// periods just sum more of them into each bucket.
	rows, err := c.st.QueryTimeSeriesRange("1min", from, to)
	if err != nil {
		return nil, err
	}

	bucketSecs := int64(bucket / time.Second)
	buckets := make(map[int64]*Point)
	var order []int64
	for t := from - (from % bucketSecs); t < to; t += bucketSecs {
		pt := &Point{Timestamp: t}
		buckets[t] = pt
		order = append(order, t)
	}

	for _, r := range rows {
		key := r.Timestamp - (r.Timestamp % bucketSecs)
		pt, ok := buckets[key]
		if !ok {
			continue
		}
		pt.ACARS += r.ACARS
		pt.VDLM += r.VDLM
		pt.HFDL += r.HFDL
		pt.IMSL += r.IMSL
		pt.IRDM += r.IRDM
		pt.Total += r.TotalCount
		pt.ErrorCount += r.ErrorCount
	}

	out := make([]Point, 0, len(order))
	for _, t := range order {
		out = append(out, *buckets[t])
	}
	return out, nil
}
