package collector

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"astro-service/logger"

	"github.com/sirupsen/logrus"
)

// CounterStore persists aggregated counts
type CounterStore interface {
	IncrementCounters(ctx context.Context, day time.Time, counts map[string]int64) error
}

type event struct {
	name string
	day  time.Time
}

// dailyCounts holds pending counts per UTC day
type dailyCounts map[time.Time]map[string]int64

func (d dailyCounts) add(e event) {
	counts, ok := d[e.day]
	if !ok {
		counts = make(map[string]int64)
		d[e.day] = counts
	}
	counts[e.name]++
}

// Counter collects named events without blocking the caller and flushes them in batches.
// Each event is counted against the UTC day it was recorded on.
// Events recorded while the queue is full are dropped.
type Counter struct {
	store         CounterStore
	events        chan event
	flushInterval time.Duration
	flushTimeout  time.Duration
	now           func() time.Time
	dropped       atomic.Int64
	flushed       atomic.Int64
	stopOnce      sync.Once
}

// NewCounter creates a counter with a queue of queueSize events
func NewCounter(store CounterStore, queueSize int, flushInterval time.Duration) *Counter {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if flushInterval <= 0 {
		flushInterval = 30 * time.Second
	}
	return &Counter{
		store:         store,
		events:        make(chan event, queueSize),
		flushInterval: flushInterval,
		flushTimeout:  10 * time.Second,
		now:           time.Now,
	}
}

// Record queues one occurrence of name. It never blocks.
func (c *Counter) Record(name string) {
	if c == nil {
		return
	}
	now := c.now().UTC()
	e := event{name: name, day: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)}
	select {
	case c.events <- e:
	default:
		c.dropped.Add(1)
	}
}

// Dropped returns how many events were discarded, on a full queue or a failed flush
func (c *Counter) Dropped() int64 {
	return c.dropped.Load()
}

// Flushed returns how many events were written to the store
func (c *Counter) Flushed() int64 {
	return c.flushed.Load()
}

// Start begins the flush worker.
// The returned function stops it after a final flush of everything queued so far.
func (c *Counter) Start(ctx context.Context) func() {
	workerCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go c.run(workerCtx, &wg)

	return func() {
		c.stopOnce.Do(func() {
			cancel()
			wg.Wait()
		})
	}
}

// run aggregates events and flushes them on the ticker schedule
func (c *Counter) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	pending := make(dailyCounts)
	for {
		select {
		case e := <-c.events:
			pending.add(e)
		case <-ticker.C:
			c.flush(pending)
			pending = make(dailyCounts)
		case <-ctx.Done():
			c.drain(pending)
			c.flush(pending)
			return
		}
	}
}

func (c *Counter) drain(pending dailyCounts) {
	for {
		select {
		case e := <-c.events:
			pending.add(e)
		default:
			return
		}
	}
}

// flush writes pending counts day by day; a day that fails is logged and dropped
func (c *Counter) flush(pending dailyCounts) {
	days := make([]time.Time, 0, len(pending))
	for day := range pending {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	for _, day := range days {
		c.flushDay(day, pending[day])
	}
}

func (c *Counter) flushDay(day time.Time, counts map[string]int64) {
	var total int64
	for _, n := range counts {
		total += n
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.flushTimeout)
	defer cancel()

	fields := logrus.Fields{"events": total, "day": day.Format("2006-01-02")}
	if err := c.store.IncrementCounters(ctx, day, counts); err != nil {
		c.dropped.Add(total)
		fields["error"] = err
		logger.Log.WithFields(fields).Warn("Failed to flush analytics counters")
		return
	}
	c.flushed.Add(total)
	logger.Log.WithFields(fields).Debug("Flushed analytics counters")
}
