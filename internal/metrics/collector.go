package metrics

import (
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/acarshub/acars-hub-engine/internal/model"
	"github.com/acarshub/acars-hub-engine/internal/queue"
	"github.com/acarshub/acars-hub-engine/internal/store"
)

// StoreStats is the subset of *store.Store the collector reads at
// scrape time.
type StoreStats interface {
	Path() string
	GetMessageCounts() (store.MessageCounts, error)
	GetDroppedCount() (int64, error)
	GetAllSignalLevels() (map[string][]store.SignalLevelBucket, error)
	GetAllFrequencies() (map[string][]store.FrequencyBucket, error)
	GetAlertMatchCount() (int64, error)
}

// QueueStats is the subset of *queue.Queue the collector reads at
// scrape time.
type QueueStats interface {
	GetStats() queue.Stats
	Length() int
}

// SubscriberCounter is the subset of *push.Bus the collector reads at
// scrape time.
type SubscriberCounter interface {
	SubscriberCount() int
}

// Collector implements prometheus.Collector, resolving every value from
// live application state at Collect time rather than tracking its own
// gauges, mirroring runZeroInc-sockstats' TCPInfoCollector pattern.
type Collector struct {
	st   StoreStats
	q    QueueStats
	push SubscriberCounter

	dbFileSizeBytes  *prometheus.Desc
	messagesTotal    *prometheus.Desc
	messagesGood     *prometheus.Desc
	messagesErrors   *prometheus.Desc
	messagesDropped  *prometheus.Desc
	queueLength      *prometheus.Desc
	queueOverflows   *prometheus.Desc
	lastMinuteCount  *prometheus.Desc
	signalLevelCount *prometheus.Desc
	frequencyCount   *prometheus.Desc
	alertMatches     *prometheus.Desc
	pushSubscribers  *prometheus.Desc
	info             *prometheus.Desc
}

// NewCollector creates a collector over st, q and push. Any of them may
// be nil; the corresponding metrics report zero values.
func NewCollector(st StoreStats, q QueueStats, push SubscriberCounter) *Collector {
	return &Collector{
		st:   st,
		q:    q,
		push: push,
		dbFileSizeBytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "db", "file_size_bytes"),
			"Size of the sqlite database file on disk.",
			nil, nil,
		),
		messagesTotal: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "messages", "total"),
			"Cumulative messages persisted.",
			nil, nil,
		),
		messagesGood: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "messages", "good_total"),
			"Cumulative messages persisted without a decode error.",
			nil, nil,
		),
		messagesErrors: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "messages", "error_total"),
			"Cumulative messages persisted with a decode error.",
			nil, nil,
		),
		messagesDropped: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "messages", "dropped_total"),
			"Cumulative messages dropped by queue overflow.",
			nil, nil,
		),
		queueLength: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "queue", "length"),
			"Current number of messages buffered in the queue.",
			nil, nil,
		),
		queueOverflows: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "queue", "overflows_total"),
			"Cumulative queue overflow events (oldest message dropped).",
			nil, nil,
		),
		lastMinuteCount: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "messages", "last_minute_total"),
			"Messages received in the current uncommitted minute, per decoder.",
			[]string{"decoder"}, nil,
		),
		signalLevelCount: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "signal_level", "count"),
			"Message count per decoder and signal level bucket.",
			[]string{"decoder", "level"}, nil,
		),
		frequencyCount: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "frequency", "count"),
			"Message count per decoder and frequency bucket.",
			[]string{"decoder", "freq"}, nil,
		),
		alertMatches: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "alerts", "matches_total"),
			"Cumulative messages matching a configured alert term.",
			nil, nil,
		),
		pushSubscribers: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "push", "subscribers_active"),
			"Current number of connected push subscribers.",
			nil, nil,
		),
		info: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "info"),
			"Always 1; carries build/version labels.",
			[]string{"version"}, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.dbFileSizeBytes
	ch <- c.messagesTotal
	ch <- c.messagesGood
	ch <- c.messagesErrors
	ch <- c.messagesDropped
	ch <- c.queueLength
	ch <- c.queueOverflows
	ch <- c.lastMinuteCount
	ch <- c.signalLevelCount
	ch <- c.frequencyCount
	ch <- c.alertMatches
	ch <- c.pushSubscribers
	ch <- c.info
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.info, prometheus.GaugeValue, 1, "dev")

	if c.st != nil {
		if fi, err := os.Stat(c.st.Path()); err == nil {
			ch <- prometheus.MustNewConstMetric(c.dbFileSizeBytes, prometheus.GaugeValue, float64(fi.Size()))
		}
		if counts, err := c.st.GetMessageCounts(); err == nil {
			ch <- prometheus.MustNewConstMetric(c.messagesTotal, prometheus.CounterValue, float64(counts.Total))
			ch <- prometheus.MustNewConstMetric(c.messagesGood, prometheus.CounterValue, float64(counts.Good))
			ch <- prometheus.MustNewConstMetric(c.messagesErrors, prometheus.CounterValue, float64(counts.Errors))
		}
		if dropped, err := c.st.GetDroppedCount(); err == nil {
			ch <- prometheus.MustNewConstMetric(c.messagesDropped, prometheus.CounterValue, float64(dropped))
		}
		if levels, err := c.st.GetAllSignalLevels(); err == nil {
			for decoder, buckets := range levels {
				for _, b := range buckets {
					ch <- prometheus.MustNewConstMetric(c.signalLevelCount, prometheus.GaugeValue,
						float64(b.Count), decoder, strconv.FormatFloat(b.Level, 'f', -1, 64))
				}
			}
		}
		if freqs, err := c.st.GetAllFrequencies(); err == nil {
			for decoder, buckets := range freqs {
				for _, b := range buckets {
					ch <- prometheus.MustNewConstMetric(c.frequencyCount, prometheus.GaugeValue,
						float64(b.Count), decoder, b.Freq)
				}
			}
		}
		if matches, err := c.st.GetAlertMatchCount(); err == nil {
			ch <- prometheus.MustNewConstMetric(c.alertMatches, prometheus.CounterValue, float64(matches))
		}
	}

	if c.q != nil {
		stats := c.q.GetStats()
		ch <- prometheus.MustNewConstMetric(c.queueLength, prometheus.GaugeValue, float64(c.q.Length()))
		ch <- prometheus.MustNewConstMetric(c.queueOverflows, prometheus.CounterValue, float64(stats.Overflows))
		for _, t := range model.AllTypes {
			key := t.CounterKey()
			ch <- prometheus.MustNewConstMetric(c.lastMinuteCount, prometheus.GaugeValue,
				float64(stats.LastMinute[key]), key)
		}
	}

	if c.push != nil {
		ch <- prometheus.MustNewConstMetric(c.pushSubscribers, prometheus.GaugeValue, float64(c.push.SubscriberCount()))
	}
}
