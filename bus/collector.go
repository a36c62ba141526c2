package bus

import "github.com/prometheus/client_golang/prometheus"

const metricsNamespace = "mediator"

// Collector exports a bus's metrics to Prometheus. Values are read from
// the bus on every scrape.
type Collector struct {
	bus *Bus

	subscriptions *prometheus.Desc
	queueDepth    *prometheus.Desc
	state         *prometheus.Desc
	posted        *prometheus.Desc
	rejected      *prometheus.Desc
	dispatched    *prometheus.Desc
	deliveries    *prometheus.Desc
	failures      *prometheus.Desc
	shutdowns     *prometheus.Desc
}

// NewCollector creates a Collector labelled with the bus name.
func NewCollector(b *Bus) *Collector {
	labels := prometheus.Labels{"bus": b.Name()}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(metricsNamespace, "", name), help, nil, labels)
	}

	return &Collector{
		bus:           b,
		subscriptions: desc("subscriptions", "Live subscriptions across all category lists."),
		queueDepth:    desc("queue_depth", "Messages waiting for dispatch."),
		state:         desc("state", "Dispatcher state: 0 running, 1 draining, 2 stopped."),
		posted:        desc("messages_posted_total", "Messages accepted by Post."),
		rejected:      desc("messages_rejected_total", "Messages rejected by Post."),
		dispatched:    desc("messages_dispatched_total", "Messages routed to subscribers, excluding terminate messages."),
		deliveries:    desc("deliveries_total", "Deliver calls made to subscribers."),
		failures:      desc("subscriber_failures_total", "Subscriber callbacks that returned an error or panicked."),
		shutdowns:     desc("shutdowns_total", "Shutdown calls made to subscribers."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.subscriptions
	ch <- c.queueDepth
	ch <- c.state
	ch <- c.posted
	ch <- c.rejected
	ch <- c.dispatched
	ch <- c.deliveries
	ch <- c.failures
	ch <- c.shutdowns
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	m := c.bus.Metrics()

	gauge := func(d *prometheus.Desc, v int64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v))
	}
	counter := func(d *prometheus.Desc, v int64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}

	gauge(c.subscriptions, m.Subscriptions)
	gauge(c.queueDepth, m.QueueDepth)
	gauge(c.state, int64(c.bus.State()))
	counter(c.posted, m.Posted)
	counter(c.rejected, m.Rejected)
	counter(c.dispatched, m.Dispatched)
	counter(c.deliveries, m.Deliveries)
	counter(c.failures, m.Failures)
	counter(c.shutdowns, m.Shutdowns)
}
