package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder 服务层使用的指标接口
type Recorder interface {
	RecordPublish(result string)
	RecordStage(stage string, d time.Duration)
	RecordTokenRefresh(result string)
	RecordAnonymousThrottle()
}

type Collector struct {
	publish   *prometheus.CounterVec
	stage     *prometheus.HistogramVec
	refresh   *prometheus.CounterVec
	throttled prometheus.Counter
}

// NewCollector 创建并注册到指定 registry
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		publish: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "brevity_publish_total",
			Help: "Publish attempts by result",
		}, []string{"result"}),
		stage: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "brevity_publish_stage_seconds",
			Help:    "Time spent in each publish stage",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 25, 50},
		}, []string{"stage"}),
		refresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "brevity_token_refresh_total",
			Help: "Access token refreshes by result",
		}, []string{"result"}),
		throttled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "brevity_anonymous_throttled_total",
			Help: "Anonymous publish calls rejected by the rate limiter",
		}),
	}

	reg.MustRegister(c.publish, c.stage, c.refresh, c.throttled)
	return c
}

func (c *Collector) RecordPublish(result string) {
	c.publish.WithLabelValues(result).Inc()
}

func (c *Collector) RecordStage(stage string, d time.Duration) {
	c.stage.WithLabelValues(stage).Observe(d.Seconds())
}

func (c *Collector) RecordTokenRefresh(result string) {
	c.refresh.WithLabelValues(result).Inc()
}

func (c *Collector) RecordAnonymousThrottle() {
	c.throttled.Inc()
}

// RegisterConnectionGauge 在线 WebSocket 连接数，抓取时调用 count
func RegisterConnectionGauge(reg prometheus.Registerer, count func() int) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "brevity_websocket_connections",
		Help: "Open WebSocket progress connections",
	}, func() float64 {
		return float64(count())
	}))
}

// Handler Prometheus 抓取入口
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop 不记录任何指标，用于测试和未启用指标时
type Nop struct{}

func (Nop) RecordPublish(string)               {}
func (Nop) RecordStage(string, time.Duration) {}
func (Nop) RecordTokenRefresh(string)         {}
func (Nop) RecordAnonymousThrottle()          {}
