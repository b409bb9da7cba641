package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BuildsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tzchains_builds_total",
		Help: "Total number of completed topology builds",
	})
	BuildFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tzchains_build_failures_total",
		Help: "Total number of failed builds by pipeline stage",
	}, []string{"stage"})
	StageDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tzchains_stage_duration_ms",
		Help:    "Pipeline stage duration in milliseconds",
		Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 20000, 60000},
	}, []string{"stage"})
	ZonesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tzchains_zones",
		Help: "Zones in the last built or loaded topology",
	})
	RingsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tzchains_rings",
		Help: "Rings in the last built or loaded topology",
	})
	SegmentsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tzchains_segments",
		Help: "Distinct segments in the last build",
	})
	ChainsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tzchains_chains",
		Help: "Chains in the last built or loaded topology",
	})
	SharedChainsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tzchains_shared_chains",
		Help: "Chains referenced by more than one ring",
	})
	PublishTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tzchains_publish_total",
		Help: "Publish attempts by sink and status",
	}, []string{"sink", "status"})
	LookupRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tzchains_lookup_requests_total",
		Help: "Lookup service requests by route",
	}, []string{"route"})
	LookupDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tzchains_lookup_duration_ms",
		Help:    "Lookup duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"route"})
	LookupCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tzchains_lookup_cache_hits_total",
		Help: "Total redis cache hits for zone lookups",
	})
	LookupCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tzchains_lookup_cache_misses_total",
		Help: "Total redis cache misses for zone lookups",
	})
)

func init() {
	prometheus.MustRegister(BuildsTotal)
	prometheus.MustRegister(BuildFailuresTotal)
	prometheus.MustRegister(StageDurationMs)
	prometheus.MustRegister(ZonesGauge)
	prometheus.MustRegister(RingsGauge)
	prometheus.MustRegister(SegmentsGauge)
	prometheus.MustRegister(ChainsGauge)
	prometheus.MustRegister(SharedChainsGauge)
	prometheus.MustRegister(PublishTotal)
	prometheus.MustRegister(LookupRequestsTotal)
	prometheus.MustRegister(LookupDurationMs)
	prometheus.MustRegister(LookupCacheHitsTotal)
	prometheus.MustRegister(LookupCacheMissesTotal)
}

// 文档注释：返回 Prometheus 指标处理器
// 背景：查询服务在 {base}/metrics 暴露；离线构建则使用 WriteTextfile。
func Handler() http.Handler { return promhttp.Handler() }

// 文档注释：把当前指标写入文本文件
// 背景：构建是一次性命令，无法被抓取；写成 node_exporter textfile collector 可读取的格式。
// 约束：path 为空时不做任何事。
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
