package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics HTTP与权限相关指标
type Metrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Denials  *prometheus.CounterVec
	ERPCalls *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New 创建并注册指标
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Denials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_permission_denials_total",
			Help: "Requests rejected by module or permission checks",
		}, []string{"module", "permission"}),
		ERPCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_erp_calls_total",
			Help: "Calls to the ERP by method and outcome",
		}, []string{"method", "outcome"}),
		gatherer: reg,
	}
	reg.MustRegister(m.Requests, m.Duration, m.Denials, m.ERPCalls)
	return m
}

// Denied 记录一次权限拒绝
func (m *Metrics) Denied(module, permission string) {
	if m == nil {
		return
	}
	m.Denials.WithLabelValues(module, permission).Inc()
}

// ERPCall 记录一次ERP调用
func (m *Metrics) ERPCall(method string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ERPCalls.WithLabelValues(method, outcome).Inc()
}

// Handler 指标导出接口
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
}
