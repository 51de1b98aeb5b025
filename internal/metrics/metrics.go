package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tastemap"

// Loyalty 积分、优惠券与推荐相关指标
type Loyalty struct {
	ledgerEntries    *prometheus.CounterVec
	ledgerPoints     *prometheus.CounterVec
	couponClaims     *prometheus.CounterVec
	couponRedeems    *prometheus.CounterVec
	referralBonuses  *prometheus.CounterVec
	operationLatency *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
}

var (
	once     sync.Once
	registry *prometheus.Registry
	loyalty  *Loyalty
)

// Registry 返回指标注册表
func Registry() *prometheus.Registry {
	L()
	return registry
}

// L 返回全局指标集合
func L() *Loyalty {
	once.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		loyalty = newLoyalty()
		registry.MustRegister(
			loyalty.ledgerEntries,
			loyalty.ledgerPoints,
			loyalty.couponClaims,
			loyalty.couponRedeems,
			loyalty.referralBonuses,
			loyalty.operationLatency,
			loyalty.httpRequests,
			loyalty.httpLatency,
		)
	})
	return loyalty
}

func newLoyalty() *Loyalty {
	return &Loyalty{
		ledgerEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_ledger_entries_total",
			Help:      "Ledger entries written, by action type and direction.",
		}, []string{"action_type", "direction"}),
		ledgerPoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_moved_total",
			Help:      "Absolute points moved through the ledger, by direction.",
		}, []string{"direction"}),
		couponClaims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_claims_total",
			Help:      "Coupon claim attempts, by result.",
		}, []string{"result"}),
		couponRedeems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_redemptions_total",
			Help:      "Coupon redemption attempts, by result.",
		}, []string{"result"}),
		referralBonuses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "referral_bonuses_total",
			Help:      "Referral bonus payouts, by bonus type.",
		}, []string{"bonus_type"}),
		operationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "loyalty_operation_duration_seconds",
			Help:      "Duration of claim and redeem transactions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served.",
		}, []string{"route", "method", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// Handler 暴露 /metrics
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry(), promhttp.HandlerOpts{})
}

// RecordLedgerEntry 记录一条积分流水
func (m *Loyalty) RecordLedgerEntry(actionType string, points int64) {
	if m == nil {
		return
	}
	direction := "earn"
	amount := points
	if points < 0 {
		direction = "spend"
		amount = -points
	}
	m.ledgerEntries.WithLabelValues(actionType, direction).Inc()
	m.ledgerPoints.WithLabelValues(direction).Add(float64(amount))
}

// RecordClaim 记录领取结果
func (m *Loyalty) RecordClaim(result string, started time.Time) {
	if m == nil {
		return
	}
	m.couponClaims.WithLabelValues(result).Inc()
	m.operationLatency.WithLabelValues("claim").Observe(time.Since(started).Seconds())
}

// RecordRedeem 记录核销结果
func (m *Loyalty) RecordRedeem(result string, started time.Time) {
	if m == nil {
		return
	}
	m.couponRedeems.WithLabelValues(result).Inc()
	m.operationLatency.WithLabelValues("redeem").Observe(time.Since(started).Seconds())
}

// RecordReferralBonus 记录推荐奖励发放
func (m *Loyalty) RecordReferralBonus(bonusType string) {
	if m == nil {
		return
	}
	m.referralBonuses.WithLabelValues(bonusType).Inc()
}

// RecordHTTP 记录 HTTP 请求
func (m *Loyalty) RecordHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
