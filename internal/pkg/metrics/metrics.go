package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "factfit"

// Collectors 业务指标，实现 biz 中的各个 Metrics 接口
type Collectors struct {
	pointsCredited      prometheus.Counter
	pointsDebited       prometheus.Counter
	lotsTouched         prometheus.Histogram
	memberships         *prometheus.CounterVec
	membershipsExpired  prometheus.Counter
	membershipsPromoted prometheus.Counter
	shopOrders          *prometheus.CounterVec
	notifications       *prometheus.CounterVec
}

// NewCollectors 创建并注册业务指标，reg 为 nil 时使用默认 registry
func NewCollectors(reg prometheus.Registerer) (*Collectors, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collectors{
		pointsCredited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "points",
			Name:      "credited_total",
			Help:      "Points added to customer ledgers.",
		}),
		pointsDebited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "points",
			Name:      "debited_total",
			Help:      "Points consumed from customer ledgers.",
		}),
		lotsTouched: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "points",
			Name:      "debit_lots_touched",
			Help:      "Number of lots deleted or decremented by a single debit.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		}),
		memberships: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "memberships",
			Name:      "purchased_total",
			Help:      "Memberships purchased, by initial status.",
		}, []string{"status"}),
		membershipsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "memberships",
			Name:      "expired_total",
			Help:      "Memberships moved to Expired by the sweeper or a purchase.",
		}),
		membershipsPromoted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "memberships",
			Name:      "promoted_total",
			Help:      "Queued memberships activated by the sweeper.",
		}),
		shopOrders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "shop",
			Name:      "orders_total",
			Help:      "Completed shop orders, by payment kind.",
		}, []string{"kind"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payment",
			Name:      "notifications_total",
			Help:      "Payment gateway notifications, by outcome.",
		}, []string{"outcome"}),
	}

	for _, collector := range []prometheus.Collector{
		c.pointsCredited, c.pointsDebited, c.lotsTouched, c.memberships,
		c.membershipsExpired, c.membershipsPromoted, c.shopOrders, c.notifications,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// PointsCredited 记录入账积分
func (c *Collectors) PointsCredited(amount int64) {
	c.pointsCredited.Add(float64(amount))
}

// PointsDebited 记录扣减积分与涉及的批次数
func (c *Collectors) PointsDebited(amount int64, lotsTouched int) {
	c.pointsDebited.Add(float64(amount))
	c.lotsTouched.Observe(float64(lotsTouched))
}

// MembershipPurchased 记录购买的会员及其初始状态
func (c *Collectors) MembershipPurchased(status string) {
	c.memberships.WithLabelValues(status).Inc()
}

// MembershipsSwept 记录巡检结果
func (c *Collectors) MembershipsSwept(expired, promoted int64) {
	c.membershipsExpired.Add(float64(expired))
	c.membershipsPromoted.Add(float64(promoted))
}

// ShopOrderCompleted 记录商店订单
func (c *Collectors) ShopOrderCompleted(kind string) {
	c.shopOrders.WithLabelValues(kind).Inc()
}

// PaymentNotification 记录支付回调处理结果
func (c *Collectors) PaymentNotification(outcome string) {
	c.notifications.WithLabelValues(outcome).Inc()
}
