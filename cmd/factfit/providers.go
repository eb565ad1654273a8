package main

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"

	"factfit/internal/biz"
	"factfit/internal/pkg/entryqr"
	"factfit/internal/pkg/metrics"
	"factfit/internal/pkg/snowflake"
)

// infraSet 业务层依赖的指标、单号与入场码实现
var infraSet = wire.NewSet(
	newCollectors,
	wire.Bind(new(biz.PointMetrics), new(*metrics.Collectors)),
	wire.Bind(new(biz.MembershipMetrics), new(*metrics.Collectors)),
	wire.Bind(new(biz.ShopMetrics), new(*metrics.Collectors)),
	wire.Bind(new(biz.PaymentMetrics), new(*metrics.Collectors)),
	snowflake.NewGenerator,
	wire.Bind(new(biz.RefCodeGenerator), new(*snowflake.Generator)),
	entryqr.NewIssuer,
	wire.Bind(new(biz.EntryCodeIssuer), new(*entryqr.Issuer)),
)

func newCollectors() (*metrics.Collectors, error) {
	return metrics.NewCollectors(prometheus.DefaultRegisterer)
}
