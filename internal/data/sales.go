package data

import (
	"context"
	"strings"

	"github.com/go-kratos/kratos/v2/log"

	"factfit/internal/biz"
	"factfit/internal/pkg/tracing"
)

// salesRepository 销售统计数据访问实现，只读
type salesRepository struct {
	data   *Data
	logger *log.Helper
}

// NewSalesRepository 创建销售统计数据访问实例
func NewSalesRepository(data *Data, logger log.Logger) biz.SalesRepository {
	return &salesRepository{data: data, logger: log.NewHelper(logger)}
}

// rangeFilter 为 column 追加 [From, To) 条件
func rangeFilter(b *strings.Builder, args []interface{}, column string, r biz.SalesRange) []interface{} {
	if !r.From.IsZero() {
		b.WriteString(" AND " + column + " >= ?")
		args = append(args, r.From)
	}
	if !r.To.IsZero() {
		b.WriteString(" AND " + column + " < ?")
		args = append(args, r.To)
	}
	return args
}

// revenueSource 现金商店订单与已支付会员订单，列为 customer_id, amount, at
func revenueSource(r biz.SalesRange) (string, []interface{}) {
	var b strings.Builder
	args := []interface{}{biz.OrderKindCash, biz.ShopOrderCompleted}
	b.WriteString("SELECT o.customer_id AS customer_id, o.total_cash AS amount, o.created_at AS at FROM shop_orders o" +
		" WHERE o.kind = ? AND o.status = ?")
	args = rangeFilter(&b, args, "o.created_at", r)
	b.WriteString(" UNION ALL SELECT p.customer_id AS customer_id, p.amount AS amount, p.paid_at AS at FROM payment_orders p" +
		" WHERE p.status = ? AND p.paid_at IS NOT NULL")
	args = append(args, biz.OrderPaid)
	args = rangeFilter(&b, args, "p.paid_at", r)
	return b.String(), args
}

func (r *salesRepository) DailyTotals(ctx context.Context, sr biz.SalesRange) ([]*biz.DailySales, error) {
	ctx, span := tracing.StartSpan(ctx, "SalesRepository.DailyTotals")
	defer span.End()

	source, args := revenueSource(sr)
	var rows []*biz.DailySales
	err := r.data.DB(ctx).
		Raw("SELECT DATE(s.at) AS day, SUM(s.amount) AS amount FROM ("+source+") s GROUP BY DATE(s.at) ORDER BY day", args...).
		Scan(&rows).Error
	if err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to aggregate daily sales, error_reason: %v", err)
		return nil, err
	}
	return rows, nil
}

func (r *salesRepository) TopProducts(ctx context.Context, sr biz.SalesRange, limit int) ([]*biz.SalesRanking, error) {
	ctx, span := tracing.StartSpan(ctx, "SalesRepository.TopProducts")
	defer span.End()

	var b strings.Builder
	args := []interface{}{biz.OrderKindCash, biz.ShopOrderCompleted}
	b.WriteString("SELECT t.name AS name, SUM(t.value) AS value FROM (" +
		"SELECT pr.name AS name, SUM(i.qty * i.price_cash) AS value FROM shop_order_items i" +
		" JOIN shop_orders o ON o.id = i.order_id JOIN products pr ON pr.id = i.product_id" +
		" WHERE o.kind = ? AND o.status = ?")
	args = rangeFilter(&b, args, "o.created_at", sr)
	b.WriteString(" GROUP BY pr.name UNION ALL " +
		"SELECT pl.name AS name, SUM(p.amount) AS value FROM payment_orders p JOIN plans pl ON pl.id = p.plan_id" +
		" WHERE p.status = ? AND p.paid_at IS NOT NULL")
	args = append(args, biz.OrderPaid)
	args = rangeFilter(&b, args, "p.paid_at", sr)
	b.WriteString(" GROUP BY pl.name) t GROUP BY t.name ORDER BY value DESC, t.name LIMIT ?")
	args = append(args, limit)

	var rows []*biz.SalesRanking
	if err := r.data.DB(ctx).Raw(b.String(), args...).Scan(&rows).Error; err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to rank products by revenue, error_reason: %v", err)
		return nil, err
	}
	return rows, nil
}

func (r *salesRepository) TopCustomers(ctx context.Context, sr biz.SalesRange, limit int) ([]*biz.SalesRanking, error) {
	ctx, span := tracing.StartSpan(ctx, "SalesRepository.TopCustomers")
	defer span.End()

	source, args := revenueSource(sr)
	args = append(args, limit)
	var rows []*biz.SalesRanking
	err := r.data.DB(ctx).
		Raw("SELECT c.username AS name, SUM(s.amount) AS value FROM ("+source+") s"+
			" JOIN customers c ON c.id = s.customer_id GROUP BY c.id, c.username ORDER BY value DESC, c.username LIMIT ?", args...).
		Scan(&rows).Error
	if err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to rank customers by spend, error_reason: %v", err)
		return nil, err
	}
	return rows, nil
}

func (r *salesRepository) Total(ctx context.Context, sr biz.SalesRange) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "SalesRepository.Total")
	defer span.End()

	source, args := revenueSource(sr)
	var total int64
	err := r.data.DB(ctx).
		Raw("SELECT COALESCE(SUM(s.amount), 0) FROM ("+source+") s", args...).
		Scan(&total).Error
	if err != nil {
		r.logger.WithContext(ctx).Errorf("Failed to total sales, error_reason: %v", err)
		return 0, err
	}
	return total, nil
}
