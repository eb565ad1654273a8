package biz

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"factfit/internal/pkg/tracing"
)

// 销售报表周期
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

const (
	// salesRankingLimit 排行榜条数
	salesRankingLimit = 5
	// recentSalesDays Daily 覆盖的天数，含当天
	recentSalesDays = 7
)

// SalesRange 统计区间 [From, To)，零值表示该端不设限
type SalesRange struct {
	From time.Time
	To   time.Time
}

// DailySales 某一天的现金收入
type DailySales struct {
	Day    time.Time `gorm:"column:day" json:"day"`
	Amount int64     `gorm:"column:amount" json:"amount"`
}

// SalesRanking 排行榜中的一项
type SalesRanking struct {
	Name  string `gorm:"column:name" json:"name"`
	Value int64  `gorm:"column:value" json:"value"`
}

// SalesPoint 报表中一个周期的汇总
type SalesPoint struct {
	Label  string `json:"date"`
	Amount int64  `json:"amount"`
}

// SalesReport 销售报表
type SalesReport struct {
	Period       string          `json:"period"`
	Sales        []*SalesPoint   `json:"sales"`
	TopProducts  []*SalesRanking `json:"top_products"`
	TopCustomers []*SalesRanking `json:"top_customers"`
	Total        int64           `json:"total"`
}

// SalesRepository 销售统计数据访问接口
//
// 收入来源是已完成的现金商店订单和已支付的会员订单，积分兑换不计入。
type SalesRepository interface {
	// DailyTotals 按自然日汇总，日期升序
	DailyTotals(ctx context.Context, r SalesRange) ([]*DailySales, error)
	// TopProducts 商品和套餐按收入排序
	TopProducts(ctx context.Context, r SalesRange, limit int) ([]*SalesRanking, error)
	// TopCustomers 客户按消费金额排序
	TopCustomers(ctx context.Context, r SalesRange, limit int) ([]*SalesRanking, error)
	Total(ctx context.Context, r SalesRange) (int64, error)
}

// SalesUsecase 销售报表
type SalesUsecase struct {
	sales SalesRepository
	now   func() time.Time
	log   *log.Helper
}

// NewSalesUsecase 创建销售报表业务逻辑实例
func NewSalesUsecase(sales SalesRepository, logger log.Logger) *SalesUsecase {
	return &SalesUsecase{
		sales: sales,
		now:   time.Now,
		log:   log.NewHelper(logger),
	}
}

// Report 按周期汇总收入并附带商品和客户排行
func (uc *SalesUsecase) Report(ctx context.Context, period string, r SalesRange) (*SalesReport, error) {
	ctx, span := tracing.StartSpan(ctx, "SalesUsecase.Report")
	defer span.End()

	label, ok := periodLabels[period]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSalesPeriod, period)
	}
	if !r.From.IsZero() && !r.To.IsZero() && !r.To.After(r.From) {
		return nil, fmt.Errorf("%w: empty range", ErrInvalidSalesPeriod)
	}

	days, err := uc.sales.DailyTotals(ctx, r)
	if err != nil {
		return nil, storageError("daily sales", err)
	}
	products, err := uc.sales.TopProducts(ctx, r, salesRankingLimit)
	if err != nil {
		return nil, storageError("top products", err)
	}
	customers, err := uc.sales.TopCustomers(ctx, r, salesRankingLimit)
	if err != nil {
		return nil, storageError("top customers", err)
	}

	report := &SalesReport{
		Period:       period,
		Sales:        bucketSales(days, label),
		TopProducts:  products,
		TopCustomers: customers,
	}
	for _, day := range days {
		report.Total += day.Amount
	}

	uc.log.WithContext(ctx).Infof("Sales report %s: %d buckets, total %d", period, len(report.Sales), report.Total)
	return report, nil
}

// Daily 最近七天每天的收入，当天在前，没有收入的日子为 0
func (uc *SalesUsecase) Daily(ctx context.Context) ([]*SalesPoint, error) {
	ctx, span := tracing.StartSpan(ctx, "SalesUsecase.Daily")
	defer span.End()

	now := uc.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	r := SalesRange{From: today.AddDate(0, 0, -(recentSalesDays - 1)), To: today.AddDate(0, 0, 1)}

	days, err := uc.sales.DailyTotals(ctx, r)
	if err != nil {
		return nil, storageError("daily sales", err)
	}
	amounts := make(map[string]int64, len(days))
	for _, day := range days {
		amounts[day.Day.Format(time.DateOnly)] += day.Amount
	}

	points := make([]*SalesPoint, 0, recentSalesDays)
	for i := 0; i < recentSalesDays; i++ {
		label := today.AddDate(0, 0, -i).Format(time.DateOnly)
		points = append(points, &SalesPoint{Label: label, Amount: amounts[label]})
	}
	return points, nil
}

// Total 区间内总收入
func (uc *SalesUsecase) Total(ctx context.Context, r SalesRange) (int64, error) {
	total, err := uc.sales.Total(ctx, r)
	if err != nil {
		return 0, storageError("total sales", err)
	}
	return total, nil
}

var periodLabels = map[string]func(time.Time) string{
	PeriodDaily: func(t time.Time) string { return t.Format(time.DateOnly) },
	PeriodWeekly: func(t time.Time) string {
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	},
	PeriodMonthly: func(t time.Time) string { return t.Format("2006-01") },
}

// bucketSales 把日汇总并入周期，标签升序
func bucketSales(days []*DailySales, label func(time.Time) string) []*SalesPoint {
	index := make(map[string]*SalesPoint)
	points := make([]*SalesPoint, 0)
	for _, day := range days {
		key := label(day.Day)
		point, ok := index[key]
		if !ok {
			point = &SalesPoint{Label: key}
			index[key] = point
			points = append(points, point)
		}
		point.Amount += day.Amount
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Label < points[j].Label })
	return points
}
