package service

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	"factfit/internal/biz"
	"factfit/internal/pkg/tracing"
)

const (
	OperationSalesServiceTotal  = "/factfit.staff.SalesService/Total"
	OperationSalesServiceDaily  = "/factfit.staff.SalesService/Daily"
	OperationSalesServiceReport = "/factfit.staff.SalesService/Report"
)

// SalesRangeRequest 统计区间，to 不包含在内
type SalesRangeRequest struct {
	From *time.Time `json:"-"`
	To   *time.Time `json:"-"`
}

// SalesReportRequest 销售报表
type SalesReportRequest struct {
	SalesRangeRequest
	Period string `json:"-" validate:"required"`
}

// SalesTotalReply 总收入
type SalesTotalReply struct {
	TotalSales int64 `json:"total_sales"`
}

// DailySalesReply 最近七天收入
type DailySalesReply struct {
	Sales []*biz.SalesPoint `json:"sales"`
}

// SalesService 销售报表接口，仅限前台人员
type SalesService struct {
	uc     *biz.SalesUsecase
	logger *log.Helper
}

// NewSalesService 创建 SalesService 实例
func NewSalesService(uc *biz.SalesUsecase, logger log.Logger) *SalesService {
	return &SalesService{uc: uc, logger: log.NewHelper(logger)}
}

func (r *SalesRangeRequest) toRange() biz.SalesRange {
	var sr biz.SalesRange
	if r.From != nil {
		sr.From = *r.From
	}
	if r.To != nil {
		sr.To = *r.To
	}
	return sr
}

func (s *SalesService) Total(ctx context.Context, req *SalesRangeRequest) (*SalesTotalReply, error) {
	total, err := s.uc.Total(ctx, req.toRange())
	if err != nil {
		return nil, err
	}
	return &SalesTotalReply{TotalSales: total}, nil
}

func (s *SalesService) Daily(ctx context.Context) (*DailySalesReply, error) {
	sales, err := s.uc.Daily(ctx)
	if err != nil {
		return nil, err
	}
	return &DailySalesReply{Sales: sales}, nil
}

func (s *SalesService) Report(ctx context.Context, req *SalesReportRequest) (*biz.SalesReport, error) {
	ctx, span := tracing.StartSpan(ctx, "SalesService.Report")
	defer span.End()

	s.logger.WithContext(ctx).Infof("Received sales report request for period: %s", req.Period)
	return s.uc.Report(ctx, req.Period, req.toRange())
}

// bindSalesRange 解析 from 和 to 查询参数
func bindSalesRange(ctx http.Context) (*SalesRangeRequest, error) {
	from, err := parseDate(ctx.Query().Get("from"))
	if err != nil {
		return nil, err
	}
	to, err := parseDate(ctx.Query().Get("to"))
	if err != nil {
		return nil, err
	}
	return &SalesRangeRequest{From: from, To: to}, nil
}

// RegisterSalesServiceHTTPServer 注册销售报表路由
func RegisterSalesServiceHTTPServer(s *http.Server, srv *SalesService) {
	r := s.Route("/")
	r.GET("/api/sales", func(ctx http.Context) error {
		in, err := bindSalesRange(ctx)
		if err != nil {
			return err
		}
		return handle(ctx, OperationSalesServiceTotal, in, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Total(ctx, req.(*SalesRangeRequest))
		})
	})
	r.GET("/api/sales/daily", func(ctx http.Context) error {
		return handle(ctx, OperationSalesServiceDaily, nil, func(ctx context.Context, _ interface{}) (interface{}, error) {
			return srv.Daily(ctx)
		})
	})
	r.GET("/api/sales/report/{period}", func(ctx http.Context) error {
		rng, err := bindSalesRange(ctx)
		if err != nil {
			return err
		}
		in := &SalesReportRequest{SalesRangeRequest: *rng, Period: ctx.Vars().Get("period")}
		return handle(ctx, OperationSalesServiceReport, in, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Report(ctx, req.(*SalesReportRequest))
		})
	})
}
