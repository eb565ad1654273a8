package service

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	"factfit/internal/biz"
	"factfit/internal/pkg/tracing"
)

const (
	OperationPointServiceBalance  = "/factfit.staff.PointService/Balance"
	OperationPointServiceLots     = "/factfit.staff.PointService/Lots"
	OperationPointServiceCredit   = "/factfit.staff.PointService/Credit"
	OperationPointServiceSubtract = "/factfit.staff.PointService/Subtract"
)

// PointsRequest 积分增减请求
type PointsRequest struct {
	CustomerID int64  `json:"-" validate:"required,gt=0"`
	Amount     int64  `json:"amount" validate:"required,gt=0"`
	Reason     string `json:"reason" validate:"max=255"`
}

// BalanceReply 积分余额
type BalanceReply struct {
	CustomerID int64 `json:"customer_id"`
	Balance    int64 `json:"balance"`
}

// LotsReply 积分批次，按入账顺序
type LotsReply struct {
	CustomerID int64           `json:"customer_id"`
	Lots       []*biz.PointLot `json:"lots"`
}

// CreditReply 入账结果
type CreditReply struct {
	Lot     *biz.PointLot `json:"lot"`
	Balance int64         `json:"balance"`
}

// PointService 积分账本接口
type PointService struct {
	uc     *biz.PointLedgerUsecase
	logger *log.Helper
}

// NewPointService 创建 PointService 实例
func NewPointService(uc *biz.PointLedgerUsecase, logger log.Logger) *PointService {
	return &PointService{uc: uc, logger: log.NewHelper(logger)}
}

func (s *PointService) Balance(ctx context.Context, req *CustomerIDRequest) (*BalanceReply, error) {
	balance, err := s.uc.Balance(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return &BalanceReply{CustomerID: req.ID, Balance: balance}, nil
}

func (s *PointService) Lots(ctx context.Context, req *CustomerIDRequest) (*LotsReply, error) {
	lots, err := s.uc.Lots(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return &LotsReply{CustomerID: req.ID, Lots: lots}, nil
}

// Credit 新增一个积分批次
func (s *PointService) Credit(ctx context.Context, req *PointsRequest) (*CreditReply, error) {
	ctx, span := tracing.StartSpan(ctx, "PointService.Credit")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{
		"customer_id": req.CustomerID,
		"amount":      req.Amount,
	})

	s.logger.WithContext(ctx).Infof("Received Credit request for customer %d, amount %d", req.CustomerID, req.Amount)
	lot, err := s.uc.Credit(ctx, req.CustomerID, req.Amount, req.Reason)
	if err != nil {
		return nil, err
	}
	balance, err := s.uc.Balance(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	return &CreditReply{Lot: lot, Balance: balance}, nil
}

// Subtract 按先进先出扣减积分
func (s *PointService) Subtract(ctx context.Context, req *PointsRequest) (*biz.DebitResult, error) {
	ctx, span := tracing.StartSpan(ctx, "PointService.Subtract")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{
		"customer_id": req.CustomerID,
		"amount":      req.Amount,
	})

	s.logger.WithContext(ctx).Infof("Received Subtract request for customer %d, amount %d", req.CustomerID, req.Amount)
	return s.uc.Debit(ctx, req.CustomerID, req.Amount, req.Reason)
}

// RegisterPointServiceHTTPServer 注册积分路由
func RegisterPointServiceHTTPServer(s *http.Server, srv *PointService) {
	r := s.Route("/")
	r.GET("/api/customers/{id}/points", func(ctx http.Context) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}
		return handle(ctx, OperationPointServiceBalance, &CustomerIDRequest{ID: id}, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Balance(ctx, req.(*CustomerIDRequest))
		})
	})
	r.GET("/api/customers/{id}/points/lots", func(ctx http.Context) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}
		return handle(ctx, OperationPointServiceLots, &CustomerIDRequest{ID: id}, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Lots(ctx, req.(*CustomerIDRequest))
		})
	})
	r.POST("/api/customers/{id}/points", func(ctx http.Context) error {
		in, err := bindPoints(ctx)
		if err != nil {
			return err
		}
		return handle(ctx, OperationPointServiceCredit, in, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Credit(ctx, req.(*PointsRequest))
		})
	})
	r.POST("/api/customers/{id}/points/subtract", func(ctx http.Context) error {
		in, err := bindPoints(ctx)
		if err != nil {
			return err
		}
		return handle(ctx, OperationPointServiceSubtract, in, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Subtract(ctx, req.(*PointsRequest))
		})
	})
}

func bindPoints(ctx http.Context) (*PointsRequest, error) {
	id, err := pathID(ctx, "id")
	if err != nil {
		return nil, err
	}
	var in PointsRequest
	if err := bind(ctx, &in); err != nil {
		return nil, err
	}
	in.CustomerID = id
	return &in, nil
}
