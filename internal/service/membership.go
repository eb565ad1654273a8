package service

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	"factfit/internal/biz"
	"factfit/internal/pkg/tracing"
)

const (
	OperationMembershipServicePurchase       = "/factfit.staff.MembershipService/Purchase"
	OperationMembershipServiceCurrent        = "/factfit.any.MembershipService/Current"
	OperationMembershipServiceListByCustomer = "/factfit.staff.MembershipService/ListByCustomer"
	OperationMembershipServiceCancel         = "/factfit.staff.MembershipService/Cancel"
)

// PurchaseMembershipRequest 购买会员，start_date 为空时从当前时间开始
type PurchaseMembershipRequest struct {
	CustomerID int64  `json:"customer_id" validate:"required,gt=0"`
	PlanID     int64  `json:"plan_id" validate:"required,gt=0"`
	StartDate  string `json:"start_date"`
	AutoRenew  bool   `json:"auto_renew"`
}

// MembershipIDRequest 路径中的会员记录 id
type MembershipIDRequest struct {
	ID int64 `json:"-" validate:"required,gt=0"`
}

// ListMembershipsReply 客户的全部会员记录
type ListMembershipsReply struct {
	Memberships []*biz.Membership `json:"memberships"`
}

// MembershipService 会员排期接口
type MembershipService struct {
	uc     *biz.MembershipUsecase
	logger *log.Helper
}

// NewMembershipService 创建 MembershipService 实例
func NewMembershipService(uc *biz.MembershipUsecase, logger log.Logger) *MembershipService {
	return &MembershipService{uc: uc, logger: log.NewHelper(logger)}
}

// Purchase 购买套餐，已有会员时排在最后一条之后
func (s *MembershipService) Purchase(ctx context.Context, req *PurchaseMembershipRequest) (*biz.Membership, error) {
	ctx, span := tracing.StartSpan(ctx, "MembershipService.Purchase")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{
		"customer_id": req.CustomerID,
		"plan_id":     req.PlanID,
	})

	start, err := parseDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	s.logger.WithContext(ctx).Infof("Received Purchase request for customer %d, plan %d", req.CustomerID, req.PlanID)
	return s.uc.Purchase(ctx, &biz.PurchaseRequest{
		CustomerID: req.CustomerID,
		PlanID:     req.PlanID,
		StartDate:  start,
		AutoRenew:  req.AutoRenew,
	})
}

func (s *MembershipService) Current(ctx context.Context, req *CustomerIDRequest) (*biz.CurrentMembership, error) {
	if err := requireSelfOrStaff(ctx, req.ID); err != nil {
		return nil, err
	}
	return s.uc.Current(ctx, req.ID)
}

func (s *MembershipService) ListByCustomer(ctx context.Context, req *CustomerIDRequest) (*ListMembershipsReply, error) {
	memberships, err := s.uc.ListByCustomer(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return &ListMembershipsReply{Memberships: memberships}, nil
}

func (s *MembershipService) Cancel(ctx context.Context, req *MembershipIDRequest) (*biz.Membership, error) {
	s.logger.WithContext(ctx).Infof("Received Cancel request for membership %d", req.ID)
	return s.uc.Cancel(ctx, req.ID)
}

// RegisterMembershipServiceHTTPServer 注册会员路由
func RegisterMembershipServiceHTTPServer(s *http.Server, srv *MembershipService) {
	r := s.Route("/")
	r.POST("/api/memberships/purchase", func(ctx http.Context) error {
		var in PurchaseMembershipRequest
		if err := bind(ctx, &in); err != nil {
			return err
		}
		return handle(ctx, OperationMembershipServicePurchase, &in, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Purchase(ctx, req.(*PurchaseMembershipRequest))
		})
	})
	r.GET("/api/memberships/current/{customerId}", func(ctx http.Context) error {
		id, err := pathID(ctx, "customerId")
		if err != nil {
			return err
		}
		return handle(ctx, OperationMembershipServiceCurrent, &CustomerIDRequest{ID: id}, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Current(ctx, req.(*CustomerIDRequest))
		})
	})
	r.GET("/api/memberships/customer/{customerId}", func(ctx http.Context) error {
		id, err := pathID(ctx, "customerId")
		if err != nil {
			return err
		}
		return handle(ctx, OperationMembershipServiceListByCustomer, &CustomerIDRequest{ID: id}, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.ListByCustomer(ctx, req.(*CustomerIDRequest))
		})
	})
	r.POST("/api/memberships/{id}/cancel", func(ctx http.Context) error {
		id, err := pathID(ctx, "id")
		if err != nil {
			return err
		}
		return handle(ctx, OperationMembershipServiceCancel, &MembershipIDRequest{ID: id}, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Cancel(ctx, req.(*MembershipIDRequest))
		})
	})
}
