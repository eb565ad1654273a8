package service

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	"factfit/internal/biz"
	"factfit/internal/pkg/tracing"
)

const (
	OperationProfileServiceGet            = "/factfit.customer.ProfileService/Get"
	OperationProfileServiceEdit           = "/factfit.customer.ProfileService/Edit"
	OperationProfileServiceChangePassword = "/factfit.customer.ProfileService/ChangePassword"
	OperationProfileServiceDelete         = "/factfit.customer.ProfileService/Delete"
)

// EditProfileRequest 修改用户名或邮箱
type EditProfileRequest struct {
	Username string `json:"username" validate:"max=64"`
	Email    string `json:"email" validate:"omitempty,email,max=191"`
}

// ChangePasswordRequest 修改密码
type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ChangePasswordReply 修改密码结果
type ChangePasswordReply struct {
	Changed bool `json:"changed"`
}

// ProfileService 客户自助资料接口，只作用于令牌中的客户
type ProfileService struct {
	uc     *biz.CustomerUsecase
	logger *log.Helper
}

// NewProfileService 创建 ProfileService 实例
func NewProfileService(uc *biz.CustomerUsecase, logger log.Logger) *ProfileService {
	return &ProfileService{uc: uc, logger: log.NewHelper(logger)}
}

func (s *ProfileService) Get(ctx context.Context) (*biz.Customer, error) {
	id, err := selfCustomerID(ctx)
	if err != nil {
		return nil, err
	}
	return s.uc.Get(ctx, id)
}

func (s *ProfileService) Edit(ctx context.Context, req *EditProfileRequest) (*biz.Customer, error) {
	ctx, span := tracing.StartSpan(ctx, "ProfileService.Edit")
	defer span.End()

	id, err := selfCustomerID(ctx)
	if err != nil {
		return nil, err
	}
	return s.uc.EditProfile(ctx, id, &biz.ProfileUpdate{Username: req.Username, Email: req.Email})
}

func (s *ProfileService) ChangePassword(ctx context.Context, req *ChangePasswordRequest) (*ChangePasswordReply, error) {
	ctx, span := tracing.StartSpan(ctx, "ProfileService.ChangePassword")
	defer span.End()

	id, err := selfCustomerID(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.WithContext(ctx).Infof("Received change password request for customer: %d", id)
	if err := s.uc.ChangePassword(ctx, id, &biz.PasswordChange{
		OldPassword:     req.OldPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	}); err != nil {
		return nil, err
	}
	return &ChangePasswordReply{Changed: true}, nil
}

func (s *ProfileService) Delete(ctx context.Context) (*DeleteReply, error) {
	id, err := selfCustomerID(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.WithContext(ctx).Infof("Customer %d deleting own account", id)
	if err := s.uc.Delete(ctx, id); err != nil {
		return nil, err
	}
	return &DeleteReply{Deleted: true}, nil
}

// RegisterProfileServiceHTTPServer 注册个人资料路由
func RegisterProfileServiceHTTPServer(s *http.Server, srv *ProfileService) {
	r := s.Route("/")
	r.GET("/api/profile", func(ctx http.Context) error {
		return handle(ctx, OperationProfileServiceGet, nil, func(ctx context.Context, _ interface{}) (interface{}, error) {
			return srv.Get(ctx)
		})
	})
	r.PUT("/api/profile/edit", func(ctx http.Context) error {
		var in EditProfileRequest
		if err := bind(ctx, &in); err != nil {
			return err
		}
		return handle(ctx, OperationProfileServiceEdit, &in, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Edit(ctx, req.(*EditProfileRequest))
		})
	})
	r.PUT("/api/profile/change-password", func(ctx http.Context) error {
		var in ChangePasswordRequest
		if err := bind(ctx, &in); err != nil {
			return err
		}
		return handle(ctx, OperationProfileServiceChangePassword, &in, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.ChangePassword(ctx, req.(*ChangePasswordRequest))
		})
	})
	r.DELETE("/api/profile", func(ctx http.Context) error {
		return handle(ctx, OperationProfileServiceDelete, nil, func(ctx context.Context, _ interface{}) (interface{}, error) {
			return srv.Delete(ctx)
		})
	})
}
