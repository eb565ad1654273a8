package service

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	"factfit/internal/biz"
	"factfit/internal/pkg/tracing"
)

const OperationAuthServiceLogin = "/factfit.public.AuthService/Login"

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
}

// LoginReply 登录响应
type LoginReply struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int32  `json:"expires_in"`
	Role        string `json:"role"`
	CustomerID  int64  `json:"customer_id"`
}

// AuthService 登录接口
type AuthService struct {
	authUsecase *biz.AuthUsecase
	logger      *log.Helper
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(authUsecase *biz.AuthUsecase, logger log.Logger) *AuthService {
	return &AuthService{
		authUsecase: authUsecase,
		logger:      log.NewHelper(logger),
	}
}

// Login 用户登录
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginReply, error) {
	ctx, span := tracing.StartSpan(ctx, "AuthService.Login")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{
		"operation": "login",
		"username":  req.Username,
	})

	s.logger.WithContext(ctx).Infof("Received Login request for username: %s", req.Username)

	token, err := s.authUsecase.Login(ctx, req.Username, req.Password)
	if err != nil {
		s.logger.WithContext(ctx).Warnf("Login failed for username: %s, error: %v", req.Username, err)
		return nil, err
	}

	s.logger.WithContext(ctx).Infof("Login completed successfully for customer id: %d", token.CustomerID)
	return &LoginReply{
		AccessToken: token.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   token.ExpiresIn,
		Role:        token.Role,
		CustomerID:  token.CustomerID,
	}, nil
}

// RegisterAuthServiceHTTPServer 注册登录路由
func RegisterAuthServiceHTTPServer(s *http.Server, srv *AuthService) {
	r := s.Route("/")
	r.POST("/api/auth/login", func(ctx http.Context) error {
		var in LoginRequest
		if err := bind(ctx, &in); err != nil {
			return err
		}
		return handle(ctx, OperationAuthServiceLogin, &in, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.Login(ctx, req.(*LoginRequest))
		})
	})
}
