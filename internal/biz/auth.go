package biz

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"factfit/internal/conf"
	"factfit/internal/pkg/tracing"
)

var (
	// ErrInvalidCredentials 当提供的凭证无效时返回
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAuthNotConfigured 未配置 JWT 密钥
	ErrAuthNotConfigured = errors.New("jwt secret not configured")
)

// accessTokenTTL 访问令牌有效期
const accessTokenTTL = 12 * time.Hour

// Claims 访问令牌声明，Subject 为客户 id
type Claims struct {
	jwt.RegisteredClaims
	Role       string `json:"role"`
	CustomerID int64  `json:"customer_id"`
}

// IsStaff 是否为前台或管理员
func (c *Claims) IsStaff() bool {
	return c.Role == RoleStaff
}

// Token 登录返回的访问令牌
type Token struct {
	AccessToken string
	ExpiresIn   int32
	Role        string
	CustomerID  int64
}

// AuthUsecase 登录并签发访问令牌
type AuthUsecase struct {
	customers CustomerRepository
	secret    []byte
	now       func() time.Time
	log       *log.Helper
}

// NewAuthUsecase 创建认证业务逻辑实例
func NewAuthUsecase(customers CustomerRepository, c *conf.Auth, logger log.Logger) *AuthUsecase {
	return &AuthUsecase{
		customers: customers,
		secret:    []byte(c.JwtSecret),
		now:       time.Now,
		log:       log.NewHelper(logger),
	}
}

// Login 校验用户名密码并签发 HS256 访问令牌
func (uc *AuthUsecase) Login(ctx context.Context, username, password string) (*Token, error) {
	ctx, span := tracing.StartSpan(ctx, "AuthUsecase.Login")
	defer span.End()

	uc.log.WithContext(ctx).Infof("Login attempt for username: %s", username)

	if len(uc.secret) == 0 {
		return nil, ErrAuthNotConfigured
	}
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	customer, err := uc.customers.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			uc.log.WithContext(ctx).Warnf("Unknown username: %s", username)
			return nil, ErrInvalidCredentials // 不暴露用户是否存在
		}
		return nil, storageError("get customer by username", err)
	}
	if !checkPasswordHash(password, customer.PasswordHash) {
		uc.log.WithContext(ctx).Warnf("Invalid password for customer id: %d", customer.ID)
		return nil, ErrInvalidCredentials
	}

	token, err := uc.sign(customer)
	if err != nil {
		uc.log.WithContext(ctx).Errorf("Failed to sign access token for customer id: %d, error: %v", customer.ID, err)
		return nil, err
	}

	uc.log.WithContext(ctx).Infof("Login successful for customer id: %d", customer.ID)
	return token, nil
}

func (uc *AuthUsecase) sign(customer *Customer) (*Token, error) {
	now := uc.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(customer.ID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
		Role:       customer.Role,
		CustomerID: customer.ID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(uc.secret)
	if err != nil {
		return nil, err
	}
	return &Token{
		AccessToken: signed,
		ExpiresIn:   int32(accessTokenTTL / time.Second),
		Role:        customer.Role,
		CustomerID:  customer.ID,
	}, nil
}
