package data

import (
	"context"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redis/redis/v8"
	"github.com/google/wire"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"factfit/internal/biz"
	"factfit/internal/conf"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewTransaction,
	NewCustomerRepository,
	NewHistoryRepository,
	NewPointLotRepository,
	NewPlanRepository,
	NewMembershipRepository,
	NewProductRepository,
	NewShopOrderRepository,
	NewPaymentOrderRepository,
	NewEntryQRRepository,
	NewGatewayEventRepository,
	NewSalesRepository,
	NewWorkoutRepository,
	NewEntryTokenStore,
	NewNotificationDeduper,
	NewMidtransGateway,
	NewSendgridMailer,
)

const (
	driverMySQL    = "mysql"
	driverPostgres = "postgres"
)

// contextTxKey ctx 中保存当前事务的键
type contextTxKey struct{}

// Data 数据库与 Redis 客户端
type Data struct {
	rds    redis.UniversalClient
	db     *gorm.DB
	driver string
}

// NewData .
func NewData(c *conf.Data, logger log.Logger) (*Data, func(), error) {
	helper := log.NewHelper(logger)

	// 初始化Redis客户端
	rds := redis.NewClient(&redis.Options{
		Addr:         c.Redis.Addr,
		Password:     c.Redis.Password,
		DB:           c.Redis.DB,
		ReadTimeout:  c.Redis.ReadTimeout.Duration,
		WriteTimeout: c.Redis.WriteTimeout.Duration,
	})

	// 测试Redis连接
	if _, err := rds.Ping(context.Background()).Result(); err != nil {
		helper.Errorf("Failed to connect to Redis: %v", err)
		return nil, nil, err
	}

	dialector, err := openDialector(c.Database)
	if err != nil {
		helper.Errorf("Failed to select database driver: %v", err)
		_ = rds.Close()
		return nil, nil, err
	}

	// TranslateError 让唯一键冲突以 gorm.ErrDuplicatedKey 返回
	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		helper.Errorf("Failed to connect to %s: %v", c.Database.Driver, err)
		_ = rds.Close()
		return nil, nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		helper.Errorf("Failed to get underlying SQL DB: %v", err)
		_ = rds.Close()
		return nil, nil, err
	}
	if c.Database.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(c.Database.MaxOpenConns)
	}
	if c.Database.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(c.Database.MaxIdleConns)
	}
	if c.Database.ConnMaxLife.Duration > 0 {
		sqlDB.SetConnMaxLifetime(c.Database.ConnMaxLife.Duration)
	}

	if err = sqlDB.Ping(); err != nil {
		helper.Errorf("Failed to ping %s: %v", c.Database.Driver, err)
		_ = rds.Close()
		return nil, nil, err
	}

	d := &Data{
		rds:    rds,
		db:     db,
		driver: driverName(c.Database.Driver),
	}

	if c.Database.AutoMigrate {
		if err := d.Migrate(context.Background()); err != nil {
			helper.Errorf("Failed to migrate schema: %v", err)
			_ = rds.Close()
			_ = sqlDB.Close()
			return nil, nil, err
		}
		helper.Info("database schema migrated")
	}

	cleanup := func() {
		helper.Info("closing the data resources")
		_ = rds.Close()
		_ = sqlDB.Close()
	}
	return d, cleanup, nil
}

func driverName(driver string) string {
	if driver == "" {
		return driverMySQL
	}
	return driver
}

func openDialector(c *conf.Data_Database) (gorm.Dialector, error) {
	switch driverName(c.Driver) {
	case driverMySQL:
		return mysql.Open(c.Source), nil
	case driverPostgres:
		return postgres.Open(c.Source), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

// RedisClient 返回Redis客户端
func (d *Data) RedisClient() redis.UniversalClient {
	return d.rds
}

// DB 返回当前请求使用的连接，ctx 中有事务时返回事务
func (d *Data) DB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(contextTxKey{}).(*gorm.DB); ok {
		return tx
	}
	return d.db.WithContext(ctx)
}

// InTx 在事务中执行 fn，ctx 中已有事务时直接复用
func (d *Data) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(contextTxKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, contextTxKey{}, tx))
	})
}

// NewTransaction 把 Data 作为 biz.Transaction 提供
func NewTransaction(d *Data) biz.Transaction {
	return d
}
