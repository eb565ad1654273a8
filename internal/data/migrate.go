package data

import (
	"context"
	"fmt"

	"factfit/internal/biz"
)

const activeMembershipIndex = "uniq_active_membership"

// Migrate 建表并创建每个客户至多一条 Active 会员记录的唯一索引
func (d *Data) Migrate(ctx context.Context) error {
	db := d.db.WithContext(ctx)
	if err := db.AutoMigrate(
		&biz.Customer{},
		&biz.CustomerHistory{},
		&biz.PointLot{},
		&biz.Plan{},
		&biz.Membership{},
		&biz.Product{},
		&biz.ShopOrder{},
		&biz.ShopOrderItem{},
		&biz.PaymentOrder{},
		&biz.EntryQR{},
		&biz.PaymentGatewayEvent{},
		&biz.WorkoutLog{},
		&biz.WorkoutGoal{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	switch d.driver {
	case driverPostgres:
		return db.Exec(fmt.Sprintf(
			"CREATE UNIQUE INDEX IF NOT EXISTS %s ON memberships (customer_id) WHERE status = 'Active'",
			activeMembershipIndex)).Error
	default:
		// MySQL 8 不支持部分索引，用函数索引实现，非 Active 行的表达式为 NULL
		if db.Migrator().HasIndex(&biz.Membership{}, activeMembershipIndex) {
			return nil
		}
		return db.Exec(fmt.Sprintf(
			"CREATE UNIQUE INDEX %s ON memberships ((CASE WHEN status = 'Active' THEN customer_id END))",
			activeMembershipIndex)).Error
	}
}
