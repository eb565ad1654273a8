package biz

import (
	"context"
	"time"
)

// 历史记录动作
const (
	ActionPointsAdded         = "Points Added"
	ActionPointsSubtracted    = "Points Subtracted"
	ActionPointsEarned        = "Points Earned"
	ActionStatusUpdated       = "Status Updated"
	ActionMembershipPurchased = "Membership Purchased"
	ActionMembershipActivated = "Membership Activated"
	ActionMembershipCancelled = "Membership Cancelled"
	ActionOrderCash           = "Order Cash"
	ActionRedeemed            = "Redeemed"
	ActionPaymentConfirmed    = "Payment Confirmed"
	ActionPasswordChanged     = "Password Changed"
	ActionGoalSet             = "Goal Set"
	ActionGoalCompleted       = "Goal Completed"
)

// CustomerHistory 客户历史表，只追加不修改
type CustomerHistory struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	CustomerID int64     `gorm:"column:customer_id;not null;index" json:"customer_id"`
	Action     string    `gorm:"column:action;size:64;not null" json:"action"`
	Details    string    `gorm:"column:details;size:255" json:"details"`
	Timestamp  time.Time `gorm:"column:timestamp;not null" json:"timestamp"`
}

// TableName 指定表名
func (CustomerHistory) TableName() string {
	return "customer_history"
}

// HistoryRepository 客户历史数据访问接口
type HistoryRepository interface {
	Append(ctx context.Context, entry *CustomerHistory) error
	ListByCustomer(ctx context.Context, customerID int64) ([]*CustomerHistory, error)
	DeleteByCustomer(ctx context.Context, customerID int64) error
}

func appendHistory(ctx context.Context, repo HistoryRepository, customerID int64, action, details string) error {
	entry := &CustomerHistory{
		CustomerID: customerID,
		Action:     action,
		Details:    details,
		Timestamp:  time.Now(),
	}
	if err := repo.Append(ctx, entry); err != nil {
		return storageError("append history", err)
	}
	return nil
}
