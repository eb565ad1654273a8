package biz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"

	"factfit/internal/conf"
	"factfit/internal/pkg/tracing"
)

// 训练目标类型
const (
	// GoalDistance 目标为累计距离，单位公里
	GoalDistance = "distance"
	// GoalDuration 目标为累计时长，单位分钟
	GoalDuration = "duration"
)

// WorkoutLog 训练记录表
type WorkoutLog struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	CustomerID int64     `gorm:"column:customer_id;not null;index" json:"customer_id"`
	Date       time.Time `gorm:"column:date;not null" json:"date"`
	Activity   string    `gorm:"column:activity;size:64;not null" json:"activity"`
	Distance   float64   `gorm:"column:distance;not null" json:"distance"`
	Duration   int64     `gorm:"column:duration;not null" json:"duration"`
	CreatedAt  time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName 指定表名
func (WorkoutLog) TableName() string {
	return "workout_logs"
}

// WorkoutGoal 训练目标表，每个客户至多一个
type WorkoutGoal struct {
	ID          int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	CustomerID  int64      `gorm:"column:customer_id;not null;uniqueIndex" json:"customer_id"`
	Type        string     `gorm:"column:type;size:16;not null" json:"type"`
	Target      float64    `gorm:"column:target;not null" json:"target"`
	StartDate   time.Time  `gorm:"column:start_date;not null" json:"start_date"`
	EndDate     time.Time  `gorm:"column:end_date;not null" json:"end_date"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName 指定表名
func (WorkoutGoal) TableName() string {
	return "workout_goals"
}

// WorkoutTotals 一段时间内的训练累计
type WorkoutTotals struct {
	Distance float64 `gorm:"column:distance"`
	Duration int64   `gorm:"column:duration"`
}

// WorkoutRepository 训练记录与目标数据访问接口
type WorkoutRepository interface {
	CreateLog(ctx context.Context, entry *WorkoutLog) error
	// ListLogs 按训练日期倒序
	ListLogs(ctx context.Context, customerID int64) ([]*WorkoutLog, error)
	// SumLogs 训练日期在 [from, to] 内的累计
	SumLogs(ctx context.Context, customerID int64, from, to time.Time) (*WorkoutTotals, error)
	// GetGoal 客户没有目标时返回 gorm.ErrRecordNotFound
	GetGoal(ctx context.Context, customerID int64) (*WorkoutGoal, error)
	// SaveGoal ID 为 0 时插入，否则整行更新
	SaveGoal(ctx context.Context, goal *WorkoutGoal) error
	DeleteGoal(ctx context.Context, customerID int64) (int64, error)
	// MarkGoalCompleted 仅当目标尚未完成时生效，返回受影响行数
	MarkGoalCompleted(ctx context.Context, id int64, at time.Time) (int64, error)
	DeleteByCustomer(ctx context.Context, customerID int64) error
}

// WorkoutLogRequest 新增训练记录
type WorkoutLogRequest struct {
	Date     time.Time
	Activity string
	Distance float64
	Duration int64
}

// WorkoutGoalRequest 设置训练目标
type WorkoutGoalRequest struct {
	Type      string
	Target    float64
	StartDate time.Time
	EndDate   time.Time
}

// GoalProgress 目标进度
type GoalProgress struct {
	Goal         *WorkoutGoal `json:"goal"`
	Achieved     float64      `json:"achieved"`
	Completed    bool         `json:"completed"`
	RewardLotID  int64        `json:"reward_lot_id,omitempty"`
	RewardPoints int64        `json:"reward_points,omitempty"`
}

// WorkoutOverview 客户训练概览
type WorkoutOverview struct {
	CustomerID  int64         `json:"customer_id"`
	TotalPoints int64         `json:"total_points"`
	Progress    *GoalProgress `json:"progress"`
	Logs        []*WorkoutLog `json:"logs"`
}

// WorkoutUsecase 训练记录与目标
//
// 记录落在目标时间窗口内且累计达到目标时，目标标记为完成并按配置奖励一个积分批次。
type WorkoutUsecase struct {
	workouts  WorkoutRepository
	customers CustomerRepository
	history   HistoryRepository
	ledger    *PointLedgerUsecase
	tx        Transaction
	reward    int64
	now       func() time.Time
	log       *log.Helper
}

// NewWorkoutUsecase 创建训练业务逻辑实例
func NewWorkoutUsecase(workouts WorkoutRepository, customers CustomerRepository, history HistoryRepository,
	ledger *PointLedgerUsecase, tx Transaction, c *conf.Workout, logger log.Logger) *WorkoutUsecase {
	return &WorkoutUsecase{
		workouts:  workouts,
		customers: customers,
		history:   history,
		ledger:    ledger,
		tx:        tx,
		reward:    c.GoalRewardPoints,
		now:       time.Now,
		log:       log.NewHelper(logger),
	}
}

// Overview 目标进度、全部训练记录与积分余额
func (uc *WorkoutUsecase) Overview(ctx context.Context, customerID int64) (*WorkoutOverview, error) {
	ctx, span := tracing.StartSpan(ctx, "WorkoutUsecase.Overview")
	defer span.End()

	if _, err := uc.customers.GetByID(ctx, customerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, storageError("get customer", err)
	}

	logs, err := uc.workouts.ListLogs(ctx, customerID)
	if err != nil {
		return nil, storageError("list workout logs", err)
	}
	balance, err := uc.ledger.Balance(ctx, customerID)
	if err != nil {
		return nil, err
	}
	overview := &WorkoutOverview{CustomerID: customerID, TotalPoints: balance, Logs: logs}

	goal, err := uc.workouts.GetGoal(ctx, customerID)
	switch {
	case err == nil:
		progress, err := uc.progress(ctx, goal)
		if err != nil {
			return nil, err
		}
		overview.Progress = progress
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, storageError("get workout goal", err)
	}
	return overview, nil
}

// AddLog 新增训练记录并检查目标是否完成
func (uc *WorkoutUsecase) AddLog(ctx context.Context, customerID int64, req *WorkoutLogRequest) (*WorkoutLog, *GoalProgress, error) {
	ctx, span := tracing.StartSpan(ctx, "WorkoutUsecase.AddLog")
	defer span.End()

	tracing.AddSpanTags(ctx, map[string]interface{}{
		"customer_id": customerID,
		"activity":    req.Activity,
	})

	activity := strings.TrimSpace(req.Activity)
	if req.Date.IsZero() || activity == "" || req.Distance < 0 || req.Duration < 0 ||
		(req.Distance == 0 && req.Duration == 0) {
		return nil, nil, fmt.Errorf("%w: date, activity and a positive distance or duration are required", ErrInvalidWorkout)
	}

	var (
		entry    *WorkoutLog
		progress *GoalProgress
	)
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		if err := lockCustomer(ctx, uc.customers, customerID); err != nil {
			return err
		}
		entry = &WorkoutLog{
			CustomerID: customerID,
			Date:       req.Date,
			Activity:   activity,
			Distance:   req.Distance,
			Duration:   req.Duration,
			CreatedAt:  uc.now(),
		}
		if err := uc.workouts.CreateLog(ctx, entry); err != nil {
			return storageError("create workout log", err)
		}

		goal, err := uc.workouts.GetGoal(ctx, customerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return storageError("get workout goal", err)
		}
		progress, err = uc.progress(ctx, goal)
		if err != nil {
			return err
		}
		if goal.CompletedAt != nil || !progress.Completed || !withinGoal(goal, entry.Date) {
			return nil
		}
		return uc.complete(ctx, goal, progress)
	})
	if err != nil {
		uc.log.WithContext(ctx).Errorf("Failed to add workout log for customer %d: %v", customerID, err)
		return nil, nil, err
	}

	uc.log.WithContext(ctx).Infof("Workout log %d added for customer %d", entry.ID, customerID)
	return entry, progress, nil
}

// complete 标记目标完成并奖励积分，调用方已在事务中锁定客户行
func (uc *WorkoutUsecase) complete(ctx context.Context, goal *WorkoutGoal, progress *GoalProgress) error {
	now := uc.now()
	affected, err := uc.workouts.MarkGoalCompleted(ctx, goal.ID, now)
	if err != nil {
		return storageError("complete workout goal", err)
	}
	if affected == 0 {
		return nil
	}
	goal.CompletedAt = &now

	details := fmt.Sprintf("%s goal of %g reached", goal.Type, goal.Target)
	if uc.reward <= 0 {
		return appendHistory(ctx, uc.history, goal.CustomerID, ActionGoalCompleted, details)
	}
	lot, err := uc.ledger.credit(ctx, goal.CustomerID, uc.reward, ActionGoalCompleted,
		fmt.Sprintf("%s, earned %d points", details, uc.reward))
	if err != nil {
		return err
	}
	uc.ledger.metrics.PointsCredited(uc.reward)
	progress.RewardLotID = lot.ID
	progress.RewardPoints = uc.reward
	uc.log.WithContext(ctx).Infof("Customer %d completed goal %d, credited lot %d", goal.CustomerID, goal.ID, lot.ID)
	return nil
}

func (uc *WorkoutUsecase) progress(ctx context.Context, goal *WorkoutGoal) (*GoalProgress, error) {
	totals, err := uc.workouts.SumLogs(ctx, goal.CustomerID, goal.StartDate, goal.EndDate)
	if err != nil {
		return nil, storageError("sum workout logs", err)
	}
	achieved := totals.Distance
	if goal.Type == GoalDuration {
		achieved = float64(totals.Duration)
	}
	return &GoalProgress{
		Goal:      goal,
		Achieved:  achieved,
		Completed: goal.CompletedAt != nil || achieved >= goal.Target,
	}, nil
}

// SetGoal 设置或替换训练目标，替换后完成状态清空
func (uc *WorkoutUsecase) SetGoal(ctx context.Context, customerID int64, req *WorkoutGoalRequest) (*WorkoutGoal, error) {
	ctx, span := tracing.StartSpan(ctx, "WorkoutUsecase.SetGoal")
	defer span.End()

	if req.Type != GoalDistance && req.Type != GoalDuration {
		return nil, fmt.Errorf("%w: goal type must be %s or %s", ErrInvalidWorkout, GoalDistance, GoalDuration)
	}
	if req.Target <= 0 || req.StartDate.IsZero() || req.EndDate.IsZero() {
		return nil, fmt.Errorf("%w: target, start date and end date are required", ErrInvalidWorkout)
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, fmt.Errorf("%w: end date before start date", ErrInvalidWorkout)
	}

	var goal *WorkoutGoal
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		if err := lockCustomer(ctx, uc.customers, customerID); err != nil {
			return err
		}
		now := uc.now()
		existing, err := uc.workouts.GetGoal(ctx, customerID)
		switch {
		case err == nil:
			goal = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			goal = &WorkoutGoal{CustomerID: customerID, CreatedAt: now}
		default:
			return storageError("get workout goal", err)
		}
		goal.Type = req.Type
		goal.Target = req.Target
		goal.StartDate = req.StartDate
		goal.EndDate = req.EndDate
		goal.CompletedAt = nil
		goal.UpdatedAt = now
		if err := uc.workouts.SaveGoal(ctx, goal); err != nil {
			return storageError("save workout goal", err)
		}
		return appendHistory(ctx, uc.history, customerID, ActionGoalSet,
			fmt.Sprintf("%s %g from %s to %s", goal.Type, goal.Target,
				goal.StartDate.Format(time.DateOnly), goal.EndDate.Format(time.DateOnly)))
	})
	if err != nil {
		uc.log.WithContext(ctx).Errorf("Failed to set workout goal for customer %d: %v", customerID, err)
		return nil, err
	}
	return goal, nil
}

// DeleteGoal 删除训练目标
func (uc *WorkoutUsecase) DeleteGoal(ctx context.Context, customerID int64) error {
	affected, err := uc.workouts.DeleteGoal(ctx, customerID)
	if err != nil {
		return storageError("delete workout goal", err)
	}
	if affected == 0 {
		return ErrGoalNotFound
	}
	return nil
}

// withinGoal 训练日期是否落在目标窗口内，两端都包含
func withinGoal(goal *WorkoutGoal, day time.Time) bool {
	return !day.Before(goal.StartDate) && !day.After(goal.EndDate)
}
