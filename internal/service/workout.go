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
	OperationWorkoutServiceOverview   = "/factfit.customer.WorkoutService/Overview"
	OperationWorkoutServiceSetGoal    = "/factfit.customer.WorkoutService/SetGoal"
	OperationWorkoutServiceDeleteGoal = "/factfit.customer.WorkoutService/DeleteGoal"
	OperationWorkoutServiceAddLog     = "/factfit.customer.WorkoutService/AddLog"
)

// WorkoutGoalRequest 设置训练目标，日期为 YYYY-MM-DD 或 RFC3339
type WorkoutGoalRequest struct {
	Type      string  `json:"type" validate:"required,oneof=distance duration"`
	Target    float64 `json:"target" validate:"gt=0"`
	StartDate string  `json:"start_date" validate:"required"`
	EndDate   string  `json:"end_date" validate:"required"`
}

// WorkoutLogRequest 新增训练记录
type WorkoutLogRequest struct {
	Date     string  `json:"date" validate:"required"`
	Activity string  `json:"activity" validate:"required,max=64"`
	Distance float64 `json:"distance" validate:"gte=0"`
	Duration int64   `json:"duration" validate:"gte=0"`
}

// WorkoutLogReply 新增记录结果，progress 在没有目标时为空
type WorkoutLogReply struct {
	Log      *biz.WorkoutLog   `json:"log"`
	Progress *biz.GoalProgress `json:"progress"`
}

// WorkoutService 客户训练记录接口
type WorkoutService struct {
	uc     *biz.WorkoutUsecase
	logger *log.Helper
}

// NewWorkoutService 创建 WorkoutService 实例
func NewWorkoutService(uc *biz.WorkoutUsecase, logger log.Logger) *WorkoutService {
	return &WorkoutService{uc: uc, logger: log.NewHelper(logger)}
}

func (s *WorkoutService) Overview(ctx context.Context) (*biz.WorkoutOverview, error) {
	id, err := selfCustomerID(ctx)
	if err != nil {
		return nil, err
	}
	return s.uc.Overview(ctx, id)
}

func (s *WorkoutService) SetGoal(ctx context.Context, req *WorkoutGoalRequest) (*biz.WorkoutGoal, error) {
	ctx, span := tracing.StartSpan(ctx, "WorkoutService.SetGoal")
	defer span.End()

	id, err := selfCustomerID(ctx)
	if err != nil {
		return nil, err
	}
	start, err := requiredDate("start_date", req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := requiredDate("end_date", req.EndDate)
	if err != nil {
		return nil, err
	}
	return s.uc.SetGoal(ctx, id, &biz.WorkoutGoalRequest{
		Type:      req.Type,
		Target:    req.Target,
		StartDate: *start,
		EndDate:   *end,
	})
}

func (s *WorkoutService) DeleteGoal(ctx context.Context) (*DeleteReply, error) {
	id, err := selfCustomerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.uc.DeleteGoal(ctx, id); err != nil {
		return nil, err
	}
	return &DeleteReply{Deleted: true}, nil
}

func (s *WorkoutService) AddLog(ctx context.Context, req *WorkoutLogRequest) (*WorkoutLogReply, error) {
	ctx, span := tracing.StartSpan(ctx, "WorkoutService.AddLog")
	defer span.End()

	id, err := selfCustomerID(ctx)
	if err != nil {
		return nil, err
	}
	day, err := requiredDate("date", req.Date)
	if err != nil {
		return nil, err
	}
	entry, progress, err := s.uc.AddLog(ctx, id, &biz.WorkoutLogRequest{
		Date:     *day,
		Activity: req.Activity,
		Distance: req.Distance,
		Duration: req.Duration,
	})
	if err != nil {
		return nil, err
	}
	return &WorkoutLogReply{Log: entry, Progress: progress}, nil
}

// requiredDate 与 parseDate 相同，但空白串视为缺失
func requiredDate(field, raw string) (*time.Time, error) {
	t, err := parseDate(raw)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, badRequest("field %s is required", field)
	}
	return t, nil
}

// RegisterWorkoutServiceHTTPServer 注册训练记录路由
func RegisterWorkoutServiceHTTPServer(s *http.Server, srv *WorkoutService) {
	r := s.Route("/")
	r.GET("/api/workout", func(ctx http.Context) error {
		return handle(ctx, OperationWorkoutServiceOverview, nil, func(ctx context.Context, _ interface{}) (interface{}, error) {
			return srv.Overview(ctx)
		})
	})
	setGoal := func(ctx http.Context) error {
		var in WorkoutGoalRequest
		if err := bind(ctx, &in); err != nil {
			return err
		}
		return handle(ctx, OperationWorkoutServiceSetGoal, &in, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.SetGoal(ctx, req.(*WorkoutGoalRequest))
		})
	}
	r.POST("/api/workout/goal", setGoal)
	r.PUT("/api/workout/goal", setGoal)
	r.DELETE("/api/workout/goal", func(ctx http.Context) error {
		return handle(ctx, OperationWorkoutServiceDeleteGoal, nil, func(ctx context.Context, _ interface{}) (interface{}, error) {
			return srv.DeleteGoal(ctx)
		})
	})
	r.POST("/api/workout/log", func(ctx http.Context) error {
		var in WorkoutLogRequest
		if err := bind(ctx, &in); err != nil {
			return err
		}
		return handle(ctx, OperationWorkoutServiceAddLog, &in, func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.AddLog(ctx, req.(*WorkoutLogRequest))
		})
	})
}
