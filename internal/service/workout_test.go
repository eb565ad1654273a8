package service

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"factfit/internal/biz"
	"factfit/internal/conf"
)

// MockWorkoutRepository 只实现用到的方法
type MockWorkoutRepository struct {
	biz.WorkoutRepository
	mock.Mock
}

func (m *MockWorkoutRepository) CreateLog(ctx context.Context, entry *biz.WorkoutLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockWorkoutRepository) GetGoal(ctx context.Context, customerID int64) (*biz.WorkoutGoal, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*biz.WorkoutGoal), args.Error(1)
}

func (m *MockWorkoutRepository) DeleteGoal(ctx context.Context, customerID int64) (int64, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).(int64), args.Error(1)
}

func newWorkoutServer(workouts *MockWorkoutRepository, customers *MockCustomerRepository, claims *biz.Claims) *http.Server {
	ledger := biz.NewPointLedgerUsecase(nil, customers, nil, passTx{}, nopPointMetrics{}, log.DefaultLogger)
	uc := biz.NewWorkoutUsecase(workouts, customers, nil, ledger, passTx{}, &conf.Workout{GoalRewardPoints: 100}, log.DefaultLogger)
	srv := http.NewServer(withClaimsMiddleware(claims))
	RegisterWorkoutServiceHTTPServer(srv, NewWorkoutService(uc, log.DefaultLogger))
	return srv
}

func TestWorkoutService_AddLog(t *testing.T) {
	member := &biz.Claims{Role: biz.RoleCustomer, CustomerID: 5}
	tests := []struct {
		name       string
		claims     *biz.Claims
		body       string
		stored     bool
		wantCode   int
		wantReason string
	}{
		{
			name:     "没有目标时只记录",
			claims:   member,
			body:     `{"date":"2025-08-03","activity":"run","distance":5.5}`,
			stored:   true,
			wantCode: nethttp.StatusOK,
		},
		{
			name:       "日期为空白",
			claims:     member,
			body:       `{"date":"  ","activity":"run","distance":5}`,
			wantCode:   nethttp.StatusBadRequest,
			wantReason: ReasonInvalidRequest,
		},
		{
			name:       "日期格式非法",
			claims:     member,
			body:       `{"date":"03/08/2025","activity":"run","distance":5}`,
			wantCode:   nethttp.StatusBadRequest,
			wantReason: ReasonInvalidRequest,
		},
		{
			name:       "距离和时长都为零",
			claims:     member,
			body:       `{"date":"2025-08-03","activity":"run"}`,
			wantCode:   nethttp.StatusBadRequest,
			wantReason: ReasonInvalidWorkout,
		},
		{
			name:       "未登录",
			body:       `{"date":"2025-08-03","activity":"run","distance":5}`,
			wantCode:   nethttp.StatusUnauthorized,
			wantReason: ReasonUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			workouts := new(MockWorkoutRepository)
			customers := new(MockCustomerRepository)
			if tt.stored {
				customers.On("LockByID", mock.Anything, int64(5)).Return(nil)
				workouts.On("CreateLog", mock.Anything, mock.MatchedBy(func(l *biz.WorkoutLog) bool {
					return l.CustomerID == 5 && l.Distance == 5.5 && l.Date.Equal(time.Date(2025, 8, 3, 0, 0, 0, 0, time.UTC))
				})).Run(func(args mock.Arguments) {
					args.Get(1).(*biz.WorkoutLog).ID = 31
				}).Return(nil)
				workouts.On("GetGoal", mock.Anything, int64(5)).Return(nil, gorm.ErrRecordNotFound)
			}
			srv := newWorkoutServer(workouts, customers, tt.claims)

			req := httptest.NewRequest(nethttp.MethodPost, "/api/workout/log", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantReason != "" {
				var body errorBody
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, tt.wantReason, body.Reason)
				workouts.AssertNotCalled(t, "CreateLog", mock.Anything, mock.Anything)
				return
			}
			var reply WorkoutLogReply
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
			assert.Equal(t, int64(31), reply.Log.ID)
			assert.Nil(t, reply.Progress)
			workouts.AssertExpectations(t)
			customers.AssertExpectations(t)
		})
	}
}

func TestWorkoutService_DeleteGoal(t *testing.T) {
	tests := []struct {
		name       string
		affected   int64
		wantCode   int
		wantReason string
	}{
		{name: "删除成功", affected: 1, wantCode: nethttp.StatusOK},
		{name: "没有目标", affected: 0, wantCode: nethttp.StatusNotFound, wantReason: ReasonGoalNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			workouts := new(MockWorkoutRepository)
			workouts.On("DeleteGoal", mock.Anything, int64(5)).Return(tt.affected, nil)
			srv := newWorkoutServer(workouts, new(MockCustomerRepository), &biz.Claims{Role: biz.RoleCustomer, CustomerID: 5})

			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(nethttp.MethodDelete, "/api/workout/goal", nil))

			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantReason != "" {
				var body errorBody
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, tt.wantReason, body.Reason)
			}
			workouts.AssertExpectations(t)
		})
	}
}
