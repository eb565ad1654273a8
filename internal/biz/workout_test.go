package biz

import (
	"context"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factfit/internal/conf"
)

func newTestWorkouts(s *memStore, reward int64, now time.Time) *WorkoutUsecase {
	uc := NewWorkoutUsecase(memWorkoutRepo{s}, memCustomerRepo{s}, memHistoryRepo{s}, newTestLedger(s),
		reentrantTx{}, &conf.Workout{GoalRewardPoints: reward}, log.DefaultLogger)
	uc.now = func() time.Time { return now }
	return uc
}

func TestWorkout_AddLogCompletesGoal(t *testing.T) {
	tests := []struct {
		name          string
		goalType      string
		target        float64
		prior         *WorkoutLog
		req           *WorkoutLogRequest
		reward        int64
		wantCompleted bool
		wantLots      int
		wantAchieved  float64
	}{
		{
			name:     "距离目标达成",
			goalType: GoalDistance, target: 10,
			prior:         &WorkoutLog{CustomerID: 1, Date: date(2025, 8, 2), Activity: "run", Distance: 6},
			req:           &WorkoutLogRequest{Date: date(2025, 8, 3), Activity: "run", Distance: 4},
			reward:        100,
			wantCompleted: true, wantLots: 1, wantAchieved: 10,
		},
		{
			name:     "时长目标未达成",
			goalType: GoalDuration, target: 120,
			req:           &WorkoutLogRequest{Date: date(2025, 8, 3), Activity: "swim", Duration: 45},
			reward:        100,
			wantCompleted: false, wantLots: 0, wantAchieved: 45,
		},
		{
			name:     "窗口外的记录不触发完成",
			goalType: GoalDistance, target: 5,
			prior:         &WorkoutLog{CustomerID: 1, Date: date(2025, 8, 2), Activity: "run", Distance: 6},
			req:           &WorkoutLogRequest{Date: date(2025, 9, 3), Activity: "run", Distance: 4},
			reward:        100,
			wantCompleted: true, wantLots: 0, wantAchieved: 6,
		},
		{
			name:     "奖励为零时只记历史",
			goalType: GoalDistance, target: 3,
			req:           &WorkoutLogRequest{Date: date(2025, 8, 3), Activity: "walk", Distance: 3},
			reward:        0,
			wantCompleted: true, wantLots: 0, wantAchieved: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newMemStore()
			s.addCustomer(1)
			s.goals[1] = &WorkoutGoal{
				ID: s.id(), CustomerID: 1, Type: tt.goalType, Target: tt.target,
				StartDate: date(2025, 8, 1), EndDate: date(2025, 8, 31),
			}
			if tt.prior != nil {
				tt.prior.ID = s.id()
				s.workoutLogs = append(s.workoutLogs, tt.prior)
			}
			uc := newTestWorkouts(s, tt.reward, date(2025, 8, 3))

			entry, progress, err := uc.AddLog(context.Background(), 1, tt.req)
			require.NoError(t, err)
			require.NotNil(t, progress)
			assert.NotZero(t, entry.ID)
			assert.Equal(t, tt.wantCompleted, progress.Completed)
			assert.Equal(t, tt.wantAchieved, progress.Achieved)

			lots := s.lotsOf(1)
			require.Len(t, lots, tt.wantLots)
			if tt.wantLots > 0 {
				assert.Equal(t, tt.reward, lots[0].Points)
				assert.Equal(t, lots[0].ID, progress.RewardLotID)
				assert.NotNil(t, s.goals[1].CompletedAt)
			}
		})
	}
}

func TestWorkout_GoalRewardedOnce(t *testing.T) {
	s := newMemStore()
	s.addCustomer(1)
	s.goals[1] = &WorkoutGoal{
		ID: s.id(), CustomerID: 1, Type: GoalDistance, Target: 5,
		StartDate: date(2025, 8, 1), EndDate: date(2025, 8, 31),
	}
	uc := newTestWorkouts(s, 50, date(2025, 8, 10))
	ctx := context.Background()

	for _, day := range []int{3, 4, 5} {
		_, _, err := uc.AddLog(ctx, 1, &WorkoutLogRequest{Date: date(2025, 8, day), Activity: "run", Distance: 5})
		require.NoError(t, err)
	}

	lots := s.lotsOf(1)
	require.Len(t, lots, 1)
	assert.Equal(t, int64(50), lots[0].Points)

	var completed int
	for _, h := range s.historyOf(1) {
		if h.Action == ActionGoalCompleted {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
}

func TestWorkout_AddLogValidation(t *testing.T) {
	tests := []struct {
		name    string
		id      int64
		req     *WorkoutLogRequest
		wantErr error
	}{
		{name: "缺少日期", id: 1, req: &WorkoutLogRequest{Activity: "run", Distance: 3}, wantErr: ErrInvalidWorkout},
		{name: "缺少活动", id: 1, req: &WorkoutLogRequest{Date: date(2025, 8, 1), Activity: "  ", Distance: 3}, wantErr: ErrInvalidWorkout},
		{name: "距离和时长都为零", id: 1, req: &WorkoutLogRequest{Date: date(2025, 8, 1), Activity: "run"}, wantErr: ErrInvalidWorkout},
		{name: "距离为负", id: 1, req: &WorkoutLogRequest{Date: date(2025, 8, 1), Activity: "run", Distance: -1, Duration: 10}, wantErr: ErrInvalidWorkout},
		{name: "客户不存在", id: 9, req: &WorkoutLogRequest{Date: date(2025, 8, 1), Activity: "run", Distance: 3}, wantErr: ErrCustomerNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newMemStore()
			s.addCustomer(1)
			uc := newTestWorkouts(s, 100, date(2025, 8, 1))

			_, _, err := uc.AddLog(context.Background(), tt.id, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, s.workoutLogs)
		})
	}
}

func TestWorkout_SetGoal(t *testing.T) {
	tests := []struct {
		name    string
		req     *WorkoutGoalRequest
		wantErr error
	}{
		{name: "距离目标", req: &WorkoutGoalRequest{Type: GoalDistance, Target: 42, StartDate: date(2025, 8, 1), EndDate: date(2025, 8, 31)}},
		{name: "单日目标", req: &WorkoutGoalRequest{Type: GoalDuration, Target: 60, StartDate: date(2025, 8, 1), EndDate: date(2025, 8, 1)}},
		{name: "未知类型", req: &WorkoutGoalRequest{Type: "calories", Target: 500, StartDate: date(2025, 8, 1), EndDate: date(2025, 8, 31)}, wantErr: ErrInvalidWorkout},
		{name: "目标为零", req: &WorkoutGoalRequest{Type: GoalDistance, StartDate: date(2025, 8, 1), EndDate: date(2025, 8, 31)}, wantErr: ErrInvalidWorkout},
		{name: "结束早于开始", req: &WorkoutGoalRequest{Type: GoalDistance, Target: 5, StartDate: date(2025, 8, 31), EndDate: date(2025, 8, 1)}, wantErr: ErrInvalidWorkout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newMemStore()
			s.addCustomer(1)
			uc := newTestWorkouts(s, 100, date(2025, 8, 1))

			goal, err := uc.SetGoal(context.Background(), 1, tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, s.goals)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.req.Type, goal.Type)
			assert.Equal(t, tt.req.Target, goal.Target)
			assert.Contains(t, s.goals, int64(1))

			hist := s.historyOf(1)
			require.Len(t, hist, 1)
			assert.Equal(t, ActionGoalSet, hist[0].Action)
		})
	}
}

func TestWorkout_SetGoalResetsCompletion(t *testing.T) {
	s := newMemStore()
	s.addCustomer(1)
	done := date(2025, 7, 20)
	s.goals[1] = &WorkoutGoal{ID: s.id(), CustomerID: 1, Type: GoalDistance, Target: 5, CompletedAt: &done}
	uc := newTestWorkouts(s, 100, date(2025, 8, 1))

	goal, err := uc.SetGoal(context.Background(), 1, &WorkoutGoalRequest{
		Type: GoalDistance, Target: 20, StartDate: date(2025, 8, 1), EndDate: date(2025, 8, 31),
	})
	require.NoError(t, err)

	assert.Nil(t, goal.CompletedAt)
	assert.Nil(t, s.goals[1].CompletedAt)
	assert.Equal(t, float64(20), s.goals[1].Target)
	assert.Equal(t, goal.ID, s.goals[1].ID)
}

func TestWorkout_DeleteGoal(t *testing.T) {
	s := newMemStore()
	s.addCustomer(1)
	s.goals[1] = &WorkoutGoal{ID: s.id(), CustomerID: 1, Type: GoalDistance, Target: 5}
	uc := newTestWorkouts(s, 100, date(2025, 8, 1))
	ctx := context.Background()

	require.NoError(t, uc.DeleteGoal(ctx, 1))
	assert.ErrorIs(t, uc.DeleteGoal(ctx, 1), ErrGoalNotFound)
}

func TestWorkout_Overview(t *testing.T) {
	s := newMemStore()
	s.addCustomer(1)
	s.addLot(1, 70)
	s.goals[1] = &WorkoutGoal{
		ID: s.id(), CustomerID: 1, Type: GoalDuration, Target: 100,
		StartDate: date(2025, 8, 1), EndDate: date(2025, 8, 31),
	}
	s.workoutLogs = []*WorkoutLog{
		{ID: s.id(), CustomerID: 1, Date: date(2025, 8, 2), Activity: "run", Duration: 30},
		{ID: s.id(), CustomerID: 1, Date: date(2025, 8, 5), Activity: "swim", Duration: 40},
		{ID: s.id(), CustomerID: 1, Date: date(2025, 7, 30), Activity: "walk", Duration: 90},
	}
	uc := newTestWorkouts(s, 100, date(2025, 8, 6))

	overview, err := uc.Overview(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, int64(70), overview.TotalPoints)
	require.NotNil(t, overview.Progress)
	assert.Equal(t, float64(70), overview.Progress.Achieved)
	assert.False(t, overview.Progress.Completed)
	require.Len(t, overview.Logs, 3)
	assert.Equal(t, date(2025, 8, 5), overview.Logs[0].Date)

	_, err = uc.Overview(context.Background(), 9)
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}
