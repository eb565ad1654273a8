package biz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedPlan(s *memStore, duration string, active bool) *Plan {
	p := &Plan{ID: s.id(), Code: "monthly", Name: "Monthly", Price: 150000, DurationInterval: duration, Active: active}
	s.plans[p.ID] = p
	return p
}

func TestMembership_PurchaseQueuesBehindActive(t *testing.T) {
	s := newMemStore()
	s.addCustomer(1)
	plan := seedPlan(s, "1 month", true)
	s.memberships = append(s.memberships, &Membership{
		ID: s.id(), CustomerID: 1, PlanID: plan.ID,
		StartDate: date(2025, 8, 1), EndDate: date(2025, 9, 1), Status: MembershipActive,
	})
	uc := newTestSequencer(s, date(2025, 8, 15))

	m, err := uc.Purchase(context.Background(), &PurchaseRequest{CustomerID: 1, PlanID: plan.ID})
	require.NoError(t, err)

	assert.Equal(t, date(2025, 9, 1), m.StartDate)
	assert.Equal(t, date(2025, 10, 1), m.EndDate)
	assert.Equal(t, MembershipQueued, m.Status)

	hist := s.historyOf(1)
	require.Len(t, hist, 1)
	assert.Equal(t, ActionMembershipPurchased, hist[0].Action)
}

func TestMembership_PurchaseWithoutExisting(t *testing.T) {
	now := time.Date(2025, 8, 15, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		name       string
		start      *time.Time
		wantStart  time.Time
		wantStatus MembershipStatus
	}{
		{name: "不指定开始时间", start: nil, wantStart: now, wantStatus: MembershipActive},
		{name: "开始时间等于当前时间", start: &now, wantStart: now, wantStatus: MembershipActive},
		{name: "开始时间在未来", start: ptrTime(date(2025, 9, 10)), wantStart: date(2025, 9, 10), wantStatus: MembershipQueued},
		{name: "开始时间在过去", start: ptrTime(date(2025, 8, 1)), wantStart: date(2025, 8, 1), wantStatus: MembershipActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newMemStore()
			s.addCustomer(1)
			plan := seedPlan(s, "1 month", true)
			uc := newTestSequencer(s, now)

			m, err := uc.Purchase(context.Background(), &PurchaseRequest{CustomerID: 1, PlanID: plan.ID, StartDate: tt.start})
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, m.StartDate)
			assert.Equal(t, tt.wantStatus, m.Status)
			assert.Equal(t, Interval{Months: 1}.AddTo(tt.wantStart), m.EndDate)
		})
	}
}

func TestMembership_PurchaseRequestedAfterActiveEnd(t *testing.T) {
	s := newMemStore()
	s.addCustomer(1)
	plan := seedPlan(s, "30 days", true)
	s.memberships = append(s.memberships, &Membership{
		ID: s.id(), CustomerID: 1, PlanID: plan.ID,
		StartDate: date(2025, 8, 1), EndDate: date(2025, 9, 1), Status: MembershipActive,
	})
	uc := newTestSequencer(s, date(2025, 8, 15))

	m, err := uc.Purchase(context.Background(), &PurchaseRequest{CustomerID: 1, PlanID: plan.ID, StartDate: ptrTime(date(2025, 9, 20))})
	require.NoError(t, err)
	assert.Equal(t, date(2025, 9, 20), m.StartDate)
	assert.Equal(t, date(2025, 10, 20), m.EndDate)
	assert.Equal(t, MembershipQueued, m.Status)
}

func TestMembership_PurchaseInvalidPlan(t *testing.T) {
	tests := []struct {
		name   string
		planID func(s *memStore) int64
	}{
		{name: "套餐不存在", planID: func(*memStore) int64 { return 404 }},
		{name: "套餐已下架", planID: func(s *memStore) int64 { return seedPlan(s, "1 month", false).ID }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newMemStore()
			s.addCustomer(1)
			uc := newTestSequencer(s, date(2025, 8, 15))

			_, err := uc.Purchase(context.Background(), &PurchaseRequest{CustomerID: 1, PlanID: tt.planID(s)})
			assert.ErrorIs(t, err, ErrInvalidPlan)
			assert.Empty(t, s.memberships)
			assert.Empty(t, s.historyOf(1))
		})
	}
}

func TestMembership_FulfilIgnoresPlanActiveFlag(t *testing.T) {
	tests := []struct {
		name       string
		planID     func(s *memStore) int64
		wantErr    error
		wantStatus MembershipStatus
	}{
		{name: "在售套餐", planID: func(s *memStore) int64 { return seedPlan(s, "1 month", true).ID }, wantStatus: MembershipActive},
		{name: "已下架套餐照常履约", planID: func(s *memStore) int64 { return seedPlan(s, "1 month", false).ID }, wantStatus: MembershipActive},
		{name: "套餐已删除", planID: func(*memStore) int64 { return 404 }, wantErr: ErrInvalidPlan},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newMemStore()
			s.addCustomer(1)
			uc := newTestSequencer(s, date(2025, 8, 15))

			m, err := uc.Fulfil(context.Background(), &PurchaseRequest{CustomerID: 1, PlanID: tt.planID(s)})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, s.memberships)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, m.Status)
			assert.Equal(t, date(2025, 9, 15), m.EndDate)
		})
	}
}

func TestMembership_PurchaseExpiresStaleActive(t *testing.T) {
	s := newMemStore()
	s.addCustomer(1)
	plan := seedPlan(s, "1 month", true)
	stale := &Membership{
		ID: s.id(), CustomerID: 1, PlanID: plan.ID,
		StartDate: date(2025, 7, 1), EndDate: date(2025, 8, 1), Status: MembershipActive,
	}
	s.memberships = append(s.memberships, stale)
	now := date(2025, 8, 15)
	uc := newTestSequencer(s, now)

	m, err := uc.Purchase(context.Background(), &PurchaseRequest{CustomerID: 1, PlanID: plan.ID})
	require.NoError(t, err)
	assert.Equal(t, MembershipExpired, stale.Status)
	assert.Equal(t, MembershipActive, m.Status)
	assert.Equal(t, now, m.StartDate)
}

func TestMembership_PurchaseChainsAfterQueued(t *testing.T) {
	s := newMemStore()
	s.addCustomer(1)
	plan := seedPlan(s, "1 month", true)
	uc := newTestSequencer(s, date(2025, 8, 15))
	ctx := context.Background()

	first, err := uc.Purchase(ctx, &PurchaseRequest{CustomerID: 1, PlanID: plan.ID})
	require.NoError(t, err)
	second, err := uc.Purchase(ctx, &PurchaseRequest{CustomerID: 1, PlanID: plan.ID})
	require.NoError(t, err)
	third, err := uc.Purchase(ctx, &PurchaseRequest{CustomerID: 1, PlanID: plan.ID})
	require.NoError(t, err)

	assert.Equal(t, MembershipActive, first.Status)
	assert.Equal(t, first.EndDate, second.StartDate)
	assert.Equal(t, second.EndDate, third.StartDate)
	assert.Equal(t, MembershipQueued, third.Status)
}

func TestMembership_PurchaseTwoActiveIsInvariantViolation(t *testing.T) {
	s := newMemStore()
	s.addCustomer(1)
	plan := seedPlan(s, "1 month", true)
	for i := 0; i < 2; i++ {
		s.memberships = append(s.memberships, &Membership{
			ID: s.id(), CustomerID: 1, PlanID: plan.ID,
			StartDate: date(2025, 8, 1), EndDate: date(2025, 9, 1), Status: MembershipActive,
		})
	}
	uc := newTestSequencer(s, date(2025, 8, 15))

	_, err := uc.Purchase(context.Background(), &PurchaseRequest{CustomerID: 1, PlanID: plan.ID})
	assert.ErrorIs(t, err, ErrInvariantViolation)
}

func TestMembership_PurchaseUnknownCustomer(t *testing.T) {
	s := newMemStore()
	plan := seedPlan(s, "1 month", true)
	uc := newTestSequencer(s, date(2025, 8, 15))

	_, err := uc.Purchase(context.Background(), &PurchaseRequest{CustomerID: 7, PlanID: plan.ID})
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

// 连续购买时，Active 记录互不重叠，且每条记录的开始时间不早于前一条的结束时间
func TestMembership_NoOverlapAcrossPurchases(t *testing.T) {
	s := newMemStore()
	s.addCustomer(1)
	monthly := seedPlan(s, "1 month", true)
	yearly := seedPlan(s, "1 year", true)
	weekly := seedPlan(s, "2 weeks", true)
	now := date(2025, 1, 31)
	uc := newTestSequencer(s, now)
	ctx := context.Background()

	plans := []int64{monthly.ID, weekly.ID, yearly.ID, monthly.ID, weekly.ID}
	var prev *Membership
	for _, id := range plans {
		m, err := uc.Purchase(ctx, &PurchaseRequest{CustomerID: 1, PlanID: id})
		require.NoError(t, err)
		assert.True(t, m.EndDate.After(m.StartDate))
		if prev != nil {
			assert.False(t, m.StartDate.Before(prev.EndDate))
		}
		prev = m
	}
	assert.Equal(t, 1, countActive(s.memberships))
}

func TestMembership_Current(t *testing.T) {
	s := newMemStore()
	s.addCustomer(1)
	plan := seedPlan(s, "1 month", true)
	s.memberships = append(s.memberships, &Membership{
		ID: s.id(), CustomerID: 1, PlanID: plan.ID,
		StartDate: date(2025, 8, 1), EndDate: date(2025, 9, 1), Status: MembershipActive,
	})
	uc := newTestSequencer(s, time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC))

	current, err := uc.Current(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Monthly", current.PlanName)
	assert.Equal(t, int64(17), current.RemainingDays)

	_, err = uc.Current(context.Background(), 2)
	assert.ErrorIs(t, err, ErrMembershipNotFound)
}

func TestMembership_Cancel(t *testing.T) {
	s := newMemStore()
	s.addCustomer(1)
	plan := seedPlan(s, "1 month", true)
	active := &Membership{ID: s.id(), CustomerID: 1, PlanID: plan.ID, StartDate: date(2025, 8, 1), EndDate: date(2025, 9, 1), Status: MembershipActive}
	expired := &Membership{ID: s.id(), CustomerID: 1, PlanID: plan.ID, StartDate: date(2025, 6, 1), EndDate: date(2025, 7, 1), Status: MembershipExpired}
	s.memberships = append(s.memberships, active, expired)
	uc := newTestSequencer(s, date(2025, 8, 15))
	ctx := context.Background()

	m, err := uc.Cancel(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, MembershipCancelled, m.Status)
	assert.Equal(t, MembershipCancelled, active.Status)

	_, err = uc.Cancel(ctx, expired.ID)
	assert.ErrorIs(t, err, ErrMembershipNotCancellable)

	_, err = uc.Cancel(ctx, 999)
	assert.ErrorIs(t, err, ErrMembershipNotFound)
}

func TestMembership_Sweep(t *testing.T) {
	s := newMemStore()
	s.addCustomer(1)
	s.addCustomer(2)
	plan := seedPlan(s, "1 month", true)
	ended := &Membership{ID: s.id(), CustomerID: 1, PlanID: plan.ID, StartDate: date(2025, 8, 1), EndDate: date(2025, 9, 1), Status: MembershipActive}
	due := &Membership{ID: s.id(), CustomerID: 1, PlanID: plan.ID, StartDate: date(2025, 9, 1), EndDate: date(2025, 10, 1), Status: MembershipQueued}
	future := &Membership{ID: s.id(), CustomerID: 2, PlanID: plan.ID, StartDate: date(2025, 11, 1), EndDate: date(2025, 12, 1), Status: MembershipQueued}
	s.memberships = append(s.memberships, ended, due, future)
	uc := newTestSequencer(s, date(2025, 9, 2))

	res, err := uc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Expired)
	assert.Equal(t, int64(1), res.Promoted)
	assert.Equal(t, MembershipExpired, ended.Status)
	assert.Equal(t, MembershipActive, due.Status)
	assert.Equal(t, MembershipQueued, future.Status)

	res, err = uc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Expired)
	assert.Zero(t, res.Promoted)
}

// 队首的到期记录因客户仍有 Active 而无法激活时，后面的记录照常激活
func TestMembership_SweepPagesPastBlockedRows(t *testing.T) {
	tests := []struct {
		name         string
		batch        int
		blocked      int
		promotable   int
		wantPromoted int64
	}{
		{name: "阻塞记录填满第一页", batch: 2, blocked: 2, promotable: 1, wantPromoted: 1},
		{name: "阻塞记录跨越多页", batch: 2, blocked: 5, promotable: 2, wantPromoted: 2},
		{name: "没有阻塞记录", batch: 2, blocked: 0, promotable: 3, wantPromoted: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newMemStore()
			plan := seedPlan(s, "1 month", true)
			now := date(2025, 9, 2)

			var customer int64
			for i := 0; i < tt.blocked; i++ {
				customer++
				s.addCustomer(customer)
				s.memberships = append(s.memberships,
					&Membership{ID: s.id(), CustomerID: customer, PlanID: plan.ID, StartDate: date(2025, 8, 20), EndDate: date(2025, 9, 20), Status: MembershipActive},
					&Membership{ID: s.id(), CustomerID: customer, PlanID: plan.ID, StartDate: date(2025, 8, 1), EndDate: date(2025, 10, 1), Status: MembershipQueued},
				)
			}
			var promotable []*Membership
			for i := 0; i < tt.promotable; i++ {
				customer++
				s.addCustomer(customer)
				m := &Membership{ID: s.id(), CustomerID: customer, PlanID: plan.ID, StartDate: date(2025, 9, 1), EndDate: date(2025, 10, 1), Status: MembershipQueued}
				s.memberships = append(s.memberships, m)
				promotable = append(promotable, m)
			}

			uc := newTestSequencer(s, now)
			uc.sweepBatch = tt.batch

			res, err := uc.Sweep(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantPromoted, res.Promoted)
			assert.Equal(t, int64(tt.blocked), res.Skipped)
			for _, m := range promotable {
				assert.Equal(t, MembershipActive, m.Status)
			}
		})
	}
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
