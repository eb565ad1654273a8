package biz

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointLedger_Debit(t *testing.T) {
	tests := []struct {
		name        string
		lots        []int64
		amount      int64
		wantErr     error
		wantLots    []int64
		wantBalance int64
		wantTouched int
	}{
		{
			name:        "部分消耗单个批次",
			lots:        []int64{100},
			amount:      30,
			wantLots:    []int64{70},
			wantBalance: 70,
			wantTouched: 1,
		},
		{
			name:        "恰好用完单个批次",
			lots:        []int64{70},
			amount:      70,
			wantLots:    nil,
			wantBalance: 0,
			wantTouched: 1,
		},
		{
			name:        "跨批次消耗",
			lots:        []int64{20, 50},
			amount:      25,
			wantLots:    []int64{45},
			wantBalance: 45,
			wantTouched: 2,
		},
		{
			name:        "跨多个批次全部用完",
			lots:        []int64{10, 10, 10},
			amount:      30,
			wantLots:    nil,
			wantBalance: 0,
			wantTouched: 3,
		},
		{
			name:     "余额不足",
			lots:     nil,
			amount:   1,
			wantErr:  ErrInsufficientBalance,
			wantLots: nil,
		},
		{
			name:     "余额差一点",
			lots:     []int64{20, 30},
			amount:   51,
			wantErr:  ErrInsufficientBalance,
			wantLots: []int64{20, 30},
		},
		{
			name:     "非正数量",
			lots:     []int64{20},
			amount:   0,
			wantErr:  ErrInvalidAmount,
			wantLots: []int64{20},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newMemStore()
			s.addCustomer(1)
			for _, p := range tt.lots {
				s.addLot(1, p)
			}
			uc := newTestLedger(s)

			res, err := uc.Debit(context.Background(), 1, tt.amount, "")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, res)
				assert.Empty(t, s.historyOf(1))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantBalance, res.Balance)
				assert.Len(t, res.Consumed, tt.wantTouched)
				hist := s.historyOf(1)
				require.Len(t, hist, 1)
				assert.Equal(t, ActionPointsSubtracted, hist[0].Action)
			}

			var remaining []int64
			for _, l := range s.lotsOf(1) {
				remaining = append(remaining, l.Points)
			}
			assert.Equal(t, tt.wantLots, remaining)
		})
	}
}

func TestPointLedger_DebitInsufficientCarriesAmounts(t *testing.T) {
	s := newMemStore()
	s.addCustomer(1)
	s.addLot(1, 40)
	uc := newTestLedger(s)

	_, err := uc.Debit(context.Background(), 1, 41, "")

	var insufficient *InsufficientBalanceError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, int64(41), insufficient.Required)
	assert.Equal(t, int64(40), insufficient.Available)
}

func TestPointLedger_ConcreteSequence(t *testing.T) {
	s := newMemStore()
	s.addCustomer(1)
	uc := newTestLedger(s)
	ctx := context.Background()

	_, err := uc.Credit(ctx, 1, 100, "")
	require.NoError(t, err)

	_, err = uc.Debit(ctx, 1, 30, "")
	require.NoError(t, err)
	lots, err := uc.Lots(ctx, 1)
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, int64(70), lots[0].Points)

	_, err = uc.Debit(ctx, 1, 70, "")
	require.NoError(t, err)
	lots, err = uc.Lots(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, lots)

	_, err = uc.Debit(ctx, 1, 1, "")
	var insufficient *InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(1), insufficient.Required)
	assert.Equal(t, int64(0), insufficient.Available)

	hist := s.historyOf(1)
	require.Len(t, hist, 3)
	assert.Equal(t, "Added 100 points", hist[0].Details)
	assert.Equal(t, "Subtracted 30 points", hist[1].Details)
	assert.Equal(t, "Subtracted 70 points", hist[2].Details)
}

func TestPointLedger_Credit(t *testing.T) {
	tests := []struct {
		name       string
		customerID int64
		amount     int64
		reason     string
		wantErr    error
		wantDetail string
	}{
		{name: "正常入账", customerID: 1, amount: 50, wantDetail: "Added 50 points"},
		{name: "附带原因", customerID: 1, amount: 5, reason: "birthday", wantDetail: "Added 5 points (birthday)"},
		{name: "数量为零", customerID: 1, amount: 0, wantErr: ErrInvalidAmount},
		{name: "数量为负", customerID: 1, amount: -3, wantErr: ErrInvalidAmount},
		{name: "客户不存在", customerID: 9, amount: 10, wantErr: ErrCustomerNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newMemStore()
			s.addCustomer(1)
			uc := newTestLedger(s)

			lot, err := uc.Credit(context.Background(), tt.customerID, tt.amount, tt.reason)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, s.lots)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.amount, lot.Points)
			hist := s.historyOf(tt.customerID)
			require.Len(t, hist, 1)
			assert.Equal(t, ActionPointsAdded, hist[0].Action)
			assert.Equal(t, tt.wantDetail, hist[0].Details)
		})
	}
}

func TestPointLedger_Balance(t *testing.T) {
	s := newMemStore()
	s.addCustomer(1)
	s.addLot(1, 20)
	s.addLot(1, 50)
	s.addLot(2, 999)
	uc := newTestLedger(s)

	balance, err := uc.Balance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(70), balance)

	balance, err = uc.Balance(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestPointLedger_InvariantViolation(t *testing.T) {
	s := newMemStore()
	s.addCustomer(1)
	s.addLot(1, 0)
	s.addLot(1, 10)
	uc := newTestLedger(s)

	_, err := uc.Debit(context.Background(), 1, 5, "")
	assert.ErrorIs(t, err, ErrInvariantViolation)
}

// 任意入账与扣减序列下：余额等于批次之和且非负，所有批次为正，
// 每次扣减最多只有一个批次被部分消耗，且它是剩余批次中最早的一个
func TestPointLedger_RandomSequence(t *testing.T) {
	s := newMemStore()
	s.addCustomer(1)
	uc := newTestLedger(s)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		amount := int64(rng.Intn(80) + 1)
		before, err := uc.Balance(ctx, 1)
		require.NoError(t, err)

		if rng.Intn(2) == 0 {
			_, err := uc.Credit(ctx, 1, amount, "")
			require.NoError(t, err)
		} else {
			snapshot := make(map[int64]int64)
			for _, l := range s.lotsOf(1) {
				snapshot[l.ID] = l.Points
			}
			res, err := uc.Debit(ctx, 1, amount, "")
			if amount > before {
				require.ErrorIs(t, err, ErrInsufficientBalance)
				after, _ := uc.Balance(ctx, 1)
				assert.Equal(t, before, after)
				continue
			}
			require.NoError(t, err)

			partial := 0
			for _, l := range s.lotsOf(1) {
				if old, ok := snapshot[l.ID]; ok && old != l.Points {
					partial++
				}
			}
			assert.LessOrEqual(t, partial, 1)
			for i, c := range res.Consumed {
				if i < len(res.Consumed)-1 {
					assert.Zero(t, c.Remaining)
				}
			}
		}

		balance, err := uc.Balance(ctx, 1)
		require.NoError(t, err)
		var sum int64
		lots := s.lotsOf(1)
		for j, l := range lots {
			assert.Positive(t, l.Points)
			if j > 0 {
				assert.Greater(t, l.ID, lots[j-1].ID)
			}
			sum += l.Points
		}
		assert.Equal(t, sum, balance)
		assert.GreaterOrEqual(t, balance, int64(0))
	}
}
