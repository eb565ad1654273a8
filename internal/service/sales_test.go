package service

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"factfit/internal/biz"
)

// MockSalesRepository 模拟销售统计
type MockSalesRepository struct {
	mock.Mock
}

func (m *MockSalesRepository) DailyTotals(ctx context.Context, r biz.SalesRange) ([]*biz.DailySales, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*biz.DailySales), args.Error(1)
}

func (m *MockSalesRepository) TopProducts(ctx context.Context, r biz.SalesRange, limit int) ([]*biz.SalesRanking, error) {
	args := m.Called(ctx, r, limit)
	return args.Get(0).([]*biz.SalesRanking), args.Error(1)
}

func (m *MockSalesRepository) TopCustomers(ctx context.Context, r biz.SalesRange, limit int) ([]*biz.SalesRanking, error) {
	args := m.Called(ctx, r, limit)
	return args.Get(0).([]*biz.SalesRanking), args.Error(1)
}

func (m *MockSalesRepository) Total(ctx context.Context, r biz.SalesRange) (int64, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(int64), args.Error(1)
}

func newSalesServer(repo *MockSalesRepository) *http.Server {
	srv := http.NewServer()
	RegisterSalesServiceHTTPServer(srv, NewSalesService(biz.NewSalesUsecase(repo, log.DefaultLogger), log.DefaultLogger))
	return srv
}

func TestSalesService_Report(t *testing.T) {
	aug := biz.SalesRange{
		From: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
	}
	tests := []struct {
		name       string
		path       string
		setupMocks func(*MockSalesRepository)
		wantCode   int
		wantReason string
		wantSales  int
	}{
		{
			name: "按月汇总",
			path: "/api/sales/report/monthly?from=2025-08-01&to=2025-09-01",
			setupMocks: func(repo *MockSalesRepository) {
				repo.On("DailyTotals", mock.Anything, aug).Return([]*biz.DailySales{
					{Day: time.Date(2025, 8, 3, 0, 0, 0, 0, time.UTC), Amount: 150000},
					{Day: time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC), Amount: 20000},
				}, nil)
				repo.On("TopProducts", mock.Anything, aug, 5).Return([]*biz.SalesRanking{{Name: "Monthly", Value: 150000}}, nil)
				repo.On("TopCustomers", mock.Anything, aug, 5).Return([]*biz.SalesRanking{{Name: "member", Value: 170000}}, nil)
			},
			wantCode:  nethttp.StatusOK,
			wantSales: 1,
		},
		{
			name:       "未知周期",
			path:       "/api/sales/report/yearly",
			setupMocks: func(*MockSalesRepository) {},
			wantCode:   nethttp.StatusBadRequest,
			wantReason: ReasonInvalidSalesPeriod,
		},
		{
			name:       "日期格式非法",
			path:       "/api/sales/report/daily?from=08/01/2025",
			setupMocks: func(*MockSalesRepository) {},
			wantCode:   nethttp.StatusBadRequest,
			wantReason: ReasonInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockSalesRepository)
			tt.setupMocks(repo)
			srv := newSalesServer(repo)

			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(nethttp.MethodGet, tt.path, nil))

			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantReason != "" {
				var body errorBody
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, tt.wantReason, body.Reason)
				repo.AssertNotCalled(t, "DailyTotals", mock.Anything, mock.Anything)
				return
			}
			var report biz.SalesReport
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
			assert.Len(t, report.Sales, tt.wantSales)
			assert.Equal(t, "2025-08", report.Sales[0].Label)
			assert.Equal(t, int64(170000), report.Total)
			repo.AssertExpectations(t)
		})
	}
}

func TestSalesService_Total(t *testing.T) {
	repo := new(MockSalesRepository)
	repo.On("Total", mock.Anything, biz.SalesRange{}).Return(int64(470000), nil)
	srv := newSalesServer(repo)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(nethttp.MethodGet, "/api/sales", nil))

	require.Equal(t, nethttp.StatusOK, rec.Code)
	var reply SalesTotalReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, int64(470000), reply.TotalSales)
	repo.AssertExpectations(t)
}
