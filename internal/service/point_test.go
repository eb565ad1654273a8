package service

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"factfit/internal/biz"
)

// MockPointLotRepository 只实现用到的方法
type MockPointLotRepository struct {
	biz.PointLotRepository
	mock.Mock
}

func (m *MockPointLotRepository) SumByCustomer(ctx context.Context, customerID int64) (int64, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).(int64), args.Error(1)
}

type nopPointMetrics struct{}

func (nopPointMetrics) PointsCredited(int64) {}
func (nopPointMetrics) PointsDebited(int64, int) {}

func newPointServer(lots *MockPointLotRepository, customers *MockCustomerRepository) *http.Server {
	uc := biz.NewPointLedgerUsecase(lots, customers, nil, passTx{}, nopPointMetrics{}, log.DefaultLogger)
	srv := http.NewServer()
	RegisterPointServiceHTTPServer(srv, NewPointService(uc, log.DefaultLogger))
	return srv
}

func TestPointService_Subtract(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		body         string
		setupMocks   func(*MockPointLotRepository, *MockCustomerRepository)
		wantCode     int
		wantReason   string
		wantMetadata map[string]string
	}{
		{
			name: "余额不足",
			path: "/api/customers/1/points/subtract",
			body: `{"amount":300}`,
			setupMocks: func(lots *MockPointLotRepository, customers *MockCustomerRepository) {
				customers.On("LockByID", mock.Anything, int64(1)).Return(nil)
				lots.On("SumByCustomer", mock.Anything, int64(1)).Return(int64(120), nil)
			},
			wantCode:     nethttp.StatusConflict,
			wantReason:   ReasonInsufficientBalance,
			wantMetadata: map[string]string{"required": "300", "available": "120"},
		},
		{
			name: "客户不存在",
			path: "/api/customers/9/points/subtract",
			body: `{"amount":10}`,
			setupMocks: func(_ *MockPointLotRepository, customers *MockCustomerRepository) {
				customers.On("LockByID", mock.Anything, int64(9)).Return(gorm.ErrRecordNotFound)
			},
			wantCode:   nethttp.StatusNotFound,
			wantReason: ReasonCustomerNotFound,
		},
		{
			name:       "数量为零",
			path:       "/api/customers/1/points/subtract",
			body:       `{"amount":0}`,
			setupMocks: func(*MockPointLotRepository, *MockCustomerRepository) {},
			wantCode:   nethttp.StatusBadRequest,
			wantReason: ReasonInvalidRequest,
		},
		{
			name:       "数量为负",
			path:       "/api/customers/1/points/subtract",
			body:       `{"amount":-5}`,
			setupMocks: func(*MockPointLotRepository, *MockCustomerRepository) {},
			wantCode:   nethttp.StatusBadRequest,
			wantReason: ReasonInvalidRequest,
		},
		{
			name:       "请求体非法",
			path:       "/api/customers/1/points/subtract",
			body:       `{"amount":"many"}`,
			setupMocks: func(*MockPointLotRepository, *MockCustomerRepository) {},
			wantCode:   nethttp.StatusBadRequest,
			wantReason: ReasonInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lots := new(MockPointLotRepository)
			customers := new(MockCustomerRepository)
			tt.setupMocks(lots, customers)
			srv := newPointServer(lots, customers)

			req := httptest.NewRequest(nethttp.MethodPost, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantReason, body.Reason)
			if tt.wantMetadata != nil {
				assert.Equal(t, tt.wantMetadata, body.Metadata)
			}
			lots.AssertExpectations(t)
			customers.AssertExpectations(t)
		})
	}
}
