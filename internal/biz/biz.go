package biz

import (
	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewAuthUsecase,
	NewCustomerUsecase,
	NewPointLedgerUsecase,
	NewPlanUsecase,
	NewMembershipUsecase,
	NewProductUsecase,
	NewShopUsecase,
	NewPaymentUsecase,
	NewSalesUsecase,
	NewWorkoutUsecase,
	wire.Struct(new(PaymentDeps), "*"),
)
