package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-kratos/kratos/v2/errors"

	"factfit/internal/biz"
	"factfit/internal/pkg/tracing"
)

// 错误原因常量，与 HTTP 状态码一起返回给调用方
const (
	ReasonInvalidRequest = "INVALID_REQUEST"
	ReasonUnauthorized   = "AUTH_UNAUTHORIZED"
	ReasonForbidden      = "AUTH_FORBIDDEN"

	ReasonInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	ReasonAuthNotConfigured  = "AUTH_NOT_CONFIGURED"

	ReasonInsufficientBalance = "POINTS_INSUFFICIENT_BALANCE"
	ReasonInvalidAmount       = "POINTS_INVALID_AMOUNT"

	ReasonCustomerNotFound = "CUSTOMER_NOT_FOUND"
	ReasonCustomerExists   = "CUSTOMER_ALREADY_EXISTS"

	ReasonNothingToUpdate   = "PROFILE_NOTHING_TO_UPDATE"
	ReasonInvalidUsername   = "PROFILE_INVALID_USERNAME"
	ReasonOldPasswordNeeded = "PROFILE_OLD_PASSWORD_REQUIRED"
	ReasonOldPasswordWrong  = "PROFILE_OLD_PASSWORD_INCORRECT"
	ReasonPasswordMismatch  = "PROFILE_PASSWORD_MISMATCH"
	ReasonWeakPassword      = "PROFILE_WEAK_PASSWORD"

	ReasonInvalidSalesPeriod = "SALES_INVALID_PERIOD"
	ReasonInvalidWorkout     = "WORKOUT_INVALID"
	ReasonGoalNotFound       = "WORKOUT_GOAL_NOT_FOUND"

	ReasonInvalidPlan      = "MEMBERSHIP_INVALID_PLAN"
	ReasonInvalidInterval  = "PLAN_INVALID_INTERVAL"
	ReasonPlanNotFound     = "PLAN_NOT_FOUND"
	ReasonPlanCodeExists   = "PLAN_CODE_EXISTS"
	ReasonMembershipAbsent = "MEMBERSHIP_NOT_FOUND"
	ReasonActiveExists     = "MEMBERSHIP_ACTIVE_EXISTS"
	ReasonNotCancellable   = "MEMBERSHIP_NOT_CANCELLABLE"

	ReasonProductNotFound = "PRODUCT_NOT_FOUND"
	ReasonProductSKU      = "PRODUCT_SKU_EXISTS"
	ReasonOutOfStock      = "SHOP_OUT_OF_STOCK"
	ReasonEmptyCart       = "SHOP_EMPTY_CART"

	ReasonOrderNotFound    = "PAYMENT_ORDER_NOT_FOUND"
	ReasonInvalidSignature = "PAYMENT_INVALID_SIGNATURE"
	ReasonAmountMismatch   = "PAYMENT_AMOUNT_MISMATCH"
	ReasonGatewayFailure   = "PAYMENT_GATEWAY_FAILURE"

	ReasonEntryNotFound   = "ENTRY_NOT_FOUND"
	ReasonEntryExpired    = "ENTRY_EXPIRED"
	ReasonEntryNotStarted = "ENTRY_NOT_STARTED"

	ReasonInvariantViolation = "SYS_INVARIANT_VIOLATION"
	ReasonStorageFailure     = "SYS_STORAGE_FAILURE"
)

type errorMapping struct {
	target error
	code   int
	reason string
}

// errorMappings 按顺序匹配，先匹配到的生效
var errorMappings = []errorMapping{
	{biz.ErrInsufficientBalance, http.StatusConflict, ReasonInsufficientBalance},
	{biz.ErrOutOfStock, http.StatusConflict, ReasonOutOfStock},
	{biz.ErrInvalidAmount, http.StatusBadRequest, ReasonInvalidAmount},
	{biz.ErrInvalidCredentials, http.StatusUnauthorized, ReasonInvalidCredentials},
	{biz.ErrAuthNotConfigured, http.StatusServiceUnavailable, ReasonAuthNotConfigured},
	{biz.ErrCustomerNotFound, http.StatusNotFound, ReasonCustomerNotFound},
	{biz.ErrCustomerExists, http.StatusConflict, ReasonCustomerExists},
	{biz.ErrNothingToUpdate, http.StatusBadRequest, ReasonNothingToUpdate},
	{biz.ErrInvalidUsername, http.StatusBadRequest, ReasonInvalidUsername},
	{biz.ErrOldPasswordRequired, http.StatusBadRequest, ReasonOldPasswordNeeded},
	{biz.ErrOldPasswordIncorrect, http.StatusBadRequest, ReasonOldPasswordWrong},
	{biz.ErrPasswordMismatch, http.StatusBadRequest, ReasonPasswordMismatch},
	{biz.ErrWeakPassword, http.StatusBadRequest, ReasonWeakPassword},
	{biz.ErrInvalidSalesPeriod, http.StatusBadRequest, ReasonInvalidSalesPeriod},
	{biz.ErrInvalidWorkout, http.StatusBadRequest, ReasonInvalidWorkout},
	{biz.ErrGoalNotFound, http.StatusNotFound, ReasonGoalNotFound},
	{biz.ErrInvalidPlan, http.StatusBadRequest, ReasonInvalidPlan},
	{biz.ErrInvalidInterval, http.StatusBadRequest, ReasonInvalidInterval},
	{biz.ErrPlanNotFound, http.StatusNotFound, ReasonPlanNotFound},
	{biz.ErrPlanCodeExists, http.StatusConflict, ReasonPlanCodeExists},
	{biz.ErrMembershipNotFound, http.StatusNotFound, ReasonMembershipAbsent},
	{biz.ErrActiveMembershipExists, http.StatusConflict, ReasonActiveExists},
	{biz.ErrMembershipNotCancellable, http.StatusConflict, ReasonNotCancellable},
	{biz.ErrProductNotFound, http.StatusNotFound, ReasonProductNotFound},
	{biz.ErrProductSKUExists, http.StatusConflict, ReasonProductSKU},
	{biz.ErrEmptyCart, http.StatusBadRequest, ReasonEmptyCart},
	{biz.ErrOrderNotFound, http.StatusNotFound, ReasonOrderNotFound},
	{biz.ErrInvalidSignature, http.StatusUnauthorized, ReasonInvalidSignature},
	{biz.ErrAmountMismatch, http.StatusBadRequest, ReasonAmountMismatch},
	{biz.ErrPaymentGateway, http.StatusBadGateway, ReasonGatewayFailure},
	{biz.ErrEntryNotFound, http.StatusNotFound, ReasonEntryNotFound},
	{biz.ErrEntryExpired, http.StatusGone, ReasonEntryExpired},
	{biz.ErrEntryNotStarted, http.StatusForbidden, ReasonEntryNotStarted},
	{biz.ErrInvariantViolation, http.StatusInternalServerError, ReasonInvariantViolation},
	{biz.ErrStorage, http.StatusInternalServerError, ReasonStorageFailure},
}

// toHTTPError 把业务错误转换为 kratos 错误，并附带追踪信息
func toHTTPError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	var kerr *errors.Error
	if stderrors.As(err, &kerr) {
		return tracing.WrapErrorWithTrace(ctx, kerr)
	}

	code, reason := http.StatusInternalServerError, ReasonStorageFailure
	for _, m := range errorMappings {
		if stderrors.Is(err, m.target) {
			code, reason = m.code, m.reason
			break
		}
	}

	message := friendlyMessage(reason)
	if code < http.StatusInternalServerError {
		// 4xx 返回具体原因，5xx 不暴露内部细节
		message = err.Error()
	}

	e := errors.New(code, reason, message)
	if md := errorMetadata(err); md != nil {
		e = e.WithMetadata(md)
	}
	return tracing.WrapErrorWithTrace(ctx, e)
}

// errorMetadata 取出带数据的业务错误中的字段
func errorMetadata(err error) map[string]string {
	var insufficient *biz.InsufficientBalanceError
	if stderrors.As(err, &insufficient) {
		return map[string]string{
			"required":  strconv.FormatInt(insufficient.Required, 10),
			"available": strconv.FormatInt(insufficient.Available, 10),
		}
	}
	var oos *biz.OutOfStockError
	if stderrors.As(err, &oos) {
		return map[string]string{
			"product_id": strconv.FormatInt(oos.ProductID, 10),
			"requested":  strconv.FormatInt(oos.Requested, 10),
			"available":  strconv.FormatInt(oos.Available, 10),
		}
	}
	return nil
}

// badRequest 请求参数错误
func badRequest(format string, args ...interface{}) *errors.Error {
	return errors.BadRequest(ReasonInvalidRequest, fmt.Sprintf(format, args...))
}

func unauthorized() *errors.Error {
	return errors.Unauthorized(ReasonUnauthorized, friendlyMessage(ReasonUnauthorized))
}

func forbidden() *errors.Error {
	return errors.Forbidden(ReasonForbidden, friendlyMessage(ReasonForbidden))
}
