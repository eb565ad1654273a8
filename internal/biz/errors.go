package biz

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientBalance 积分余额不足，具体数值见 InsufficientBalanceError
	ErrInsufficientBalance = errors.New("insufficient points balance")

	// ErrInvalidPlan 套餐不存在或已下架
	ErrInvalidPlan = errors.New("invalid or inactive plan")

	// ErrStorage 底层存储失败
	ErrStorage = errors.New("storage failure")

	// ErrInvariantViolation 数据不变量被破坏，不应出现
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrInvalidAmount 积分数量必须为正整数
	ErrInvalidAmount = errors.New("amount must be a positive integer")

	// ErrInvalidInterval 套餐时长无法解析
	ErrInvalidInterval = errors.New("invalid duration interval")

	// ErrCustomerNotFound 客户不存在
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrCustomerExists 用户名或邮箱已被占用
	ErrCustomerExists = errors.New("customer already exists")

	// ErrPlanNotFound 套餐不存在
	ErrPlanNotFound = errors.New("plan not found")

	// ErrPlanCodeExists 套餐编码重复
	ErrPlanCodeExists = errors.New("plan code already exists")

	// ErrMembershipNotFound 会员记录不存在
	ErrMembershipNotFound = errors.New("membership not found")

	// ErrActiveMembershipExists 唯一索引拒绝了第二条生效中的会员记录
	ErrActiveMembershipExists = errors.New("customer already has an active membership")

	// ErrMembershipNotCancellable 会员记录已结束，不能取消
	ErrMembershipNotCancellable = errors.New("membership cannot be cancelled")

	// ErrProductNotFound 商品不存在
	ErrProductNotFound = errors.New("product not found")

	// ErrProductSKUExists 商品 SKU 重复
	ErrProductSKUExists = errors.New("product sku already exists")

	// ErrOutOfStock 库存不足，具体数值见 OutOfStockError
	ErrOutOfStock = errors.New("out of stock")

	// ErrEmptyCart 结算时没有商品
	ErrEmptyCart = errors.New("no items to check out")

	// ErrOrderNotFound 支付订单不存在
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidSignature 支付回调签名校验失败
	ErrInvalidSignature = errors.New("invalid notification signature")

	// ErrEntryNotFound 入场二维码不存在
	ErrEntryNotFound = errors.New("entry qr not found")

	// ErrEntryExpired 入场二维码对应的会员期已结束
	ErrEntryExpired = errors.New("entry qr expired")

	// ErrNothingToUpdate 资料修改请求没有任何字段
	ErrNothingToUpdate = errors.New("no data to update")

	// ErrInvalidUsername 用户名只允许 3-30 位字母、数字、点和下划线
	ErrInvalidUsername = errors.New("username must be 3-30 chars of letters, digits, '.' or '_'")

	// ErrOldPasswordRequired 修改密码时缺少旧密码
	ErrOldPasswordRequired = errors.New("old password is required to change password")

	// ErrOldPasswordIncorrect 旧密码校验失败，与登录失败区分
	ErrOldPasswordIncorrect = errors.New("old password is incorrect")

	// ErrPasswordMismatch 两次输入的新密码不一致
	ErrPasswordMismatch = errors.New("new passwords do not match")

	// ErrWeakPassword 新密码太短
	ErrWeakPassword = errors.New("new password must be at least 8 characters")

	// ErrInvalidSalesPeriod 销售报表只支持 daily、weekly、monthly
	ErrInvalidSalesPeriod = errors.New("sales period must be daily, weekly or monthly")

	// ErrInvalidWorkout 训练记录或目标参数非法
	ErrInvalidWorkout = errors.New("invalid workout data")

	// ErrGoalNotFound 客户没有训练目标
	ErrGoalNotFound = errors.New("workout goal not found")
)

// InsufficientBalanceError 扣减积分时余额不足
type InsufficientBalanceError struct {
	Required  int64
	Available int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient points balance: required %d, available %d", e.Required, e.Available)
}

// Is 使 errors.Is(err, ErrInsufficientBalance) 成立
func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// OutOfStockError 商品库存不足
type OutOfStockError struct {
	ProductID int64
	Requested int64
	Available int64
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("out of stock: product %d requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

// Is 使 errors.Is(err, ErrOutOfStock) 成立
func (e *OutOfStockError) Is(target error) bool {
	return target == ErrOutOfStock
}

// storageError 将底层错误包装为 ErrStorage，同时保留原始错误链
func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// invariantError 构造不变量错误
func invariantError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}
