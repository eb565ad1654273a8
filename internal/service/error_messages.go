package service

// errorMessages 错误原因对应的对外提示
var errorMessages = map[string]string{
	ReasonInvalidRequest: "The request is invalid",
	ReasonUnauthorized:   "Authentication is required",
	ReasonForbidden:      "You are not allowed to perform this action",

	ReasonInvalidCredentials: "Username or password is incorrect",
	ReasonAuthNotConfigured:  "Authentication is temporarily unavailable",

	ReasonInsufficientBalance: "Not enough points",
	ReasonInvalidAmount:       "Amount must be a positive integer",

	ReasonCustomerNotFound: "Customer not found",
	ReasonCustomerExists:   "Username or email is already registered",

	ReasonNothingToUpdate:   "No data to update",
	ReasonInvalidUsername:   "Username may only use letters, digits, '.' and '_'",
	ReasonOldPasswordNeeded: "Old password is required to change password",
	ReasonOldPasswordWrong:  "Old password is incorrect",
	ReasonPasswordMismatch:  "New passwords do not match",
	ReasonWeakPassword:      "New password must be at least 8 characters",

	ReasonInvalidSalesPeriod: "Sales period must be daily, weekly or monthly",
	ReasonInvalidWorkout:     "Workout data is invalid",
	ReasonGoalNotFound:       "No workout goal set",

	ReasonInvalidPlan:      "Plan is missing or no longer offered",
	ReasonInvalidInterval:  "Plan duration is not a valid interval",
	ReasonPlanNotFound:     "Plan not found",
	ReasonPlanCodeExists:   "Plan code is already used",
	ReasonMembershipAbsent: "Membership not found",
	ReasonActiveExists:     "Customer already has an active membership",
	ReasonNotCancellable:   "Membership can no longer be cancelled",

	ReasonProductNotFound: "Product not found",
	ReasonProductSKU:      "Product SKU is already used",
	ReasonOutOfStock:      "Not enough stock",
	ReasonEmptyCart:       "Cart is empty",

	ReasonOrderNotFound:    "Order not found",
	ReasonInvalidSignature: "Notification signature is invalid",
	ReasonAmountMismatch:   "Amount does not match the plan price",
	ReasonGatewayFailure:   "Payment provider is unavailable, please retry",

	ReasonEntryNotFound:   "Entry pass not found",
	ReasonEntryExpired:    "Entry pass has expired",
	ReasonEntryNotStarted: "Entry pass is not valid yet",

	ReasonInvariantViolation: "Internal data inconsistency",
	ReasonStorageFailure:     "Internal server error",
}

// friendlyMessage 获取对外提示，未登记的原因返回通用提示
func friendlyMessage(reason string) string {
	if message, ok := errorMessages[reason]; ok {
		return message
	}
	return "Operation failed, please retry later"
}
