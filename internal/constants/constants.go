package constants

// 订单状态常量
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusPaid           = "paid"
	OrderStatusRefunded       = "refunded"
	OrderStatusCanceled       = "canceled"
)

// 优惠类型常量
const (
	DealTypeFixed   = "fixed"
	DealTypePercent = "percent"
)

// 店铺状态常量
const (
	ShopStatusActive    = "active"
	ShopStatusSuspended = "suspended"
)

// 商品状态常量
const (
	ListingStatusActive   = "active"
	ListingStatusInactive = "inactive"
)

// 信用额度流水原因常量
const (
	CreditReasonPromo          = "promo"
	CreditReasonRefund         = "refund"
	CreditReasonReferralReward = "referral_reward"
	CreditReasonGoodwill       = "goodwill"
	CreditReasonAdminAdjust    = "admin_adjust"
	CreditReasonOrderPayment   = "order_payment"
)

// 信用额度出资方常量
const (
	CreditFunderPlatform = "platform"
	CreditFunderSeller   = "seller"
)

// 上架费类型常量
const (
	ListingFeeReasonInitial = "initial"
	ListingFeeReasonRenewal = "renewal"
)

// 结算单状态常量
const (
	StatementStatusGenerated = "generated"
	StatementStatusSettled   = "settled"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 登录日志状态常量
const (
	LoginLogStatusSuccess = "success"
	LoginLogStatusFailed  = "failed"
)

// 登录日志失败原因常量
const (
	LoginLogFailReasonBadRequest         = "bad_request"
	LoginLogFailReasonInvalidEmail       = "invalid_email"
	LoginLogFailReasonInvalidCredentials = "invalid_credentials"
	LoginLogFailReasonUserDisabled       = "user_disabled"
	LoginLogFailReasonInternalError      = "internal_error"
)

// 队列常量
const (
	QueueDefault           = "default"
	QueueCritical          = "critical"
	TaskPayoutStatement    = "payout:generate_statement"
	TaskReferralReward     = "referral:grant_reward"
	TaskCreditExpiryNotice = "credit:expiry_notice"
	TaskOrderTimeoutCancel = "order:timeout_cancel"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "mp"
)

// 币种常量
const (
	SiteCurrencyDefault = "USD"
)
