package service

import (
	"errors"
	"fmt"

	"github.com/makerplace/makerplace/internal/models"
)

// 业务错误定义；带参数的错误使用结构体并通过 Is 挂接到对应哨兵错误。
var (
	ErrUserNotFound      = errors.New("用户不存在")
	ErrUserDisabled      = errors.New("账号已被禁用")
	ErrEmailExists       = errors.New("邮箱已被注册")
	ErrInvalidPassword   = errors.New("邮箱或密码错误")
	ErrWeakPassword      = errors.New("密码强度不足")
	ErrAdminNotFound     = errors.New("管理员不存在")
	ErrAdminExists       = errors.New("管理员账号已存在")
	ErrTokenInvalid      = errors.New("登录凭证无效")

	ErrShopNotFound    = errors.New("店铺不存在")
	ErrShopExists      = errors.New("店铺已存在")
	ErrShopSuspended   = errors.New("店铺已被暂停")
	ErrListingNotFound = errors.New("商品不存在")
	ErrListingExists   = errors.New("商品标识已存在")
	ErrListingInactive = errors.New("商品已下架")

	ErrDealNotFound      = errors.New("优惠不存在")
	ErrDealInactive      = errors.New("优惠未启用")
	ErrDealNotStarted    = errors.New("优惠未开始")
	ErrDealExpired       = errors.New("优惠已过期")
	ErrDealUsageExceeded = errors.New("优惠使用次数已达上限")
	ErrDealMinimumNotMet = errors.New("未达到优惠最低消费")
	ErrDealCodeExists    = errors.New("优惠码已存在")
	ErrDealInvalid       = errors.New("优惠配置无效")

	ErrOrderNotFound     = errors.New("订单不存在")
	ErrOrderStateInvalid = errors.New("订单状态不允许该操作")
	ErrRefundExceeds     = errors.New("退款金额超过可退余额")

	ErrInvalidAmount      = errors.New("金额必须为正数")
	ErrCreditInsufficient = errors.New("信用额度余额不足")

	ErrStatementPeriodInvalid = errors.New("结算账期无效")
)

// MinimumNotMetError 未达最低消费错误，携带门槛金额
type MinimumNotMetError struct {
	MinimumCents int64
}

// Error 提示信息以主单位金额呈现门槛
func (e *MinimumNotMetError) Error() string {
	return fmt.Sprintf("订单金额未达到优惠最低消费 %s", models.FormatCents(e.MinimumCents))
}

// Is 挂接哨兵错误，调用方可用 errors.Is(err, ErrDealMinimumNotMet) 判断
func (e *MinimumNotMetError) Is(target error) bool {
	return target == ErrDealMinimumNotMet
}

// InsufficientBalanceError 余额不足错误，携带可用余额与请求金额
type InsufficientBalanceError struct {
	AvailableCents int64
	RequestedCents int64
}

// Error 提示信息
func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("信用额度余额不足：可用 %s，需要 %s",
		models.FormatCents(e.AvailableCents), models.FormatCents(e.RequestedCents))
}

// Is 挂接哨兵错误
func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrCreditInsufficient
}
