package queue

import (
	"encoding/json"

	"github.com/makerplace/makerplace/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskPayoutStatement 月度结算单生成任务
	TaskPayoutStatement = constants.TaskPayoutStatement
	// TaskReferralReward 推荐奖励发放任务
	TaskReferralReward = constants.TaskReferralReward
	// TaskCreditExpiryNotice 信用额度过期提醒任务
	TaskCreditExpiryNotice = constants.TaskCreditExpiryNotice
	// TaskOrderTimeoutCancel 订单超时取消任务
	TaskOrderTimeoutCancel = constants.TaskOrderTimeoutCancel
)

// PayoutStatementPayload 结算单生成任务载荷
type PayoutStatementPayload struct {
	ShopID uint `json:"shop_id"`
	Year   int  `json:"year"`
	Month  int  `json:"month"`
}

// ReferralRewardPayload 推荐奖励任务载荷
type ReferralRewardPayload struct {
	OrderID uint `json:"order_id"`
}

// CreditExpiryNoticePayload 过期提醒任务载荷
type CreditExpiryNoticePayload struct {
	EntryID uint `json:"entry_id"`
}

// OrderTimeoutCancelPayload 超时取消任务载荷
type OrderTimeoutCancelPayload struct {
	OrderID uint `json:"order_id"`
}

// NewPayoutStatementTask 创建结算单生成任务
func NewPayoutStatementTask(payload PayoutStatementPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPayoutStatement, body), nil
}

// NewReferralRewardTask 创建推荐奖励任务
func NewReferralRewardTask(payload ReferralRewardPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReferralReward, body), nil
}

// NewCreditExpiryNoticeTask 创建过期提醒任务
func NewCreditExpiryNoticeTask(payload CreditExpiryNoticePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCreditExpiryNotice, body), nil
}

// NewOrderTimeoutCancelTask 创建订单超时取消任务
func NewOrderTimeoutCancelTask(payload OrderTimeoutCancelPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderTimeoutCancel, body), nil
}
