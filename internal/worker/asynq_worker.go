package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/makerplace/makerplace/internal/logger"
	"github.com/makerplace/makerplace/internal/provider"
	"github.com/makerplace/makerplace/internal/queue"
	"github.com/makerplace/makerplace/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskPayoutStatement, c.handlePayoutStatement)
	mux.HandleFunc(queue.TaskReferralReward, c.handleReferralReward)
	mux.HandleFunc(queue.TaskCreditExpiryNotice, c.handleCreditExpiryNotice)
	mux.HandleFunc(queue.TaskOrderTimeoutCancel, c.handleOrderTimeoutCancel)
}

func (c *Consumer) handlePayoutStatement(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_payout_statement_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.PayoutStatementPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_payout_statement_unmarshal_failed", "error", err)
		return err
	}
	if payload.ShopID == 0 {
		logger.Debugw("worker_payout_statement_skip_invalid_payload", "shop_id", payload.ShopID)
		return nil
	}
	if c.PayoutService == nil {
		logger.Warnw("worker_payout_statement_skip_service_nil", "shop_id", payload.ShopID)
		return nil
	}
	statement, err := c.PayoutService.GenerateStatement(payload.ShopID, payload.Year, payload.Month)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrShopNotFound):
			logger.Debugw("worker_payout_statement_skip_shop_not_found", "shop_id", payload.ShopID)
			return nil
		case errors.Is(err, service.ErrStatementPeriodInvalid):
			logger.Debugw("worker_payout_statement_skip_invalid_period",
				"shop_id", payload.ShopID, "year", payload.Year, "month", payload.Month)
			return nil
		default:
			logger.Warnw("worker_payout_statement_failed",
				"shop_id", payload.ShopID, "year", payload.Year, "month", payload.Month, "error", err)
			return err
		}
	}
	logger.Infow("worker_payout_statement_generated",
		"shop_id", payload.ShopID,
		"year", payload.Year,
		"month", payload.Month,
		"net_payout_cents", statement.NetPayoutCents,
	)
	return nil
}

func (c *Consumer) handleReferralReward(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_referral_reward_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ReferralRewardPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_referral_reward_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_referral_reward_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.ReferralService == nil {
		logger.Warnw("worker_referral_reward_skip_service_nil", "order_id", payload.OrderID)
		return nil
	}
	if err := c.ReferralService.RewardForOrder(payload.OrderID); err != nil {
		logger.Warnw("worker_referral_reward_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleCreditExpiryNotice(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_credit_expiry_notice_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.CreditExpiryNoticePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_credit_expiry_notice_unmarshal_failed", "error", err)
		return err
	}
	if payload.EntryID == 0 {
		logger.Debugw("worker_credit_expiry_notice_skip_invalid_payload", "entry_id", payload.EntryID)
		return nil
	}
	entry, err := c.CreditRepo.GetEntryByID(payload.EntryID)
	if err != nil {
		logger.Warnw("worker_credit_expiry_notice_fetch_failed", "entry_id", payload.EntryID, "error", err)
		return err
	}
	if entry == nil || entry.ExpiresAt == nil {
		logger.Debugw("worker_credit_expiry_notice_skip_entry_missing", "entry_id", payload.EntryID)
		return nil
	}
	logger.Infow("credit_expiry_notice",
		"entry_id", entry.ID,
		"user_id", entry.UserID,
		"amount_cents", entry.AmountCents,
		"reason", entry.Reason,
		"expires_at", entry.ExpiresAt,
	)
	return nil
}

func (c *Consumer) handleOrderTimeoutCancel(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_timeout_cancel_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderTimeoutCancelPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_timeout_cancel_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_timeout_cancel_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.OrderService == nil {
		logger.Warnw("worker_order_timeout_cancel_skip_order_service_nil", "order_id", payload.OrderID)
		return nil
	}
	if err := c.OrderService.CancelIfExpired(payload.OrderID); err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			logger.Debugw("worker_order_timeout_cancel_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		case errors.Is(err, service.ErrOrderStateInvalid):
			logger.Debugw("worker_order_timeout_cancel_skip_state", "order_id", payload.OrderID)
			return nil
		default:
			logger.Warnw("worker_order_timeout_cancel_failed", "order_id", payload.OrderID, "error", err)
			return err
		}
	}
	return nil
}
