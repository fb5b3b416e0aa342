package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/makerplace/makerplace/internal/config"
	"github.com/makerplace/makerplace/internal/constants"
	"github.com/makerplace/makerplace/internal/logger"
	"github.com/makerplace/makerplace/internal/models"
	"github.com/makerplace/makerplace/internal/repository"
)

// ReferralService 推荐奖励服务
// 被推荐人完成首笔支付后，给推荐人发放一次性信用额度奖励。
type ReferralService struct {
	userRepo      repository.UserRepository
	orderRepo     repository.OrderRepository
	creditService *CreditService
	cfg           config.ReferralConfig
}

// NewReferralService 创建推荐奖励服务
func NewReferralService(
	userRepo repository.UserRepository,
	orderRepo repository.OrderRepository,
	creditService *CreditService,
	cfg config.ReferralConfig,
) *ReferralService {
	return &ReferralService{
		userRepo:      userRepo,
		orderRepo:     orderRepo,
		creditService: creditService,
		cfg:           cfg,
	}
}

// BindReferrer 注册时绑定推荐人
func (s *ReferralService) BindReferrer(user *models.User, referralCode string) error {
	code := strings.TrimSpace(referralCode)
	if code == "" {
		return nil
	}
	referrer, err := s.userRepo.GetByReferralCode(code)
	if err != nil {
		return err
	}
	if referrer == nil || referrer.ID == user.ID {
		return nil
	}
	user.ReferredByUserID = &referrer.ID
	return nil
}

// RewardForOrder 订单支付后的推荐奖励（队列任务回调）
// 仅奖励被推荐人的首笔已支付订单，同一订单重复投递按幂等处理。
func (s *ReferralService) RewardForOrder(orderID uint) error {
	if !s.cfg.Enabled || s.cfg.RewardCents <= 0 {
		return nil
	}

	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return nil
	}
	if order.Status != constants.OrderStatusPaid && order.Status != constants.OrderStatusRefunded {
		return nil
	}

	buyer, err := s.userRepo.GetByID(order.BuyerUserID)
	if err != nil {
		return err
	}
	if buyer == nil || buyer.ReferredByUserID == nil {
		return nil
	}

	paidCount, err := s.orderRepo.CountPaidByBuyer(buyer.ID)
	if err != nil {
		return err
	}
	if paidCount != 1 {
		return nil
	}

	var expiresAt *time.Time
	if s.cfg.RewardExpireDays > 0 {
		expires := time.Now().AddDate(0, 0, s.cfg.RewardExpireDays)
		expiresAt = &expires
	}

	// Reference 以被推荐人为键：即便首单判定被并发重放，奖励也只发一次
	_, err = s.creditService.Grant(GrantInput{
		UserID:      *buyer.ReferredByUserID,
		AmountCents: s.cfg.RewardCents,
		Reason:      constants.CreditReasonReferralReward,
		FunderType:  constants.CreditFunderPlatform,
		Reference:   fmt.Sprintf("referral:%d:first_order", buyer.ID),
		ExpiresAt:   expiresAt,
		Note:        fmt.Sprintf("推荐用户 %s 完成首单", buyer.Email),
	})
	if err != nil {
		return err
	}

	logger.Infow("referral_reward_granted",
		"referrer_user_id", *buyer.ReferredByUserID,
		"referred_user_id", buyer.ID,
		"order_id", order.ID,
		"reward_cents", s.cfg.RewardCents,
	)
	return nil
}
