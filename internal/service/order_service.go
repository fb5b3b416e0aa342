package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/makerplace/makerplace/internal/config"
	"github.com/makerplace/makerplace/internal/constants"
	"github.com/makerplace/makerplace/internal/logger"
	"github.com/makerplace/makerplace/internal/models"
	"github.com/makerplace/makerplace/internal/queue"
	"github.com/makerplace/makerplace/internal/repository"

	"gorm.io/gorm"
)

// OrderService 订单服务
// 各项费用在下单时按当时费率一次性写入订单，结算期内费率调整不影响已生成的订单。
type OrderService struct {
	db            *gorm.DB
	orderRepo     repository.OrderRepository
	listingRepo   repository.ListingRepository
	shopRepo      repository.ShopRepository
	userRepo      repository.UserRepository
	dealService   *DealService
	creditService *CreditService
	queueClient   *queue.Client
	billing       config.BillingConfig
}

// NewOrderService 创建订单服务
func NewOrderService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	listingRepo repository.ListingRepository,
	shopRepo repository.ShopRepository,
	userRepo repository.UserRepository,
	dealService *DealService,
	creditService *CreditService,
	queueClient *queue.Client,
	billing config.BillingConfig,
) *OrderService {
	return &OrderService{
		db:            db,
		orderRepo:     orderRepo,
		listingRepo:   listingRepo,
		shopRepo:      shopRepo,
		userRepo:      userRepo,
		dealService:   dealService,
		creditService: creditService,
		queueClient:   queueClient,
		billing:       billing,
	}
}

// CreateOrderInput 创建订单输入
type CreateOrderInput struct {
	BuyerUserID uint
	ListingID   uint
	Quantity    int
	DealCode    string // 显式优惠码；为空时自动匹配最优可用优惠
	CreditCents int64  // 期望抵扣的信用额度（分），支付确认时实际扣减
}

// CreateOrder 创建订单（待支付状态）
func (s *OrderService) CreateOrder(input CreateOrderInput) (*models.Order, error) {
	if input.BuyerUserID == 0 || input.ListingID == 0 || input.Quantity <= 0 {
		return nil, ErrInvalidAmount
	}
	if input.CreditCents < 0 {
		return nil, ErrInvalidAmount
	}

	buyer, err := s.userRepo.GetByID(input.BuyerUserID)
	if err != nil {
		return nil, err
	}
	if buyer == nil {
		return nil, ErrUserNotFound
	}
	if buyer.Status == constants.UserStatusDisabled {
		return nil, ErrUserDisabled
	}

	listing, err := s.listingRepo.GetByID(input.ListingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, ErrListingNotFound
	}
	if listing.Status != constants.ListingStatusActive {
		return nil, ErrListingInactive
	}

	shop, err := s.shopRepo.GetByID(listing.ShopID)
	if err != nil {
		return nil, err
	}
	if shop == nil {
		return nil, ErrShopNotFound
	}
	if shop.Status != constants.ShopStatusActive {
		return nil, ErrShopSuspended
	}

	subtotal := listing.PriceCents * int64(input.Quantity)

	var dealID *uint
	var discount int64
	if code := strings.TrimSpace(input.DealCode); code != "" {
		quote, err := s.dealService.ResolveByCode(shop.ID, code, subtotal)
		if err != nil {
			return nil, err
		}
		dealID = &quote.Deal.ID
		discount = quote.DiscountCents
	} else {
		quote, err := s.dealService.ResolveBestForListing(shop.ID, listing.ID, subtotal)
		if err != nil {
			return nil, err
		}
		if quote != nil {
			dealID = &quote.Deal.ID
			discount = quote.DiscountCents
		}
	}

	payable := subtotal - discount
	creditUsed := input.CreditCents
	if creditUsed > payable {
		creditUsed = payable
	}
	if creditUsed > 0 {
		available, err := s.creditService.Balance(input.BuyerUserID)
		if err != nil {
			return nil, err
		}
		if available < creditUsed {
			return nil, &InsufficientBalanceError{
				AvailableCents: available,
				RequestedCents: creditUsed,
			}
		}
	}
	total := payable - creditUsed

	order := &models.Order{
		OrderNo:              generateOrderNo(),
		ShopID:               shop.ID,
		BuyerUserID:          input.BuyerUserID,
		ListingID:            listing.ID,
		Quantity:             input.Quantity,
		Status:               constants.OrderStatusPendingPayment,
		Currency:             shop.Currency,
		SubtotalCents:        subtotal,
		DiscountCents:        discount,
		StoreCreditUsedCents: creditUsed,
		TotalCents:           total,
		PlatformFeeCents:     models.BpsOf(subtotal, s.billing.PlatformFeeBps),
		ProcessingFeeCents:   s.processingFee(total),
		AdFeeCents:           s.adFee(listing, subtotal),
		DealID:               dealID,
	}
	if s.billing.PaymentExpireMinutes > 0 {
		expires := time.Now().Add(time.Duration(s.billing.PaymentExpireMinutes) * time.Minute)
		order.ExpiresAt = &expires
	}

	if err := s.orderRepo.Create(order); err != nil {
		return nil, err
	}

	if order.ExpiresAt != nil && s.queueClient.Enabled() {
		delay := time.Until(*order.ExpiresAt)
		if err := s.queueClient.EnqueueOrderTimeoutCancel(queue.OrderTimeoutCancelPayload{OrderID: order.ID}, delay); err != nil {
			logger.Warnw("order_timeout_task_enqueue_failed", "error", err, "order_id", order.ID)
		}
	}

	logger.Infow("order_created",
		"order_no", order.OrderNo,
		"shop_id", order.ShopID,
		"buyer_user_id", order.BuyerUserID,
		"subtotal_cents", order.SubtotalCents,
		"discount_cents", order.DiscountCents,
		"total_cents", order.TotalCents,
	)
	return order, nil
}

// 支付处理费 = 实付金额按费率 + 固定每单费用；零元单不收处理费。
func (s *OrderService) processingFee(totalCents int64) int64 {
	if totalCents <= 0 {
		return 0
	}
	return models.BpsOf(totalCents, s.billing.ProcessingFeeBps) + s.billing.ProcessingFeeFixed
}

func (s *OrderService) adFee(listing *models.Listing, subtotalCents int64) int64 {
	if listing == nil || !listing.AdBoosted {
		return 0
	}
	return models.BpsOf(subtotalCents, s.billing.AdFeeBps)
}

// MarkPaid 确认订单支付
// 优惠核销与信用额度扣减在同一事务内完成，已支付订单重复确认按幂等处理。
func (s *OrderService) MarkPaid(orderID uint) (*models.Order, error) {
	var order *models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		order, txErr = s.orderRepo.WithTx(tx).GetByIDForUpdate(orderID)
		if txErr != nil {
			return txErr
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.Status == constants.OrderStatusPaid {
			return nil
		}
		if order.Status != constants.OrderStatusPendingPayment {
			return ErrOrderStateInvalid
		}

		if order.DealID != nil {
			deal, txErr := s.dealService.dealRepo.WithTx(tx).GetByID(*order.DealID)
			if txErr != nil {
				return txErr
			}
			if deal == nil {
				return ErrDealNotFound
			}
			if txErr := s.dealService.RedeemInTx(tx, deal, order, order.DiscountCents); txErr != nil {
				return txErr
			}
		}

		if order.StoreCreditUsedCents > 0 {
			orderID := order.ID
			if _, txErr := s.creditService.DebitInTx(tx, DebitInput{
				UserID:      order.BuyerUserID,
				AmountCents: order.StoreCreditUsedCents,
				Reason:      constants.CreditReasonOrderPayment,
				OrderID:     &orderID,
				Reference:   fmt.Sprintf("order:%d:credit", order.ID),
				Note:        fmt.Sprintf("订单 %s 信用额度抵扣", order.OrderNo),
			}); txErr != nil {
				return txErr
			}
		}

		now := time.Now()
		order.Status = constants.OrderStatusPaid
		order.PaidAt = &now
		return s.orderRepo.WithTx(tx).Update(order)
	})
	if err != nil {
		return nil, err
	}

	if order.PaidAt != nil && s.queueClient.Enabled() {
		if err := s.queueClient.EnqueueReferralReward(queue.ReferralRewardPayload{OrderID: order.ID}); err != nil {
			logger.Warnw("referral_reward_enqueue_failed", "error", err, "order_id", order.ID)
		}
	}

	logger.Infow("order_paid",
		"order_no", order.OrderNo,
		"buyer_user_id", order.BuyerUserID,
		"total_cents", order.TotalCents,
		"store_credit_used_cents", order.StoreCreditUsedCents,
	)
	return order, nil
}

// RefundToCredit 退款入信用额度
// 退款金额以买家实际支付（实付 + 信用额度抵扣）为上限，退满后订单转为已退款并回退优惠名额。
func (s *OrderService) RefundToCredit(orderID uint, amountCents int64, note string) (*models.Order, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}

	var order *models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		order, txErr = s.orderRepo.WithTx(tx).GetByIDForUpdate(orderID)
		if txErr != nil {
			return txErr
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.Status != constants.OrderStatusPaid {
			return ErrOrderStateInvalid
		}

		refundable := order.TotalCents + order.StoreCreditUsedCents
		if order.RefundedCents+amountCents > refundable {
			return ErrRefundExceeds
		}

		order.RefundedCents += amountCents
		refID := order.ID
		shopID := order.ShopID
		if _, txErr := s.creditService.GrantInTx(tx, GrantInput{
			UserID:       order.BuyerUserID,
			AmountCents:  amountCents,
			Reason:       constants.CreditReasonRefund,
			FunderType:   constants.CreditFunderSeller,
			FunderShopID: &shopID,
			OrderID:      &refID,
			Reference:    fmt.Sprintf("order:%d:refund:%d", order.ID, order.RefundedCents),
			Note:         note,
		}); txErr != nil {
			return txErr
		}

		if order.RefundedCents == refundable {
			order.Status = constants.OrderStatusRefunded
			if order.DealID != nil {
				if txErr := s.dealService.ReleaseInTx(tx, *order.DealID); txErr != nil {
					return txErr
				}
			}
		}
		return s.orderRepo.WithTx(tx).Update(order)
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("order_refunded_to_credit",
		"order_no", order.OrderNo,
		"amount_cents", amountCents,
		"refunded_cents", order.RefundedCents,
		"status", order.Status,
	)
	return order, nil
}

// CancelOrder 取消待支付订单
func (s *OrderService) CancelOrder(orderID uint) (*models.Order, error) {
	var order *models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		order, txErr = s.orderRepo.WithTx(tx).GetByIDForUpdate(orderID)
		if txErr != nil {
			return txErr
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.Status == constants.OrderStatusCanceled {
			return nil
		}
		if order.Status != constants.OrderStatusPendingPayment {
			return ErrOrderStateInvalid
		}
		now := time.Now()
		order.Status = constants.OrderStatusCanceled
		order.CanceledAt = &now
		return s.orderRepo.WithTx(tx).Update(order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// CancelIfExpired 超时取消（队列任务回调）
// 订单已支付或已取消时静默返回，仅处理仍在待支付且已过期的订单。
func (s *OrderService) CancelIfExpired(orderID uint) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil || order.Status != constants.OrderStatusPendingPayment {
		return nil
	}
	if order.ExpiresAt == nil || order.ExpiresAt.After(time.Now()) {
		return nil
	}
	if _, err := s.CancelOrder(orderID); err != nil {
		if err == ErrOrderStateInvalid {
			return nil
		}
		return err
	}
	logger.Infow("order_timeout_canceled", "order_id", orderID, "order_no", order.OrderNo)
	return nil
}

// SweepExpiredOrders 批量取消已过期的待支付订单（定时兜底）
func (s *OrderService) SweepExpiredOrders(limit int) (int, error) {
	orders, err := s.orderRepo.ListExpiredPending(time.Now(), limit)
	if err != nil {
		return 0, err
	}
	canceled := 0
	for i := range orders {
		if err := s.CancelIfExpired(orders[i].ID); err != nil {
			logger.Errorw("order_timeout_sweep_failed", "error", err, "order_id", orders[i].ID)
			continue
		}
		canceled++
	}
	return canceled, nil
}

// GetOrder 获取订单
func (s *OrderService) GetOrder(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetOrderByNo 根据订单号获取订单
func (s *OrderService) GetOrderByNo(orderNo string) (*models.Order, error) {
	order, err := s.orderRepo.GetByOrderNo(orderNo)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListOrders 分页查询订单
func (s *OrderService) ListOrders(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.List(filter)
}

func generateOrderNo() string {
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("MP%s%s", now, randNumeric(6))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}
