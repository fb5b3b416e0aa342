package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/makerplace/makerplace/internal/http/response"
	"github.com/makerplace/makerplace/internal/logger"
	"github.com/makerplace/makerplace/internal/repository"
	"github.com/makerplace/makerplace/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminListOrders 获取订单列表 (Admin)
func (h *Handler) AdminListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	shopID, _ := strconv.ParseUint(c.Query("shop_id"), 10, 64)
	buyerUserID, _ := strconv.ParseUint(c.Query("buyer_user_id"), 10, 64)

	createdFrom, err := parseTimeNullable(c.Query("created_from"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}
	createdTo, err := parseTimeNullable(c.Query("created_to"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	orders, total, err := h.OrderService.ListOrders(repository.OrderListFilter{
		Page:        page,
		PageSize:    pageSize,
		ShopID:      uint(shopID),
		BuyerUserID: uint(buyerUserID),
		Status:      strings.TrimSpace(c.Query("status")),
		OrderNo:     strings.TrimSpace(c.Query("order_no")),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "查询订单失败", err)
		return
	}

	response.SuccessWithPage(c, orders, response.BuildPagination(page, pageSize, total))
}

// AdminGetOrder 获取订单详情 (Admin)
func (h *Handler) AdminGetOrder(c *gin.Context) {
	orderID, ok := parseOrderIDParam(c)
	if !ok {
		return
	}

	order, err := h.OrderService.GetOrder(orderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, response.CodeNotFound, service.ErrOrderNotFound.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "查询订单失败", err)
		return
	}

	response.Success(c, order)
}

// AdminMarkOrderPaid 管理端确认订单支付（幂等）
func (h *Handler) AdminMarkOrderPaid(c *gin.Context) {
	orderID, ok := parseOrderIDParam(c)
	if !ok {
		return
	}

	order, err := h.OrderService.MarkPaid(orderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			respondError(c, response.CodeNotFound, service.ErrOrderNotFound.Error(), nil)
		case errors.Is(err, service.ErrOrderStateInvalid):
			respondError(c, response.CodeBadRequest, service.ErrOrderStateInvalid.Error(), nil)
		case errors.Is(err, service.ErrDealUsageExceeded):
			respondError(c, response.CodeBadRequest, service.ErrDealUsageExceeded.Error(), nil)
		case errors.Is(err, service.ErrCreditInsufficient):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		default:
			respondError(c, response.CodeInternal, "支付确认失败", err)
		}
		return
	}

	logger.Infow("admin_order_marked_paid",
		"operator_admin_id", currentAdminID(c),
		"order_id", orderID,
	)

	response.Success(c, order)
}

// AdminCancelOrder 管理端取消待支付订单
func (h *Handler) AdminCancelOrder(c *gin.Context) {
	orderID, ok := parseOrderIDParam(c)
	if !ok {
		return
	}

	order, err := h.OrderService.CancelOrder(orderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			respondError(c, response.CodeNotFound, service.ErrOrderNotFound.Error(), nil)
		case errors.Is(err, service.ErrOrderStateInvalid):
			respondError(c, response.CodeBadRequest, service.ErrOrderStateInvalid.Error(), nil)
		default:
			respondError(c, response.CodeInternal, "取消订单失败", err)
		}
		return
	}

	response.Success(c, order)
}

// AdminRefundOrderRequest 管理端退款请求
type AdminRefundOrderRequest struct {
	AmountCents int64  `json:"amount_cents" binding:"required"`
	Note        string `json:"note"`
}

// AdminRefundOrder 管理端将订单金额退回买家信用额度
func (h *Handler) AdminRefundOrder(c *gin.Context) {
	orderID, ok := parseOrderIDParam(c)
	if !ok {
		return
	}

	var req AdminRefundOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	order, err := h.OrderService.RefundToCredit(orderID, req.AmountCents, req.Note)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			respondError(c, response.CodeNotFound, service.ErrOrderNotFound.Error(), nil)
		case errors.Is(err, service.ErrInvalidAmount):
			respondError(c, response.CodeBadRequest, service.ErrInvalidAmount.Error(), nil)
		case errors.Is(err, service.ErrOrderStateInvalid):
			respondError(c, response.CodeBadRequest, service.ErrOrderStateInvalid.Error(), nil)
		case errors.Is(err, service.ErrRefundExceeds):
			respondError(c, response.CodeBadRequest, service.ErrRefundExceeds.Error(), nil)
		default:
			respondError(c, response.CodeInternal, "退款失败", err)
		}
		return
	}

	logger.Infow("admin_order_refunded",
		"operator_admin_id", currentAdminID(c),
		"order_id", orderID,
		"amount_cents", req.AmountCents,
	)

	response.Success(c, order)
}

// AdminSweepExpiredOrders 立即清理过期待支付订单
func (h *Handler) AdminSweepExpiredOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "200"))

	swept, err := h.OrderService.SweepExpiredOrders(limit)
	if err != nil {
		respondError(c, response.CodeInternal, "清理过期订单失败", err)
		return
	}

	response.Success(c, gin.H{"swept": swept})
}

func parseOrderIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "订单ID无效", nil)
		return 0, false
	}
	return uint(id), true
}
