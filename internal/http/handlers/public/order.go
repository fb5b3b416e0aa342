package public

import (
	"errors"
	"strconv"

	handlershared "github.com/makerplace/makerplace/internal/http/handlers/shared"
	"github.com/makerplace/makerplace/internal/http/response"
	"github.com/makerplace/makerplace/internal/models"
	"github.com/makerplace/makerplace/internal/repository"
	"github.com/makerplace/makerplace/internal/service"

	"github.com/gin-gonic/gin"
)

// OrderCreateRequest 创建订单请求
type OrderCreateRequest struct {
	ListingID   uint   `json:"listing_id" binding:"required"`
	Quantity    int    `json:"quantity"`
	DealCode    string `json:"deal_code"`
	CreditCents int64  `json:"credit_cents"`
}

// OrderCreate 创建订单（待支付）
func (h *Handler) OrderCreate(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req OrderCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	order, err := h.OrderService.CreateOrder(service.CreateOrderInput{
		BuyerUserID: userID,
		ListingID:   req.ListingID,
		Quantity:    req.Quantity,
		DealCode:    req.DealCode,
		CreditCents: req.CreditCents,
	})
	if err != nil {
		respondWithMappedError(c, err, orderCreateErrorRules, response.CodeInternal, "创建订单失败")
		return
	}

	response.Success(c, order)
}

// OrderPay 确认支付（优惠核销与信用额度扣减在此事务内完成）
func (h *Handler) OrderPay(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	order, ok := h.ownOrder(c, userID)
	if !ok {
		return
	}

	paid, err := h.OrderService.MarkPaid(order.ID)
	if err != nil {
		respondWithMappedError(c, err, orderCreateErrorRules, response.CodeInternal, "支付确认失败")
		return
	}

	response.Success(c, paid)
}

// OrderCancel 取消待支付订单
func (h *Handler) OrderCancel(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	order, ok := h.ownOrder(c, userID)
	if !ok {
		return
	}

	canceled, err := h.OrderService.CancelOrder(order.ID)
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

	response.Success(c, canceled)
}

// OrderDetail 查看自己的订单详情
func (h *Handler) OrderDetail(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	order, ok := h.ownOrder(c, userID)
	if !ok {
		return
	}

	response.Success(c, order)
}

// OrderList 查看自己的订单列表
func (h *Handler) OrderList(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	orders, total, err := h.OrderService.ListOrders(repository.OrderListFilter{
		Page:        page,
		PageSize:    pageSize,
		BuyerUserID: userID,
		Status:      c.Query("status"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "查询订单失败", err)
		return
	}

	response.SuccessWithPage(c, orders, pagination(page, pageSize, total))
}

// ownOrder 解析路径中的订单ID并校验归属。
func (h *Handler) ownOrder(c *gin.Context, userID uint) (*models.Order, bool) {
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || orderID == 0 {
		respondError(c, response.CodeBadRequest, "订单ID无效", nil)
		return nil, false
	}

	order, err := h.OrderService.GetOrder(uint(orderID))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, response.CodeNotFound, service.ErrOrderNotFound.Error(), nil)
			return nil, false
		}
		respondError(c, response.CodeInternal, "查询订单失败", err)
		return nil, false
	}
	if order.BuyerUserID != userID {
		respondError(c, response.CodeNotFound, service.ErrOrderNotFound.Error(), nil)
		return nil, false
	}
	return order, true
}
