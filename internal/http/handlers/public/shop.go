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

// ShopCreateRequest 开店请求
type ShopCreateRequest struct {
	Slug     string `json:"slug" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Currency string `json:"currency"`
}

// ShopCreate 用户开店（一个用户一家店铺）
func (h *Handler) ShopCreate(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req ShopCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	if _, err := h.ShopService.GetShopByOwner(userID); err == nil {
		respondError(c, response.CodeBadRequest, service.ErrShopExists.Error(), nil)
		return
	} else if !errors.Is(err, service.ErrShopNotFound) {
		respondError(c, response.CodeInternal, "创建店铺失败", err)
		return
	}

	shop, err := h.ShopService.CreateShop(service.CreateShopInput{
		OwnerUserID: userID,
		Slug:        req.Slug,
		Name:        req.Name,
		Currency:    req.Currency,
	})
	if err != nil {
		respondWithMappedError(c, err, shopManageErrorRules, response.CodeInternal, "创建店铺失败")
		return
	}

	response.Success(c, shop)
}

// ShopMine 查看自己的店铺
func (h *Handler) ShopMine(c *gin.Context) {
	shop, ok := h.ownShop(c)
	if !ok {
		return
	}
	response.Success(c, shop)
}

// ShopUpdateRequest 更新店铺请求
type ShopUpdateRequest struct {
	Name string `json:"name" binding:"required"`
}

// ShopUpdate 更新自己的店铺名称
func (h *Handler) ShopUpdate(c *gin.Context) {
	shop, ok := h.ownShop(c)
	if !ok {
		return
	}

	var req ShopUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	updated, err := h.ShopService.UpdateShopName(shop.ID, req.Name)
	if err != nil {
		respondWithMappedError(c, err, shopManageErrorRules, response.CodeInternal, "更新店铺失败")
		return
	}

	response.Success(c, updated)
}

// ShopDetail 按标识查看店铺（公开）
func (h *Handler) ShopDetail(c *gin.Context) {
	shop, err := h.ShopService.GetShopBySlug(c.Param("slug"))
	if err != nil {
		if errors.Is(err, service.ErrShopNotFound) {
			respondError(c, response.CodeNotFound, service.ErrShopNotFound.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "查询店铺失败", err)
		return
	}
	response.Success(c, shop)
}

// ShopOrderList 卖家查看自己店铺的订单
func (h *Handler) ShopOrderList(c *gin.Context) {
	shop, ok := h.ownShop(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	orders, total, err := h.OrderService.ListOrders(repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		ShopID:   shop.ID,
		Status:   c.Query("status"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "查询订单失败", err)
		return
	}

	response.SuccessWithPage(c, orders, pagination(page, pageSize, total))
}

// ShopPayoutSummary 卖家查看指定月份的结算汇总（只读，可重复查询）
func (h *Handler) ShopPayoutSummary(c *gin.Context) {
	shop, ok := h.ownShop(c)
	if !ok {
		return
	}

	year, _ := strconv.Atoi(c.Query("year"))
	month, _ := strconv.Atoi(c.Query("month"))

	summary, err := h.PayoutService.Summarize(shop.ID, year, month)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrStatementPeriodInvalid):
			respondError(c, response.CodeBadRequest, service.ErrStatementPeriodInvalid.Error(), nil)
		case errors.Is(err, service.ErrShopNotFound):
			respondError(c, response.CodeNotFound, service.ErrShopNotFound.Error(), nil)
		default:
			respondError(c, response.CodeInternal, "查询结算汇总失败", err)
		}
		return
	}

	response.Success(c, summary)
}

// ShopStatementList 卖家查看自己店铺的结算单
func (h *Handler) ShopStatementList(c *gin.Context) {
	shop, ok := h.ownShop(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)
	year, _ := strconv.Atoi(c.Query("year"))
	month, _ := strconv.Atoi(c.Query("month"))

	statements, total, err := h.PayoutService.ListStatements(repository.StatementListFilter{
		Page:     page,
		PageSize: pageSize,
		ShopID:   shop.ID,
		Year:     year,
		Month:    month,
		Status:   c.Query("status"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "查询结算单失败", err)
		return
	}

	response.SuccessWithPage(c, statements, pagination(page, pageSize, total))
}

// ShopRefundRequest 卖家退款请求
type ShopRefundRequest struct {
	AmountCents int64  `json:"amount_cents" binding:"required"`
	Note        string `json:"note"`
}

// ShopOrderRefund 卖家将订单金额退回买家信用额度
func (h *Handler) ShopOrderRefund(c *gin.Context) {
	shop, ok := h.ownShop(c)
	if !ok {
		return
	}

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || orderID == 0 {
		respondError(c, response.CodeBadRequest, "订单ID无效", nil)
		return
	}

	order, err := h.OrderService.GetOrder(uint(orderID))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, response.CodeNotFound, service.ErrOrderNotFound.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "查询订单失败", err)
		return
	}
	if order.ShopID != shop.ID {
		respondError(c, response.CodeNotFound, service.ErrOrderNotFound.Error(), nil)
		return
	}

	var req ShopRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	refunded, err := h.OrderService.RefundToCredit(order.ID, req.AmountCents, req.Note)
	if err != nil {
		switch {
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

	response.Success(c, refunded)
}

// ownShop 获取当前用户名下的店铺。
func (h *Handler) ownShop(c *gin.Context) (*models.Shop, bool) {
	userID, ok := getUserID(c)
	if !ok {
		return nil, false
	}

	shop, err := h.ShopService.GetShopByOwner(userID)
	if err != nil {
		if errors.Is(err, service.ErrShopNotFound) {
			respondError(c, response.CodeNotFound, service.ErrShopNotFound.Error(), nil)
			return nil, false
		}
		respondError(c, response.CodeInternal, "查询店铺失败", err)
		return nil, false
	}
	return shop, true
}
