package public

import (
	"errors"
	"strconv"
	"time"

	handlershared "github.com/makerplace/makerplace/internal/http/handlers/shared"
	"github.com/makerplace/makerplace/internal/http/response"
	"github.com/makerplace/makerplace/internal/models"
	"github.com/makerplace/makerplace/internal/repository"
	"github.com/makerplace/makerplace/internal/service"

	"github.com/gin-gonic/gin"
)

// DealQuoteRequest 优惠试算请求
// 传入 code 时按优惠码解析，否则自动匹配该商品当前最优可用优惠。
type DealQuoteRequest struct {
	ListingID     uint   `json:"listing_id" binding:"required"`
	Quantity      int    `json:"quantity"`
	Code          string `json:"code"`
	SubtotalCents int64  `json:"subtotal_cents"`
}

// DealQuote 优惠试算（只读，不产生任何核销副作用）
func (h *Handler) DealQuote(c *gin.Context) {
	var req DealQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	listing, err := h.ListingService.GetListing(req.ListingID)
	if err != nil {
		if errors.Is(err, service.ErrListingNotFound) {
			respondError(c, response.CodeNotFound, service.ErrListingNotFound.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "查询商品失败", err)
		return
	}

	subtotal := req.SubtotalCents
	if subtotal <= 0 {
		quantity := req.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		subtotal = listing.PriceCents * int64(quantity)
	}

	var quote *service.DealQuote
	if req.Code != "" {
		quote, err = h.DealService.ResolveByCode(listing.ShopID, req.Code, subtotal)
	} else {
		quote, err = h.DealService.ResolveBestForListing(listing.ShopID, listing.ID, subtotal)
	}
	if err != nil {
		respondWithMappedError(c, err, dealResolveErrorRules, response.CodeInternal, "优惠试算失败")
		return
	}
	if quote == nil {
		response.Success(c, gin.H{
			"deal":           nil,
			"discount_cents": 0,
			"payable_cents":  subtotal,
		})
		return
	}

	response.Success(c, gin.H{
		"deal":           quote.Deal,
		"discount_cents": quote.DiscountCents,
		"payable_cents":  quote.PayableCents,
	})
}

// ShopDealCreateRequest 卖家创建优惠请求
type ShopDealCreateRequest struct {
	ListingID        *uint      `json:"listing_id"`
	Code             string     `json:"code" binding:"required"`
	Name             string     `json:"name"`
	Type             string     `json:"type" binding:"required"`
	Value            int64      `json:"value" binding:"required"`
	MinPurchaseCents int64      `json:"min_purchase_cents"`
	MaxUses          int        `json:"max_uses"`
	StartsAt         *time.Time `json:"starts_at"`
	EndsAt           *time.Time `json:"ends_at"`
	IsActive         *bool      `json:"is_active"`
}

// ShopDealCreate 卖家为自己的店铺创建优惠
func (h *Handler) ShopDealCreate(c *gin.Context) {
	shop, ok := h.ownShop(c)
	if !ok {
		return
	}

	var req ShopDealCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	deal := &models.Deal{
		ShopID:           shop.ID,
		ListingID:        req.ListingID,
		Code:             req.Code,
		Name:             req.Name,
		Type:             req.Type,
		Value:            req.Value,
		MinPurchaseCents: req.MinPurchaseCents,
		MaxUses:          req.MaxUses,
		StartsAt:         req.StartsAt,
		EndsAt:           req.EndsAt,
		IsActive:         true,
	}
	if req.IsActive != nil {
		deal.IsActive = *req.IsActive
	}

	if err := h.DealService.CreateDeal(deal); err != nil {
		respondWithMappedError(c, err, dealManageErrorRules, response.CodeInternal, "创建优惠失败")
		return
	}

	response.Success(c, deal)
}

// ShopDealUpdate 卖家更新优惠（已使用次数不可被覆盖）
func (h *Handler) ShopDealUpdate(c *gin.Context) {
	shop, ok := h.ownShop(c)
	if !ok {
		return
	}

	deal, ok := h.ownDeal(c, shop)
	if !ok {
		return
	}

	var req ShopDealCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	deal.ListingID = req.ListingID
	deal.Code = req.Code
	deal.Name = req.Name
	deal.Type = req.Type
	deal.Value = req.Value
	deal.MinPurchaseCents = req.MinPurchaseCents
	deal.MaxUses = req.MaxUses
	deal.StartsAt = req.StartsAt
	deal.EndsAt = req.EndsAt
	if req.IsActive != nil {
		deal.IsActive = *req.IsActive
	}

	if err := h.DealService.UpdateDeal(deal); err != nil {
		respondWithMappedError(c, err, dealManageErrorRules, response.CodeInternal, "更新优惠失败")
		return
	}

	response.Success(c, deal)
}

// ShopDealDelete 卖家删除优惠
func (h *Handler) ShopDealDelete(c *gin.Context) {
	shop, ok := h.ownShop(c)
	if !ok {
		return
	}

	deal, ok := h.ownDeal(c, shop)
	if !ok {
		return
	}

	if err := h.DealService.DeleteDeal(deal.ID); err != nil {
		respondWithMappedError(c, err, dealManageErrorRules, response.CodeInternal, "删除优惠失败")
		return
	}

	response.Success(c, gin.H{"deleted": true})
}

// ShopDealList 卖家查看自己店铺的优惠列表
func (h *Handler) ShopDealList(c *gin.Context) {
	shop, ok := h.ownShop(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	deals, total, err := h.DealService.ListDeals(repository.DealListFilter{
		Page:     page,
		PageSize: pageSize,
		ShopID:   shop.ID,
		Code:     c.Query("code"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "查询优惠失败", err)
		return
	}

	response.SuccessWithPage(c, deals, pagination(page, pageSize, total))
}

// ownDeal 解析路径中的优惠ID并校验店铺归属。
func (h *Handler) ownDeal(c *gin.Context, shop *models.Shop) (*models.Deal, bool) {
	dealID, err := strconv.ParseUint(c.Param("deal_id"), 10, 64)
	if err != nil || dealID == 0 {
		respondError(c, response.CodeBadRequest, "优惠ID无效", nil)
		return nil, false
	}

	deal, err := h.DealService.GetDeal(uint(dealID))
	if err != nil {
		if errors.Is(err, service.ErrDealNotFound) {
			respondError(c, response.CodeNotFound, service.ErrDealNotFound.Error(), nil)
			return nil, false
		}
		respondError(c, response.CodeInternal, "查询优惠失败", err)
		return nil, false
	}
	if deal.ShopID != shop.ID {
		respondError(c, response.CodeNotFound, service.ErrDealNotFound.Error(), nil)
		return nil, false
	}
	return deal, true
}
