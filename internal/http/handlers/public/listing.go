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

// ListingBrowse 公开浏览在售商品
func (h *Handler) ListingBrowse(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)
	shopID, _ := strconv.ParseUint(c.Query("shop_id"), 10, 64)

	listings, total, err := h.ListingService.ListListings(repository.ListingListFilter{
		Page:       page,
		PageSize:   pageSize,
		ShopID:     uint(shopID),
		Search:     c.Query("search"),
		OnlyActive: true,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "查询商品失败", err)
		return
	}

	response.SuccessWithPage(c, listings, pagination(page, pageSize, total))
}

// ListingDetail 按标识查看商品（公开）
func (h *Handler) ListingDetail(c *gin.Context) {
	listing, err := h.ListingService.GetListingBySlug(c.Param("slug"))
	if err != nil {
		if errors.Is(err, service.ErrListingNotFound) {
			respondError(c, response.CodeNotFound, service.ErrListingNotFound.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "查询商品失败", err)
		return
	}
	response.Success(c, listing)
}

// ShopListingCreateRequest 卖家上架商品请求
type ShopListingCreateRequest struct {
	Slug       string `json:"slug" binding:"required"`
	Title      string `json:"title" binding:"required"`
	PriceCents int64  `json:"price_cents" binding:"required"`
	AdBoosted  bool   `json:"ad_boosted"`
}

// ShopListingCreate 卖家上架商品（收取上架费）
func (h *Handler) ShopListingCreate(c *gin.Context) {
	shop, ok := h.ownShop(c)
	if !ok {
		return
	}

	var req ShopListingCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	listing, err := h.ListingService.CreateListing(service.CreateListingInput{
		ShopID:     shop.ID,
		Slug:       req.Slug,
		Title:      req.Title,
		PriceCents: req.PriceCents,
		AdBoosted:  req.AdBoosted,
	})
	if err != nil {
		respondWithMappedError(c, err, listingManageErrorRules, response.CodeInternal, "上架商品失败")
		return
	}

	response.Success(c, listing)
}

// ShopListingUpdateRequest 卖家更新商品请求
type ShopListingUpdateRequest struct {
	Title      string `json:"title"`
	PriceCents int64  `json:"price_cents"`
	AdBoosted  *bool  `json:"ad_boosted"`
}

// ShopListingUpdate 卖家更新商品信息
func (h *Handler) ShopListingUpdate(c *gin.Context) {
	shop, ok := h.ownShop(c)
	if !ok {
		return
	}

	listing, ok := h.ownListing(c, shop)
	if !ok {
		return
	}

	var req ShopListingUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	updated, err := h.ListingService.UpdateListing(listing.ID, service.UpdateListingInput{
		Title:      req.Title,
		PriceCents: req.PriceCents,
		AdBoosted:  req.AdBoosted,
	})
	if err != nil {
		respondWithMappedError(c, err, listingManageErrorRules, response.CodeInternal, "更新商品失败")
		return
	}

	response.Success(c, updated)
}

// ShopListingRenew 卖家续期商品（重新上架并收取续期费）
func (h *Handler) ShopListingRenew(c *gin.Context) {
	shop, ok := h.ownShop(c)
	if !ok {
		return
	}

	listing, ok := h.ownListing(c, shop)
	if !ok {
		return
	}

	renewed, err := h.ListingService.RenewListing(listing.ID)
	if err != nil {
		respondWithMappedError(c, err, listingManageErrorRules, response.CodeInternal, "续期商品失败")
		return
	}

	response.Success(c, renewed)
}

// ShopListingDeactivate 卖家下架商品
func (h *Handler) ShopListingDeactivate(c *gin.Context) {
	shop, ok := h.ownShop(c)
	if !ok {
		return
	}

	listing, ok := h.ownListing(c, shop)
	if !ok {
		return
	}

	deactivated, err := h.ListingService.DeactivateListing(listing.ID)
	if err != nil {
		respondWithMappedError(c, err, listingManageErrorRules, response.CodeInternal, "下架商品失败")
		return
	}

	response.Success(c, deactivated)
}

// ShopListingList 卖家查看自己店铺的全部商品
func (h *Handler) ShopListingList(c *gin.Context) {
	shop, ok := h.ownShop(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	listings, total, err := h.ListingService.ListListings(repository.ListingListFilter{
		Page:     page,
		PageSize: pageSize,
		ShopID:   shop.ID,
		Status:   c.Query("status"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "查询商品失败", err)
		return
	}

	response.SuccessWithPage(c, listings, pagination(page, pageSize, total))
}

// ShopListingFeeList 卖家查看自己店铺的上架费流水
func (h *Handler) ShopListingFeeList(c *gin.Context) {
	shop, ok := h.ownShop(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)
	year, _ := strconv.Atoi(c.Query("year"))
	month, _ := strconv.Atoi(c.Query("month"))

	fees, total, err := h.ListingService.ListListingFees(repository.ListingFeeListFilter{
		Page:     page,
		PageSize: pageSize,
		ShopID:   shop.ID,
		Year:     year,
		Month:    month,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "查询上架费失败", err)
		return
	}

	response.SuccessWithPage(c, fees, pagination(page, pageSize, total))
}

// ownListing 解析路径中的商品ID并校验店铺归属。
func (h *Handler) ownListing(c *gin.Context, shop *models.Shop) (*models.Listing, bool) {
	listingID, err := strconv.ParseUint(c.Param("listing_id"), 10, 64)
	if err != nil || listingID == 0 {
		respondError(c, response.CodeBadRequest, "商品ID无效", nil)
		return nil, false
	}

	listing, err := h.ListingService.GetListing(uint(listingID))
	if err != nil {
		if errors.Is(err, service.ErrListingNotFound) {
			respondError(c, response.CodeNotFound, service.ErrListingNotFound.Error(), nil)
			return nil, false
		}
		respondError(c, response.CodeInternal, "查询商品失败", err)
		return nil, false
	}
	if listing.ShopID != shop.ID {
		respondError(c, response.CodeNotFound, service.ErrListingNotFound.Error(), nil)
		return nil, false
	}
	return listing, true
}
