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

// AdminListShops 获取店铺列表 (Admin)
func (h *Handler) AdminListShops(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	ownerUserID, _ := strconv.ParseUint(c.Query("owner_user_id"), 10, 64)

	shops, total, err := h.ShopService.ListShops(repository.ShopListFilter{
		Page:        page,
		PageSize:    pageSize,
		OwnerUserID: uint(ownerUserID),
		Status:      strings.TrimSpace(c.Query("status")),
		Search:      strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "查询店铺失败", err)
		return
	}

	response.SuccessWithPage(c, shops, response.BuildPagination(page, pageSize, total))
}

// AdminGetShop 获取店铺详情 (Admin)
func (h *Handler) AdminGetShop(c *gin.Context) {
	shopID, ok := parseShopIDParam(c)
	if !ok {
		return
	}

	shop, err := h.ShopService.GetShop(shopID)
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

// AdminSuspendShop 暂停店铺
func (h *Handler) AdminSuspendShop(c *gin.Context) {
	h.adminSetShopStatus(c, true)
}

// AdminReinstateShop 恢复店铺
func (h *Handler) AdminReinstateShop(c *gin.Context) {
	h.adminSetShopStatus(c, false)
}

func (h *Handler) adminSetShopStatus(c *gin.Context, suspend bool) {
	shopID, ok := parseShopIDParam(c)
	if !ok {
		return
	}

	var shop interface{}
	var err error
	if suspend {
		shop, err = h.ShopService.SuspendShop(shopID)
	} else {
		shop, err = h.ShopService.ReinstateShop(shopID)
	}
	if err != nil {
		if errors.Is(err, service.ErrShopNotFound) {
			respondError(c, response.CodeNotFound, service.ErrShopNotFound.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "更新店铺状态失败", err)
		return
	}

	logger.Infow("admin_shop_status_updated",
		"operator_admin_id", currentAdminID(c),
		"shop_id", shopID,
		"suspended", suspend,
	)

	response.Success(c, shop)
}

func parseShopIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "店铺ID无效", nil)
		return 0, false
	}
	return uint(id), true
}
