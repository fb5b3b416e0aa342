package public

import (
	"errors"
	"strconv"

	handlershared "github.com/makerplace/makerplace/internal/http/handlers/shared"
	"github.com/makerplace/makerplace/internal/http/response"
	"github.com/makerplace/makerplace/internal/repository"
	"github.com/makerplace/makerplace/internal/service"

	"github.com/gin-gonic/gin"
)

// CreditBalance 查询当前可用信用额度（按流水实时汇总）
func (h *Handler) CreditBalance(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	summary, err := h.CreditService.BalanceSummary(userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(c, response.CodeNotFound, service.ErrUserNotFound.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "查询余额失败", err)
		return
	}

	response.Success(c, gin.H{
		"balance_cents":   summary.AvailableCents,
		"available_cents": summary.AvailableCents,
		"granted_cents":   summary.GrantedCents,
		"expired_cents":   summary.ExpiredCents,
	})
}

// CreditEntryList 查询自己的信用额度流水
func (h *Handler) CreditEntryList(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	entries, total, err := h.CreditService.ListEntries(repository.CreditEntryListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   userID,
		Reason:   c.Query("reason"),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "查询流水失败", err)
		return
	}

	response.SuccessWithPage(c, entries, pagination(page, pageSize, total))
}
