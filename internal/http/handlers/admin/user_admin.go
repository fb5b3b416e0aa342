package admin

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/makerplace/makerplace/internal/constants"
	"github.com/makerplace/makerplace/internal/http/response"
	"github.com/makerplace/makerplace/internal/logger"
	"github.com/makerplace/makerplace/internal/repository"
	"github.com/makerplace/makerplace/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAdminUsers 获取用户列表 (Admin)
func (h *Handler) GetAdminUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

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

	users, total, err := h.UserRepo.List(repository.UserListFilter{
		Page:        page,
		PageSize:    pageSize,
		Keyword:     strings.TrimSpace(c.Query("keyword")),
		Status:      strings.TrimSpace(c.Query("status")),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "获取用户列表失败", err)
		return
	}

	response.SuccessWithPage(c, users, response.BuildPagination(page, pageSize, total))
}

// GetAdminUser 获取用户详情（附实时信用额度余额）
func (h *Handler) GetAdminUser(c *gin.Context) {
	userID, ok := parseUserIDParam(c)
	if !ok {
		return
	}

	user, err := h.UserRepo.GetByID(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "获取用户信息失败", err)
		return
	}
	if user == nil {
		respondError(c, response.CodeNotFound, service.ErrUserNotFound.Error(), nil)
		return
	}

	summary, err := h.CreditService.BalanceSummary(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "获取用户信息失败", err)
		return
	}

	response.Success(c, gin.H{
		"user":                 user,
		"credit_balance_cents": summary.AvailableCents,
		"credit_granted_cents": summary.GrantedCents,
		"credit_expired_cents": summary.ExpiredCents,
	})
}

// BatchUpdateUserStatusRequest 批量更新用户状态请求
type BatchUpdateUserStatusRequest struct {
	UserIDs []uint `json:"user_ids" binding:"required"`
	Status  string `json:"status" binding:"required"`
}

// BatchUpdateUserStatus 批量启用/禁用用户
func (h *Handler) BatchUpdateUserStatus(c *gin.Context) {
	var req BatchUpdateUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}
	if len(req.UserIDs) == 0 {
		respondError(c, response.CodeBadRequest, "请求参数无效", nil)
		return
	}
	if req.Status != constants.UserStatusActive && req.Status != constants.UserStatusDisabled {
		respondError(c, response.CodeBadRequest, "用户状态无效", nil)
		return
	}

	if err := h.UserRepo.BatchUpdateStatus(req.UserIDs, req.Status); err != nil {
		respondError(c, response.CodeInternal, "更新用户状态失败", err)
		return
	}

	logger.Infow("admin_users_status_updated",
		"operator_admin_id", currentAdminID(c),
		"user_ids", req.UserIDs,
		"status", req.Status,
	)

	response.Success(c, gin.H{"updated": len(req.UserIDs)})
}

// AdminCreditGrantRequest 管理端发放信用额度请求
type AdminCreditGrantRequest struct {
	AmountCents int64      `json:"amount_cents" binding:"required"`
	Reason      string     `json:"reason"`
	Reference   string     `json:"reference" binding:"required"`
	ExpiresAt   *time.Time `json:"expires_at"`
	Note        string     `json:"note"`
}

// AdminCreditGrant 管理端向用户发放信用额度（按 Reference 幂等）
func (h *Handler) AdminCreditGrant(c *gin.Context) {
	userID, ok := parseUserIDParam(c)
	if !ok {
		return
	}

	var req AdminCreditGrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = constants.CreditReasonAdminAdjust
	}

	entry, err := h.CreditService.Grant(service.GrantInput{
		UserID:      userID,
		AmountCents: req.AmountCents,
		Reason:      reason,
		FunderType:  constants.CreditFunderPlatform,
		Reference:   req.Reference,
		ExpiresAt:   req.ExpiresAt,
		Note:        req.Note,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			respondError(c, response.CodeBadRequest, service.ErrInvalidAmount.Error(), nil)
		case errors.Is(err, service.ErrUserNotFound):
			respondError(c, response.CodeNotFound, service.ErrUserNotFound.Error(), nil)
		default:
			respondError(c, response.CodeInternal, "发放信用额度失败", err)
		}
		return
	}

	logger.Infow("admin_credit_granted",
		"operator_admin_id", currentAdminID(c),
		"user_id", userID,
		"amount_cents", req.AmountCents,
		"reason", reason,
		"reference", req.Reference,
	)

	response.Success(c, entry)
}

// AdminCreditEntries 管理端查询用户信用额度流水
func (h *Handler) AdminCreditEntries(c *gin.Context) {
	userID, ok := parseUserIDParam(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	entries, total, err := h.CreditService.ListEntries(repository.CreditEntryListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   userID,
		Reason:   strings.TrimSpace(c.Query("reason")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "查询流水失败", err)
		return
	}

	response.SuccessWithPage(c, entries, response.BuildPagination(page, pageSize, total))
}

// AdminCreditReconcile 校正用户信用额度缓存余额
func (h *Handler) AdminCreditReconcile(c *gin.Context) {
	userID, ok := parseUserIDParam(c)
	if !ok {
		return
	}

	drift, err := h.CreditService.ReconcileCounter(userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(c, response.CodeNotFound, service.ErrUserNotFound.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "校正余额失败", err)
		return
	}

	logger.Infow("admin_credit_reconciled",
		"operator_admin_id", currentAdminID(c),
		"user_id", userID,
		"drift_cents", drift,
	)

	response.Success(c, gin.H{"drift_cents": drift})
}

func parseUserIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "用户ID无效", nil)
		return 0, false
	}
	return uint(id), true
}
