package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/makerplace/makerplace/internal/http/response"
	"github.com/makerplace/makerplace/internal/logger"
	"github.com/makerplace/makerplace/internal/queue"
	"github.com/makerplace/makerplace/internal/repository"
	"github.com/makerplace/makerplace/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminPayoutSummary 查询店铺月度结算汇总（只读）
func (h *Handler) AdminPayoutSummary(c *gin.Context) {
	shopID, ok := parseShopIDParam(c)
	if !ok {
		return
	}

	year, _ := strconv.Atoi(c.Query("year"))
	month, _ := strconv.Atoi(c.Query("month"))

	summary, err := h.PayoutService.Summarize(shopID, year, month)
	if err != nil {
		respondPayoutError(c, err, "查询结算汇总失败")
		return
	}

	response.Success(c, summary)
}

// AdminGenerateStatementRequest 生成结算单请求
type AdminGenerateStatementRequest struct {
	Year  int  `json:"year" binding:"required"`
	Month int  `json:"month" binding:"required"`
	Async bool `json:"async"`
}

// AdminGenerateStatement 生成（或重新生成）店铺月度结算单
// async 为真时投递到队列异步生成。
func (h *Handler) AdminGenerateStatement(c *gin.Context) {
	shopID, ok := parseShopIDParam(c)
	if !ok {
		return
	}

	var req AdminGenerateStatementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	if req.Async && h.QueueClient != nil {
		if err := h.QueueClient.EnqueuePayoutStatement(queue.PayoutStatementPayload{
			ShopID: shopID,
			Year:   req.Year,
			Month:  req.Month,
		}); err != nil {
			respondError(c, response.CodeInternal, "生成结算单失败", err)
			return
		}
		response.Success(c, gin.H{"enqueued": true})
		return
	}

	statement, err := h.PayoutService.GenerateStatement(shopID, req.Year, req.Month)
	if err != nil {
		respondPayoutError(c, err, "生成结算单失败")
		return
	}

	logger.Infow("admin_statement_generated",
		"operator_admin_id", currentAdminID(c),
		"shop_id", shopID,
		"year", req.Year,
		"month", req.Month,
	)

	response.Success(c, statement)
}

// AdminSettleStatementRequest 结算请求
type AdminSettleStatementRequest struct {
	Year  int `json:"year" binding:"required"`
	Month int `json:"month" binding:"required"`
}

// AdminSettleStatement 将结算单标记为已打款（之后内容冻结）
func (h *Handler) AdminSettleStatement(c *gin.Context) {
	shopID, ok := parseShopIDParam(c)
	if !ok {
		return
	}

	var req AdminSettleStatementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数无效", err)
		return
	}

	statement, err := h.PayoutService.MarkStatementSettled(shopID, req.Year, req.Month)
	if err != nil {
		respondPayoutError(c, err, "结算失败")
		return
	}

	logger.Infow("admin_statement_settled",
		"operator_admin_id", currentAdminID(c),
		"shop_id", shopID,
		"year", req.Year,
		"month", req.Month,
	)

	response.Success(c, statement)
}

// AdminListStatements 查询结算单列表 (Admin)
func (h *Handler) AdminListStatements(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	shopID, _ := strconv.ParseUint(c.Query("shop_id"), 10, 64)
	year, _ := strconv.Atoi(c.Query("year"))
	month, _ := strconv.Atoi(c.Query("month"))

	statements, total, err := h.PayoutService.ListStatements(repository.StatementListFilter{
		Page:     page,
		PageSize: pageSize,
		ShopID:   uint(shopID),
		Year:     year,
		Month:    month,
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "查询结算单失败", err)
		return
	}

	response.SuccessWithPage(c, statements, response.BuildPagination(page, pageSize, total))
}

func respondPayoutError(c *gin.Context, err error, fallbackMsg string) {
	switch {
	case errors.Is(err, service.ErrStatementPeriodInvalid):
		respondError(c, response.CodeBadRequest, service.ErrStatementPeriodInvalid.Error(), nil)
	case errors.Is(err, service.ErrShopNotFound):
		respondError(c, response.CodeNotFound, service.ErrShopNotFound.Error(), nil)
	default:
		respondError(c, response.CodeInternal, fallbackMsg, err)
	}
}
