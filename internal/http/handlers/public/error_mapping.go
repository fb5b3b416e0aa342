package public

import (
	"errors"

	"github.com/makerplace/makerplace/internal/http/response"
	"github.com/makerplace/makerplace/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	// 带载荷的业务错误优先展开，余额与门槛信息随响应返回。
	var insufficient *service.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		response.ErrorWithData(c, response.CodeBadRequest, insufficient.Error(), gin.H{
			"available_cents": insufficient.AvailableCents,
			"requested_cents": insufficient.RequestedCents,
		})
		return
	}
	var minimum *service.MinimumNotMetError
	if errors.As(err, &minimum) {
		respondError(c, response.CodeBadRequest, minimum.Error(), nil)
		return
	}
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.target.Error(), nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

var orderCreateErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidAmount, code: response.CodeBadRequest},
	{target: service.ErrUserNotFound, code: response.CodeNotFound},
	{target: service.ErrUserDisabled, code: response.CodeBadRequest},
	{target: service.ErrListingNotFound, code: response.CodeNotFound},
	{target: service.ErrListingInactive, code: response.CodeBadRequest},
	{target: service.ErrShopNotFound, code: response.CodeNotFound},
	{target: service.ErrShopSuspended, code: response.CodeBadRequest},
	{target: service.ErrDealNotFound, code: response.CodeBadRequest},
	{target: service.ErrDealInactive, code: response.CodeBadRequest},
	{target: service.ErrDealNotStarted, code: response.CodeBadRequest},
	{target: service.ErrDealExpired, code: response.CodeBadRequest},
	{target: service.ErrDealUsageExceeded, code: response.CodeBadRequest},
	{target: service.ErrDealMinimumNotMet, code: response.CodeBadRequest},
	{target: service.ErrCreditInsufficient, code: response.CodeBadRequest},
}

var dealResolveErrorRules = []mappedHandlerError{
	{target: service.ErrShopNotFound, code: response.CodeNotFound},
	{target: service.ErrDealNotFound, code: response.CodeNotFound},
	{target: service.ErrDealInactive, code: response.CodeBadRequest},
	{target: service.ErrDealNotStarted, code: response.CodeBadRequest},
	{target: service.ErrDealExpired, code: response.CodeBadRequest},
	{target: service.ErrDealUsageExceeded, code: response.CodeBadRequest},
	{target: service.ErrDealMinimumNotMet, code: response.CodeBadRequest},
	{target: service.ErrDealInvalid, code: response.CodeBadRequest},
}

var shopManageErrorRules = []mappedHandlerError{
	{target: service.ErrUserNotFound, code: response.CodeNotFound},
	{target: service.ErrUserDisabled, code: response.CodeBadRequest},
	{target: service.ErrShopNotFound, code: response.CodeNotFound},
	{target: service.ErrShopExists, code: response.CodeBadRequest},
	{target: service.ErrShopSuspended, code: response.CodeBadRequest},
}

var listingManageErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidAmount, code: response.CodeBadRequest},
	{target: service.ErrShopNotFound, code: response.CodeNotFound},
	{target: service.ErrShopSuspended, code: response.CodeBadRequest},
	{target: service.ErrListingNotFound, code: response.CodeNotFound},
	{target: service.ErrListingExists, code: response.CodeBadRequest},
}

var dealManageErrorRules = []mappedHandlerError{
	{target: service.ErrShopNotFound, code: response.CodeNotFound},
	{target: service.ErrDealNotFound, code: response.CodeNotFound},
	{target: service.ErrDealCodeExists, code: response.CodeBadRequest},
	{target: service.ErrDealInvalid, code: response.CodeBadRequest},
}
