package service

import (
	"github.com/makerplace/makerplace/internal/models"
	"github.com/makerplace/makerplace/internal/repository"
)

// AuthzAuditService 权限策略审计服务
// 说明：记录后台角色与权限策略变更，供后台审计检索。
type AuthzAuditService struct {
	auditRepo repository.AuthzAuditLogRepository
}

// NewAuthzAuditService 创建权限审计服务
func NewAuthzAuditService(auditRepo repository.AuthzAuditLogRepository) *AuthzAuditService {
	return &AuthzAuditService{auditRepo: auditRepo}
}

// AuthzAuditRecordInput 审计日志写入参数
type AuthzAuditRecordInput struct {
	OperatorAdminID  uint
	OperatorUsername string
	TargetAdminID    *uint
	TargetUsername   string
	Action           string
	Role             string
	Object           string
	Method           string
	RequestID        string
	Detail           map[string]any
}

// Record 写入一条权限变更审计日志
func (s *AuthzAuditService) Record(input AuthzAuditRecordInput) error {
	var detail models.JSON
	if input.Detail != nil {
		detail = models.JSON(input.Detail)
	}
	return s.auditRepo.Create(&models.AuthzAuditLog{
		OperatorAdminID:  input.OperatorAdminID,
		OperatorUsername: input.OperatorUsername,
		TargetAdminID:    input.TargetAdminID,
		TargetUsername:   input.TargetUsername,
		Action:           input.Action,
		Role:             input.Role,
		Object:           input.Object,
		Method:           input.Method,
		RequestID:        input.RequestID,
		DetailJSON:       detail,
	})
}

// ListForAdmin 后台按条件分页查询审计日志
func (s *AuthzAuditService) ListForAdmin(filter repository.AuthzAuditLogListFilter) ([]models.AuthzAuditLog, int64, error) {
	return s.auditRepo.ListAdmin(filter)
}
