package service

import (
	"strings"

	"github.com/makerplace/makerplace/internal/models"
	"github.com/makerplace/makerplace/internal/repository"
)

// UserLoginLogService 用户登录日志服务
// 说明：提供登录行为记录与后台审计查询。
type UserLoginLogService struct {
	loginLogRepo repository.UserLoginLogRepository
}

// NewUserLoginLogService 创建用户登录日志服务
func NewUserLoginLogService(loginLogRepo repository.UserLoginLogRepository) *UserLoginLogService {
	return &UserLoginLogService{loginLogRepo: loginLogRepo}
}

// UserLoginLogRecordInput 登录日志写入参数
type UserLoginLogRecordInput struct {
	UserID     uint
	Email      string
	Status     string
	FailReason string
	ClientIP   string
	UserAgent  string
	RequestID  string
}

// Record 写入一条登录日志
func (s *UserLoginLogService) Record(input UserLoginLogRecordInput) error {
	return s.loginLogRepo.Create(&models.UserLoginLog{
		UserID:     input.UserID,
		Email:      strings.ToLower(strings.TrimSpace(input.Email)),
		Status:     input.Status,
		FailReason: input.FailReason,
		ClientIP:   input.ClientIP,
		UserAgent:  input.UserAgent,
		RequestID:  input.RequestID,
	})
}

// ListForAdmin 后台按条件分页查询登录日志
func (s *UserLoginLogService) ListForAdmin(filter repository.UserLoginLogListFilter) ([]models.UserLoginLog, int64, error) {
	filter.Email = strings.ToLower(strings.TrimSpace(filter.Email))
	return s.loginLogRepo.ListAdmin(filter)
}
