package service

import (
	"crypto/rand"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/makerplace/makerplace/internal/config"
	"github.com/makerplace/makerplace/internal/constants"
	"github.com/makerplace/makerplace/internal/logger"
	"github.com/makerplace/makerplace/internal/models"
	"github.com/makerplace/makerplace/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const referralCodeLength = 8
const referralCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// UserAuthService 用户认证服务
type UserAuthService struct {
	cfg             *config.Config
	userRepo        repository.UserRepository
	loginLogRepo    repository.UserLoginLogRepository
	referralService *ReferralService
}

// NewUserAuthService 创建用户认证服务
func NewUserAuthService(
	cfg *config.Config,
	userRepo repository.UserRepository,
	loginLogRepo repository.UserLoginLogRepository,
	referralService *ReferralService,
) *UserAuthService {
	return &UserAuthService{
		cfg:             cfg,
		userRepo:        userRepo,
		loginLogRepo:    loginLogRepo,
		referralService: referralService,
	}
}

// UserJWTClaims 用户 JWT 声明
type UserJWTClaims struct {
	UserID       uint   `json:"user_id"`
	Email        string `json:"email"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// RegisterInput 注册输入
type RegisterInput struct {
	Email        string
	Password     string
	DisplayName  string
	ReferralCode string // 推荐人的推荐码，可为空
}

// Register 注册用户
func (s *UserAuthService) Register(input RegisterInput) (*models.User, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(s.cfg.Security.PasswordPolicy, input.Password); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  strings.TrimSpace(input.DisplayName),
		Status:       constants.UserStatusActive,
	}
	code, err := s.uniqueReferralCode()
	if err != nil {
		return nil, err
	}
	user.ReferralCode = code

	if err := s.referralService.BindReferrer(user, input.ReferralCode); err != nil {
		return nil, err
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	logger.Infow("user_registered", "user_id", user.ID, "email", user.Email, "referred", user.ReferredByUserID != nil)
	return user, nil
}

// LoginInput 登录输入
type LoginInput struct {
	Email     string
	Password  string
	ClientIP  string
	UserAgent string
	RequestID string
}

// Login 用户登录
func (s *UserAuthService) Login(input LoginInput) (*models.User, string, time.Time, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		s.recordLogin(0, input.Email, constants.LoginLogStatusFailed, constants.LoginLogFailReasonInvalidEmail, input)
		return nil, "", time.Time{}, ErrInvalidPassword
	}

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if user == nil {
		s.recordLogin(0, email, constants.LoginLogStatusFailed, constants.LoginLogFailReasonInvalidCredentials, input)
		return nil, "", time.Time{}, ErrInvalidPassword
	}
	if user.Status == constants.UserStatusDisabled {
		s.recordLogin(user.ID, email, constants.LoginLogStatusFailed, constants.LoginLogFailReasonUserDisabled, input)
		return nil, "", time.Time{}, ErrUserDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		s.recordLogin(user.ID, email, constants.LoginLogStatusFailed, constants.LoginLogFailReasonInvalidCredentials, input)
		return nil, "", time.Time{}, ErrInvalidPassword
	}

	token, expiresAt, err := s.GenerateUserJWT(user, 0)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(user); err != nil {
		return nil, "", time.Time{}, err
	}
	s.recordLogin(user.ID, email, constants.LoginLogStatusSuccess, "", input)

	return user, token, expiresAt, nil
}

func (s *UserAuthService) recordLogin(userID uint, email, status, failReason string, input LoginInput) {
	if s.loginLogRepo == nil {
		return
	}
	log := &models.UserLoginLog{
		UserID:     userID,
		Email:      strings.ToLower(strings.TrimSpace(email)),
		Status:     status,
		FailReason: failReason,
		ClientIP:   input.ClientIP,
		UserAgent:  input.UserAgent,
		RequestID:  input.RequestID,
	}
	if err := s.loginLogRepo.Create(log); err != nil {
		logger.Warnw("user_login_log_write_failed", "error", err, "email", email)
	}
}

// GenerateUserJWT 生成用户 JWT Token
func (s *UserAuthService) GenerateUserJWT(user *models.User, expireHours int) (string, time.Time, error) {
	resolvedHours := expireHours
	if resolvedHours <= 0 {
		resolvedHours = s.cfg.UserJWT.ExpireHours
	}
	if resolvedHours <= 0 {
		resolvedHours = 72
	}
	expiresAt := time.Now().Add(time.Duration(resolvedHours) * time.Hour)
	claims := UserJWTClaims{
		UserID:       user.ID,
		Email:        user.Email,
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.UserJWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseUserJWT 解析用户 JWT Token
func (s *UserAuthService) ParseUserJWT(tokenString string) (*UserJWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &UserJWTClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.UserJWT.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// VerifyUserClaims 校验用户声明是否仍然有效
func (s *UserAuthService) VerifyUserClaims(claims *UserJWTClaims) (*models.User, error) {
	user, err := s.userRepo.GetByID(claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrTokenInvalid
	}
	if user.Status == constants.UserStatusDisabled {
		return nil, ErrUserDisabled
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, ErrTokenInvalid
	}
	if user.TokenInvalidBefore != nil && claims.IssuedAt != nil && claims.IssuedAt.Time.Before(*user.TokenInvalidBefore) {
		return nil, ErrTokenInvalid
	}
	return user, nil
}

// ChangePassword 修改密码（旧 Token 全部失效）
func (s *UserAuthService) ChangePassword(userID uint, oldPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrInvalidPassword
	}
	if err := validatePassword(s.cfg.Security.PasswordPolicy, newPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)
	now := time.Now()
	user.TokenVersion++
	user.TokenInvalidBefore = &now
	return s.userRepo.Update(user)
}

// 推荐码去掉易混淆字符，冲突时重试生成
func (s *UserAuthService) uniqueReferralCode() (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := randReferralCode(referralCodeLength)
		if err != nil {
			return "", err
		}
		existing, err := s.userRepo.GetByReferralCode(code)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
	}
	// 连续冲突概率极低，加长一位兜底
	return randReferralCode(referralCodeLength + 1)
}

func randReferralCode(length int) (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(referralCodeAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(referralCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", ErrInvalidPassword
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", ErrInvalidPassword
	}
	return email, nil
}
