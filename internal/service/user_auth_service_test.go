package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/makerplace/makerplace/internal/config"
	"github.com/makerplace/makerplace/internal/constants"
	"github.com/makerplace/makerplace/internal/models"
	"github.com/makerplace/makerplace/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupUserAuthServiceTest(t *testing.T) (*UserAuthService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:user_auth_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.UserLoginLog{}, &models.Order{}, &models.CreditEntry{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	cfg := &config.Config{}
	cfg.UserJWT.SecretKey = "test-secret"
	cfg.UserJWT.ExpireHours = 72
	cfg.Security.PasswordPolicy.MinLength = 8

	userRepo := repository.NewUserRepository(db)
	creditSvc := NewCreditService(db, repository.NewCreditRepository(db), userRepo, config.CreditConfig{})
	referralSvc := NewReferralService(userRepo, repository.NewOrderRepository(db), creditSvc, config.ReferralConfig{Enabled: true, RewardCents: 500})
	svc := NewUserAuthService(cfg, userRepo, repository.NewUserLoginLogRepository(db), referralSvc)
	return svc, db
}

func TestUserAuthServiceRegisterAndLogin(t *testing.T) {
	svc, db := setupUserAuthServiceTest(t)

	user, err := svc.Register(RegisterInput{Email: " Maker@Example.com ", Password: "correct-horse", DisplayName: "Maker"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.Email != "maker@example.com" {
		t.Fatalf("email = %s, want normalized lowercase", user.Email)
	}
	if user.PasswordHash == "correct-horse" || user.PasswordHash == "" {
		t.Fatal("password stored unhashed")
	}
	if len(user.ReferralCode) < referralCodeLength {
		t.Fatalf("referral code = %q, want generated", user.ReferralCode)
	}

	logged, token, _, err := svc.Login(LoginInput{Email: "maker@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if logged.ID != user.ID || token == "" {
		t.Fatalf("login result = %d/%q", logged.ID, token)
	}

	claims, err := svc.ParseUserJWT(token)
	if err != nil {
		t.Fatalf("parse jwt failed: %v", err)
	}
	verified, err := svc.VerifyUserClaims(claims)
	if err != nil {
		t.Fatalf("verify claims failed: %v", err)
	}
	if verified.ID != user.ID {
		t.Fatalf("verified user = %d, want %d", verified.ID, user.ID)
	}

	var log models.UserLoginLog
	if err := db.Where("status = ?", constants.LoginLogStatusSuccess).First(&log).Error; err != nil {
		t.Fatalf("load login log failed: %v", err)
	}
	if log.UserID != user.ID {
		t.Fatalf("log user = %d, want %d", log.UserID, user.ID)
	}
}

func TestUserAuthServiceRegisterDuplicateEmail(t *testing.T) {
	svc, _ := setupUserAuthServiceTest(t)
	if _, err := svc.Register(RegisterInput{Email: "dup@example.com", Password: "password-1"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := svc.Register(RegisterInput{Email: "DUP@example.com", Password: "password-2"}); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("err = %v, want ErrEmailExists", err)
	}
}

func TestUserAuthServiceRegisterWeakPassword(t *testing.T) {
	svc, _ := setupUserAuthServiceTest(t)
	if _, err := svc.Register(RegisterInput{Email: "weak@example.com", Password: "short"}); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("err = %v, want ErrWeakPassword", err)
	}
}

func TestUserAuthServiceRegisterBindsReferrer(t *testing.T) {
	svc, _ := setupUserAuthServiceTest(t)
	referrer, err := svc.Register(RegisterInput{Email: "first@example.com", Password: "password-1"})
	if err != nil {
		t.Fatalf("register referrer failed: %v", err)
	}

	referred, err := svc.Register(RegisterInput{Email: "second@example.com", Password: "password-2", ReferralCode: referrer.ReferralCode})
	if err != nil {
		t.Fatalf("register referred failed: %v", err)
	}
	if referred.ReferredByUserID == nil || *referred.ReferredByUserID != referrer.ID {
		t.Fatalf("referred_by = %v, want %d", referred.ReferredByUserID, referrer.ID)
	}
}

func TestUserAuthServiceLoginFailures(t *testing.T) {
	svc, db := setupUserAuthServiceTest(t)
	user, err := svc.Register(RegisterInput{Email: "safe@example.com", Password: "password-1"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, _, _, err := svc.Login(LoginInput{Email: "safe@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("wrong password err = %v, want ErrInvalidPassword", err)
	}
	if _, _, _, err := svc.Login(LoginInput{Email: "ghost@example.com", Password: "x"}); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("unknown email err = %v, want ErrInvalidPassword", err)
	}

	if err := db.Model(&models.User{}).Where("id = ?", user.ID).UpdateColumn("status", constants.UserStatusDisabled).Error; err != nil {
		t.Fatalf("disable user failed: %v", err)
	}
	if _, _, _, err := svc.Login(LoginInput{Email: "safe@example.com", Password: "password-1"}); !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("disabled err = %v, want ErrUserDisabled", err)
	}

	var failed int64
	if err := db.Model(&models.UserLoginLog{}).Where("status = ?", constants.LoginLogStatusFailed).Count(&failed).Error; err != nil {
		t.Fatalf("count logs failed: %v", err)
	}
	if failed != 3 {
		t.Fatalf("failed login logs = %d, want 3", failed)
	}
}

func TestUserAuthServiceChangePasswordInvalidatesToken(t *testing.T) {
	svc, _ := setupUserAuthServiceTest(t)
	user, err := svc.Register(RegisterInput{Email: "rotate@example.com", Password: "password-1"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	_, token, _, err := svc.Login(LoginInput{Email: "rotate@example.com", Password: "password-1"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := svc.ChangePassword(user.ID, "password-1", "password-2"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}

	claims, err := svc.ParseUserJWT(token)
	if err != nil {
		t.Fatalf("parse jwt failed: %v", err)
	}
	if _, err := svc.VerifyUserClaims(claims); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("old token err = %v, want ErrTokenInvalid", err)
	}

	if _, _, _, err := svc.Login(LoginInput{Email: "rotate@example.com", Password: "password-2"}); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}
