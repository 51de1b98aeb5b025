package service

import (
	"errors"
	"testing"

	"github.com/tastemap/internal/constants"
	"github.com/tastemap/internal/models"
)

func TestUserRegisterWithReferralCode(t *testing.T) {
	env := setupLoyaltyServiceTest(t)
	referrer := createLoyaltyTestUser(t, env.db, "auth-referrer@example.com")
	code, err := env.referrals.GetOrCreateCode(referrer.ID)
	if err != nil {
		t.Fatalf("create code failed: %v", err)
	}

	result, err := env.auth.Register(RegisterInput{
		Email:        " New.User@Example.com ",
		Password:     "password123",
		ReferralCode: code.Code,
		Locale:       "en",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if result.User.Email != "new.user@example.com" || result.User.DisplayName != "new.user" || result.User.Locale != constants.LocaleEnUS {
		t.Fatalf("unexpected user: %+v", result.User)
	}
	if result.Referral == nil || result.Referral.Status != constants.ReferralStatusRegistered {
		t.Fatalf("expected registered referral, got %+v", result.Referral)
	}
	requireLoyaltyBalance(t, env, referrer.ID, 10)
	requireLoyaltyBalance(t, env, result.User.ID, 10)

	claims, err := ParseUserJWT(env.cfg.UserJWT.SecretKey, result.Token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if claims.UserID != result.User.ID || claims.Email != result.User.Email {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestUserRegisterRollsBackOnReferralFailure(t *testing.T) {
	env := setupLoyaltyServiceTest(t)

	_, err := env.auth.Register(RegisterInput{
		Email:        "rollback@example.com",
		Password:     "password123",
		ReferralCode: "NOPE2345",
	})
	if !errors.Is(err, ErrInvalidReferralCode) {
		t.Fatalf("expected ErrInvalidReferralCode, got %v", err)
	}
	var count int64
	if err := env.db.Model(&models.User{}).Where("email = ?", "rollback@example.com").Count(&count).Error; err != nil {
		t.Fatalf("count users failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected user creation rolled back, found %d", count)
	}

	if _, err := env.auth.Register(RegisterInput{Email: "rollback@example.com", Password: "password123"}); err != nil {
		t.Fatalf("register without code failed: %v", err)
	}
}

func TestUserRegisterValidation(t *testing.T) {
	env := setupLoyaltyServiceTest(t)
	createLoyaltyTestUser(t, env.db, "taken@example.com")

	if _, err := env.auth.Register(RegisterInput{Email: "not-an-email", Password: "password123"}); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := env.auth.Register(RegisterInput{Email: "short@example.com", Password: "abc"}); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if _, err := env.auth.Register(RegisterInput{Email: "TAKEN@example.com", Password: "password123"}); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestUserLogin(t *testing.T) {
	env := setupLoyaltyServiceTest(t)
	if _, err := env.auth.Register(RegisterInput{Email: "login@example.com", Password: "password123"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	result, err := env.auth.Login("LOGIN@example.com", "password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.Token == "" || result.User.LastLoginAt == nil {
		t.Fatalf("unexpected login result: %+v", result)
	}
	if _, err := env.auth.Login("login@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := env.auth.Login("missing@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}

	if err := env.db.Model(&models.User{}).Where("id = ?", result.User.ID).Update("status", constants.UserStatusDisabled).Error; err != nil {
		t.Fatalf("disable user failed: %v", err)
	}
	if _, err := env.auth.Login("login@example.com", "password123"); !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("expected ErrUserDisabled, got %v", err)
	}
}
