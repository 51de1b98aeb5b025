package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const visitQRPurpose = "visit_qr"

// VisitQRClaims 到店码声明，绑定餐厅与出码员工
type VisitQRClaims struct {
	RestaurantID uint   `json:"restaurant_id"`
	StaffUserID  uint   `json:"staff_user_id"`
	Purpose      string `json:"purpose"`
	jwt.RegisteredClaims
}

// VisitQRToken 到店码
type VisitQRToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func signVisitQRToken(secret string, restaurantID, staffUserID uint, ttl time.Duration, now time.Time) (*VisitQRToken, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("visit qr secret is empty")
	}
	expiresAt := now.Add(ttl)
	claims := VisitQRClaims{
		RestaurantID: restaurantID,
		StaffUserID:  staffUserID,
		Purpose:      visitQRPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return nil, err
	}
	return &VisitQRToken{Token: signed, ExpiresAt: expiresAt}, nil
}

// parseVisitQRToken 校验签名、有效期与用途，任何失败都归为 ErrVisitTokenInvalid
func parseVisitQRToken(secret, tokenString string) (*VisitQRClaims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" || strings.TrimSpace(secret) == "" {
		return nil, ErrVisitTokenInvalid
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	claims := &VisitQRClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrVisitTokenInvalid
	}
	if claims.Purpose != visitQRPurpose || claims.RestaurantID == 0 {
		return nil, ErrVisitTokenInvalid
	}
	return claims, nil
}
