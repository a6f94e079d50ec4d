// Package tokens выпускает и проверяет JWT анонимной личности.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"moodnote/internal/journal/ports/services"
	"moodnote/pkg/logger"
)

const (
	methodIssue        = "ServiceJWT.Issue"
	methodValidate     = "ServiceJWT.Validate"
	msgTokenIssued     = "identity token issued"
	msgTokenExpired    = "token has expired"
	msgErrParsingToken = "error parsing token" //nolint:gosec
	errCtxValidating   = "validating token"
)

// ErrInvalidAlgorithm неверный алгоритм подписи.
var ErrInvalidAlgorithm = errors.New("invalid signing algorithm")

// Claims полезная нагрузка токена.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// ServiceJWT реализует services.TokenService с подписью HS256.
type ServiceJWT struct {
	secretKey []byte
	issuer    string
	ttl       time.Duration
	now       func() time.Time
}

// NewJWT создает сервис; ttl <= 0 выпускает бессрочные токены.
func NewJWT(secretKey, issuer string, ttl time.Duration) *ServiceJWT {
	return &ServiceJWT{secretKey: []byte(secretKey), issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue подписывает токен для userID.
func (s *ServiceJWT) Issue(ctx context.Context, userID string) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   s.issuer,
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	logger.Log(ctx).With(zap.String("method", methodIssue)).Debug(ctx, msgTokenIssued, zap.String("userID", userID))
	return signed, nil
}

// Validate проверяет токен и возвращает ID пользователя.
func (s *ServiceJWT) Validate(ctx context.Context, tokenString string) (string, error) {
	log := logger.Log(ctx).With(zap.String("method", methodValidate))

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAlgorithm, token.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			log.Debug(ctx, msgTokenExpired)
			return "", fmt.Errorf("%s: %w", errCtxValidating, services.ErrExpiredToken)
		}
		log.Debug(ctx, msgErrParsingToken, zap.Error(err))
		return "", fmt.Errorf("%s: %w", errCtxValidating, services.ErrInvalidToken)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return "", fmt.Errorf("%s: %w", errCtxValidating, services.ErrInvalidToken)
	}
	return claims.UserID, nil
}
