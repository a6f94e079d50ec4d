package tokens

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"moodnote/internal/journal/domain/entities"
	"moodnote/internal/journal/ports/services"
	"moodnote/pkg/logger"
)

const (
	methodSeal     = "ServiceJWT.Seal"
	methodOpen     = "ServiceJWT.Open"
	msgDraftSealed = "draft sealed"
	errCtxOpening  = "opening draft"

	// draftAudience отделяет токены черновиков от токенов личности.
	draftAudience = "moodnote-draft"
)

// DraftClaims черновик внутри подписанного токена; владелец в Subject.
type DraftClaims struct {
	Mood      entities.Mood `json:"mood"`
	Message   string        `json:"message"`
	Date      string        `json:"date"`
	CreatedAt time.Time     `json:"created_at"`
	jwt.RegisteredClaims
}

// Seal подписывает черновик. Токен живет не дольше entities.DraftMaxAge от
// момента создания черновика.
func (s *ServiceJWT) Seal(ctx context.Context, draft *entities.Draft) (string, error) {
	claims := &DraftClaims{
		Mood:      draft.Mood,
		Message:   draft.Message,
		Date:      draft.Date,
		CreatedAt: draft.CreatedAt,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   draft.UserID,
			Audience:  jwt.ClaimStrings{draftAudience},
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(draft.CreatedAt.Add(entities.DraftMaxAge)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign draft: %w", err)
	}

	logger.Log(ctx).With(zap.String("method", methodSeal)).Debug(ctx, msgDraftSealed, zap.String("userID", draft.UserID))
	return signed, nil
}

// Open проверяет подпись и срок токена и восстанавливает черновик.
func (s *ServiceJWT) Open(ctx context.Context, tokenString string) (*entities.Draft, error) {
	log := logger.Log(ctx).With(zap.String("method", methodOpen))

	token, err := jwt.ParseWithClaims(tokenString, &DraftClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAlgorithm, token.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithAudience(draftAudience), jwt.WithExpirationRequired())
	if err != nil {
		log.Debug(ctx, msgErrParsingToken, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", errCtxOpening, services.ErrInvalidDraft)
	}

	claims, ok := token.Claims.(*DraftClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%s: %w", errCtxOpening, services.ErrInvalidDraft)
	}

	return &entities.Draft{
		UserID:    claims.Subject,
		Mood:      claims.Mood,
		Message:   claims.Message,
		Date:      claims.Date,
		CreatedAt: claims.CreatedAt,
	}, nil
}
