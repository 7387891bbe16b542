// Package token issues and validates the HS256 bearer tokens that carry a
// session id. A valid token is necessary but not sufficient: the session it
// names must still be active in the catalog.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"aurum/internal/auth/secrets"
	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
)

const (
	DefaultIssuer   = "aurum"
	DefaultAudience = "aurum-api"
)

type Claims struct {
	SessionID string `json:"sid"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

type Service struct {
	signingKey []byte
	issuer     string
	audience   string
}

// New returns a token service. An empty signingKey is replaced by a random
// per-process key.
func New(signingKey string) (*Service, error) {
	if signingKey == "" {
		generated, err := secrets.Generate()
		if err != nil {
			return nil, err
		}
		signingKey = generated
	}
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     DefaultIssuer,
		audience:   DefaultAudience,
	}, nil
}

func (s *Service) Issue(userID domain.UserID, sessionID domain.SessionID, role domain.Role, issuedAt, expiresAt time.Time) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		SessionID: sessionID.String(),
		Role:      role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})
	signed, err := t.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return signed, nil
}

// Validate parses the token as of now and returns the session it names.
func (s *Service) Validate(tokenString string, now time.Time) (domain.SessionID, *Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.SessionID{}, nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return domain.SessionID{}, nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.SessionID{}, nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	sid, err := domain.ParseSessionID(claims.SessionID)
	if err != nil {
		return domain.SessionID{}, nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return sid, claims, nil
}
