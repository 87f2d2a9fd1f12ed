package server

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// downloadTokenTTL matches the job retention window: a link is valid as
// long as the artifacts it points at.
const downloadTokenTTL = 24 * time.Hour

// DownloadClaims are the JWT claims of a signed download link.
type DownloadClaims struct {
	JobID uuid.UUID `json:"job_id"`
	jwt.RegisteredClaims
}

// TokenService signs and validates download tokens.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a token service with the given HMAC secret.
func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// GenerateDownloadToken signs a token granting download access to one job's
// rendered documents.
func (s *TokenService) GenerateDownloadToken(jobID uuid.UUID) (string, error) {
	now := time.Now()
	claims := &DownloadClaims{
		JobID: jobID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(downloadTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign download token: %w", err)
	}
	return signed, nil
}

// ValidateDownloadToken checks the token signature and expiry and returns
// the job it grants access to.
func (s *TokenService) ValidateDownloadToken(tokenString string) (uuid.UUID, error) {
	if tokenString == "" {
		return uuid.Nil, fmt.Errorf("download token is required")
	}

	claims := &DownloadClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid download token: %w", err)
	}
	if !token.Valid {
		return uuid.Nil, fmt.Errorf("invalid download token")
	}
	return claims.JobID, nil
}
