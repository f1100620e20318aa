package accounts

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pooriya-cloudS/mediqe/pkg/config"
	"github.com/pooriya-cloudS/mediqe/pkg/types"
)

// Token kinds carried in the "type" claim
const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenManager issues and validates signed JWTs
type TokenManager struct {
	config *config.JWTConfig
}

// NewTokenManager creates a new token manager
func NewTokenManager(cfg *config.JWTConfig) *TokenManager {
	return &TokenManager{config: cfg}
}

// GenerateTokenPair issues an access and refresh token for the user
func (tm *TokenManager) GenerateTokenPair(user *types.User) (*types.AuthToken, error) {
	now := time.Now()

	accessToken, err := tm.generate(user, tokenTypeAccess, now, time.Duration(tm.config.AccessTokenTTL)*time.Second)
	if err != nil {
		return nil, err
	}

	refreshToken, err := tm.generate(user, tokenTypeRefresh, now, time.Duration(tm.config.RefreshTokenTTL)*time.Second)
	if err != nil {
		return nil, err
	}

	return &types.AuthToken{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(tm.config.AccessTokenTTL),
		IssuedAt:     now,
	}, nil
}

func (tm *TokenManager) generate(user *types.User, tokenType string, now time.Time, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    string(user.Role),
		"type":    tokenType,
		"iss":     tm.config.Issuer,
		"aud":     tm.config.Audience,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(tm.config.SecretKey))
	if err != nil {
		return "", types.NewInternalError(types.ErrCodeInternalError, "Failed to sign token.", err)
	}

	return signed, nil
}

// ValidateAccessToken parses and verifies an access token
func (tm *TokenManager) ValidateAccessToken(tokenString string) (*types.UserClaims, error) {
	return tm.validate(tokenString, tokenTypeAccess)
}

// ValidateRefreshToken parses and verifies a refresh token
func (tm *TokenManager) ValidateRefreshToken(tokenString string) (*types.UserClaims, error) {
	return tm.validate(tokenString, tokenTypeRefresh)
}

func (tm *TokenManager) validate(tokenString, expectedType string) (*types.UserClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Unexpected token signing method.")
		}
		return []byte(tm.config.SecretKey), nil
	},
		jwt.WithIssuer(tm.config.Issuer),
		jwt.WithAudience(tm.config.Audience),
		jwt.WithExpirationRequired(),
	)

	if err != nil || !token.Valid {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Invalid or expired token.")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Invalid token claims.")
	}

	if tokenType, _ := claims["type"].(string); tokenType != expectedType {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Token type mismatch.")
	}

	userID, _ := claims["user_id"].(string)
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)

	if userID == "" {
		return nil, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Invalid token claims.")
	}

	return &types.UserClaims{
		UserID: userID,
		Email:  email,
		Role:   types.UserRole(role),
	}, nil
}
