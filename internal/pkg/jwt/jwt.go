package jwt

import (
	"context"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/auth"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const sseTokenLifetime = 5 * time.Minute

type Service interface {
	GenerateAccessToken(id auth.Identity) (token string, expiresAt int64, err error)
	GenerateSSEToken(id auth.Identity) (token string, expiresIn int, err error)
	ValidateSSEToken(tokenString string) (auth.Identity, error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpiration time.Duration
	tokenAuth             *jwtauth.JWTAuth
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpiration time.Duration) Service {
	return &JWTService{
		accessTokenExpiration: accessTokenExpiration,
		tokenAuth:             jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func identityClaims(id auth.Identity, tokenType string, expiresAt int64) map[string]any {
	claims := map[string]any{
		"user_id": id.UserID,
		"role":    string(id.Role),
		"type":    tokenType,
		"exp":     expiresAt,
	}
	if id.EmployeeID != "" {
		claims["employee_id"] = id.EmployeeID
	}
	return claims
}

// GenerateAccessToken signs a bearer token for the identity. Tokens are
// normally issued by the identity provider; this is used by cmd/token and tests.
func (j *JWTService) GenerateAccessToken(id auth.Identity) (token string, expiresAt int64, err error) {
	expiresAt = time.Now().Add(j.accessTokenExpiration).Unix()
	_, tokenString, err := j.tokenAuth.Encode(identityClaims(id, "access", expiresAt))
	return tokenString, expiresAt, err
}

// GenerateSSEToken generates a short-lived token for SSE connections
func (j *JWTService) GenerateSSEToken(id auth.Identity) (token string, expiresIn int, err error) {
	expiresAt := time.Now().Add(sseTokenLifetime).Unix()

	_, tokenString, err := j.tokenAuth.Encode(identityClaims(id, "sse", expiresAt))
	if err != nil {
		return "", 0, err
	}

	return tokenString, int(sseTokenLifetime / time.Second), nil
}

// ValidateSSEToken validates an SSE token and returns its identity
func (j *JWTService) ValidateSSEToken(tokenString string) (auth.Identity, error) {
	token, err := j.tokenAuth.Decode(tokenString)
	if err != nil {
		return auth.Identity{}, err
	}

	tokenType, ok := token.Get("type")
	if !ok || tokenType != "sse" {
		return auth.Identity{}, jwt.ErrInvalidJWT()
	}

	claims, err := token.AsMap(context.Background())
	if err != nil {
		return auth.Identity{}, err
	}

	return auth.IdentityFromClaims(claims)
}
