// Package auth verifies session identity at the chat boundary. Sign-up
// and login flows live elsewhere; this package only mints development
// tokens and validates the ones presented on connect.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"moonchat/errors"
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed JWT for a specific user.
func GenerateToken(secret []byte, userID, username string, ttl time.Duration) (string, error) {
	claims := &CustomClaims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "moonchat",
		},
	}

	// HS256 (HMAC with SHA256), signed with the server's secret key.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken parses and validates the signature and expiration of a JWT string.
// Any failure, including an empty token, is reported as ErrNotSignedIn.
func ValidateToken(secret []byte, tokenString string) (*CustomClaims, error) {
	if tokenString == "" {
		return nil, errors.ErrNotSignedIn
	}

	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrNotSignedIn, err)
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("%w: %w", errors.ErrNotSignedIn, jwt.ErrSignatureInvalid)
}
