package util

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the identity carried by a bearer token.
type Claims struct {
	UserID   int
	Username string
	Fullname string
	Role     string
}

// GenerateJWT signs claims with HS256. A non-positive ttl means 24h.
func GenerateJWT(c Claims, secret string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return generateWithExpiry(c, secret, time.Now().Add(ttl))
}

func generateWithExpiry(c Claims, secret string, exp time.Time) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  c.UserID,
		"username": c.Username,
		"fullname": c.Fullname,
		"role":     c.Role,
		"exp":      exp.Unix(),
		"iat":      time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseJWT validates the token signature and expiry and extracts Claims.
func ParseJWT(tokenStr, secret string) (Claims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Claims{}, err
	}

	if !token.Valid {
		return Claims{}, jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, jwt.ErrTokenMalformed
	}

	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		return Claims{}, errors.Join(jwt.ErrTokenMalformed, errors.New("missing user_id"))
	}

	out := Claims{UserID: int(userIDFloat)}
	out.Username, _ = claims["username"].(string)
	out.Fullname, _ = claims["fullname"].(string)
	out.Role, _ = claims["role"].(string)
	return out, nil
}

// ExtractToken returns the bearer token from the Authorization header.
func ExtractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	parts := strings.Fields(auth)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return parts[1]
}
