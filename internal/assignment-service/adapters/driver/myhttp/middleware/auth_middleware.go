package middleware

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"food-dispatch/internal/assignment-service/adapters/driver/myhttp/handle"

	"github.com/golang-jwt/jwt"
)

const driverRole = "DRIVER"

var (
	ErrEmptyToken   = errors.New("empty JWT-Token")
	ErrInvalidToken = errors.New("invalid JWT-Token")
	ErrNotDriver    = errors.New("only drivers allowed to use this endpoint")
	ErrBadService   = errors.New("invalid service key")
)

// ServiceKeyHeader carries the shared key of service-to-service callers.
const ServiceKeyHeader = "X-Service-Key"

// ParseDriverToken validates an HMAC signed driver token and returns its
// driver_id claim.
func ParseDriverToken(secret, tokenString string) (string, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return "", ErrEmptyToken
	}
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: invalid claims", ErrInvalidToken)
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return "", fmt.Errorf("%w: no exp", ErrInvalidToken)
	}
	if time.Now().Unix() > int64(exp) {
		return "", fmt.Errorf("%w: expired", ErrInvalidToken)
	}
	if role, _ := claims["role"].(string); role != driverRole {
		return "", ErrNotDriver
	}
	driverID, ok := claims["driver_id"].(string)
	if !ok || driverID == "" {
		return "", fmt.Errorf("%w: driver_id not found in token", ErrInvalidToken)
	}
	return driverID, nil
}

type AuthMiddleware struct {
	accessSecret string
	serviceKey   string
}

// NewAuthMiddleware builds the middleware. An empty serviceKey disables the
// service-to-service path.
func NewAuthMiddleware(accessSecret, serviceKey string) *AuthMiddleware {
	return &AuthMiddleware{
		accessSecret: accessSecret,
		serviceKey:   serviceKey,
	}
}

// DriverOrService admits either a driver bearer token, whose driver_id lands
// in the request context, or a service caller presenting the shared service
// key, which names the driver in the body.
func (am *AuthMiddleware) DriverOrService(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if header := r.Header.Get("Authorization"); header != "" {
			driverID, err := ParseDriverToken(am.accessSecret, header)
			if err != nil {
				status := http.StatusUnauthorized
				if errors.Is(err, ErrNotDriver) {
					status = http.StatusForbidden
				}
				handle.JsonError(w, status, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(handle.WithDriver(r.Context(), driverID)))
			return
		}

		key := r.Header.Get(ServiceKeyHeader)
		if key == "" {
			handle.JsonError(w, http.StatusUnauthorized, ErrEmptyToken)
			return
		}
		if am.serviceKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(am.serviceKey)) != 1 {
			handle.JsonError(w, http.StatusUnauthorized, ErrBadService)
			return
		}
		next.ServeHTTP(w, r)
	})
}
