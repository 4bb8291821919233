package main

import (
	"time"

	"github.com/golang-jwt/jwt"
)

// mintToken signs a driver token for local runs against a service that
// shares the secret.
func mintToken(secret, driverID string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"driver_id": driverID,
		"role":      "DRIVER",
		"exp":       time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
