package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"food-dispatch/internal/identity-service/core/domain/dto"
)

// register self-registers a driver with the identity service and returns its
// provisional id.
func register(ctx context.Context, hc *http.Client, baseURL string, req dto.RegisterRequest) (dto.IdentityDto, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return dto.IdentityDto{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(baseURL, "/")+"/drivers/register", bytes.NewReader(body))
	if err != nil {
		return dto.IdentityDto{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(httpReq)
	if err != nil {
		return dto.IdentityDto{}, fmt.Errorf("register: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusCreated {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return dto.IdentityDto{}, fmt.Errorf("register: status %d: %s", resp.StatusCode, e.Error)
	}

	var out dto.IdentityDto
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return dto.IdentityDto{}, fmt.Errorf("decode identity: %w", err)
	}
	return out, nil
}
