package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"bandhan-service/internal/config"
	"bandhan-service/internal/util"
)

// DigiLockerClient talks to the DigiLocker OAuth2 APIs used for
// government identity verification. It exchanges the authorization code
// returned by the callback for an access token, then fetches the eKYC
// profile which carries the verified date of birth.
type DigiLockerClient struct {
	httpClient *http.Client
	config     *config.DigiLockerConfig
	devMode    bool
}

type digiLockerTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

// EKYCProfile is the subset of the DigiLocker eAadhaar profile the
// verification flow needs.
type EKYCProfile struct {
	Name        string `json:"name"`
	DateOfBirth string `json:"dob"` // DD-MM-YYYY per DigiLocker
	Gender      string `json:"gender"`
	ReferenceID string `json:"reference_id"`
}

func NewDigiLockerClient(cfg *config.Config) *DigiLockerClient {
	return &DigiLockerClient{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		config:  &cfg.DigiLocker,
		devMode: cfg.IsDevelopment(),
	}
}

// ExchangeCode trades an OAuth authorization code for an access token.
func (d *DigiLockerClient) ExchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", d.config.ClientID)
	form.Set("client_secret", d.config.ClientSecret)
	form.Set("redirect_uri", d.config.RedirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange returned status %d", resp.StatusCode)
	}

	var tokenResp digiLockerTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token exchange returned empty access token")
	}

	return tokenResp.AccessToken, nil
}

// FetchEKYC retrieves the verified identity profile for the token holder.
func (d *DigiLockerClient) FetchEKYC(ctx context.Context, accessToken string) (*EKYCProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.config.ProfileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create eKYC request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("eKYC request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("eKYC fetch returned status %d", resp.StatusCode)
	}

	var profile EKYCProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode eKYC response: %w", err)
	}

	util.Debug("DigiLocker eKYC fetched",
		zap.String("reference_id", profile.ReferenceID),
	)

	return &profile, nil
}

// ParseDOB parses the DD-MM-YYYY date format DigiLocker uses.
func ParseDOB(dob string) (time.Time, error) {
	t, err := time.Parse("02-01-2006", dob)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date of birth format: %w", err)
	}
	return t, nil
}
