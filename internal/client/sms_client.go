package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"bandhan-service/internal/config"
	"bandhan-service/internal/util"
)

// SMSClient delivers OTP messages through the configured SMS gateway.
// In development it logs the message instead of sending it.
type SMSClient struct {
	httpClient *http.Client
	config     *config.SMSConfig
	devMode    bool
}

type smsPayload struct {
	To       string `json:"to"`
	Message  string `json:"message"`
	SenderID string `json:"sender_id"`
	Route    string `json:"route"`
}

func NewSMSClient(cfg *config.Config) *SMSClient {
	return &SMSClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		config:  &cfg.SMS,
		devMode: cfg.IsDevelopment(),
	}
}

// SendOTP sends an OTP code to a phone number. The code never appears in logs.
func (s *SMSClient) SendOTP(ctx context.Context, phoneNumber, code string) error {
	message := fmt.Sprintf("%s is your Bandhan verification code. Valid for 5 minutes. Do not share it with anyone.", code)

	if s.devMode || s.config.GatewayURL == "" {
		util.Info("SMS delivery skipped (dev mode)",
			zap.String("phone_suffix", phoneSuffix(phoneNumber)),
		)
		return nil
	}

	payload := smsPayload{
		To:       phoneNumber,
		Message:  message,
		SenderID: s.config.SenderID,
		Route:    "transactional",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode SMS payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.GatewayURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create SMS request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("SMS gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("SMS gateway returned status %d", resp.StatusCode)
	}

	util.Info("OTP SMS dispatched",
		zap.String("phone_suffix", phoneSuffix(phoneNumber)),
		zap.Int("status", resp.StatusCode),
	)
	return nil
}

// Provider returns the gateway name recorded against each OTP send.
func (s *SMSClient) Provider() string {
	if s.devMode || s.config.GatewayURL == "" {
		return "dev_console"
	}
	return "generic_http"
}

func phoneSuffix(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "******" + phone[len(phone)-4:]
}
