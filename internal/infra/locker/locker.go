// File: internal/infra/locker/locker.go
// Package locker is the HTTP client for the external vault holding raw
// instrument data. Card numbers pass through this client and are never
// written to our own Store.
package locker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"payment-orchestration-core/internal/config"
	"payment-orchestration-core/internal/domain"
	"payment-orchestration-core/internal/domain/ports/adapter"
)

var _ adapter.Vault = (*Client)(nil)

type Client struct {
	host   string
	apiKey string
	client *http.Client
	log    *zerolog.Logger
}

func NewClient(cfg config.LockerConfig, logger *zerolog.Logger) *Client {
	return &Client{
		host:   cfg.Host,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: 15 * time.Second},
		log:    logger,
	}
}

type saveRequest struct {
	MerchantID  string `json:"merchant_id"`
	CustomerID  string `json:"merchant_customer_id"`
	Method      string `json:"payment_method"`
	CardNumber  string `json:"card_number,omitempty"`
	ExpiryMonth string `json:"card_exp_month,omitempty"`
	ExpiryYear  string `json:"card_exp_year,omitempty"`
	HolderName  string `json:"name_on_card,omitempty"`
	NickName    string `json:"nick_name,omitempty"`
}

type saveResponse struct {
	CardReference   string `json:"card_reference"`
	DuplicationCheck string `json:"duplication_check"`
	Last4           string `json:"last4_digits"`
}

func (c *Client) Save(ctx context.Context, merchantID string, details adapter.InstrumentDetails) (adapter.SaveResult, error) {
	return c.save(ctx, c.host+"/cards/add", merchantID, "", details)
}

func (c *Client) SaveAt(ctx context.Context, merchantID, vaultID string, details adapter.InstrumentDetails) (adapter.SaveResult, error) {
	return c.save(ctx, c.host+"/cards/add", merchantID, vaultID, details)
}

func (c *Client) save(ctx context.Context, url, merchantID, vaultID string, details adapter.InstrumentDetails) (adapter.SaveResult, error) {
	payload := saveRequest{
		MerchantID:  merchantID,
		CustomerID:  details.CustomerID,
		Method:      string(details.Method),
		CardNumber:  details.CardNumber,
		ExpiryMonth: details.ExpiryMonth,
		ExpiryYear:  details.ExpiryYear,
		HolderName:  details.HolderName,
		NickName:    details.NickName,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return adapter.SaveResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return adapter.SaveResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)
	if vaultID != "" {
		req.Header.Set("X-Card-Reference", vaultID)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return adapter.SaveResult{}, fmt.Errorf("locker save: %w", err)
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return adapter.SaveResult{}, fmt.Errorf("locker save: reading response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		c.log.Error().Int("status", res.StatusCode).Msg("locker save rejected")
		return adapter.SaveResult{}, fmt.Errorf("%w: locker returned status %d", domain.ErrOperationFailed, res.StatusCode)
	}

	var parsed saveResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return adapter.SaveResult{}, fmt.Errorf("locker save: decoding response: %w", err)
	}
	return adapter.SaveResult{
		VaultID:     parsed.CardReference,
		Duplication: adapter.DuplicationCheck(parsed.DuplicationCheck),
		Last4:       parsed.Last4,
	}, nil
}

func (c *Client) Delete(ctx context.Context, merchantID, customerID, vaultID string) error {
	payload := map[string]string{
		"merchant_id":          merchantID,
		"merchant_customer_id": customerID,
		"card_reference":       vaultID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/cards/delete", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("locker delete: %w", err)
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("%w: locker returned status %d", domain.ErrOperationFailed, res.StatusCode)
	}
	return nil
}
