// Package product implements the HTTP client for the product service,
// mapping transport and response failures onto the domain error taxonomy.
package product

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/orderflow/orderflow/internal/order/domain"
)

const defaultTimeout = 10 * time.Second

type Client struct {
	log  *slog.Logger
	base string
	http *http.Client
}

func NewClient(log *slog.Logger, baseURL string) *Client {
	return &Client{
		log:  log,
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: defaultTimeout},
	}
}

type productPayload struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Inventory int             `json:"inventory"`
}

type errorPayload struct {
	Message   string `json:"message"`
	Name      string `json:"name"`
	Available int    `json:"available"`
}

func (c *Client) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/products/"+productID, nil)
	if err != nil {
		return domain.Product{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product %s: %w", productID, domain.ErrProductUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.Product{}, fmt.Errorf("product %s: %w", productID, domain.ErrProductNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return domain.Product{}, remoteError(resp)
	}

	var p productPayload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return domain.Product{}, fmt.Errorf("decode product %s: %w", productID, err)
	}
	return domain.Product{ID: p.ID, Name: p.Name, Price: p.Price, Inventory: p.Inventory}, nil
}

// AdjustStock posts a relative inventory adjustment. The product service
// applies it conditionally (inventory never goes negative) and deduplicates
// by idempotency key, so the call is safe to retry.
func (c *Client) AdjustStock(ctx context.Context, productID string, delta int, idempotencyKey string) error {
	body, err := json.Marshal(map[string]any{"delta": delta})
	if err != nil {
		return err
	}
	url := c.base + "/products/" + productID + "/inventory/adjustments"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("adjust stock for %s: %w", productID, domain.ErrProductUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("product %s: %w", productID, domain.ErrProductNotFound)
	case resp.StatusCode == http.StatusConflict:
		var e errorPayload
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &domain.InsufficientStockError{
			ProductID:   productID,
			ProductName: e.Name,
			Requested:   -delta,
			Available:   e.Available,
		}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return remoteError(resp)
	}
	return nil
}

// SetInventory issues the absolute inventory write from the product API's
// generic update endpoint. The placement saga does not use it; restocks and
// catalog corrections do.
func (c *Client) SetInventory(ctx context.Context, productID string, inventory int) error {
	body, err := json.Marshal(map[string]any{"inventory": inventory})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.base+"/products/"+productID, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("set inventory for %s: %w", productID, domain.ErrProductUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("product %s: %w", productID, domain.ErrProductNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return remoteError(resp)
	}
	return nil
}

func remoteError(resp *http.Response) error {
	var e errorPayload
	_ = json.NewDecoder(resp.Body).Decode(&e)
	if e.Message == "" {
		e.Message = resp.Status
	}
	return &domain.RemoteError{StatusCode: resp.StatusCode, Message: e.Message}
}
