package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"uo-storefront/models"
)

// PayPalClient wraps the three REST calls the storefront needs: OAuth token,
// order creation and capture (plus a status lookup for reconciliation).
// Every call carries a context deadline; a hung provider must not pin a
// request handler forever.
type PayPalClient struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	ReturnURL    string
	HTTPClient   *http.Client
}

func NewPayPalClient() *PayPalClient {
	baseURL := os.Getenv("PAYPAL_API_URL")
	if baseURL == "" {
		baseURL = "https://api-m.sandbox.paypal.com"
	}
	return &PayPalClient{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		ClientID:     os.Getenv("PAYPAL_CLIENT_ID"),
		ClientSecret: os.Getenv("PAYPAL_CLIENT_SECRET"),
		ReturnURL:    os.Getenv("PAYPAL_RETURN_URL"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// AccessToken fetches a client-credentials OAuth token.
func (p *PayPalClient) AccessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "POST",
		p.BaseURL+"/v1/oauth2/token",
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", err
	}
	basic := base64.StdEncoding.EncodeToString([]byte(p.ClientID + ":" + p.ClientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("paypal token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("paypal token returned status %d: %s", resp.StatusCode, string(body))
	}

	var data struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("failed to decode paypal token response: %w", err)
	}
	return data.AccessToken, nil
}

// CreatedOrder is the subset of the provider response checkout needs.
type CreatedOrder struct {
	ID          string
	ApprovalURL string
}

// CreateOrder registers a CAPTURE-intent order with PayPal for an existing
// pending storefront order. The order id rides in custom_id so the IPN can
// find its way back.
func (p *PayPalClient) CreateOrder(ctx context.Context, order *models.Order, payeeEmail string) (*CreatedOrder, error) {
	token, err := p.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]interface{}, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, map[string]interface{}{
			"name":     item.ProductName,
			"quantity": fmt.Sprintf("%d", item.Quantity),
			"unit_amount": map[string]string{
				"currency_code": order.Currency,
				"value":         item.UnitPrice.StringFixed(2),
			},
		})
	}

	discount := order.DiscountAmount.Add(order.PremiumDiscount).Add(order.CashbackUsed)
	payload := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{{
			"reference_id": order.ID,
			"custom_id":    order.ID,
			"description":  fmt.Sprintf("Order %s", order.OrderNumber),
			"amount": map[string]interface{}{
				"currency_code": order.Currency,
				"value":         order.TotalAmount.StringFixed(2),
				"breakdown": map[string]interface{}{
					"item_total": map[string]string{
						"currency_code": order.Currency,
						"value":         order.Subtotal.StringFixed(2),
					},
					"discount": map[string]string{
						"currency_code": order.Currency,
						"value":         discount.StringFixed(2),
					},
				},
			},
			"payee": map[string]string{"email_address": payeeEmail},
			"items": items,
		}},
		"application_context": map[string]string{
			"return_url":          p.ReturnURL,
			"cancel_url":          p.ReturnURL + "?cancelled=true",
			"shipping_preference": "NO_SHIPPING",
		},
	}

	var data struct {
		ID    string `json:"id"`
		Links []struct {
			Rel  string `json:"rel"`
			Href string `json:"href"`
		} `json:"links"`
	}
	if err := p.postJSON(ctx, "/v2/checkout/orders", token, payload, &data); err != nil {
		return nil, err
	}

	created := &CreatedOrder{ID: data.ID}
	for _, link := range data.Links {
		if link.Rel == "approve" {
			created.ApprovalURL = link.Href
		}
	}
	return created, nil
}

// CaptureResult reports the outcome of a capture call.
type CaptureResult struct {
	Status    string
	CaptureID string
}

// CaptureOrder finalizes payment on an approved PayPal order.
func (p *PayPalClient) CaptureOrder(ctx context.Context, paypalOrderID string) (*CaptureResult, error) {
	token, err := p.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var data struct {
		Status        string `json:"status"`
		PurchaseUnits []struct {
			Payments struct {
				Captures []struct {
					ID string `json:"id"`
				} `json:"captures"`
			} `json:"payments"`
		} `json:"purchase_units"`
	}
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", paypalOrderID)
	if err := p.postJSON(ctx, path, token, map[string]interface{}{}, &data); err != nil {
		return nil, err
	}

	result := &CaptureResult{Status: data.Status}
	if len(data.PurchaseUnits) > 0 && len(data.PurchaseUnits[0].Payments.Captures) > 0 {
		result.CaptureID = data.PurchaseUnits[0].Payments.Captures[0].ID
	}
	if result.CaptureID == "" {
		result.CaptureID = paypalOrderID
	}
	return result, nil
}

// OrderStatus looks up the current provider-side status. Used by the
// reconciliation worker for orders stuck in pending.
func (p *PayPalClient) OrderStatus(ctx context.Context, paypalOrderID string) (string, error) {
	token, err := p.AccessToken(ctx)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", p.BaseURL+"/v2/checkout/orders/"+paypalOrderID, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("paypal order lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("paypal order lookup returned status %d: %s", resp.StatusCode, string(body))
	}

	var data struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", err
	}
	return data.Status, nil
}

func (p *PayPalClient) postJSON(ctx context.Context, path, token string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("paypal call %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		log.Printf("[PayPal] %s returned %d: %s", path, resp.StatusCode, string(raw))
		return fmt.Errorf("paypal call %s returned status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
