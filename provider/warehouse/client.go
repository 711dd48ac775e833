package warehouse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Cyvadra/stockwatch/provider"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// Name is the registry key of this provider
const Name = "warehouse"

const defaultTimeout = 15 * time.Second

func init() {
	provider.Register(Name, func(settings provider.Settings) provider.Provider {
		return NewClient(settings)
	})
}

// Client talks to the warehouse HTTP API
type Client struct {
	name   string
	client *resty.Client
}

// NewClient creates a new warehouse client
func NewClient(settings provider.Settings) *Client {
	timeout := settings.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		name: Name,
		client: resty.New().
			SetBaseURL(strings.TrimRight(settings.BaseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

// Name returns the provider name
func (c *Client) Name() string {
	return c.name
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type regionPayload struct {
	RegionID   string          `json:"region_id"`
	RegionName string          `json:"region_name"`
	Qty        int             `json:"qty"`
	Price      decimal.Decimal `json:"price"`
}

type productResponse struct {
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	MonthSale int             `json:"month_sale"`
	Regions   []regionPayload `json:"regions"`
}

// Login exchanges credentials for a session token
func (c *Client) Login(ctx context.Context, credentials *provider.Credentials) (string, error) {
	if credentials == nil || credentials.Username == "" || credentials.Password == "" {
		return "", provider.NewProviderError(c.name, provider.CodeBadLogin, "username and password are required", 0, provider.ErrInvalidCredentials)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(loginRequest{Username: credentials.Username, Password: credentials.Password}).
		Post("/auth/login")
	if err != nil {
		return "", c.transportError("login request failed", err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return "", provider.NewProviderError(c.name, provider.CodeBadLogin, "login rejected", code, provider.ErrInvalidCredentials)
	case code != http.StatusOK:
		return "", c.statusError(resp)
	}

	var payload loginResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return "", provider.NewProviderError(c.name, provider.CodeBadResponse, "failed to decode login response", resp.StatusCode(), fmt.Errorf("%w: %v", provider.ErrInvalidResponse, err))
	}
	if payload.Token == "" {
		return "", provider.NewProviderError(c.name, provider.CodeBadResponse, "login response carried no token", resp.StatusCode(), provider.ErrInvalidResponse)
	}

	return payload.Token, nil
}

// LookupProduct fetches product metadata and per-region stock for a SKU
func (c *Client) LookupProduct(ctx context.Context, token, sku string) (*provider.Product, error) {
	sku = provider.NormalizeSKU(sku)
	if sku == "" {
		return nil, provider.NewProviderError(c.name, provider.CodeNotFound, "empty sku", 0, provider.ErrNotFound)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetPathParam("sku", sku).
		Get("/products/{sku}")
	if err != nil {
		return nil, c.transportError("product lookup failed", err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return nil, provider.NewProviderError(c.name, provider.CodeUnauthorized, "session rejected", code, provider.ErrUnauthorized)
	case code == http.StatusNotFound:
		return nil, provider.NewProviderError(c.name, provider.CodeNotFound, "unknown sku "+sku, code, provider.ErrNotFound)
	case code != http.StatusOK:
		return nil, c.statusError(resp)
	}

	var payload productResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, provider.NewProviderError(c.name, provider.CodeBadResponse, "failed to decode product response", resp.StatusCode(), fmt.Errorf("%w: %v", provider.ErrInvalidResponse, err))
	}

	product := &provider.Product{
		SKU:        payload.SKU,
		Name:       payload.Name,
		Image:      payload.Image,
		MonthSales: payload.MonthSale,
		Regions:    make([]provider.RegionStock, 0, len(payload.Regions)),
	}
	if product.SKU == "" {
		product.SKU = sku
	}
	for _, r := range payload.Regions {
		product.Regions = append(product.Regions, provider.RegionStock{
			RegionID:   r.RegionID,
			RegionName: r.RegionName,
			Quantity:   r.Qty,
			Price:      r.Price,
		})
	}

	return product, nil
}

func (c *Client) transportError(message string, err error) error {
	return provider.NewProviderError(c.name, provider.CodeNetwork, message, 0, fmt.Errorf("%w: %v", provider.ErrTransient, err))
}

func (c *Client) statusError(resp *resty.Response) error {
	code := resp.StatusCode()
	message := fmt.Sprintf("unexpected status %d: %s", code, truncate(resp.String(), 200))
	switch {
	case code == http.StatusTooManyRequests:
		return provider.NewProviderError(c.name, provider.CodeRateLimit, message, code, provider.ErrTransient)
	case code >= 500:
		return provider.NewProviderError(c.name, provider.CodeServer, message, code, provider.ErrTransient)
	default:
		return provider.NewProviderError(c.name, provider.CodeBadResponse, message, code, provider.ErrInvalidResponse)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
