package sms

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPConfig configures HTTPGateway.
type HTTPConfig struct {
	URL      string
	APIKey   string
	UserID   string
	Password string
	SenderID string
	// CountryPrefix is prepended to numbers without a leading "+".
	CountryPrefix string
	Timeout       time.Duration
	// Client overrides the default client, mainly for tests.
	Client *http.Client
}

// HTTPGateway posts form-encoded messages to a bulk SMS API.
type HTTPGateway struct {
	cfg    HTTPConfig
	client *http.Client
}

// NewHTTPGateway validates cfg and builds a gateway.
func NewHTTPGateway(cfg HTTPConfig) (*HTTPGateway, error) {
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, fmt.Errorf("sms: invalid gateway url: %w", err)
	}

	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &HTTPGateway{cfg: cfg, client: client}, nil
}

// Send posts msg to the gateway. Any non-2xx answer is an error and the body
// is returned in Result for the caller to record.
func (g *HTTPGateway) Send(ctx context.Context, msg Message) (Result, error) {
	to := Normalize(msg.To, g.cfg.CountryPrefix)
	if to == "" {
		return Result{}, ErrNoRecipient
	}

	form := url.Values{}
	form.Set("userid", g.cfg.UserID)
	form.Set("password", g.cfg.Password)
	form.Set("senderid", g.cfg.SenderID)
	form.Set("msgType", "text")
	form.Set("msg", msg.Body)
	form.Set("mobile", to)
	form.Set("output", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("sms: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if g.cfg.APIKey != "" {
		req.Header.Set("apikey", g.cfg.APIKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("sms: post: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return Result{StatusCode: resp.StatusCode}, fmt.Errorf("sms: read response: %w", err)
	}

	res := Result{StatusCode: resp.StatusCode, Response: string(body)}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return res, fmt.Errorf("sms: gateway answered %d", resp.StatusCode)
	}

	return res, nil
}
