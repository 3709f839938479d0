// Package backend is the REST client for the FPRAX platform API. The
// gateway holds no data of its own; everything durable lives behind
// these calls.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Gonmore/fprax-gateway/internal/domain/enums"
	"github.com/Gonmore/fprax-gateway/internal/domain/model"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("backend rejected the token")
	ErrUnknownProvider    = errors.New("unknown social provider")
)

// StatusError reports a non-2xx backend response that is not one of the
// sentinel cases above.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	wsURL   string
	http    *http.Client
}

func NewClient(baseURL, wsURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		wsURL:   wsURL,
		http:    httpClient,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) WebsocketURL() string {
	return c.wsURL
}

type loginResponse struct {
	User  model.User `json:"user"`
	Token string     `json:"token"`
}

// Login exchanges credentials for a user and a signed session token.
func (c *Client) Login(ctx context.Context, email, password string) (model.User, string, error) {
	body := map[string]string{"email": email, "password": password}

	var res loginResponse
	err := c.do(ctx, http.MethodPost, "/login", "", body, &res)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && (statusErr.Status == http.StatusUnauthorized || statusErr.Status == http.StatusForbidden) {
		return model.User{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, "", err
	}
	if res.Token == "" {
		return model.User{}, "", fmt.Errorf("login response missing token")
	}

	return res.User, res.Token, nil
}

// SocialLoginURL builds the browser redirect entry point for a social
// provider. The backend drives the OAuth dance and redirects back to
// the gateway callback with token and user in the query string.
func (c *Client) SocialLoginURL(provider enums.SocialProvider) (string, error) {
	if !provider.Valid() {
		return "", ErrUnknownProvider
	}
	return c.baseURL + "/auth/" + string(provider), nil
}

func (c *Client) OnboardingStatus(ctx context.Context, token string) (model.OnboardingStatus, error) {
	var status model.OnboardingStatus
	if err := c.do(ctx, http.MethodGet, "/onboarding/status", token, nil, &status); err != nil {
		return model.OnboardingStatus{}, err
	}
	return status, nil
}

func (c *Client) CompleteOnboardingStep(ctx context.Context, token, step string) (model.OnboardingStatus, error) {
	body := map[string]string{"step": step}

	var status model.OnboardingStatus
	if err := c.do(ctx, http.MethodPost, "/onboarding/complete-step", token, body, &status); err != nil {
		return model.OnboardingStatus{}, err
	}
	return status, nil
}

func (c *Client) RecommendedOffers(ctx context.Context, token string) ([]model.Offer, error) {
	var offers []model.Offer
	if err := c.do(ctx, http.MethodGet, "/onboarding/recommended-offers", token, nil, &offers); err != nil {
		return nil, err
	}
	return offers, nil
}

func (c *Client) CompanyOffersWithCandidates(ctx context.Context, token string) ([]model.Offer, error) {
	var offers []model.Offer
	if err := c.do(ctx, http.MethodGet, "/api/offers/company-with-candidates", token, nil, &offers); err != nil {
		return nil, err
	}
	return offers, nil
}

func (c *Client) DeleteOffer(ctx context.Context, token string, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/offers/"+strconv.FormatInt(id, 10), token, nil, nil)
}

func (c *Client) RevealedCVs(ctx context.Context, token string) ([]int64, error) {
	var ids []int64
	if err := c.do(ctx, http.MethodGet, "/api/students/revealed-cvs", token, nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

type balanceResponse struct {
	Balance int `json:"balance"`
}

func (c *Client) TokenBalance(ctx context.Context, token string) (int, error) {
	var res balanceResponse
	if err := c.do(ctx, http.MethodGet, "/api/students/tokens/balance", token, nil, &res); err != nil {
		return 0, err
	}
	return res.Balance, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized && token != "" {
		return ErrUnauthorized
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &StatusError{Status: res.StatusCode, Message: readErrorMessage(res.Body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func readErrorMessage(body io.Reader) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(body, 4096)).Decode(&payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}
