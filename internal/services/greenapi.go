package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rassrochka_app/internal/models"
)

const DefaultGreenAPIBaseURL = "https://api.green-api.com"

var (
	ErrSendFailed        = errors.New("green api send failed")
	ErrMalformedResponse = errors.New("green api returned a malformed response")
)

// GreenAPIClient talks to the hosted WhatsApp gateway. Every call carries the
// calling manager's instance credentials; the client itself is shared.
type GreenAPIClient struct {
	baseURL string
	client  *http.Client
}

func NewGreenAPIClient(baseURL string, timeout time.Duration) *GreenAPIClient {
	if baseURL == "" {
		baseURL = DefaultGreenAPIBaseURL
	}
	return &GreenAPIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type sendMessageRequest struct {
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

type sendMessageResponse struct {
	IDMessage string `json:"idMessage"`
}

type stateInstanceResponse struct {
	StateInstance string `json:"stateInstance"`
}

func (c *GreenAPIClient) endpoint(creds models.GreenAPICredentials, method string) string {
	return fmt.Sprintf("%s/waInstance%s/%s/%s", c.baseURL, creds.IDInstance, method, creds.APITokenInstance)
}

func (c *GreenAPIClient) makeRequest(ctx context.Context, httpMethod, url string, payload, out interface{}) error {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		bodyReader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading body: %v", ErrSendFailed, err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: status %d: %s", ErrSendFailed, resp.StatusCode, string(body))
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}
	return nil
}

// Send posts one text message. A response without idMessage is treated as
// not delivered.
func (c *GreenAPIClient) Send(ctx context.Context, creds models.GreenAPICredentials, chatID, text string) error {
	var resp sendMessageResponse
	err := c.makeRequest(ctx, http.MethodPost, c.endpoint(creds, "sendMessage"), sendMessageRequest{
		ChatID:  chatID,
		Message: text,
	}, &resp)
	if err != nil {
		return err
	}
	if resp.IDMessage == "" {
		return fmt.Errorf("%w: missing idMessage", ErrMalformedResponse)
	}
	return nil
}

// GetStateInstance reports the instance's authorization state, e.g.
// "authorized" or "notAuthorized".
func (c *GreenAPIClient) GetStateInstance(ctx context.Context, creds models.GreenAPICredentials) (string, error) {
	var resp stateInstanceResponse
	if err := c.makeRequest(ctx, http.MethodGet, c.endpoint(creds, "getStateInstance"), nil, &resp); err != nil {
		return "", err
	}
	return resp.StateInstance, nil
}
