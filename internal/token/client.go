// Package token реализует адаптер перевода токенов — клиент внешнего
// сервиса PYUSD, предоставляющего balanceOf, allowance и transferFrom.
// Реестр проверяет баланс и лимит до перевода, чтобы учитывать
// неуспешные циклы без исключений на стороне вызывающего.
package token

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client клиент HTTP API токен-сервиса PYUSD.
type Client struct {
	apiURL     string
	apiKey     string
	spender    string
	httpClient *http.Client
}

// NewClient создаёт новый клиент токен-сервиса.
// spender — адрес реестра, от имени которого выполняются списания.
func NewClient(apiURL, apiKey, spender string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiURL:     apiURL,
		apiKey:     apiKey,
		spender:    spender,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Spender возвращает адрес, от имени которого реестр списывает средства.
func (c *Client) Spender() string {
	return c.spender
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	reqURL := c.apiURL + path
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// BalanceOf возвращает баланс адреса в базовых единицах токена.
func (c *Client) BalanceOf(ctx context.Context, address string) (int64, error) {
	const op = "token.BalanceOf"
	req, err := c.newRequest(ctx, http.MethodGet, "/balance/"+url.PathEscape(address), nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%s: unexpected status: %s", op, resp.Status)
	}

	var balanceResp BalanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&balanceResp); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return balanceResp.Balance, nil
}

// Allowance возвращает лимит списания, выданный владельцем адресу spender.
func (c *Client) Allowance(ctx context.Context, owner string) (int64, error) {
	const op = "token.Allowance"
	path := "/allowance/" + url.PathEscape(owner) + "/" + url.PathEscape(c.spender)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%s: unexpected status: %s", op, resp.Status)
	}

	var allowanceResp AllowanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&allowanceResp); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return allowanceResp.Allowance, nil
}

// TransferFrom списывает amount с owner в пользу to от имени spender.
// reference — идемпотентный ключ перевода.
func (c *Client) TransferFrom(ctx context.Context, owner, to string, amount int64, reference string) (*TransferResult, error) {
	const op = "token.TransferFrom"
	reqBody := TransferRequest{
		Owner:     owner,
		To:        to,
		Amount:    amount,
		Reference: reference,
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/transfer-from", reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%s: unexpected status: %s", op, resp.Status)
	}

	var result TransferResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !result.Success {
		return &result, errors.New("transfer declined: " + result.Message)
	}
	return &result, nil
}
