// Package client talks to the host ledger that owns balances and time.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/totegamma/concrnt-adz"
)

const (
	defaultTimeout   = 3 * time.Second
	transferAttempts = 3

	IdempotencyKeyHeader = "Idempotency-Key"

	wellKnownPath = "/.well-known/ledger"

	EndpointTransfer = "net.ledger.bank.transfer"
	EndpointNow      = "net.ledger.clock.now"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

type WellKnownLedger struct {
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// TransferRequest carries a caller-chosen Reference. The ledger applies a
// reference at most once, which makes retrying a timed out transfer safe.
type TransferRequest struct {
	Reference string        `json:"reference"`
	From      adz.AccountID `json:"from"`
	To        adz.AccountID `json:"to"`
	Amount    adz.Amount    `json:"amount"`
}

type NowResponse struct {
	Now uint64 `json:"now"`
}

type Client struct {
	client    *http.Client
	cache     *cache.Cache
	userAgent string
	baseURL   string
}

func New(baseURL string) *Client {
	httpClient := http.Client{
		Timeout: defaultTimeout,
	}

	c := &Client{
		client:    &httpClient,
		cache:     cache.New(10*time.Minute, 15*time.Minute),
		userAgent: "adz/1.0",
		baseURL:   strings.TrimSuffix(baseURL, "/"),
	}
	httpClient.Transport = c
	return c
}

func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	return http.DefaultTransport.RoundTrip(req)
}

// WellKnown fetches the ledger's endpoint table, cached for ten minutes.
func (c *Client) WellKnown(ctx context.Context) (WellKnownLedger, error) {
	cacheKey := "wellknown:" + c.baseURL
	if x, found := c.cache.Get(cacheKey); found {
		return x.(WellKnownLedger), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+wellKnownPath, nil)
	if err != nil {
		return WellKnownLedger{}, errors.Wrap(err, "failed to create request")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return WellKnownLedger{}, errors.Wrap(err, "failed to perform request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return WellKnownLedger{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var wkl WellKnownLedger
	if err := json.NewDecoder(resp.Body).Decode(&wkl); err != nil {
		return WellKnownLedger{}, errors.Wrap(err, "failed to decode well-known ledger")
	}

	c.cache.Set(cacheKey, wkl, cache.DefaultExpiration)
	return wkl, nil
}

func (c *Client) endpoint(ctx context.Context, name string) (string, error) {
	wkl, err := c.WellKnown(ctx)
	if err != nil {
		return "", err
	}
	path, ok := wkl.Endpoints[name]
	if !ok {
		return "", fmt.Errorf("ledger does not expose %s", name)
	}
	return c.baseURL + path, nil
}

// Transfer moves amount on the host ledger. Transport failures and 5xx answers are
// retried with the same reference, so the ledger sees one logical transfer.
func (c *Client) Transfer(ctx context.Context, reference string, from, to adz.AccountID, amount adz.Amount) error {
	url, err := c.endpoint(ctx, EndpointTransfer)
	if err != nil {
		return err
	}

	body, err := json.Marshal(TransferRequest{Reference: reference, From: from, To: to, Amount: amount})
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < transferAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		retry, err := c.postTransfer(ctx, url, reference, body)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
	}
	return errors.Wrapf(lastErr, "transfer %s failed after %d attempts", reference, transferAttempts)
}

func (c *Client) postTransfer(ctx context.Context, url, reference string, body []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(IdempotencyKeyHeader, reference)

	resp, err := c.client.Do(req)
	if err != nil {
		return true, errors.Wrap(err, "failed to perform request")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusNoContent:
		return false, nil
	case resp.StatusCode == http.StatusPaymentRequired:
		return false, ErrInsufficientFunds
	case resp.StatusCode >= http.StatusInternalServerError:
		return true, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	default:
		return false, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
}

func (c *Client) Now(ctx context.Context) (uint64, error) {
	url, err := c.endpoint(ctx, EndpointNow)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create request")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "failed to perform request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var now NowResponse
	if err := json.NewDecoder(resp.Body).Decode(&now); err != nil {
		return 0, errors.Wrap(err, "failed to decode clock response")
	}
	return now.Now, nil
}
