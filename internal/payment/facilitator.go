package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// VerifyResult is the outcome of a successful facilitator verify call.
type VerifyResult struct {
	Payer string `json:"payer"`
}

// SettleResult is the outcome of a successful facilitator settle call.
type SettleResult struct {
	TxHash string `json:"txHash"`
	Payer  string `json:"payer"`
}

// FacilitatorClient is the interface the payment coordinator depends
// on, grounded on kshinn-umbra-gateway's x402.FacilitatorClient
// contract (verify/settle against a remote HTTP facilitator).
type FacilitatorClient interface {
	Verify(ctx context.Context, paymentPayload []byte, requirement Requirement) (*VerifyResult, error)
	Settle(ctx context.Context, paymentPayload []byte, requirement Requirement) (*SettleResult, error)
	Supported(ctx context.Context) ([]byte, error)
}

// TokenMinter produces a short-lived bearer token scoped to a single
// facilitator call, bound to method+host+path (see token.go).
type TokenMinter interface {
	Mint(method, host, path string) (string, error)
}

// RemoteFacilitator calls an x402 facilitator's /verify, /settle, and
// /supported endpoints over HTTP. Grounded on
// kshinn-umbra-gateway/x402/facilitator.go's RemoteFacilitator, which
// implements the same three-endpoint contract.
type RemoteFacilitator struct {
	baseURL string
	client  *http.Client
	minter  TokenMinter // nil disables bearer auth
}

// NewRemoteFacilitator builds a client for the facilitator at baseURL.
// minter may be nil, in which case calls carry no Authorization header.
func NewRemoteFacilitator(baseURL string, minter TokenMinter) *RemoteFacilitator {
	return &RemoteFacilitator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		minter:  minter,
	}
}

func (f *RemoteFacilitator) Verify(ctx context.Context, paymentPayload []byte, requirement Requirement) (*VerifyResult, error) {
	var resp struct {
		IsValid        bool   `json:"isValid"`
		InvalidReason  string `json:"invalidReason"`
		InvalidMessage string `json:"invalidMessage"`
		Payer          string `json:"payer"`
	}
	if err := f.post(ctx, "/verify", paymentPayload, requirement, &resp); err != nil {
		return nil, fmt.Errorf("facilitator verify: %w", err)
	}
	if !resp.IsValid {
		reason := resp.InvalidReason
		if resp.InvalidMessage != "" {
			reason += ": " + resp.InvalidMessage
		}
		return nil, fmt.Errorf("payment invalid: %s", reason)
	}
	return &VerifyResult{Payer: resp.Payer}, nil
}

func (f *RemoteFacilitator) Settle(ctx context.Context, paymentPayload []byte, requirement Requirement) (*SettleResult, error) {
	var resp struct {
		Success      bool   `json:"success"`
		TxHash       string `json:"txHash"`
		Payer        string `json:"payer"`
		ErrorReason  string `json:"errorReason"`
		ErrorMessage string `json:"errorMessage"`
	}
	if err := f.post(ctx, "/settle", paymentPayload, requirement, &resp); err != nil {
		return nil, fmt.Errorf("facilitator settle: %w", err)
	}
	if !resp.Success {
		reason := resp.ErrorReason
		if resp.ErrorMessage != "" {
			reason += ": " + resp.ErrorMessage
		}
		return nil, fmt.Errorf("settlement failed: %s", reason)
	}
	return &SettleResult{TxHash: resp.TxHash, Payer: resp.Payer}, nil
}

func (f *RemoteFacilitator) Supported(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/supported", nil)
	if err != nil {
		return nil, err
	}
	if err := f.authorize(req); err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("facilitator supported: %w", err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (f *RemoteFacilitator) post(ctx context.Context, path string, paymentPayload []byte, requirement Requirement, dst interface{}) error {
	body, err := json.Marshal(map[string]interface{}{
		"x402Version":         1,
		"paymentPayload":      json.RawMessage(paymentPayload),
		"paymentRequirements": requirement,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := f.authorize(req); err != nil {
		return err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("facilitator returned %d: %s", resp.StatusCode, respBody)
	}
	return json.Unmarshal(respBody, dst)
}

// authorize mints and attaches a per-request bearer token bound to
// this call's method+host+path, when a minter is configured.
func (f *RemoteFacilitator) authorize(req *http.Request) error {
	if f.minter == nil {
		return nil
	}
	token, err := f.minter.Mint(req.Method, req.URL.Host, req.URL.Path)
	if err != nil {
		return fmt.Errorf("minting facilitator token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}
