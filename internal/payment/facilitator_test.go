package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRemoteFacilitator_VerifySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/verify" {
			t.Errorf("path = %v, want /verify", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"isValid": true,
			"payer":   "0xabc",
		})
	}))
	defer srv.Close()

	f := NewRemoteFacilitator(srv.URL, nil)
	result, err := f.Verify(context.Background(), []byte(`{}`), Requirement{Scheme: "exact"})
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if result.Payer != "0xabc" {
		t.Errorf("Payer = %v, want 0xabc", result.Payer)
	}
}

func TestRemoteFacilitator_VerifyRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"isValid":       false,
			"invalidReason": "insufficient_funds",
		})
	}))
	defer srv.Close()

	f := NewRemoteFacilitator(srv.URL, nil)
	if _, err := f.Verify(context.Background(), []byte(`{}`), Requirement{}); err == nil {
		t.Fatal("Verify() error = nil, want error for rejected payment")
	}
}

func TestRemoteFacilitator_SettleSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"txHash":  "0xdeadbeef",
			"payer":   "0xabc",
		})
	}))
	defer srv.Close()

	f := NewRemoteFacilitator(srv.URL, nil)
	result, err := f.Settle(context.Background(), []byte(`{}`), Requirement{})
	if err != nil {
		t.Fatalf("Settle() error = %v", err)
	}
	if result.TxHash != "0xdeadbeef" {
		t.Errorf("TxHash = %v, want 0xdeadbeef", result.TxHash)
	}
}

func TestRemoteFacilitator_SettleFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":     false,
			"errorReason": "nonce_too_low",
		})
	}))
	defer srv.Close()

	f := NewRemoteFacilitator(srv.URL, nil)
	if _, err := f.Settle(context.Background(), []byte(`{}`), Requirement{}); err == nil {
		t.Fatal("Settle() error = nil, want error")
	}
}

func TestRemoteFacilitator_AttachesBearerTokenWhenMinterConfigured(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]interface{}{"isValid": true, "payer": "0xabc"})
	}))
	defer srv.Close()

	minter := NewJWTMinter([]byte("test-secret"), 0)
	f := NewRemoteFacilitator(srv.URL, minter)
	if _, err := f.Verify(context.Background(), []byte(`{}`), Requirement{}); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if gotAuth == "" || gotAuth[:7] != "Bearer " {
		t.Errorf("Authorization header = %q, want Bearer-prefixed token", gotAuth)
	}
}
