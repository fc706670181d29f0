package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mr-tron/base58"
)

func tokenAccountData(mint, owner byte, amount uint64) string {
	buf := make([]byte, 165)
	copy(buf[0:32], bytes.Repeat([]byte{mint}, 32))
	copy(buf[32:64], bytes.Repeat([]byte{owner}, 32))
	binary.LittleEndian.PutUint64(buf[64:72], amount)
	return base64.StdEncoding.EncodeToString(buf)
}

func accountInfoServer(t *testing.T, owner, data string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		var value interface{}
		if data != "" {
			value = map[string]interface{}{
				"lamports":   uint64(2039280),
				"owner":      owner,
				"data":       []string{data, "base64"},
				"executable": false,
				"rentEpoch":  uint64(0),
			}
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  map[string]interface{}{"value": value},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestParseTokenAccount(t *testing.T) {
	acct, err := ParseTokenAccount("vault", tokenAccountData(3, 9, 1_000_000))
	if err != nil {
		t.Fatalf("ParseTokenAccount: %v", err)
	}

	if acct.Mint != base58.Encode(bytes.Repeat([]byte{3}, 32)) {
		t.Errorf("unexpected mint: %s", acct.Mint)
	}
	if acct.Owner != base58.Encode(bytes.Repeat([]byte{9}, 32)) {
		t.Errorf("unexpected owner: %s", acct.Owner)
	}
	if acct.Amount != 1_000_000 {
		t.Errorf("expected amount 1000000, got %d", acct.Amount)
	}
	if acct.Address != "vault" {
		t.Errorf("unexpected address: %s", acct.Address)
	}
}

func TestParseTokenAccount_Invalid(t *testing.T) {
	if _, err := ParseTokenAccount("x", "!!!"); err == nil {
		t.Error("expected error for invalid base64")
	}

	short := base64.StdEncoding.EncodeToString(make([]byte, 40))
	if _, err := ParseTokenAccount("x", short); err == nil {
		t.Error("expected error for short data")
	}
}

func TestHTTPClient_GetTokenAccount(t *testing.T) {
	server := accountInfoServer(t, TokenProgramID, tokenAccountData(3, 9, 42))
	defer server.Close()

	acct, err := NewHTTPClient(server.URL).GetTokenAccount(context.Background(), "vault")
	if err != nil {
		t.Fatalf("GetTokenAccount: %v", err)
	}
	if acct == nil {
		t.Fatal("expected token account, got nil")
	}
	if acct.Amount != 42 {
		t.Errorf("expected amount 42, got %d", acct.Amount)
	}
}

func TestHTTPClient_GetTokenAccount_NotTokenProgram(t *testing.T) {
	server := accountInfoServer(t, "11111111111111111111111111111111", tokenAccountData(3, 9, 42))
	defer server.Close()

	_, err := NewHTTPClient(server.URL).GetTokenAccount(context.Background(), "vault")
	if !errors.Is(err, ErrNotTokenAccount) {
		t.Errorf("expected ErrNotTokenAccount, got %v", err)
	}
}

func TestHTTPClient_GetTokenAccount_NotFound(t *testing.T) {
	server := accountInfoServer(t, TokenProgramID, "")
	defer server.Close()

	acct, err := NewHTTPClient(server.URL).GetTokenAccount(context.Background(), "vault")
	if err != nil {
		t.Fatalf("GetTokenAccount: %v", err)
	}
	if acct != nil {
		t.Errorf("expected nil for not found, got %+v", acct)
	}
}
