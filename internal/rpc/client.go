package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/mr-tron/base58"
	"golang.org/x/time/rate"

	"github.com/Fantasim/solbatch/internal/config"
)

// SignatureStatus represents the status of a transaction signature.
type SignatureStatus struct {
	Slot               uint64      `json:"slot"`
	Confirmations      *uint64     `json:"confirmations"`
	ConfirmationStatus *string     `json:"confirmationStatus"`
	Err                interface{} `json:"err"`
}

// TokenAccount is one token account returned by getTokenAccountsByOwner.
type TokenAccount struct {
	Pubkey    string
	Mint      string
	Owner     string
	ProgramID string
	RawAmount uint64
	Decimals  int
	IsNative  bool
	Lamports  uint64 // account lamports; the reclaimable rent when closed
}

// Client defines the minimal Solana RPC interface the engines need.
// Everything that mutates the ledger goes through SendTransaction.
type Client interface {
	GetBalance(ctx context.Context, address string) (uint64, error)
	GetLatestBlockhash(ctx context.Context) (blockhash [32]byte, lastValidBlockHeight uint64, err error)
	SendTransaction(ctx context.Context, txBase64 string) (signature string, err error)
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]SignatureStatus, error)
	GetAccountInfo(ctx context.Context, address string) (exists bool, lamports uint64, err error)
	GetTokenAccountsByOwner(ctx context.Context, owner, programID string) ([]TokenAccount, error)
	GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (uint64, error)
}

// HTTPClient implements Client using Solana JSON-RPC over HTTP with
// round-robin URL selection and request pacing.
type HTTPClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	rpcURLs    []string
	currentIdx int
	mu         sync.Mutex
}

// NewHTTPClient creates a JSON-RPC client. ratePerSec bounds the request rate
// across all URLs.
func NewHTTPClient(httpClient *http.Client, rpcURLs []string, ratePerSec int) *HTTPClient {
	if ratePerSec < 1 {
		ratePerSec = config.DefaultRPCRateLimit
	}
	slog.Info("rpc client created",
		"urlCount", len(rpcURLs),
		"urls", rpcURLs,
		"ratePerSec", ratePerSec,
	)
	return &HTTPClient{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
		rpcURLs:    rpcURLs,
	}
}

// rpcRequest is a Solana JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// rpcResponse is a generic JSON-RPC response with json.RawMessage result.
type rpcResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// nextURL returns the next RPC URL in round-robin order.
func (c *HTTPClient) nextURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	url := c.rpcURLs[c.currentIdx%len(c.rpcURLs)]
	c.currentIdx++
	return url
}

// doRPC sends a JSON-RPC request and returns the raw result.
func (c *HTTPClient) doRPC(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	url := c.nextURL()

	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal RPC request: %w", err)
	}

	slog.Debug("rpc request",
		"method", method,
		"url", url,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create RPC request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute RPC request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("RPC HTTP %d from %s", resp.StatusCode, url)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("decode RPC response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, fmt.Errorf("RPC error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	return rpcResp.Result, nil
}

// GetBalance fetches the native balance (lamports) for an address.
func (c *HTTPClient) GetBalance(ctx context.Context, address string) (uint64, error) {
	result, err := c.doRPC(ctx, "getBalance", []interface{}{
		address,
		map[string]string{"commitment": "confirmed"},
	})
	if err != nil {
		return 0, fmt.Errorf("getBalance for %s: %w", address, err)
	}

	var parsed struct {
		Value uint64 `json:"value"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return 0, fmt.Errorf("parse getBalance: %w", err)
	}

	slog.Debug("balance fetched",
		"address", address,
		"lamports", parsed.Value,
	)

	return parsed.Value, nil
}

// GetLatestBlockhash fetches a recent blockhash for transaction building.
func (c *HTTPClient) GetLatestBlockhash(ctx context.Context) ([32]byte, uint64, error) {
	result, err := c.doRPC(ctx, "getLatestBlockhash", []interface{}{
		map[string]string{"commitment": "confirmed"},
	})
	if err != nil {
		return [32]byte{}, 0, fmt.Errorf("getLatestBlockhash: %w", err)
	}

	var parsed struct {
		Value struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return [32]byte{}, 0, fmt.Errorf("parse getLatestBlockhash: %w", err)
	}

	hashBytes, err := base58.Decode(parsed.Value.Blockhash)
	if err != nil {
		return [32]byte{}, 0, fmt.Errorf("decode blockhash: %w", err)
	}
	if len(hashBytes) != 32 {
		return [32]byte{}, 0, fmt.Errorf("invalid blockhash length: %d", len(hashBytes))
	}

	var blockhash [32]byte
	copy(blockhash[:], hashBytes)

	return blockhash, parsed.Value.LastValidBlockHeight, nil
}

// SendTransaction broadcasts a base64-encoded signed transaction.
func (c *HTTPClient) SendTransaction(ctx context.Context, txBase64 string) (string, error) {
	result, err := c.doRPC(ctx, "sendTransaction", []interface{}{
		txBase64,
		map[string]interface{}{
			"encoding":            "base64",
			"preflightCommitment": "confirmed",
		},
	})
	if err != nil {
		return "", fmt.Errorf("sendTransaction: %w", err)
	}

	var signature string
	if err := json.Unmarshal(result, &signature); err != nil {
		return "", fmt.Errorf("parse sendTransaction result: %w", err)
	}

	slog.Info("transaction sent", "signature", signature)
	return signature, nil
}

// GetSignatureStatuses fetches the status of one or more transaction signatures.
func (c *HTTPClient) GetSignatureStatuses(ctx context.Context, signatures []string) ([]SignatureStatus, error) {
	result, err := c.doRPC(ctx, "getSignatureStatuses", []interface{}{
		signatures,
		map[string]bool{"searchTransactionHistory": true},
	})
	if err != nil {
		return nil, fmt.Errorf("getSignatureStatuses: %w", err)
	}

	var parsed struct {
		Value []*SignatureStatus `json:"value"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("parse getSignatureStatuses: %w", err)
	}

	statuses := make([]SignatureStatus, len(parsed.Value))
	for i, s := range parsed.Value {
		if s != nil {
			statuses[i] = *s
		}
	}

	return statuses, nil
}

// GetAccountInfo checks if an account exists and returns its lamport balance.
func (c *HTTPClient) GetAccountInfo(ctx context.Context, address string) (bool, uint64, error) {
	result, err := c.doRPC(ctx, "getAccountInfo", []interface{}{
		address,
		map[string]string{"encoding": "base64"},
	})
	if err != nil {
		return false, 0, fmt.Errorf("getAccountInfo for %s: %w", address, err)
	}

	var parsed struct {
		Value *struct {
			Lamports uint64 `json:"lamports"`
		} `json:"value"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return false, 0, fmt.Errorf("parse getAccountInfo: %w", err)
	}

	if parsed.Value == nil {
		return false, 0, nil
	}

	return true, parsed.Value.Lamports, nil
}

// tokenAccountEntry mirrors the jsonParsed shape of getTokenAccountsByOwner.
type tokenAccountEntry struct {
	Pubkey  string `json:"pubkey"`
	Account struct {
		Lamports uint64 `json:"lamports"`
		Owner    string `json:"owner"`
		Data     struct {
			Program string `json:"program"`
			Parsed  struct {
				Type string `json:"type"`
				Info struct {
					Mint        string `json:"mint"`
					Owner       string `json:"owner"`
					IsNative    bool   `json:"isNative"`
					TokenAmount struct {
						Amount   string `json:"amount"`
						Decimals int    `json:"decimals"`
					} `json:"tokenAmount"`
				} `json:"info"`
			} `json:"parsed"`
		} `json:"data"`
	} `json:"account"`
}

// GetTokenAccountsByOwner lists all token accounts of an owner under one
// token program (call once per program to cover Token and Token-2022).
func (c *HTTPClient) GetTokenAccountsByOwner(ctx context.Context, owner, programID string) ([]TokenAccount, error) {
	result, err := c.doRPC(ctx, "getTokenAccountsByOwner", []interface{}{
		owner,
		map[string]string{"programId": programID},
		map[string]string{"encoding": "jsonParsed", "commitment": "confirmed"},
	})
	if err != nil {
		return nil, fmt.Errorf("getTokenAccountsByOwner for %s: %w", owner, err)
	}

	var parsed struct {
		Value []tokenAccountEntry `json:"value"`
	}
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("parse getTokenAccountsByOwner: %w", err)
	}

	accounts := make([]TokenAccount, 0, len(parsed.Value))
	for _, entry := range parsed.Value {
		info := entry.Account.Data.Parsed.Info

		raw, err := strconv.ParseUint(info.TokenAmount.Amount, 10, 64)
		if err != nil {
			slog.Warn("skipping token account with unparseable amount",
				"account", entry.Pubkey,
				"amount", info.TokenAmount.Amount,
				"error", err,
			)
			continue
		}

		accounts = append(accounts, TokenAccount{
			Pubkey:    entry.Pubkey,
			Mint:      info.Mint,
			Owner:     info.Owner,
			ProgramID: entry.Account.Owner,
			RawAmount: raw,
			Decimals:  info.TokenAmount.Decimals,
			IsNative:  info.IsNative || info.Mint == config.NativeMint,
			Lamports:  entry.Account.Lamports,
		})
	}

	slog.Debug("token accounts fetched",
		"owner", owner,
		"programId", programID,
		"count", len(accounts),
	)

	return accounts, nil
}

// GetMinimumBalanceForRentExemption returns the rent-exempt minimum for an
// account of the given data size.
func (c *HTTPClient) GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (uint64, error) {
	result, err := c.doRPC(ctx, "getMinimumBalanceForRentExemption", []interface{}{dataSize})
	if err != nil {
		return 0, fmt.Errorf("getMinimumBalanceForRentExemption: %w", err)
	}

	var lamports uint64
	if err := json.Unmarshal(result, &lamports); err != nil {
		return 0, fmt.Errorf("parse getMinimumBalanceForRentExemption: %w", err)
	}

	return lamports, nil
}
