package chain

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/domain"
)

const (
	defaultRPCTimeout     = 10 * time.Second
	breakerFailureTrigger = 5
)

// APIError is the error body nodeos returns for a failed call.
type APIError struct {
	StatusCode int    `json:"code"`
	Message    string `json:"message"`
	Detail     struct {
		Code    int    `json:"code"`
		Name    string `json:"name"`
		What    string `json:"what"`
		Details []struct {
			Message string `json:"message"`
		} `json:"details"`
	} `json:"error"`
}

func (e *APIError) Error() string {
	msg := e.Detail.What
	if msg == "" {
		msg = e.Message
	}
	if len(e.Detail.Details) > 0 {
		msg += ": " + e.Detail.Details[0].Message
	}
	return fmt.Sprintf("ledger rpc %d: %s", e.StatusCode, msg)
}

// IsDuplicateTransaction reports whether err is the ledger rejecting a
// transaction it has already accepted.
func IsDuplicateTransaction(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Detail.Name == "tx_duplicate" || strings.Contains(strings.ToLower(apiErr.Detail.What), "duplicate transaction")
}

// Client calls the ledger node's HTTP RPC through a circuit breaker.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

type ClientOption func(*Client)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

func WithBreakerSettings(st gobreaker.Settings) ClientOption {
	return func(cl *Client) {
		cl.breaker = gobreaker.NewCircuitBreaker(st)
	}
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultRPCTimeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "ledger-rpc",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerFailureTrigger
			},
			IsSuccessful: func(err error) bool {
				// A well-formed rejection means the node is healthy.
				var apiErr *APIError
				return err == nil || errors.As(err, &apiErr)
			},
		}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) call(ctx context.Context, path string, in, out any) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, path, in, out)
	})
	return err
}

func (c *Client) do(ctx context.Context, path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(raw, apiErr); err != nil {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// Info is the subset of get_info the backend uses.
type Info struct {
	ChainID                  string `json:"chain_id"`
	HeadBlockNum             uint32 `json:"head_block_num"`
	HeadBlockID              string `json:"head_block_id"`
	HeadBlockTime            string `json:"head_block_time"`
	LastIrreversibleBlockNum uint32 `json:"last_irreversible_block_num"`
	LastIrreversibleBlockID  string `json:"last_irreversible_block_id"`
}

func (c *Client) GetInfo(ctx context.Context) (Info, error) {
	var info Info
	if err := c.call(ctx, "/v1/chain/get_info", nil, &info); err != nil {
		return Info{}, err
	}
	return info, nil
}

type KeyWeight struct {
	Key    string `json:"key"`
	Weight int    `json:"weight"`
}

type Authority struct {
	Threshold int         `json:"threshold"`
	Keys      []KeyWeight `json:"keys"`
}

type Permission struct {
	PermName     string    `json:"perm_name"`
	Parent       string    `json:"parent"`
	RequiredAuth Authority `json:"required_auth"`
}

type Account struct {
	AccountName string       `json:"account_name"`
	Permissions []Permission `json:"permissions"`
}

// Keys lists every key under every permission of the account.
func (a Account) Keys() []string {
	var keys []string
	for _, p := range a.Permissions {
		for _, k := range p.RequiredAuth.Keys {
			keys = append(keys, k.Key)
		}
	}
	return keys
}

func (c *Client) GetAccount(ctx context.Context, name string) (Account, error) {
	var acc Account
	if err := c.call(ctx, "/v1/chain/get_account", map[string]string{"account_name": name}, &acc); err != nil {
		return Account{}, err
	}
	return acc, nil
}

// TableRowsRequest mirrors get_table_rows parameters.
type TableRowsRequest struct {
	Code       string `json:"code"`
	Scope      string `json:"scope"`
	Table      string `json:"table"`
	LowerBound string `json:"lower_bound,omitempty"`
	UpperBound string `json:"upper_bound,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Reverse    bool   `json:"reverse,omitempty"`
	JSON       bool   `json:"json"`
}

type TableRowsResponse struct {
	Rows    []json.RawMessage `json:"rows"`
	More    bool              `json:"more"`
	NextKey string            `json:"next_key"`
}

func (c *Client) GetTableRows(ctx context.Context, req TableRowsRequest) (TableRowsResponse, error) {
	var resp TableRowsResponse
	if err := c.call(ctx, "/v1/chain/get_table_rows", req, &resp); err != nil {
		return TableRowsResponse{}, err
	}
	return resp, nil
}

// ActionTrace is one executed action in a push_transaction trace.
type ActionTrace struct {
	Act struct {
		Account string          `json:"account"`
		Name    string          `json:"name"`
		Data    json.RawMessage `json:"data"`
	} `json:"act"`
	InlineTraces []ActionTrace `json:"inline_traces"`
}

type PushResult struct {
	TransactionID string `json:"transaction_id"`
	Processed     struct {
		ActionTraces []ActionTrace `json:"action_traces"`
	} `json:"processed"`
}

// FindAction walks the trace tree depth-first for the first account::name
// action and returns its data.
func (r PushResult) FindAction(account, name string) (json.RawMessage, bool) {
	var walk func([]ActionTrace) (json.RawMessage, bool)
	walk = func(traces []ActionTrace) (json.RawMessage, bool) {
		for _, t := range traces {
			if t.Act.Account == account && t.Act.Name == name {
				return t.Act.Data, true
			}
			if data, ok := walk(t.InlineTraces); ok {
				return data, true
			}
		}
		return nil, false
	}
	return walk(r.Processed.ActionTraces)
}

// PushTransaction broadcasts a signed transaction.
func (c *Client) PushTransaction(ctx context.Context, signed domain.SignedProposal) (PushResult, error) {
	req := map[string]any{
		"signatures":               signed.Signatures,
		"compression":              0,
		"packed_context_free_data": "",
		"packed_trx":               hex.EncodeToString(signed.SerializedTransaction),
	}
	var res PushResult
	if err := c.call(ctx, "/v1/chain/push_transaction", req, &res); err != nil {
		return PushResult{}, err
	}
	return res, nil
}

// ABIJSONToBin serializes action arguments with the contract's ABI.
func (c *Client) ABIJSONToBin(ctx context.Context, code, action string, args json.RawMessage) ([]byte, error) {
	req := map[string]any{"code": code, "action": action, "args": args}
	var resp struct {
		Binargs string `json:"binargs"`
	}
	if err := c.call(ctx, "/v1/chain/abi_json_to_bin", req, &resp); err != nil {
		return nil, err
	}
	bin, err := hex.DecodeString(resp.Binargs)
	if err != nil {
		return nil, fmt.Errorf("decode binargs: %w", err)
	}
	return bin, nil
}

// ABIBinToJSON decodes serialized action arguments with the contract's ABI.
func (c *Client) ABIBinToJSON(ctx context.Context, code, action string, bin []byte) (json.RawMessage, error) {
	req := map[string]any{"code": code, "action": action, "binargs": hex.EncodeToString(bin)}
	var resp struct {
		Args json.RawMessage `json:"args"`
	}
	if err := c.call(ctx, "/v1/chain/abi_bin_to_json", req, &resp); err != nil {
		return nil, err
	}
	return resp.Args, nil
}

// DecodeTransactionActions unpacks a serialized transaction and decodes every
// action's data through the ABI of its contract. Authorization is dropped.
func (c *Client) DecodeTransactionActions(ctx context.Context, packed []byte) ([]domain.Action, error) {
	env, err := c.DecodeTransaction(ctx, packed)
	if err != nil {
		return nil, err
	}
	return env.Actions, nil
}

// DecodeTransaction is DecodeTransactionActions plus the envelope fields a
// signer controls besides the actions. Context-free actions keep their raw
// data as a hex string; they are reported, never decoded.
func (c *Client) DecodeTransaction(ctx context.Context, packed []byte) (domain.SignedEnvelope, error) {
	trx, err := UnpackTransaction(packed)
	if err != nil {
		return domain.SignedEnvelope{}, fmt.Errorf("unpack transaction: %w", err)
	}
	env := domain.SignedEnvelope{
		Actions:    make([]domain.Action, 0, len(trx.Actions)),
		DelaySec:   trx.DelaySec,
		Extensions: len(trx.Extensions),
	}
	for _, a := range trx.ContextFreeActions {
		data, _ := json.Marshal(hex.EncodeToString(a.Data))
		env.ContextFreeActions = append(env.ContextFreeActions, domain.Action{Account: a.Account, Name: a.Name, Data: data})
	}
	for _, a := range trx.Actions {
		data, err := c.ABIBinToJSON(ctx, a.Account, a.Name, a.Data)
		if err != nil {
			return domain.SignedEnvelope{}, fmt.Errorf("decode %s::%s: %w", a.Account, a.Name, err)
		}
		env.Actions = append(env.Actions, domain.Action{Account: a.Account, Name: a.Name, Data: data})
	}
	return env, nil
}
