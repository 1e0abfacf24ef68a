package solana

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/ybbus/jsonrpc"

	"github.com/noema-protocol/registry-client/pkg/metrics"
	"github.com/noema-protocol/registry-client/pkg/rate"
	"github.com/noema-protocol/registry-client/pkg/retry"
	"github.com/noema-protocol/registry-client/pkg/retry/backoff"
)

const (
	// todo: we can retrieve these from the Syscall account
	//       but they're unlikely to change.
	ticksPerSec  = 160
	ticksPerSlot = 64
	slotsPerSec  = ticksPerSec / ticksPerSlot

	// PollRate is the rate at which blocks should be polled at.
	PollRate = (time.Second / slotsPerSec) / 2

	// Reference: https://github.com/solana-labs/solana/blob/71e9958e061493d7545bd28d4ac7a85aaed6ffbb/client/src/rpc_custom_error.rs#L11
	rpcNodeUnhealthyCode = -32005
)

type Commitment struct {
	Commitment string `json:"commitment"`
}

func (c Commitment) String() string {
	return c.Commitment
}

const (
	confirmationStatusProcessed = "processed"
	confirmationStatusConfirmed = "confirmed"
	confirmationStatusFinalized = "finalized"
)

var (
	CommitmentProcessed = Commitment{Commitment: confirmationStatusProcessed}
	CommitmentConfirmed = Commitment{Commitment: confirmationStatusConfirmed}
	CommitmentFinalized = Commitment{Commitment: confirmationStatusFinalized}
)

// ParseCommitment parses one of "processed", "confirmed" or "finalized".
func ParseCommitment(s string) (Commitment, error) {
	switch s {
	case confirmationStatusProcessed:
		return CommitmentProcessed, nil
	case confirmationStatusConfirmed:
		return CommitmentConfirmed, nil
	case confirmationStatusFinalized:
		return CommitmentFinalized, nil
	}
	return Commitment{}, errors.Errorf("invalid commitment: %q", s)
}

var (
	ErrNoAccountInfo      = errors.New("no account info")
	ErrSignatureNotFound  = errors.New("signature not found")
	ErrRateLimited        = errors.New("rate limited")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// RPCError is returned when a request could not be completed by the node,
// as opposed to a transaction being rejected by the network.
type RPCError struct {
	Method string
	Err    error
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s() failed: %v", e.Method, e.Err)
}

func (e *RPCError) Unwrap() error {
	return e.Err
}

// AccountInfo contains the Solana account information (not to be confused with a TokenAccount)
type AccountInfo struct {
	Data       []byte
	Owner      ed25519.PublicKey
	Lamports   uint64
	Executable bool

	// Slot is the slot at which the node observed the account.
	Slot uint64
}

type SignatureStatus struct {
	Slot        uint64
	ErrorResult *TransactionError

	// Confirmations will be nil if the transaction has been rooted.
	Confirmations      *int
	ConfirmationStatus string
}

func (s SignatureStatus) Confirmed() bool {
	if s.Finalized() {
		return true
	}

	if s.ConfirmationStatus == confirmationStatusConfirmed {
		return true
	}

	return *s.Confirmations >= 1
}

func (s SignatureStatus) Finalized() bool {
	return s.Confirmations == nil || s.ConfirmationStatus == confirmationStatusFinalized
}

// Satisfies returns whether the status has reached the provided commitment.
func (s SignatureStatus) Satisfies(commitment Commitment) bool {
	switch commitment.Commitment {
	case confirmationStatusFinalized:
		return s.Finalized()
	case confirmationStatusConfirmed:
		return s.Confirmed()
	default:
		return true
	}
}

type TransactionMeta struct {
	Err          interface{} `json:"err"`
	Fee          uint64      `json:"fee"`
	LogMessages  []string    `json:"logMessages"`
	ComputeUnits *uint64     `json:"computeUnitsConsumed"`
	PreBalances  []uint64    `json:"preBalances"`
	PostBalances []uint64    `json:"postBalances"`
}

type ConfirmedTransaction struct {
	Slot        uint64
	BlockTime   *time.Time
	Transaction Transaction
	Err         *TransactionError
	Meta        *TransactionMeta
}

// SimulationResult is the outcome of running a transaction against the
// node's current bank without committing it.
type SimulationResult struct {
	Err           *TransactionError
	Logs          []string
	UnitsConsumed uint64
}

// SubmitOptions configures sendTransaction.
type SubmitOptions struct {
	SkipPreflight       bool
	PreflightCommitment Commitment

	// MaxRetries is the number of times the node rebroadcasts. Nil uses the
	// node default.
	MaxRetries *uint
}

// Client provides an interaction with the Solana JSON RPC API.
//
// Reference: https://docs.solana.com/apps/jsonrpc-api
type Client interface {
	GetAccountInfo(ctx context.Context, account ed25519.PublicKey, commitment Commitment) (AccountInfo, error)
	GetBalance(ctx context.Context, account ed25519.PublicKey) (uint64, error)
	GetBlockHeight(ctx context.Context, commitment Commitment) (uint64, error)
	GetLatestBlockhash(ctx context.Context, commitment Commitment) (Blockhash, uint64, error)
	GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error)
	GetSignatureStatus(ctx context.Context, sig Signature) (*SignatureStatus, error)
	GetSignatureStatuses(ctx context.Context, sigs []Signature) ([]*SignatureStatus, error)
	GetSlot(ctx context.Context, commitment Commitment) (uint64, error)
	GetTransaction(ctx context.Context, sig Signature, commitment Commitment) (ConfirmedTransaction, error)
	RequestAirdrop(ctx context.Context, account ed25519.PublicKey, lamports uint64, commitment Commitment) (Signature, error)
	SimulateTransaction(ctx context.Context, txn Transaction, commitment Commitment) (SimulationResult, error)
	SubmitTransaction(ctx context.Context, txn Transaction, opts SubmitOptions) (Signature, error)
}

type blockhashEntry struct {
	hash                 Blockhash
	lastValidBlockHeight uint64
	lastWrite            time.Time
}

type client struct {
	log     *logrus.Entry
	client  jsonrpc.RPCClient
	retrier retry.Retrier
	limiter rate.Limiter

	blockMu     sync.RWMutex
	blockhashes map[string]blockhashEntry
}

// Option configures a client.
type Option func(*client)

// WithRateLimiter throttles requests per RPC method.
func WithRateLimiter(limiter rate.Limiter) Option {
	return func(c *client) {
		c.limiter = limiter
	}
}

// WithRetrier overrides the retry policy for retriable node failures.
func WithRetrier(retrier retry.Retrier) Option {
	return func(c *client) {
		c.retrier = retrier
	}
}

// New returns a client using the specified endpoint.
func New(endpoint string, opts ...Option) Client {
	return NewWithRPCOptions(endpoint, &jsonrpc.RPCClientOpts{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}, opts...)
}

// NewWithRPCOptions returns a client configured with the specified RPC options.
func NewWithRPCOptions(endpoint string, rpcOpts *jsonrpc.RPCClientOpts, opts ...Option) Client {
	c := &client{
		log:    logrus.StandardLogger().WithField("type", "solana/client"),
		client: jsonrpc.NewClientWithOpts(endpoint, rpcOpts),
		retrier: retry.NewRetrier(
			retry.RetriableErrors(ErrRateLimited, ErrServiceUnavailable),
			retry.Limit(3),
			retry.Backoff(backoff.BinaryExponential(time.Second), 10*time.Second, 0.1),
		),
		limiter:     &rate.NoLimiter{},
		blockhashes: make(map[string]blockhashEntry),
	}

	for _, o := range opts {
		o(c)
	}

	return c
}

// call performs the request, honouring ctx. The node response is decoded into
// a local buffer first so an abandoned request never writes into out.
func (c *client) call(ctx context.Context, out interface{}, method string, params ...interface{}) error {
	tracer := metrics.TraceMethodCall(ctx, "solana", method)
	defer tracer.End()

	if err := c.limiter.Wait(ctx, method); err != nil {
		return err
	}

	_, err := c.retrier.Retry(ctx, func() error {
		var raw json.RawMessage
		err := c.do(ctx, func() error {
			// A single slice argument is sent as the params array as-is,
			// which keeps the node happy with lone config objects.
			if len(params) == 0 {
				return c.client.CallFor(&raw, method)
			}
			return c.client.CallFor(&raw, method, params)
		})
		if err != nil {
			return c.handleRpcError(method, err)
		}

		if out == nil || len(raw) == 0 {
			return nil
		}
		return sonic.ConfigStd.Unmarshal(raw, out)
	})

	tracer.OnError(err)
	return err
}

func (c *client) do(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *client) handleRpcError(method string, err error) error {
	switch typed := err.(type) {
	case *jsonrpc.RPCError:
		if typed.Code == http.StatusTooManyRequests {
			c.log.WithField("method", method).Warn("rate limited")
			return ErrRateLimited
		}
		if typed.Code >= http.StatusInternalServerError || typed.Code == rpcNodeUnhealthyCode {
			return errors.Wrap(ErrServiceUnavailable, typed.Message)
		}
	case *jsonrpc.HTTPError:
		if typed.Code == http.StatusTooManyRequests {
			c.log.WithField("method", method).Warn("rate limited")
			return ErrRateLimited
		}
		if typed.Code >= http.StatusInternalServerError {
			return errors.Wrap(ErrServiceUnavailable, typed.Error())
		}
	}

	return err
}

func (c *client) GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (lamports uint64, err error) {
	if err := c.call(ctx, &lamports, "getMinimumBalanceForRentExemption", dataSize); err != nil {
		return 0, &RPCError{Method: "getMinimumBalanceForRentExemption", Err: err}
	}

	return lamports, nil
}

func (c *client) GetSlot(ctx context.Context, commitment Commitment) (slot uint64, err error) {
	if err := c.call(ctx, &slot, "getSlot", commitment); err != nil {
		return 0, &RPCError{Method: "getSlot", Err: err}
	}

	return slot, nil
}

func (c *client) GetBlockHeight(ctx context.Context, commitment Commitment) (height uint64, err error) {
	if err := c.call(ctx, &height, "getBlockHeight", commitment); err != nil {
		return 0, &RPCError{Method: "getBlockHeight", Err: err}
	}

	return height, nil
}

func (c *client) GetBalance(ctx context.Context, account ed25519.PublicKey) (uint64, error) {
	var resp struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, &resp, "getBalance", base58.Encode(account)); err != nil {
		return 0, &RPCError{Method: "getBalance", Err: err}
	}

	return resp.Value, nil
}

// GetLatestBlockhash returns a recent blockhash along with the last block
// height at which transactions referencing it are accepted.
func (c *client) GetLatestBlockhash(ctx context.Context, commitment Commitment) (Blockhash, uint64, error) {
	// To avoid thrashing around a similar periodic interval, we randomize
	// when we refresh our block hash.
	window := time.Duration(float64(2*time.Second) * (0.8 + rand.Float64()))

	c.blockMu.RLock()
	cached, ok := c.blockhashes[commitment.Commitment]
	c.blockMu.RUnlock()

	if ok && time.Since(cached.lastWrite) < window {
		return cached.hash, cached.lastValidBlockHeight, nil
	}

	var resp struct {
		Value struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}
	if err := c.call(ctx, &resp, "getLatestBlockhash", commitment); err != nil {
		return Blockhash{}, 0, &RPCError{Method: "getLatestBlockhash", Err: err}
	}

	hashBytes, err := base58.Decode(resp.Value.Blockhash)
	if err != nil {
		return Blockhash{}, 0, errors.Wrap(err, "invalid base58 encoded hash in response")
	}
	if len(hashBytes) != len(Blockhash{}) {
		return Blockhash{}, 0, errors.Errorf("invalid blockhash length: %d", len(hashBytes))
	}

	var hash Blockhash
	copy(hash[:], hashBytes)

	c.blockMu.Lock()
	c.blockhashes[commitment.Commitment] = blockhashEntry{
		hash:                 hash,
		lastValidBlockHeight: resp.Value.LastValidBlockHeight,
		lastWrite:            time.Now(),
	}
	c.blockMu.Unlock()

	return hash, resp.Value.LastValidBlockHeight, nil
}

func (c *client) GetAccountInfo(ctx context.Context, account ed25519.PublicKey, commitment Commitment) (accountInfo AccountInfo, err error) {
	var resp struct {
		Context struct {
			Slot uint64 `json:"slot"`
		} `json:"context"`
		Value *struct {
			Lamports   uint64   `json:"lamports"`
			Owner      string   `json:"owner"`
			Data       []string `json:"data"`
			Executable bool     `json:"executable"`
		} `json:"value"`
	}

	rpcConfig := struct {
		Commitment string `json:"commitment"`
		Encoding   string `json:"encoding"`
	}{
		Commitment: commitment.Commitment,
		Encoding:   "base64",
	}

	if err := c.call(ctx, &resp, "getAccountInfo", base58.Encode(account), rpcConfig); err != nil {
		return accountInfo, &RPCError{Method: "getAccountInfo", Err: err}
	}

	if resp.Value == nil {
		return accountInfo, ErrNoAccountInfo
	}

	accountInfo.Owner, err = base58.Decode(resp.Value.Owner)
	if err != nil {
		return accountInfo, errors.Wrap(err, "invalid base58 encoded owner")
	}

	if len(resp.Value.Data) == 0 {
		return accountInfo, errors.New("missing account data in response")
	}
	accountInfo.Data, err = base64.StdEncoding.DecodeString(resp.Value.Data[0])
	if err != nil {
		return accountInfo, errors.Wrap(err, "invalid base64 encoded data")
	}

	accountInfo.Lamports = resp.Value.Lamports
	accountInfo.Executable = resp.Value.Executable
	accountInfo.Slot = resp.Context.Slot

	return accountInfo, nil
}

func (c *client) GetTransaction(ctx context.Context, sig Signature, commitment Commitment) (ConfirmedTransaction, error) {
	type rpcResponse struct {
		Slot        uint64           `json:"slot"`
		BlockTime   *int64           `json:"blockTime"`
		Transaction []string         `json:"transaction"` // [string,encoding]
		Meta        *TransactionMeta `json:"meta"`
	}

	rpcConfig := struct {
		Commitment string `json:"commitment"`
		Encoding   string `json:"encoding"`
	}{
		Commitment: commitment.Commitment,
		Encoding:   "base64",
	}

	var resp *rpcResponse
	if err := c.call(ctx, &resp, "getTransaction", sig.String(), rpcConfig); err != nil {
		return ConfirmedTransaction{}, &RPCError{Method: "getTransaction", Err: err}
	}

	if resp == nil {
		return ConfirmedTransaction{}, ErrSignatureNotFound
	}

	txn := ConfirmedTransaction{
		Slot: resp.Slot,
		Meta: resp.Meta,
	}
	if resp.BlockTime != nil {
		t := time.Unix(*resp.BlockTime, 0)
		txn.BlockTime = &t
	}

	if len(resp.Transaction) > 0 {
		rawTxn, err := base64.StdEncoding.DecodeString(resp.Transaction[0])
		if err != nil {
			return txn, errors.Wrap(err, "failed to decode transaction")
		}
		if err := txn.Transaction.Unmarshal(rawTxn); err != nil {
			return txn, errors.Wrap(err, "failed to unmarshal transaction")
		}
	}

	if resp.Meta != nil {
		var err error
		txn.Err, err = ParseTransactionError(resp.Meta.Err)
		if err != nil {
			return txn, errors.Wrap(err, "failed to parse transaction result")
		}
		if txn.Err != nil {
			txn.Err.Logs = resp.Meta.LogMessages
		}
	}

	return txn, nil
}

func (c *client) SimulateTransaction(ctx context.Context, txn Transaction, commitment Commitment) (SimulationResult, error) {
	var resp struct {
		Value struct {
			Err           interface{} `json:"err"`
			Logs          []string    `json:"logs"`
			UnitsConsumed uint64      `json:"unitsConsumed"`
		} `json:"value"`
	}

	rpcConfig := struct {
		Commitment string `json:"commitment"`
		Encoding   string `json:"encoding"`
		SigVerify  bool   `json:"sigVerify"`
	}{
		Commitment: commitment.Commitment,
		Encoding:   "base64",
		SigVerify:  true,
	}

	encoded := base64.StdEncoding.EncodeToString(txn.Marshal())
	if err := c.call(ctx, &resp, "simulateTransaction", encoded, rpcConfig); err != nil {
		return SimulationResult{}, &RPCError{Method: "simulateTransaction", Err: err}
	}

	result := SimulationResult{
		Logs:          resp.Value.Logs,
		UnitsConsumed: resp.Value.UnitsConsumed,
	}

	txErr, err := ParseTransactionError(resp.Value.Err)
	if err != nil {
		return result, errors.Wrap(err, "failed to parse simulation result")
	}
	if txErr != nil {
		txErr.Logs = resp.Value.Logs
		result.Err = txErr
	}

	return result, nil
}

// SubmitTransaction sends the signed transaction and returns the signature
// reported by the node. If the node rejects it during preflight, the returned
// error is a *TransactionError carrying the program logs.
func (c *client) SubmitTransaction(ctx context.Context, txn Transaction, opts SubmitOptions) (Signature, error) {
	sig := txn.Signature()

	preflight := opts.PreflightCommitment
	if preflight.Commitment == "" {
		preflight = CommitmentConfirmed
	}

	config := struct {
		Encoding            string `json:"encoding"`
		SkipPreflight       bool   `json:"skipPreflight"`
		PreflightCommitment string `json:"preflightCommitment"`
		MaxRetries          *uint  `json:"maxRetries,omitempty"`
	}{
		Encoding:            "base64",
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: preflight.Commitment,
		MaxRetries:          opts.MaxRetries,
	}

	var sigStr string
	err := c.call(ctx, &sigStr, "sendTransaction", base64.StdEncoding.EncodeToString(txn.Marshal()), config)
	if err == nil {
		returned, err := parseSignature(sigStr)
		if err != nil {
			return sig, &RPCError{Method: "sendTransaction", Err: err}
		}
		return returned, nil
	}

	jsonRPCErr, ok := err.(*jsonrpc.RPCError)
	if !ok {
		return sig, &RPCError{Method: "sendTransaction", Err: err}
	}

	txErr, parseErr := ParseRPCError(jsonRPCErr)
	if parseErr != nil {
		c.log.WithError(parseErr).Warn("failed to parse preflight error")
	}
	if txErr != nil {
		return sig, txErr
	}

	return sig, &RPCError{Method: "sendTransaction", Err: err}
}

func (c *client) RequestAirdrop(ctx context.Context, account ed25519.PublicKey, lamports uint64, commitment Commitment) (Signature, error) {
	var sigStr string
	if err := c.call(ctx, &sigStr, "requestAirdrop", base58.Encode(account), lamports, commitment); err != nil {
		return Signature{}, &RPCError{Method: "requestAirdrop", Err: err}
	}

	return parseSignature(sigStr)
}

func parseSignature(s string) (Signature, error) {
	sigBytes, err := base58.Decode(s)
	if err != nil {
		return Signature{}, errors.Wrap(err, "invalid signature in response")
	}
	if len(sigBytes) != ed25519.SignatureSize {
		return Signature{}, errors.Errorf("invalid signature length in response: %d", len(sigBytes))
	}

	var sig Signature
	copy(sig[:], sigBytes)
	return sig, nil
}

func (c *client) GetSignatureStatus(ctx context.Context, sig Signature) (*SignatureStatus, error) {
	statuses, err := c.GetSignatureStatuses(ctx, []Signature{sig})
	if err != nil {
		return nil, err
	}

	if len(statuses) == 0 || statuses[0] == nil {
		return nil, ErrSignatureNotFound
	}

	return statuses[0], nil
}

func (c *client) GetSignatureStatuses(ctx context.Context, sigs []Signature) ([]*SignatureStatus, error) {
	b58Sigs := make([]string, len(sigs))
	for i := range sigs {
		b58Sigs[i] = sigs[i].String()
	}

	req := struct {
		SearchTransactionHistory bool `json:"searchTransactionHistory"`
	}{
		SearchTransactionHistory: true,
	}

	type signatureStatus struct {
		Slot               uint64      `json:"slot"`
		Confirmations      *int        `json:"confirmations"`
		ConfirmationStatus string      `json:"confirmationStatus"`
		Err                interface{} `json:"err"`
	}

	var resp struct {
		Value []*signatureStatus `json:"value"`
	}
	if err := c.call(ctx, &resp, "getSignatureStatuses", b58Sigs, req); err != nil {
		return nil, &RPCError{Method: "getSignatureStatuses", Err: err}
	}

	statuses := make([]*SignatureStatus, len(sigs))
	for i, v := range resp.Value {
		if v == nil || i >= len(statuses) {
			continue
		}

		status := &SignatureStatus{
			Slot:               v.Slot,
			Confirmations:      v.Confirmations,
			ConfirmationStatus: v.ConfirmationStatus,
		}

		var err error
		status.ErrorResult, err = ParseTransactionError(v.Err)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse transaction result")
		}

		statuses[i] = status
	}

	return statuses, nil
}
