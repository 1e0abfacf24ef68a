// Package solanatest provides an in-memory solana.Client for tests.
package solanatest

import (
	"context"
	"crypto/ed25519"
	"sync"

	"github.com/mr-tron/base58"

	"github.com/noema-protocol/registry-client/pkg/solana"
)

var _ solana.Client = (*Client)(nil)

// Client is an in-memory node. Submitted transactions are recorded and, by
// default, confirmed immediately. Hooks let tests execute program effects or
// reject transactions.
type Client struct {
	mu sync.Mutex

	accounts     map[string]solana.AccountInfo
	statuses     map[solana.Signature]*solana.SignatureStatus
	transactions map[solana.Signature]solana.ConfirmedTransaction
	errs         map[string]error
	calls        map[string]int
	submitted    []solana.Transaction

	blockhash            solana.Blockhash
	blockHeight          uint64
	lastValidBlockHeight uint64

	// AutoConfirm finalizes every accepted transaction as soon as it is
	// submitted.
	AutoConfirm bool

	// SimulateFunc, when set, produces simulation results.
	SimulateFunc func(txn solana.Transaction) solana.SimulationResult

	// SubmitFunc, when set, runs against every submitted transaction before
	// it is accepted. A *solana.TransactionError is reported as a preflight
	// rejection.
	SubmitFunc func(c *Client, txn solana.Transaction) error

	// ReportedSignature, when set, is returned from SubmitTransaction in
	// place of the transaction's own signature.
	ReportedSignature *solana.Signature
}

func NewClient() *Client {
	c := &Client{
		accounts:             make(map[string]solana.AccountInfo),
		statuses:             make(map[solana.Signature]*solana.SignatureStatus),
		transactions:         make(map[solana.Signature]solana.ConfirmedTransaction),
		errs:                 make(map[string]error),
		calls:                make(map[string]int),
		blockHeight:          100,
		lastValidBlockHeight: 250,
		AutoConfirm:          true,
	}
	c.blockhash[0] = 1
	return c
}

// SetAccount stores account data owned by owner.
func (c *Client) SetAccount(address, owner ed25519.PublicKey, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.accounts[base58.Encode(address)] = solana.AccountInfo{
		Data:     data,
		Owner:    owner,
		Lamports: 1,
	}
}

// SetStatus overrides the status reported for a signature. A nil status
// makes the signature unknown.
func (c *Client) SetStatus(sig solana.Signature, status *solana.SignatureStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if status == nil {
		delete(c.statuses, sig)
		return
	}
	c.statuses[sig] = status
}

// SetTransaction stores the confirmed transaction returned by GetTransaction.
func (c *Client) SetTransaction(sig solana.Signature, txn solana.ConfirmedTransaction) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.transactions[sig] = txn
}

// SetBlockHeight moves the chain to height.
func (c *Client) SetBlockHeight(height uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.blockHeight = height
}

// SetLastValidBlockHeight sets the expiry reported with the next blockhash.
func (c *Client) SetLastValidBlockHeight(height uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastValidBlockHeight = height
}

// InduceError makes every call to method fail with err until cleared with a
// nil err.
func (c *Client) InduceError(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		delete(c.errs, method)
		return
	}
	c.errs[method] = err
}

// Calls returns the number of calls made to method.
func (c *Client) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.calls[method]
}

// Submitted returns the transactions accepted so far.
func (c *Client) Submitted() []solana.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]solana.Transaction(nil), c.submitted...)
}

// Finalized is a finalized signature status.
func Finalized() *solana.SignatureStatus {
	return &solana.SignatureStatus{Slot: 1, ConfirmationStatus: "finalized"}
}

// Processed is a processed signature status with no confirmations.
func Processed() *solana.SignatureStatus {
	zero := 0
	return &solana.SignatureStatus{Slot: 1, Confirmations: &zero, ConfirmationStatus: "processed"}
}

func (c *Client) enter(method string) error {
	c.calls[method]++
	return c.errs[method]
}

func (c *Client) GetAccountInfo(ctx context.Context, account ed25519.PublicKey, _ solana.Commitment) (solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.enter("getAccountInfo"); err != nil {
		return solana.AccountInfo{}, err
	}

	info, ok := c.accounts[base58.Encode(account)]
	if !ok {
		return solana.AccountInfo{}, solana.ErrNoAccountInfo
	}
	return info, nil
}

func (c *Client) GetBalance(ctx context.Context, account ed25519.PublicKey) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.enter("getBalance"); err != nil {
		return 0, err
	}
	return c.accounts[base58.Encode(account)].Lamports, nil
}

func (c *Client) GetBlockHeight(ctx context.Context, _ solana.Commitment) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.enter("getBlockHeight"); err != nil {
		return 0, err
	}
	return c.blockHeight, nil
}

func (c *Client) GetLatestBlockhash(ctx context.Context, _ solana.Commitment) (solana.Blockhash, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.enter("getLatestBlockhash"); err != nil {
		return solana.Blockhash{}, 0, err
	}
	return c.blockhash, c.lastValidBlockHeight, nil
}

func (c *Client) GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.enter("getMinimumBalanceForRentExemption"); err != nil {
		return 0, err
	}

	// Rent for the account plus its 128 byte header at the default rate
	return (size + 128) * 6960, nil
}

func (c *Client) GetSignatureStatus(ctx context.Context, sig solana.Signature) (*solana.SignatureStatus, error) {
	statuses, err := c.GetSignatureStatuses(ctx, []solana.Signature{sig})
	if err != nil {
		return nil, err
	}
	if statuses[0] == nil {
		return nil, solana.ErrSignatureNotFound
	}
	return statuses[0], nil
}

func (c *Client) GetSignatureStatuses(ctx context.Context, sigs []solana.Signature) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.enter("getSignatureStatuses"); err != nil {
		return nil, err
	}

	statuses := make([]*solana.SignatureStatus, len(sigs))
	for i, sig := range sigs {
		if s, ok := c.statuses[sig]; ok {
			copied := *s
			statuses[i] = &copied
		}
	}
	return statuses, nil
}

func (c *Client) GetSlot(ctx context.Context, _ solana.Commitment) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.enter("getSlot"); err != nil {
		return 0, err
	}
	return c.blockHeight, nil
}

func (c *Client) GetTransaction(ctx context.Context, sig solana.Signature, _ solana.Commitment) (solana.ConfirmedTransaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.enter("getTransaction"); err != nil {
		return solana.ConfirmedTransaction{}, err
	}

	txn, ok := c.transactions[sig]
	if !ok {
		return solana.ConfirmedTransaction{}, solana.ErrSignatureNotFound
	}
	return txn, nil
}

func (c *Client) RequestAirdrop(ctx context.Context, account ed25519.PublicKey, lamports uint64, _ solana.Commitment) (solana.Signature, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.enter("requestAirdrop"); err != nil {
		return solana.Signature{}, err
	}

	key := base58.Encode(account)
	info := c.accounts[key]
	info.Lamports += lamports
	c.accounts[key] = info

	var sig solana.Signature
	copy(sig[:], account)
	c.statuses[sig] = Finalized()
	return sig, nil
}

func (c *Client) SimulateTransaction(ctx context.Context, txn solana.Transaction, _ solana.Commitment) (solana.SimulationResult, error) {
	c.mu.Lock()
	if err := c.enter("simulateTransaction"); err != nil {
		c.mu.Unlock()
		return solana.SimulationResult{}, err
	}
	simulate := c.SimulateFunc
	c.mu.Unlock()

	if simulate == nil {
		return solana.SimulationResult{Logs: []string{"Program log: simulated"}}, nil
	}
	return simulate(txn), nil
}

func (c *Client) SubmitTransaction(ctx context.Context, txn solana.Transaction, _ solana.SubmitOptions) (solana.Signature, error) {
	sig := txn.Signature()

	c.mu.Lock()
	if err := c.enter("sendTransaction"); err != nil {
		c.mu.Unlock()
		return sig, err
	}
	submit := c.SubmitFunc
	c.mu.Unlock()

	if submit != nil {
		if err := submit(c, txn); err != nil {
			return sig, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.submitted = append(c.submitted, txn)
	if c.AutoConfirm {
		c.statuses[sig] = Finalized()
	}
	if c.ReportedSignature != nil {
		return *c.ReportedSignature, nil
	}
	return sig, nil
}
