package solana

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ybbus/jsonrpc"

	"github.com/noema-protocol/registry-client/pkg/retry"
)

func TestSignatureStatus(t *testing.T) {
	zero, one := 0, 1

	testCases := []struct {
		s         SignatureStatus
		confirmed bool
		finalized bool
	}{
		{
			s: SignatureStatus{
				Slot:               10,
				ErrorResult:        nil,
				Confirmations:      &zero,
				ConfirmationStatus: "",
			},
		},
		{
			s: SignatureStatus{
				Slot:               10,
				ErrorResult:        nil,
				Confirmations:      &zero,
				ConfirmationStatus: "random",
			},
		},
		{
			s: SignatureStatus{
				Slot:               10,
				ErrorResult:        nil,
				Confirmations:      &zero,
				ConfirmationStatus: confirmationStatusProcessed,
			},
		},
		{
			s: SignatureStatus{
				Slot:               10,
				ErrorResult:        nil,
				Confirmations:      &one,
				ConfirmationStatus: "",
			},
			confirmed: true,
		},
		{
			s: SignatureStatus{
				Slot:               10,
				ErrorResult:        nil,
				Confirmations:      &zero,
				ConfirmationStatus: confirmationStatusConfirmed,
			},
			confirmed: true,
		},
		{
			s: SignatureStatus{
				Slot:               10,
				ErrorResult:        nil,
				Confirmations:      &zero,
				ConfirmationStatus: confirmationStatusFinalized,
			},
			confirmed: true,
			finalized: true,
		},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.confirmed, tc.s.Confirmed())
		assert.Equal(t, tc.finalized, tc.s.Finalized())
		assert.Equal(t, tc.confirmed, tc.s.Satisfies(CommitmentConfirmed))
		assert.Equal(t, tc.finalized, tc.s.Satisfies(CommitmentFinalized))
		assert.True(t, tc.s.Satisfies(CommitmentProcessed))
	}
}

type rpcHandler func(params []json.RawMessage) (interface{}, *jsonrpc.RPCError)

type testServer struct {
	*httptest.Server
	calls int32
}

func newTestServer(t *testing.T, handlers map[string]rpcHandler) *testServer {
	ts := &testServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&ts.calls, 1)

		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		handler, ok := handlers[req.Method]
		require.True(t, ok, "unexpected method %s", req.Method)

		result, rpcErr := handler(req.Params)

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": 0}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(ts.Close)

	return ts
}

func newTestClient(ts *testServer) Client {
	return New(ts.URL, WithRetrier(retry.NewRetrier(
		retry.RetriableErrors(ErrRateLimited, ErrServiceUnavailable),
		retry.Limit(3),
	)))
}

func TestClient_GetAccountInfo(t *testing.T) {
	owner, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	account, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	missing, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	ts := newTestServer(t, map[string]rpcHandler{
		"getAccountInfo": func(params []json.RawMessage) (interface{}, *jsonrpc.RPCError) {
			require.Len(t, params, 2)

			var address string
			require.NoError(t, json.Unmarshal(params[0], &address))

			var config map[string]string
			require.NoError(t, json.Unmarshal(params[1], &config))
			assert.Equal(t, "base64", config["encoding"])
			assert.Equal(t, "confirmed", config["commitment"])

			if address == base58.Encode(missing) {
				return map[string]interface{}{"context": map[string]interface{}{"slot": 7}, "value": nil}, nil
			}

			return map[string]interface{}{
				"context": map[string]interface{}{"slot": 42},
				"value": map[string]interface{}{
					"lamports":   1000,
					"owner":      base58.Encode(owner),
					"data":       []string{base64.StdEncoding.EncodeToString([]byte{1, 2, 3}), "base64"},
					"executable": false,
				},
			}, nil
		},
	})

	c := newTestClient(ts)

	info, err := c.GetAccountInfo(context.Background(), account, CommitmentConfirmed)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, info.Data)
	assert.EqualValues(t, owner, info.Owner)
	assert.EqualValues(t, 1000, info.Lamports)
	assert.EqualValues(t, 42, info.Slot)

	_, err = c.GetAccountInfo(context.Background(), missing, CommitmentConfirmed)
	assert.Equal(t, ErrNoAccountInfo, err)
}

func TestClient_GetLatestBlockhash(t *testing.T) {
	var expected Blockhash
	expected[0] = 7

	ts := newTestServer(t, map[string]rpcHandler{
		"getLatestBlockhash": func(params []json.RawMessage) (interface{}, *jsonrpc.RPCError) {
			require.Len(t, params, 1)
			return map[string]interface{}{
				"context": map[string]interface{}{"slot": 1},
				"value": map[string]interface{}{
					"blockhash":            expected.String(),
					"lastValidBlockHeight": 150,
				},
			}, nil
		},
	})

	c := newTestClient(ts)

	hash, height, err := c.GetLatestBlockhash(context.Background(), CommitmentFinalized)
	require.NoError(t, err)
	assert.Equal(t, expected, hash)
	assert.EqualValues(t, 150, height)

	// Served from cache
	hash, height, err = c.GetLatestBlockhash(context.Background(), CommitmentFinalized)
	require.NoError(t, err)
	assert.Equal(t, expected, hash)
	assert.EqualValues(t, 150, height)
	assert.EqualValues(t, 1, atomic.LoadInt32(&ts.calls))

	// Cached per commitment
	_, _, err = c.GetLatestBlockhash(context.Background(), CommitmentConfirmed)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&ts.calls))
}

func TestClient_SubmitTransaction(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	program, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	tx := NewTransaction(priv.Public().(ed25519.PublicKey), NewInstruction(program, []byte{1}))
	require.NoError(t, tx.Sign(priv))

	var reject, garble atomic.Bool
	ts := newTestServer(t, map[string]rpcHandler{
		"sendTransaction": func(params []json.RawMessage) (interface{}, *jsonrpc.RPCError) {
			require.Len(t, params, 2)

			var encoded string
			require.NoError(t, json.Unmarshal(params[0], &encoded))
			raw, err := base64.StdEncoding.DecodeString(encoded)
			require.NoError(t, err)

			var decoded Transaction
			require.NoError(t, decoded.Unmarshal(raw))
			assert.NoError(t, decoded.VerifySignatures())

			var config map[string]interface{}
			require.NoError(t, json.Unmarshal(params[1], &config))
			assert.Equal(t, "base64", config["encoding"])
			assert.Equal(t, false, config["skipPreflight"])
			assert.Equal(t, "confirmed", config["preflightCommitment"])

			if reject.Load() {
				return nil, &jsonrpc.RPCError{
					Code:    -32002,
					Message: "Transaction simulation failed: Error processing Instruction 0: custom program error: 0x1770",
					Data: map[string]interface{}{
						"err":  map[string]interface{}{"InstructionError": []interface{}{0, map[string]interface{}{"Custom": 6000}}},
						"logs": []string{"Program log: AnchorError occurred. Error Code: AgentIdTooLong. Error Number: 6000. Error Message: Agent ID too long."},
					},
				}
			}

			if garble.Load() {
				return "notasignature", nil
			}
			return decoded.Signature().String(), nil
		},
	})

	c := newTestClient(ts)

	sig, err := c.SubmitTransaction(context.Background(), tx, SubmitOptions{})
	require.NoError(t, err)
	assert.Equal(t, tx.Signature(), sig)

	garble.Store(true)
	_, err = c.SubmitTransaction(context.Background(), tx, SubmitOptions{})
	var rpcErr *RPCError
	assert.True(t, errors.As(err, &rpcErr))
	garble.Store(false)

	reject.Store(true)
	_, err = c.SubmitTransaction(context.Background(), tx, SubmitOptions{})
	require.Error(t, err)

	var txErr *TransactionError
	require.True(t, errors.As(err, &txErr))
	code, ok := txErr.CustomErrorCode()
	assert.True(t, ok)
	assert.EqualValues(t, 6000, code)
	require.Len(t, txErr.Logs, 1)
}

func TestClient_SimulateTransaction(t *testing.T) {
	ts := newTestServer(t, map[string]rpcHandler{
		"simulateTransaction": func(params []json.RawMessage) (interface{}, *jsonrpc.RPCError) {
			return map[string]interface{}{
				"context": map[string]interface{}{"slot": 1},
				"value": map[string]interface{}{
					"err":           map[string]interface{}{"InstructionError": []interface{}{1, map[string]interface{}{"Custom": 2006}}},
					"logs":          []string{"Program log: AnchorError caused by account: identity. Error Code: ConstraintSeeds."},
					"unitsConsumed": 1234,
				},
			}, nil
		},
	})

	c := newTestClient(ts)

	result, err := c.SimulateTransaction(context.Background(), Transaction{}, CommitmentProcessed)
	require.NoError(t, err)
	require.NotNil(t, result.Err)
	assert.EqualValues(t, 1234, result.UnitsConsumed)
	assert.Len(t, result.Logs, 1)
	assert.Equal(t, result.Logs, result.Err.Logs)

	code, ok := result.Err.CustomErrorCode()
	assert.True(t, ok)
	assert.EqualValues(t, 2006, code)
	assert.Equal(t, 1, result.Err.InstructionError().Index)
}

func TestClient_GetSignatureStatuses(t *testing.T) {
	var sigs [3]Signature
	sigs[0][0], sigs[1][0], sigs[2][0] = 1, 2, 3

	ts := newTestServer(t, map[string]rpcHandler{
		"getSignatureStatuses": func(params []json.RawMessage) (interface{}, *jsonrpc.RPCError) {
			var requested []string
			require.NoError(t, json.Unmarshal(params[0], &requested))
			assert.Equal(t, []string{sigs[0].String(), sigs[1].String(), sigs[2].String()}, requested)

			return map[string]interface{}{
				"context": map[string]interface{}{"slot": 100},
				"value": []interface{}{
					map[string]interface{}{"slot": 90, "confirmations": 3, "confirmationStatus": "confirmed", "err": nil},
					nil,
					map[string]interface{}{"slot": 91, "confirmations": nil, "confirmationStatus": "finalized", "err": map[string]interface{}{"InstructionError": []interface{}{0, map[string]interface{}{"Custom": 6004}}}},
				},
			}, nil
		},
	})

	c := newTestClient(ts)

	statuses, err := c.GetSignatureStatuses(context.Background(), sigs[:])
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	require.NotNil(t, statuses[0])
	assert.True(t, statuses[0].Confirmed())
	assert.False(t, statuses[0].Finalized())
	assert.Nil(t, statuses[0].ErrorResult)

	assert.Nil(t, statuses[1])

	require.NotNil(t, statuses[2])
	assert.True(t, statuses[2].Finalized())
	require.NotNil(t, statuses[2].ErrorResult)
	code, ok := statuses[2].ErrorResult.CustomErrorCode()
	assert.True(t, ok)
	assert.EqualValues(t, 6004, code)
}

func TestClient_GetTransaction(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	program, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	tx := NewTransaction(priv.Public().(ed25519.PublicKey), NewInstruction(program, []byte{1}))
	require.NoError(t, tx.Sign(priv))

	ts := newTestServer(t, map[string]rpcHandler{
		"getTransaction": func(params []json.RawMessage) (interface{}, *jsonrpc.RPCError) {
			var sig string
			require.NoError(t, json.Unmarshal(params[0], &sig))
			if sig != tx.Signature().String() {
				return nil, nil
			}

			return map[string]interface{}{
				"slot":        55,
				"blockTime":   1700000000,
				"transaction": []string{base64.StdEncoding.EncodeToString(tx.Marshal()), "base64"},
				"meta": map[string]interface{}{
					"err":         map[string]interface{}{"InstructionError": []interface{}{0, map[string]interface{}{"Custom": 6001}}},
					"fee":         5000,
					"logMessages": []string{"Program log: Instruction: RegisterAgent", "Program log: AnchorError occurred."},
				},
			}, nil
		},
	})

	c := newTestClient(ts)

	confirmed, err := c.GetTransaction(context.Background(), tx.Signature(), CommitmentConfirmed)
	require.NoError(t, err)
	assert.EqualValues(t, 55, confirmed.Slot)
	require.NotNil(t, confirmed.BlockTime)
	assert.EqualValues(t, 1700000000, confirmed.BlockTime.Unix())
	assert.Equal(t, tx.Signature(), confirmed.Transaction.Signature())
	require.NotNil(t, confirmed.Err)
	assert.Len(t, confirmed.Err.Logs, 2)

	_, err = c.GetTransaction(context.Background(), Signature{}, CommitmentConfirmed)
	assert.Equal(t, ErrSignatureNotFound, err)
}

func TestClient_RetriesServiceErrors(t *testing.T) {
	var attempts int32
	ts := newTestServer(t, map[string]rpcHandler{
		"getBlockHeight": func(params []json.RawMessage) (interface{}, *jsonrpc.RPCError) {
			if atomic.AddInt32(&attempts, 1) < 3 {
				return nil, &jsonrpc.RPCError{Code: -32005, Message: "Node is unhealthy"}
			}
			return 1234, nil
		},
		"getSlot": func(params []json.RawMessage) (interface{}, *jsonrpc.RPCError) {
			return nil, &jsonrpc.RPCError{Code: -32602, Message: "Invalid params"}
		},
	})

	c := newTestClient(ts)

	height, err := c.GetBlockHeight(context.Background(), CommitmentConfirmed)
	require.NoError(t, err)
	assert.EqualValues(t, 1234, height)
	assert.EqualValues(t, 3, atomic.LoadInt32(&attempts))

	_, err = c.GetSlot(context.Background(), CommitmentConfirmed)
	require.Error(t, err)

	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, "getSlot", rpcErr.Method)
	assert.EqualValues(t, 4, atomic.LoadInt32(&ts.calls))
}

func TestClient_ContextCancellation(t *testing.T) {
	release := make(chan struct{})
	ts := newTestServer(t, map[string]rpcHandler{
		"getBlockHeight": func(params []json.RawMessage) (interface{}, *jsonrpc.RPCError) {
			<-release
			return 1, nil
		},
	})
	t.Cleanup(func() { close(release) })

	c := newTestClient(ts)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.GetBlockHeight(ctx, CommitmentConfirmed)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestParseCommitment(t *testing.T) {
	for _, c := range []Commitment{CommitmentProcessed, CommitmentConfirmed, CommitmentFinalized} {
		parsed, err := ParseCommitment(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}

	_, err := ParseCommitment("recent")
	assert.Error(t, err)
}

func TestEnvironmentForCluster(t *testing.T) {
	env, err := EnvironmentForCluster("localnet")
	require.NoError(t, err)
	assert.Equal(t, EnvironmentLocal, env)

	env, err = EnvironmentForCluster("Devnet")
	require.NoError(t, err)
	assert.Equal(t, EnvironmentDev, env)

	_, err = EnvironmentForCluster("moonnet")
	assert.Error(t, err)
}
