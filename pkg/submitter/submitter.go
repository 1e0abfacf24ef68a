package submitter

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/noema-protocol/registry-client/pkg/metrics"
	"github.com/noema-protocol/registry-client/pkg/registry"
	"github.com/noema-protocol/registry-client/pkg/solana"
	"github.com/noema-protocol/registry-client/pkg/solana/anchor"
	compute_budget "github.com/noema-protocol/registry-client/pkg/solana/computebudget"
	"github.com/noema-protocol/registry-client/pkg/solana/memo"
)

const (
	metricsStructName = "submitter.Submitter"

	submissionCountMetricName   = "Submitter/submissions"
	confirmedCountMetricName    = "Submitter/confirmed"
	failedCountMetricName       = "Submitter/failed"
	timedOutCountMetricName     = "Submitter/timed_out"
	confirmLatencyMetricName    = "Submitter/confirmation_latency"
	simulationFailedMetricName  = "Submitter/simulation_failed"
	signatureMismatchMetricName = "Submitter/signature_mismatch"

	submissionEventName = "RegistrySubmission"
)

var (
	ErrNoInstructions = errors.New("no instructions")
	ErrInvalidPayer   = errors.New("invalid fee payer")
)

// Submitter drives Submissions through sign, simulate, send and confirm.
// It holds no per-submission state and is safe for concurrent use.
type Submitter struct {
	log    *logrus.Entry
	conf   *conf
	client solana.Client

	registry *registry.Registry
	cluster  registry.Cluster
}

type Option func(*Submitter)

// WithRegistry resolves custom program error codes of rejected transactions
// against the programs deployed on cluster.
func WithRegistry(r *registry.Registry, cluster registry.Cluster) Option {
	return func(s *Submitter) {
		s.registry = r
		s.cluster = cluster
	}
}

func New(client solana.Client, configProvider ConfigProvider, opts ...Option) *Submitter {
	s := &Submitter{
		log:    logrus.StandardLogger().WithField("type", "submitter"),
		conf:   configProvider(),
		client: client,
	}

	for _, o := range opts {
		o(s)
	}

	return s
}

// Build compiles the instructions into an unsigned transaction paid for by
// payer. Compute budget instructions are prepended, and a memo appended, when
// configured.
func (s *Submitter) Build(payer ed25519.PublicKey, instructions ...solana.Instruction) (*Submission, error) {
	if len(payer) != ed25519.PublicKeySize {
		return nil, ErrInvalidPayer
	}
	if len(instructions) == 0 {
		return nil, ErrNoInstructions
	}

	ctx := context.Background()

	limit := s.conf.computeUnitLimit.Get(ctx)
	if limit > math.MaxUint32 {
		return nil, errors.Errorf("compute unit limit %d exceeds %d", limit, uint64(math.MaxUint32))
	}

	id := uuid.New()

	all := append(compute_budget.Budget(uint32(limit), s.conf.computeUnitPrice.Get(ctx)), instructions...)
	if prefix := s.conf.memo.Get(ctx); prefix != "" {
		all = append(all, memo.Instruction(fmt.Sprintf("%s:%s", prefix, id)))
	}

	return &Submission{
		ID:           id,
		State:        StateBuilt,
		Payer:        payer,
		Instructions: all,
		Transaction:  solana.NewTransaction(payer, all...),
		CreatedAt:    time.Now(),
	}, nil
}

// Sign attaches a recent blockhash and collects signatures from the signers.
// Each signer receives the serialized transaction and must return it with
// the message unchanged. The submission is signed once every required
// signer has a valid signature. Signing may be repeated until the
// submission is sent, which refreshes the blockhash.
func (s *Submitter) Sign(ctx context.Context, sub *Submission, signers ...Signer) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Sign")
	defer tracer.End()

	log := s.submissionLog(sub, "Sign")

	switch sub.State {
	case StateBuilt, StateSigned, StateSimulated:
	default:
		return s.transitionError(sub)
	}

	blockhash, lastValid, err := s.client.GetLatestBlockhash(ctx, s.commitment(ctx))
	if err != nil {
		tracer.OnError(err)
		return errors.Wrap(err, "failed to get recent blockhash")
	}

	txn := solana.NewTransaction(sub.Payer, sub.Instructions...)
	txn.SetBlockhash(blockhash)

	message := txn.Message.Marshal()
	raw := txn.Marshal()

	for _, signer := range signers {
		signed, err := signer.SignTransaction(ctx, raw)
		if err != nil {
			log.WithError(err).WithField("signer", base58.Encode(signer.PublicKey())).Info("signer rejected transaction")
			return &Error{Kind: SignerRejected, State: sub.State, Err: err}
		}

		var decoded solana.Transaction
		if err := decoded.Unmarshal(signed); err != nil {
			return &Error{Kind: SignerRejected, State: sub.State, Err: errors.Wrap(err, "signer returned an invalid transaction")}
		}
		if !bytes.Equal(decoded.Message.Marshal(), message) {
			return &Error{Kind: SignerRejected, State: sub.State, Err: errors.New("signer altered the transaction message")}
		}

		raw = signed
		txn = decoded
	}

	if err := txn.VerifySignatures(); err != nil {
		return &Error{Kind: SignerRejected, State: sub.State, Err: err}
	}

	sub.Transaction = txn
	sub.Blockhash = blockhash
	sub.LastValidBlockHeight = lastValid
	sub.Signature = txn.Signature()
	sub.State = StateSigned

	log.WithFields(logrus.Fields{
		"signature":               sub.SignatureString(),
		"last_valid_block_height": lastValid,
	}).Debug("transaction signed")

	return nil
}

// Simulate dry-runs the signed transaction. A failed simulation fails the
// submission with a *SimulationError carrying the node's logs.
func (s *Submitter) Simulate(ctx context.Context, sub *Submission) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Simulate")
	defer tracer.End()

	log := s.submissionLog(sub, "Simulate")

	switch sub.State {
	case StateSigned, StateSimulated:
	default:
		return s.transitionError(sub)
	}

	result, err := s.client.SimulateTransaction(ctx, sub.Transaction, s.commitment(ctx))
	if err != nil {
		tracer.OnError(err)
		return err
	}

	sub.Logs = result.Logs
	sub.UnitsConsumed = result.UnitsConsumed

	if result.Err != nil {
		simErr := &SimulationError{
			Err:  result.Err,
			Logs: result.Logs,
		}
		if code, ok := result.Err.CustomErrorCode(); ok {
			simErr.ProgramError = s.resolveError(sub, result.Err, code)
		}
		if logErr, ok := anchor.ParseLogError(result.Logs); ok {
			simErr.AnchorError = logErr
		}

		log.WithError(simErr).WithField("logs", result.Logs).Info("simulation failed")
		metrics.RecordCount(ctx, simulationFailedMetricName, 1)
		tracer.OnError(simErr)
		return sub.fail(simErr)
	}

	sub.State = StateSimulated
	log.WithField("units_consumed", result.UnitsConsumed).Debug("simulation succeeded")
	return nil
}

// Send submits the signed transaction. RPC failures leave the submission
// unchanged so it may be sent again; rejections fail it.
func (s *Submitter) Send(ctx context.Context, sub *Submission) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Send")
	defer tracer.End()

	log := s.submissionLog(sub, "Send")

	switch sub.State {
	case StateSigned, StateSimulated:
	default:
		return s.transitionError(sub)
	}

	commitment := s.commitment(ctx)

	expired, err := s.expired(ctx, sub, commitment)
	if err != nil {
		tracer.OnError(err)
		return err
	}
	if expired {
		log.Info("blockhash expired before send")
		s.recordTerminal(ctx, sub, StateFailed)
		return sub.fail(&Error{Kind: Expired, State: sub.State})
	}

	returned, err := s.client.SubmitTransaction(ctx, sub.Transaction, solana.SubmitOptions{
		SkipPreflight:       sub.State == StateSimulated,
		PreflightCommitment: commitment,
	})
	if err != nil {
		tracer.OnError(err)

		var txErr *solana.TransactionError
		if errors.As(err, &txErr) {
			rejection := s.rejection(sub, txErr, txErr.Logs)
			sub.Logs = txErr.Logs

			log.WithError(rejection).WithField("logs", txErr.Logs).Info("transaction rejected in preflight")
			s.recordTerminal(ctx, sub, StateFailed)
			return sub.fail(rejection)
		}

		log.WithError(err).Warn("failure submitting transaction")
		return err
	}

	sub.State = StateSent
	sub.SentAt = time.Now()
	sub.SentSignature = returned
	metrics.RecordCount(ctx, submissionCountMetricName, 1)

	if returned != sub.Signature {
		log.WithField("returned_signature", returned.String()).Warn("node returned a different signature than the signed transaction")
		metrics.RecordCount(ctx, signatureMismatchMetricName, 1)
	}

	log.Debug("transaction sent")
	return nil
}

// Confirm watches the sent transaction until it reaches the configured
// commitment, fails on chain, expires or the confirmation timeout elapses.
// Cancelling ctx stops watching and leaves the submission sent.
func (s *Submitter) Confirm(ctx context.Context, sub *Submission) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Confirm")
	defer tracer.End()

	log := s.submissionLog(sub, "Confirm")

	switch sub.State {
	case StateSent:
	case StateConfirmed:
		return nil
	default:
		return s.transitionError(sub)
	}

	commitment := s.commitment(ctx)

	timeout := time.NewTimer(positive(s.conf.confirmationTimeout.Get(ctx), defaultConfirmationTimeout))
	defer timeout.Stop()

	ticker := time.NewTicker(positive(s.conf.pollInterval.Get(ctx), defaultPollInterval))
	defer ticker.Stop()

	for {
		done, err := s.poll(ctx, sub, commitment)
		if done {
			if err != nil {
				tracer.OnError(err)
			}
			return err
		}
		if err != nil {
			log.WithError(err).Debug("failure polling signature status")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout.C:
			log.Info("timed out waiting for confirmation")
			s.recordTerminal(ctx, sub, StateTimedOut)

			sub.State = StateTimedOut
			sub.Err = &Error{Kind: TimedOut, State: StateSent}
			return sub.Err
		case <-ticker.C:
		}
	}
}

// Submit runs the full pipeline: sign, simulate when enabled, send and
// confirm. The signature is returned whenever the transaction was signed.
func (s *Submitter) Submit(ctx context.Context, sub *Submission, signers ...Signer) (solana.Signature, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Submit")
	defer tracer.End()

	err := s.submit(ctx, sub, signers...)
	if err != nil {
		tracer.OnError(err)
	}
	return sub.Signature, err
}

func (s *Submitter) submit(ctx context.Context, sub *Submission, signers ...Signer) error {
	if err := s.Sign(ctx, sub, signers...); err != nil {
		return err
	}

	if s.conf.simulateBeforeSend.Get(ctx) {
		if err := s.Simulate(ctx, sub); err != nil {
			return err
		}
	}

	if err := s.Send(ctx, sub); err != nil {
		return err
	}

	return s.Confirm(ctx, sub)
}

// poll checks the signature status once. done is set when the submission
// reached a terminal state or polling cannot continue.
func (s *Submitter) poll(ctx context.Context, sub *Submission, commitment solana.Commitment) (done bool, err error) {
	log := s.submissionLog(sub, "Confirm")

	status, err := s.client.GetSignatureStatus(ctx, sub.Signature)
	if errors.Is(err, solana.ErrSignatureNotFound) {
		expired, err := s.expired(ctx, sub, commitment)
		if err != nil {
			return false, err
		}
		if !expired {
			return false, nil
		}

		log.Info("blockhash expired before the transaction landed")
		s.recordTerminal(ctx, sub, StateFailed)
		return true, sub.fail(&Error{Kind: Expired, State: StateSent})
	} else if err != nil {
		return false, err
	}

	if status.ErrorResult != nil {
		logs := s.transactionLogs(ctx, sub, status.ErrorResult, commitment)
		rejection := s.rejection(sub, status.ErrorResult, logs)
		sub.Logs = logs

		log.WithError(rejection).WithField("logs", logs).Info("transaction failed on chain")
		s.recordTerminal(ctx, sub, StateFailed)
		return true, sub.fail(rejection)
	}

	if !status.Satisfies(commitment) {
		return false, nil
	}

	sub.State = StateConfirmed
	sub.ConfirmedAt = time.Now()

	s.recordTerminal(ctx, sub, StateConfirmed)
	metrics.RecordDuration(ctx, confirmLatencyMetricName, sub.ConfirmedAt.Sub(sub.SentAt))

	log.WithField("slot", status.Slot).Debug("transaction confirmed")
	return true, nil
}

// transactionLogs returns the program logs of a failed transaction, using
// logs reported with the error when available.
func (s *Submitter) transactionLogs(ctx context.Context, sub *Submission, txErr *solana.TransactionError, commitment solana.Commitment) []string {
	if len(txErr.Logs) > 0 {
		return txErr.Logs
	}

	confirmed, err := s.client.GetTransaction(ctx, sub.Signature, commitment)
	if err != nil {
		s.submissionLog(sub, "Confirm").WithError(err).Debug("failure fetching transaction logs")
		return nil
	}

	if confirmed.Meta != nil && len(confirmed.Meta.LogMessages) > 0 {
		return confirmed.Meta.LogMessages
	}
	if confirmed.Err != nil {
		return confirmed.Err.Logs
	}
	return nil
}

func (s *Submitter) expired(ctx context.Context, sub *Submission, commitment solana.Commitment) (bool, error) {
	height, err := s.client.GetBlockHeight(ctx, commitment)
	if err != nil {
		return false, errors.Wrap(err, "failed to get block height")
	}
	return height > sub.LastValidBlockHeight, nil
}

func (s *Submitter) rejection(sub *Submission, txErr *solana.TransactionError, logs []string) *OnChainRejection {
	r := &OnChainRejection{
		Signature:        sub.Signature,
		InstructionIndex: -1,
		Logs:             logs,
		Err:              txErr,
	}

	if ixErr := txErr.InstructionError(); ixErr != nil {
		r.InstructionIndex = ixErr.Index
	}

	if code, ok := txErr.CustomErrorCode(); ok {
		r.CustomCode = code
		r.HasCustomCode = true
		r.ProgramError = s.resolveError(sub, txErr, code)
	}

	if logErr, ok := anchor.ParseLogError(logs); ok {
		r.AnchorError = logErr
	}

	return r
}

// resolveError names code using the program of the failing instruction.
func (s *Submitter) resolveError(sub *Submission, txErr *solana.TransactionError, code uint32) *registry.ProgramError {
	if s.registry == nil {
		return nil
	}

	ixErr := txErr.InstructionError()
	if ixErr == nil || ixErr.Index < 0 || ixErr.Index >= len(sub.Instructions) {
		return nil
	}

	programErr, ok := s.registry.ResolveError(s.cluster, sub.Instructions[ixErr.Index].Program, code)
	if !ok {
		return nil
	}
	return &programErr
}

func (s *Submitter) transitionError(sub *Submission) error {
	if sub.State == StateConfirmed {
		return &Error{Kind: AlreadyFinalized, State: sub.State}
	}
	return &Error{Kind: InvalidTransition, State: sub.State}
}

func (s *Submitter) commitment(ctx context.Context) solana.Commitment {
	commitment, err := solana.ParseCommitment(s.conf.commitment.Get(ctx))
	if err != nil {
		s.log.WithError(err).Warn("invalid commitment configured, using confirmed")
		return solana.CommitmentConfirmed
	}
	return commitment
}

func (s *Submitter) recordTerminal(ctx context.Context, sub *Submission, state State) {
	switch state {
	case StateConfirmed:
		metrics.RecordCount(ctx, confirmedCountMetricName, 1)
	case StateFailed:
		metrics.RecordCount(ctx, failedCountMetricName, 1)
	case StateTimedOut:
		metrics.RecordCount(ctx, timedOutCountMetricName, 1)
	}

	metrics.RecordEvent(ctx, submissionEventName, map[string]interface{}{
		"id":           sub.ID.String(),
		"state":        state.String(),
		"signature":    base58.Encode(sub.Signature[:]),
		"instructions": len(sub.Instructions),
	})
}

func (s *Submitter) submissionLog(sub *Submission, method string) *logrus.Entry {
	return s.log.WithFields(logrus.Fields{
		"method":     method,
		"submission": sub.ID.String(),
		"signature":  sub.SignatureString(),
		"state":      sub.State.String(),
	})
}
