package reader

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/noema-protocol/registry-client/pkg/metrics"
	"github.com/noema-protocol/registry-client/pkg/registry"
	"github.com/noema-protocol/registry-client/pkg/solana"
	"github.com/noema-protocol/registry-client/pkg/solana/anchor"
)

const (
	metricsStructName = "reader.Reader"

	readCountMetricName    = "Reader/reads"
	missingCountMetricName = "Reader/missing"
)

// Reader fetches and decodes program accounts.
type Reader struct {
	log    *logrus.Entry
	conf   *conf
	client solana.Client

	// Concurrent reads of the same account share one RPC call
	inflight singleflight.Group
}

func New(client solana.Client, configProvider ConfigProvider) *Reader {
	return &Reader{
		log:    logrus.StandardLogger().WithField("type", "reader"),
		conf:   configProvider(),
		client: client,
	}
}

type readOptions struct {
	owner ed25519.PublicKey
}

type ReadOption func(*readOptions)

// WithOwner requires the account to be owned by program.
func WithOwner(program ed25519.PublicKey) ReadOption {
	return func(o *readOptions) {
		o.owner = program
	}
}

type fetchResult struct {
	info   solana.AccountInfo
	exists bool
}

// Read fetches the account at address and decodes it against layout. A nil
// record and nil error are returned when the account does not exist.
func (r *Reader) Read(ctx context.Context, layout *registry.AccountLayout, address ed25519.PublicKey, opts ...ReadOption) (*Record, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Read")
	defer tracer.End()

	record, err := r.read(ctx, layout, address, opts...)
	if err != nil {
		tracer.OnError(err)
	}
	return record, err
}

func (r *Reader) read(ctx context.Context, layout *registry.AccountLayout, address ed25519.PublicKey, opts ...ReadOption) (*Record, error) {
	var options readOptions
	for _, o := range opts {
		o(&options)
	}

	log := r.log.WithFields(logrus.Fields{
		"method":  "Read",
		"layout":  layout.Name,
		"address": base58.Encode(address),
	})

	if len(address) != ed25519.PublicKeySize {
		return nil, errors.Errorf("invalid account address length: %d", len(address))
	}

	commitment, err := solana.ParseCommitment(r.conf.commitment.Get(ctx))
	if err != nil {
		log.WithError(err).Warn("invalid commitment configured, using confirmed")
		commitment = solana.CommitmentConfirmed
	}

	timeout := r.conf.timeout.Get(ctx)
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	key := fmt.Sprintf("%s:%s", base58.Encode(address), commitment)
	ch := r.inflight.DoChan(key, func() (interface{}, error) {
		// The call is shared, so it outlives any single caller's context
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		info, err := r.client.GetAccountInfo(fetchCtx, address, commitment)
		if errors.Is(err, solana.ErrNoAccountInfo) {
			return fetchResult{}, nil
		} else if err != nil {
			return nil, err
		}
		return fetchResult{info: info, exists: true}, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		log.WithError(res.Err).Warn("failure fetching account")
		return nil, errors.Wrap(res.Err, "failed to get account info")
	}

	metrics.RecordCount(ctx, readCountMetricName, 1)

	fetched := res.Val.(fetchResult)
	if !fetched.exists {
		metrics.RecordCount(ctx, missingCountMetricName, 1)
		log.Trace("account does not exist")
		return nil, nil
	}

	if len(options.owner) > 0 && r.conf.verifyOwner.Get(ctx) && !bytes.Equal(fetched.info.Owner, options.owner) {
		return nil, &anchor.DecodeError{
			Kind:   anchor.UnexpectedLayout,
			Layout: layout.Name,
			Reason: fmt.Sprintf("account is owned by %s, expected %s", base58.Encode(fetched.info.Owner), base58.Encode(options.owner)),
		}
	}

	record, err := Decode(layout, address, fetched.info.Data)
	if err != nil {
		log.WithError(err).Info("account does not match layout")
		return nil, err
	}

	record.Owner = fetched.info.Owner
	record.Lamports = fetched.info.Lamports
	record.Slot = fetched.info.Slot
	return record, nil
}

// ReadMany reads the accounts concurrently. Records are returned in address
// order, with nil entries for accounts that do not exist. The first failure
// cancels the remaining reads.
func (r *Reader) ReadMany(ctx context.Context, layout *registry.AccountLayout, addresses []ed25519.PublicKey, opts ...ReadOption) ([]*Record, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "ReadMany")
	defer tracer.End()

	records := make([]*Record, len(addresses))

	limit := int(r.conf.maxConcurrency.Get(ctx))
	if limit < 1 {
		limit = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, address := range addresses {
		i, address := i, address
		g.Go(func() error {
			record, err := r.read(ctx, layout, address, opts...)
			if err != nil {
				return errors.Wrapf(err, "account %d", i)
			}
			records[i] = record
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		tracer.OnError(err)
		return nil, err
	}
	return records, nil
}
