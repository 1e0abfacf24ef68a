// Package agentregistry is the caller-facing client for the agent registry
// programs. It resolves program tables, derives accounts, submits
// transactions and decodes account state.
package agentregistry

import (
	"context"
	"crypto/ed25519"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/noema-protocol/registry-client/pkg/instruction"
	"github.com/noema-protocol/registry-client/pkg/metrics"
	"github.com/noema-protocol/registry-client/pkg/reader"
	"github.com/noema-protocol/registry-client/pkg/registry"
	"github.com/noema-protocol/registry-client/pkg/registry/programs"
	"github.com/noema-protocol/registry-client/pkg/solana"
	"github.com/noema-protocol/registry-client/pkg/solana/pda"
	"github.com/noema-protocol/registry-client/pkg/submitter"
)

const (
	metricsStructName = "agentregistry.Client"
)

var (
	ErrNoSigner = errors.New("at least one signer is required")
)

// Client submits instructions to, and reads accounts from, the registry
// programs deployed on one cluster.
type Client struct {
	log      *logrus.Entry
	cluster  registry.Cluster
	registry *registry.Registry

	resolver  *instruction.Resolver
	submitter *submitter.Submitter
	reader    *reader.Reader
}

type options struct {
	registry        *registry.Registry
	deriver         pda.Deriver
	submitterConfig submitter.ConfigProvider
	readerConfig    reader.ConfigProvider
}

type Option func(*options)

// WithRegistry replaces the default program registry.
func WithRegistry(r *registry.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithDeriver replaces the default caching address deriver.
func WithDeriver(d pda.Deriver) Option {
	return func(o *options) {
		o.deriver = d
	}
}

func WithSubmitterConfig(configProvider submitter.ConfigProvider) Option {
	return func(o *options) {
		o.submitterConfig = configProvider
	}
}

func WithReaderConfig(configProvider reader.ConfigProvider) Option {
	return func(o *options) {
		o.readerConfig = configProvider
	}
}

func New(rpc solana.Client, configProvider ConfigProvider, opts ...Option) (*Client, error) {
	o := &options{
		submitterConfig: submitter.WithEnvConfigs(),
		readerConfig:    reader.WithEnvConfigs(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.registry == nil {
		o.registry = programs.Default()
	}
	if o.deriver == nil {
		o.deriver = pda.NewDeriver(pda.DefaultCacheBudget)
	}

	conf := configProvider()
	cluster, err := registry.ParseCluster(conf.cluster.Get(context.Background()))
	if err != nil {
		return nil, errors.Wrap(err, "invalid cluster")
	}

	return &Client{
		log:       logrus.StandardLogger().WithFields(logrus.Fields{"type": "agentregistry", "cluster": cluster}),
		cluster:   cluster,
		registry:  o.registry,
		resolver:  instruction.NewResolver(o.deriver),
		submitter: submitter.New(rpc, o.submitterConfig, submitter.WithRegistry(o.registry, cluster)),
		reader:    reader.New(rpc, o.readerConfig),
	}, nil
}

func (c *Client) Cluster() registry.Cluster {
	return c.cluster
}

func (c *Client) Registry() *registry.Registry {
	return c.registry
}

// Submitter exposes the underlying submitter, for callers that drive the
// transaction lifecycle step by step.
func (c *Client) Submitter() *submitter.Submitter {
	return c.submitter
}

func (c *Client) Reader() *reader.Reader {
	return c.reader
}

// Program returns the program table for variant along with its address on
// the client's cluster.
func (c *Client) Program(variant registry.Variant) (*registry.Program, ed25519.PublicKey, error) {
	program, err := c.registry.Program(variant)
	if err != nil {
		return nil, nil, err
	}

	programID, err := program.ProgramID(c.cluster)
	if err != nil {
		return nil, nil, err
	}
	return program, programID, nil
}

// Address derives the named seed template of a program.
func (c *Client) Address(variant registry.Variant, template string, params instruction.Params) (pda.Address, error) {
	program, programID, err := c.Program(variant)
	if err != nil {
		return pda.Address{}, err
	}
	return c.resolver.Address(programID, program, template, params)
}

// Instruction builds the named instruction without submitting it.
func (c *Client) Instruction(variant registry.Variant, name string, values []interface{}, params instruction.Params) (solana.Instruction, error) {
	program, programID, err := c.Program(variant)
	if err != nil {
		return solana.Instruction{}, err
	}
	return c.resolver.Instruction(programID, program, name, values, params)
}

// Execute builds the named instruction, then signs, submits and confirms it
// in a transaction paid for by the first signer.
func (c *Client) Execute(ctx context.Context, variant registry.Variant, name string, values []interface{}, params instruction.Params, signers ...submitter.Signer) (solana.Signature, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Execute")
	tracer.AddAttribute("program", string(variant))
	tracer.AddAttribute("instruction", name)
	defer tracer.End()

	sig, err := c.execute(ctx, variant, name, values, params, signers...)
	if err != nil {
		tracer.OnError(err)
	}
	return sig, err
}

func (c *Client) execute(ctx context.Context, variant registry.Variant, name string, values []interface{}, params instruction.Params, signers ...submitter.Signer) (solana.Signature, error) {
	if len(signers) == 0 {
		return solana.Signature{}, ErrNoSigner
	}

	log := c.log.WithFields(logrus.Fields{
		"method":      "Execute",
		"program":     variant,
		"instruction": name,
	})

	ix, err := c.Instruction(variant, name, values, params)
	if err != nil {
		return solana.Signature{}, err
	}

	sub, err := c.submitter.Build(signers[0].PublicKey(), ix)
	if err != nil {
		return solana.Signature{}, err
	}

	sig, err := c.submitter.Submit(ctx, sub, signers...)
	if err != nil {
		log.WithError(err).WithField("state", sub.State).Info("instruction not confirmed")
		return sig, err
	}

	log.WithField("signature", sub.SignatureString()).Debug("instruction confirmed")
	return sig, nil
}

// read decodes the account at a derived address. A nil record is returned
// when the account does not exist.
func (c *Client) read(ctx context.Context, variant registry.Variant, layoutName, template string, params instruction.Params) (*reader.Record, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Read")
	tracer.AddAttribute("layout", layoutName)
	defer tracer.End()

	program, programID, err := c.Program(variant)
	if err != nil {
		tracer.OnError(err)
		return nil, err
	}

	layout, err := program.Layout(layoutName)
	if err != nil {
		tracer.OnError(err)
		return nil, err
	}

	address, err := c.resolver.Address(programID, program, template, params)
	if err != nil {
		tracer.OnError(err)
		return nil, err
	}

	record, err := c.reader.Read(ctx, layout, address.PublicKey, reader.WithOwner(programID))
	if err != nil {
		tracer.OnError(err)
		return nil, err
	}
	return record, nil
}
