package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/noema-protocol/registry-client/pkg/agentregistry"
	"github.com/noema-protocol/registry-client/pkg/instruction"
	"github.com/noema-protocol/registry-client/pkg/reader"
	"github.com/noema-protocol/registry-client/pkg/registry"
	"github.com/noema-protocol/registry-client/pkg/registry/programs"
	"github.com/noema-protocol/registry-client/pkg/solana"
)

func init() {
	rootCmd.AddCommand(
		programsCmd(),
		addressCmd(),
		accountCmd(),
		idlCmd(),
		registerCmd(),
		readCmd(),
		reputationCmd(),
		attestCmd(),
		validateCmd(),
		capabilityCmd(),
		consensusCmd(),
	)
}

func programsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "programs",
		Short: "List the supported programs and their addresses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cluster, err := registry.ParseCluster(env.config.Cluster)
			if err != nil {
				return err
			}

			var out []map[string]interface{}
			for _, p := range programs.All() {
				entry := map[string]interface{}{
					"variant":      p.Variant,
					"name":         p.Name,
					"instructions": len(p.Instructions),
				}
				if id, err := p.ProgramID(cluster); err == nil {
					entry["program_id"] = base58.Encode(id)
				}
				out = append(out, entry)
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

type paramFlags struct {
	strs  []string
	keys  []string
	bytes []string
}

func (f *paramFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.strs, "param", nil, "String param, as name=value")
	cmd.Flags().StringArrayVar(&f.keys, "key", nil, "Public key param, as name=base58")
	cmd.Flags().StringArrayVar(&f.bytes, "bytes", nil, "Raw bytes param, as name=hex")
}

func (f *paramFlags) params() (instruction.Params, error) {
	params := make(instruction.Params)

	for _, kv := range f.strs {
		name, value, err := splitParam(kv)
		if err != nil {
			return nil, err
		}
		params[name] = value
	}

	for _, kv := range f.keys {
		name, value, err := splitParam(kv)
		if err != nil {
			return nil, err
		}
		key, err := parsePublicKey(value)
		if err != nil {
			return nil, errors.Wrapf(err, "param %s", name)
		}
		params[name] = key
	}

	for _, kv := range f.bytes {
		name, value, err := splitParam(kv)
		if err != nil {
			return nil, err
		}
		b, err := hex.DecodeString(value)
		if err != nil {
			return nil, errors.Wrapf(err, "param %s", name)
		}
		params[name] = b
	}

	return params, nil
}

func splitParam(kv string) (string, string, error) {
	name, value, ok := strings.Cut(kv, "=")
	if !ok || name == "" {
		return "", "", errors.Errorf("invalid param %q, expected name=value", kv)
	}
	return name, value, nil
}

func parsePublicKey(s string) (ed25519.PublicKey, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, err
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, errors.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(b))
	}
	return b, nil
}

func parseFixedHex(s string, size int) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, err
	}
	if len(b) != size {
		return nil, errors.Errorf("expected %d bytes, got %d", size, len(b))
	}
	return b, nil
}

func addressCmd() *cobra.Command {
	var flags paramFlags

	cmd := &cobra.Command{
		Use:   "address <variant> <template>",
		Short: "Derive a program address from one of a program's seed templates",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := env.registry()
			if err != nil {
				return err
			}

			params, err := flags.params()
			if err != nil {
				return err
			}

			address, err := client.Address(registry.Variant(args[0]), args[1], params)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"address": address.String(),
				"bump":    address.Bump,
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func accountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "account <variant> <layout> <address>",
		Short: "Read and decode any program account",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := env.registry()
			if err != nil {
				return err
			}

			program, programID, err := client.Program(registry.Variant(args[0]))
			if err != nil {
				return err
			}

			layout, err := program.Layout(args[1])
			if err != nil {
				return err
			}

			address, err := parsePublicKey(args[2])
			if err != nil {
				return err
			}

			record, err := client.Reader().Read(cmd.Context(), layout, address, reader.WithOwner(programID))
			if err != nil {
				return err
			}
			if record == nil {
				return errors.Errorf("account %s does not exist", args[2])
			}
			return printJSON(cmd.OutOrStdout(), recordJSON(record))
		},
	}
}

func idlCmd() *cobra.Command {
	var variant string

	cmd := &cobra.Command{
		Use:   "idl <file>",
		Short: "Load an Anchor IDL and print its instruction discriminators",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cluster, err := registry.ParseCluster(env.config.Cluster)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			program, err := registry.ParseIDL(data, registry.Variant(variant), cluster)
			if err != nil {
				return err
			}

			var out []map[string]interface{}
			for _, ix := range program.Instructions {
				disc := ix.Discriminator()
				out = append(out, map[string]interface{}{
					"name":          ix.Name,
					"discriminator": hex.EncodeToString(disc[:]),
					"args":          len(ix.Args),
					"accounts":      len(ix.Accounts),
				})
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&variant, "variant", "custom", "Variant name to register the program under")
	return cmd
}

func printSignature(cmd *cobra.Command, sig solana.Signature) error {
	_, err := fmt.Fprintln(cmd.OutOrStdout(), base58.Encode(sig[:]))
	return err
}

func registerCmd() *cobra.Command {
	var metadataURI string

	cmd := &cobra.Command{
		Use:   "register <agent-id>",
		Short: "Register an agent identity owned by the keypair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := env.registry()
			if err != nil {
				return err
			}
			signer, err := env.keypairSigner()
			if err != nil {
				return err
			}

			sig, err := client.RegisterEntity(cmd.Context(), agentregistry.RegisterEntityArgs{
				AgentID:     args[0],
				MetadataURI: metadataURI,
			}, signer)
			if err != nil {
				return err
			}
			return printSignature(cmd, sig)
		},
	}
	cmd.Flags().StringVar(&metadataURI, "metadata-uri", "", "Agent metadata URI")
	return cmd
}

func readCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <agent-id>",
		Short: "Read the identity registered for an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := env.registry()
			if err != nil {
				return err
			}

			record, err := client.ReadRecord(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if record == nil {
				return errors.Errorf("agent %q is not registered", args[0])
			}
			return printJSON(cmd.OutOrStdout(), record)
		},
	}
}

func reputationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reputation <agent-id>",
		Short: "Read the reputation of an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := env.registry()
			if err != nil {
				return err
			}

			reputation, err := client.ReadReputation(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if reputation == nil {
				return errors.Errorf("agent %q has no reputation account", args[0])
			}
			return printJSON(cmd.OutOrStdout(), reputation)
		},
	}
}

func attestCmd() *cobra.Command {
	var (
		attestationType string
		claimsURI       string
		expiresAt       string
		signature       string
	)

	cmd := &cobra.Command{
		Use:   "attest <agent-id>",
		Short: "Issue an attestation about an agent from the keypair's issuer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			claim := agentregistry.ClaimArgs{
				Kind:            agentregistry.ClaimAttestation,
				AgentID:         args[0],
				AttestationType: attestationType,
				ClaimsURI:       claimsURI,
			}

			if expiresAt != "" {
				t, err := time.Parse(time.RFC3339, expiresAt)
				if err != nil {
					return errors.Wrap(err, "invalid --expires-at")
				}
				claim.ExpiresAt = t
			}

			if signature != "" {
				b, err := parseFixedHex(signature, len(claim.Signature))
				if err != nil {
					return errors.Wrap(err, "invalid --signature")
				}
				copy(claim.Signature[:], b)
			}

			return submitClaim(cmd, claim)
		},
	}
	cmd.Flags().StringVar(&attestationType, "type", "", "Attestation type")
	cmd.Flags().StringVar(&claimsURI, "claims-uri", "", "Claims URI")
	cmd.Flags().StringVar(&expiresAt, "expires-at", "", "Expiry as RFC 3339, empty never expires")
	cmd.Flags().StringVar(&signature, "signature", "", "Issuer signature over the claims, hex")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func validateCmd() *cobra.Command {
	var (
		taskHash    string
		approve     bool
		evidenceURI string
		treasury    string
	)

	cmd := &cobra.Command{
		Use:   "validate <agent-id>",
		Short: "Submit the keypair's validation of a task performed by an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			claim := agentregistry.ClaimArgs{
				Kind:        agentregistry.ClaimValidation,
				AgentID:     args[0],
				Approved:    approve,
				EvidenceURI: evidenceURI,
			}

			b, err := parseFixedHex(taskHash, len(claim.TaskHash))
			if err != nil {
				return errors.Wrap(err, "invalid --task-hash")
			}
			copy(claim.TaskHash[:], b)

			if treasury != "" {
				if claim.Treasury, err = parsePublicKey(treasury); err != nil {
					return errors.Wrap(err, "invalid --treasury")
				}
			}

			return submitClaim(cmd, claim)
		},
	}
	cmd.Flags().StringVar(&taskHash, "task-hash", "", "Task hash, hex")
	cmd.Flags().BoolVar(&approve, "approve", false, "Approve the task")
	cmd.Flags().StringVar(&evidenceURI, "evidence-uri", "", "Evidence URI")
	cmd.Flags().StringVar(&treasury, "treasury", "", "Fee treasury, defaults to the one in the program config")
	_ = cmd.MarkFlagRequired("task-hash")
	return cmd
}

func submitClaim(cmd *cobra.Command, claim agentregistry.ClaimArgs) error {
	client, err := env.registry()
	if err != nil {
		return err
	}
	signer, err := env.keypairSigner()
	if err != nil {
		return err
	}

	sig, err := client.SubmitAttestationOrValidation(cmd.Context(), claim, signer)
	if err != nil {
		return err
	}
	return printSignature(cmd, sig)
}

func capabilityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capability",
		Short: "Declare and read agent capabilities",
	}

	var args agentregistry.DeclareCapabilityArgs
	declare := &cobra.Command{
		Use:   "declare <agent-id>",
		Short: "Declare a capability of an agent owned by the keypair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, positional []string) error {
			client, err := env.registry()
			if err != nil {
				return err
			}
			signer, err := env.keypairSigner()
			if err != nil {
				return err
			}

			args.AgentID = positional[0]
			sig, err := client.DeclareCapability(cmd.Context(), args, signer)
			if err != nil {
				return err
			}
			return printSignature(cmd, sig)
		},
	}
	declare.Flags().StringVar(&args.CapabilityType, "type", "", "Capability type")
	declare.Flags().StringVar(&args.Version, "version", "", "Capability version")
	declare.Flags().StringVar(&args.MetadataURI, "metadata-uri", "", "Capability metadata URI")
	_ = declare.MarkFlagRequired("type")

	show := &cobra.Command{
		Use:   "show <agent-id> <capability-type>",
		Short: "Read a declared capability",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, positional []string) error {
			client, err := env.registry()
			if err != nil {
				return err
			}

			capability, err := client.ReadCapability(cmd.Context(), positional[0], positional[1])
			if err != nil {
				return err
			}
			if capability == nil {
				return errors.Errorf("capability %q of agent %q is not declared", positional[1], positional[0])
			}
			return printJSON(cmd.OutOrStdout(), capability)
		},
	}

	cmd.AddCommand(declare, show)
	return cmd
}

func consensusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consensus",
		Short: "Request, vote on and read consensus requests",
	}

	var (
		actionType string
		dataHash   string
		threshold  uint8
		validators []string
	)
	request := &cobra.Command{
		Use:   "request <agent-id>",
		Short: "Open a consensus request made by the keypair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, positional []string) error {
			args := agentregistry.RequestConsensusArgs{
				AgentID:    positional[0],
				ActionType: actionType,
				Threshold:  threshold,
			}

			if dataHash != "" {
				b, err := parseFixedHex(dataHash, len(args.DataHash))
				if err != nil {
					return errors.Wrap(err, "invalid --data-hash")
				}
				copy(args.DataHash[:], b)
			}

			for _, v := range validators {
				key, err := parsePublicKey(v)
				if err != nil {
					return errors.Wrapf(err, "invalid validator %q", v)
				}
				args.Validators = append(args.Validators, key)
			}

			client, err := env.registry()
			if err != nil {
				return err
			}
			signer, err := env.keypairSigner()
			if err != nil {
				return err
			}

			sig, err := client.RequestConsensus(cmd.Context(), args, signer)
			if err != nil {
				return err
			}
			return printSignature(cmd, sig)
		},
	}
	request.Flags().StringVar(&actionType, "action", "", "Action type")
	request.Flags().StringVar(&dataHash, "data-hash", "", "Hash of the action data, hex")
	request.Flags().Uint8Var(&threshold, "threshold", 1, "Approvals required")
	request.Flags().StringSliceVar(&validators, "validator", nil, "Validator public key, repeatable")
	_ = request.MarkFlagRequired("action")

	var (
		voteAction    string
		voteRequester string
		requestID     string
		approve       bool
		evidenceURI   string
	)
	vote := &cobra.Command{
		Use:   "vote <agent-id>",
		Short: "Vote on a consensus request as the keypair's validator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, positional []string) error {
			requester, err := parsePublicKey(voteRequester)
			if err != nil {
				return errors.Wrap(err, "invalid --requester")
			}

			client, err := env.registry()
			if err != nil {
				return err
			}
			signer, err := env.keypairSigner()
			if err != nil {
				return err
			}

			sig, err := client.CastVote(cmd.Context(), agentregistry.CastVoteArgs{
				RequestID:   requestID,
				AgentID:     positional[0],
				ActionType:  voteAction,
				Requester:   requester,
				Approve:     approve,
				EvidenceURI: evidenceURI,
			}, signer)
			if err != nil {
				return err
			}
			return printSignature(cmd, sig)
		},
	}
	vote.Flags().StringVar(&voteAction, "action", "", "Action type of the request")
	vote.Flags().StringVar(&voteRequester, "requester", "", "Requester public key")
	vote.Flags().StringVar(&requestID, "request-id", "", "Request id")
	vote.Flags().BoolVar(&approve, "approve", false, "Approve the request")
	vote.Flags().StringVar(&evidenceURI, "evidence-uri", "", "Evidence URI")
	_ = vote.MarkFlagRequired("action")
	_ = vote.MarkFlagRequired("requester")

	var showAction, showRequester string
	show := &cobra.Command{
		Use:   "show <agent-id>",
		Short: "Read a consensus request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, positional []string) error {
			requester, err := parsePublicKey(showRequester)
			if err != nil {
				return errors.Wrap(err, "invalid --requester")
			}

			client, err := env.registry()
			if err != nil {
				return err
			}

			req, err := client.ReadConsensusRequest(cmd.Context(), positional[0], showAction, requester)
			if err != nil {
				return err
			}
			if req == nil {
				return errors.New("consensus request does not exist")
			}
			return printJSON(cmd.OutOrStdout(), req)
		},
	}
	show.Flags().StringVar(&showAction, "action", "", "Action type of the request")
	show.Flags().StringVar(&showRequester, "requester", "", "Requester public key")
	_ = show.MarkFlagRequired("action")
	_ = show.MarkFlagRequired("requester")

	cmd.AddCommand(request, vote, show)
	return cmd
}
