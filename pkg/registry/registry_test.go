package registry

import (
	"crypto/ed25519"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noema-protocol/registry-client/pkg/solana/anchor"
)

const testProgramID = "G8iYmvncvWsfHRrxZvKuPU6B2kcMj82Lpcf6og6SyMkW"

func newTestProgram() *Program {
	return &Program{
		Name:    "test",
		Variant: VariantIdentity,
		ProgramIDs: map[Cluster]ed25519.PublicKey{
			ClusterLocalnet: MustPublicKey(testProgramID),
		},
		Addresses: []SeedTemplate{
			NewSeedTemplate("config", Literal("config")),
			NewSeedTemplate("identity", Literal("identity"), Param("agent_id")),
			NewSeedTemplate("validation", Literal("validation"), AddressOf("identity"), Param("task_hash")),
		},
		Instructions: []InstructionSchema{
			{
				Name: "register_agent",
				Args: []anchor.Field{
					{Name: "agent_id", Type: anchor.String},
					{Name: "metadata_uri", Type: anchor.String},
				},
				Accounts: []AccountSlot{
					Derived("identity", "identity", true),
					Signer("owner", true),
					Derived("config", "config", true),
					SystemProgram(),
				},
			},
			{
				Name: "tag",
				Args: []anchor.Field{
					{Name: "tags", Type: anchor.Vec(anchor.String)},
				},
			},
		},
		Layouts: []AccountLayout{
			{Name: "IdentityRegistry", Fields: []anchor.Field{{Name: "owner", Type: anchor.PublicKey}}},
		},
		Errors: NewProgramErrors(
			[2]string{"AgentIdTooLong", "Agent ID too long"},
			[2]string{"Unauthorized", "Unauthorized"},
		),
		Limits: []Limit{
			{Instruction: "register_agent", Arg: "agent_id", Max: 8, ProgramError: "AgentIdTooLong"},
			{Instruction: "tag", Arg: "tags", Max: 2},
		},
	}
}

func TestParseCluster(t *testing.T) {
	for input, expected := range map[string]Cluster{
		"localnet":     ClusterLocalnet,
		"localhost":    ClusterLocalnet,
		"Devnet":       ClusterDevnet,
		"testnet":      ClusterTestnet,
		"mainnet":      ClusterMainnet,
		"mainnet-beta": ClusterMainnet,
	} {
		actual, err := ParseCluster(input)
		require.NoError(t, err)
		assert.Equal(t, expected, actual)
	}

	_, err := ParseCluster("moonnet")
	assert.Error(t, err)
}

func TestProgram_Lookups(t *testing.T) {
	p := newTestProgram()
	require.NoError(t, p.Validate())

	id, err := p.ProgramID(ClusterLocalnet)
	require.NoError(t, err)
	assert.EqualValues(t, MustPublicKey(testProgramID), id)

	_, err = p.ProgramID(ClusterMainnet)
	assertSchemaError(t, err, anchor.UnknownProgram)

	ix, err := p.Instruction("register_agent")
	require.NoError(t, err)
	assert.Equal(t, "879d42c30271af1e", ix.Discriminator().String())

	field, idx, ok := ix.Arg("metadata_uri")
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, anchor.String, field.Type)

	_, _, ok = ix.Arg("missing")
	assert.False(t, ok)

	_, err = p.Instruction("registerAgent")
	assertSchemaError(t, err, anchor.UnknownInstruction)

	tmpl, ok := p.Address("validation")
	require.True(t, ok)
	assert.Equal(t, `validation["validation", &identity, task_hash]`, tmpl.String())

	layout, err := p.Layout("IdentityRegistry")
	require.NoError(t, err)
	assert.Equal(t, "73ed92fab4ba2c17", layout.Discriminator().String())

	i, ok := layout.Field("owner")
	assert.True(t, ok)
	assert.Equal(t, 0, i)

	_, err = p.Layout("Nope")
	assertSchemaError(t, err, anchor.UnknownLayout)

	e, ok := p.LookupError(6001)
	require.True(t, ok)
	assert.Equal(t, "Unauthorized", e.Name)

	_, ok = p.LookupError(6002)
	assert.False(t, ok)
}

func TestProgram_Validate(t *testing.T) {
	for name, mutate := range map[string]func(p *Program){
		"cycle": func(p *Program) {
			p.Addresses = append(p.Addresses,
				NewSeedTemplate("a", Literal("a"), AddressOf("b")),
				NewSeedTemplate("b", Literal("b"), AddressOf("a")),
			)
		},
		"self reference": func(p *Program) {
			p.Addresses = append(p.Addresses, NewSeedTemplate("loop", AddressOf("loop")))
		},
		"unknown address reference": func(p *Program) {
			p.Addresses = append(p.Addresses, NewSeedTemplate("dangling", AddressOf("missing")))
		},
		"unknown slot template": func(p *Program) {
			p.Instructions[0].Accounts = append(p.Instructions[0].Accounts, Derived("x", "missing", false))
		},
		"derived signer": func(p *Program) {
			slot := Derived("x", "config", false)
			slot.IsSigner = true
			p.Instructions[0].Accounts = append(p.Instructions[0].Accounts, slot)
		},
		"duplicate template": func(p *Program) {
			p.Addresses = append(p.Addresses, NewSeedTemplate("config", Literal("config")))
		},
		"duplicate instruction": func(p *Program) {
			p.Instructions = append(p.Instructions, p.Instructions[0])
		},
		"duplicate argument": func(p *Program) {
			p.Instructions[0].Args = append(p.Instructions[0].Args, anchor.Field{Name: "agent_id", Type: anchor.String})
		},
		"duplicate layout": func(p *Program) {
			p.Layouts = append(p.Layouts, p.Layouts[0])
		},
		"duplicate error code": func(p *Program) {
			p.Errors = append(p.Errors, ProgramError{Code: 6000, Name: "Again"})
		},
		"empty parameter": func(p *Program) {
			p.Instructions[0].Accounts = append(p.Instructions[0].Accounts, AccountSlot{Name: "x", Source: SourceParam})
		},
	} {
		p := newTestProgram()
		mutate(p)
		assertSchemaError(t, p.Validate(), anchor.InvalidTemplate, name)
	}

	p := newTestProgram()
	p.ProgramIDs[ClusterDevnet] = make([]byte, 31)
	assert.Error(t, p.Validate())

	p = newTestProgram()
	p.Name = ""
	assert.Error(t, p.Validate())
}

func TestProgram_CheckLimits(t *testing.T) {
	p := newTestProgram()
	ix, err := p.Instruction("register_agent")
	require.NoError(t, err)

	assert.NoError(t, p.CheckLimits(ix, []interface{}{"12345678", "uri"}))

	err = p.CheckLimits(ix, []interface{}{"123456789", "uri"})
	var limitErr *LimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, "agent_id", limitErr.Arg)
	assert.Equal(t, 8, limitErr.Max)
	assert.Equal(t, 9, limitErr.Actual)
	assert.Equal(t, "AgentIdTooLong", limitErr.ProgramError)
	assert.Contains(t, err.Error(), "AgentIdTooLong")

	// Values of the wrong type are left to the encoder
	assert.NoError(t, p.CheckLimits(ix, []interface{}{42, "uri"}))

	tag, err := p.Instruction("tag")
	require.NoError(t, err)
	assert.NoError(t, p.CheckLimits(tag, []interface{}{[]string{"a", "b"}}))
	assert.Error(t, p.CheckLimits(tag, []interface{}{[]string{"a", "b", "c"}}))

	assert.NoError(t, CheckLength("x", "y", "abc", 3, ""))
	err = CheckLength("x", "y", "abcd", 3, "")
	require.Error(t, err)
	assert.Equal(t, "x: y exceeds limit of 3 (got 4)", err.Error())
}

func TestRegistry(t *testing.T) {
	r, err := New(newTestProgram())
	require.NoError(t, err)

	p, err := r.Program(VariantIdentity)
	require.NoError(t, err)
	assert.Equal(t, "test", p.Name)

	_, err = r.Program(VariantCapability)
	assertSchemaError(t, err, anchor.UnknownProgram)

	assert.Error(t, r.Register(newTestProgram()))
	assert.Error(t, r.Register(nil))

	invalid := newTestProgram()
	invalid.Variant = VariantCapability
	invalid.Addresses = append(invalid.Addresses, NewSeedTemplate("loop", AddressOf("loop")))
	assert.Error(t, r.Register(invalid))
	assert.Len(t, r.Programs(), 1)

	found, ok := r.ProgramByID(ClusterLocalnet, MustPublicKey(testProgramID))
	require.True(t, ok)
	assert.Equal(t, p, found)

	_, ok = r.ProgramByID(ClusterDevnet, MustPublicKey(testProgramID))
	assert.False(t, ok)
}

func TestRegistry_ResolveError(t *testing.T) {
	r, err := New(newTestProgram())
	require.NoError(t, err)

	id := MustPublicKey(testProgramID)

	e, ok := r.ResolveError(ClusterLocalnet, id, 6000)
	require.True(t, ok)
	assert.Equal(t, "AgentIdTooLong", e.Name)
	assert.Equal(t, "AgentIdTooLong (6000): Agent ID too long", e.Error())

	e, ok = r.ResolveError(ClusterLocalnet, id, 2006)
	require.True(t, ok)
	assert.Equal(t, "ConstraintSeeds", e.Name)

	_, ok = r.ResolveError(ClusterLocalnet, id, 6100)
	assert.False(t, ok)
}

const testIDL = `{
  "version": "0.1.0",
  "name": "spl_8004",
  "instructions": [
    {
      "name": "registerAgent",
      "accounts": [
        {"name": "identity", "isMut": true, "isSigner": false},
        {"name": "owner", "isMut": true, "isSigner": true},
        {"name": "systemProgram", "isMut": false, "isSigner": false}
      ],
      "args": [
        {"name": "agentId", "type": "string"},
        {"name": "metadataUri", "type": "string"}
      ]
    },
    {
      "name": "submitValidation",
      "accounts": [
        {"name": "validation", "isMut": true, "isSigner": false}
      ],
      "args": [
        {"name": "taskHash", "type": {"array": ["u8", 32]}},
        {"name": "approved", "type": "bool"},
        {"name": "deadline", "type": {"option": "i64"}},
        {"name": "keys", "type": {"vec": "publicKey"}}
      ]
    }
  ],
  "accounts": [
    {
      "name": "IdentityRegistry",
      "type": {
        "kind": "struct",
        "fields": [
          {"name": "owner", "type": "publicKey"},
          {"name": "agentId", "type": "string"},
          {"name": "isActive", "type": "bool"}
        ]
      }
    }
  ],
  "errors": [
    {"code": 6000, "name": "AgentIdTooLong", "msg": "Agent ID exceeds maximum length of 64 characters"}
  ],
  "metadata": {"address": "G8iYmvncvWsfHRrxZvKuPU6B2kcMj82Lpcf6og6SyMkW"}
}`

func TestParseIDL(t *testing.T) {
	p, err := ParseIDL([]byte(testIDL), VariantIdentity, ClusterDevnet)
	require.NoError(t, err)

	assert.Equal(t, "spl_8004", p.Name)

	id, err := p.ProgramID(ClusterDevnet)
	require.NoError(t, err)
	assert.EqualValues(t, MustPublicKey(testProgramID), id)

	ix, err := p.Instruction("register_agent")
	require.NoError(t, err)
	assert.Equal(t, "879d42c30271af1e", ix.Discriminator().String())
	assert.Equal(t, []string{"agent_id", "metadata_uri"}, anchor.Names(ix.Args))
	require.Len(t, ix.Accounts, 3)
	assert.Equal(t, Account("identity", true), ix.Accounts[0])
	assert.True(t, ix.Accounts[1].IsSigner)
	assert.Equal(t, SourceSystemProgram, ix.Accounts[2].Source)

	ix, err = p.Instruction("submit_validation")
	require.NoError(t, err)
	assert.Equal(t, anchor.FixedBytes(32), ix.Args[0].Type)
	assert.Equal(t, anchor.Bool, ix.Args[1].Type)
	assert.Equal(t, anchor.Option(anchor.I64), ix.Args[2].Type)
	assert.Equal(t, anchor.Vec(anchor.PublicKey), ix.Args[3].Type)

	layout, err := p.Layout("IdentityRegistry")
	require.NoError(t, err)
	assert.Equal(t, []string{"owner", "agent_id", "is_active"}, anchor.Names(layout.Fields))

	e, ok := p.LookupError(6000)
	require.True(t, ok)
	assert.Equal(t, "AgentIdTooLong", e.Name)
}

func TestParseIDL_Invalid(t *testing.T) {
	for _, data := range []string{
		`not json`,
		`{"name": "x", "instructions": [{"name": "a", "args": [{"name": "b", "type": "f64"}]}]}`,
		`{"name": "x", "instructions": [{"name": "a", "args": [{"name": "b", "type": {"array": ["u16", 2]}}]}]}`,
		`{"name": "x", "accounts": [{"name": "E", "type": {"kind": "enum"}}]}`,
		`{"name": "x", "address": "not-base58-0OIl"}`,
		`{"name": ""}`,
	} {
		_, err := ParseIDL([]byte(data), VariantIdentity, ClusterLocalnet)
		assert.Error(t, err, data)
	}
}

func TestSnakeCase(t *testing.T) {
	for input, expected := range map[string]string{
		"registerAgent":    "register_agent",
		"register_agent":   "register_agent",
		"systemProgram":    "system_program",
		"IdentityRegistry": "identity_registry",
		"x":                "x",
	} {
		assert.Equal(t, expected, SnakeCase(input))
	}
}

func assertSchemaError(t *testing.T, err error, kind anchor.SchemaErrorKind, msgAndArgs ...interface{}) {
	var schemaErr *anchor.SchemaError
	require.True(t, errors.As(err, &schemaErr), msgAndArgs...)
	assert.Equal(t, kind, schemaErr.Kind, msgAndArgs...)
}
