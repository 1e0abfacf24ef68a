package solana

import (
	"crypto/ed25519"

	bin "github.com/gagliardetto/binary"
	"github.com/pkg/errors"
)

// Marshal encodes the transaction in the legacy wire format.
func (t Transaction) Marshal() []byte {
	var out []byte
	bin.EncodeCompactU16Length(&out, len(t.Signatures))
	for _, s := range t.Signatures {
		out = append(out, s[:]...)
	}
	return append(out, t.Message.Marshal()...)
}

// Unmarshal decodes a legacy wire format transaction.
func (t *Transaction) Unmarshal(b []byte) error {
	dec := bin.NewBinDecoder(b)

	count, err := dec.ReadCompactU16()
	if err != nil {
		return errors.Wrap(err, "failed to read signature count")
	}
	if count > dec.Remaining()/len(Signature{}) {
		return errors.Errorf("signature count %d exceeds remaining bytes %d", count, dec.Remaining())
	}

	t.Signatures = make([]Signature, count)
	for i := range t.Signatures {
		if err := readFull(dec, t.Signatures[i][:]); err != nil {
			return errors.Wrapf(err, "failed to read signature %d", i)
		}
	}

	return t.Message.unmarshal(dec)
}

// Marshal encodes the message in the legacy wire format. These are the bytes
// that get signed.
func (m Message) Marshal() []byte {
	out := []byte{m.Header.NumSignatures, m.Header.NumReadonlySigned, m.Header.NumReadOnly}

	bin.EncodeCompactU16Length(&out, len(m.Accounts))
	for _, a := range m.Accounts {
		out = append(out, a...)
	}
	out = append(out, m.RecentBlockhash[:]...)

	bin.EncodeCompactU16Length(&out, len(m.Instructions))
	for _, ix := range m.Instructions {
		out = append(out, ix.ProgramIndex)
		bin.EncodeCompactU16Length(&out, len(ix.Accounts))
		out = append(out, ix.Accounts...)
		bin.EncodeCompactU16Length(&out, len(ix.Data))
		out = append(out, ix.Data...)
	}
	return out
}

// Unmarshal decodes a legacy wire format message. Versioned messages are
// rejected.
func (m *Message) Unmarshal(b []byte) error {
	return m.unmarshal(bin.NewBinDecoder(b))
}

func (m *Message) unmarshal(dec *bin.Decoder) error {
	if !dec.HasRemaining() {
		return errors.New("empty message")
	}

	header := make([]byte, 3)
	if err := readFull(dec, header); err != nil {
		return errors.Wrap(err, "failed to read header")
	}
	// The high bit of the first byte marks a versioned message
	if header[0]&0x80 != 0 {
		return errors.New("versioned messages not supported")
	}
	m.Header = Header{
		NumSignatures:     header[0],
		NumReadonlySigned: header[1],
		NumReadOnly:       header[2],
	}

	count, err := dec.ReadCompactU16()
	if err != nil {
		return errors.Wrap(err, "failed to read account count")
	}
	m.Accounts = make([]ed25519.PublicKey, count)
	for i := range m.Accounts {
		m.Accounts[i] = make(ed25519.PublicKey, ed25519.PublicKeySize)
		if err := readFull(dec, m.Accounts[i]); err != nil {
			return errors.Wrapf(err, "failed to read account %d", i)
		}
	}

	if err := readFull(dec, m.RecentBlockhash[:]); err != nil {
		return errors.Wrap(err, "failed to read recent blockhash")
	}

	count, err = dec.ReadCompactU16()
	if err != nil {
		return errors.Wrap(err, "failed to read instruction count")
	}
	m.Instructions = make([]CompiledInstruction, count)
	for i := range m.Instructions {
		ix, err := m.unmarshalInstruction(dec)
		if err != nil {
			return errors.Wrapf(err, "instruction %d", i)
		}
		m.Instructions[i] = ix
	}
	return nil
}

func (m *Message) unmarshalInstruction(dec *bin.Decoder) (ix CompiledInstruction, err error) {
	if ix.ProgramIndex, err = dec.ReadByte(); err != nil {
		return ix, errors.Wrap(err, "failed to read program index")
	}
	if int(ix.ProgramIndex) >= len(m.Accounts) {
		return ix, errors.Errorf("program index %d out of range", ix.ProgramIndex)
	}

	if ix.Accounts, err = readCompactBytes(dec); err != nil {
		return ix, errors.Wrap(err, "failed to read account indexes")
	}
	for _, index := range ix.Accounts {
		if int(index) >= len(m.Accounts) {
			return ix, errors.Errorf("account index %d out of range", index)
		}
	}

	if ix.Data, err = readCompactBytes(dec); err != nil {
		return ix, errors.Wrap(err, "failed to read data")
	}
	return ix, nil
}

func readCompactBytes(dec *bin.Decoder) ([]byte, error) {
	n, err := dec.ReadCompactU16()
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	return b, readFull(dec, b)
}

func readFull(dec *bin.Decoder, dst []byte) error {
	if dec.Remaining() < len(dst) {
		return errors.Errorf("need %d bytes, %d remaining", len(dst), dec.Remaining())
	}
	b, err := dec.ReadNBytes(len(dst))
	if err != nil {
		return err
	}
	copy(dst, b)
	return nil
}
