package sign

import (
	"encoding/binary"
	"fmt"
)

// RequiresPrevTx reports whether scriptType needs the previous transaction's
// raw bytes forwarded to the device, per spec §6: p2pkh inputs need it,
// p2sh-p2wpkh/p2wpkh inputs must not carry it.
func RequiresPrevTx(scriptType ScriptType) bool {
	return scriptType == ScriptTypeP2PKH
}

// TxIn is one previous transaction's input, enough of it for the worker to
// forward to the device via TxAck during a SignTx exchange.
type TxIn struct {
	PrevTxHash []byte // 32 bytes, as serialized (little-endian)
	PrevIndex  uint32
	ScriptSig  []byte
	Sequence   uint32
}

// TxOut is one previous transaction's output.
type TxOut struct {
	Value        uint64
	ScriptPubKey []byte
}

// PrevTx is a previous transaction parsed far enough to hand its inputs and
// outputs back to the device; witness data (if any) is parsed only to be
// skipped, since the device's TxAck schema has no witness field.
type PrevTx struct {
	Version  uint32
	IsSegWit bool
	Inputs   []TxIn
	Outputs  []TxOut
	LockTime uint32
}

// cursor is a minimal little-endian byte-stream reader for Bitcoin's legacy
// transaction wire format, hand-rolled the way internal/wire's fieldReader
// walks its own payload rather than reaching for a generic decoder.
type cursor struct {
	buf []byte
	pos int
}

func (c *cursor) remaining() int { return len(c.buf) - c.pos }

func (c *cursor) readByte() (byte, error) {
	if c.remaining() < 1 {
		return 0, fmt.Errorf("sign: unexpected end of prevtx at offset %d", c.pos)
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

func (c *cursor) readBytes(n int) ([]byte, error) {
	if c.remaining() < n {
		return nil, fmt.Errorf("sign: unexpected end of prevtx at offset %d, need %d bytes", c.pos, n)
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) readUint32LE() (uint32, error) {
	b, err := c.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *cursor) readUint64LE() (uint64, error) {
	b, err := c.readBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// readVarInt reads a Bitcoin CompactSize integer.
func (c *cursor) readVarInt() (uint64, error) {
	prefix, err := c.readByte()
	if err != nil {
		return 0, err
	}
	switch {
	case prefix < 0xfd:
		return uint64(prefix), nil
	case prefix == 0xfd:
		b, err := c.readBytes(2)
		if err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint16(b)), nil
	case prefix == 0xfe:
		b, err := c.readBytes(4)
		if err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint32(b)), nil
	default:
		b, err := c.readBytes(8)
		if err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint64(b), nil
	}
}

func (c *cursor) readVarBytes() ([]byte, error) {
	n, err := c.readVarInt()
	if err != nil {
		return nil, err
	}
	return c.readBytes(int(n))
}

// ParsePrevTx parses a previous transaction's raw bytes, transparently
// handling both the legacy serialization and the SegWit one (detected by the
// `00 01` marker+flag pair immediately after the 4-byte version field) —
// witness data, present only in the SegWit form, is walked and discarded
// since neither the device's TxAck schema nor spec §6's admission rule needs
// it forwarded.
func ParsePrevTx(raw []byte) (*PrevTx, error) {
	c := &cursor{buf: raw}

	version, err := c.readUint32LE()
	if err != nil {
		return nil, fmt.Errorf("sign: reading version: %w", err)
	}

	isSegWit := false
	if c.remaining() >= 2 && c.buf[c.pos] == 0x00 && c.buf[c.pos+1] == 0x01 {
		isSegWit = true
		c.pos += 2 // consume marker + flag
	}

	inCount, err := c.readVarInt()
	if err != nil {
		return nil, fmt.Errorf("sign: reading input count: %w", err)
	}
	inputs := make([]TxIn, 0, inCount)
	for i := uint64(0); i < inCount; i++ {
		hash, err := c.readBytes(32)
		if err != nil {
			return nil, fmt.Errorf("sign: reading input %d prev hash: %w", i, err)
		}
		index, err := c.readUint32LE()
		if err != nil {
			return nil, fmt.Errorf("sign: reading input %d prev index: %w", i, err)
		}
		scriptSig, err := c.readVarBytes()
		if err != nil {
			return nil, fmt.Errorf("sign: reading input %d script sig: %w", i, err)
		}
		sequence, err := c.readUint32LE()
		if err != nil {
			return nil, fmt.Errorf("sign: reading input %d sequence: %w", i, err)
		}
		inputs = append(inputs, TxIn{
			PrevTxHash: append([]byte(nil), hash...),
			PrevIndex:  index,
			ScriptSig:  append([]byte(nil), scriptSig...),
			Sequence:   sequence,
		})
	}

	outCount, err := c.readVarInt()
	if err != nil {
		return nil, fmt.Errorf("sign: reading output count: %w", err)
	}
	outputs := make([]TxOut, 0, outCount)
	for i := uint64(0); i < outCount; i++ {
		value, err := c.readUint64LE()
		if err != nil {
			return nil, fmt.Errorf("sign: reading output %d value: %w", i, err)
		}
		scriptPubKey, err := c.readVarBytes()
		if err != nil {
			return nil, fmt.Errorf("sign: reading output %d script pubkey: %w", i, err)
		}
		outputs = append(outputs, TxOut{
			Value:        value,
			ScriptPubKey: append([]byte(nil), scriptPubKey...),
		})
	}

	if isSegWit {
		for i := uint64(0); i < inCount; i++ {
			itemCount, err := c.readVarInt()
			if err != nil {
				return nil, fmt.Errorf("sign: reading witness item count for input %d: %w", i, err)
			}
			for j := uint64(0); j < itemCount; j++ {
				if _, err := c.readVarBytes(); err != nil {
					return nil, fmt.Errorf("sign: reading witness item %d for input %d: %w", j, i, err)
				}
			}
		}
	}

	lockTime, err := c.readUint32LE()
	if err != nil {
		return nil, fmt.Errorf("sign: reading lock time: %w", err)
	}

	return &PrevTx{
		Version:  version,
		IsSegWit: isSegWit,
		Inputs:   inputs,
		Outputs:  outputs,
		LockTime: lockTime,
	}, nil
}
