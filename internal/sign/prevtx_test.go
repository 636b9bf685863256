package sign

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func u32le(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func u64le(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// buildLegacyTx assembles a minimal one-input, one-output legacy transaction.
func buildLegacyTx() []byte {
	var buf bytes.Buffer
	buf.Write(u32le(1)) // version
	buf.WriteByte(1)    // input count
	buf.Write(bytes.Repeat([]byte{0xaa}, 32))
	buf.Write(u32le(0))   // prev index
	buf.WriteByte(0)      // empty scriptSig
	buf.Write(u32le(0xffffffff)) // sequence
	buf.WriteByte(1)      // output count
	buf.Write(u64le(5000))
	buf.WriteByte(3)
	buf.Write([]byte{0x01, 0x02, 0x03})
	buf.Write(u32le(0)) // locktime
	return buf.Bytes()
}

// buildSegWitTx assembles the SegWit-serialized equivalent: marker+flag after
// version, one witness item for the single input.
func buildSegWitTx() []byte {
	var buf bytes.Buffer
	buf.Write(u32le(2))        // version
	buf.Write([]byte{0x00, 0x01}) // marker, flag
	buf.WriteByte(1)           // input count
	buf.Write(bytes.Repeat([]byte{0xbb}, 32))
	buf.Write(u32le(1))
	buf.WriteByte(0) // empty scriptSig
	buf.Write(u32le(0xffffffff))
	buf.WriteByte(1) // output count
	buf.Write(u64le(9999))
	buf.WriteByte(2)
	buf.Write([]byte{0x51, 0x20})
	// witness: 1 item, 4 bytes
	buf.WriteByte(1)
	buf.WriteByte(4)
	buf.Write([]byte{0xde, 0xad, 0xbe, 0xef})
	buf.Write(u32le(0)) // locktime
	return buf.Bytes()
}

func TestParsePrevTx_Legacy(t *testing.T) {
	tx, err := ParsePrevTx(buildLegacyTx())
	require.NoError(t, err)
	require.False(t, tx.IsSegWit)
	require.Len(t, tx.Inputs, 1)
	require.Len(t, tx.Outputs, 1)
	require.Equal(t, uint64(5000), tx.Outputs[0].Value)
	require.Equal(t, uint32(0), tx.LockTime)
}

func TestParsePrevTx_SegWitDetectsMarkerAndSkipsWitness(t *testing.T) {
	tx, err := ParsePrevTx(buildSegWitTx())
	require.NoError(t, err)
	require.True(t, tx.IsSegWit)
	require.Len(t, tx.Inputs, 1)
	require.Equal(t, uint32(1), tx.Inputs[0].PrevIndex)
	require.Len(t, tx.Outputs, 1)
	require.Equal(t, uint64(9999), tx.Outputs[0].Value)
	require.Equal(t, uint32(0), tx.LockTime)
}

func TestParsePrevTx_TruncatedInputErrors(t *testing.T) {
	raw := buildLegacyTx()
	_, err := ParsePrevTx(raw[:10])
	require.Error(t, err)
}

func TestRequiresPrevTx(t *testing.T) {
	require.True(t, RequiresPrevTx(ScriptTypeP2PKH))
	require.False(t, RequiresPrevTx(ScriptTypeP2SHP2WPKH))
	require.False(t, RequiresPrevTx(ScriptTypeP2WPKH))
}
