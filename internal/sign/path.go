// Package sign supplies the BIP32 derivation-path and previous-transaction
// helpers a SignTransaction/GetAddress caller needs before submitting a
// DeviceRequest — the device itself only ever sees a flat []uint32 path and
// (for legacy inputs) raw previous-transaction bytes; deriving both from a
// human script type and an already-parsed raw tx is this gateway's job, not
// the firmware's.
package sign

import "fmt"

// hardened is BIP32's hardened-derivation bit, ORed into the high bit of any
// path element using the `'` (apostrophe) convention.
const hardened = 0x80000000

// ScriptType is the closed, normalized set of script types this gateway
// accepts at its boundary. "p2sh" alone is deliberately not a member: every
// caller must say which kind of P2SH it means.
type ScriptType string

const (
	ScriptTypeP2PKH      ScriptType = "p2pkh"
	ScriptTypeP2SHP2WPKH ScriptType = "p2sh-p2wpkh"
	ScriptTypeP2WPKH     ScriptType = "p2wpkh"
)

// purpose is the BIP43 purpose field for each script type, per spec §6's
// derivation-path table.
var purpose = map[ScriptType]uint32{
	ScriptTypeP2PKH:      44,
	ScriptTypeP2SHP2WPKH: 49,
	ScriptTypeP2WPKH:     84,
}

// NormalizeScriptType validates a caller-supplied script type string against
// the closed set, rejecting bare "p2sh" explicitly since it under-specifies
// which redeem-script shape is meant.
func NormalizeScriptType(s string) (ScriptType, error) {
	switch ScriptType(s) {
	case ScriptTypeP2PKH, ScriptTypeP2SHP2WPKH, ScriptTypeP2WPKH:
		return ScriptType(s), nil
	case "p2sh":
		return "", fmt.Errorf("sign: \"p2sh\" alone is not a valid script type, use %q", ScriptTypeP2SHP2WPKH)
	default:
		return "", fmt.Errorf("sign: unrecognized script type %q", s)
	}
}

// Path builds the BIP32 derivation path m/purpose'/coinType'/account'/change/index
// for the given script type. coinType is 0 for Bitcoin mainnet.
func Path(scriptType ScriptType, coinType, account, change, index uint32) ([]uint32, error) {
	p, ok := purpose[scriptType]
	if !ok {
		return nil, fmt.Errorf("sign: unrecognized script type %q", scriptType)
	}
	return []uint32{
		p | hardened,
		coinType | hardened,
		account | hardened,
		change,
		index,
	}, nil
}

// ChangePath builds the path for a change output, which per spec §6 always
// uses p2wpkh regardless of the transaction's other script types.
func ChangePath(coinType, account, index uint32) []uint32 {
	path, _ := Path(ScriptTypeP2WPKH, coinType, account, 1, index)
	return path
}
