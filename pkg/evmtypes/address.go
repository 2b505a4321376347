package evmtypes

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// Address is the 20-byte suffix of a 32-byte EVM stack word.
type Address [20]byte

// ZeroAddress is the all-zero placeholder used for CREATE/CREATE2
// nodes whose deployed address could not be resolved before EOF.
var ZeroAddress = Address{}

func (a Address) IsZero() bool { return a == ZeroAddress }

// AddressFromWord takes the 20-byte suffix of a 32-byte stack word,
// the layout CALL/CALLCODE/DELEGATECALL/STATICCALL use to place their
// target address.
func AddressFromWord(w Word) Address { return w.Address() }

// AddressFromBytes right-aligns b into a 20-byte address.
func AddressFromBytes(b []byte) Address {
	var a Address
	if len(b) >= 20 {
		copy(a[:], b[len(b)-20:])
	} else {
		copy(a[20-len(b):], b)
	}
	return a
}

func (a Address) lowerHex() string { return hex.EncodeToString(a[:]) }

func (a Address) Hex() string { return "0x" + a.lowerHex() }

// Checksum renders a using EIP-55 capitalisation derived from
// keccak256 of its lowercase hex string. Rendering must never fail
// construction; Checksum always returns a value, with
// the lowercase hex as fallback when a checksum cannot be computed
// (go-ethereum's crypto.Keccak256 never errors, but the fallback path
// is kept so a future hash backend swap stays safe).
func (a Address) Checksum() string {
	lower := a.lowerHex()
	hash := crypto.Keccak256([]byte(lower))
	hashHex := hex.EncodeToString(hash)
	if len(hashHex) < len(lower) {
		return "0x" + lower
	}

	var sb strings.Builder
	sb.Grow(2 + len(lower))
	sb.WriteString("0x")
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if c >= 'a' && c <= 'f' && hashHex[i] >= '8' {
			sb.WriteByte(c - 32)
		} else {
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func (a Address) String() string { return a.Checksum() }

func (a Address) MarshalText() ([]byte, error) { return []byte(a.Hex()), nil }

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := BytesFromHex(string(text))
	if err != nil {
		return err
	}
	*a = AddressFromBytes(parsed)
	return nil
}
