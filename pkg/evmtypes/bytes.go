package evmtypes

import (
	"encoding/hex"
	"math/big"
	"strings"
)

// Bytes is a variable-length immutable byte string, always rendered as
// canonical lowercase 0x-prefixed hex. The empty value is distinct
// from a value holding one zero byte.
type Bytes []byte

// Hex renders b as lowercase 0x-prefixed hex.
func (b Bytes) Hex() string {
	return "0x" + hex.EncodeToString(b)
}

func (b Bytes) String() string { return b.Hex() }

// IsZero reports whether b is the empty byte string.
func (b Bytes) IsZero() bool { return len(b) == 0 }

// Selector returns the first 4 bytes of b (the function selector of
// calldata), or the whole of b if shorter than 4 bytes. The call-tree
// builder does not use it.
func (b Bytes) Selector() Bytes {
	if len(b) <= 4 {
		return b
	}
	return b[:4]
}

func (b Bytes) MarshalText() ([]byte, error) {
	return []byte(b.Hex()), nil
}

func (b *Bytes) UnmarshalText(text []byte) error {
	parsed, err := BytesFromHex(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// BytesFromHex decodes a hex string into Bytes. The "0x"/"0X" prefix is
// optional. An odd number of hex digits is left-padded with a single
// "0" nibble before decoding.
func BytesFromHex(s string) (Bytes, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if trimmed == "" {
		return Bytes{}, nil
	}
	if len(trimmed)%2 != 0 {
		trimmed = "0" + trimmed
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, NewInvalidHex("bytes", err)
	}
	return Bytes(raw), nil
}

// BytesFromUint encodes a non-negative integer as minimum-length
// big-endian bytes. Zero encodes to the empty Bytes.
func BytesFromUint(v *big.Int) Bytes {
	if v == nil || v.Sign() <= 0 {
		return Bytes{}
	}
	return Bytes(v.Bytes())
}

// Uint decodes b as a big-endian unsigned integer. An empty Bytes
// decodes to zero.
func (b Bytes) Uint() *big.Int {
	return new(big.Int).SetBytes(b)
}
