package evmtypes

import (
	"bytes"
	"math/big"
	"testing"
)

func TestBytesFromHexVariants(t *testing.T) {
	cases := []struct {
		in   string
		want []byte
	}{
		{"", nil},
		{"0x", nil},
		{"0xabcd", []byte{0xab, 0xcd}},
		{"abcd", []byte{0xab, 0xcd}},
		{"0xabc", []byte{0x0a, 0xbc}}, // odd length left-padded
	}
	for _, c := range cases {
		got, err := BytesFromHex(c.in)
		if err != nil {
			t.Fatalf("BytesFromHex(%q): %v", c.in, err)
		}
		if !bytes.Equal(got, c.want) {
			t.Fatalf("BytesFromHex(%q) = %x, want %x", c.in, got, c.want)
		}
	}
}

func TestBytesFromHexInvalid(t *testing.T) {
	if _, err := BytesFromHex("0xzz"); err == nil {
		t.Fatalf("expected an error for invalid hex")
	}
}

func TestBytesFromUintZeroIsEmpty(t *testing.T) {
	got := BytesFromUint(big.NewInt(0))
	if len(got) != 0 {
		t.Fatalf("BytesFromUint(0) = %x, want empty", got)
	}
}

func TestBytesRoundTripUint(t *testing.T) {
	v := big.NewInt(123456789)
	got := BytesFromUint(v).Uint()
	if got.Cmp(v) != 0 {
		t.Fatalf("round trip = %s, want %s", got, v)
	}
}

func TestBytesSelector(t *testing.T) {
	b := Bytes{0xaa, 0xbb, 0xcc, 0xdd, 0xee}
	if sel := b.Selector(); !bytes.Equal(sel, Bytes{0xaa, 0xbb, 0xcc, 0xdd}) {
		t.Fatalf("Selector() = %x", sel)
	}
	short := Bytes{0xaa}
	if sel := short.Selector(); !bytes.Equal(sel, short) {
		t.Fatalf("Selector() on short input should return itself, got %x", sel)
	}
}
