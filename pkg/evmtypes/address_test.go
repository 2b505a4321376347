package evmtypes

import "testing"

func TestAddressChecksum(t *testing.T) {
	// Well-known EIP-55 vector.
	a := AddressFromBytes(mustHex(t, "5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"))
	got := a.Checksum()
	want := "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	if got != want {
		t.Fatalf("checksum = %s, want %s", got, want)
	}
}

func TestAddressFromWordTakesSuffix(t *testing.T) {
	var w Word
	copy(w[12:], []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20})
	a := AddressFromWord(w)
	if a.IsZero() {
		t.Fatalf("expected non-zero address")
	}
	if a[0] != 1 || a[19] != 20 {
		t.Fatalf("address did not take the 20-byte suffix correctly: %x", a)
	}
}

func TestZeroAddressIsZero(t *testing.T) {
	if !ZeroAddress.IsZero() {
		t.Fatalf("ZeroAddress.IsZero() = false")
	}
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := BytesFromHex(s)
	if err != nil {
		t.Fatalf("BytesFromHex(%q): %v", s, err)
	}
	return b
}
