package liquidation

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Address is a 20-byte EVM account identifier. It is always constructed in
// canonical form, so two Address values compare equal with plain `==`
// regardless of the hex casing the caller supplied, the way the teacher's
// crypto.NewAddress canonicalizes its own bech32 scheme on ingress.
type Address struct {
	raw common.Address
}

// ParseAddress canonicalizes a hex-encoded address (with or without the 0x
// prefix, any letter casing). It is the sole ingress point for addresses
// derived from untrusted input (decoded event payloads, configuration).
func ParseAddress(hex string) (Address, error) {
	trimmed := strings.TrimSpace(hex)
	if !common.IsHexAddress(trimmed) {
		return Address{}, fmt.Errorf("liquidation: invalid address %q", hex)
	}
	return Address{raw: common.HexToAddress(trimmed)}, nil
}

// AddressFromBytes wraps a raw 20-byte slice, as decoded directly from a
// log topic.
func AddressFromBytes(b []byte) (Address, error) {
	if len(b) != common.AddressLength {
		return Address{}, fmt.Errorf("liquidation: address must be %d bytes, got %d", common.AddressLength, len(b))
	}
	var a Address
	a.raw.SetBytes(b)
	return a, nil
}

// AddressFromCommon adapts a go-ethereum common.Address directly, for
// collaborators (ChainReader, EventSource implementations) that already
// work in terms of that type.
func AddressFromCommon(addr common.Address) Address {
	return Address{raw: addr}
}

func (a Address) String() string {
	return strings.ToLower(a.raw.Hex())
}

// Bytes returns the 20 raw address bytes.
func (a Address) Bytes() []byte {
	return a.raw.Bytes()
}

// Common exposes the underlying go-ethereum representation.
func (a Address) Common() common.Address {
	return a.raw
}

// IsZero reports whether this is the EVM zero address, the sentinel the
// ERC-20 standard and Compound's cToken contracts use for mint/burn
// Transfer events.
func (a Address) IsZero() bool {
	return a.raw == common.Address{}
}
