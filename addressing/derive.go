package addressing

import (
	"bytes"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/audit-registry/interfaces"
)

// addressMarker terminates every derivation preimage so record addresses
// cannot collide with other keccak-based identifiers built from the same seeds.
const addressMarker = "RecordAddress"

// ErrNoViableBump is returned when no bump in [0, 255] yields an off-curve address.
var ErrNoViableBump = errors.New("unable to find a viable bump for record address")

var curveB = big.NewInt(7)

// Derive searches bumps from 255 downwards and returns the first candidate
// address that falls off the secp256k1 curve, together with its bump.
func Derive(namespace string, owner interfaces.OwnerID) (interfaces.RecordAddress, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		addr := candidate(namespace, owner, uint8(bump))
		if isOffCurve(addr) {
			return addr, uint8(bump), nil
		}
	}
	return interfaces.RecordAddress{}, 0, ErrNoViableBump
}

// Verify recomputes the address for the stored bump and checks it matches addr.
func Verify(namespace string, owner interfaces.OwnerID, bump uint8, addr interfaces.RecordAddress) error {
	expected := candidate(namespace, owner, bump)
	if !bytes.Equal(expected[:], addr[:]) || !isOffCurve(expected) {
		return interfaces.ErrAddressBindingInvalid
	}
	return nil
}

func candidate(namespace string, owner interfaces.OwnerID, bump uint8) interfaces.RecordAddress {
	var addr interfaces.RecordAddress
	copy(addr[:], crypto.Keccak256([]byte(namespace), owner[:], []byte{bump}, []byte(addressMarker)))
	return addr
}

// isOffCurve reports whether addr, read as a big-endian x coordinate, has no
// matching point on secp256k1 (y^2 = x^3 + 7 mod P). Such an address has no
// private key that could sign for it.
func isOffCurve(addr interfaces.RecordAddress) bool {
	p := crypto.S256().Params().P
	x := new(big.Int).SetBytes(addr[:])
	if x.Cmp(p) >= 0 {
		return true
	}

	rhs := new(big.Int).Exp(x, big.NewInt(3), p)
	rhs.Add(rhs, curveB)
	rhs.Mod(rhs, p)
	if rhs.Sign() == 0 {
		return false
	}
	return big.Jacobi(rhs, p) == -1
}

// Deriver binds Derive and Verify to a fixed namespace.
type Deriver struct {
	namespace string
}

// NewDeriver creates a deriver for the given namespace tag.
func NewDeriver(namespace string) *Deriver {
	return &Deriver{namespace: namespace}
}

// NewRecordDeriver creates a deriver for the record namespace.
func NewRecordDeriver() *Deriver {
	return NewDeriver(interfaces.RecordNamespace)
}

// Derive implements interfaces.AddressDeriver.
func (d *Deriver) Derive(owner interfaces.OwnerID) (interfaces.RecordAddress, uint8, error) {
	return Derive(d.namespace, owner)
}

// Verify implements interfaces.AddressDeriver.
func (d *Deriver) Verify(owner interfaces.OwnerID, bump uint8, addr interfaces.RecordAddress) error {
	return Verify(d.namespace, owner, bump, addr)
}
