package smt

import (
	"crypto/sha256"
	"hash"

	"github.com/minio/blake2b-simd"
)

// domain-separation tags prepended ahead of hashed bytes. The hash
// primitive itself never prepends these; the Hasher methods in this file
// always do.
const (
	leafDomainTag          byte = 0x00
	internalMergeDomainTag byte = 0x01
	mergeWithZeroDomainTag byte = 0x02
)

// blake2bPersonal is the personalization string for the default hash
// backend, matching the on-chain verifier this tree is meant to agree
// with.
var blake2bPersonal = []byte("ckb-default-hash")

// HashFactory constructs a fresh streaming 256-bit digest.
type HashFactory func() hash.Hash

// Blake2bHasher is the default hash backend: BLAKE2b-256 personalized with
// "ckb-default-hash", matching the on-chain reference verifier.
func Blake2bHasher() hash.Hash {
	h, err := blake2b.New(&blake2b.Config{Size: 32, Person: blake2bPersonal})
	if err != nil {
		panic(err) // only fails for a bad size/key, both fixed here
	}
	return h
}

// Sha256TreeHasher is an alternative hash backend using the standard
// library's SHA-256, usable wherever a caller does not need
// cross-implementation compatibility with the on-chain BLAKE2b verifier.
func Sha256TreeHasher() hash.Hash {
	return sha256.New()
}

// Hasher bundles a HashFactory with the domain-tagged hashing operations
// the merge policy and tree engine need: leaf hashing, internal-merge
// hashing, and MergeWithZero collapsing, keeping domain-tag logic on the
// hasher type rather than scattered through callers.
type Hasher struct {
	factory HashFactory
}

// NewHasher wraps a HashFactory for use by the tree engine and proof
// verifier.
func NewHasher(factory HashFactory) *Hasher {
	if factory == nil {
		factory = Blake2bHasher
	}
	return &Hasher{factory: factory}
}

func (h *Hasher) digest(parts ...[]byte) H256 {
	hh := h.factory()
	for _, p := range parts {
		hh.Write(p)
	}
	return H256FromBytes(hh.Sum(nil))
}

// HashLeaf produces the MergeValue a leaf (key, value) enters the tree as
// at height 0: Zero if value is zero, else Value(H(0x00 || key || value)).
func (h *Hasher) HashLeaf(key, value H256) MergeValue {
	if value.IsZero() {
		return ZeroValue()
	}
	return ValueOf(h.digest([]byte{leafDomainTag}, key[:], value[:]))
}

// Collapse reduces a MergeValue to its scalar 256-bit hash.
func (h *Hasher) Collapse(mv MergeValue) H256 {
	switch mv.kind {
	case kindZero:
		return Zero
	case kindValue:
		return mv.value
	default: // kindMergeWithZero
		return h.digest(
			[]byte{mergeWithZeroDomainTag},
			mv.baseNode[:],
			mv.zeroBits[:],
			[]byte{mv.zeroCount},
		)
	}
}

// Merge implements the zero-aware merge policy: two Zero operands stay
// Zero, one Zero operand collapses to a lazy MergeWithZero, and two
// non-zero operands combine into a domain-tagged internal hash.
func (h *Hasher) Merge(height uint8, nodeKey H256, lhs, rhs MergeValue) MergeValue {
	if lhs.IsZero() && rhs.IsZero() {
		return ZeroValue()
	}
	if lhs.IsZero() || rhs.IsZero() {
		zeroOnRight := rhs.IsZero()
		other := lhs
		if zeroOnRight {
			other = lhs
		} else {
			other = rhs
		}
		return h.mergeWithZero(height, nodeKey, other, zeroOnRight)
	}
	lh := h.Collapse(lhs)
	rh := h.Collapse(rhs)
	return ValueOf(h.digest(
		[]byte{internalMergeDomainTag},
		[]byte{height},
		nodeKey[:],
		lh[:],
		rh[:],
	))
}

// mergeWithZero combines a non-zero operand with a Zero sibling into a
// lazily-collapsed MergeValue.
func (h *Hasher) mergeWithZero(height uint8, nodeKey H256, other MergeValue, zeroOnRight bool) MergeValue {
	if other.kind == kindMergeWithZero {
		zeroBits := other.zeroBits
		if zeroOnRight {
			zeroBits = SetBit(zeroBits, height)
		}
		return MergeWithZeroOf(other.baseNode, zeroBits, other.zeroCount+1)
	}
	base := h.digest([]byte{height}, nodeKey[:], other.value[:])
	var zeroBits H256
	if zeroOnRight {
		zeroBits = SetBit(zeroBits, height)
	}
	return MergeWithZeroOf(base, zeroBits, 1)
}
