package smt

// mergeKind discriminates the MergeValue tagged union. Go has no native
// sum type, so the variant is tracked with an explicit byte tag.
type mergeKind uint8

const (
	kindZero mergeKind = iota
	kindValue
	kindMergeWithZero
)

// MergeValue is the in-memory child type produced while walking or building
// the compacted tree: Zero, a plain 32-byte Value, or the lazy
// MergeWithZero encoding of a subtree repeatedly combined with zero
// siblings.
type MergeValue struct {
	kind mergeKind

	value H256 // valid when kind == kindValue

	baseNode  H256 // valid when kind == kindMergeWithZero
	zeroBits  H256
	zeroCount uint8
}

// ZeroValue returns the Zero variant of MergeValue.
func ZeroValue() MergeValue {
	return MergeValue{kind: kindZero}
}

// ValueOf returns the Value(h) variant. Passing the zero H256 is equivalent
// to ZeroValue(), matching the convention that a stored value of zero is
// never distinguished from absence.
func ValueOf(h H256) MergeValue {
	if h.IsZero() {
		return ZeroValue()
	}
	return MergeValue{kind: kindValue, value: h}
}

// MergeWithZeroOf constructs the MergeWithZero variant directly, primarily
// for proof evaluation (opcode Q) where the wire already carries the three
// fields.
func MergeWithZeroOf(baseNode, zeroBits H256, zeroCount uint8) MergeValue {
	return MergeValue{
		kind:      kindMergeWithZero,
		baseNode:  baseNode,
		zeroBits:  zeroBits,
		zeroCount: zeroCount,
	}
}

// IsZero reports whether mv is the Zero variant.
func (mv MergeValue) IsZero() bool {
	return mv.kind == kindZero
}

// IsMergeWithZero reports whether mv is the MergeWithZero variant.
func (mv MergeValue) IsMergeWithZero() bool {
	return mv.kind == kindMergeWithZero
}

// BaseNode, ZeroBits and ZeroCount expose the MergeWithZero fields; they
// are zero-valued for the other two variants.
func (mv MergeValue) BaseNode() H256   { return mv.baseNode }
func (mv MergeValue) ZeroBits() H256   { return mv.zeroBits }
func (mv MergeValue) ZeroCount() uint8 { return mv.zeroCount }

// Value returns the wrapped hash for the Value variant; zero otherwise.
func (mv MergeValue) Value() H256 {
	if mv.kind == kindValue {
		return mv.value
	}
	return Zero
}
