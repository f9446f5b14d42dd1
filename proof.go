package smt

import (
	"fmt"
	"sort"
)

// Opcodes of the compiled proof bytecode.
const (
	opL byte = 0x4C // push leaf
	opP byte = 0x50 // raise one, plain sibling
	opQ byte = 0x51 // raise one, merge-with-zero sibling
	opO byte = 0x4F // raise n through zero siblings
	opH byte = 0x48 // merge top two
)

// MaxStackSize bounds the verifier's evaluation stack.
const MaxStackSize = 257

// KV is a (key, value) pair, used both as a proof-generation request and
// as the leaves list supplied at verification time.
type KV struct {
	Key   H256
	Value H256
}

// RawProof is the uncompiled proof: a per-key sibling-presence bitmap plus
// the ordered list of non-zero siblings actually needed, before it is
// compiled to bytecode.
type RawProof struct {
	leavesBitmap []H256
	merklePath   []MergeValue
}

// LeavesBitmap returns the per-key bitmap: bit h set means a non-zero
// sibling was required at height h.
func (p *RawProof) LeavesBitmap() []H256 { return append([]H256(nil), p.leavesBitmap...) }

// MerklePath returns the ordered sibling values the bitmap references.
func (p *RawProof) MerklePath() []MergeValue { return append([]MergeValue(nil), p.merklePath...) }

// MerkleProof generates a raw, uncompiled proof for keys. keys must be
// non-empty and distinct; they are sorted ascending internally.
func (t *SparseMerkleTree) MerkleProof(keys []H256) (*RawProof, error) {
	if len(keys) == 0 {
		return nil, ErrEmptyKeys
	}
	keys = append([]H256(nil), keys...)
	sort.Slice(keys, func(i, j int) bool { return Less(keys[i], keys[j]) })
	for i := 1; i < len(keys); i++ {
		if keys[i] == keys[i-1] {
			return nil, ErrDuplicateKeys
		}
	}

	leavesBitmap := make([]H256, len(keys))
	for i, key := range keys {
		var bitmap H256
		for height := 0; height <= 255; height++ {
			parentKey := ParentPath(key, height+1)
			branchKey := BranchKey{Height: uint8(height), NodeKey: parentKey}
			branch, exists, err := t.store.GetBranch(branchKey)
			if err != nil {
				return nil, &StoreError{Op: "get_branch", Err: err}
			}
			if !exists {
				continue
			}
			var sibling MergeValue
			if GetBit(key, uint8(height)) {
				sibling = branch.Left
			} else {
				sibling = branch.Right
			}
			if !sibling.IsZero() {
				bitmap = SetBit(bitmap, uint8(height))
			}
		}
		leavesBitmap[i] = bitmap
	}

	var path []MergeValue
	stackForkHeight := make([]uint8, 0, MaxStackSize)
	leafIndex := 0
	for leafIndex < len(keys) {
		leafKey := keys[leafIndex]
		hasNext := leafIndex+1 < len(keys)
		forkHeight := uint8(255)
		if hasNext {
			forkHeight = ForkHeight(leafKey, keys[leafIndex+1])
		}

		for height := 0; height <= int(forkHeight); height++ {
			if height == int(forkHeight) && hasNext {
				break
			}
			parentKey := ParentPath(leafKey, height+1)
			isRight := GetBit(leafKey, uint8(height))

			switch {
			case len(stackForkHeight) > 0 && stackForkHeight[len(stackForkHeight)-1] == uint8(height):
				stackForkHeight = stackForkHeight[:len(stackForkHeight)-1]
			case GetBit(leavesBitmap[leafIndex], uint8(height)):
				branchKey := BranchKey{Height: uint8(height), NodeKey: parentKey}
				branch, exists, err := t.store.GetBranch(branchKey)
				if err != nil {
					return nil, &StoreError{Op: "get_branch", Err: err}
				}
				if !exists {
					continue
				}
				var sibling MergeValue
				if isRight {
					sibling = branch.Left
				} else {
					sibling = branch.Right
				}
				if sibling.IsZero() {
					return nil, fmt.Errorf("%w: bitmap claims non-zero sibling that is zero", ErrInvalidProof)
				}
				path = append(path, sibling)
			}
		}

		if len(stackForkHeight) >= MaxStackSize {
			return nil, ErrInvalidStack
		}
		stackForkHeight = append(stackForkHeight, forkHeight)
		leafIndex++
	}
	if len(stackForkHeight) != 1 {
		return nil, fmt.Errorf("%w: proof did not reduce to a single root cursor", ErrInvalidProof)
	}

	return &RawProof{leavesBitmap: leavesBitmap, merklePath: path}, nil
}

// Compile serializes a RawProof into the compiled bytecode format.
// leaves must be the same key set the RawProof was generated for (values
// are only used to size-check the request; the bytecode never embeds
// leaf values, only opcodes and sibling data).
func (p *RawProof) Compile(leaves []KV) (CompiledMerkleProof, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyKeys
	}
	if len(leaves) != len(p.leavesBitmap) {
		return nil, fmt.Errorf("%w: expected %d leaves, got %d", ErrInvalidProof, len(p.leavesBitmap), len(leaves))
	}

	sorted := append([]KV(nil), leaves...)
	sort.Slice(sorted, func(i, j int) bool { return Less(sorted[i].Key, sorted[j].Key) })

	var proof []byte
	stackForkHeight := make([]uint8, 0, MaxStackSize)
	leafIndex := 0
	pathIndex := 0
	for leafIndex < len(sorted) {
		leafKey := sorted[leafIndex].Key
		hasNext := leafIndex+1 < len(sorted)
		forkHeight := uint8(255)
		if hasNext {
			forkHeight = ForkHeight(leafKey, sorted[leafIndex+1].Key)
		}

		proof = append(proof, opL)
		var zeroCount uint16
		for height := 0; height <= int(forkHeight); height++ {
			if height == int(forkHeight) && hasNext {
				break
			}

			var opcode byte
			var hasOpcode bool
			var sibData []byte
			switch {
			case len(stackForkHeight) > 0 && stackForkHeight[len(stackForkHeight)-1] == uint8(height):
				stackForkHeight = stackForkHeight[:len(stackForkHeight)-1]
				opcode, hasOpcode = opH, true
			case GetBit(p.leavesBitmap[leafIndex], uint8(height)):
				if pathIndex >= len(p.merklePath) {
					return nil, fmt.Errorf("%w: corrupted merkle path", ErrInvalidProof)
				}
				node := p.merklePath[pathIndex]
				pathIndex++
				if node.IsMergeWithZero() {
					buf := make([]byte, 0, 65)
					buf = append(buf, node.ZeroCount())
					bn, zb := node.BaseNode(), node.ZeroBits()
					buf = append(buf, bn[:]...)
					buf = append(buf, zb[:]...)
					opcode, hasOpcode, sibData = opQ, true, buf
				} else {
					v := node.Value()
					opcode, hasOpcode = opP, true
					sibData = append([]byte(nil), v[:]...)
				}
			default:
				zeroCount++
				if zeroCount > 256 {
					return nil, fmt.Errorf("%w: zero run exceeds 256", ErrInvalidProof)
				}
			}

			if hasOpcode {
				if zeroCount > 0 {
					n := byte(zeroCount)
					if zeroCount == 256 {
						n = 0
					}
					proof = append(proof, opO, n)
					zeroCount = 0
				}
				proof = append(proof, opcode)
			}
			if sibData != nil {
				proof = append(proof, sibData...)
			}
		}
		if zeroCount > 0 {
			n := byte(zeroCount)
			if zeroCount == 256 {
				n = 0
			}
			proof = append(proof, opO, n)
		}

		if len(stackForkHeight) >= MaxStackSize {
			return nil, ErrInvalidStack
		}
		stackForkHeight = append(stackForkHeight, forkHeight)
		leafIndex++
	}

	if len(stackForkHeight) != 1 {
		return nil, fmt.Errorf("%w: proof did not reduce to a single root cursor", ErrInvalidProof)
	}
	if leafIndex != len(sorted) {
		return nil, fmt.Errorf("%w: not all leaves consumed", ErrInvalidProof)
	}
	if pathIndex != len(p.merklePath) {
		return nil, fmt.Errorf("%w: not all sibling data consumed", ErrInvalidProof)
	}

	return CompiledMerkleProof(proof), nil
}

// CompileProof is a convenience wrapper generating and compiling a proof
// for keys in one call.
func (t *SparseMerkleTree) CompileProof(leaves []KV) (CompiledMerkleProof, error) {
	keys := make([]H256, len(leaves))
	for i, kv := range leaves {
		keys[i] = kv.Key
	}
	raw, err := t.MerkleProof(keys)
	if err != nil {
		return nil, err
	}
	return raw.Compile(leaves)
}
