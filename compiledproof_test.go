package smt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeRootRejectsEmptyLeaves(t *testing.T) {
	var cp CompiledMerkleProof
	_, err := cp.ComputeRoot(NewHasher(Blake2bHasher), nil)
	assert.ErrorIs(t, err, ErrEmptyKeys)
}

func TestComputeRootRejectsUnknownOpcode(t *testing.T) {
	cp := CompiledMerkleProof{0xFF}
	_, err := cp.ComputeRoot(NewHasher(Blake2bHasher), []KV{{Key: keyN(1), Value: keyN(2)}})
	assert.ErrorIs(t, err, ErrInvalidProof)
}

func TestComputeRootRejectsTruncatedOperand(t *testing.T) {
	cp := CompiledMerkleProof{opL, opP, 0x01, 0x02}
	_, err := cp.ComputeRoot(NewHasher(Blake2bHasher), []KV{{Key: keyN(1), Value: keyN(2)}})
	assert.ErrorIs(t, err, ErrInvalidProof)
}

func TestComputeRootRejectsLeftoverStack(t *testing.T) {
	cp := CompiledMerkleProof{opL, opL}
	_, err := cp.ComputeRoot(NewHasher(Blake2bHasher), []KV{
		{Key: keyN(1), Value: keyN(2)},
		{Key: keyN(3), Value: keyN(4)},
	})
	assert.Error(t, err)
}

func TestComputeRootAndTreeAgree(t *testing.T) {
	tree, pairs := buildTestTree(t, 6)
	leaves := []KV{pairs[1], pairs[4]}

	proof, err := tree.CompileProof(leaves)
	require.NoError(t, err)

	root, err := proof.ComputeRoot(tree.Hasher(), leaves)
	require.NoError(t, err)
	assert.Equal(t, tree.Root(), root)
}

func TestDisassembleProofRejectsTruncatedQ(t *testing.T) {
	_, err := DisassembleProof(CompiledMerkleProof{opQ, 0x01})
	assert.ErrorIs(t, err, ErrInvalidProof)
}
