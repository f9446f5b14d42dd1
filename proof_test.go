package smt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestTree(t *testing.T, n int) (*SparseMerkleTree, []KV) {
	t.Helper()
	tree := New()
	pairs := make([]KV, n)
	for i := 0; i < n; i++ {
		pairs[i] = KV{Key: keyN(uint64(i*7 + 1)), Value: keyN(uint64(i + 100))}
		require.NoError(t, tree.Update(pairs[i].Key, pairs[i].Value))
	}
	return tree, pairs
}

func TestCompileProofSingleKeyVerifies(t *testing.T) {
	tree, pairs := buildTestTree(t, 5)
	leaves := pairs[2:3]

	proof, err := tree.CompileProof(leaves)
	require.NoError(t, err)

	ok, err := tree.VerifyProof(proof, leaves)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompileProofMultiKeyVerifies(t *testing.T) {
	tree, pairs := buildTestTree(t, 8)
	leaves := []KV{pairs[0], pairs[3], pairs[5], pairs[7]}

	proof, err := tree.CompileProof(leaves)
	require.NoError(t, err)

	ok, err := tree.VerifyProof(proof, leaves)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompileProofAbsentKeyVerifies(t *testing.T) {
	tree, _ := buildTestTree(t, 4)
	absent := KV{Key: keyN(999999), Value: Zero}

	proof, err := tree.CompileProof([]KV{absent})
	require.NoError(t, err)

	ok, err := tree.VerifyProof(proof, []KV{absent})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyProofRejectsTamperedValue(t *testing.T) {
	tree, pairs := buildTestTree(t, 5)
	leaves := pairs[1:2]

	proof, err := tree.CompileProof(leaves)
	require.NoError(t, err)

	tampered := []KV{{Key: leaves[0].Key, Value: keyN(777)}}
	ok, err := tree.VerifyProof(proof, tampered)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyProofRejectsWrongRoot(t *testing.T) {
	tree, pairs := buildTestTree(t, 5)
	leaves := pairs[0:1]

	proof, err := tree.CompileProof(leaves)
	require.NoError(t, err)

	otherRoot := SetBit(Zero, 200)
	ok, err := proof.Verify(tree.Hasher(), otherRoot, leaves)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMerkleProofRejectsDuplicateKeys(t *testing.T) {
	tree, pairs := buildTestTree(t, 3)
	_, err := tree.MerkleProof([]H256{pairs[0].Key, pairs[0].Key})
	assert.ErrorIs(t, err, ErrDuplicateKeys)
}

func TestMerkleProofRejectsEmptyKeys(t *testing.T) {
	tree, _ := buildTestTree(t, 1)
	_, err := tree.MerkleProof(nil)
	assert.ErrorIs(t, err, ErrEmptyKeys)
}

func TestDisassembleProofMatchesOpcodeCount(t *testing.T) {
	tree, pairs := buildTestTree(t, 4)
	leaves := pairs[0:2]

	proof, err := tree.CompileProof(leaves)
	require.NoError(t, err)

	instrs, err := DisassembleProof(proof)
	require.NoError(t, err)
	assert.NotEmpty(t, instrs)

	leafOps := 0
	for _, instr := range instrs {
		if instr.Op == opL {
			leafOps++
		}
	}
	assert.Equal(t, len(leaves), leafOps)
}
