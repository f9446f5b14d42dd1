// Package binding exposes the sparse Merkle tree core as the narrow,
// fixed-array surface an external wrapper (WASM, FFI, CLI) calls into:
// update one key at a time, read the current root, and produce or verify
// a compiled multi-key proof, all over plain [32]byte values rather than
// this module's internal H256/KV types.
package binding

import (
	smt "github.com/nervosnetwork/sparse-merkle-tree"
)

// Client wraps a *smt.SparseMerkleTree to satisfy this narrower
// external-facing surface over fixed-size arrays.
type Client struct {
	tree *smt.SparseMerkleTree
}

// New constructs a Client backed by a fresh in-memory tree using the
// default BLAKE2b hash backend. opts, if given, are forwarded to
// smt.New, so callers needing a custom store or hasher (for example to
// reopen a tree over a persisted store via smt.WithStore/smt.WithRoot)
// can still reach them.
func New(opts ...smt.Option) *Client {
	return &Client{tree: smt.New(opts...)}
}

// Update sets key to value, deleting it if value is the zero array.
func (c *Client) Update(key, value [32]byte) error {
	return c.tree.Update(smt.H256(key), smt.H256(value))
}

// Get returns the value stored at key, or the zero array if absent.
func (c *Client) Get(key [32]byte) ([32]byte, error) {
	v, err := c.tree.Get(smt.H256(key))
	if err != nil {
		return [32]byte{}, err
	}
	return [32]byte(v), nil
}

// Root returns the tree's current root.
func (c *Client) Root() [32]byte {
	return [32]byte(c.tree.Root())
}

// GetProof compiles a multi-key proof for keys against the tree's current
// state, returning the flat opcode byte stream.
func (c *Client) GetProof(keys [][32]byte) ([]byte, error) {
	raw, err := c.tree.MerkleProof(toH256Slice(keys))
	if err != nil {
		return nil, err
	}
	leaves := make([]smt.KV, len(keys))
	for i, k := range keys {
		v, err := c.tree.Get(smt.H256(k))
		if err != nil {
			return nil, err
		}
		leaves[i] = smt.KV{Key: smt.H256(k), Value: v}
	}
	compiled, err := raw.Compile(leaves)
	if err != nil {
		return nil, err
	}
	return []byte(compiled), nil
}

// VerifyProof reports whether proof reconstructs root for pairs, where
// each element of pairs is a (key, value) tuple.
func (c *Client) VerifyProof(root [32]byte, proof []byte, pairs [][2][32]byte) (bool, error) {
	leaves := make([]smt.KV, len(pairs))
	for i, p := range pairs {
		leaves[i] = smt.KV{Key: smt.H256(p[0]), Value: smt.H256(p[1])}
	}
	return smt.CompiledMerkleProof(proof).Verify(c.tree.Hasher(), smt.H256(root), leaves)
}

// Tree returns the wrapped *smt.SparseMerkleTree, for callers that need
// the full surface (UpdateAll, Store, CompileProof) beyond this binding.
func (c *Client) Tree() *smt.SparseMerkleTree {
	return c.tree
}

// HashFromBytes hashes arbitrary-length data with the same Blake2bHasher
// domain the tree uses internally, for callers that need to derive a
// 32-byte key or value from arbitrary input outside the tree itself.
func HashFromBytes(data []byte) [32]byte {
	h := smt.Blake2bHasher()
	h.Write(data)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func toH256Slice(keys [][32]byte) []smt.H256 {
	out := make([]smt.H256, len(keys))
	for i, k := range keys {
		out[i] = smt.H256(k)
	}
	return out
}
