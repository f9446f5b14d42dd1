package smt

// SparseMerkleTree is the tree engine: update/get/root maintenance over
// the compacted branch representation. Construction uses a
// functional-option pattern; the default hasher is Blake2bHasher and the
// default store is an empty MapStore.
type SparseMerkleTree struct {
	hasher *Hasher
	store  Store
	root   H256
}

// New builds a SparseMerkleTree from options. With no options it is the
// empty tree: root is Zero, store is a fresh MapStore.
func New(opts ...Option) *SparseMerkleTree {
	c := newConfig(opts...)
	return &SparseMerkleTree{
		hasher: NewHasher(c.hashFactory),
		store:  c.store,
		root:   c.root,
	}
}

// Store returns the tree's backing Store, mainly for callers that want to
// inspect or share the backend directly.
func (t *SparseMerkleTree) Store() Store { return t.store }

// Hasher returns the tree's configured Hasher, for callers building proofs
// or verifying them independently of a particular tree instance.
func (t *SparseMerkleTree) Hasher() *Hasher { return t.hasher }

// ComputeRoot reconstructs a root from proof and leaves using this tree's
// hasher.
func (t *SparseMerkleTree) ComputeRoot(proof CompiledMerkleProof, leaves []KV) (H256, error) {
	return proof.ComputeRoot(t.hasher, leaves)
}

// VerifyProof reports whether proof reconstructs this tree's current root
// for leaves.
func (t *SparseMerkleTree) VerifyProof(proof CompiledMerkleProof, leaves []KV) (bool, error) {
	return proof.Verify(t.hasher, t.root, leaves)
}

// Root returns the tree's cached root, which is derived, never stored.
func (t *SparseMerkleTree) Root() H256 { return t.root }

// IsEmpty reports whether the tree's root is the zero hash.
func (t *SparseMerkleTree) IsEmpty() bool { return t.root.IsZero() }

// Get returns the value stored at key, or Zero if key is absent. This
// reads the leaf map directly rather than walking the branch structure:
// a key with no leaf record is exactly a key whose value is zero, so the
// two are equivalent.
func (t *SparseMerkleTree) Get(key H256) (H256, error) {
	v, ok, err := t.store.GetLeaf(key)
	if err != nil {
		return Zero, &StoreError{Op: "get_leaf", Err: err}
	}
	if !ok {
		return Zero, nil
	}
	return v, nil
}

// Update sets key to value, walking and repairing every branch from the
// leaf level up to the root. update(key, Zero) is the deletion form.
// Returns nil without touching the store if value already equals the
// current leaf value.
func (t *SparseMerkleTree) Update(key, value H256) error {
	oldValue, ok, err := t.store.GetLeaf(key)
	if err != nil {
		return &StoreError{Op: "get_leaf", Err: err}
	}
	if !ok {
		oldValue = Zero
	}
	if oldValue == value {
		return nil
	}

	if value.IsZero() {
		if err := t.store.RemoveLeaf(key); err != nil {
			return &StoreError{Op: "remove_leaf", Err: err}
		}
	} else {
		if err := t.store.InsertLeaf(key, value); err != nil {
			return &StoreError{Op: "insert_leaf", Err: err}
		}
	}

	current := t.hasher.HashLeaf(key, value)
	for height := 0; height <= 255; height++ {
		nodeKey := ParentPath(key, height+1)
		branchKey := BranchKey{Height: uint8(height), NodeKey: nodeKey}

		branch, exists, err := t.store.GetBranch(branchKey)
		if err != nil {
			return &StoreError{Op: "get_branch", Err: err}
		}

		var left, right MergeValue
		if exists {
			left, right = branch.Left, branch.Right
		}
		if GetBit(key, uint8(height)) {
			right = current
		} else {
			left = current
		}

		node := BranchNode{Left: left, Right: right}
		if node.IsEmpty() {
			if err := t.store.RemoveBranch(branchKey); err != nil {
				return &StoreError{Op: "remove_branch", Err: err}
			}
		} else if err := t.store.InsertBranch(branchKey, node); err != nil {
			return &StoreError{Op: "insert_branch", Err: err}
		}

		parentNodeKey := ParentPath(key, height+1)
		current = t.hasher.Merge(uint8(height), parentNodeKey, left, right)
	}

	t.root = t.hasher.Collapse(current)
	return nil
}
