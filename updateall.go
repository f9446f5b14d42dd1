package smt

import "sort"

// queuedNode is one in-flight cursor of UpdateAll's bottom-up sweep: a
// node at a given height identified by its canonical node key
// (ParentPath(leafKey, height)), carrying the MergeValue computed so far.
type queuedNode struct {
	key    H256
	value  MergeValue
	height uint8
}

// UpdateAll applies a batch of leaf updates in a single bottom-up sweep
// instead of one Update call per key. Later entries for the same key win
// (dedup-by-key-keep-last); pairs of adjacent updated leaves that turn out
// to be siblings are merged directly against each other instead of each
// independently reading the same branch from the store. This is a
// performance supplement: it always produces the same root a sequence of
// plain Update calls would.
func (t *SparseMerkleTree) UpdateAll(pairs []KV) error {
	if len(pairs) == 0 {
		return nil
	}

	rev := make([]KV, len(pairs))
	for i, kv := range pairs {
		rev[len(pairs)-1-i] = kv
	}
	sort.SliceStable(rev, func(i, j int) bool { return Less(rev[i].Key, rev[j].Key) })

	deduped := rev[:0:0]
	for i, kv := range rev {
		if i == 0 || kv.Key != rev[i-1].Key {
			deduped = append(deduped, kv)
		}
	}

	nodes := make([]queuedNode, 0, len(deduped))
	for _, kv := range deduped {
		mv := t.hasher.HashLeaf(kv.Key, kv.Value)
		if mv.IsZero() {
			if err := t.store.RemoveLeaf(kv.Key); err != nil {
				return &StoreError{Op: "remove_leaf", Err: err}
			}
		} else if err := t.store.InsertLeaf(kv.Key, kv.Value); err != nil {
			return &StoreError{Op: "insert_leaf", Err: err}
		}
		nodes = append(nodes, queuedNode{key: kv.Key, value: mv, height: 0})
	}

	for len(nodes) > 0 {
		cur := nodes[0]
		nodes = nodes[1:]
		height := cur.height
		branchKey := BranchKey{Height: height, NodeKey: ParentPath(cur.key, int(height)+1)}

		var left, right MergeValue
		pairedWithNeighbor := false
		if !GetBit(cur.key, height) && len(nodes) > 0 {
			neighbor := nodes[0]
			if neighbor.height == height && neighbor.key == SetBit(cur.key, height) {
				left, right = cur.value, neighbor.value
				nodes = nodes[1:]
				pairedWithNeighbor = true
			}
		}
		if !pairedWithNeighbor {
			branch, exists, err := t.store.GetBranch(branchKey)
			if err != nil {
				return &StoreError{Op: "get_branch", Err: err}
			}
			switch {
			case exists && GetBit(cur.key, height):
				left, right = branch.Left, cur.value
			case exists:
				left, right = cur.value, branch.Right
			case GetBit(cur.key, height):
				left, right = ZeroValue(), cur.value
			default:
				left, right = cur.value, ZeroValue()
			}
		}

		node := BranchNode{Left: left, Right: right}
		if node.IsEmpty() {
			if err := t.store.RemoveBranch(branchKey); err != nil {
				return &StoreError{Op: "remove_branch", Err: err}
			}
		} else if err := t.store.InsertBranch(branchKey, node); err != nil {
			return &StoreError{Op: "insert_branch", Err: err}
		}

		parentKey := ParentPath(cur.key, int(height)+1)
		merged := t.hasher.Merge(height, parentKey, left, right)
		if height == 255 {
			t.root = t.hasher.Collapse(merged)
			break
		}
		nodes = append(nodes, queuedNode{key: parentKey, value: merged, height: height + 1})
	}

	return nil
}
