package smt

// config collects the functional options applied by New.
type config struct {
	hashFactory           HashFactory
	store                 Store
	initialBranchCapacity int
	root                  H256
}

// Option configures a SparseMerkleTree at construction time, following the
// corpus's functional-option pattern.
type Option func(*config)

// WithHasher overrides the default Blake2bHasher hash backend.
func WithHasher(factory HashFactory) Option {
	return func(c *config) {
		c.hashFactory = factory
	}
}

// WithStore overrides the default in-memory MapStore.
func WithStore(store Store) Option {
	return func(c *config) {
		c.store = store
	}
}

// WithInitialBranchCapacity hints the expected number of stored branches
// when the default MapStore is used; ignored if WithStore is also given.
func WithInitialBranchCapacity(n int) Option {
	return func(c *config) {
		c.initialBranchCapacity = n
	}
}

// WithRoot sets the tree's initial cached root. Use this when reopening a
// tree over a Store that already holds branches and leaves from a prior
// session: the engine never stores the root itself, so the caller is
// responsible for persisting and supplying it back.
func WithRoot(root H256) Option {
	return func(c *config) {
		c.root = root
	}
}

func newConfig(opts ...Option) *config {
	c := &config{
		hashFactory:           Blake2bHasher,
		initialBranchCapacity: 0,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = NewMapStore(c.initialBranchCapacity)
	}
	return c
}
