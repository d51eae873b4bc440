package tree

import (
	"sync"

	"github.com/cosmos/iavl"
	dbm "github.com/tendermint/tm-db"
)

// ReadOnlyTree used for CheckState: API for getting data from the backing tree
type ReadOnlyTree interface {
	Get(key []byte) (index int64, value []byte)
	Version() int64
	Hash() []byte
	Iterate(fn func(key []byte, value []byte) bool) (stopped bool)
}

// Committer is a state store that flushes its dirty entries into the tree
type Committer interface {
	Commit(db *iavl.MutableTree, version int64) error
	SetImmutableTree(*iavl.ImmutableTree)
}

// MTree mutable tree, used for deliver and commit
type MTree interface {
	ReadOnlyTree
	Set(key, value []byte) bool
	Remove(key []byte) ([]byte, bool)
	Commit(stores ...Committer) ([]byte, int64, error)
	SaveVersion() ([]byte, int64, error)
	DeleteVersionsRange(from, to int64) error
	GetLastImmutable() *iavl.ImmutableTree
	GetImmutableAtHeight(version int64) (*iavl.ImmutableTree, error)
	MutableTree() *iavl.MutableTree
	GlobalLock()
	GlobalUnlock()
}

// NewMutableTree creates and returns a new tree over the given db. With
// height == 0 the latest saved version is loaded.
func NewMutableTree(height uint64, db dbm.DB, cacheSize int) (MTree, error) {
	tree, err := iavl.NewMutableTree(db, cacheSize)
	if err != nil {
		return nil, err
	}

	if height == 0 {
		if _, err := tree.Load(); err != nil {
			return nil, err
		}
	} else {
		if _, err := tree.LoadVersionForOverwriting(int64(height)); err != nil {
			return nil, err
		}
	}

	return &mutableTree{tree: tree}, nil
}

type mutableTree struct {
	tree *iavl.MutableTree

	lock sync.RWMutex
	sync.Mutex
}

func (t *mutableTree) GlobalLock() {
	t.Lock()
}

func (t *mutableTree) GlobalUnlock() {
	t.Unlock()
}

func (t *mutableTree) MutableTree() *iavl.MutableTree {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.tree
}

func (t *mutableTree) GetLastImmutable() *iavl.ImmutableTree {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.tree.ImmutableTree
}

func (t *mutableTree) GetImmutableAtHeight(version int64) (*iavl.ImmutableTree, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.tree.GetImmutable(version)
}

func (t *mutableTree) Get(key []byte) (index int64, value []byte) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.tree.Get(key)
}

func (t *mutableTree) Set(key, value []byte) bool {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.tree.Set(key, value)
}

func (t *mutableTree) Remove(key []byte) ([]byte, bool) {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.tree.Remove(key)
}

// Commit flushes the given stores in order, saves a version and repoints
// every store at the fresh immutable tree
func (t *mutableTree) Commit(stores ...Committer) ([]byte, int64, error) {
	t.Lock()
	defer t.Unlock()

	version := t.Version() + 1
	for _, store := range stores {
		if err := store.Commit(t.MutableTree(), version); err != nil {
			return nil, 0, err
		}
	}

	hash, version, err := t.SaveVersion()
	if err != nil {
		return hash, version, err
	}

	immutable := t.GetLastImmutable()
	for _, store := range stores {
		store.SetImmutableTree(immutable)
	}

	return hash, version, nil
}

func (t *mutableTree) SaveVersion() ([]byte, int64, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.tree.SaveVersion()
}

func (t *mutableTree) DeleteVersionsRange(from, to int64) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.tree.DeleteVersionsRange(from, to)
}

func (t *mutableTree) Version() int64 {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.tree.Version()
}

func (t *mutableTree) Hash() []byte {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.tree.Hash()
}

func (t *mutableTree) Iterate(fn func(key []byte, value []byte) bool) (stopped bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return t.tree.Iterate(fn)
}
