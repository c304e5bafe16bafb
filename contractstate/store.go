// Package contractstate persists the smart-contract key-value state
// the embedded VM reads and writes. Two transactional views are
// exposed: Store.Begin/Txn.Commit is the durable write path a block's
// contract execution is applied through once accepted, and
// Store.BeginAssembly/Assembly.Txn is the speculative, in-memory-only
// view block assembly explores contract execution through, so a
// rejected or never-finalized attempt never touches the database.
package contractstate

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"
)

// rootKey is the single reserved key the store's own bookkeeping
// occupies; every other key is VM-owned contract storage.
var rootKey = []byte("__contract_root__")

// Store is the persistent contract key-value store. Content is
// addressed by a root hash: every Commit recomputes and records the
// new root, and RollbackTo restores a previously recorded one.
type Store struct {
	ldb *leveldb.DB
}

// Open opens (creating if necessary) the store at path/storeName,
// recovering from on-disk corruption the way the reference key-value
// backend does rather than failing outright.
func Open(path string, storeName string) (*Store, error) {
	dbPath := filepath.Join(path, storeName)

	ldb, err := leveldb.OpenFile(dbPath, nil)
	if _, corrupted := err.(*ldberrors.ErrCorrupted); corrupted {
		ldb, err = leveldb.RecoverFile(dbPath, nil)
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &Store{ldb: ldb}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return errors.WithStack(s.ldb.Close())
}

// CurrentRoot returns the content hash of the store as of its last
// Commit, or the zero-value hash string if nothing has ever been
// committed.
func (s *Store) CurrentRoot() (string, error) {
	v, err := s.ldb.Get(rootKey, nil)
	if err == leveldb.ErrNotFound {
		return hex.EncodeToString(make([]byte, sha256.Size)), nil
	}
	if err != nil {
		return "", errors.WithStack(err)
	}
	return string(v), nil
}

// Txn is a transactional view over the store: buffered writes against
// a point-in-time snapshot, applied atomically on Commit or discarded
// on Rollback. Grounded on the same snapshot+batch discipline as the
// reference key-value backend's own transaction type.
type Txn struct {
	store    *Store
	snapshot *leveldb.Snapshot
	batch    *leveldb.Batch
	closed   bool
}

// Begin opens a new transaction against the store's current state.
func (s *Store) Begin() (*Txn, error) {
	snapshot, err := s.ldb.GetSnapshot()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &Txn{store: s, snapshot: snapshot, batch: new(leveldb.Batch)}, nil
}

// Get reads key through the transaction's snapshot, so it observes
// neither this transaction's own buffered writes nor any writes
// committed after Begin.
func (t *Txn) Get(key []byte) ([]byte, error) {
	if t.closed {
		return nil, errors.New("cannot read from a closed transaction")
	}
	v, err := t.snapshot.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return v, nil
}

// Put buffers a write; it is not visible to Get on this transaction
// and is not durable until Commit.
func (t *Txn) Put(key, value []byte) error {
	if t.closed {
		return errors.New("cannot write to a closed transaction")
	}
	t.batch.Put(key, value)
	return nil
}

// Commit recomputes the content root over the transaction's buffered
// writes layered on the pre-transaction root, records the new root,
// and atomically applies the batch.
func (t *Txn) Commit() (newRoot string, err error) {
	if t.closed {
		return "", errors.New("cannot commit a closed transaction")
	}
	t.closed = true
	defer t.snapshot.Release()

	preRoot, err := t.store.CurrentRoot()
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(preRoot))
	if err := t.batch.Replay(hashingReplay{h: h}); err != nil {
		return "", errors.WithStack(err)
	}
	newRoot = hex.EncodeToString(h.Sum(nil))
	t.batch.Put(rootKey, []byte(newRoot))

	if err := t.store.ldb.Write(t.batch, nil); err != nil {
		return "", errors.WithStack(err)
	}
	return newRoot, nil
}

// Rollback discards every buffered write. The store's on-disk root is
// left untouched.
func (t *Txn) Rollback() error {
	if t.closed {
		return errors.New("cannot rollback a closed transaction")
	}
	t.closed = true
	t.snapshot.Release()
	t.batch.Reset()
	return nil
}

// RollbackTo restores the store's root pointer to a previously
// recorded value. It only ever needs to undo a Txn.Commit that has
// already been durably written: it does not, and cannot, un-write the
// individual keys a commit touched. Block assembly must not use this
// as a speculation guard for that reason; use BeginAssembly instead,
// which never writes to the database in the first place.
func (s *Store) RollbackTo(root string) error {
	return errors.WithStack(s.ldb.Put(rootKey, []byte(root), nil))
}

// Assembly is a speculative, assembly-scoped view over the store: a
// snapshot of state as of BeginAssembly, plus an in-memory overlay of
// every contract attempt kept since. Nothing written through an
// Assembly or the AttemptTxns it opens is ever written to the
// database; the store's on-disk state is exactly what it was before
// BeginAssembly, for as long as the Assembly is open and after it is
// closed.
type Assembly struct {
	store    *Store
	snapshot *leveldb.Snapshot
	overlay  map[string][]byte
	root     string
}

// BeginAssembly opens an Assembly against the store's current state.
func (s *Store) BeginAssembly() (*Assembly, error) {
	snapshot, err := s.ldb.GetSnapshot()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	root, err := s.CurrentRoot()
	if err != nil {
		snapshot.Release()
		return nil, err
	}
	return &Assembly{store: s, snapshot: snapshot, overlay: make(map[string][]byte), root: root}, nil
}

// Root reports the content hash of everything kept in this assembly so
// far, layered on the store's state at BeginAssembly.
func (a *Assembly) Root() string {
	return a.root
}

// Close releases the assembly's snapshot. Its overlay is simply
// discarded; it was never written anywhere durable.
func (a *Assembly) Close() {
	a.snapshot.Release()
}

func (a *Assembly) get(key []byte) ([]byte, error) {
	if v, ok := a.overlay[string(key)]; ok {
		return v, nil
	}
	v, err := a.snapshot.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return v, nil
}

// AttemptTxn is one contract-carrying transaction's buffered view into
// an Assembly. Reads see every key the Assembly has kept plus this
// attempt's own buffered writes; nothing an attempt writes is visible
// to the Assembly, or to any other attempt, until Keep folds it in.
type AttemptTxn struct {
	assembly *Assembly
	writes   map[string][]byte
	order    []string
	closed   bool
}

// Txn opens a new buffered attempt against the assembly's current
// state.
func (a *Assembly) Txn() *AttemptTxn {
	return &AttemptTxn{assembly: a, writes: make(map[string][]byte)}
}

// Get reads key, preferring this attempt's own buffered writes over
// the assembly's kept state.
func (t *AttemptTxn) Get(key []byte) ([]byte, error) {
	if t.closed {
		return nil, errors.New("cannot read from a closed transaction")
	}
	if v, ok := t.writes[string(key)]; ok {
		return v, nil
	}
	return t.assembly.get(key)
}

// Put buffers a write; it is visible to this attempt's own Get calls
// but not to the assembly until Keep.
func (t *AttemptTxn) Put(key, value []byte) error {
	if t.closed {
		return errors.New("cannot write to a closed transaction")
	}
	k := string(key)
	if _, exists := t.writes[k]; !exists {
		t.order = append(t.order, k)
	}
	t.writes[k] = value
	return nil
}

// Keep folds this attempt's buffered writes into the assembly's
// overlay and advances the assembly's root. It is the speculative
// analogue of Txn.Commit: the new root is derived the same way, a hash
// of the pre-attempt root and every write in first-written order, but
// nothing is ever written to the database.
func (t *AttemptTxn) Keep() (newRoot string, err error) {
	if t.closed {
		return "", errors.New("cannot keep a closed transaction")
	}
	t.closed = true

	h := sha256.New()
	h.Write([]byte(t.assembly.root))
	for _, k := range t.order {
		h.Write([]byte(k))
		h.Write(t.writes[k])
	}
	for _, k := range t.order {
		t.assembly.overlay[k] = t.writes[k]
	}
	t.assembly.root = hex.EncodeToString(h.Sum(nil))
	return t.assembly.root, nil
}

// Discard drops this attempt's buffered writes. The assembly is left
// exactly as it was before Txn was called.
func (t *AttemptTxn) Discard() {
	t.closed = true
}

// hashingReplay feeds every batch operation's key and value into a
// running hash, giving Commit a cheap, order-sensitive content digest
// without re-reading the whole store on every block assembled.
type hashingReplay struct {
	h interface {
		Write([]byte) (int, error)
	}
}

func (r hashingReplay) Put(key, value []byte) {
	r.h.Write(key)
	r.h.Write(value)
}

func (r hashingReplay) Delete(key []byte) {
	r.h.Write(key)
}
