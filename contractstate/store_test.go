package contractstate

import (
	"testing"
)

func TestCommitChangesRootAndRollbackRestoresIt(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, "state")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	preRoot, err := store.CurrentRoot()
	if err != nil {
		t.Fatalf("CurrentRoot: %v", err)
	}

	txn, err := store.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := txn.Put([]byte("balance:alice"), []byte("100")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	newRoot, err := txn.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if newRoot == preRoot {
		t.Fatalf("expected root to change after a commit")
	}

	got, err := store.CurrentRoot()
	if err != nil {
		t.Fatalf("CurrentRoot: %v", err)
	}
	if got != newRoot {
		t.Fatalf("CurrentRoot() = %s, want %s", got, newRoot)
	}

	if err := store.RollbackTo(preRoot); err != nil {
		t.Fatalf("RollbackTo: %v", err)
	}
	got, err = store.CurrentRoot()
	if err != nil {
		t.Fatalf("CurrentRoot: %v", err)
	}
	if got != preRoot {
		t.Fatalf("after RollbackTo, CurrentRoot() = %s, want %s", got, preRoot)
	}
}

func TestAssemblyKeepsWritesInMemoryOnly(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, "state")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	asm, err := store.BeginAssembly()
	if err != nil {
		t.Fatalf("BeginAssembly: %v", err)
	}

	txn := asm.Txn()
	if err := txn.Put([]byte("balance:alice"), []byte("100")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := txn.Keep(); err != nil {
		t.Fatalf("Keep: %v", err)
	}

	// A later attempt within the same assembly must see the kept write.
	txn2 := asm.Txn()
	v, err := txn2.Get([]byte("balance:alice"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(v) != "100" {
		t.Fatalf("expected the kept write to be visible within the assembly, got %q", v)
	}
	txn2.Discard()
	asm.Close()

	// Nothing the assembly kept was ever written to the database: a
	// fresh read against the real store must not see it.
	real, err := store.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	v, err = real.Get([]byte("balance:alice"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != nil {
		t.Fatalf("assembly write leaked into the database: got %q", v)
	}
	_ = real.Rollback()
}

func TestAttemptTxnDiscardDropsBufferedWrites(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, "state")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	asm, err := store.BeginAssembly()
	if err != nil {
		t.Fatalf("BeginAssembly: %v", err)
	}
	defer asm.Close()

	preRoot := asm.Root()
	txn := asm.Txn()
	if err := txn.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	txn.Discard()

	if asm.Root() != preRoot {
		t.Fatalf("a discarded attempt must not change the assembly root")
	}
	v, err := asm.Txn().Get([]byte("k"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != nil {
		t.Fatalf("a discarded attempt's writes must not be visible")
	}
}

func TestRollbackDiscardsBufferedWrites(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, "state")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	preRoot, err := store.CurrentRoot()
	if err != nil {
		t.Fatalf("CurrentRoot: %v", err)
	}

	txn, err := store.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := txn.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := txn.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	got, err := store.CurrentRoot()
	if err != nil {
		t.Fatalf("CurrentRoot: %v", err)
	}
	if got != preRoot {
		t.Fatalf("root changed after a rolled-back transaction: got %s, want %s", got, preRoot)
	}
}
