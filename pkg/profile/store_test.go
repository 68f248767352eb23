package profile

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/chazu/teenyjvm/pkg/interp"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "profile.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndReadBack(t *testing.T) {
	store := openTestStore(t)

	prof := interp.NewProfiler()
	prof.RecordOp(interp.OpIadd)
	prof.RecordOp(interp.OpIadd)
	prof.RecordOp(interp.OpReturn)
	prof.RecordCall("main([Ljava/lang/String;)V", "", 1)

	run := NewRun("Main.class")
	run.Duration = 1500 * time.Microsecond
	run.OK = true

	if err := store.Record(run, prof); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	count, err := store.RunCount()
	if err != nil {
		t.Fatalf("RunCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("run count = %d, want 1", count)
	}

	n, err := store.OpCount(run.ID, "iadd")
	if err != nil {
		t.Fatalf("OpCount failed: %v", err)
	}
	if n != 2 {
		t.Errorf("iadd count = %d, want 2", n)
	}

	// Unknown rows read back as zero, not an error.
	n, err = store.OpCount(run.ID, "imul")
	if err != nil {
		t.Fatalf("OpCount failed: %v", err)
	}
	if n != 0 {
		t.Errorf("imul count = %d, want 0", n)
	}
}

func TestRunIDsAreUnique(t *testing.T) {
	a := NewRun("A.class")
	b := NewRun("A.class")
	if a.ID == b.ID {
		t.Errorf("two runs share ID %s", a.ID)
	}
}

func TestRecordMultipleRuns(t *testing.T) {
	store := openTestStore(t)

	for i := 0; i < 3; i++ {
		prof := interp.NewProfiler()
		prof.RecordOp(interp.OpNop)
		if err := store.Record(NewRun("Main.class"), prof); err != nil {
			t.Fatalf("Record %d failed: %v", i, err)
		}
	}

	count, err := store.RunCount()
	if err != nil {
		t.Fatalf("RunCount failed: %v", err)
	}
	if count != 3 {
		t.Errorf("run count = %d, want 3", count)
	}
}
