package pack

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/contentstore/cas/internal/casfs"
)

func TestLockAcquireRelease(t *testing.T) {
	root := t.TempDir()
	l := NewLock(root)
	if err := l.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, casfs.LockFile)); !os.IsNotExist(err) {
		t.Errorf("lock file should be gone after Release, stat err = %v", err)
	}
}

func TestLockConflictWhileHeld(t *testing.T) {
	root := t.TempDir()
	l1 := NewLock(root)
	if err := l1.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer l1.Release()

	// Overwrite with our own PID so the "holder" looks alive for this test.
	if err := os.WriteFile(filepath.Join(root, casfs.LockFile), []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		t.Fatal(err)
	}

	l2 := NewLock(root)
	if err := l2.Acquire(); err != casfs.ErrConflict {
		t.Errorf("Acquire while held = %v, want ErrConflict", err)
	}
}

func TestLockReclaimsStale(t *testing.T) {
	root := t.TempDir()
	lockPath := filepath.Join(root, casfs.LockFile)
	// A PID that is extremely unlikely to be alive.
	if err := os.WriteFile(lockPath, []byte("999999"), 0644); err != nil {
		t.Fatal(err)
	}
	l := NewLock(root)
	if err := l.Acquire(); err != nil {
		t.Fatalf("Acquire should reclaim stale lock: %v", err)
	}
	l.Release()
}
