package store

import (
	"errors"
	"os"
	"testing"

	"github.com/cuemby/kvlog/pkg/types"
)

func newBoltForTest(t *testing.T) *BoltStore {
	t.Helper()
	dir, err := os.MkdirTemp("", "kvlog-store-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	s, err := Open(Options{Dir: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBoltStorePutGetDelete(t *testing.T) {
	testPutGetDelete(t, newBoltForTest(t))
}

func TestMemoryStorePutGetDelete(t *testing.T) {
	testPutGetDelete(t, NewMemoryStore())
}

func testPutGetDelete(t *testing.T, s Store) {
	t.Helper()

	if _, ok, err := s.Get([]byte("missing")); err != nil || ok {
		t.Fatalf("Get(missing) = ok=%v err=%v, want ok=false err=nil", ok, err)
	}

	if err := s.Put([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	v, ok, err := s.Get([]byte("a"))
	if err != nil || !ok || string(v) != "1" {
		t.Fatalf("Get(a) = %q ok=%v err=%v, want 1 true nil", v, ok, err)
	}

	if err := s.Delete([]byte("a")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get([]byte("a")); ok {
		t.Fatal("key still present after delete")
	}

	// Deleting an absent key is not an error.
	if err := s.Delete([]byte("a")); err != nil {
		t.Fatalf("Delete(absent): %v", err)
	}
}

func TestBoltStoreForwardIteration(t *testing.T) {
	s := newBoltForTest(t)
	testForwardIteration(t, s)
}

func TestMemoryStoreForwardIteration(t *testing.T) {
	testForwardIteration(t, NewMemoryStore())
}

func testForwardIteration(t *testing.T, s Store) {
	t.Helper()
	keys := []string{"b", "a", "c"}
	for _, k := range keys {
		if err := s.Put([]byte(k), []byte(k+"v")); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	cur := s.NewCursor()
	defer cur.Close()

	var got []string
	k, v, ok, err := cur.First()
	for ok {
		if err != nil {
			t.Fatalf("iteration error: %v", err)
		}
		got = append(got, string(k)+"="+string(v))
		k, v, ok, err = cur.Next()
	}
	if err != nil {
		t.Fatalf("final iteration error: %v", err)
	}

	want := []string{"a=av", "b=bv", "c=cv"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestBoltStoreReverseAndSeek(t *testing.T) {
	s := newBoltForTest(t)
	for _, k := range []string{"a", "b", "c"} {
		if err := s.Put([]byte(k), []byte(k)); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	cur := s.NewCursor()
	defer cur.Close()

	k, _, ok, err := cur.Last()
	if err != nil || !ok || string(k) != "c" {
		t.Fatalf("Last() = %q ok=%v err=%v, want c true nil", k, ok, err)
	}
	k, _, ok, err = cur.Prev()
	if err != nil || !ok || string(k) != "b" {
		t.Fatalf("Prev() = %q ok=%v err=%v, want b true nil", k, ok, err)
	}

	k, _, ok, err = cur.Seek([]byte("b"))
	if err != nil || !ok || string(k) != "b" {
		t.Fatalf("Seek(b) = %q ok=%v err=%v, want b true nil", k, ok, err)
	}
}

func TestMemoryStoreUnsupportedOperations(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Put([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	cur := s.NewCursor()
	defer cur.Close()

	if _, _, _, err := cur.Last(); !errors.Is(err, types.ErrUnsupportedOperation) {
		t.Errorf("Last() err = %v, want ErrUnsupportedOperation", err)
	}
	if _, _, _, err := cur.Seek([]byte("a")); !errors.Is(err, types.ErrUnsupportedOperation) {
		t.Errorf("Seek() err = %v, want ErrUnsupportedOperation", err)
	}
	if _, _, _, err := cur.Prev(); !errors.Is(err, types.ErrUnsupportedOperation) {
		t.Errorf("Prev() err = %v, want ErrUnsupportedOperation", err)
	}
	if err := s.Compact(); !errors.Is(err, types.ErrUnsupportedOperation) {
		t.Errorf("Compact() err = %v, want ErrUnsupportedOperation", err)
	}
	if s.SupportsPrefix() || s.SupportsReverse() {
		t.Error("memory store should not report prefix/reverse support")
	}
}

func TestBoltStoreCompact(t *testing.T) {
	s := newBoltForTest(t)
	for i := 0; i < 100; i++ {
		if err := s.Put([]byte{byte(i)}, []byte("value")); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	for i := 0; i < 100; i += 2 {
		if err := s.Delete([]byte{byte(i)}); err != nil {
			t.Fatalf("Delete: %v", err)
		}
	}
	if err := s.Compact(); err != nil {
		t.Fatalf("Compact: %v", err)
	}
	v, ok, err := s.Get([]byte{1})
	if err != nil || !ok || string(v) != "value" {
		t.Fatalf("Get after compact = %q ok=%v err=%v", v, ok, err)
	}
	if _, ok, _ := s.Get([]byte{0}); ok {
		t.Fatal("deleted key survived compact")
	}
}
