package state

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestStorage(t *testing.T) *FileStorage {
	t.Helper()
	return NewFileStorage(filepath.Join(t.TempDir(), "nested", "session.json"), testLogger())
}

// ---------------------------------------------------------------------------
// Get / Set / Delete
// ---------------------------------------------------------------------------

func TestGet_NoFile_IsEmpty(t *testing.T) {
	s := newTestStorage(t)

	v, ok, err := s.Get(context.Background(), "accessToken")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if ok || v != "" {
		t.Errorf("Get() = %q, %v; want absent", v, ok)
	}
	if s.Exists() {
		t.Error("Get() must not create the file")
	}
}

func TestSetGet_RoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if err := s.Set(ctx, "accessToken", "t1"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := s.Set(ctx, "userProfile", `{"full_name":"Marta"}`); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	// A fresh instance sees what the first one wrote.
	other := NewFileStorage(s.Path(), testLogger())
	v, ok, err := other.Get(ctx, "userProfile")
	if err != nil || !ok {
		t.Fatalf("Get() = ok:%v err:%v", ok, err)
	}
	if v != `{"full_name":"Marta"}` {
		t.Errorf("Get() = %q", v)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if err := s.Delete(ctx, "accessToken"); err != nil {
		t.Fatalf("Delete() on missing file error: %v", err)
	}
	if s.Exists() {
		t.Error("deleting an absent key must not create the file")
	}

	_ = s.Set(ctx, "accessToken", "t1")
	_ = s.Set(ctx, "userRole", "admin")
	if err := s.Delete(ctx, "accessToken"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	if _, ok, _ := s.Get(ctx, "accessToken"); ok {
		t.Error("accessToken should be gone")
	}
	if v, ok, _ := s.Get(ctx, "userRole"); !ok || v != "admin" {
		t.Errorf("userRole = %q, %v; want admin kept", v, ok)
	}

	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if strings.Contains(string(data), "t1") {
		t.Error("deleted value still present on disk")
	}
}

// ---------------------------------------------------------------------------
// File properties
// ---------------------------------------------------------------------------

func TestSet_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions only")
	}
	s := newTestStorage(t)

	if err := s.Set(context.Background(), "accessToken", "t1"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	info, err := os.Stat(s.Path())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file mode = %04o, want 0600", perm)
	}
	if _, err := os.Stat(s.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should not remain after write")
	}
}

func TestGet_CorruptFile(t *testing.T) {
	s := newTestStorage(t)
	if err := os.MkdirAll(filepath.Dir(s.Path()), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.Path(), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, _, err := s.Get(context.Background(), "accessToken"); err == nil {
		t.Fatal("expected parse error for corrupt file")
	}
}

func TestSet_ConcurrentWriters(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	keys := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, k := range keys {
		wg.Add(1)
		go func(k string) {
			defer wg.Done()
			if err := s.Set(ctx, k, "v-"+k); err != nil {
				t.Errorf("Set(%s) error: %v", k, err)
			}
		}(k)
	}
	wg.Wait()

	for _, k := range keys {
		if v, ok, _ := s.Get(ctx, k); !ok || v != "v-"+k {
			t.Errorf("Get(%s) = %q, %v", k, v, ok)
		}
	}
}
