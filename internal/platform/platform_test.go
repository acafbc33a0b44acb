package platform

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestSingleInstance(t *testing.T) {
	name := "FeedFloat-test-" + t.Name()
	guard, err := AcquireSingleInstance(name)
	if err != nil {
		t.Skipf("port unavailable on this machine: %v", err)
	}
	defer func() { _ = guard.Release() }()

	if _, err := AcquireSingleInstance(name); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second acquire = %v, want ErrAlreadyRunning", err)
	}
	if guard.Address() == "" {
		t.Error("guard should report its address")
	}
}

func TestPortFromNameIsStable(t *testing.T) {
	first := portFromName("FeedFloat")
	if first != portFromName("FeedFloat") || first < 20000 || first > 39999 {
		t.Fatalf("unexpected port %d", first)
	}
}

func TestDataDirHonoursXDG(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_DATA_HOME", base)
	dir, err := DataDir("Feed Float")
	if err != nil {
		t.Fatalf("DataDir failed: %v", err)
	}
	if dir != filepath.Join(base, "feed-float") {
		t.Errorf("DataDir = %q", dir)
	}
}
