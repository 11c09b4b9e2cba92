package wsserver

import (
	"testing"

	"github.com/wsgate-dev/wsgate/pkg/wsengine"
)

func TestRegistryInsertIdempotent(t *testing.T) {
	r := newClientRegistry()
	s := wsengine.NewSession()

	r.insert(s)
	r.insert(s)

	if got := r.size(); got != 1 {
		t.Errorf("size = %d, want 1", got)
	}
}

func TestRegistryErase(t *testing.T) {
	r := newClientRegistry()
	s := wsengine.NewSession()

	if got := r.erase(s); got != 0 {
		t.Errorf("erase of absent session = %d, want 0", got)
	}

	r.insert(s)
	if got := r.erase(s); got != 1 {
		t.Errorf("erase = %d, want 1", got)
	}
	if got := r.erase(s); got != 0 {
		t.Errorf("second erase = %d, want 0", got)
	}
	if got := r.size(); got != 0 {
		t.Errorf("size after erase = %d, want 0", got)
	}
}

func TestRegistrySnapshotIndependent(t *testing.T) {
	r := newClientRegistry()
	a := wsengine.NewSession()
	b := wsengine.NewSession()
	r.insert(a)
	r.insert(b)

	snap := r.snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot length = %d, want 2", len(snap))
	}

	r.erase(a)
	r.erase(b)

	// The snapshot is a copy; mutating the registry does not touch it.
	if len(snap) != 2 {
		t.Errorf("snapshot length after erase = %d, want 2", len(snap))
	}
	if got := r.size(); got != 0 {
		t.Errorf("size = %d, want 0", got)
	}
}
