package registry

import (
	"testing"

	"github.com/openidn/idnserver/internal/adapter"
)

func TestFirstRegisteredIsDefault(t *testing.T) {
	r := New()
	r.Register(Service{ID: 1, Mode: 0, Adapter: adapter.NewDummy(30000)})
	all := r.All()
	if all[0].Flags&ServiceFlagDefault == 0 {
		t.Fatal("first registered service must be flagged default")
	}
}

func TestResolveUnknownFails(t *testing.T) {
	r := New()
	if _, err := r.Resolve(99, 0); err == nil {
		t.Fatal("expected error resolving unregistered service")
	}
}

func TestResolveFound(t *testing.T) {
	r := New()
	a := adapter.NewDummy(30000)
	r.Register(Service{ID: 1, Mode: 0, Adapter: a})
	svc, err := r.Resolve(1, 0)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if svc.Adapter != adapter.Adapter(a) {
		t.Fatal("resolved wrong adapter")
	}
}

func TestNameTruncatedTo20Bytes(t *testing.T) {
	svc := Service{Adapter: &nameAdapter{adapter.NewDummy(30000), "ThisNameIsWayTooLongForTheField"}}
	if len(svc.Name()) != 20 {
		t.Fatalf("Name() len = %d, want 20", len(svc.Name()))
	}
}

type nameAdapter struct {
	adapter.Adapter
	name string
}

func (n *nameAdapter) Name() string { return n.name }
