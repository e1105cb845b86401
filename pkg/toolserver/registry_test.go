package toolserver_test

import (
	"context"
	"testing"

	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/auth"
	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/toolserver"
)

func noopHandler(ctx context.Context, args map[string]any, id *auth.Identity) (any, error) {
	return nil, nil
}

func TestRegistry_OrderAndLookup(t *testing.T) {
	reg := toolserver.NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		reg.Register(toolserver.Tool{Name: name, Handler: noopHandler})
	}

	list := reg.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 tools, got %d", len(list))
	}
	// Registration order, not sorted.
	if list[0].Name != "zeta" || list[1].Name != "alpha" || list[2].Name != "mid" {
		t.Fatalf("unexpected order: %v", []string{list[0].Name, list[1].Name, list[2].Name})
	}

	if _, ok := reg.Lookup("alpha"); !ok {
		t.Fatal("expected lookup to find alpha")
	}
	if _, ok := reg.Lookup("missing"); ok {
		t.Fatal("expected lookup to miss")
	}
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	reg := toolserver.NewRegistry()
	reg.Register(toolserver.Tool{Name: "dup", Handler: noopHandler})

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	reg.Register(toolserver.Tool{Name: "dup", Handler: noopHandler})
}

func TestRegistry_MissingHandlerPanics(t *testing.T) {
	reg := toolserver.NewRegistry()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for tool without handler")
		}
	}()
	reg.Register(toolserver.Tool{Name: "hollow"})
}
