package observability_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/sparsetree/pkg/dtype"
	"github.com/matzehuels/sparsetree/pkg/field"
	"github.com/matzehuels/sparsetree/pkg/observability"
	"github.com/matzehuels/sparsetree/pkg/snode"
)

type recordingTreeHooks struct {
	mu     sync.Mutex
	events []string
}

func (h *recordingTreeHooks) add(format string, args ...any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, fmt.Sprintf(format, args...))
}

func (h *recordingTreeHooks) OnNodeCreated(typ string, depth int) { h.add("node %s@%d", typ, depth) }
func (h *recordingTreeHooks) OnSizePromoted(req, got int)        { h.add("promote %d->%d", req, got) }
func (h *recordingTreeHooks) OnFieldPlaced(f string, exp, shared bool) {
	h.add("place %s exp=%v shared=%v", f, exp, shared)
}
func (h *recordingTreeHooks) OnFinalized(n int, _ time.Duration, err error) {
	h.add("finalize %d err=%v", n, err != nil)
}

func TestTreeHooks(t *testing.T) {
	h := &recordingTreeHooks{}
	observability.SetTreeHooks(h)
	t.Cleanup(observability.Reset)

	tree := snode.New()
	block, err := tree.Root().Dense([]snode.Axis{0}, []int{5})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := block.Place(field.New("x", dtype.F32), nil); err != nil {
		t.Fatal(err)
	}
	if err := tree.Finalize(); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"node root@0",
		"node dense@1",
		"promote 5->8",
		"node place@2",
		"place x exp=false shared=false",
		"finalize 3 err=false",
	}
	if len(h.events) != len(want) {
		t.Fatalf("events = %q, want %q", h.events, want)
	}
	for i := range want {
		if h.events[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, h.events[i], want[i])
		}
	}
}

func TestSetNilKeepsHooks(t *testing.T) {
	h := &recordingTreeHooks{}
	observability.SetTreeHooks(h)
	t.Cleanup(observability.Reset)

	observability.SetTreeHooks(nil)
	observability.SetCacheHooks(nil)
	if observability.Tree() != observability.TreeHooks(h) {
		t.Error("SetTreeHooks(nil) replaced the registered hooks")
	}
	if _, ok := observability.Cache().(observability.NoopCacheHooks); !ok {
		t.Error("SetCacheHooks(nil) replaced the no-op hooks")
	}
}

func TestReset(t *testing.T) {
	observability.SetTreeHooks(&recordingTreeHooks{})
	observability.Reset()
	if _, ok := observability.Tree().(observability.NoopTreeHooks); !ok {
		t.Errorf("Tree() = %T after Reset", observability.Tree())
	}
}
