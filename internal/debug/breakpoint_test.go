package debug

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dshills/stormdbg/internal/dap"
)

func TestBreakpointAddLine(t *testing.T) {
	session, transport := newTestSession()
	defer session.Close()
	store := NewBreakpointStore(session)

	transport.succeed("setBreakpoints", `{"breakpoints":[{"id":100,"verified":true,"line":12}]}`)

	bp, err := store.AddLine(context.Background(), "/src/main.go", 12, "")
	if err != nil {
		t.Fatalf("AddLine failed: %v", err)
	}
	if bp.ID != 1 {
		t.Errorf("ID = %d, want 1", bp.ID)
	}
	if !bp.Verified || bp.ActualLine != 12 {
		t.Errorf("verified = %v, actualLine = %d", bp.Verified, bp.ActualLine)
	}
	if bp.Location() != "main.go:12" {
		t.Errorf("Location() = %q", bp.Location())
	}
}

func TestBreakpointSyncSendsEnabledOnly(t *testing.T) {
	session, transport := newTestSession()
	defer session.Close()
	store := NewBreakpointStore(session)

	transport.succeed("setBreakpoints",
		`{"breakpoints":[{"verified":true,"line":5},{"verified":true,"line":20}]}`)

	if _, err := store.AddLine(context.Background(), "/src/main.go", 20, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddLine(context.Background(), "/src/main.go", 5, ""); err != nil {
		t.Fatal(err)
	}

	transport.succeed("setBreakpoints", `{"breakpoints":[{"verified":true,"line":20}]}`)
	if err := store.SetEnabled(context.Background(), 2, false); err != nil {
		t.Fatalf("SetEnabled failed: %v", err)
	}

	req, ok := transport.lastRequest("setBreakpoints")
	if !ok {
		t.Fatal("no setBreakpoints request")
	}
	var args dap.SetBreakpointsArguments
	if err := json.Unmarshal(req.Arguments, &args); err != nil {
		t.Fatal(err)
	}
	if len(args.Breakpoints) != 1 || args.Breakpoints[0].Line != 20 {
		t.Errorf("wire breakpoints = %+v, want only line 20", args.Breakpoints)
	}
}

func TestBreakpointWireSortedByLine(t *testing.T) {
	session, transport := newTestSession()
	defer session.Close()
	store := NewBreakpointStore(session)

	transport.succeed("setBreakpoints", `{"breakpoints":[{"verified":true,"line":3}]}`)
	if _, err := store.AddLine(context.Background(), "/src/a.go", 30, ""); err != nil {
		t.Fatal(err)
	}

	transport.succeed("setBreakpoints",
		`{"breakpoints":[{"verified":true,"line":3},{"verified":true,"line":30}]}`)
	if _, err := store.AddLine(context.Background(), "/src/a.go", 3, ""); err != nil {
		t.Fatal(err)
	}

	req, _ := transport.lastRequest("setBreakpoints")
	var args dap.SetBreakpointsArguments
	if err := json.Unmarshal(req.Arguments, &args); err != nil {
		t.Fatal(err)
	}
	if len(args.Breakpoints) != 2 || args.Breakpoints[0].Line != 3 || args.Breakpoints[1].Line != 30 {
		t.Errorf("wire breakpoints not sorted: %+v", args.Breakpoints)
	}
}

func TestBreakpointRemoveUnknown(t *testing.T) {
	session, _ := newTestSession()
	defer session.Close()
	store := NewBreakpointStore(session)

	if err := store.Remove(context.Background(), 42); err == nil {
		t.Fatal("expected error removing unknown breakpoint")
	}
}

func TestBreakpointConditionalRequiresCapability(t *testing.T) {
	session, _ := newTestSession()
	defer session.Close()
	session.stateMu.Lock()
	session.capabilities = &dap.Capabilities{}
	session.stateMu.Unlock()

	store := NewBreakpointStore(session)
	if _, err := store.AddLine(context.Background(), "/src/main.go", 1, "x > 0"); err == nil {
		t.Fatal("expected error for unsupported conditional breakpoint")
	}
}

func TestBreakpointFunctionKind(t *testing.T) {
	session, transport := newTestSession()
	defer session.Close()
	session.stateMu.Lock()
	session.capabilities = &dap.Capabilities{SupportsFunctionBreakpoints: true}
	session.stateMu.Unlock()

	transport.succeed("setFunctionBreakpoints", `{"breakpoints":[{"id":5,"verified":true}]}`)

	store := NewBreakpointStore(session)
	bp, err := store.AddFunction(context.Background(), "main.main", "")
	if err != nil {
		t.Fatalf("AddFunction failed: %v", err)
	}
	if bp.Kind != BreakpointFunction {
		t.Errorf("kind = %v", bp.Kind)
	}
	if bp.Location() != "main.main" {
		t.Errorf("Location() = %q", bp.Location())
	}
	if !bp.Verified {
		t.Error("expected verified")
	}
}

func TestBreakpointRecordHit(t *testing.T) {
	session, transport := newTestSession()
	defer session.Close()
	store := NewBreakpointStore(session)

	transport.succeed("setBreakpoints", `{"breakpoints":[{"id":77,"verified":true,"line":9}]}`)
	bp, err := store.AddLine(context.Background(), "/src/main.go", 9, "")
	if err != nil {
		t.Fatal(err)
	}

	store.RecordHit([]int{77})
	store.RecordHit([]int{1, 77})
	store.RecordHit([]int{3})

	got, _ := store.Get(bp.ID)
	if got.HitCount != 2 {
		t.Errorf("hit count = %d, want 2", got.HitCount)
	}
}

func TestBreakpointSaveLoad(t *testing.T) {
	session, transport := newTestSession()
	defer session.Close()
	store := NewBreakpointStore(session)

	transport.succeed("setBreakpoints", `{"breakpoints":[{"verified":true,"line":9}]}`)
	if _, err := store.AddLine(context.Background(), "/src/main.go", 9, ""); err != nil {
		t.Fatal(err)
	}

	path := t.TempDir() + "/breakpoints.json"
	if err := store.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	session2, _ := newTestSession()
	defer session2.Close()
	store2 := NewBreakpointStore(session2)
	if err := store2.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	all := store2.All()
	if len(all) != 1 {
		t.Fatalf("loaded %d breakpoints, want 1", len(all))
	}
	if all[0].Path != "/src/main.go" || all[0].Line != 9 || !all[0].Enabled {
		t.Errorf("loaded breakpoint = %+v", all[0])
	}
}
