package command

import (
	"context"
	"reflect"
	"testing"
)

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{"simple", "break main.go:12", []string{"break", "main.go:12"}, false},
		{"extra spaces", "  step   over  ", []string{"step", "over"}, false},
		{"double quotes", `print "hello world"`, []string{"print", "hello world"}, false},
		{"single quotes", `ai 'what is rax'`, []string{"ai", "what is rax"}, false},
		{"escapes", `print "a\tb\n"`, []string{"print", "a\tb\n"}, false},
		{"adjacent quote", `set name="value here"`, []string{"set", "name=value here"}, false},
		{"empty", "", nil, false},
		{"unterminated double", `print "abc`, nil, true},
		{"unterminated single", `print 'abc`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitArgs(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SplitArgs(%q) error = %v", tt.input, err)
			}
			if tt.wantErr {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitArgs(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseResolvesAlias(t *testing.T) {
	registry := NewRegistry()
	registry.RegisterCommand(nopCommand("continue", "c"))

	req, err := Parse("c 3", registry, nil)
	if err != nil {
		t.Fatal(err)
	}
	if req.Name != "continue" {
		t.Errorf("name = %q", req.Name)
	}
	if req.Arg(0) != "3" {
		t.Errorf("arg = %q", req.Arg(0))
	}
	if req.Raw != "c 3" {
		t.Errorf("raw = %q", req.Raw)
	}
}

func TestParseGroupedCommand(t *testing.T) {
	router := NewRouter()
	group := NewGroup("info")
	group.Register("registers", func(ctx context.Context, req Request, env *Env) Result {
		return Success()
	})
	router.RegisterGroup("info", group)

	req, err := Parse("info registers rax", nil, router)
	if err != nil {
		t.Fatal(err)
	}
	if req.Name != "info registers" {
		t.Errorf("name = %q", req.Name)
	}
	if len(req.Args) != 1 || req.Args[0] != "rax" {
		t.Errorf("args = %v", req.Args)
	}
}

func TestParseUnknownSubStaysFlat(t *testing.T) {
	router := NewRouter()
	router.RegisterGroup("info", NewGroup("info"))

	req, err := Parse("info bogus", nil, router)
	if err != nil {
		t.Fatal(err)
	}
	if req.Name != "info" {
		t.Errorf("name = %q, want plain info", req.Name)
	}
}

func TestParseEmptyLine(t *testing.T) {
	if _, err := Parse("   ", nil, nil); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestRequestArgHelpers(t *testing.T) {
	req := Request{Name: "print", Args: []string{"a", "b"}}
	if req.Arg(1) != "b" || req.Arg(5) != "" {
		t.Error("Arg index handling wrong")
	}
	if req.ArgString() != "a b" {
		t.Errorf("ArgString = %q", req.ArgString())
	}
}
