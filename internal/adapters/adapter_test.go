package adapters

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/dshills/stormdbg/internal/config"
)

func TestRegistryCreate(t *testing.T) {
	r := NewRegistry()

	for _, typ := range []Type{TypeDelve, TypePython, TypeGDB} {
		a, err := r.Create(typ, Options{})
		if err != nil {
			t.Fatalf("Create(%s): %v", typ, err)
		}
		if a.Type() != typ {
			t.Errorf("Type() = %s, want %s", a.Type(), typ)
		}
	}

	if _, err := r.Create("visualbasic", Options{}); err == nil {
		t.Error("unknown type should error")
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		program string
		want    Type
		wantErr bool
	}{
		{"./cmd/server/main.go", TypeDelve, false},
		{"script.py", TypePython, false},
		{"crashme.c", TypeGDB, false},
		{"a.out", TypeGDB, false},
		{"target.bin", TypeGDB, false},
		{"./build/server", TypeGDB, false},
		{"app.js", "", true},
		{"deploy.sh", "", true},
	}

	for _, tt := range tests {
		got, err := Detect(tt.program)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Detect(%q) should error", tt.program)
			}
			continue
		}
		if err != nil {
			t.Errorf("Detect(%q): %v", tt.program, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Detect(%q) = %s, want %s", tt.program, got, tt.want)
		}
	}
}

func TestDelveLaunchArgs(t *testing.T) {
	a := NewDelve(Options{Port: 38697})

	body, err := a.LaunchArgs(config.LaunchConfig{
		Program:     "./cmd/server",
		Args:        []string{"-v"},
		Cwd:         "/src/app",
		StopOnEntry: true,
	})
	if err != nil {
		t.Fatalf("LaunchArgs: %v", err)
	}

	args := body.(map[string]any)
	if args["mode"] != "debug" {
		t.Errorf("mode = %v", args["mode"])
	}
	if args["program"] != "./cmd/server" {
		t.Errorf("program = %v", args["program"])
	}
	if args["stopOnEntry"] != true {
		t.Errorf("stopOnEntry = %v", args["stopOnEntry"])
	}
	if args["cwd"] != "/src/app" {
		t.Errorf("cwd = %v", args["cwd"])
	}

	if _, err := a.LaunchArgs(config.LaunchConfig{}); err == nil {
		t.Error("missing program should error")
	}
}

func TestDelveAttachArgs(t *testing.T) {
	a := NewDelve(Options{})

	body, err := a.AttachArgs(config.LaunchConfig{ProcessID: 4242})
	if err != nil {
		t.Fatalf("AttachArgs: %v", err)
	}
	args := body.(map[string]any)
	if args["mode"] != "local" || args["processId"] != 4242 {
		t.Errorf("args = %v", args)
	}

	if _, err := a.AttachArgs(config.LaunchConfig{}); err == nil {
		t.Error("missing pid should error")
	}
}

func TestDelveConnection(t *testing.T) {
	a := NewDelve(Options{Host: "localhost", Port: 38697})
	if a.Connection() != ConnSocket {
		t.Errorf("connection = %s", a.Connection())
	}
	if a.Address() != "localhost:38697" {
		t.Errorf("address = %s", a.Address())
	}
}

func TestPythonAttachArgs(t *testing.T) {
	a := NewPython(Options{Port: 5678})

	body, err := a.AttachArgs(config.LaunchConfig{Port: 5679})
	if err != nil {
		t.Fatalf("AttachArgs: %v", err)
	}
	args := body.(map[string]any)
	connect, ok := args["connect"].(map[string]any)
	if !ok || connect["port"] != 5679 {
		t.Errorf("args = %v", args)
	}

	if _, err := a.AttachArgs(config.LaunchConfig{}); err == nil {
		t.Error("attach without pid or port should error")
	}
}

func TestGDBLaunchArgs(t *testing.T) {
	a := NewGDB(Options{})
	if a.Connection() != ConnStdio {
		t.Errorf("connection = %s", a.Connection())
	}

	body, err := a.LaunchArgs(config.LaunchConfig{
		Program:     "./crashme",
		StopOnEntry: true,
		Env:         map[string]string{"RUST_BACKTRACE": "1"},
	})
	if err != nil {
		t.Fatalf("LaunchArgs: %v", err)
	}
	args := body.(map[string]any)
	if args["stopAtBeginning"] != true {
		t.Errorf("stopAtBeginning = %v", args["stopAtBeginning"])
	}
	env, ok := args["env"].([]string)
	if !ok || len(env) != 1 || env[0] != "RUST_BACKTRACE=1" {
		t.Errorf("env = %v", args["env"])
	}
}

func TestWaitForPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := WaitForPort(ctx, "127.0.0.1", port); err != nil {
		t.Errorf("WaitForPort on a listening port: %v", err)
	}
}

func TestWaitForPortTimeout(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if err := WaitForPort(ctx, "127.0.0.1", port); err == nil {
		t.Error("WaitForPort on a closed port should time out")
	} else if fmt.Sprint(err) == "" {
		t.Error("empty error")
	}
}
