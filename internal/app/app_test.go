package app

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func newTestApp(t *testing.T, opts Options) *Application {
	t.Helper()
	if opts.ConfigPath == "" {
		opts.ConfigPath = filepath.Join(t.TempDir(), "config.json")
	}
	a, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Shutdown)
	return a
}

func TestReplQuit(t *testing.T) {
	var out bytes.Buffer
	a := newTestApp(t, Options{
		In:  strings.NewReader("quit\n"),
		Out: &out,
	})

	if err := a.Run(); err != ErrQuit {
		t.Fatalf("Run = %v, want ErrQuit", err)
	}
	if !strings.Contains(out.String(), prompt) {
		t.Error("prompt not printed")
	}
}

func TestReplEOF(t *testing.T) {
	a := newTestApp(t, Options{
		In:  strings.NewReader(""),
		Out: &bytes.Buffer{},
	})
	if err := a.Run(); err != nil {
		t.Fatalf("Run on EOF = %v, want nil", err)
	}
}

func TestReplRepeatsLastCommand(t *testing.T) {
	var out bytes.Buffer
	a := newTestApp(t, Options{
		In:  strings.NewReader("config get ai.provider\n\nquit\n"),
		Out: &out,
	})

	if err := a.Run(); err != ErrQuit {
		t.Fatalf("Run = %v", err)
	}
	if got := strings.Count(out.String(), `ai.provider = "openai"`); got != 2 {
		t.Errorf("repeated command printed %d times, want 2\noutput: %s", got, out.String())
	}
}

func TestReplReportsErrors(t *testing.T) {
	var out bytes.Buffer
	a := newTestApp(t, Options{
		In:  strings.NewReader("frobnicate\nquit\n"),
		Out: &out,
	})

	if err := a.Run(); err != ErrQuit {
		t.Fatalf("Run = %v", err)
	}
	if !strings.Contains(out.String(), "undefined command") {
		t.Errorf("output = %q", out.String())
	}
}

func TestCommandsWithoutSession(t *testing.T) {
	var out bytes.Buffer
	a := newTestApp(t, Options{
		In:  strings.NewReader("continue\nregisters\nai why\nquit\n"),
		Out: &out,
	})

	if err := a.Run(); err != ErrQuit {
		t.Fatalf("Run = %v", err)
	}
	if !strings.Contains(out.String(), "no active debug session") {
		t.Errorf("output = %q", out.String())
	}
}

func TestPickAdapterType(t *testing.T) {
	a := newTestApp(t, Options{Program: "main.go", In: strings.NewReader(""), Out: &bytes.Buffer{}})
	typ, err := a.pickAdapterType()
	if err != nil {
		t.Fatalf("pickAdapterType: %v", err)
	}
	if string(typ) != "delve" {
		t.Errorf("type = %s", typ)
	}

	b := newTestApp(t, Options{In: strings.NewReader(""), Out: &bytes.Buffer{}})
	if _, err := b.pickAdapterType(); err == nil {
		t.Error("no program and no adapter should error")
	}
}

func TestArchHint(t *testing.T) {
	dir := t.TempDir()
	launchPath := filepath.Join(dir, "launch.json")
	content := `{"launch": [{"name": "embedded", "program": "./fw.elf", "arch": "arm64"}]}`
	if err := os.WriteFile(launchPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	a := newTestApp(t, Options{
		LaunchFile: launchPath,
		In:         strings.NewReader(""),
		Out:        &bytes.Buffer{},
	})
	if got := a.archHint(); got != "arm64" {
		t.Errorf("archHint = %q, want the launch config's arch", got)
	}

	b := newTestApp(t, Options{In: strings.NewReader(""), Out: &bytes.Buffer{}})
	if err := b.cfg.Set("target.arch", "i386"); err != nil {
		t.Fatal(err)
	}
	if got := b.archHint(); got != "i386" {
		t.Errorf("archHint = %q, want the target.arch key", got)
	}

	c := newTestApp(t, Options{In: strings.NewReader(""), Out: &bytes.Buffer{}})
	if got := c.archHint(); got != runtime.GOARCH {
		t.Errorf("archHint = %q, want the host fallback", got)
	}
}

func TestSplitHostPort(t *testing.T) {
	host, port, err := splitHostPort("127.0.0.1:38697")
	if err != nil {
		t.Fatalf("splitHostPort: %v", err)
	}
	if host != "127.0.0.1" || port != 38697 {
		t.Errorf("got %s:%d", host, port)
	}
	if _, _, err := splitHostPort("nonsense"); err == nil {
		t.Error("bad address should error")
	}
}

func TestLaunchFileLoading(t *testing.T) {
	dir := t.TempDir()
	launchPath := filepath.Join(dir, "launch.json")
	content := `{"launch": [{"name": "web", "mode": "launch", "program": "./cmd/web"}]}`
	if err := os.WriteFile(launchPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	a := newTestApp(t, Options{
		LaunchFile: launchPath,
		In:         strings.NewReader(""),
		Out:        &bytes.Buffer{},
	})

	configs := a.launchConfigs()
	if len(configs) != 1 || configs[0].Name != "web" {
		t.Errorf("launch configs = %+v", configs)
	}

	typ, err := a.pickAdapterType()
	if err != nil {
		t.Fatalf("pickAdapterType: %v", err)
	}
	if string(typ) != "gdb" {
		t.Errorf("type = %s (./cmd/web has no extension)", typ)
	}
}
