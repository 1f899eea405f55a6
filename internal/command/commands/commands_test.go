package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dshills/stormdbg/internal/command"
	"github.com/dshills/stormdbg/internal/config"
)

func newTestDispatcher(t *testing.T) (*command.Dispatcher, *command.Env) {
	t.Helper()
	d := command.NewWithDefaults()
	RegisterAll(d)
	env := &command.Env{
		Config:     config.New(),
		Dispatcher: d,
	}
	return d, env
}

func TestParseBreakSpec(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    breakSpec
		wantErr bool
	}{
		{
			name: "file and line",
			args: []string{"main.go:42"},
			want: breakSpec{path: "main.go", line: 42},
		},
		{
			name: "function",
			args: []string{"main.main"},
			want: breakSpec{function: "main.main"},
		},
		{
			name: "condition",
			args: []string{"main.go:42", "if", "x", ">", "3"},
			want: breakSpec{path: "main.go", line: 42, condition: "x > 3"},
		},
		{
			name: "windows path",
			args: []string{`C:\src\main.py:7`},
			want: breakSpec{path: `C:\src\main.py`, line: 7},
		},
		{
			name:    "no args",
			args:    nil,
			wantErr: true,
		},
		{
			name:    "junk after location",
			args:    []string{"main.go:42", "sometimes"},
			wantErr: true,
		},
		{
			name:    "zero line",
			args:    []string{"main.go:0"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseBreakSpec(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseBreakSpec: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseAIArgs(t *testing.T) {
	opts, question, err := parseAIArgs([]string{"-t", "0.9", "--model", "gpt-4o", "-m", "250", "why", "did", "it", "crash"})
	if err != nil {
		t.Fatalf("parseAIArgs: %v", err)
	}
	if opts.Model != "gpt-4o" {
		t.Errorf("model = %q", opts.Model)
	}
	if opts.Temperature != 0.9 {
		t.Errorf("temperature = %v", opts.Temperature)
	}
	if opts.MaxTokens != 250 {
		t.Errorf("max tokens = %d", opts.MaxTokens)
	}
	if question != "why did it crash" {
		t.Errorf("question = %q", question)
	}
}

func TestParseAIArgsErrors(t *testing.T) {
	if _, _, err := parseAIArgs([]string{"-t"}); err == nil {
		t.Error("missing temperature value should error")
	}
	if _, _, err := parseAIArgs([]string{"-t", "hot", "q"}); err == nil {
		t.Error("bad temperature should error")
	}
	if _, _, err := parseAIArgs([]string{"-m", "0", "q"}); err == nil {
		t.Error("zero max-tokens should error")
	}
}

func TestAIRequiresSession(t *testing.T) {
	d, env := newTestDispatcher(t)
	result := d.Execute(context.Background(), "ai why is rax zero", env)
	if !result.IsError() {
		t.Fatalf("expected error, got %v", result.Status)
	}
	if !strings.Contains(result.Error.Error(), "no active debug session") {
		t.Errorf("error = %v", result.Error)
	}
}

func TestControlCommandsRequireSession(t *testing.T) {
	d, env := newTestDispatcher(t)
	for _, line := range []string{"continue", "next", "step", "stepi", "finish", "interrupt", "restart", "registers", "context"} {
		result := d.Execute(context.Background(), line, env)
		if !result.IsError() {
			t.Errorf("%q without a session should error, got %v", line, result.Status)
		}
	}
}

func TestQuit(t *testing.T) {
	d, env := newTestDispatcher(t)
	result := d.Execute(context.Background(), "quit", env)
	if !result.IsQuit() {
		t.Fatalf("status = %v", result.Status)
	}
}

func TestConfigGetSetUnset(t *testing.T) {
	d, env := newTestDispatcher(t)
	ctx := context.Background()

	result := d.Execute(ctx, "config get ai.temperature", env)
	if !result.IsOK() {
		t.Fatalf("config get: %v", result.Error)
	}
	if !strings.Contains(result.Output, "0.5") {
		t.Errorf("output = %q", result.Output)
	}

	result = d.Execute(ctx, "config set ai.temperature 0.8", env)
	if !result.IsOK() {
		t.Fatalf("config set: %v", result.Error)
	}
	if got := env.Config.GetFloat("ai.temperature", 0); got != 0.8 {
		t.Errorf("temperature after set = %v", got)
	}

	result = d.Execute(ctx, "config unset ai.temperature", env)
	if !result.IsOK() {
		t.Fatalf("config unset: %v", result.Error)
	}
	if got := env.Config.GetFloat("ai.temperature", 0); got != 0.5 {
		t.Errorf("temperature after unset = %v", got)
	}

	result = d.Execute(ctx, "config get no.such.path", env)
	if !result.IsError() {
		t.Error("config get on a missing path should error")
	}
}

func TestCoerceValue(t *testing.T) {
	if v := coerceValue("true"); v != true {
		t.Errorf("bool = %v", v)
	}
	if v := coerceValue("42"); v != int64(42) {
		t.Errorf("int = %v", v)
	}
	if v := coerceValue("0.25"); v != 0.25 {
		t.Errorf("float = %v", v)
	}
	if v := coerceValue("mono"); v != "mono" {
		t.Errorf("string = %v", v)
	}
}

func TestHelpListsCommands(t *testing.T) {
	d, env := newTestDispatcher(t)
	result := d.Execute(context.Background(), "help", env)
	if !result.IsOK() {
		t.Fatalf("help: %v", result.Error)
	}
	for _, want := range []string{"break", "continue", "ai", "context", "info ..."} {
		if !strings.Contains(result.Output, want) {
			t.Errorf("help output missing %q", want)
		}
	}
}

func TestHelpSingleCommand(t *testing.T) {
	d, env := newTestDispatcher(t)
	result := d.Execute(context.Background(), "help break", env)
	if !result.IsOK() {
		t.Fatalf("help break: %v", result.Error)
	}
	if !strings.Contains(result.Output, "break <file:line | function>") {
		t.Errorf("output = %q", result.Output)
	}
	if !strings.Contains(result.Output, "aliases: b, breakpoint") {
		t.Errorf("output = %q", result.Output)
	}
}

func TestHelpUnknownCommand(t *testing.T) {
	d, env := newTestDispatcher(t)
	result := d.Execute(context.Background(), "help nope", env)
	if !result.IsError() {
		t.Error("help on an unknown command should error")
	}
}

func TestAliasesResolve(t *testing.T) {
	d, _ := newTestDispatcher(t)
	registry := d.Registry()
	for alias, want := range map[string]string{
		"c":  "continue",
		"b":  "break",
		"bt": "backtrace",
		"p":  "print",
		"x":  "hexdump",
		"q":  "quit",
	} {
		if got := registry.Resolve(alias); got != want {
			t.Errorf("Resolve(%q) = %q, want %q", alias, got, want)
		}
	}
}

func TestSourceWindow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	content := "package main\n\nfunc main() {\n\tprintln(1)\n\tprintln(2)\n}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := sourceWindow(path, 4, 1)
	if err != nil {
		t.Fatalf("sourceWindow: %v", err)
	}
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines: %q", len(lines), out)
	}
	if !strings.HasPrefix(lines[1], "-> ") || !strings.Contains(lines[1], "println(1)") {
		t.Errorf("center line = %q", lines[1])
	}

	if _, err := sourceWindow(path, 99, 1); err == nil {
		t.Error("out of range line should error")
	}
}

func TestUnknownCommand(t *testing.T) {
	d, env := newTestDispatcher(t)
	result := d.Execute(context.Background(), "frobnicate", env)
	if !result.IsError() {
		t.Fatal("expected error")
	}
	if !strings.Contains(result.Error.Error(), "undefined command") {
		t.Errorf("error = %v", result.Error)
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		arg     string
		want    int
		wantErr bool
	}{
		{"", 1, false},
		{"1", 1, false},
		{"5", 5, false},
		{"0", 0, true},
		{"-2", 0, true},
		{"five", 0, true},
	}
	for _, tt := range tests {
		got, err := parseCount(tt.arg)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseCount(%q) error = %v, wantErr %v", tt.arg, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseCount(%q) = %d, want %d", tt.arg, got, tt.want)
		}
	}
}
