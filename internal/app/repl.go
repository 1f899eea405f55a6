package app

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/stormdbg/internal/command"
)

const prompt = "(stormdbg) "

// Run reads command lines until quit or end of input. An empty line
// repeats the previous command, GDB style.
func (a *Application) Run() error {
	scanner := bufio.NewScanner(a.in)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)

	var lastLine string
	for {
		fmt.Fprint(a.out, prompt)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			if lastLine == "" {
				continue
			}
			line = lastLine
		} else {
			lastLine = line
		}

		result := a.dispatcher.Execute(context.Background(), line, a.env())
		a.printResult(result)

		if result.IsQuit() {
			return ErrQuit
		}
	}
}

// printResult writes a command result to the REPL output.
func (a *Application) printResult(result command.Result) {
	switch {
	case result.IsError():
		a.printer.Error("%v", result.Error)
	case result.Output != "":
		a.printer.Println(result.Output)
	}
}

// onStopped runs when the debuggee suspends: refresh the stack, record
// breakpoint hits, and print the context display.
func (a *Application) onStopped(reason string, threadID int, allStopped bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.stack != nil {
		a.stack.Invalidate()
		if err := a.stack.Refresh(ctx, threadID); err != nil {
			a.log.Debug("stack refresh on stop: %v", err)
		}
	}

	a.printer.Println("")
	a.printer.Muted(fmt.Sprintf("stopped: %s (thread %d)", reason, threadID))

	if a.opts.TUI {
		if err := a.showView(ctx, a.env()); err != nil {
			a.log.Warn("context view: %v", err)
		}
	} else {
		result := a.dispatcher.Execute(ctx, "context", a.env())
		if result.IsError() {
			a.log.Debug("context on stop: %v", result.Error)
		}
	}
	a.printer.Print(prompt)
}

// onOutput forwards debuggee output to the REPL.
func (a *Application) onOutput(category, output string) {
	if category == "telemetry" {
		return
	}
	a.printer.Print(output)
}

// onTerminated announces the end of the debuggee.
func (a *Application) onTerminated() {
	a.printer.Muted("target terminated")
}
