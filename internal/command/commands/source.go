package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dshills/stormdbg/internal/command"
)

func registerSource(d *command.Dispatcher) {
	d.RegisterCommand(&command.Command{
		Name:    "list",
		Aliases: []string{"l"},
		Usage:   "list [line]",
		Summary: "list source around the current line",
		Fn:      cmdList,
	})
}

// sourceWindow reads radius lines around center from the file and
// renders them with line numbers, marking the center line.
func sourceWindow(path string, center, radius int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if center < 1 || center > len(lines) {
		return "", fmt.Errorf("line %d out of range for %s", center, path)
	}

	start := center - radius
	if start < 1 {
		start = 1
	}
	end := center + radius
	if end > len(lines) {
		end = len(lines)
	}

	var b strings.Builder
	for n := start; n <= end; n++ {
		marker := "  "
		if n == center {
			marker = "->"
		}
		fmt.Fprintf(&b, "%s %4d  %s\n", marker, n, lines[n-1])
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func cmdList(ctx context.Context, req command.Request, env *command.Env) command.Result {
	if errResult := ensureStack(ctx, env); errResult != nil {
		return *errResult
	}

	frame, _, ok := env.Stack.Selected()
	if !ok {
		return command.Errorf("no frame selected")
	}
	if frame.Source == nil || frame.Source.Path == "" {
		return command.Errorf("no source for the selected frame")
	}

	center := frame.Line
	if req.Arg(0) != "" {
		n, err := strconv.Atoi(req.Arg(0))
		if err != nil || n < 1 {
			return command.Errorf("usage: list [line]")
		}
		center = n
	}

	radius := 5
	if env.Config != nil {
		radius = env.Config.GetInt("context.sourceLines", radius)
	}

	out, err := sourceWindow(frame.Source.Path, center, radius)
	if err != nil {
		return command.Error(err)
	}
	return command.Output(out)
}
