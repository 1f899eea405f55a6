package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/stormdbg/internal/ai"
	"github.com/dshills/stormdbg/internal/command"
)

func registerAI(d *command.Dispatcher) {
	d.RegisterCommand(&command.Command{
		Name:    "ai",
		Usage:   "ai [-e model] [-t temperature] [-m max-tokens] <question>",
		Summary: "ask a language model about the current debug context",
		Fn:      cmdAI,
	})
}

// parseAIArgs splits the ai command line into options and the question.
func parseAIArgs(args []string) (ai.Options, string, error) {
	var opts ai.Options
	var words []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-e", "--engine", "--model":
			if i+1 >= len(args) {
				return opts, "", fmt.Errorf("%s needs a value", arg)
			}
			i++
			opts.Model = args[i]
		case "-t", "--temperature":
			if i+1 >= len(args) {
				return opts, "", fmt.Errorf("%s needs a value", arg)
			}
			i++
			t, err := strconv.ParseFloat(args[i], 64)
			if err != nil {
				return opts, "", fmt.Errorf("invalid temperature %q", args[i])
			}
			opts.Temperature = t
		case "-m", "--max-tokens":
			if i+1 >= len(args) {
				return opts, "", fmt.Errorf("%s needs a value", arg)
			}
			i++
			n, err := strconv.Atoi(args[i])
			if err != nil || n < 1 {
				return opts, "", fmt.Errorf("invalid max-tokens %q", args[i])
			}
			opts.MaxTokens = n
		default:
			words = append(words, arg)
		}
	}

	return opts, strings.Join(words, " "), nil
}

func cmdAI(ctx context.Context, req command.Request, env *command.Env) command.Result {
	if _, errResult := env.RequireStopped(); errResult != nil {
		return *errResult
	}
	if env.Assistant == nil {
		return command.Errorf("no AI provider configured; set ai.provider and its API key")
	}

	opts, question, err := parseAIArgs(req.Args)
	if err != nil {
		return command.Error(err)
	}
	if strings.TrimSpace(question) == "" {
		return command.Errorf("usage: ai [-e model] [-t temperature] [-m max-tokens] <question>")
	}

	answer, err := env.Assistant.Ask(ctx, question, opts)
	if err != nil {
		return command.Error(err)
	}
	return command.Output(answer)
}
