package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/stormdbg/internal/command"
)

func registerHelp(d *command.Dispatcher) {
	d.RegisterCommand(&command.Command{
		Name:    "help",
		Aliases: []string{"h", "?"},
		Usage:   "help [command]",
		Summary: "list commands or show usage for one",
		Fn:      cmdHelp,
	})
}

func cmdHelp(ctx context.Context, req command.Request, env *command.Env) command.Result {
	if env.Dispatcher == nil {
		return command.Errorf("no dispatcher")
	}
	registry := env.Dispatcher.Registry()

	if name := req.Arg(0); name != "" {
		cmd, ok := registry.Lookup(name)
		if !ok {
			return command.Errorf("no command %q; try help", name)
		}
		var b strings.Builder
		fmt.Fprintf(&b, "usage: %s\n%s", cmd.Usage, cmd.Summary)
		if len(cmd.Aliases) > 0 {
			fmt.Fprintf(&b, "\naliases: %s", strings.Join(cmd.Aliases, ", "))
		}
		return command.Output(b.String())
	}

	cmds := registry.Commands()
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })

	var b strings.Builder
	for _, cmd := range cmds {
		fmt.Fprintf(&b, "%-14s %s\n", cmd.Name, cmd.Summary)
	}
	for _, group := range env.Dispatcher.Router().Groups() {
		fmt.Fprintf(&b, "%-14s %s\n", group+" ...", "subcommands; try '"+group+" <sub>'")
	}
	return command.Output(strings.TrimRight(b.String(), "\n"))
}
