package plugin

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/stormdbg/internal/command"
	"github.com/dshills/stormdbg/internal/logging"
)

// PluginPriority orders plugin commands behind the built-ins so a
// plugin cannot shadow a core command by accident.
const PluginPriority = -10

// Plugin is one loaded Lua file.
type Plugin struct {
	// Name is the file name without the .lua extension.
	Name string

	// Path is the file the plugin was loaded from.
	Path string

	// Commands are the command names this plugin registered.
	Commands []string

	state *State
}

// Host loads plugins and wires their commands into the dispatcher.
type Host struct {
	dispatcher *command.Dispatcher
	envFn      func() *command.Env
	log        *logging.Logger
	plugins    []*Plugin
}

// NewHost creates a plugin host. envFn builds the environment plugin
// commands run against; it is called per invocation.
func NewHost(dispatcher *command.Dispatcher, envFn func() *command.Env, log *logging.Logger) *Host {
	if log == nil {
		log = logging.Null
	}
	return &Host{
		dispatcher: dispatcher,
		envFn:      envFn,
		log:        log.WithComponent("plugin"),
	}
}

// LoadDir loads every *.lua file in dir. A missing directory is not an
// error. A plugin that fails to load is skipped with a warning so one
// bad file cannot take down the REPL.
func (h *Host) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read plugin dir %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := h.Load(path); err != nil {
			h.log.Warn("plugin %s failed to load: %v", name, err)
		}
	}
	return nil
}

// Load loads a single plugin file.
func (h *Host) Load(path string) error {
	plugin := &Plugin{
		Name:  strings.TrimSuffix(filepath.Base(path), ".lua"),
		Path:  path,
		state: NewState(),
	}

	plugin.state.RegisterModule("dbg", h.dbgModule(plugin))

	if err := plugin.state.DoFile(path); err != nil {
		plugin.state.Close()
		return err
	}

	h.plugins = append(h.plugins, plugin)
	h.log.Info("loaded plugin %s (%d commands)", plugin.Name, len(plugin.Commands))
	return nil
}

// Plugins returns the loaded plugins.
func (h *Host) Plugins() []*Plugin {
	return h.plugins
}

// Close shuts down every plugin interpreter and unregisters their
// commands.
func (h *Host) Close() {
	for _, plugin := range h.plugins {
		for _, name := range plugin.Commands {
			h.dispatcher.UnregisterHandler(name)
		}
		plugin.state.Close()
	}
	h.plugins = nil
}

// RegisterListCommand adds the "plugins" built-in, which reports what
// the host loaded.
func (h *Host) RegisterListCommand() {
	h.dispatcher.RegisterCommand(&command.Command{
		Name:    "plugins",
		Usage:   "plugins",
		Summary: "list loaded plugins and their commands",
		Fn: func(ctx context.Context, req command.Request, env *command.Env) command.Result {
			if len(h.plugins) == 0 {
				return command.NoOpWithOutput("no plugins loaded")
			}
			var b strings.Builder
			for _, plugin := range h.plugins {
				fmt.Fprintf(&b, "%-16s %s", plugin.Name, plugin.Path)
				if len(plugin.Commands) > 0 {
					fmt.Fprintf(&b, " (%s)", strings.Join(plugin.Commands, ", "))
				}
				b.WriteByte('\n')
			}
			return command.Output(strings.TrimRight(b.String(), "\n"))
		},
	})
}

// registerLuaCommand wires a Lua function into the dispatcher as a
// command handler.
func (h *Host) registerLuaCommand(plugin *Plugin, name, summary string, fn *lua.LFunction) {
	h.dispatcher.RegisterCommand(&command.Command{
		Name:    name,
		Usage:   name,
		Summary: summary + " (plugin: " + plugin.Name + ")",
		Prio:    PluginPriority,
		Fn: func(ctx context.Context, req command.Request, env *command.Env) command.Result {
			results, err := plugin.state.Call(ctx, fn, func(L *lua.LState) []lua.LValue {
				args := L.NewTable()
				for _, a := range req.Args {
					args.Append(lua.LString(a))
				}
				return []lua.LValue{args}
			})
			if err != nil {
				return command.Errorf("plugin %s: %v", plugin.Name, err)
			}
			if len(results) > 0 && results[0] != lua.LNil {
				return command.Output(results[0].String())
			}
			return command.Success()
		},
	})
	plugin.Commands = append(plugin.Commands, name)
}

// dbgModule builds the Lua-facing API for one plugin.
func (h *Host) dbgModule(plugin *Plugin) map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		// dbg.register_command(name, summary, fn)
		"register_command": func(L *lua.LState) int {
			name := L.CheckString(1)
			summary := L.CheckString(2)
			fn := L.CheckFunction(3)

			if strings.TrimSpace(name) == "" || strings.ContainsAny(name, " \t") {
				L.ArgError(1, "command name must be a single word")
				return 0
			}
			h.registerLuaCommand(plugin, name, summary, fn)
			return 0
		},

		// dbg.execute(line) -> output, ok
		"execute": func(L *lua.LState) int {
			line := L.CheckString(1)

			env := h.envFn()
			var buf bytes.Buffer
			env.Out = &buf

			// The interpreter lock is held while this runs; mark the
			// context so a dispatched plugin command on this same state
			// does not retake it.
			result := h.dispatcher.Execute(plugin.state.Active(context.Background()), line, env)
			output := buf.String()
			if result.Output != "" {
				if output != "" && !strings.HasSuffix(output, "\n") {
					output += "\n"
				}
				output += result.Output
			}
			if result.IsError() {
				L.Push(lua.LString(result.Error.Error()))
				L.Push(lua.LFalse)
				return 2
			}
			L.Push(lua.LString(output))
			L.Push(lua.LTrue)
			return 2
		},

		// dbg.eval(expression) -> value, err
		"eval": func(L *lua.LState) int {
			expr := L.CheckString(1)

			env := h.envFn()
			if env.Inspector == nil || env.Session == nil {
				L.Push(lua.LNil)
				L.Push(lua.LString("no active debug session"))
				return 2
			}
			body, err := env.Inspector.Evaluate(context.Background(), expr, 0)
			if err != nil {
				L.Push(lua.LNil)
				L.Push(lua.LString(err.Error()))
				return 2
			}
			L.Push(lua.LString(body.Result))
			return 1
		},

		// dbg.log(message)
		"log": func(L *lua.LState) int {
			h.log.Info("[%s] %s", plugin.Name, L.CheckString(1))
			return 0
		},

		// dbg.config(path) -> value
		"config": func(L *lua.LState) int {
			path := L.CheckString(1)

			env := h.envFn()
			if env.Config == nil {
				L.Push(lua.LNil)
				return 1
			}
			value := env.Config.Get(path)
			switch value.Type {
			case gjson.Null:
				L.Push(lua.LNil)
			case gjson.True, gjson.False:
				L.Push(lua.LBool(value.Bool()))
			case gjson.Number:
				L.Push(lua.LNumber(value.Float()))
			default:
				L.Push(lua.LString(value.String()))
			}
			return 1
		},
	}
}
