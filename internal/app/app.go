// Package app wires the debugger together: configuration, logging,
// the command dispatcher, the adapter process, and the REPL.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/dshills/stormdbg/internal/adapters"
	"github.com/dshills/stormdbg/internal/ai"
	"github.com/dshills/stormdbg/internal/arch"
	"github.com/dshills/stormdbg/internal/command"
	"github.com/dshills/stormdbg/internal/command/commands"
	"github.com/dshills/stormdbg/internal/config"
	"github.com/dshills/stormdbg/internal/debug"
	"github.com/dshills/stormdbg/internal/logging"
	"github.com/dshills/stormdbg/internal/plugin"
	"github.com/dshills/stormdbg/internal/render"
)

// ErrQuit signals a normal user-requested exit.
var ErrQuit = errors.New("quit")

// Options configure the application at startup.
type Options struct {
	// ConfigPath overrides the user configuration file.
	ConfigPath string

	// LaunchFile is a project-local launch configuration file.
	LaunchFile string

	// Adapter forces an adapter type instead of detecting one.
	Adapter string

	// Program is the program to debug; used for adapter detection.
	Program string

	// Port overrides the adapter listen port.
	Port int

	// PluginDir overrides the plugin directory.
	PluginDir string

	// LogLevel is the minimum log level.
	LogLevel string

	// TUI opens the full-screen context view on each stop instead of
	// printing the context inline.
	TUI bool

	// In and Out are the REPL streams; nil means stdin/stdout.
	In  io.Reader
	Out io.Writer
}

// Application owns the debugger's long-lived pieces.
type Application struct {
	opts       Options
	cfg        *config.Store
	log        *logging.Logger
	dispatcher *command.Dispatcher
	plugins    *plugin.Host
	registry   *adapters.Registry
	printer    *render.Printer

	session     *debug.Session
	adapter     adapters.Adapter
	breakpoints *debug.BreakpointStore
	stack       *debug.StackNavigator
	registers   *debug.RegisterFile
	memory      *debug.MemoryReader
	disasm      *debug.Disassembler
	inspector   *debug.Inspector
	assistant   *ai.Assistant

	adapterCmd *exec.Cmd
	out        io.Writer
	in         io.Reader
}

// New builds the application from options. The debug session is not
// started yet; call StartSession before Run.
func New(opts Options) (*Application, error) {
	a := &Application{
		opts:     opts,
		registry: adapters.NewRegistry(),
		out:      opts.Out,
		in:       opts.In,
	}
	if a.out == nil {
		a.out = os.Stdout
	}
	if a.in == nil {
		a.in = os.Stdin
	}

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = config.DefaultUserPath()
	}
	a.cfg = config.New(config.WithUserPath(configPath))
	if err := a.cfg.Load(); err != nil {
		return nil, err
	}

	if opts.LaunchFile != "" {
		if _, err := config.LoadLaunchFile(opts.LaunchFile); err != nil {
			return nil, err
		}

		// Make the launch file's configurations visible to the run and
		// attach commands through the config store.
		data, err := os.ReadFile(opts.LaunchFile)
		if err != nil {
			return nil, err
		}
		raw := string(data)
		if arr := gjson.GetBytes(data, "launch"); arr.Exists() {
			raw = arr.Raw
		}
		if err := a.cfg.SetRaw("launch", raw); err != nil {
			return nil, err
		}
	}

	level := opts.LogLevel
	if level == "" {
		level = a.cfg.GetString("log.level", "info")
	}
	a.log = logging.Default()
	a.log.SetLevel(logging.ParseLevel(level))
	a.log.SetOutput(os.Stderr)

	a.printer = render.NewPrinter(a.out, render.ThemeByName(a.cfg.GetString("theme.name", "default")))

	a.dispatcher = command.NewWithDefaults()
	commands.RegisterAll(a.dispatcher)
	a.registerViewCommand()
	logHook := &command.LoggingHook{}
	a.dispatcher.RegisterPreHook(logHook)
	a.dispatcher.RegisterPostHook(logHook)

	a.plugins = plugin.NewHost(a.dispatcher, a.env, a.log)
	a.plugins.RegisterListCommand()
	pluginDir := opts.PluginDir
	if pluginDir == "" {
		pluginDir = filepath.Join(filepath.Dir(configPath), "plugins")
	}
	if err := a.plugins.LoadDir(pluginDir); err != nil {
		a.log.Warn("plugin load: %v", err)
	}

	return a, nil
}

// launchConfigs returns the known launch configurations; the launch
// file, when given, shadows the user config's list.
func (a *Application) launchConfigs() []config.LaunchConfig {
	return a.cfg.Launches()
}

// buildAssistant wires the AI assistant once the session's inspection
// helpers exist. A missing API key is reported and the ai command
// stays unavailable.
func (a *Application) buildAssistant() {
	provider, err := ai.NewProvider(a.cfg.GetString("ai.provider", "openai"))
	if err != nil {
		a.log.Info("ai assistant unavailable: %v", err)
		return
	}

	retriever := ai.NewDebugRetriever(
		a.session, a.stack, a.registers, a.memory, a.disasm,
		ai.RetrieverConfig{
			Instructions: a.cfg.GetInt("context.instructions", 8),
			StackWords:   a.cfg.GetInt("context.stackWords", 8),
		},
	)

	a.assistant = ai.NewAssistant(provider, retriever, ai.Options{
		Model:       a.cfg.GetString("ai.model", ""),
		Temperature: a.cfg.GetFloat("ai.temperature", 0.5),
		MaxTokens:   a.cfg.GetInt("ai.maxTokens", 100),
	})
}

// StartSession starts the adapter process, connects, and performs the
// DAP initialize handshake.
func (a *Application) StartSession(ctx context.Context) error {
	adapterType, err := a.pickAdapterType()
	if err != nil {
		return err
	}

	opts := adapters.Options{
		Path: a.cfg.GetString("adapters."+string(adapterType)+".path", ""),
		Host: a.cfg.GetString("adapters."+string(adapterType)+".host", ""),
		Port: a.opts.Port,
	}
	if opts.Port == 0 {
		opts.Port = a.cfg.GetInt("adapters."+string(adapterType)+".port", 0)
	}

	adapter, err := a.registry.Create(adapterType, opts)
	if err != nil {
		return err
	}

	session, cmd, err := a.connect(ctx, adapter)
	if err != nil {
		return err
	}
	a.session = session
	a.adapter = adapter
	a.adapterCmd = cmd

	a.breakpoints = debug.NewBreakpointStore(session)
	a.stack = debug.NewStackNavigator(session)
	a.registers = debug.NewRegisterFile(session, arch.Detect(a.archHint()))
	a.memory = debug.NewMemoryReader(session)
	a.disasm = debug.NewDisassembler(session)
	a.inspector = debug.NewInspector(session)

	session.SetHandlers(debug.Handlers{
		OnStopped:    a.onStopped,
		OnOutput:     a.onOutput,
		OnTerminated: a.onTerminated,
	})

	if err := session.Initialize(ctx, debug.DefaultConfig()); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	a.buildAssistant()
	a.log.Info("connected to %s", adapter.Name())
	return nil
}

// archHint picks the target architecture: an explicit arch on a launch
// configuration wins, then the target.arch config key, then the host.
func (a *Application) archHint() string {
	for _, lc := range a.launchConfigs() {
		if lc.Arch != "" {
			return lc.Arch
		}
	}
	if hint := a.cfg.GetString("target.arch", ""); hint != "" {
		return hint
	}
	return runtime.GOARCH
}

func (a *Application) pickAdapterType() (adapters.Type, error) {
	if a.opts.Adapter != "" {
		return adapters.Type(a.opts.Adapter), nil
	}
	program := a.opts.Program
	if program == "" {
		for _, lc := range a.launchConfigs() {
			if lc.Program != "" {
				program = lc.Program
				break
			}
		}
	}
	if program == "" {
		return "", fmt.Errorf("no adapter given and no program to detect one from; use -adapter")
	}
	return adapters.Detect(program)
}

// connect starts the adapter process and opens the DAP transport.
func (a *Application) connect(ctx context.Context, adapter adapters.Adapter) (*debug.Session, *exec.Cmd, error) {
	cmd, err := adapter.Command()
	if err != nil {
		return nil, nil, err
	}

	if adapter.Connection() == adapters.ConnStdio {
		session, err := debug.NewStdioSession(cmd.Path, cmd.Args[1:]...)
		if err != nil {
			return nil, nil, err
		}
		return session, nil, nil
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("start %s: %w", adapter.Name(), err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	host, port, err := splitHostPort(adapter.Address())
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, nil, err
	}
	if err := adapters.WaitForPort(waitCtx, host, port); err != nil {
		_ = cmd.Process.Kill()
		return nil, nil, err
	}

	session, err := debug.NewSocketSession(adapter.Address())
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, nil, err
	}
	return session, cmd, nil
}

func splitHostPort(address string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return "", 0, fmt.Errorf("adapter address %q: %w", address, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("adapter address %q: %w", address, err)
	}
	return host, port, nil
}

// Shutdown disconnects the session and releases resources.
func (a *Application) Shutdown() {
	if a.session != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := a.session.Disconnect(ctx, true); err != nil {
			a.log.Debug("disconnect: %v", err)
		}
		cancel()
		_ = a.session.Close()
		a.session = nil
	}
	if a.adapterCmd != nil && a.adapterCmd.Process != nil {
		_ = a.adapterCmd.Process.Kill()
		_ = a.adapterCmd.Wait()
		a.adapterCmd = nil
	}
	a.plugins.Close()
}

// registerViewCommand adds the full-screen context view command. It
// lives here rather than in the commands package because it needs the
// application's theme and terminal ownership.
func (a *Application) registerViewCommand() {
	a.dispatcher.RegisterCommand(&command.Command{
		Name:    "view",
		Usage:   "view",
		Summary: "open the full-screen context view (q or Escape to close)",
		Fn: func(ctx context.Context, req command.Request, env *command.Env) command.Result {
			if _, errResult := env.RequireStopped(); errResult != nil {
				return *errResult
			}
			if err := a.showView(ctx, env); err != nil {
				return command.Error(err)
			}
			return command.Success()
		},
	})
}

// showView takes over the terminal with the context view until the
// user closes it.
func (a *Application) showView(ctx context.Context, env *command.Env) error {
	view, err := render.NewContextView(render.ThemeByName(a.cfg.GetString("theme.name", "default")))
	if err != nil {
		return fmt.Errorf("open context view: %w", err)
	}
	if err := view.Init(); err != nil {
		return fmt.Errorf("open context view: %w", err)
	}
	defer view.Shutdown()

	view.SetSections(commands.ContextSections(ctx, env))
	view.Run()
	return nil
}

// Dispatcher exposes the command dispatcher, mainly for tests.
func (a *Application) Dispatcher() *command.Dispatcher {
	return a.dispatcher
}

// env builds the per-invocation command environment.
func (a *Application) env() *command.Env {
	return &command.Env{
		Session:     a.session,
		Adapter:     a.adapter,
		Breakpoints: a.breakpoints,
		Stack:       a.stack,
		Registers:   a.registers,
		Memory:      a.memory,
		Disasm:      a.disasm,
		Inspector:   a.inspector,
		Config:      a.cfg,
		Assistant:   a.assistant,
		Log:         a.log,
		Out:         a.out,
	}
}
