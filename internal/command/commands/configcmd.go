package commands

import (
	"context"
	"strconv"
	"strings"

	"github.com/dshills/stormdbg/internal/command"
)

func registerConfig(d *command.Dispatcher) {
	cfg := command.NewGroup("config")
	cfg.Register("get", cmdConfigGet)
	cfg.Register("set", cmdConfigSet)
	cfg.Register("unset", cmdConfigUnset)
	cfg.Register("save", cmdConfigSave)
	d.RegisterGroup("config", cfg)
}

func cmdConfigGet(ctx context.Context, req command.Request, env *command.Env) command.Result {
	if env.Config == nil {
		return command.Errorf("no configuration loaded")
	}
	path := req.Arg(0)
	if path == "" {
		return command.Errorf("usage: config get <path>")
	}
	value := env.Config.Get(path)
	if !value.Exists() {
		return command.Errorf("no value at %q", path)
	}
	return command.Outputf("%s = %s", path, value.Raw)
}

// coerceValue turns a command-line token into a typed config value.
func coerceValue(s string) any {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func cmdConfigSet(ctx context.Context, req command.Request, env *command.Env) command.Result {
	if env.Config == nil {
		return command.Errorf("no configuration loaded")
	}
	path := req.Arg(0)
	if path == "" || len(req.Args) < 2 {
		return command.Errorf("usage: config set <path> <value>")
	}
	value := strings.Join(req.Args[1:], " ")
	if err := env.Config.Set(path, coerceValue(value)); err != nil {
		return command.Error(err)
	}
	return command.Outputf("%s = %s", path, env.Config.Get(path).Raw)
}

func cmdConfigUnset(ctx context.Context, req command.Request, env *command.Env) command.Result {
	if env.Config == nil {
		return command.Errorf("no configuration loaded")
	}
	path := req.Arg(0)
	if path == "" {
		return command.Errorf("usage: config unset <path>")
	}
	if err := env.Config.Unset(path); err != nil {
		return command.Error(err)
	}
	return command.Outputf("unset %s", path)
}

func cmdConfigSave(ctx context.Context, req command.Request, env *command.Env) command.Result {
	if env.Config == nil {
		return command.Errorf("no configuration loaded")
	}
	if err := env.Config.Save(); err != nil {
		return command.Error(err)
	}
	return command.Output("configuration saved")
}
