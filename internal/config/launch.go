package config

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

// LaunchConfig describes one way to start or attach to a debug target.
// Launch configurations live under the "launch" key of the user config
// or in a project-local launch file.
type LaunchConfig struct {
	// Name identifies the configuration ("debug-server", "unit-tests").
	Name string

	// Adapter is the adapter type ("delve", "debugpy", "gdb", or empty
	// to detect from Program).
	Adapter string

	// Mode is "launch" or "attach".
	Mode string

	// Program is the executable or script to debug.
	Program string

	// Args are the program arguments.
	Args []string

	// Cwd is the working directory for the debuggee.
	Cwd string

	// Env holds extra environment variables for the debuggee.
	Env map[string]string

	// StopOnEntry suspends the target at its entry point.
	StopOnEntry bool

	// Arch is the target architecture ("amd64", "arm64", "i386"), empty
	// to assume the host architecture.
	Arch string

	// Port is the port to attach to (attach mode, socket adapters).
	Port int

	// ProcessID is the process to attach to (attach mode).
	ProcessID int
}

// Validate checks the configuration for the fields its mode requires.
func (lc LaunchConfig) Validate() error {
	switch lc.Mode {
	case "", "launch":
		if lc.Program == "" {
			return fmt.Errorf("launch config %q: program is required", lc.Name)
		}
	case "attach":
		if lc.ProcessID == 0 && lc.Port == 0 {
			return fmt.Errorf("launch config %q: attach needs processId or port", lc.Name)
		}
	default:
		return fmt.Errorf("launch config %q: unknown mode %q", lc.Name, lc.Mode)
	}
	return nil
}

// Launches returns the launch configurations from the store.
func (s *Store) Launches() []LaunchConfig {
	return parseLaunches(s.Get("launch"))
}

// Launch returns the named launch configuration.
func (s *Store) Launch(name string) (LaunchConfig, bool) {
	for _, lc := range s.Launches() {
		if lc.Name == name {
			return lc, true
		}
	}
	return LaunchConfig{}, false
}

// LoadLaunchFile reads launch configurations from a standalone JSON
// file holding either an array or an object with a "launch" array.
func LoadLaunchFile(path string) ([]LaunchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read launch file: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("launch file %s is not valid JSON", path)
	}

	doc := gjson.ParseBytes(data)
	if doc.IsArray() {
		return parseLaunches(doc), nil
	}
	return parseLaunches(doc.Get("launch")), nil
}

func parseLaunches(value gjson.Result) []LaunchConfig {
	if !value.Exists() || !value.IsArray() {
		return nil
	}

	var configs []LaunchConfig
	value.ForEach(func(_, item gjson.Result) bool {
		lc := LaunchConfig{
			Name:        item.Get("name").String(),
			Adapter:     item.Get("adapter").String(),
			Mode:        item.Get("mode").String(),
			Program:     item.Get("program").String(),
			Cwd:         item.Get("cwd").String(),
			StopOnEntry: item.Get("stopOnEntry").Bool(),
			Arch:        item.Get("arch").String(),
			Port:        int(item.Get("port").Int()),
			ProcessID:   int(item.Get("processId").Int()),
		}
		item.Get("args").ForEach(func(_, arg gjson.Result) bool {
			lc.Args = append(lc.Args, arg.String())
			return true
		})
		env := item.Get("env")
		if env.IsObject() {
			lc.Env = make(map[string]string)
			env.ForEach(func(k, v gjson.Result) bool {
				lc.Env[k.String()] = v.String()
				return true
			})
		}
		configs = append(configs, lc)
		return true
	})
	return configs
}
