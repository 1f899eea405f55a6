package debug

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/stormdbg/internal/dap"
)

// Inspector reads scopes and variables for a stack frame and evaluates
// expressions in its context.
type Inspector struct {
	session *Session
}

// NewInspector creates an inspector bound to a session.
func NewInspector(session *Session) *Inspector {
	return &Inspector{session: session}
}

// Scopes returns the variable scopes for a frame.
func (i *Inspector) Scopes(ctx context.Context, frameID int) ([]dap.Scope, error) {
	if i.session.State() != StateStopped {
		return nil, fmt.Errorf("cannot read scopes: target is %s", i.session.State())
	}
	return i.session.GetScopes(ctx, frameID)
}

// FindScope returns the scope whose name matches (case-insensitive) for
// a frame, or false if the adapter does not expose one.
func (i *Inspector) FindScope(ctx context.Context, frameID int, name string) (dap.Scope, bool, error) {
	scopes, err := i.Scopes(ctx, frameID)
	if err != nil {
		return dap.Scope{}, false, err
	}
	for _, scope := range scopes {
		if strings.EqualFold(scope.Name, name) {
			return scope, true, nil
		}
	}
	return dap.Scope{}, false, nil
}

// Variables returns the children of a variables reference.
func (i *Inspector) Variables(ctx context.Context, ref int) ([]dap.Variable, error) {
	if i.session.State() != StateStopped {
		return nil, fmt.Errorf("cannot read variables: target is %s", i.session.State())
	}
	return i.session.GetVariables(ctx, ref)
}

// Locals returns the local variables of a frame, drawn from the scope
// the adapter marks as "locals" (or named Locals/Local).
func (i *Inspector) Locals(ctx context.Context, frameID int) ([]dap.Variable, error) {
	scopes, err := i.Scopes(ctx, frameID)
	if err != nil {
		return nil, err
	}
	for _, scope := range scopes {
		if scope.PresentationHint == "locals" || strings.EqualFold(scope.Name, "locals") || strings.EqualFold(scope.Name, "local") {
			return i.Variables(ctx, scope.VariablesReference)
		}
	}
	return nil, fmt.Errorf("adapter exposes no locals scope")
}

// Arguments returns the argument variables of a frame, if the adapter
// exposes an arguments scope.
func (i *Inspector) Arguments(ctx context.Context, frameID int) ([]dap.Variable, error) {
	scope, ok, err := i.FindScope(ctx, frameID, "arguments")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("adapter exposes no arguments scope")
	}
	return i.Variables(ctx, scope.VariablesReference)
}

// Evaluate evaluates an expression in the context of a frame using the
// repl evaluation context.
func (i *Inspector) Evaluate(ctx context.Context, expression string, frameID int) (*dap.EvaluateResponseBody, error) {
	if i.session.State() != StateStopped {
		return nil, fmt.Errorf("cannot evaluate: target is %s", i.session.State())
	}
	return i.session.Evaluate(ctx, expression, frameID, "repl")
}

// Set assigns a new value to a variable inside a container reference.
func (i *Inspector) Set(ctx context.Context, ref int, name, value string) (string, error) {
	if i.session.State() != StateStopped {
		return "", fmt.Errorf("cannot set variable: target is %s", i.session.State())
	}
	caps := i.session.Capabilities()
	if caps != nil && !caps.SupportsSetVariable {
		return "", fmt.Errorf("setVariable not supported by adapter")
	}
	return i.session.SetVariable(ctx, ref, name, value)
}

// FormatVariable formats a variable as a "name = value" line, with the
// type appended when the adapter reports one.
func FormatVariable(v dap.Variable) string {
	if v.Type != "" {
		return fmt.Sprintf("%s = %s (%s)", v.Name, v.Value, v.Type)
	}
	return fmt.Sprintf("%s = %s", v.Name, v.Value)
}

// FormatVariables formats a list of variables, one per line. Container
// variables are suffixed with an ellipsis.
func FormatVariables(vars []dap.Variable) string {
	var b strings.Builder
	for _, v := range vars {
		b.WriteString(FormatVariable(v))
		if v.VariablesReference > 0 {
			b.WriteString(" ...")
		}
		b.WriteByte('\n')
	}
	return b.String()
}
