package command

import (
	"fmt"
	"strings"
)

// SplitArgs splits a command line into tokens, honoring single and
// double quotes and backslash escapes inside double quotes.
func SplitArgs(line string) ([]string, error) {
	var args []string
	var cur strings.Builder
	inToken := false

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == ' ' || c == '\t':
			if inToken {
				args = append(args, cur.String())
				cur.Reset()
				inToken = false
			}
		case c == '\'':
			inToken = true
			j := i + 1
			for j < len(runes) && runes[j] != '\'' {
				cur.WriteRune(runes[j])
				j++
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("unterminated single quote")
			}
			i = j
		case c == '"':
			inToken = true
			j := i + 1
			for j < len(runes) && runes[j] != '"' {
				if runes[j] == '\\' && j+1 < len(runes) {
					j++
					switch runes[j] {
					case 'n':
						cur.WriteRune('\n')
					case 't':
						cur.WriteRune('\t')
					default:
						cur.WriteRune(runes[j])
					}
				} else {
					cur.WriteRune(runes[j])
				}
				j++
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("unterminated double quote")
			}
			i = j
		default:
			inToken = true
			cur.WriteRune(c)
		}
	}
	if inToken {
		args = append(args, cur.String())
	}

	return args, nil
}

// Parse parses a command line into a Request. The registry resolves
// aliases; the router decides whether the first two words form a
// grouped command.
func Parse(line string, registry *Registry, router *Router) (Request, error) {
	tokens, err := SplitArgs(line)
	if err != nil {
		return Request{}, err
	}
	if len(tokens) == 0 {
		return Request{}, fmt.Errorf("empty command")
	}

	name := tokens[0]
	args := tokens[1:]
	if registry != nil {
		name = registry.Resolve(name)
	}

	// Grouped command: "info registers" resolves as one name when a
	// group handler claims it.
	if router != nil && len(args) > 0 && router.HasGroup(name) {
		grouped := name + " " + args[0]
		if h := router.GetGroupHandler(name); h != nil && h.CanHandle(grouped) {
			name = grouped
			args = args[1:]
		}
	}

	return Request{
		Name: name,
		Args: args,
		Raw:  line,
	}, nil
}
