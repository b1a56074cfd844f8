package rollout

import (
	"fmt"
	"strings"

	"craftsim.ai/internal/sim/actions"
)

// ParseMacro reads a macro as action names separated by commas or newlines.
// In-game macro lines (/ac "Basic Synthesis" <wait.3>) are accepted too;
// other slash commands and blank lines are ignored.
func ParseMacro(cat *actions.Catalog, text string) (Sequence, error) {
	var out Sequence
	for i, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "/") {
			name, ok := macroAction(line)
			if !ok {
				continue
			}
			id, err := cat.Parse(name)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			out = append(out, id)
			continue
		}
		for _, name := range strings.Split(line, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			id, err := cat.Parse(name)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty macro")
	}
	return out, nil
}

func macroAction(line string) (string, bool) {
	cmd, rest, _ := strings.Cut(line, " ")
	switch strings.ToLower(cmd) {
	case "/ac", "/action":
	default:
		return "", false
	}
	rest = strings.TrimSpace(rest)
	if i := strings.Index(rest, "<"); i >= 0 {
		rest = rest[:i]
	}
	rest = strings.Trim(strings.TrimSpace(rest), `"`)
	return rest, rest != ""
}
