package skills

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/agentrtkit/codexrt/runtime/hooks"
)

// Loaded is the aggregate of every skill file discovered under a skills
// directory: their hooks merged by event, plus every warning collected
// along the way (unknown event keys, unparsable matcher regexes).
type Loaded struct {
	ByEvent  map[hooks.EventKind][]hooks.CommandHookConfig
	Warnings []string
}

// ForEvent returns the merged hook chain for kind across every loaded
// skill, or nil if none registered for that event.
func (l Loaded) ForEvent(kind hooks.EventKind) []hooks.CommandHookConfig {
	return l.ByEvent[kind]
}

// LoadDir discovers every "*.md" skill file directly under dir, parses
// its frontmatter, and merges the results. A missing dir is not an
// error: a runtime with no skills configured yet is ordinary.
func LoadDir(dir string) (Loaded, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Loaded{}, nil
		}
		return Loaded{}, err
	}

	out := Loaded{ByEvent: make(map[hooks.EventKind][]hooks.CommandHookConfig)}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		skillName := strings.TrimSuffix(e.Name(), ".md")
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			out.Warnings = append(out.Warnings, "skill "+skillName+": "+err.Error())
			continue
		}
		bundle, err := ParseFrontmatter(skillName, string(data))
		if err != nil {
			out.Warnings = append(out.Warnings, err.Error())
			continue
		}
		out.Warnings = append(out.Warnings, bundle.Warnings...)
		for kind, cfgs := range bundle.ByEvent {
			out.ByEvent[kind] = append(out.ByEvent[kind], cfgs...)
		}
	}
	return out, nil
}
