// Package skills implements the C10 skill-scoped hook parser: it reads
// the YAML frontmatter of a skill file and builds a per-skill bundle of
// hooks.CommandHookConfig values, named so they can be traced back to
// their source skill and event.
package skills

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/agentrtkit/codexrt/runtime/hooks"
)

// knownEventKeys maps a skill frontmatter event key to its hooks.EventKind.
var knownEventKeys = map[string]hooks.EventKind{
	"SessionStart":       hooks.EventSessionStart,
	"SessionEnd":         hooks.EventSessionEnd,
	"UserPromptSubmit":   hooks.EventUserPromptSubmit,
	"PreToolUse":         hooks.EventPreToolUse,
	"PermissionRequest":  hooks.EventPermissionRequest,
	"Notification":       hooks.EventNotification,
	"PostToolUse":        hooks.EventPostToolUse,
	"PostToolUseFailure": hooks.EventPostToolUseFailure,
	"Stop":               hooks.EventStop,
	"TeammateIdle":       hooks.EventTeammateIdle,
	"TaskCompleted":      hooks.EventTaskCompleted,
	"ConfigChange":       hooks.EventConfigChange,
	"SubagentStart":      hooks.EventSubagentStart,
	"SubagentStop":       hooks.EventSubagentStop,
	"PreCompact":         hooks.EventPreCompact,
	"WorktreeCreate":     hooks.EventWorktreeCreate,
	"WorktreeRemove":     hooks.EventWorktreeRemove,
}

// rawFrontmatter is the YAML shape of a skill file's frontmatter hooks
// section: a map of event key to a list of matcher groups, each carrying
// one handler.
type rawFrontmatter struct {
	Hooks map[string][]rawMatcherGroup `yaml:"hooks"`
}

type rawMatcherGroup struct {
	ToolName      string     `yaml:"tool_name"`
	ToolNameRegex string     `yaml:"tool_name_regex"`
	PromptRegex   string     `yaml:"prompt_regex"`
	Handler       rawHandler `yaml:"handler"`
	Async         bool       `yaml:"async"`
	TimeoutMillis int        `yaml:"timeout_ms"`
	AbortOnError  bool       `yaml:"abort_on_error"`
}

type rawHandler struct {
	Kind    string `yaml:"kind"`
	Command string `yaml:"command"`
	Prompt  string `yaml:"prompt"`
	Agent   string `yaml:"agent"`
}

// Bundle is one skill file's parsed hook set, plus any warnings produced
// for unknown event keys (which are dropped, not fatal).
type Bundle struct {
	Skill string
	// Hooks is the flat list, in file order, for callers that don't care
	// which event each entry belongs to.
	Hooks []hooks.CommandHookConfig
	// ByEvent is the same entries grouped by event kind, for callers (the
	// skill loader) that need to merge a bundle into a runtime's Hooks.
	ByEvent  map[hooks.EventKind][]hooks.CommandHookConfig
	Warnings []string
}

// ParseFrontmatter extracts the leading "---\n...\n---" YAML block from
// content and builds a Bundle of named hooks for skillName. If content has
// no frontmatter delimiters, an empty Bundle is returned (not an error):
// a skill file with no hooks section is ordinary.
func ParseFrontmatter(skillName, content string) (Bundle, error) {
	body, ok := extractFrontmatterBlock(content)
	if !ok {
		return Bundle{Skill: skillName}, nil
	}

	var raw rawFrontmatter
	if err := yaml.Unmarshal([]byte(body), &raw); err != nil {
		return Bundle{}, fmt.Errorf("skill %q: parse frontmatter: %w", skillName, err)
	}

	bundle := Bundle{Skill: skillName}
	for eventKey, groups := range raw.Hooks {
		kind, known := knownEventKeys[eventKey]
		if !known {
			bundle.Warnings = append(bundle.Warnings, fmt.Sprintf("skill %q: unknown hook event %q dropped", skillName, eventKey))
			continue
		}
		for i, g := range groups {
			cfg, err := buildHookConfig(skillName, kind, i, g)
			if err != nil {
				bundle.Warnings = append(bundle.Warnings, fmt.Sprintf("skill %q: %v", skillName, err))
				continue
			}
			bundle.Hooks = append(bundle.Hooks, cfg)
			if bundle.ByEvent == nil {
				bundle.ByEvent = make(map[hooks.EventKind][]hooks.CommandHookConfig)
			}
			bundle.ByEvent[kind] = append(bundle.ByEvent[kind], cfg)
		}
	}
	return bundle, nil
}

func buildHookConfig(skillName string, kind hooks.EventKind, index int, g rawMatcherGroup) (hooks.CommandHookConfig, error) {
	cfg := hooks.CommandHookConfig{
		Name:          fmt.Sprintf("skill:%s:%s:%d", skillName, kind, index),
		Async:         g.Async,
		TimeoutMillis: g.TimeoutMillis,
		AbortOnError:  g.AbortOnError,
	}
	if g.ToolName != "" {
		v := g.ToolName
		cfg.Matcher.ToolName = &v
	}
	if g.ToolNameRegex != "" {
		re, err := compileRegex(g.ToolNameRegex)
		if err != nil {
			return hooks.CommandHookConfig{}, fmt.Errorf("invalid tool_name_regex %q: %w", g.ToolNameRegex, err)
		}
		cfg.Matcher.ToolNameRegex = re
	}
	if g.PromptRegex != "" {
		re, err := compileRegex(g.PromptRegex)
		if err != nil {
			return hooks.CommandHookConfig{}, fmt.Errorf("invalid prompt_regex %q: %w", g.PromptRegex, err)
		}
		cfg.Matcher.PromptRegex = re
	}

	switch g.Handler.Kind {
	case "command", "":
		cfg.Kind = hooks.HandlerCommand
		cfg.Command = shellWrap(g.Handler.Command)
	case "prompt":
		cfg.Kind = hooks.HandlerPrompt
		cfg.Prompt = g.Handler.Prompt
	case "agent":
		cfg.Kind = hooks.HandlerAgent
		cfg.Agent = g.Handler.Agent
	default:
		return hooks.CommandHookConfig{}, fmt.Errorf("unknown handler kind %q", g.Handler.Kind)
	}
	return cfg, nil
}

func extractFrontmatterBlock(content string) (string, bool) {
	const delim = "---"
	if !strings.HasPrefix(content, delim) {
		return "", false
	}
	rest := content[len(delim):]
	rest = strings.TrimPrefix(rest, "\n")
	end := strings.Index(rest, "\n"+delim)
	if end == -1 {
		return "", false
	}
	return rest[:end], true
}
