// Package robots implements the line-oriented robots.txt parser, the
// group/path matching rules, the watched-agent ethical policy, and the
// per-domain cache the fetcher consults before issuing any request.
package robots

import (
	"strconv"
	"strings"

	"github.com/scoutline/relay/internal/domain"
)

// Parse parses a raw robots.txt body into its structured form:
// comments (including `ai-input:`/`ai-train:` hints), directive lines
// split on the first `:`, and group boundaries driven by repeated
// `user-agent` lines once Allow/Disallow rules have been seen.
func Parse(raw string) domain.ParsedRobotsTxt {
	var (
		parsed  domain.ParsedRobotsTxt
		current *domain.RobotsGroup
		inRules bool
	)

	startGroup := func() {
		parsed.Groups = append(parsed.Groups, domain.RobotsGroup{})
		current = &parsed.Groups[len(parsed.Groups)-1]
		inRules = false
	}

	for _, line := range strings.Split(raw, "\n") {
		if hint, ok := parseCommentHint(line); ok {
			applyHint(&parsed, hint)
			continue
		}

		name, value, ok := parseDirective(line)
		if !ok {
			continue
		}

		switch name {
		case "user-agent":
			if current == nil || inRules {
				startGroup()
			}
			current.UserAgents = append(current.UserAgents, strings.ToLower(value))

		case "disallow":
			if current == nil {
				startGroup()
				current.UserAgents = append(current.UserAgents, "*")
			}
			current.Rules = append(current.Rules, domain.RobotsRule{Path: value, Allowed: false})
			inRules = true

		case "allow":
			if current == nil {
				startGroup()
				current.UserAgents = append(current.UserAgents, "*")
			}
			current.Rules = append(current.Rules, domain.RobotsRule{Path: value, Allowed: true})
			inRules = true

		case "crawl-delay":
			if current == nil {
				continue
			}
			if d, err := strconv.ParseFloat(value, 64); err == nil {
				current.CrawlDelay = d
			}
		}
	}

	return parsed
}

// commentHint is a parsed `# ai-input:`/`# ai-train:` directive.
type commentHint struct {
	key   string // "ai-input" or "ai-train"
	value domain.AIHint
}

func parseCommentHint(line string) (commentHint, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "#") {
		return commentHint{}, false
	}

	body := strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
	lower := strings.ToLower(body)

	for _, key := range []string{"ai-input:", "ai-train:"} {
		if strings.HasPrefix(lower, key) {
			val := strings.TrimSpace(lower[len(key):])
			hint := domain.AIHintUnset
			switch val {
			case "yes":
				hint = domain.AIHintYes
			case "no":
				hint = domain.AIHintNo
			}
			return commentHint{key: strings.TrimSuffix(key, ":"), value: hint}, true
		}
	}

	return commentHint{}, true // a plain comment: discarded, but still "handled"
}

func applyHint(parsed *domain.ParsedRobotsTxt, hint commentHint) {
	switch hint.key {
	case "ai-input":
		if hint.value != domain.AIHintUnset {
			parsed.AIInput = hint.value
		}
	case "ai-train":
		if hint.value != domain.AIHintUnset {
			parsed.AITrain = hint.value
		}
	}
}

// parseDirective strips an un-escaped trailing comment, then splits a
// "name: value" line. Blank lines and lines without ':' are ignored.
func parseDirective(line string) (name, value string, ok bool) {
	for i := 0; i < len(line); i++ {
		if line[i] == '#' && (i == 0 || line[i-1] != '\\') {
			line = line[:i]
			break
		}
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return "", "", false
	}

	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return "", "", false
	}

	name = strings.ToLower(strings.TrimSpace(line[:idx]))
	value = strings.TrimSpace(line[idx+1:])

	return name, value, true
}
