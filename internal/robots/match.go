package robots

import (
	"regexp"
	"strings"
	"sync"

	"github.com/scoutline/relay/internal/domain"
)

// DefaultCrawlDelaySeconds is used when no matching group sets one.
const DefaultCrawlDelaySeconds = 10.0

// matchGroup finds the group that applies to targetAgent (already expected
// lowercase-insensitive): the longest non-wildcard user-agent token that is
// a substring of targetAgent wins; otherwise the `*` group; otherwise nil.
func matchGroup(parsed domain.ParsedRobotsTxt, targetAgent string) *domain.RobotsGroup {
	target := strings.ToLower(targetAgent)

	var (
		best       *domain.RobotsGroup
		bestLen    = -1
		wildcard   *domain.RobotsGroup
	)

	for i := range parsed.Groups {
		g := &parsed.Groups[i]
		for _, ua := range g.UserAgents {
			if ua == "*" {
				if wildcard == nil {
					wildcard = g
				}
				continue
			}
			if strings.Contains(target, ua) && len(ua) > bestLen {
				best = g
				bestLen = len(ua)
			}
		}
	}

	if best != nil {
		return best
	}
	return wildcard
}

// pathRuleCache memoizes compiled glob patterns; robots.txt patterns are
// reused across many URL checks against the same domain.
var pathRuleCache sync.Map // map[string]*regexp.Regexp

func compilePattern(pattern string) *regexp.Regexp {
	if v, ok := pathRuleCache.Load(pattern); ok {
		return v.(*regexp.Regexp)
	}

	anchored := strings.HasSuffix(pattern, "$")
	body := strings.TrimSuffix(pattern, "$")

	var sb strings.Builder
	sb.WriteByte('^')
	for _, part := range strings.Split(body, "*") {
		sb.WriteString(regexp.QuoteMeta(part))
		sb.WriteString(".*")
	}
	reStr := strings.TrimSuffix(sb.String(), ".*")
	if anchored {
		reStr += "$"
	} else {
		reStr += ".*"
	}

	re := regexp.MustCompile(reStr)
	pathRuleCache.Store(pattern, re)
	return re
}

// matchRule returns the longest rule path in group matching urlPath; on a
// length tie, a Disallow rule is preferred over an Allow rule.
func matchRule(group *domain.RobotsGroup, urlPath string) *domain.RobotsRule {
	if group == nil {
		return nil
	}

	var best *domain.RobotsRule
	for i := range group.Rules {
		rule := &group.Rules[i]
		if rule.Path == "" {
			continue
		}
		if !compilePattern(rule.Path).MatchString(urlPath) {
			continue
		}
		if best == nil || len(rule.Path) > len(best.Path) ||
			(len(rule.Path) == len(best.Path) && !rule.Allowed && best.Allowed) {
			best = rule
		}
	}
	return best
}

// IsAllowed implements the watched-agent ethical policy: disallowed if
// ai_input is explicitly "no", or if ANY watched agent's applicable rule
// disallows urlPath.
func IsAllowed(parsed domain.ParsedRobotsTxt, urlPath string, watchedAgents []string) bool {
	if parsed.AIInput == domain.AIHintNo {
		return false
	}

	for _, agent := range watchedAgents {
		group := matchGroup(parsed, agent)
		if group == nil {
			continue
		}
		if rule := matchRule(group, urlPath); rule != nil && !rule.Allowed {
			return false
		}
	}

	return true
}

// CrawlDelayFor returns the maximum crawl-delay across the matching groups
// of all watched agents, defaulting to DefaultCrawlDelaySeconds.
func CrawlDelayFor(parsed domain.ParsedRobotsTxt, watchedAgents []string) float64 {
	max := 0.0
	found := false

	for _, agent := range watchedAgents {
		group := matchGroup(parsed, agent)
		if group == nil || group.CrawlDelay <= 0 {
			continue
		}
		found = true
		if group.CrawlDelay > max {
			max = group.CrawlDelay
		}
	}

	if !found {
		return DefaultCrawlDelaySeconds
	}
	return max
}
