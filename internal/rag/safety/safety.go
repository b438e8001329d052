package safety

import (
	"fmt"
	"regexp"
	"strings"
)

// Verdict is the outcome of FilterQuery. When Allowed is false, Payload is a message
// meant for the user; it never contains the rejected query.
type Verdict struct {
	Allowed bool
	Payload string
	Reason  string
}

const (
	ReasonOutOfScope   = "out_of_scope"
	ReasonBannedIntent = "banned_intent"
)

type Gate struct {
	version            string
	topics             []*regexp.Regexp
	bannedIntents      []*regexp.Regexp
	educationalContext []*regexp.Regexp
	sensitiveTopics    []sensitiveTopic
	disclaimerKeywords []string
	scopeRejection     string
	intentRefusal      string
	disclaimer         string
}

func NewGate() (*Gate, error) {
	return NewGateFromYAML(DefaultTables)
}

// NewGateFromYAML builds a gate from a custom table file. Any invalid regex fails construction.
func NewGateFromYAML(raw []byte) (*Gate, error) {
	tables, err := parseTables(raw)
	if err != nil {
		return nil, err
	}

	g := &Gate{
		version:         tables.Version,
		sensitiveTopics: tables.SensitiveTopics,
		scopeRejection:  tables.Messages.ScopeRejection,
		intentRefusal:   tables.Messages.IntentRefusal,
		disclaimer:      tables.Disclaimer,
	}
	if g.topics, err = compileAll(tables.Topics); err != nil {
		return nil, fmt.Errorf("topics: %w", err)
	}
	if g.bannedIntents, err = compileAll(tables.BannedIntents); err != nil {
		return nil, fmt.Errorf("banned intents: %w", err)
	}
	if g.educationalContext, err = compileAll(tables.EducationalContext); err != nil {
		return nil, fmt.Errorf("educational context: %w", err)
	}
	for _, kw := range tables.DisclaimerKeywords {
		g.disclaimerKeywords = append(g.disclaimerKeywords, strings.ToLower(kw))
	}
	return g, nil
}

func (g *Gate) Version() string {
	return g.version
}

// FilterQuery runs the scope check and then the intent check. It has no state.
func (g *Gate) FilterQuery(text string) Verdict {
	if !anyMatch(g.topics, text) {
		return Verdict{Allowed: false, Payload: g.scopeRejection, Reason: ReasonOutOfScope}
	}

	if anyMatch(g.bannedIntents, text) && !anyMatch(g.educationalContext, text) {
		for _, topic := range g.sensitiveTopics {
			if topic.compiled.MatchString(text) {
				return Verdict{Allowed: false, Payload: topic.Redirect, Reason: ReasonBannedIntent}
			}
		}
		return Verdict{Allowed: false, Payload: g.intentRefusal, Reason: ReasonBannedIntent}
	}

	return Verdict{Allowed: true, Payload: text}
}

// AddDisclaimer prepends the disclaimer when topic names a sensitive keyword.
// It is not idempotent; call it once per generated response.
func (g *Gate) AddDisclaimer(response string, topic string) string {
	lower := strings.ToLower(topic)
	for _, kw := range g.disclaimerKeywords {
		if strings.Contains(lower, kw) {
			return g.disclaimer + response
		}
	}
	return response
}

func anyMatch(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
