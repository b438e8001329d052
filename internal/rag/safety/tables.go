package safety

import (
	_ "embed"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// DefaultTables is the pattern set shipped with the binary. Changing it means a rebuild.
//
//go:embed patterns.yaml
var DefaultTables []byte

type tableFile struct {
	Version            string           `yaml:"version"`
	Topics             []string         `yaml:"topics"`
	BannedIntents      []string         `yaml:"banned_intents"`
	EducationalContext []string         `yaml:"educational_context"`
	SensitiveTopics    []sensitiveTopic `yaml:"sensitive_topics"`
	DisclaimerKeywords []string         `yaml:"disclaimer_keywords"`
	Messages           struct {
		ScopeRejection string `yaml:"scope_rejection"`
		IntentRefusal  string `yaml:"intent_refusal"`
	} `yaml:"messages"`
	Disclaimer string `yaml:"disclaimer"`
}

type sensitiveTopic struct {
	Name     string `yaml:"name"`
	Pattern  string `yaml:"pattern"`
	Redirect string `yaml:"redirect"`

	compiled *regexp.Regexp
}

func parseTables(raw []byte) (*tableFile, error) {
	var tables tableFile
	if err := yaml.Unmarshal(raw, &tables); err != nil {
		return nil, fmt.Errorf("failed to unmarshal safety tables: %w", err)
	}
	if len(tables.Topics) == 0 {
		return nil, fmt.Errorf("safety tables %q define no topics", tables.Version)
	}
	if tables.Messages.ScopeRejection == "" || tables.Messages.IntentRefusal == "" {
		return nil, fmt.Errorf("safety tables %q are missing a rejection message", tables.Version)
	}
	for i := range tables.SensitiveTopics {
		topic := &tables.SensitiveTopics[i]
		re, err := compile(topic.Pattern)
		if err != nil {
			return nil, fmt.Errorf("sensitive topic %s: %w", topic.Name, err)
		}
		topic.compiled = re
	}
	return &tables, nil
}

func compile(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return re, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := compile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}
