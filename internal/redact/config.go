package redact

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds operator-defined redaction customizations loaded from YAML.
// Extra patterns run after the built-in rules; disabled names remove
// built-ins.
type Config struct {
	ExtraPatterns []PatternDef `yaml:"extra_patterns"`
	Disable       []string     `yaml:"disable"`
}

// PatternDef defines a custom pattern from config.
type PatternDef struct {
	Name  string `yaml:"name"`
	Regex string `yaml:"regex"`
}

// LoadConfig reads a redaction config file. A missing file is not an error:
// it returns a nil config, meaning built-in rules only.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read redact config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse redact config: %w", err)
	}
	return &cfg, nil
}

// Compile builds the effective rule set: defaults minus disabled names, plus
// compiled extra patterns. A nil config yields the defaults.
func Compile(cfg *Config) ([]Rule, error) {
	rules := DefaultRules()
	if cfg == nil {
		return rules, nil
	}

	if len(cfg.Disable) > 0 {
		disabled := make(map[string]bool, len(cfg.Disable))
		for _, name := range cfg.Disable {
			disabled[name] = true
		}
		kept := rules[:0]
		for _, r := range rules {
			if !disabled[r.Name] {
				kept = append(kept, r)
			}
		}
		rules = kept
	}

	for i, def := range cfg.ExtraPatterns {
		if def.Name == "" {
			return nil, fmt.Errorf("extra_patterns[%d]: name is required", i)
		}
		if def.Regex == "" {
			return nil, fmt.Errorf("extra_patterns[%d]: regex is required", i)
		}
		re, err := regexp.Compile(def.Regex)
		if err != nil {
			return nil, fmt.Errorf("extra_patterns[%d] %q: invalid regex: %w", i, def.Name, err)
		}
		rules = append(rules, Rule{
			Name:        def.Name,
			Pattern:     re,
			Placeholder: "[REDACTED_" + strings.ToUpper(def.Name) + "]",
		})
	}
	return rules, nil
}
