package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ruleDoc mirrors the rules YAML document. The recognized options per rule
// are metric, comparator, threshold, cooldown_ms, and action; metric may
// carry a statistic suffix ("heart_rate.variance_10").
type ruleDoc struct {
	Personas map[string][]ruleEntry `yaml:"personas"`
}

type ruleEntry struct {
	Metric     string  `yaml:"metric"`
	Comparator string  `yaml:"comparator"`
	Threshold  float64 `yaml:"threshold"`
	CooldownMS int64   `yaml:"cooldown_ms"`
	Action     string  `yaml:"action"`
}

// LoadFile builds a registry from a rules YAML file. A missing file is not
// an error: the built-in tables apply.
func LoadFile(path string) (*Registry, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return NewRegistry(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return LoadYAML(data)
}

// LoadYAML parses a rules document and validates every table in it. The
// document replaces the built-in tables wholesale.
func LoadYAML(data []byte) (*Registry, error) {
	var doc ruleDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse rules YAML: %w", err)
	}
	if len(doc.Personas) == 0 {
		return nil, fmt.Errorf("rules document defines no personas")
	}

	tables := make(map[string][]Rule, len(doc.Personas))
	for persona, entries := range doc.Personas {
		list := make([]Rule, 0, len(entries))
		for i, e := range entries {
			rule, err := e.toRule()
			if err != nil {
				return nil, fmt.Errorf("persona %q rule %d: %w", persona, i, err)
			}
			list = append(list, rule)
		}
		tables[persona] = list
	}
	return NewRegistryFromTables(tables)
}

func (e ruleEntry) toRule() (Rule, error) {
	kind, stat, err := ParseMetricRef(e.Metric)
	if err != nil {
		return Rule{}, err
	}
	cmp, err := ParseComparator(e.Comparator)
	if err != nil {
		return Rule{}, err
	}
	return Rule{
		Metric:     kind,
		Stat:       stat,
		Comparator: cmp,
		Threshold:  e.Threshold,
		Action:     ActionID(e.Action),
		Cooldown:   time.Duration(e.CooldownMS) * time.Millisecond,
	}, nil
}
