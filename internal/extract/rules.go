package extract

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/earnings-cli/internal/model"
)

// Rule is a user-supplied extraction pattern. Group 1 of the pattern must
// capture the numeric value. When UnitGroup is set, that capture group
// supplies the unit word and the emitted unit becomes "<word>_usd";
// otherwise Unit is emitted verbatim, defaulting to "usd".
type Rule struct {
	FactType   string `yaml:"fact_type"`
	Metric     string `yaml:"metric"`
	Pattern    string `yaml:"pattern"`
	Unit       string `yaml:"unit,omitempty"`
	UnitGroup  int    `yaml:"unit_group,omitempty"`
	Confidence string `yaml:"confidence,omitempty"`

	re *regexp.Regexp
}

// RuleSet holds compiled user rules. It is applied on top of the built-in
// pattern banks.
type RuleSet struct {
	rules []Rule
}

// LoadRules reads extraction rules from a YAML file.
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: read rules %s", path)
	}

	// The YAML has a top-level "rules" key
	var wrapper struct {
		Rules []Rule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "extract: parse rules")
	}

	rs := &RuleSet{rules: wrapper.Rules}
	for i := range rs.rules {
		r := &rs.rules[i]
		if r.Metric == "" {
			return nil, eris.Errorf("extract: rule %d has no metric", i)
		}
		if r.Pattern == "" {
			return nil, eris.Errorf("extract: rule %q has no pattern", r.Metric)
		}
		re, err := regexp.Compile(`(?i)` + r.Pattern)
		if err != nil {
			return nil, eris.Wrapf(err, "extract: compile rule %q", r.Metric)
		}
		if re.NumSubexp() < 1 {
			return nil, eris.Errorf("extract: rule %q captures no value group", r.Metric)
		}
		if r.UnitGroup > re.NumSubexp() {
			return nil, eris.Errorf("extract: rule %q unit_group %d exceeds groups", r.Metric, r.UnitGroup)
		}
		r.re = re

		// Apply defaults to rules missing fact type or confidence
		if r.FactType == "" {
			r.FactType = "custom"
		}
		if r.Confidence == "" {
			r.Confidence = model.ConfidenceMedium
		}
		if r.Confidence != model.ConfidenceHigh && r.Confidence != model.ConfidenceMedium {
			return nil, eris.Errorf("extract: rule %q has unknown confidence %q", r.Metric, r.Confidence)
		}
	}
	return rs, nil
}

// Len returns the number of loaded rules.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// Apply runs every rule over cleaned page text. A nil set yields nothing.
func (rs *RuleSet) Apply(text string) []model.Fact {
	if rs == nil {
		return nil
	}

	var facts []model.Fact
	seen := map[string]bool{}

	for _, r := range rs.rules {
		for _, m := range r.re.FindAllStringSubmatch(text, -1) {
			value, ok := parseAmount(m[1])
			if !ok {
				continue
			}
			unit := r.Unit
			if r.UnitGroup > 0 && m[r.UnitGroup] != "" {
				unit = strings.ToLower(m[r.UnitGroup]) + "_usd"
			}
			if unit == "" {
				unit = "usd"
			}
			key := fmt.Sprintf("%s_%v_%s", r.Metric, value, unit)
			if seen[key] {
				continue
			}
			seen[key] = true

			facts = append(facts, model.Fact{
				FactType:   r.FactType,
				Metric:     r.Metric,
				Value:      value,
				Unit:       unit,
				Confidence: r.Confidence,
				SourceText: truncate(m[0], 150),
			})
		}
	}
	return facts
}
