package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/earnings-cli/internal/model"
)

func writeRulesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRules(t *testing.T) {
	path := writeRulesFile(t, `
rules:
  - fact_type: margin
    metric: gross_margin
    pattern: 'gross\s+margin\s+(?:of\s+)?([\d.]+)\s*%'
    unit: percent
    confidence: high
  - metric: ebitda
    pattern: 'EBITDA\s+of\s+\$\s?([\d,]+\.?\d*)\s*(billion|million)'
    unit_group: 2
`)

	rs, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, 2, rs.Len())

	text := "Gross margin of 42.5% this quarter, with EBITDA of $1.2 billion reported."
	facts := rs.Apply(text)
	require.Len(t, facts, 2)

	assert.Equal(t, "margin", facts[0].FactType)
	assert.Equal(t, "gross_margin", facts[0].Metric)
	assert.Equal(t, 42.5, facts[0].Value)
	assert.Equal(t, "percent", facts[0].Unit)
	assert.Equal(t, model.ConfidenceHigh, facts[0].Confidence)

	// Defaults fill in fact type and confidence, and the unit group
	// supplies the unit word.
	assert.Equal(t, "custom", facts[1].FactType)
	assert.Equal(t, "ebitda", facts[1].Metric)
	assert.Equal(t, 1.2, facts[1].Value)
	assert.Equal(t, "billion_usd", facts[1].Unit)
	assert.Equal(t, model.ConfidenceMedium, facts[1].Confidence)
}

func TestLoadRules_MissingFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read rules")
}

func TestLoadRules_BadYAML(t *testing.T) {
	path := writeRulesFile(t, "rules: [whoops")
	_, err := LoadRules(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse rules")
}

func TestLoadRules_MissingMetric(t *testing.T) {
	path := writeRulesFile(t, `
rules:
  - pattern: '([\d.]+)'
`)
	_, err := LoadRules(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no metric")
}

func TestLoadRules_MissingPattern(t *testing.T) {
	path := writeRulesFile(t, `
rules:
  - metric: ebitda
`)
	_, err := LoadRules(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no pattern")
}

func TestLoadRules_BadPattern(t *testing.T) {
	path := writeRulesFile(t, `
rules:
  - metric: ebitda
    pattern: '([unclosed'
`)
	_, err := LoadRules(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile rule")
}

func TestLoadRules_NoValueGroup(t *testing.T) {
	path := writeRulesFile(t, `
rules:
  - metric: ebitda
    pattern: 'EBITDA'
`)
	_, err := LoadRules(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "captures no value group")
}

func TestLoadRules_UnitGroupOutOfRange(t *testing.T) {
	path := writeRulesFile(t, `
rules:
  - metric: ebitda
    pattern: '([\d.]+)'
    unit_group: 3
`)
	_, err := LoadRules(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unit_group")
}

func TestLoadRules_UnknownConfidence(t *testing.T) {
	path := writeRulesFile(t, `
rules:
  - metric: ebitda
    pattern: '([\d.]+)'
    confidence: absolute
`)
	_, err := LoadRules(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown confidence")
}

func TestRuleSet_ApplyDeduplicates(t *testing.T) {
	path := writeRulesFile(t, `
rules:
  - metric: ebitda
    pattern: 'EBITDA\s+of\s+\$\s?([\d,]+\.?\d*)\s*(billion|million)'
    unit_group: 2
`)
	rs, err := LoadRules(path)
	require.NoError(t, err)

	facts := rs.Apply("EBITDA of $1.2 billion. Adjusted EBITDA of $1.2 billion again.")
	assert.Len(t, facts, 1)
}

func TestRuleSet_NilSet(t *testing.T) {
	var rs *RuleSet
	assert.Nil(t, rs.Apply("EBITDA of $1.2 billion"))
	assert.Equal(t, 0, rs.Len())
}

func TestRuleSet_DefaultUnit(t *testing.T) {
	path := writeRulesFile(t, `
rules:
  - metric: backlog
    pattern: 'backlog\s+of\s+\$\s?([\d,]+\.?\d*)'
`)
	rs, err := LoadRules(path)
	require.NoError(t, err)

	facts := rs.Apply("Total backlog of $870,000 at quarter end.")
	require.Len(t, facts, 1)
	assert.Equal(t, "usd", facts[0].Unit)
	assert.Equal(t, float64(870000), facts[0].Value)
}
