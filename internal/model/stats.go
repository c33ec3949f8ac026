package model

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// PipelineStats holds the counters and timings of one pipeline run.
// Computed once after the loop completes and never mutated afterward.
type PipelineStats struct {
	TotalCompanies        int       `json:"total_companies"`
	SuccessfulExtractions int       `json:"successful_extractions"`
	FailedExtractions     int       `json:"failed_extractions"`
	TotalFactsExtracted   int       `json:"total_facts_extracted"`
	StartTime             time.Time `json:"start_time"`
	EndTime               time.Time `json:"end_time"`
	DurationSeconds       float64   `json:"duration_seconds"`
}

// CompanyGroups is an ordered company -> records grouping. Key order is
// first-seen order and survives JSON serialization, unlike a plain map.
type CompanyGroups struct {
	keys   []string
	groups map[string][]Record
}

// NewCompanyGroups returns an empty grouping.
func NewCompanyGroups() *CompanyGroups {
	return &CompanyGroups{groups: make(map[string][]Record)}
}

// Add appends a record to its company's sequence, creating the key on
// first occurrence.
func (g *CompanyGroups) Add(rec Record) {
	company := rec.Company()
	if _, ok := g.groups[company]; !ok {
		g.keys = append(g.keys, company)
	}
	g.groups[company] = append(g.groups[company], rec)
}

// Companies returns the keys in first-seen order.
func (g *CompanyGroups) Companies() []string {
	return g.keys
}

// Get returns the records for a company in input order.
func (g *CompanyGroups) Get(company string) []Record {
	return g.groups[company]
}

// Len returns the number of distinct companies.
func (g *CompanyGroups) Len() int {
	return len(g.keys)
}

// MarshalJSON emits a JSON object with keys in first-seen order.
func (g CompanyGroups) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range g.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, eris.Wrap(err, "model: marshal company key")
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(g.groups[key])
		if err != nil {
			return nil, eris.Wrapf(err, "model: marshal records for %s", key)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// RunOutputs is everything one pipeline run produces: the full record
// stream, the failed sub-stream, the per-company grouping, and the stats.
// RunID is set when run history is enabled, empty otherwise.
type RunOutputs struct {
	RunID      string
	AllResults []Record
	Errors     []Record
	ByCompany  *CompanyGroups
	Stats      PipelineStats
}
