package model

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// Status is the extraction outcome discriminant carried by every record.
type Status string

const (
	StatusSuccess Status = "success"
	StatusNoData  Status = "no_data"
	StatusFailed  Status = "failed"
)

// Confidence tiers assigned to extracted facts.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
)

// Fact is a single extracted financial metric with provenance.
type Fact struct {
	FactType   string  `json:"fact_type"`
	Metric     string  `json:"metric"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit"`
	Direction  string  `json:"direction,omitempty"`
	Confidence string  `json:"confidence"`
	SourceText string  `json:"source_text"`
	SourceURL  string  `json:"source_url,omitempty"`
	Company    string  `json:"company,omitempty"`
	Period     string  `json:"period,omitempty"`
}

// ExtractionResult is the structured output of one completed extraction.
// FactCount always equals len(Facts).
type ExtractionResult struct {
	Company          string            `json:"company"`
	Period           string            `json:"period"`
	SourceURL        string            `json:"source_url"`
	ExtractedAt      time.Time         `json:"extracted_at"`
	Facts            []Fact            `json:"facts"`
	Tables           []json.RawMessage `json:"tables"`
	ExtractionStatus Status            `json:"extraction_status"`
	FactCount        int               `json:"fact_count"`
	Error            string            `json:"error,omitempty"`
}

// ExtractionFailure records a row whose extraction could not complete.
type ExtractionFailure struct {
	Company          string `json:"company"`
	Period           string `json:"period"`
	URL              string `json:"url"`
	Error            string `json:"error"`
	ExtractionStatus Status `json:"extraction_status"`
}

// Record is one entry of the result stream: either an ExtractionResult or an
// ExtractionFailure, discriminated by status. Exactly one side is set.
type Record struct {
	Result  *ExtractionResult
	Failure *ExtractionFailure
}

// ResultRecord wraps a collaborator result as a stream record.
func ResultRecord(r *ExtractionResult) Record {
	return Record{Result: r}
}

// FailureRecord synthesizes a failed record for a row whose invocation
// errored.
func FailureRecord(row InputRow, errMsg string) Record {
	return Record{Failure: &ExtractionFailure{
		Company:          row.Company,
		Period:           row.Period,
		URL:              row.URL,
		Error:            errMsg,
		ExtractionStatus: StatusFailed,
	}}
}

// Status returns the record's outcome discriminant.
func (r Record) Status() Status {
	if r.Failure != nil {
		return r.Failure.ExtractionStatus
	}
	if r.Result != nil {
		return r.Result.ExtractionStatus
	}
	return ""
}

// Company returns the company name regardless of which side is set.
func (r Record) Company() string {
	if r.Failure != nil {
		return r.Failure.Company
	}
	if r.Result != nil {
		return r.Result.Company
	}
	return ""
}

// FactCount returns the result's fact count, 0 for failures.
func (r Record) FactCount() int {
	if r.Result != nil {
		return r.Result.FactCount
	}
	return 0
}

// Failed reports whether the record is a synthesized failure.
func (r Record) Failed() bool {
	return r.Failure != nil
}

// MarshalJSON serializes the set side of the union.
func (r Record) MarshalJSON() ([]byte, error) {
	switch {
	case r.Failure != nil:
		return json.Marshal(r.Failure)
	case r.Result != nil:
		return json.Marshal(r.Result)
	}
	return nil, eris.New("model: empty record")
}

// UnmarshalJSON sniffs the status discriminant to pick the record shape.
func (r *Record) UnmarshalJSON(data []byte) error {
	var probe struct {
		ExtractionStatus Status `json:"extraction_status"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return eris.Wrap(err, "model: decode record")
	}
	if probe.ExtractionStatus == StatusFailed {
		var f ExtractionFailure
		if err := json.Unmarshal(data, &f); err != nil {
			return eris.Wrap(err, "model: decode failure record")
		}
		*r = Record{Failure: &f}
		return nil
	}
	var res ExtractionResult
	if err := json.Unmarshal(data, &res); err != nil {
		return eris.Wrap(err, "model: decode result record")
	}
	*r = Record{Result: &res}
	return nil
}
