package model

// InputRow is one company/period/URL triple from the input table.
type InputRow struct {
	Company string `json:"company"`
	Period  string `json:"period"`
	URL     string `json:"url"`
}

// ExtractionRequest is the payload sent to the extraction collaborator.
// Derived 1:1 from an InputRow.
type ExtractionRequest struct {
	URL     string `json:"url"`
	Company string `json:"company"`
	Period  string `json:"period"`
}

// Request builds the collaborator payload for this row.
func (r InputRow) Request() ExtractionRequest {
	return ExtractionRequest{
		URL:     r.URL,
		Company: r.Company,
		Period:  r.Period,
	}
}
