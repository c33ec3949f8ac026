package pipeline

import "github.com/sells-group/earnings-cli/internal/model"

// GroupByCompany partitions records by company name. Companies appear in
// first-seen order and each company's records keep their input order.
func GroupByCompany(records []model.Record) *model.CompanyGroups {
	groups := model.NewCompanyGroups()
	for _, rec := range records {
		groups.Add(rec)
	}
	return groups
}

// FilterFailed returns the records whose extraction failed, in input order.
// Applied to a run's full record stream it reproduces the run's error list.
func FilterFailed(records []model.Record) []model.Record {
	var failed []model.Record
	for _, rec := range records {
		if rec.Failed() {
			failed = append(failed, rec)
		}
	}
	return failed
}
