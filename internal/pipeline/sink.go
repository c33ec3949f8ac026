package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/earnings-cli/internal/model"
)

// Artifact file names under the output directory.
const (
	AllResultsFile = "all_results.jsonl"
	ErrorsFile     = "errors.jsonl"
	ByCompanyFile  = "by_company.json"
	SummaryFile    = "summary.json"
)

// WriteOutputs persists a run's artifacts under dir, creating it if needed.
// all_results.jsonl, by_company.json, and summary.json are always written;
// errors.jsonl is written only when the run had failures, and a stale copy
// from an earlier run into the same directory is removed otherwise.
func WriteOutputs(dir string, out *model.RunOutputs) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "pipeline: create output dir")
	}

	var g errgroup.Group
	g.Go(func() error {
		return writeJSONL(filepath.Join(dir, AllResultsFile), out.AllResults)
	})
	g.Go(func() error {
		path := filepath.Join(dir, ErrorsFile)
		if len(out.Errors) == 0 {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return eris.Wrap(err, "pipeline: remove stale errors file")
			}
			return nil
		}
		return writeJSONL(path, out.Errors)
	})
	g.Go(func() error {
		return writePrettyJSON(filepath.Join(dir, ByCompanyFile), out.ByCompany)
	})
	g.Go(func() error {
		return writePrettyJSON(filepath.Join(dir, SummaryFile), out.Stats)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	zap.L().Info("pipeline: artifacts written",
		zap.String("dir", dir),
		zap.Int("records", len(out.AllResults)),
		zap.Int("errors", len(out.Errors)))
	return nil
}

// ReadRecords loads a JSONL artifact back into memory. A missing file
// returns an empty slice so callers can treat errors.jsonl as optional.
func ReadRecords(path string) ([]model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.Record{}, nil
		}
		return nil, eris.Wrapf(err, "pipeline: open %s", filepath.Base(path))
	}
	defer f.Close()

	var records []model.Record
	dec := json.NewDecoder(f)
	for dec.More() {
		var rec model.Record
		if err := dec.Decode(&rec); err != nil {
			return nil, eris.Wrapf(err, "pipeline: decode record from %s", filepath.Base(path))
		}
		records = append(records, rec)
	}
	return records, nil
}

// writeJSONL writes one compact JSON document per line. A nil or empty
// slice produces an empty file.
func writeJSONL(path string, records []model.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "pipeline: create %s", filepath.Base(path))
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return eris.Wrapf(err, "pipeline: encode record to %s", filepath.Base(path))
		}
	}
	return nil
}

// writePrettyJSON writes v as indented JSON with a trailing newline.
func writePrettyJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "pipeline: marshal %s", filepath.Base(path))
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "pipeline: write %s", filepath.Base(path))
	}
	return nil
}
