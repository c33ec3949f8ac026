package extract

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/earnings-cli/internal/model"
	"github.com/sells-group/earnings-cli/internal/ocr"
)

// Options configures an Extractor beyond its fetcher.
type Options struct {
	// Rules are user-supplied patterns applied after the built-in banks.
	Rules *RuleSet
	// DebugDir, when set, receives a copy of each fetched page for
	// pattern debugging.
	DebugDir string
	// PDF converts PDF bodies to text. Defaults to the local pdftotext
	// binary.
	PDF ocr.Extractor
}

// Extractor turns one extraction request into a structured result.
type Extractor struct {
	fetcher *Fetcher
	opts    Options
}

// New builds an Extractor around a fetcher.
func New(fetcher *Fetcher, opts Options) *Extractor {
	if opts.PDF == nil {
		opts.PDF = ocr.NewPdfToText("")
	}
	return &Extractor{fetcher: fetcher, opts: opts}
}

// Extract fetches the request's page and pulls financial facts from it.
// A page with no recognizable facts is still a valid result with status
// no_data; only fetch problems surface as errors.
func (e *Extractor) Extract(ctx context.Context, req model.ExtractionRequest) (*model.ExtractionResult, error) {
	if req.URL == "" {
		return nil, eris.New("extract: no url provided")
	}

	body, err := e.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	e.dumpDebugPage(req, body)

	var text string
	if ocr.IsPDF(body) {
		raw, err := ocr.TextFromBytes(ctx, e.opts.PDF, body)
		if err != nil {
			return nil, err
		}
		text = strings.TrimSpace(spaceRe.ReplaceAllString(raw, " "))
	} else {
		text = CleanHTML(body)
	}
	facts := ParseFacts(text)
	facts = append(facts, e.opts.Rules.Apply(text)...)
	if facts == nil {
		facts = []model.Fact{}
	}
	for i := range facts {
		facts[i].SourceURL = req.URL
		facts[i].Company = req.Company
		facts[i].Period = req.Period
	}

	status := model.StatusNoData
	if len(facts) > 0 {
		status = model.StatusSuccess
	}

	zap.L().Info("extract: extraction complete",
		zap.String("company", req.Company),
		zap.String("period", req.Period),
		zap.String("status", string(status)),
		zap.Int("facts", len(facts)))

	return &model.ExtractionResult{
		Company:          req.Company,
		Period:           req.Period,
		SourceURL:        req.URL,
		ExtractedAt:      time.Now().UTC(),
		Facts:            facts,
		Tables:           []json.RawMessage{},
		ExtractionStatus: status,
		FactCount:        len(facts),
	}, nil
}

var debugNameReplacer = strings.NewReplacer(" ", "_", ",", "", ".", "", "/", "-")

// dumpDebugPage saves the raw page under DebugDir. Failures are logged
// and swallowed so debugging aids never fail an extraction.
func (e *Extractor) dumpDebugPage(req model.ExtractionRequest, body []byte) {
	if e.opts.DebugDir == "" {
		return
	}
	if err := os.MkdirAll(e.opts.DebugDir, 0o755); err != nil {
		zap.L().Warn("extract: create debug dir", zap.Error(err))
		return
	}
	ext := ".html"
	if ocr.IsPDF(body) {
		ext = ".pdf"
	}
	name := debugNameReplacer.Replace(req.Company) + "_" + debugNameReplacer.Replace(req.Period) + ext
	path := filepath.Join(e.opts.DebugDir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		zap.L().Warn("extract: write debug page", zap.String("path", path), zap.Error(err))
		return
	}
	zap.L().Debug("extract: debug page written", zap.String("path", path))
}
