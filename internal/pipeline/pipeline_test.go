package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/earnings-cli/internal/invoker"
	"github.com/sells-group/earnings-cli/internal/model"
)

func successResult(row model.InputRow, facts int) *model.ExtractionResult {
	res := &model.ExtractionResult{
		Company:          row.Company,
		Period:           row.Period,
		SourceURL:        row.URL,
		ExtractedAt:      time.Now().UTC(),
		ExtractionStatus: model.StatusSuccess,
	}
	for i := 0; i < facts; i++ {
		res.Facts = append(res.Facts, model.Fact{
			FactType:   "revenue",
			Metric:     "revenue",
			Value:      float64(i + 1),
			Unit:       "million USD",
			Confidence: model.ConfidenceHigh,
		})
	}
	res.FactCount = len(res.Facts)
	return res
}

func noDataResult(row model.InputRow) *model.ExtractionResult {
	return &model.ExtractionResult{
		Company:          row.Company,
		Period:           row.Period,
		SourceURL:        row.URL,
		ExtractedAt:      time.Now().UTC(),
		ExtractionStatus: model.StatusNoData,
	}
}

func TestNew(t *testing.T) {
	inv := new(mockInvoker)
	p := New(inv, nil, Options{Delay: time.Second})

	require.NotNil(t, p)
	assert.Equal(t, time.Second, p.opts.Delay)
	assert.Nil(t, p.store)
}

func TestPipeline_Run_SingleSuccess(t *testing.T) {
	row := model.InputRow{Company: "Acme Corp", Period: "Q1 2026", URL: "https://acme.com/earnings"}

	inv := new(mockInvoker)
	inv.On("Invoke", mock.Anything, row.Request()).Return(successResult(row, 3), nil)

	p := New(inv, nil, Options{})
	out, err := p.Run(context.Background(), []model.InputRow{row})
	require.NoError(t, err)

	require.Len(t, out.AllResults, 1)
	assert.Empty(t, out.Errors)
	assert.Equal(t, 1, out.Stats.TotalCompanies)
	assert.Equal(t, 1, out.Stats.SuccessfulExtractions)
	assert.Equal(t, 0, out.Stats.FailedExtractions)
	assert.Equal(t, 3, out.Stats.TotalFactsExtracted)
	assert.False(t, out.Stats.EndTime.Before(out.Stats.StartTime))
	assert.GreaterOrEqual(t, out.Stats.DurationSeconds, 0.0)

	rec := out.AllResults[0]
	require.NotNil(t, rec.Result)
	assert.Equal(t, model.StatusSuccess, rec.Status())
	assert.Equal(t, 3, rec.FactCount())

	inv.AssertExpectations(t)
}

func TestPipeline_Run_FailureIsolation(t *testing.T) {
	rows := []model.InputRow{
		{Company: "Initech", Period: "Q2 2026", URL: "https://initech.example/q2"},
		{Company: "Globex", Period: "Q2 2026", URL: "https://globex.example/q2"},
	}

	inv := new(mockInvoker)
	inv.On("Invoke", mock.Anything, rows[0].Request()).
		Return(nil, &invoker.ExecutionError{ExitCode: 1})
	inv.On("Invoke", mock.Anything, rows[1].Request()).
		Return(successResult(rows[1], 5), nil)

	p := New(inv, nil, Options{})
	out, err := p.Run(context.Background(), rows)
	require.NoError(t, err)

	// A failed row never stops the loop, and every row yields a record.
	require.Len(t, out.AllResults, 2)
	assert.Equal(t, 2, out.Stats.TotalCompanies)
	assert.Equal(t, 1, out.Stats.SuccessfulExtractions)
	assert.Equal(t, 1, out.Stats.FailedExtractions)
	assert.Equal(t, 5, out.Stats.TotalFactsExtracted)

	failure := out.AllResults[0]
	require.NotNil(t, failure.Failure)
	assert.Equal(t, "Initech", failure.Company())
	assert.Equal(t, "Q2 2026", failure.Failure.Period)
	assert.Equal(t, "https://initech.example/q2", failure.Failure.URL)
	assert.Equal(t, "exited with code 1", failure.Failure.Error)
	assert.Equal(t, model.StatusFailed, failure.Status())

	require.Len(t, out.Errors, 1)
	assert.Equal(t, failure, out.Errors[0])

	success := out.AllResults[1]
	require.NotNil(t, success.Result)
	assert.Equal(t, 5, success.FactCount())

	inv.AssertExpectations(t)
}

func TestPipeline_Run_EmptyInput(t *testing.T) {
	inv := new(mockInvoker)

	p := New(inv, nil, Options{Delay: time.Second})
	out, err := p.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Empty(t, out.AllResults)
	assert.Empty(t, out.Errors)
	assert.Equal(t, 0, out.ByCompany.Len())
	assert.Equal(t, 0, out.Stats.TotalCompanies)
	assert.Equal(t, 0, out.Stats.SuccessfulExtractions)
	assert.Equal(t, 0, out.Stats.FailedExtractions)
	assert.Equal(t, 0, out.Stats.TotalFactsExtracted)
	assert.False(t, out.Stats.StartTime.IsZero())

	inv.AssertExpectations(t)
}

func TestPipeline_Run_NoDataCountsNeither(t *testing.T) {
	row := model.InputRow{Company: "Hooli", Period: "FY 2025", URL: "https://hooli.example/fy25"}

	inv := new(mockInvoker)
	inv.On("Invoke", mock.Anything, row.Request()).Return(noDataResult(row), nil)

	p := New(inv, nil, Options{})
	out, err := p.Run(context.Background(), []model.InputRow{row})
	require.NoError(t, err)

	require.Len(t, out.AllResults, 1)
	assert.Empty(t, out.Errors)
	assert.Equal(t, 1, out.Stats.TotalCompanies)
	assert.Equal(t, 0, out.Stats.SuccessfulExtractions)
	assert.Equal(t, 0, out.Stats.FailedExtractions)
	assert.Equal(t, 0, out.Stats.TotalFactsExtracted)
	assert.Equal(t, model.StatusNoData, out.AllResults[0].Status())
}

func TestPipeline_Run_ErrorsMatchFilteredResults(t *testing.T) {
	rows := []model.InputRow{
		{Company: "A", Period: "Q1", URL: "https://a.example"},
		{Company: "B", Period: "Q1", URL: "https://b.example"},
		{Company: "C", Period: "Q1", URL: "https://c.example"},
		{Company: "D", Period: "Q1", URL: "https://d.example"},
	}

	inv := new(mockInvoker)
	inv.On("Invoke", mock.Anything, rows[0].Request()).Return(successResult(rows[0], 2), nil)
	inv.On("Invoke", mock.Anything, rows[1].Request()).
		Return(nil, &invoker.ExecutionError{ExitCode: 2, Stderr: "chrome crashed"})
	inv.On("Invoke", mock.Anything, rows[2].Request()).Return(noDataResult(rows[2]), nil)
	inv.On("Invoke", mock.Anything, rows[3].Request()).
		Return(nil, &invoker.ExecutionError{ExitCode: 1})

	p := New(inv, nil, Options{})
	out, err := p.Run(context.Background(), rows)
	require.NoError(t, err)

	require.Len(t, out.AllResults, 4)
	assert.Equal(t, FilterFailed(out.AllResults), out.Errors)
	assert.Equal(t, 2, out.Stats.FailedExtractions)
	assert.Equal(t, 1, out.Stats.SuccessfulExtractions)
	assert.Equal(t, 2, out.Stats.TotalFactsExtracted)
}

func TestPipeline_Run_GroupsByCompany(t *testing.T) {
	rows := []model.InputRow{
		{Company: "Acme Corp", Period: "Q1 2026", URL: "https://acme.com/q1"},
		{Company: "Globex", Period: "Q1 2026", URL: "https://globex.example/q1"},
		{Company: "Acme Corp", Period: "Q2 2026", URL: "https://acme.com/q2"},
	}

	inv := new(mockInvoker)
	for _, row := range rows {
		inv.On("Invoke", mock.Anything, row.Request()).Return(successResult(row, 1), nil)
	}

	p := New(inv, nil, Options{})
	out, err := p.Run(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, []string{"Acme Corp", "Globex"}, out.ByCompany.Companies())

	acme := out.ByCompany.Get("Acme Corp")
	require.Len(t, acme, 2)
	assert.Equal(t, "Q1 2026", acme[0].Result.Period)
	assert.Equal(t, "Q2 2026", acme[1].Result.Period)
}

func TestPipeline_Run_DelayBetweenRows(t *testing.T) {
	rows := []model.InputRow{
		{Company: "A", Period: "Q1", URL: "https://a.example"},
		{Company: "B", Period: "Q1", URL: "https://b.example"},
		{Company: "C", Period: "Q1", URL: "https://c.example"},
	}

	inv := new(mockInvoker)
	for _, row := range rows {
		inv.On("Invoke", mock.Anything, row.Request()).Return(successResult(row, 1), nil)
	}

	p := New(inv, nil, Options{Delay: 25 * time.Millisecond})
	start := time.Now()
	_, err := p.Run(context.Background(), rows)
	require.NoError(t, err)

	// Two gaps for three rows.
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestPipeline_Run_NoDelayAfterLastRow(t *testing.T) {
	row := model.InputRow{Company: "A", Period: "Q1", URL: "https://a.example"}

	inv := new(mockInvoker)
	inv.On("Invoke", mock.Anything, row.Request()).Return(successResult(row, 1), nil)

	p := New(inv, nil, Options{Delay: 2 * time.Second})
	start := time.Now()
	_, err := p.Run(context.Background(), []model.InputRow{row})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), time.Second)
}

func TestPipeline_Run_CancelDuringDelay(t *testing.T) {
	rows := []model.InputRow{
		{Company: "A", Period: "Q1", URL: "https://a.example"},
		{Company: "B", Period: "Q1", URL: "https://b.example"},
	}

	inv := new(mockInvoker)
	inv.On("Invoke", mock.Anything, rows[0].Request()).Return(successResult(rows[0], 1), nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	p := New(inv, nil, Options{Delay: 10 * time.Second})
	out, err := p.Run(ctx, rows)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "canceled")
	assert.Nil(t, out)
	inv.AssertNumberOfCalls(t, "Invoke", 1)
}

func TestPipeline_Run_RecordsHistory(t *testing.T) {
	row := model.InputRow{Company: "Acme Corp", Period: "Q1 2026", URL: "https://acme.com/q1"}

	inv := new(mockInvoker)
	inv.On("Invoke", mock.Anything, row.Request()).Return(successResult(row, 3), nil)

	st := new(mockStore)
	st.On("CreateRun", mock.Anything, "companies.csv", "out", 1).
		Return(&model.RunRecord{ID: "run-001", Status: model.RunStatusRunning}, nil)
	st.On("CompleteRun", mock.Anything, mock.MatchedBy(func(rec *model.RunRecord) bool {
		return rec.ID == "run-001" &&
			rec.Status == model.RunStatusCompleted &&
			rec.SuccessfulExtractions == 1 &&
			rec.FailedExtractions == 0 &&
			rec.TotalFactsExtracted == 3
	})).Return(nil)

	p := New(inv, st, Options{InputPath: "companies.csv", OutDir: "out"})
	out, err := p.Run(context.Background(), []model.InputRow{row})
	require.NoError(t, err)
	assert.Equal(t, "run-001", out.RunID)

	st.AssertExpectations(t)
}

func TestPipeline_Run_StoreFailureIsNonFatal(t *testing.T) {
	row := model.InputRow{Company: "Acme Corp", Period: "Q1 2026", URL: "https://acme.com/q1"}

	inv := new(mockInvoker)
	inv.On("Invoke", mock.Anything, row.Request()).Return(successResult(row, 1), nil)

	st := new(mockStore)
	st.On("CreateRun", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	p := New(inv, st, Options{})
	out, err := p.Run(context.Background(), []model.InputRow{row})

	require.NoError(t, err)
	assert.Empty(t, out.RunID)
	assert.Equal(t, 1, out.Stats.SuccessfulExtractions)
	st.AssertNotCalled(t, "CompleteRun", mock.Anything, mock.Anything)
}

func TestPipeline_Run_CancelMarksRunFailed(t *testing.T) {
	row := model.InputRow{Company: "Acme Corp", Period: "Q1 2026", URL: "https://acme.com/q1"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inv := new(mockInvoker)
	st := new(mockStore)
	st.On("CreateRun", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&model.RunRecord{ID: "run-002", Status: model.RunStatusRunning}, nil)
	st.On("CompleteRun", mock.Anything, mock.MatchedBy(func(rec *model.RunRecord) bool {
		return rec.ID == "run-002" && rec.Status == model.RunStatusFailed && rec.Error != ""
	})).Return(nil)

	p := New(inv, st, Options{})
	_, err := p.Run(ctx, []model.InputRow{row})

	require.Error(t, err)
	st.AssertExpectations(t)
	inv.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
}
