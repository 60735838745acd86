package trace

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs", "trace.jsonl")
	l, err := Open(path, nil)
	require.NoError(t, err)

	root := l.Start("process_video", TypeChain, map[string]interface{}{"url": "u"}, nil)
	frame := root.Child("frame_analysis", TypeLLM, map[string]interface{}{"model": "gpt-4o"})
	require.NoError(t, frame.Finish(nil, map[string]interface{}{"cost_estimate": 0.02}, nil))

	summary := root.Child("video_summary", TypeLLM, map[string]interface{}{"model": "gpt-4o"})
	require.NoError(t, summary.Finish(nil, map[string]interface{}{"cost_estimate": 0.06}, nil))

	dl := root.Child("download", TypeTool, nil)
	require.NoError(t, dl.Finish(nil, nil, errors.New("yt-dlp failed")))
	require.NoError(t, root.Finish(map[string]interface{}{"status": "success"}, nil, nil))
	require.NoError(t, l.Close())

	assert.Equal(t, root.ID, frame.ParentID)
	assert.Empty(t, root.ParentID)
	assert.Equal(t, "yt-dlp failed", dl.Error)
	assert.Contains(t, dl.Metadata, "elapsed")

	report, err := CostReport(path)
	require.NoError(t, err)
	assert.Equal(t, 4, report.RunCount)
	assert.InDelta(t, 0.08, report.TotalCost, 1e-9)
	assert.InDelta(t, 0.08, report.ModelCosts["gpt-4o"], 1e-9)
	assert.Equal(t, 2, report.RunTypes[TypeLLM].Count)
	assert.Equal(t, 1, report.RunTypes[TypeTool].Count)
	assert.Contains(t, report.ModelCosts, "unknown")
}

func TestNilLedgerIsNoop(t *testing.T) {
	var l *Ledger
	r := l.Start("x", TypeChain, nil, nil)
	assert.Nil(t, r)
	assert.Nil(t, r.Child("y", TypeLLM, nil))
	assert.NoError(t, r.Finish(nil, nil, nil))
	assert.NoError(t, l.Close())
}

func TestCostSkipsBadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.jsonl")
	content := `{"id":"1","name":"a","run_type":"llm","inputs":{"model":"gpt-4"},"metadata":{"cost_estimate":0.5}}
not json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	report, err := CostReport(path)
	require.NoError(t, err)
	assert.Equal(t, 1, report.RunCount)
	assert.Equal(t, 0.5, report.ModelCosts["gpt-4"])
}

func TestDisplay(t *testing.T) {
	var buf bytes.Buffer
	Display(&buf, Report{
		TotalCost:  0.04,
		ModelCosts: map[string]float64{"gpt-4o": 0.03, "gpt-4": 0.01, "unknown": 0},
		RunTypes:   map[string]TypeCost{"llm": {Count: 3, Cost: 0.04}, "chain": {Count: 1}},
		RunCount:   4,
	})
	out := buf.String()
	assert.Contains(t, out, "總運行數量: 4")
	assert.Contains(t, out, "總成本: $0.0400")
	assert.Contains(t, out, "  - gpt-4o: $0.0300 (75.0%)")
	assert.Contains(t, out, "  - llm: 3 次運行, $0.0400 (100.0%)")
	assert.NotContains(t, out, "unknown")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("gpt-4o:")), bytes.Index(buf.Bytes(), []byte("gpt-4:")))
}

func TestCostMissingFile(t *testing.T) {
	_, err := CostReport(filepath.Join(t.TempDir(), "none.jsonl"))
	assert.Error(t, err)
}
