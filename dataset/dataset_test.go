package dataset

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dszqbsm/fraudcrawler/processor"
	"github.com/dszqbsm/fraudcrawler/storage/filestorage"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func processed(data map[string]interface{}) processor.Result {
	return processor.Result{
		URL:              "https://165.npa.gov.tw",
		Success:          true,
		OpenAIProcessing: &processor.OpenAIResult{Success: true, StructuredData: data},
	}
}

func TestExtractKeywords(t *testing.T) {
	got := ExtractKeywords("詐騙 錢 假冒身分 ab abc 銀行")
	assert.Equal(t, []string{"詐騙", "假冒身分", "abc", "銀行"}, got)
	assert.Empty(t, ExtractKeywords(""))
}

func TestExtractFraudTypes(t *testing.T) {
	t.Run("type list", func(t *testing.T) {
		types := ExtractFraudTypes(processed(map[string]interface{}{
			keyTypes:      []interface{}{"假投資", "假網拍"},
			keyWarnings:   "假投資 詐騙 假投資 高報酬",
			keyPrevention: "不要轉帳",
		}))
		require.Len(t, types, 2)
		assert.Equal(t, "假投資", types[0].Type)
		assert.Equal(t, "不要轉帳", types[0].Prevention)
		assert.Equal(t, []string{"假投資", "詐騙", "高報酬"}, types[0].AlertKeywords)
		assert.Equal(t, []string{"假網拍", "假投資", "詐騙", "高報酬"}, types[1].AlertKeywords)
		assert.Equal(t, "假網拍的典型情況", types[1].Examples[0].Scenario)
	})

	t.Run("type objects", func(t *testing.T) {
		types := ExtractFraudTypes(processed(map[string]interface{}{
			keyTypes: []interface{}{map[string]interface{}{"類型": "假檢警", "說明": "x"}},
		}))
		require.Len(t, types, 1)
		assert.Equal(t, "假檢警", types[0].Type)
	})

	t.Run("other structured data", func(t *testing.T) {
		types := ExtractFraudTypes(processed(map[string]interface{}{
			keySummary: "防詐騙宣導網站 銀行",
		}))
		require.Len(t, types, 1)
		assert.Equal(t, "一般詐騙", types[0].Type)
		assert.Equal(t, "未提供詳細資訊", types[0].Description)
		assert.Equal(t, []string{"防詐騙宣導網站", "銀行"}, types[0].AlertKeywords)
	})

	t.Run("warnings as list", func(t *testing.T) {
		types := ExtractFraudTypes(processed(map[string]interface{}{
			keyWarnings: []interface{}{"勿轉帳", "勿給個資"},
		}))
		require.Len(t, types, 1)
		assert.Equal(t, "勿轉帳\n勿給個資", types[0].Description)
	})

	t.Run("empty structured data", func(t *testing.T) {
		assert.Empty(t, ExtractFraudTypes(processed(map[string]interface{}{})))
	})

	t.Run("not processed", func(t *testing.T) {
		types := ExtractFraudTypes(processor.Result{Success: true})
		require.Len(t, types, 1)
		assert.Equal(t, "網路詐騙", types[0].Type)
		assert.Equal(t, []string{"詐騙", "個資", "騙局", "錢", "緊急"}, types[0].AlertKeywords)
	})
}

func TestQAPairs(t *testing.T) {
	pairs := QAPairs(FraudInfo{Type: "假投資", Description: "保證獲利", Prevention: "查證"})
	require.Len(t, pairs, 3)
	assert.Equal(t, "如何辨識假投資詐騙？", pairs[0].Question)
	assert.Equal(t, "辨識假投資詐騙的方法：保證獲利\n\n預防方法：查證", pairs[0].CorrectAnswer)
	assert.Equal(t, "遇到疑似假投資，應該如何處理？", pairs[1].Question)
	assert.True(t, strings.HasSuffix(pairs[1].CorrectAnswer, "或向警方舉報。查證"))
	assert.Equal(t, "假投資的警示跡象包括：高報酬, 急迫感, 保密要求等。詐騙者通常會保證獲利", pairs[2].CorrectAnswer)
	for _, p := range pairs {
		assert.Len(t, p.IncorrectAnswers, 3)
	}

	pairs = QAPairs(FraudInfo{Type: "x", AlertKeywords: []string{"a1", "a2", "a3", "a4", "a5", "a6"}})
	assert.Contains(t, pairs[2].CorrectAnswer, "a1, a2, a3, a4, a5等")
}

func TestRLHFExamples(t *testing.T) {
	ex := RLHFExamples(FraudInfo{Type: "假投資"})
	require.Len(t, ex, 3)
	assert.Contains(t, ex[0].Context, "投資假投資")
	assert.Contains(t, ex[1].Context, "「假投資安全警報」")
	assert.Equal(t, "我應該提供我的個人資料嗎？", ex[2].Prompt)
	assert.Contains(t, ex[2].Rejected, personalInfoTypes)
}

func TestTransform(t *testing.T) {
	td := Transform(processed(map[string]interface{}{keyTypes: []interface{}{"假投資", "假網拍"}}))
	assert.Len(t, td.SFTData, 6)
	assert.Len(t, td.RLHFData, 6)
	assert.Equal(t, "https://165.npa.gov.tw", td.Metadata.SourceURL)
	require.NotNil(t, td.Metadata.FraudTypesCount)
	assert.Equal(t, 2, *td.Metadata.FraudTypesCount)
	assert.Equal(t, "", td.SFTData[0].Input)
}

func TestGenerate(t *testing.T) {
	g := New(WithProgress(io.Discard))
	report := processor.Report{Results: []processor.Result{
		processed(map[string]interface{}{keyTypes: []interface{}{"假投資"}}),
		{URL: "https://x", Error: "Skipped processing due to failed crawl"},
		{URL: "https://y", Success: true},
	}}
	td := g.Generate(report)

	assert.Len(t, td.SFTData, 6)
	assert.Len(t, td.RLHFData, 6)
	assert.Equal(t, 3, *td.Metadata.TotalItems)
	assert.Equal(t, 2, *td.Metadata.SuccessfulItems)
	assert.Equal(t, 6, *td.Metadata.TotalSFTItems)
	assert.Equal(t, 6, *td.Metadata.TotalRLHFItems)
}

func TestGenerateFromFilesAndSaveSplit(t *testing.T) {
	dir := t.TempDir()
	single := filepath.Join(dir, "single.json")
	report := filepath.Join(dir, "report.json")
	require.NoError(t, filestorage.WriteJSON(single, processed(map[string]interface{}{keyTypes: []interface{}{"假投資"}})))
	require.NoError(t, filestorage.WriteJSON(report, processor.Report{Results: []processor.Result{{URL: "u", Success: true}}}))
	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("{"), 0o644))

	clock := func() time.Time { return time.Date(2025, 3, 1, 17, 29, 55, 0, time.UTC) }
	g := New(WithProgress(io.Discard), WithClock(clock))
	td, individuals, err := g.GenerateFromFiles([]string{single, broken, report})
	assert.Error(t, err)
	require.Len(t, individuals, 2)
	assert.Equal(t, 3, td.Metadata.TotalFiles)
	assert.Equal(t, 6, *td.Metadata.TotalSFTItems)

	out := filepath.Join(dir, "out")
	paths, err := g.SaveSplit(out, "", td, individuals)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "training_data_20250301_172955.json"), paths.Full)
	assert.Equal(t, filepath.Join(out, "training_data_sft_20250301_172955.json"), paths.SFT)
	assert.Equal(t, filepath.Join(out, "individual_report.json_2.json"), paths.Individuals[1])

	back, err := ReadTrainingData(paths.Full)
	require.NoError(t, err)
	if diff := cmp.Diff(td.SFTData, back.SFTData); diff != "" {
		t.Errorf("sft mismatch (-want +got):\n%s", diff)
	}
	var sft []SFTItem
	require.NoError(t, filestorage.ReadJSON(paths.SFT, &sft))
	assert.Len(t, sft, 6)
}

func TestStats(t *testing.T) {
	g := New(WithClock(func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }))
	s := g.Stats(TrainingData{
		SFTData:  []SFTItem{{Instruction: "一二", Output: "一二三四"}, {Instruction: "一二三四", Output: "一二"}},
		RLHFData: []RLHFItem{{Chosen: "好", Rejected: "壞壞"}},
	})
	assert.Equal(t, Stats{
		Timestamp:         "20250102_030405",
		SFTSamples:        2,
		RLHFSamples:       1,
		TotalSamples:      3,
		AvgInstructionLen: 3,
		AvgOutputLen:      3,
		AvgChosenLen:      1,
		AvgRejectedLen:    2,
	}, s)

	path, err := SaveStats(t.TempDir(), s)
	require.NoError(t, err)
	assert.Equal(t, "dataset_stats_20250102_030405.json", filepath.Base(path))
}
