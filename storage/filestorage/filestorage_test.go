package filestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dszqbsm/fraudcrawler/spider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	ts := time.Date(2025, 3, 1, 9, 5, 7, 0, time.Local)
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.bbc.com", "www.bbc.com_root_20250301_090507.json"},
		{"https://www.ftc.gov/complaint", "www.ftc.gov_complaint_20250301_090507.json"},
		{"https://165.npa.gov.tw/#/article/C/1641", "165.npa.gov.tw__article_C_1641_20250301_090507.json"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.url, ts))
		})
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	fs, err := New(dir, nil)
	require.NoError(t, err)
	fs.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local) }

	cell := &spider.DataCell{Data: map[string]interface{}{
		"Data": map[string]interface{}{"url": "https://www.ic3.gov/", "title": "<b>IC3</b>"},
	}}
	require.NoError(t, fs.Save(cell, &spider.DataCell{Data: map[string]interface{}{}}))

	b, err := os.ReadFile(filepath.Join(dir, "www.ic3.gov__20250101_000000.json"))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"title": "<b>IC3</b>"`)

	var back map[string]interface{}
	require.NoError(t, ReadJSON(filepath.Join(dir, "www.ic3.gov__20250101_000000.json"), &back))
	assert.Equal(t, "https://www.ic3.gov/", back["url"])
}
