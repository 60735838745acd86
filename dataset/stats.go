package dataset

import (
	"fmt"
	"path/filepath"
	"unicode/utf8"

	"github.com/dszqbsm/fraudcrawler/storage/filestorage"
)

type Stats struct {
	Timestamp         string  `json:"timestamp"`
	SFTSamples        int     `json:"sft_samples"`
	RLHFSamples       int     `json:"rlhf_samples"`
	TotalSamples      int     `json:"total_samples"`
	AvgInstructionLen float64 `json:"avg_instruction_length"`
	AvgOutputLen      float64 `json:"avg_output_length"`
	AvgChosenLen      float64 `json:"avg_chosen_length"`
	AvgRejectedLen    float64 `json:"avg_rejected_length"`
}

// 各类样本数量和平均字数
func (g *Generator) Stats(td TrainingData) Stats {
	s := Stats{
		Timestamp:    g.now().Format("20060102_150405"),
		SFTSamples:   len(td.SFTData),
		RLHFSamples:  len(td.RLHFData),
		TotalSamples: len(td.SFTData) + len(td.RLHFData),
	}
	var ins, out, chosen, rejected int
	for _, it := range td.SFTData {
		ins += utf8.RuneCountInString(it.Instruction)
		out += utf8.RuneCountInString(it.Output)
	}
	for _, it := range td.RLHFData {
		chosen += utf8.RuneCountInString(it.Chosen)
		rejected += utf8.RuneCountInString(it.Rejected)
	}
	s.AvgInstructionLen = avg(ins, s.SFTSamples)
	s.AvgOutputLen = avg(out, s.SFTSamples)
	s.AvgChosenLen = avg(chosen, s.RLHFSamples)
	s.AvgRejectedLen = avg(rejected, s.RLHFSamples)
	return s
}

func avg(total, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(total) / float64(n)
}

// 写出dataset_stats_{时间戳}.json
func SaveStats(dir string, s Stats) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("dataset_stats_%s.json", s.Timestamp))
	return path, filestorage.WriteJSON(path, s)
}
