package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dszqbsm/fraudcrawler/processor"
	"github.com/dszqbsm/fraudcrawler/spider"
	"github.com/dszqbsm/fraudcrawler/storage/filestorage"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Metadata struct {
	SourceURL       string `json:"source_url,omitempty"`
	Timestamp       string `json:"timestamp"`
	FraudTypesCount *int   `json:"fraud_types_count,omitempty"`
	TotalFiles      int    `json:"total_files,omitempty"`
	TotalItems      *int   `json:"total_items,omitempty"`
	SuccessfulItems *int   `json:"successful_items,omitempty"`
	TotalSFTItems   *int   `json:"total_sft_items,omitempty"`
	TotalRLHFItems  *int   `json:"total_rlhf_items,omitempty"`
}

type TrainingData struct {
	SFTData  []SFTItem  `json:"sft_data"`
	RLHFData []RLHFItem `json:"rlhf_data"`
	Metadata Metadata   `json:"metadata"`
}

// 单个输入文件生成的训练数据
type Individual struct {
	File         string       `json:"file"`
	TrainingData TrainingData `json:"training_data"`
}

// SaveSplit写出的文件
type Paths struct {
	Full        string   `json:"full_path"`
	SFT         string   `json:"sft_path"`
	RLHF        string   `json:"rlhf_path"`
	Individuals []string `json:"individual_paths,omitempty"`
}

type Generator struct {
	options
}

func New(opts ...Option) *Generator {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &Generator{options: options}
}

func intp(n int) *int { return &n }

func newTrainingData() TrainingData {
	return TrainingData{
		SFTData:  []SFTItem{},
		RLHFData: []RLHFItem{},
		Metadata: Metadata{Timestamp: spider.Timestamp()},
	}
}

// 把一条处理结果转换为SFT和RLHF数据
func Transform(r processor.Result) TrainingData {
	types := ExtractFraudTypes(r)
	td := newTrainingData()
	td.Metadata.SourceURL = r.URL
	td.Metadata.FraudTypesCount = intp(len(types))

	for _, info := range types {
		for _, qa := range QAPairs(info) {
			td.SFTData = append(td.SFTData, SFTItem{Instruction: qa.Question, Output: qa.CorrectAnswer})
		}
		td.RLHFData = append(td.RLHFData, RLHFExamples(info)...)
	}
	return td
}

func (td *TrainingData) merge(other TrainingData) {
	td.SFTData = append(td.SFTData, other.SFTData...)
	td.RLHFData = append(td.RLHFData, other.RLHFData...)
}

func (td *TrainingData) count() {
	td.Metadata.TotalSFTItems = intp(len(td.SFTData))
	td.Metadata.TotalRLHFItems = intp(len(td.RLHFData))
}

/*
输入处理报告，输出合并后的训练数据

只转换处理成功的条目
*/
func (g *Generator) Generate(report processor.Report) TrainingData {
	g.logger.Info("generating training data", zap.Int("results", len(report.Results)))

	bar := progressbar.NewOptions(len(report.Results),
		progressbar.OptionSetDescription("Generating training data"),
		progressbar.OptionSetWriter(g.progress),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(50),
	)

	td := newTrainingData()
	td.Metadata.TotalItems = intp(len(report.Results))
	successful := 0
	for _, r := range report.Results {
		if r.Success {
			td.merge(Transform(r))
			successful++
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	td.Metadata.SuccessfulItems = intp(successful)
	td.count()
	g.logger.Info("training data generation complete",
		zap.Int("sft", len(td.SFTData)),
		zap.Int("rlhf", len(td.RLHFData)))
	return td
}

/*
输入若干处理结果文件，输出合并后的训练数据和每个文件各自的训练数据

文件可以是完整的处理报告，也可以是单条处理结果；读取失败的文件跳过，错误合并返回
*/
func (g *Generator) GenerateFromFiles(paths []string) (TrainingData, []Individual, error) {
	all := newTrainingData()
	all.Metadata.TotalFiles = len(paths)

	var (
		individuals []Individual
		errs        error
	)
	for _, p := range paths {
		td, err := g.generateFile(p)
		if err != nil {
			g.logger.Warn("skipping file", zap.String("file", p), zap.Error(err))
			errs = multierr.Append(errs, err)
			continue
		}
		all.merge(td)
		individuals = append(individuals, Individual{File: p, TrainingData: td})
		g.logger.Info("processed file",
			zap.String("file", p),
			zap.Int("sft", len(td.SFTData)),
			zap.Int("rlhf", len(td.RLHFData)))
	}
	all.count()
	return all, individuals, errs
}

func (g *Generator) generateFile(path string) (TrainingData, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return TrainingData{}, err
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(b, &probe); err != nil {
		return TrainingData{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if _, ok := probe["results"]; ok {
		var report processor.Report
		if err := json.Unmarshal(b, &report); err != nil {
			return TrainingData{}, fmt.Errorf("parse %s: %w", path, err)
		}
		return g.Generate(report), nil
	}
	var r processor.Result
	if err := json.Unmarshal(b, &r); err != nil {
		return TrainingData{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return Transform(r), nil
}

/*
输入输出目录、文件名前缀、训练数据和单文件结果，输出写出的文件路径

完整数据、SFT数据、RLHF数据各一个文件，单文件结果另存为individual_{文件名}_{序号}.json
*/
func (g *Generator) SaveSplit(dir, prefix string, td TrainingData, individuals []Individual) (Paths, error) {
	if prefix == "" {
		prefix = "training_data"
	}
	ts := g.now().Format("20060102_150405")
	paths := Paths{
		Full: filepath.Join(dir, fmt.Sprintf("%s_%s.json", prefix, ts)),
		SFT:  filepath.Join(dir, fmt.Sprintf("%s_sft_%s.json", prefix, ts)),
		RLHF: filepath.Join(dir, fmt.Sprintf("%s_rlhf_%s.json", prefix, ts)),
	}
	err := multierr.Combine(
		filestorage.WriteJSON(paths.Full, td),
		filestorage.WriteJSON(paths.SFT, td.SFTData),
		filestorage.WriteJSON(paths.RLHF, td.RLHFData),
	)
	for i, ind := range individuals {
		p := filepath.Join(dir, fmt.Sprintf("individual_%s_%d.json", filepath.Base(ind.File), i+1))
		err = multierr.Append(err, filestorage.WriteJSON(p, ind.TrainingData))
		paths.Individuals = append(paths.Individuals, p)
	}
	if err != nil {
		return paths, err
	}
	g.logger.Info("training data saved",
		zap.String("full", paths.Full),
		zap.String("sft", paths.SFT),
		zap.String("rlhf", paths.RLHF))
	return paths, nil
}

// 读取训练数据文件
func ReadTrainingData(path string) (TrainingData, error) {
	var td TrainingData
	err := filestorage.ReadJSON(path, &td)
	return td, err
}
