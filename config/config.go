package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dszqbsm/fraudcrawler/spider"
	"github.com/joho/godotenv"
)

// 命令行--config覆盖
var File = "config.toml"

type Config struct {
	LogLevel string `toml:"logLevel"`
	LogFile  string `toml:"logFile"`

	// 只从环境变量或.env读取
	JinaAPIKey    string `toml:"-"`
	OpenAIAPIKey  string `toml:"-"`
	OpenAIBaseURL string `toml:"-"`

	Pipeline PipelineConfig      `toml:"pipeline"`
	Fetcher  FetcherConfig       `toml:"fetcher"`
	Storage  StorageConfig       `toml:"storage"`
	OpenAI   OpenAIConfig        `toml:"openai"`
	Finetune FinetuneConfig      `toml:"finetune"`
	Chat     ChatConfig          `toml:"chat"`
	Video    VideoConfig         `toml:"video"`
	Tasks    []spider.TaskConfig `toml:"Tasks"`
}

type PipelineConfig struct {
	BaseDir      string   `toml:"baseDir"`
	CrawlDir     string   `toml:"crawlDir"`
	ProcessedDir string   `toml:"processedDir"`
	TrainingDir  string   `toml:"trainingDir"`
	JinaDelay    float64  `toml:"jinaDelay"`   // 秒
	OpenAIDelay  float64  `toml:"openaiDelay"` // 秒
	BaseURLs     []string `toml:"baseURLs"`
	Workers      int      `toml:"workers"`
	SavePerURL   bool     `toml:"savePerURL"`
}

type FetcherConfig struct {
	Timeout          int      `toml:"timeout"` // 毫秒
	Proxy            []string `toml:"proxy"`
	InsecureFallback bool     `toml:"insecureFallback"`
}

type StorageConfig struct {
	SQLURL     string `toml:"sqlURL"`
	BatchCount int    `toml:"batchCount"`
}

type OpenAIConfig struct {
	Model           string  `toml:"model"`
	Temperature     float32 `toml:"temperature"`
	MaxContentChars int     `toml:"maxContentChars"`
	Retries         int     `toml:"retries"`
	Timeout         int     `toml:"timeout"` // 秒
}

type FinetuneConfig struct {
	Model                  string  `toml:"model"`
	Method                 string  `toml:"method"`
	NEpochs                int     `toml:"nEpochs"`
	LearningRateMultiplier float64 `toml:"learningRateMultiplier"`
	PollInterval           int     `toml:"pollInterval"` // 秒
	EventLimit             int     `toml:"eventLimit"`
}

type ChatConfig struct {
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
	MaxTokens   int     `toml:"maxTokens"`
	Listen      string  `toml:"listen"`
	Sessions    int     `toml:"sessions"`
}

type VideoConfig struct {
	Interval    int    `toml:"interval"`    // 秒
	MaxDuration int    `toml:"maxDuration"` // 秒，0表示不限
	Output      string `toml:"output"`
	MaxWorkers  int    `toml:"maxWorkers"`
	DB          string `toml:"db"`
	TraceFile   string `toml:"traceFile"`
	FrameDelay  int    `toml:"frameDelay"` // 毫秒
}

/*
输入配置文件路径，输出配置和错误

先加载.env，再用默认值打底解析toml，最后用环境变量填充密钥；配置文件不存在时只用默认值
*/
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	cfg.JinaAPIKey = os.Getenv("JINA_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")
	if u := os.Getenv("MYSQL_URL"); u != "" {
		cfg.Storage.SQLURL = u
	}

	return cfg, nil
}

func (p PipelineConfig) JinaInterval() time.Duration {
	return time.Duration(p.JinaDelay * float64(time.Second))
}

func (p PipelineConfig) OpenAIInterval() time.Duration {
	return time.Duration(p.OpenAIDelay * float64(time.Second))
}

func (f FetcherConfig) TimeoutDuration() time.Duration {
	return time.Duration(f.Timeout) * time.Millisecond
}

func (f FinetuneConfig) PollDuration() time.Duration {
	return time.Duration(f.PollInterval) * time.Second
}
