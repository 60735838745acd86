package config

// 165全民防騙網首頁、分類頁、具體文章，以及防詐報告中提到的外部來源
var DefaultBaseURLs = []string{
	"https://165.npa.gov.tw/#/",
	"https://165.npa.gov.tw/#/articles/C",

	"https://165.npa.gov.tw/#/article/C/1641",
	"https://165.npa.gov.tw/#/article/C/1585",
	"https://165.npa.gov.tw/#/article/C/1576",
	"https://165.npa.gov.tw/#/article/C/1551",
	"https://165.npa.gov.tw/#/article/C/1543",
	"https://165.npa.gov.tw/#/article/C/1516",
	"https://165.npa.gov.tw/#/article/C/1477",
	"https://165.npa.gov.tw/#/article/C/1474",
	"https://165.npa.gov.tw/#/article/C/1467",
	"https://165.npa.gov.tw/#/article/C/1466",
	"https://165.npa.gov.tw/#/article/C/1422",
	"https://165.npa.gov.tw/#/article/C/1425",

	"https://www.wechat.com/",
	"https://www.taobao.com/",
	"http://www.cnnic.net.cn/",
	"https://www.taiwannews.com.tw/",
	"https://www.scmp.com/",
	"https://www.bbc.com/",
	"https://www.thestar.com.my/",
	"https://focustaiwan.tw/",
	"https://www.statista.com/",
	"https://www.phishing.org/",
	"https://www.ftc.gov/complaint",
	"https://beinternetawesome.withgoogle.com/",
	"https://www.microsoft.com/",
	"https://www.virustotal.com/",
	"https://whois.domaintools.com/",
	"https://cybersecurityventures.com/",
	"https://www.scamwatch.gov.au/",
	"https://www.truecaller.com/",
	"https://www.t-mobile.com/scam-shield",
	"https://www.gartner.com/",
	"https://www.ic3.gov/",
}

func Default() *Config {
	return &Config{
		LogLevel: "INFO",
		Pipeline: PipelineConfig{
			BaseDir:      "fraud_data",
			CrawlDir:     "fraud_data/01_crawled_data",
			ProcessedDir: "fraud_data/02_summarized_data",
			TrainingDir:  "fraud_data/03_training_data",
			JinaDelay:    2,
			OpenAIDelay:  1,
			BaseURLs:     append([]string(nil), DefaultBaseURLs...),
			Workers:      1,
		},
		Fetcher: FetcherConfig{
			Timeout: 30000,
		},
		Storage: StorageConfig{
			BatchCount: 10,
		},
		OpenAI: OpenAIConfig{
			Model:           "gpt-4o",
			Temperature:     0.3,
			MaxContentChars: 4000,
			Retries:         2,
			Timeout:         60,
		},
		Finetune: FinetuneConfig{
			Model:                  "gpt-4o-mini-2024-07-18",
			Method:                 "supervised",
			NEpochs:                3,
			LearningRateMultiplier: 0.1,
			PollInterval:           60,
			EventLimit:             10,
		},
		Chat: ChatConfig{
			Model:       "ft:gpt-3.5-turbo-0125:personal::B6GV9v9U",
			Temperature: 0.7,
			MaxTokens:   800,
			Listen:      ":8501",
			Sessions:    256,
		},
		Video: VideoConfig{
			Interval:   10,
			Output:     "video_analysis",
			MaxWorkers: 3,
			DB:         "processed_videos.json",
			FrameDelay: 500,
		},
	}
}
