package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dszqbsm/fraudcrawler/cmd/chat"
	"github.com/dszqbsm/fraudcrawler/cmd/crawl"
	"github.com/dszqbsm/fraudcrawler/cmd/dataset"
	"github.com/dszqbsm/fraudcrawler/cmd/finetune"
	"github.com/dszqbsm/fraudcrawler/cmd/pipeline"
	"github.com/dszqbsm/fraudcrawler/cmd/setup"
	"github.com/dszqbsm/fraudcrawler/cmd/video"
	"github.com/dszqbsm/fraudcrawler/config"
	"github.com/dszqbsm/fraudcrawler/version"
	"github.com/spf13/cobra"
)

// cmd.go借助cobra定义命令行界面，根命令只负责加载配置和初始化日志，具体功能挂在各子命令下
// crawl抓取网页，pipeline串联抓取、整理和生成训练数据，dataset转换和校验训练文件，
// finetune提交并跟踪微调任务，chat提供问答服务，video分析宣导视频，version打印版本信息

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print version.",
	Long:  "print version.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		version.Fprint(cmd.OutOrStdout())
	},
}

var env *setup.Env

var rootCmd = &cobra.Command{
	Use:          "fraudcrawler",
	Short:        "crawl anti-fraud content and build fine-tuning data.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd == versionCmd {
			return nil
		}
		e, err := setup.Init()
		if err != nil {
			return err
		}
		env = e
		cmd.SetContext(setup.WithEnv(cmd.Context(), e))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&config.File, "config", config.File, "config file")
	rootCmd.AddCommand(
		crawl.CrawlCmd,
		pipeline.PipelineCmd,
		dataset.DatasetCmd,
		finetune.FinetuneCmd,
		chat.ChatCmd,
		video.VideoCmd,
		versionCmd,
	)
}

// 收到SIGINT或SIGTERM时取消上下文，子命令据此停止
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if env != nil {
		if cerr := env.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		os.Exit(1)
	}
}
