package pipeline

import (
	"fmt"

	"github.com/dszqbsm/fraudcrawler/cmd/setup"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var PipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "crawl, process and generate training data.",
	Long:  "crawl, process and generate training data, each stage can also run on its own.",
}

var runCmd = &cobra.Command{
	Use:   "run [urls...]",
	Short: "run all three stages.",
	Long:  "run all three stages, the configured base urls are used when none is given.",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env := setup.FromContext(cmd.Context())
		p, err := env.Pipeline()
		if err != nil {
			return err
		}
		path, err := p.Run(cmd.Context(), args)
		if err != nil {
			env.Logger.Error("pipeline failed", zap.Error(err))
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "訓練數據已保存: %s\n", path)
		return nil
	},
}

var processCmd = &cobra.Command{
	Use:   "process <crawl_results.json>",
	Short: "process a crawl results file.",
	Long:  "process a crawl results file with openai, content is only parsed when no api key is set.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env := setup.FromContext(cmd.Context())
		p, err := env.Pipeline()
		if err != nil {
			return err
		}
		path, err := p.Process(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "處理結果已保存: %s\n", path)
		return nil
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate <processed.json>...",
	Short: "generate training data from processed results.",
	Long:  "generate training data from processed results, full, sft and rlhf data are saved separately.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env := setup.FromContext(cmd.Context())
		p, err := env.Pipeline()
		if err != nil {
			return err
		}
		paths, err := p.Generate(args)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "完整數據: %s\nSFT數據: %s\nRLHF數據: %s\n", paths.Full, paths.SFT, paths.RLHF)
		for _, p := range paths.Individuals {
			fmt.Fprintf(out, "單檔數據: %s\n", p)
		}
		return nil
	},
}

func init() {
	PipelineCmd.AddCommand(runCmd, processCmd, generateCmd)
}
