package dataset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dszqbsm/fraudcrawler/cmd/setup"
	"github.com/dszqbsm/fraudcrawler/dataset"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var DatasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "convert and check fine-tuning files.",
	Long:  "convert training data to jsonl fine-tuning files, validate them and print statistics.",
}

// sft、dpo、prompt三个子命令只差输出格式
func convertCmd(use string, kind dataset.Kind, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <training_data.json> <out.jsonl>",
		Short: short,
		Long:  short + " only sft_data of the training file is read.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := setup.FromContext(cmd.Context())
			n, err := dataset.Convert(args[0], args[1], kind)
			if err != nil {
				env.Logger.Error("convert failed", zap.String("kind", string(kind)), zap.Error(err))
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已轉換 %d 筆資料並保存至 %s\n", n, args[1])
			return nil
		},
	}
}

var appendTo string

var videoCmd = &cobra.Command{
	Use:   "video <analysis_dir> <out.jsonl>",
	Short: "turn video analyses into chat records.",
	Long:  "turn video summaries and frame analyses into chat records, optionally appending them to another file.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := dataset.ConvertVideoAnalyses(args[0], args[1], appendTo)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "已轉換 %d 筆資料並保存至 %s\n", n, args[1])
		if appendTo != "" {
			fmt.Fprintf(out, "已追加至 %s\n", appendTo)
		}
		return nil
	},
}

var kind string

var validateCmd = &cobra.Command{
	Use:   "validate <file.jsonl>",
	Short: "validate a jsonl fine-tuning file.",
	Long:  "validate every line of a jsonl fine-tuning file against the schema of its record kind.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := dataset.Validate(args[0], dataset.Kind(kind))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %d/%d 行有效\n", v.Path, v.Valid, v.Lines)
		for _, le := range v.Invalid {
			fmt.Fprintf(out, "  第 %d 行: %s\n", le.Line, strings.Join(le.Errors, "; "))
		}
		if !v.OK() {
			return fmt.Errorf("%d invalid lines", len(v.Invalid))
		}
		return nil
	},
}

var statsDir string

var statsCmd = &cobra.Command{
	Use:   "stats <training_data.json>",
	Short: "print training data statistics.",
	Long:  "print sample counts and average lengths of a training data file and save them as json.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env := setup.FromContext(cmd.Context())
		td, err := dataset.ReadTrainingData(args[0])
		if err != nil {
			return err
		}
		s := dataset.New(dataset.WithLogger(env.Logger.Named("dataset"))).Stats(td)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "SFT樣本: %d\nRLHF樣本: %d\n總樣本: %d\n", s.SFTSamples, s.RLHFSamples, s.TotalSamples)
		fmt.Fprintf(out, "平均指令長度: %.1f\n平均回答長度: %.1f\n", s.AvgInstructionLen, s.AvgOutputLen)
		fmt.Fprintf(out, "平均選擇長度: %.1f\n平均拒絕長度: %.1f\n", s.AvgChosenLen, s.AvgRejectedLen)

		dir := statsDir
		if dir == "" {
			dir = filepath.Dir(args[0])
		}
		path, err := dataset.SaveStats(dir, s)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "統計已保存: %s\n", path)
		return nil
	},
}

func init() {
	videoCmd.Flags().StringVar(&appendTo, "append-to", "", "also append records to this jsonl file")
	validateCmd.Flags().StringVar(&kind, "kind", string(dataset.KindChat), "record kind: chat, dpo or prompt")
	statsCmd.Flags().StringVar(&statsDir, "out", "", "directory of the stats file, defaults to the input's")

	DatasetCmd.AddCommand(
		convertCmd("sft", dataset.KindChat, "convert to chat fine-tuning records."),
		convertCmd("dpo", dataset.KindDPO, "convert to dpo preference records."),
		convertCmd("prompt", dataset.KindPrompt, "convert to prompt/completion records."),
		videoCmd,
		validateCmd,
		statsCmd,
	)
}
