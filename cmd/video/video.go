package video

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dszqbsm/fraudcrawler/cmd/setup"
	"github.com/dszqbsm/fraudcrawler/llm"
	"github.com/dszqbsm/fraudcrawler/trace"
	"github.com/dszqbsm/fraudcrawler/video"
	"github.com/spf13/cobra"
)

var (
	urls         []string
	urlFile      string
	interval     int
	maxDuration  int
	output       string
	maxWorkers   int
	force        bool
	skipAnalysis bool
	tracing      bool
)

var VideoCmd = &cobra.Command{
	Use:   "video",
	Short: "analyse anti-fraud videos frame by frame.",
	Long:  "download anti-fraud videos, analyse their frames with a vision model and write html reports.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env := setup.FromContext(cmd.Context())
		vc := env.Config.Video
		flags := cmd.Flags()
		if !flags.Changed("interval") {
			interval = vc.Interval
		}
		if !flags.Changed("max-duration") {
			maxDuration = vc.MaxDuration
		}
		if !flags.Changed("output") {
			output = vc.Output
		}
		if !flags.Changed("max-workers") {
			maxWorkers = vc.MaxWorkers
		}

		list := append([]string(nil), urls...)
		if urlFile != "" {
			more, err := video.ReadURLFile(urlFile)
			if err != nil {
				return err
			}
			list = append(list, more...)
		}
		if len(list) == 0 {
			return errors.New("no video urls, use --urls or --url-file")
		}

		var tracer *trace.Ledger
		if tracing {
			path := vc.TraceFile
			if path == "" {
				path = filepath.Join(output, "trace.jsonl")
			}
			l, err := env.Tracer(path)
			if err != nil {
				return err
			}
			tracer = l
		}

		client, err := env.LLM(tracer)
		if err != nil {
			return err
		}
		if client == nil && !skipAnalysis {
			return fmt.Errorf("%w, use --skip-analysis to only extract frames", llm.ErrNoAPIKey)
		}

		dbPath := vc.DB
		if !filepath.IsAbs(dbPath) {
			dbPath = filepath.Join(output, dbPath)
		}
		logger := env.Logger.Named("video")
		p := video.NewProcessor(
			video.OpenDB(dbPath, logger),
			video.NewTools(video.ExecRunner{}, logger),
			video.NewAnalyzer(client),
			video.WithInterval(interval),
			video.WithMaxDuration(maxDuration),
			video.WithOutput(output),
			video.WithMaxWorkers(maxWorkers),
			video.WithForce(force),
			video.WithSkipAnalysis(skipAnalysis),
			video.WithFrameDelay(time.Duration(vc.FrameDelay)*time.Millisecond),
			video.WithTracer(tracer),
			video.WithProgress(cmd.ErrOrStderr()),
			video.WithLogger(logger),
		)
		results, err := p.Run(cmd.Context(), list)
		if err != nil {
			return err
		}

		var failed int
		for _, r := range results {
			if r.Status == video.StatusFailed {
				failed++
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "總報告: %s\n", filepath.Join(output, "master_report.html"))
		if failed == len(results) {
			return fmt.Errorf("all %d videos failed", failed)
		}
		return nil
	},
}

var costCmd = &cobra.Command{
	Use:   "cost [trace.jsonl]",
	Short: "print the cost report of a trace file.",
	Long:  "print the cost report of a trace file, grouped by model and run type.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env := setup.FromContext(cmd.Context())
		path := env.Config.Video.TraceFile
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			path = filepath.Join(env.Config.Video.Output, "trace.jsonl")
		}
		r, err := trace.CostReport(path)
		if err != nil {
			return err
		}
		trace.Display(cmd.OutOrStdout(), r)
		return nil
	},
}

func init() {
	f := VideoCmd.Flags()
	f.StringSliceVar(&urls, "urls", nil, "video urls")
	f.StringVar(&urlFile, "url-file", "", "file with one url per line, # starts a comment")
	f.IntVar(&interval, "interval", 10, "seconds between frames")
	f.IntVar(&maxDuration, "max-duration", 0, "only process the first seconds of each video, 0 for all")
	f.StringVar(&output, "output", "video_analysis", "output directory")
	f.IntVar(&maxWorkers, "max-workers", 3, "videos processed in parallel")
	f.BoolVar(&force, "force", false, "process videos again even if already done")
	f.BoolVar(&skipAnalysis, "skip-analysis", false, "only download and extract frames")
	f.BoolVar(&tracing, "trace", false, "record llm runs and print their cost")

	VideoCmd.AddCommand(costCmd)
}
