package crawl

import (
	"fmt"

	"github.com/dszqbsm/fraudcrawler/cmd/setup"
	"github.com/dszqbsm/fraudcrawler/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var CrawlCmd = &cobra.Command{
	Use:   "crawl [urls...]",
	Short: "crawl urls through jina reader.",
	Long:  "crawl urls through jina reader, the configured base urls are used when none is given.",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env := setup.FromContext(cmd.Context())
		p, err := env.Pipeline()
		if err != nil {
			return err
		}
		path, report, err := p.CrawlToFile(cmd.Context(), args)
		if err != nil {
			env.Logger.Error("crawl failed", zap.Error(err))
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "成功爬取: %d/%d\n結果已保存: %s\n", report.SuccessfulCrawls, report.TotalURLs, path)
		return nil
	},
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "crawl the categorized fraud sources.",
	Long:  "crawl the categorized fraud sources directly, falling back to jina reader on failure.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env := setup.FromContext(cmd.Context())
		p, err := env.Pipeline()
		if err != nil {
			return err
		}
		path, grouped, err := p.CrawlSources(cmd.Context())
		if err != nil {
			env.Logger.Error("crawl sources failed", zap.Error(err))
			return err
		}
		for group, recs := range grouped {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", group, len(recs))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "結果已保存: %s\n", path)
		return nil
	},
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "run the [[Tasks]] of the config file.",
	Long:  "run the [[Tasks]] of the config file, pages are written to the configured storage.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env := setup.FromContext(cmd.Context())
		if len(env.Config.Tasks) == 0 {
			return fmt.Errorf("no [[Tasks]] in %s", config.File)
		}
		p, err := env.Pipeline()
		if err != nil {
			return err
		}
		cells, err := p.CrawlTasks(cmd.Context())
		if err != nil {
			env.Logger.Error("crawl tasks failed", zap.Error(err))
			return err
		}
		env.Logger.Info("crawl tasks completed", zap.Int("pages", len(cells)))
		return nil
	},
}

func init() {
	CrawlCmd.AddCommand(sourcesCmd, tasksCmd)
}
