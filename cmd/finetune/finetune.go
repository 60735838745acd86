package finetune

import (
	"fmt"
	"io"
	"time"

	"github.com/dszqbsm/fraudcrawler/cmd/setup"
	"github.com/dszqbsm/fraudcrawler/finetune"
	"github.com/spf13/cobra"
)

var FinetuneCmd = &cobra.Command{
	Use:   "finetune",
	Short: "submit and watch openai fine-tuning jobs.",
	Long:  "submit and watch openai fine-tuning jobs.",
}

func newClient(env *setup.Env) (*finetune.Client, error) {
	return finetune.New(
		finetune.WithAPIKey(env.Config.OpenAIAPIKey),
		finetune.WithBaseURL(env.Config.OpenAIBaseURL),
		finetune.WithLogger(env.Logger.Named("finetune")),
	)
}

func printJob(w io.Writer, j finetune.Job) {
	fmt.Fprintf(w, "任務ID: %s\n狀態: %s\n", j.ID, j.Status)
	if j.FineTunedModel != "" {
		fmt.Fprintf(w, "微調模型: %s\n", j.FineTunedModel)
	}
	if j.Error != nil && j.Error.Message != "" {
		fmt.Fprintf(w, "錯誤: %s\n", j.Error.Message)
	}
}

func printEvents(w io.Writer, events []finetune.Event) {
	for _, e := range events {
		fmt.Fprintf(w, "  [%s] %s %s\n", time.Unix(e.CreatedAt, 0).Format("2006-01-02 15:04:05"), e.Level, e.Message)
	}
}

var (
	model   string
	method  string
	epochs  int
	lrMulti float64
)

var submitCmd = &cobra.Command{
	Use:   "submit <training.jsonl>",
	Short: "upload a training file and create a fine-tuning job.",
	Long:  "upload a training file and create a fine-tuning job, flags override the [finetune] config.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env := setup.FromContext(cmd.Context())
		c, err := newClient(env)
		if err != nil {
			return err
		}
		fc := env.Config.Finetune
		spec := finetune.JobSpec{Model: fc.Model, Method: fc.Method, NEpochs: fc.NEpochs, LRMultiplier: fc.LearningRateMultiplier}
		if model != "" {
			spec.Model = model
		}
		if method != "" {
			spec.Method = method
		}
		if epochs > 0 {
			spec.NEpochs = epochs
		}
		if lrMulti > 0 {
			spec.LRMultiplier = lrMulti
		}

		job, err := c.Submit(cmd.Context(), args[0], spec)
		if err != nil {
			return err
		}
		printJob(cmd.OutOrStdout(), job)
		return nil
	},
}

var watch bool

var statusCmd = &cobra.Command{
	Use:   "status <job_id>",
	Short: "print the status and events of a fine-tuning job.",
	Long:  "print the status and events of a fine-tuning job, --watch polls until the job is done.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env := setup.FromContext(cmd.Context())
		c, err := newClient(env)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fc := env.Config.Finetune

		if !watch {
			job, err := c.Retrieve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			events, err := c.Events(cmd.Context(), args[0], fc.EventLimit)
			if err != nil {
				return err
			}
			printJob(out, job)
			printEvents(out, events)
			return nil
		}

		job, err := c.Watch(cmd.Context(), args[0], fc.PollDuration(), fc.EventLimit, func(j finetune.Job, events []finetune.Event) {
			fmt.Fprintf(out, "\n%s\n", time.Now().Format("2006-01-02 15:04:05"))
			printJob(out, j)
			printEvents(out, events)
		})
		if err != nil {
			return err
		}
		if job.Status != finetune.StatusSucceeded {
			return fmt.Errorf("fine-tuning job %s %s", job.ID, job.Status)
		}
		return nil
	},
}

func init() {
	submitCmd.Flags().StringVar(&model, "model", "", "base model")
	submitCmd.Flags().StringVar(&method, "method", "", "supervised or dpo")
	submitCmd.Flags().IntVar(&epochs, "epochs", 0, "number of epochs")
	submitCmd.Flags().Float64Var(&lrMulti, "lr-multiplier", 0, "learning rate multiplier")
	statusCmd.Flags().BoolVar(&watch, "watch", false, "poll until the job is done")

	FinetuneCmd.AddCommand(submitCmd, statusCmd)
}
