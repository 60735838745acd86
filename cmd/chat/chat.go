package chat

import (
	"strings"

	"github.com/dszqbsm/fraudcrawler/chat"
	"github.com/dszqbsm/fraudcrawler/cmd/setup"
	"github.com/dszqbsm/fraudcrawler/llm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var ChatCmd = &cobra.Command{
	Use:   "chat",
	Short: "talk to the fine-tuned fraud prevention assistant.",
	Long:  "talk to the fine-tuned fraud prevention assistant through a web page, the terminal or canned test cases.",
}

var model string

func newAssistant(env *setup.Env, requireKey bool) (*chat.Assistant, error) {
	c, err := env.LLM(nil)
	if err != nil {
		return nil, err
	}
	if c == nil && requireKey {
		return nil, llm.ErrNoAPIKey
	}
	cc := env.Config.Chat
	m := cc.Model
	if model != "" {
		m = model
	}
	return chat.NewAssistant(c,
		chat.WithModel(m),
		chat.WithTemperature(cc.Temperature),
		chat.WithMaxTokens(cc.MaxTokens),
		chat.WithLogger(env.Logger.Named("chat")),
	), nil
}

var listen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve the chat web page.",
	Long:  "serve the chat web page and its json api until interrupted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env := setup.FromContext(cmd.Context())
		a, err := newAssistant(env, false)
		if err != nil {
			return err
		}
		if env.Config.OpenAIAPIKey == "" {
			env.Logger.Warn("OPENAI_API_KEY is not set, every reply will be an error")
		}
		sessions, err := chat.NewSessions(env.Config.Chat.Sessions)
		if err != nil {
			return err
		}
		addr := env.Config.Chat.Listen
		if listen != "" {
			addr = listen
		}
		srv := chat.NewServer(a, sessions, env.Logger.Named("http"))
		if err := srv.Start(cmd.Context(), addr); err != nil {
			env.Logger.Error("chat server stopped", zap.Error(err))
			return err
		}
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "ask the assistant one question.",
	Long:  "ask the assistant one question, the answer is rendered as markdown on a terminal.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env := setup.FromContext(cmd.Context())
		a, err := newAssistant(env, true)
		if err != nil {
			return err
		}
		answer := a.Ask(cmd.Context(), strings.Join(args, " "))
		return chat.Render(cmd.OutOrStdout(), answer)
	},
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "run the canned test cases.",
	Long:  "run the canned test cases against the model and print every question and answer.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env := setup.FromContext(cmd.Context())
		a, err := newAssistant(env, true)
		if err != nil {
			return err
		}
		return a.RunTests(cmd.Context(), cmd.OutOrStdout(), chat.TestCases)
	},
}

func init() {
	ChatCmd.PersistentFlags().StringVar(&model, "model", "", "fine-tuned model id, overrides [chat] model")
	serveCmd.Flags().StringVar(&listen, "listen", "", "listen address, overrides [chat] listen")

	ChatCmd.AddCommand(serveCmd, askCmd, testCmd)
}
