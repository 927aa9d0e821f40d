package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/davebream/olaunch/internal/ollama"
	"github.com/spf13/cobra"
)

var (
	chatModel      string
	chatPromptFile string
	chatURL        string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with a local Ollama model",
	Long: `Starts an interactive chat with a model served by Ollama.

Commands inside the chat:
  !exit     end the session
  !history  show the conversation so far
  !clear    forget everything except the system prompt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt, err := ollama.LoadSystemPrompt(chatPromptFile)
		if err != nil {
			return fmt.Errorf("system prompt: %w", err)
		}

		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		logger, logCleanup := setupLogger(cfg.LogLevel, false)
		defer logCleanup()
		logger.Info("chat started", "model", chatModel, "url", chatURL, "system_prompt_file", chatPromptFile)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		repl := &ollama.REPL{
			Session: ollama.NewSession(ollama.NewClient(chatURL), chatModel, prompt),
			In:      os.Stdin,
			Out:     os.Stdout,
		}
		err = repl.Run(ctx)
		logger.Info("chat ended", "messages", len(repl.Session.History()))
		return err
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatModel, "model", "m", "gemma3", "Model to chat with")
	chatCmd.Flags().StringVarP(&chatPromptFile, "system-prompt-file", "s", "system.txt", "File containing the system prompt")
	chatCmd.Flags().StringVar(&chatURL, "url", ollama.DefaultBaseURL, "Ollama base URL")
	rootCmd.AddCommand(chatCmd)
}
