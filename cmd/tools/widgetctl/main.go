// widgetctl drives a LinguaBot conversation from the terminal and smoke-tests
// the speech recognizer.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/linguabot/backend/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "widgetctl",
		Short:         "LinguaBot widget tools",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(*cobra.Command, []string) {
			logger.Init(logLevel, "console")
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "日志级别")

	root.AddCommand(newChatCommand(), newASRCommand())
	return root
}
