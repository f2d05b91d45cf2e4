package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/linguabot/backend/internal/config"
	"github.com/zhouzirui/linguabot/backend/internal/service/speech"
)

func newASRCommand() *cobra.Command {
	var (
		lang    string
		format  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "asr <audio-file>",
		Short: "Transcribe an audio file with the configured recognizer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			svc := speech.NewService(&cfg.Speech)
			if !svc.Enabled() {
				return errors.New("speech credentials missing: set SPEECH_APP_ID and SPEECH_ACCESS_TOKEN or SPEECH_API_KEY")
			}

			audio, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read audio: %w", err)
			}
			if format == "" {
				format = strings.TrimPrefix(strings.ToLower(filepath.Ext(args[0])), ".")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			resp, err := svc.TranscribeBuffer(ctx, "cli-"+uuid.NewString(), audio, format, lang)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n(%d ms, log id %s)\n", resp.Text, resp.Duration, resp.LogID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&lang, "lang", "l", "en", "widget language code")
	cmd.Flags().StringVar(&format, "format", "", "audio format, defaults to the file extension")
	cmd.Flags().DurationVar(&timeout, "timeout", 45*time.Second, "request timeout")
	return cmd
}
