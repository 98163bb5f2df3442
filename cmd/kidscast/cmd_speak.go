/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/friendsincode/kidscast/internal/server"
)

var speakOutput string

var speakCmd = &cobra.Command{
	Use:   "speak <text>",
	Short: "Synthesize narration with the configured voices",
	Long:  "Run the primary speech provider, falling back to the local engine, and write the audio to a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runSpeak,
}

func init() {
	speakCmd.Flags().StringVarP(&speakOutput, "output", "o", "narration.audio", "file to write the audio to")
}

func runSpeak(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.SpeechTimeout*2)
	defer cancel()

	voices := server.NewVoices(ctx, cfg, logger)
	clip, provider, err := voices.Chain().Synthesize(ctx, args[0])
	if err != nil {
		return err
	}
	if clip.URL != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", provider, clip.URL)
		return nil
	}
	if err := os.WriteFile(speakOutput, clip.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", speakOutput, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: wrote %d bytes (%s) to %s\n", provider, len(clip.Data), clip.MimeType, speakOutput)
	return nil
}
