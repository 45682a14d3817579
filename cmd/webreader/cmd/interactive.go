package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/f3rmion/webreader/internal/backend"
	"github.com/f3rmion/webreader/internal/logging"
	"github.com/f3rmion/webreader/internal/reader"
	"github.com/f3rmion/webreader/internal/speech"
	"github.com/f3rmion/webreader/internal/tui"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var interactiveCmd = &cobra.Command{
	Use:     "interactive",
	Aliases: []string{"i", "ui"},
	Short:   "Launch interactive TUI",
	Long: `Launch the interactive terminal reader.

Controls:
  Tab / Shift+Tab   Move between controls (each one is announced)
  Enter             Process the URL or press the focused button
  Left / Right      Adjust font size or speech speed
  Ctrl+P            Pause or resume speech
  f                 Follow along word by word in the content area
  Ctrl+Y            Copy the content
  Alt+1..5          Summarize a recent link again
  Esc               Quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so logs only go to a file.
	var log *logrus.Logger
	if cfg.LogFile != "" {
		l, closer, err := logging.New(logging.Options{File: cfg.LogFile, Verbose: viper.GetBool("verbose")})
		if err != nil {
			return err
		}
		defer closer.Close()
		log = l
	} else {
		log = logging.Discard()
	}

	ctx := cmd.Context()

	client, err := backend.NewClient(cfg.Endpoint, cfg.Timeout, log)
	if err != nil {
		return err
	}

	synth, err := speech.New(ctx, cfg.Speech, log)
	if err != nil {
		return fmt.Errorf("starting speech: %w", err)
	}
	if synth != nil {
		defer synth.Close()
	}

	log.WithFields(logrus.Fields{
		"endpoint": client.Endpoint(),
		"engine":   cfg.Speech.Engine,
		"speech":   synth != nil,
	}).Info("starting web reader")

	shell := reader.New(client, synth, cfg, log)

	p := tea.NewProgram(
		tui.New(ctx, shell, synth, log),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}

	return nil
}
