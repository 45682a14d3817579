package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/f3rmion/webreader/internal/backend"
	"github.com/f3rmion/webreader/internal/logging"
	"github.com/f3rmion/webreader/internal/reader"
	"github.com/f3rmion/webreader/internal/speech"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var readCmd = &cobra.Command{
	Use:   "read <url>",
	Short: "Read a web page aloud",
	Long: `Fetch the text of a web page, print it and read it aloud.

Examples:
  webreader read https://go.dev/blog
  webreader read --no-speak https://example.com > page.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd, args[0], backend.ActionRead)
	},
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize <url>",
	Short: "Summarize a web page aloud",
	Long: `Fetch a summary of a web page, print it and read it aloud.

Examples:
  webreader summarize https://go.dev/blog`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd, args[0], backend.ActionSummarize)
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(summarizeCmd)

	for _, c := range []*cobra.Command{readCmd, summarizeCmd} {
		c.Flags().Bool("no-speak", false, "print the text without speaking it")
	}
}

func runProcess(cmd *cobra.Command, pageURL string, action backend.Action) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, closer, err := logging.New(logging.Options{
		File:    cfg.LogFile,
		Output:  cmd.ErrOrStderr(),
		Verbose: viper.GetBool("verbose"),
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	client, err := backend.NewClient(cfg.Endpoint, cfg.Timeout, log)
	if err != nil {
		return err
	}

	var synth speech.Synthesizer
	if noSpeak, _ := cmd.Flags().GetBool("no-speak"); !noSpeak {
		synth, err = speech.New(ctx, cfg.Speech, log)
		if err != nil {
			return fmt.Errorf("starting speech: %w", err)
		}
		if synth != nil {
			defer synth.Close()
		}
	}

	shell := reader.New(client, synth, cfg, log)
	shell.SetURL(pageURL)

	res, err := process(ctx, shell, synth, action, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if res.Err != nil {
		return fmt.Errorf("processing %s: %w", pageURL, res.Err)
	}
	return nil
}

// process runs one request through shell, prints the text to out and
// waits until the shell has finished speaking.
func process(ctx context.Context, shell *reader.Shell, synth speech.Synthesizer, action backend.Action, out io.Writer) (reader.Result, error) {
	req := shell.Begin(action)
	res := shell.Fetch(ctx, req)
	shell.Complete(res)

	if res.Err == nil {
		if _, err := fmt.Fprintln(out, shell.Session().Summary); err != nil {
			return res, fmt.Errorf("writing output: %w", err)
		}
	}

	if err := waitForSpeech(ctx, shell, synth); err != nil {
		return res, err
	}
	return res, nil
}

// waitForSpeech feeds synthesizer events to shell until it goes idle.
func waitForSpeech(ctx context.Context, shell *reader.Shell, synth speech.Synthesizer) error {
	if synth == nil {
		return nil
	}

	events := synth.Events()
	for shell.Session().Speech.Phase != speech.Idle {
		select {
		case <-ctx.Done():
			shell.StopSpeaking()
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			shell.HandleEvent(ev)
		}
	}
	return nil
}
