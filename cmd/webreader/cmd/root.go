// Package cmd contains all CLI commands for Web Reader.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/f3rmion/webreader/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgDir string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "webreader",
	Short: "Web Reader - listen to any web page",
	Long: `Web Reader reads web pages aloud.

Enter a URL and the page text, or a summary of it, is fetched from the
extraction service and spoken. The reader announces every control it
focuses, shows the word being spoken in large type and remembers the last
five pages you opened.

Running 'webreader' without arguments launches the interactive TUI.`,
	SilenceUsage: true,
	RunE:         runTUI,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgDir, "config", "", "config directory (default is $HOME/.config/webreader)")
	flags.Bool("verbose", false, "verbose output")
	flags.String("endpoint", "", "extraction service URL (default "+config.DefaultEndpoint+")")
	flags.Duration("timeout", 0, "backend request timeout (0 waits forever)")
	flags.String("engine", "", "speech engine: auto, command, google, silent or none")
	flags.String("voice", "", "voice name passed to the speech engine")
	flags.Float64("rate", 0, "speech rate between 0.5 and 2.0")
	flags.Int("font-size", 0, "font size between 12 and 32")
	flags.String("log-file", "", "write logs to this file")

	viper.BindPFlag("verbose", flags.Lookup("verbose"))
	viper.BindPFlag("endpoint", flags.Lookup("endpoint"))
	viper.BindPFlag("timeout", flags.Lookup("timeout"))
	viper.BindPFlag("speech.engine", flags.Lookup("engine"))
	viper.BindPFlag("speech.voice", flags.Lookup("voice"))
	viper.BindPFlag("speech_rate", flags.Lookup("rate"))
	viper.BindPFlag("font_size", flags.Lookup("font-size"))
	viper.BindPFlag("log_file", flags.Lookup("log-file"))
}

// initConfig reads a local .env file and ENV variables if set.
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Error loading .env:", err)
	}

	if cfgDir != "" {
		viper.Set("config_dir", cfgDir)
	} else {
		dir, err := config.GetConfigDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error finding config directory:", err)
			os.Exit(1)
		}
		viper.Set("config_dir", dir)
	}

	viper.SetEnvPrefix("WEBREADER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// getConfigDir returns the configuration directory path.
func getConfigDir() string {
	return viper.GetString("config_dir")
}

// loadConfig reads config.yaml from the config directory and applies
// environment variables and flags on top of it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadDir(getConfigDir())
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg, viper.GetViper())
	cfg.Normalize()
	return cfg, nil
}

// applyOverrides copies every key set in v onto cfg.
func applyOverrides(cfg *config.Config, v *viper.Viper) {
	if v.IsSet("endpoint") {
		cfg.Endpoint = v.GetString("endpoint")
	}
	if v.IsSet("timeout") {
		cfg.Timeout = v.GetDuration("timeout")
	}
	if v.IsSet("speech.engine") {
		cfg.Speech.Engine = v.GetString("speech.engine")
	}
	if v.IsSet("speech.voice") {
		cfg.Speech.Voice = v.GetString("speech.voice")
	}
	if v.IsSet("speech.command") {
		cfg.Speech.Command = v.GetString("speech.command")
	}
	if v.IsSet("speech.language") {
		cfg.Speech.Language = v.GetString("speech.language")
	}
	if v.IsSet("speech_rate") {
		cfg.SpeechRate = v.GetFloat64("speech_rate")
	}
	if v.IsSet("font_size") {
		cfg.FontSize = v.GetInt("font_size")
	}
	if v.IsSet("log_file") {
		cfg.LogFile = v.GetString("log_file")
	}
}
