// Package main provides the cv_agent command line tool.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jonathan/cv-tailor/internal/logger"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "cv_agent",
		Short:         "Tailor CV sections to a job description",
		Long:          "cv_agent generates a tailored summary, skills, projects, experience, education, certifications and cover letter from a candidate profile and a job description, validating every section against the profile.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error (default info)")
	root.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "Log format: pretty or json (default pretty)")

	root.AddCommand(newRunCmd(flags), newPrefilterCmd(flags), newValidateCmd(flags))
	return root
}

// newLogger builds the command logger; explicit flags win over cfgLevel and cfgFormat
func newLogger(cmd *cobra.Command, flags *globalFlags, cfgLevel, cfgFormat string) zerolog.Logger {
	cfg := logger.DefaultConfig()
	if cfgLevel != "" {
		cfg.Level = cfgLevel
	}
	if cfgFormat != "" {
		cfg.Format = cfgFormat
	}
	if flags.logLevel != "" {
		cfg.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Format = flags.logFormat
	}
	return logger.New(cfg, cmd.ErrOrStderr())
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
