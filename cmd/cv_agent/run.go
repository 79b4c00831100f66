package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jonathan/cv-tailor/internal/config"
	"github.com/jonathan/cv-tailor/internal/db"
	"github.com/jonathan/cv-tailor/internal/experience"
	"github.com/jonathan/cv-tailor/internal/generation"
	"github.com/jonathan/cv-tailor/internal/ingestion"
	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/observability"
	"github.com/jonathan/cv-tailor/internal/pipeline"
	"github.com/jonathan/cv-tailor/internal/prompts"
	"github.com/jonathan/cv-tailor/internal/types"
	"github.com/jonathan/cv-tailor/internal/validation"
)

// runFlags mirrors config.Config for command-line overrides
type runFlags struct {
	configPath string
	cfg        config.Config
	maxRetries int
}

func newRunCmd(global *globalFlags) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full generation pipeline end-to-end",
		Long: `Loads the profile and job description, identifies role archetypes, then generates and
validates every CV section plus a cover letter, retrying failed sections with corrective feedback.

Configuration can be loaded from a JSON file using --config. Command-line flags override config file values.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, explicitRetries, err := resolveRunConfig(cmd, f)
			if err != nil {
				return err
			}
			log := newLogger(cmd, global, cfg.LogLevel, cfg.LogFormat)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runPipeline(ctx, cmd, cfg, explicitRetries, log)
		},
	}

	bindRunFlags(cmd, f)
	return cmd
}

func bindRunFlags(cmd *cobra.Command, f *runFlags) {
	flags := cmd.Flags()
	flags.StringVar(&f.configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	flags.StringVarP(&f.cfg.Profile, "profile", "p", "", "Path to the candidate profile (YAML or JSON)")
	flags.StringVarP(&f.cfg.Job, "job", "j", "", "Path to job description text file (mutually exclusive with --job-url)")
	flags.StringVar(&f.cfg.JobURL, "job-url", "", "URL to fetch the job description from (mutually exclusive with --job)")
	flags.StringVar(&f.cfg.Rules, "rules", "", "Path to validation rules YAML (default "+config.DefaultRulesPath+")")
	flags.StringVar(&f.cfg.Prompts, "prompts", "", "Optional YAML/JSON file overriding prompt templates")
	flags.StringVarP(&f.cfg.Out, "out", "o", "", "Write the result to this file instead of stdout")
	flags.StringVar(&f.cfg.Format, "format", "", "Output format: json or markdown (default json)")
	flags.StringVar(&f.cfg.Provider, "provider", "", "Text generator: gemini, openai or ollama (default gemini)")
	flags.StringVar(&f.cfg.Model, "model", "", "Use this model for every call")
	flags.StringVar(&f.cfg.BaseURL, "base-url", "", "OpenAI-compatible endpoint (defaults to OPENAI_BASE_URL)")
	flags.StringVar(&f.cfg.APIKey, "api-key", "", "API key (defaults to GEMINI_API_KEY or OPENAI_API_KEY)")
	flags.IntVar(&f.maxRetries, "max-retries", config.DefaultMaxRetries, "Retries per section after the first attempt")
	flags.IntVar(&f.cfg.PoolSize, "pool-size", 0, "Projects kept by the pre-filter")
	flags.IntVar(&f.cfg.MaxProjects, "max-projects", 0, "Projects the generator may select")
	flags.IntVar(&f.cfg.MaxBulletsPerRole, "max-bullets", 0, "Bullet points kept per experience role")
	flags.BoolVar(&f.cfg.Sequential, "sequential", false, "Generate education and certifications one after the other")
	flags.BoolVar(&f.cfg.UseBrowser, "use-browser", false, "Render job pages in headless Chrome when plain HTTP yields too little text")
	flags.BoolVarP(&f.cfg.Verbose, "verbose", "v", false, "Print every prompt, output and validation step")
	flags.StringVar(&f.cfg.DatabaseURL, "db-url", "", "PostgreSQL URL for run artifacts (defaults to DATABASE_URL)")
}

// resolveRunConfig layers flags over the config file over defaults. The returned
// pointer is the retry count set explicitly by flag or config file, if any.
func resolveRunConfig(cmd *cobra.Command, f *runFlags) (config.Config, *int, error) {
	var cfg config.Config
	if f.configPath != "" {
		loaded, err := config.LoadConfig(f.configPath)
		if err != nil {
			return cfg, nil, fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return cfg, nil, err
		}
		cfg = *loaded
	}

	changed := cmd.Flags().Changed
	overrides := []struct {
		flag string
		dst  *string
		src  string
	}{
		{"profile", &cfg.Profile, f.cfg.Profile},
		{"job", &cfg.Job, f.cfg.Job},
		{"job-url", &cfg.JobURL, f.cfg.JobURL},
		{"rules", &cfg.Rules, f.cfg.Rules},
		{"prompts", &cfg.Prompts, f.cfg.Prompts},
		{"out", &cfg.Out, f.cfg.Out},
		{"format", &cfg.Format, f.cfg.Format},
		{"provider", &cfg.Provider, f.cfg.Provider},
		{"model", &cfg.Model, f.cfg.Model},
		{"base-url", &cfg.BaseURL, f.cfg.BaseURL},
		{"api-key", &cfg.APIKey, f.cfg.APIKey},
		{"db-url", &cfg.DatabaseURL, f.cfg.DatabaseURL},
	}
	for _, o := range overrides {
		if changed(o.flag) {
			*o.dst = o.src
		}
	}
	if changed("max-retries") {
		retries := f.maxRetries
		cfg.MaxRetries = &retries
	}
	if changed("pool-size") {
		cfg.PoolSize = f.cfg.PoolSize
	}
	if changed("max-projects") {
		cfg.MaxProjects = f.cfg.MaxProjects
	}
	if changed("max-bullets") {
		cfg.MaxBulletsPerRole = f.cfg.MaxBulletsPerRole
	}
	if changed("sequential") {
		cfg.Sequential = f.cfg.Sequential
	}
	if changed("use-browser") {
		cfg.UseBrowser = f.cfg.UseBrowser
	}
	if changed("verbose") {
		cfg.Verbose = f.cfg.Verbose
	}

	explicitRetries := cfg.MaxRetries
	cfg = cfg.MergeWithDefaults(config.Defaults())

	if cfg.Profile == "" {
		return cfg, nil, fmt.Errorf("--profile must be provided (via flag or config)")
	}
	if cfg.Job == "" && cfg.JobURL == "" {
		return cfg, nil, fmt.Errorf("either --job or --job-url must be provided (via flag or config)")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}
	return cfg, explicitRetries, nil
}

// effectiveRetries applies the precedence flag/config file, then rules file, then default
func effectiveRetries(explicit *int, rules *config.Rules) int {
	if explicit != nil {
		return *explicit
	}
	if rules != nil && rules.MaxRetries != nil {
		return *rules.MaxRetries
	}
	return config.DefaultMaxRetries
}

// loadRules loads validation rules, logging problems as warnings
func loadRules(path string, log zerolog.Logger) *config.Rules {
	rules, err := config.LoadRules(path)
	if err != nil {
		log.Warn().Err(err).Msg("using empty validation rules")
	}
	for _, rerr := range validation.CheckRules(rules) {
		log.Warn().Err(rerr).Msg("validation rule disabled")
	}
	return rules
}

func runPipeline(ctx context.Context, cmd *cobra.Command, cfg config.Config, explicitRetries *int, log zerolog.Logger) error {
	rules := loadRules(cfg.Rules, log)
	retries := effectiveRetries(explicitRetries, rules)

	profile, err := experience.LoadProfile(cfg.Profile)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	source := cfg.Job
	if source == "" {
		source = cfg.JobURL
	}
	jobText, jobMeta, err := ingestion.Load(ctx, source, ingestion.Options{UseBrowser: cfg.UseBrowser, Logger: &log})
	if err != nil {
		return fmt.Errorf("failed to load job description: %w", err)
	}
	log.Info().Str("source", source).Int("chars", jobMeta.Chars).Msg("loaded job description")

	textGen, closeGen, err := newTextGenerator(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = closeGen() }()

	var renderer prompts.Renderer
	if cfg.Prompts != "" {
		overrides, err := prompts.LoadOverrides(cfg.Prompts)
		if err != nil {
			return err
		}
		renderer = overrides
	}

	var printer *observability.Printer
	sinks := []observability.Sink{observability.NewLogSink(log.With().Str("component", "pipeline").Logger())}
	if cfg.Verbose {
		printer = observability.NewPrinter(cmd.ErrOrStderr())
		sinks = append(sinks, printer.Sink())
	}

	store, runID := openStore(ctx, cfg, profile, jobText, jobMeta, log)
	if store != nil {
		defer store.Close()
		sinks = append(sinks, store.StepSink(ctx, runID, log))
	}
	sink := observability.Multi(sinks...)

	result, err := pipeline.Run(ctx, pipeline.RunOptions{
		Profile:           profile,
		JobDescription:    jobText,
		MaxRetries:        retries,
		UseParallel:       !cfg.Sequential,
		Rules:             rules,
		PoolSize:          cfg.PoolSize,
		MaxProjects:       cfg.MaxProjects,
		MaxBulletsPerRole: cfg.MaxBulletsPerRole,
		Generator:         generation.New(textGen, renderer, sink),
		Sink:              sink,
		Logger:            &log,
	})
	if err != nil {
		if store != nil {
			if cerr := store.CompleteRun(context.WithoutCancel(ctx), runID, db.StatusFailed); cerr != nil {
				log.Warn().Err(cerr).Msg("failed to mark run as failed")
			}
		}
		return err
	}

	if store != nil {
		if err := store.SaveResult(ctx, runID, result); err != nil {
			log.Warn().Err(err).Msg("failed to persist some artifacts")
		}
		if err := store.CompleteRun(ctx, runID, db.StatusCompleted); err != nil {
			log.Warn().Err(err).Msg("failed to complete run")
		}
		log.Info().Str("run_id", runID.String()).Msg("saved run")
	}
	if printer != nil {
		printer.PrintResult(result)
	}

	return writeResult(cmd.OutOrStdout(), cfg.Out, cfg.Format, result)
}

// openStore connects to the artifact database when one is configured. Any failure is
// a warning and disables persistence for the run.
func openStore(ctx context.Context, cfg config.Config, profile *types.Profile, jobText string, meta *ingestion.Metadata, log zerolog.Logger) (*db.DB, uuid.UUID) {
	url := cfg.DatabaseURL
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		return nil, uuid.Nil
	}

	store, err := db.Connect(ctx, url)
	if err != nil {
		log.Warn().Err(err).Msg("artifact persistence disabled")
		return nil, uuid.Nil
	}
	if err := store.EnsureSchema(ctx); err != nil {
		log.Warn().Err(err).Msg("artifact persistence disabled")
		store.Close()
		return nil, uuid.Nil
	}
	runID, err := store.CreateRun(ctx, profile.Basics.Name, jobText)
	if err != nil {
		log.Warn().Err(err).Msg("artifact persistence disabled")
		store.Close()
		return nil, uuid.Nil
	}

	if err := store.SaveTextArtifact(ctx, runID, db.StepJobDescription, db.CategoryInput, jobText); err != nil {
		log.Warn().Err(err).Msg("failed to save job description")
	}
	if err := store.SaveArtifact(ctx, runID, db.StepJobMetadata, db.CategoryInput, meta); err != nil {
		log.Warn().Err(err).Msg("failed to save job metadata")
	}
	return store, runID
}

// newTextGenerator builds the configured model client. Tests replace it with a stub.
var newTextGenerator = func(ctx context.Context, cfg config.Config, log zerolog.Logger) (llm.TextGenerator, func() error, error) {
	provider := llm.Provider(strings.ToLower(cfg.Provider))
	llmCfg := llm.ConfigFor(provider)
	if llmCfg == nil {
		return nil, nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
	if cfg.Model != "" {
		llmCfg = llmCfg.WithSingleModel(cfg.Model)
	}

	apiKey := cfg.APIKey
	switch provider {
	case llm.ProviderGemini:
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, nil, fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required")
		}
	case llm.ProviderOpenAI, llm.ProviderOllama:
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if cfg.BaseURL != "" {
			llmCfg.BaseURL = cfg.BaseURL
		} else if env := os.Getenv("OPENAI_BASE_URL"); env != "" {
			llmCfg.BaseURL = env
		}
	}

	client, err := llm.NewClient(ctx, llmCfg, apiKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s client: %w", provider, err)
	}

	service := llm.NewService(client, log.With().Str("component", "llm").Logger()).
		WithTier(generation.LabelArchetypes, llm.TierLite).
		WithTier(generation.LabelSoftSkills, llm.TierLite).
		WithTier(generation.LabelCoverLetter, llm.TierAdvanced)
	return service, client.Close, nil
}
