package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/cv-tailor/internal/experience"
	"github.com/jonathan/cv-tailor/internal/ingestion"
	"github.com/jonathan/cv-tailor/internal/selection"
)

func newPrefilterCmd(global *globalFlags) *cobra.Command {
	var (
		profilePath string
		job         string
		poolSize    int
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "prefilter",
		Short: "Rank the profile's projects by keyword overlap with a job description",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if profilePath == "" || job == "" {
				return fmt.Errorf("--profile and --job are required")
			}
			log := newLogger(cmd, global, "", "")

			profile, err := experience.LoadProfile(profilePath)
			if err != nil {
				return fmt.Errorf("failed to load profile: %w", err)
			}
			jobText, _, err := ingestion.Load(cmd.Context(), job, ingestion.Options{Logger: &log})
			if err != nil {
				return fmt.Errorf("failed to load job description: %w", err)
			}

			ranked := selection.RankProjects(profile.Projects, jobText)
			if poolSize > 0 && poolSize < len(ranked) {
				ranked = ranked[:poolSize]
			}

			out := cmd.OutOrStdout()
			if asJSON {
				type row struct {
					Name  string `json:"name"`
					Score int    `json:"score"`
				}
				rows := make([]row, 0, len(ranked))
				for _, r := range ranked {
					rows = append(rows, row{Name: r.Project.Name, Score: r.Score})
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			for i, r := range ranked {
				if _, err := fmt.Fprintf(out, "%2d. %-40s %d\n", i+1, r.Project.Name, r.Score); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&profilePath, "profile", "p", "", "Path to the candidate profile (YAML or JSON)")
	cmd.Flags().StringVarP(&job, "job", "j", "", "Job description file or URL")
	cmd.Flags().IntVar(&poolSize, "pool-size", selection.DefaultPoolSize, "Projects to keep (0 keeps all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}
