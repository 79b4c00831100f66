package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/cv-tailor/internal/config"
	"github.com/jonathan/cv-tailor/internal/experience"
	"github.com/jonathan/cv-tailor/internal/generation"
	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/pipeline"
	"github.com/jonathan/cv-tailor/internal/repair"
	"github.com/jonathan/cv-tailor/internal/types"
	"github.com/jonathan/cv-tailor/internal/validation"
)

// sectionArchetypes validates a JSON archetype answer instead of section text
const sectionArchetypes = "archetypes"

// errValidationFailed signals a non-zero exit after the report was printed
var errValidationFailed = errors.New("validation failed")

func newValidateCmd(global *globalFlags) *cobra.Command {
	var (
		section     string
		textPath    string
		profilePath string
		rulesPath   string
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run the section validators over a text file",
		Long: `Runs the validators the pipeline applies to --section over the text in --text
(use - for stdin) and prints every violation plus the feedback a retry would receive.
With --section archetypes the text must hold the model's JSON answer.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if section != sectionArchetypes && !types.IsSection(section) {
				return fmt.Errorf("unknown section %q; expected one of %s, %s",
					section, strings.Join(types.AllSections, ", "), sectionArchetypes)
			}
			log := newLogger(cmd, global, "", "")

			raw, err := readText(cmd.InOrStdin(), textPath)
			if err != nil {
				return err
			}
			text := llm.FixUnicodeEscapes(strings.TrimSpace(raw))

			var results []types.ValidationResult
			if section == sectionArchetypes {
				var value any = []any{}
				if obj, ok := generation.ExtractJSONObject(text); ok {
					value = obj["archetypes"]
				}
				results = append(results, validation.ValidateArchetypes(value, types.DefaultArchetypes, types.ArchetypeCount))
			} else {
				profile := &types.Profile{}
				if profilePath != "" {
					if profile, err = experience.LoadProfile(profilePath); err != nil {
						return fmt.Errorf("failed to load profile: %w", err)
					}
				}
				rules := loadRules(rulesPath, log)
				for _, v := range pipeline.SectionValidators(profile, rules)[section] {
					results = append(results, v.Validate(section, text))
				}
			}

			return report(cmd.OutOrStdout(), results)
		},
	}

	cmd.Flags().StringVarP(&section, "section", "s", "", "Section to validate")
	cmd.Flags().StringVarP(&textPath, "text", "t", "-", "File holding the section text, - for stdin")
	cmd.Flags().StringVarP(&profilePath, "profile", "p", "", "Candidate profile for fact and hallucination checks")
	cmd.Flags().StringVar(&rulesPath, "rules", config.DefaultRulesPath, "Validation rules YAML")
	_ = cmd.MarkFlagRequired("section")
	return cmd
}

func readText(stdin io.Reader, path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// report prints the results as JSON and returns errValidationFailed if any failed
func report(w io.Writer, results []types.ValidationResult) error {
	passed := true
	for _, res := range results {
		passed = passed && res.Passed
	}

	out := struct {
		Passed   bool                     `json:"passed"`
		Results  []types.ValidationResult `json:"results"`
		Feedback string                   `json:"feedback,omitempty"`
	}{Passed: passed, Results: results}
	if !passed {
		out.Feedback = repair.SynthesizeFeedback(results)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	if !passed {
		return errValidationFailed
	}
	return nil
}
