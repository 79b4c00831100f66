// Package selection narrows the candidate's projects down to the ones most relevant to a job.
package selection

import (
	"regexp"
	"sort"
	"strings"

	"github.com/jonathan/cv-tailor/internal/observability"
	"github.com/jonathan/cv-tailor/internal/types"
)

// DefaultPoolSize is how many projects are handed to the generator by default
const DefaultPoolSize = 8

// StepPrefilter is the step name emitted after filtering
const StepPrefilter = "Project Pre-filter"

var wordRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// ScoredProject is a project with its overlap score against the job text
type ScoredProject struct {
	Project types.Project
	Score   int
}

// tokenize lowercases text and splits it into word tokens
func tokenize(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}

// tokenSet returns the distinct tokens of text
func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range tokenize(text) {
		set[tok] = struct{}{}
	}
	return set
}

// ScoreProject counts, with repetition, the tokens of the project's name, description and
// highlights that also occur in jobTokens.
func ScoreProject(p types.Project, jobTokens map[string]struct{}) int {
	content := p.Name + " " + p.Description + " " + strings.Join(p.Highlights, " ")
	score := 0
	for _, tok := range tokenize(content) {
		if _, ok := jobTokens[tok]; ok {
			score++
		}
	}
	return score
}

// RankProjects scores every project against jobText and sorts them by descending score.
// Ties keep their profile order.
func RankProjects(projects []types.Project, jobText string) []ScoredProject {
	jobTokens := tokenSet(jobText)

	ranked := make([]ScoredProject, 0, len(projects))
	for _, p := range projects {
		ranked = append(ranked, ScoredProject{Project: p, Score: ScoreProject(p, jobTokens)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// FilterProjects returns at most poolSize projects with the highest overlap with jobText
func FilterProjects(projects []types.Project, jobText string, poolSize int, sink observability.Sink) []types.Project {
	if len(projects) == 0 {
		return []types.Project{}
	}

	ranked := RankProjects(projects, jobText)
	n := poolSize
	if n < 0 {
		n = 0
	}
	if n > len(ranked) {
		n = len(ranked)
	}

	selected := make([]types.Project, 0, n)
	names := make([]string, 0, n)
	for _, sp := range ranked[:n] {
		selected = append(selected, sp.Project)
		names = append(names, sp.Project.Name)
	}

	observability.Emit(sink, types.Step{
		Name: StepPrefilter,
		Extra: map[string]any{
			"total_projects":   len(projects),
			"candidates_count": len(selected),
			"candidate_names":  names,
		},
	})
	return selected
}
