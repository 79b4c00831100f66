package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jonathan/cv-tailor/internal/types"
)

// KnownFabrications are tools models have repeatedly invented for this kind of profile.
// A mention containing one of them is flagged unless the profile vouches for it.
var KnownFabrications = []string{"pyautogui", "abaqus", "ls-dyna", "power bi", "powerbi"}

// HallucinationPrefix starts the feedback of a failed hallucination check
const HallucinationPrefix = FailedPrefix +
	"The following are not in your profile. Remove or replace with factual alternatives: "

var (
	projectTokenRe   = regexp.MustCompile(`\b[a-z0-9+]+\b`)
	capitalizedRe    = regexp.MustCompile(`\b[A-Z][a-zA-Z0-9+#]*\b`)
	projectTechRe    = regexp.MustCompile(`(?i)\b(Python|C\+\+|SQL|MATLAB|Pandas|NumPy|TensorFlow|PyTorch|YOLOv2|U-Net|KITTI|nuScenes|Kalman|LIDAR|SolidWorks|ANSYS|Docker|ROS2|Django|Plotly|Dash|TensorBoard|Matplotlib|Scikit-learn|Excel|SAP|Windchill|Dremio)\b`)
	lowercaseTechRe  = regexp.MustCompile(`\b(python|c\+\+|sql|matlab|pandas|numpy|tensorflow|pytorch|yolov2|u-net|kitti|nuscenes|solidworks|ansys|docker|ros2|django|plotly|dash|tensorboard|matplotlib|scikit-learn|excel)\b`)
	fabricationRe    = buildFabricationRe(KnownFabrications)
	mentionStopwords = map[string]struct{}{
		"a": {}, "i": {}, "the": {}, "and": {}, "or": {}, "in": {}, "on": {}, "to": {}, "of": {}, "for": {},
	}
)

// minExperienceMention skips short capitalized words such as "Led" or "API"
const minExperienceMention = 4

func buildFabricationRe(terms []string) *regexp.Regexp {
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		// allow any whitespace run inside multi-word names
		quoted = append(quoted, strings.ReplaceAll(regexp.QuoteMeta(t), " ", `\s+`))
	}
	return regexp.MustCompile(`(?i)` + strings.Join(quoted, "|"))
}

// HallucinationDetector verifies that skills and tools in generated text come from the profile
type HallucinationDetector struct {
	Profile *types.Profile
}

// NewHallucinationDetector creates a detector over profile
func NewHallucinationDetector(profile *types.Profile) *HallucinationDetector {
	return &HallucinationDetector{Profile: profile}
}

// Name implements Validator
func (h *HallucinationDetector) Name() string { return NameHallucination }

// Validate implements Validator for the skills, projects and experience sections
func (h *HallucinationDetector) Validate(section, text string) types.ValidationResult {
	if h.Profile == nil || strings.TrimSpace(text) == "" {
		return types.Pass(NameHallucination)
	}

	var violations []types.Violation
	switch section {
	case types.SectionSkills:
		violations = h.checkSkills(text)
	case types.SectionProjects:
		violations = h.checkProjects(text)
	case types.SectionExperience:
		violations = h.checkExperience(text)
	}

	msgs := make([]string, 0, len(violations))
	for _, v := range violations {
		msgs = append(msgs, v.Claim)
	}
	return result(NameHallucination, violations, feedbackFrom(HallucinationPrefix, msgs))
}

// allowedSkills is the normalized union of bucket items, soft skills and flat skill lists
func (h *HallucinationDetector) allowedSkills() map[string]struct{} {
	allowed := make(map[string]struct{})
	add := func(s string) {
		if n := normalize(s); n != "" {
			allowed[n] = struct{}{}
		}
	}
	for _, s := range h.Profile.FlattenSkills() {
		add(s)
	}
	for _, s := range h.Profile.SoftSkills {
		add(s)
	}
	for _, list := range h.Profile.Skills {
		for _, s := range list {
			add(s)
		}
	}
	return allowed
}

func (h *HallucinationDetector) checkSkills(text string) []types.Violation {
	allowed := keys(h.allowedSkills())

	var violations []types.Violation
	for _, line := range strings.Split(text, "\n") {
		_, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		for _, part := range strings.Split(rest, ",") {
			item := strings.TrimSpace(strings.ReplaceAll(part, "*", ""))
			skill := normalize(item)
			if len(skill) <= 2 || matchesAny(skill, allowed) {
				continue
			}
			violations = append(violations, types.Violation{
				Claim:    fmt.Sprintf("Skill not in profile: '%s'", item),
				Source:   types.SourceSkill,
				Expected: "Use only skills listed in the profile",
			})
		}
	}
	return violations
}

func (h *HallucinationDetector) checkProjects(text string) []types.Violation {
	allowed := make(map[string]struct{})
	for _, p := range h.Profile.Projects {
		content := strings.ToLower(p.Description + " " + strings.Join(p.Highlights, " "))
		for _, tok := range projectTokenRe.FindAllString(content, -1) {
			allowed[tok] = struct{}{}
		}
		for _, tech := range projectTechRe.FindAllString(content, -1) {
			allowed[strings.ToLower(tech)] = struct{}{}
		}
	}
	for _, s := range h.Profile.FlattenSkills() {
		allowed[normalize(s)] = struct{}{}
	}

	var violations []types.Violation
	for _, m := range extractMentions(text) {
		mn := normalize(m)
		if _, stop := mentionStopwords[mn]; stop {
			continue
		}
		if _, ok := allowed[mn]; ok {
			continue
		}
		if isKnownFabrication(mn) {
			violations = append(violations, types.Violation{
				Claim:    fmt.Sprintf("Tool/tech not in profile: '%s'", m),
				Source:   types.SourceTool,
				Expected: "Mention only tools the project actually used",
			})
		}
	}
	return violations
}

func (h *HallucinationDetector) checkExperience(text string) []types.Violation {
	allowed := h.allowedSkills()

	var violations []types.Violation
	for _, m := range extractMentions(text) {
		mn := normalize(m)
		if _, ok := allowed[mn]; ok {
			continue
		}
		if len(mn) < minExperienceMention {
			continue
		}
		if isKnownFabrication(mn) {
			violations = append(violations, types.Violation{
				Claim:    fmt.Sprintf("Tool not in profile: '%s'", m),
				Source:   types.SourceTool,
				Expected: "Mention only tools listed in the profile",
			})
		}
	}
	return violations
}

// extractMentions returns capitalized words, known technology names and denylisted
// tool names found in text, de-duplicated in order of first appearance.
func extractMentions(text string) []string {
	type hit struct {
		pos  int
		text string
	}
	var hits []hit
	collect := func(re *regexp.Regexp, s string, source string) {
		for _, loc := range re.FindAllStringIndex(s, -1) {
			hits = append(hits, hit{pos: loc[0], text: source[loc[0]:loc[1]]})
		}
	}

	collect(capitalizedRe, text, text)
	lower := strings.ToLower(text)
	for _, loc := range lowercaseTechRe.FindAllStringIndex(lower, -1) {
		hits = append(hits, hit{pos: loc[0], text: lower[loc[0]:loc[1]]})
	}
	collect(fabricationRe, text, text)

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	mentions := make([]string, 0, len(hits))
	for _, h := range hits {
		mentions = append(mentions, h.text)
	}
	return dedupe(mentions)
}

func isKnownFabrication(mention string) bool {
	for _, f := range KnownFabrications {
		if strings.Contains(mention, f) {
			return true
		}
	}
	return false
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
