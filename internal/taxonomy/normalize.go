// Package taxonomy canonicalizes raw skill strings into taxonomy entries and
// classifies job titles into job categories. All rule tables are immutable
// data bound at construction so they can be swapped out in tests.
package taxonomy

import "strings"

// defaultAliases maps lower-cased raw skill strings to their canonical name.
var defaultAliases = map[string]string{
	// Languages
	"javascript": "JavaScript",
	"typescript": "TypeScript",
	"python":     "Python",
	"java":       "Java",
	"c#":         "C#",
	"c":          "C/C++",
	"c++":        "C/C++",
	"golang":     "Go",
	"go":         "Go",
	"r":          "R",
	// Frameworks and libraries
	"nodejs":       "Node.js",
	"node.js":      "Node.js",
	"node":         "Node.js",
	"react.js":     "React",
	"reactjs":      "React",
	"vue.js":       "Vue",
	"vuejs":        "Vue",
	"angular.js":   "Angular",
	"angularjs":    "Angular",
	"pytorch":      "PyTorch",
	"tensorflow":   "TensorFlow",
	"scikit-learn": "scikit-learn",
	"numpy":        "NumPy",
	"pandas":       "pandas",
	// Databases
	"postgresql": "PostgreSQL",
	"postgres":   "PostgreSQL",
	"mongodb":    "MongoDB",
	"mysql":      "MySQL",
	// Cloud
	"amazon web services":   "AWS",
	"aws":                   "AWS",
	"google cloud platform": "GCP",
	"google cloud":          "GCP",
	"gcp":                   "GCP",
	"microsoft azure":       "Azure",
	"azure":                 "Azure",
	// Tools
	"git":                    "Git",
	"github":                 "GitHub",
	"gitlab":                 "GitLab",
	"docker":                 "Docker",
	"kubernetes":             "Kubernetes",
	"k8s":                    "Kubernetes",
	"jira":                   "Jira",
	"ci/cd":                  "CI/CD",
	"continuous integration": "CI/CD",
	// OS and systems
	"linux":      "Linux",
	"unix":       "Unix",
	"bash":       "Bash",
	"powershell": "PowerShell",
	// Methodologies
	"scrum": "Scrum",
	"agile": "Agile",
	// Data science
	"matlab": "MATLAB",
}

// defaultSoftSkills are vague, non-technical terms dropped outright.
var defaultSoftSkills = []string{
	"problem solving", "communication", "teamwork", "fast-paced",
	"self-starter", "detail-oriented", "passionate", "motivated",
	"excellent", "strong", "good", "ability to", "experience with",
}

// defaultCompounds are multi-word technical terms kept as a single skill
// even when they contain separators.
var defaultCompounds = []string{
	"data structures", "algorithms", "data structures & algorithms",
	"data structures and algorithms", "object oriented",
	"machine learning", "deep learning", "computer vision",
	"natural language processing", "distributed systems",
}

// maxSplitLen caps the length of strings considered for "/"-splitting, so
// prose containing a slash is left alone.
const maxSplitLen = 20

// Normalizer canonicalizes raw skill strings.
type Normalizer struct {
	aliases    map[string]string
	softSkills []string
	compounds  []string
}

// NewNormalizer returns a Normalizer with the default rule tables.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		aliases:    defaultAliases,
		softSkills: defaultSoftSkills,
		compounds:  defaultCompounds,
	}
}

// NewNormalizerWithRules builds a Normalizer from caller-supplied tables.
// Alias keys must be lower-cased.
func NewNormalizerWithRules(aliases map[string]string, softSkills, compounds []string) *Normalizer {
	return &Normalizer{aliases: aliases, softSkills: softSkills, compounds: compounds}
}

// NormalizeSkill turns one raw skill string into zero or more canonical skill
// names. The alias table is consulted before any other handling so that
// single-character skills like "C" or "R" survive, and so that an exact
// compound alias wins over the split path. Combined tokens like "React/Vue"
// are split on "/" with each part alias-mapped independently.
func (n *Normalizer) NormalizeSkill(raw string) []string {
	skill := strings.TrimSpace(raw)
	if skill == "" {
		return nil
	}

	lower := strings.ToLower(skill)
	if canonical, ok := n.aliases[lower]; ok {
		return []string{canonical}
	}

	if len(skill) < 2 {
		return nil
	}

	for _, term := range n.softSkills {
		if strings.Contains(lower, term) {
			return nil
		}
	}

	for _, term := range n.compounds {
		if strings.Contains(lower, term) {
			return []string{skill}
		}
	}

	if strings.Contains(skill, "/") && len(skill) < maxSplitLen {
		parts := strings.Split(skill, "/")
		var out []string
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if len(part) < 2 {
				continue
			}
			if canonical, ok := n.aliases[strings.ToLower(part)]; ok {
				out = append(out, canonical)
			} else {
				out = append(out, part)
			}
		}
		if len(out) == 0 {
			return []string{skill}
		}
		return out
	}

	return []string{skill}
}
