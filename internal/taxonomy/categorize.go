package taxonomy

import "strings"

// CategoryOther is returned when no rule matches a title.
const CategoryOther = "Other"

// Rule pairs a job category with the title keywords that select it.
type Rule struct {
	Category string
	Keywords []string
}

// defaultRules is ordered: the first rule with a matching keyword wins, so
// "DevOps Engineer" lands in DevOps / Infrastructure even though "engineer"
// also appears under Software Engineering.
var defaultRules = []Rule{
	{"Machine Learning / AI", []string{
		"machine learning", "ml", " ai ", "artificial intelligence",
		"deep learning", "llm", "neural", "nlp", "computer vision",
		"genai", "gen ai", "ai agent", "ai sw", "ai intern",
		"computational",
	}},
	{"Data Science", []string{
		"data science", "data scientist", "data analyst", "business intelligence",
		"analytics", "data engineering", "data intern", "data platform",
		"data fabric", "data management", "failure analysis data", "pricing data",
		"risk analysis",
	}},
	{"Research", []string{
		"research", "scientist", "phd", "r&d", "bell labs",
	}},
	{"DevOps / Infrastructure", []string{
		"devops", "cloud", "sre", "infrastructure", "platform engineer",
		"reliability", "kubernetes", "aws", "azure", "gcp",
		"network systems", "network automation",
	}},
	{"Software Engineering", []string{
		"software", "developer", "swe", "full stack", "fullstack",
		"frontend", "backend", "web", "mobile", "ios", "android",
		"engineer", "engineering", "programmer", "coder", "technology",
		"digital", "automation", "gis", "gaming", "video algorithm",
		"implementation", "product development", "product manager",
		"simulation", "robotics", "rpa", "it ", "systems", "wireless",
		"mes ", "manufacturing execution", "industry 4.0",
		"digitalization", "dimensional", "innovation", "predictive",
		"language models", "algorithms", "6g", "digital twin",
		"platform", "adtech", "d365", "consulting", "euv", "agile",
		"product associate", "commerce",
	}},
}

// defaultNonTech lists title fragments that mark a posting as outside the
// software/tech domain. Matching postings are dropped before persistence.
var defaultNonTech = []string{
	"meteorologist", "weather", "clinical", "nurse", "nursing", "medical", "physician",
	"pharmacist", "environmental permitting", "storm water", "wastewater",
	"grid planning", "renewable energy", "power generation", "nuclear",
	"earth science", "geologist", "chemistry", "biologist", "ecology",
	"marketing", "sales", "accounting", "finance analyst", "hr ", "human resources",
	"legal", "attorney", "paralegal", "recruiter", "recruiting",
	"public affairs", "policy", "security investigator",
}

// Categorizer classifies job titles using an ordered rule list and filters
// non-technical postings with a denylist.
type Categorizer struct {
	rules   []Rule
	nonTech []string
}

// NewCategorizer returns a Categorizer with the default rule tables.
func NewCategorizer() *Categorizer {
	return &Categorizer{rules: defaultRules, nonTech: defaultNonTech}
}

// NewCategorizerWithRules builds a Categorizer from caller-supplied tables.
func NewCategorizerWithRules(rules []Rule, nonTech []string) *Categorizer {
	return &Categorizer{rules: rules, nonTech: nonTech}
}

// Categorize returns the category of the first rule whose keyword appears in
// the lower-cased title, or CategoryOther when nothing matches.
func (c *Categorizer) Categorize(title string) string {
	if title == "" {
		return CategoryOther
	}
	lower := strings.ToLower(title)
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Category
			}
		}
	}
	return CategoryOther
}

// IsTechRelated reports whether a title belongs to the software/tech domain.
// Empty titles are treated conservatively as excluded.
func (c *Categorizer) IsTechRelated(title string) bool {
	if title == "" {
		return false
	}
	lower := strings.ToLower(title)
	for _, pattern := range c.nonTech {
		if strings.Contains(lower, pattern) {
			return false
		}
	}
	return true
}
