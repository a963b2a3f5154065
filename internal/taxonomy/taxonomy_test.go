package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeSkill_Aliases(t *testing.T) {
	n := NewNormalizer()

	require.Equal(t, []string{"JavaScript"}, n.NormalizeSkill("javascript"))
	require.Equal(t, []string{"JavaScript"}, n.NormalizeSkill("  JavaScript "))
	require.Equal(t, []string{"C/C++"}, n.NormalizeSkill("c++"))
	// Single-character skills survive only through the alias table.
	require.Equal(t, []string{"C/C++"}, n.NormalizeSkill("C"))
	require.Equal(t, []string{"R"}, n.NormalizeSkill("r"))
	require.Equal(t, []string{"Node.js"}, n.NormalizeSkill("nodejs"))
}

func TestNormalizeSkill_Drops(t *testing.T) {
	n := NewNormalizer()

	require.Empty(t, n.NormalizeSkill(""))
	require.Empty(t, n.NormalizeSkill("   "))
	require.Empty(t, n.NormalizeSkill("x"))
	require.Empty(t, n.NormalizeSkill("problem solving"))
	require.Empty(t, n.NormalizeSkill("excellent communication skills"))
	require.Empty(t, n.NormalizeSkill("Strong teamwork"))
}

func TestNormalizeSkill_Compounds(t *testing.T) {
	n := NewNormalizer()

	require.Equal(t, []string{"Machine Learning"}, n.NormalizeSkill("Machine Learning"))
	require.Equal(t,
		[]string{"Data Structures and Algorithms"},
		n.NormalizeSkill("Data Structures and Algorithms"))
}

func TestNormalizeSkill_Split(t *testing.T) {
	n := NewNormalizer()

	require.Equal(t, []string{"React", "Vue"}, n.NormalizeSkill("React/Vue"))
	require.Equal(t, []string{"Python", "Java"}, n.NormalizeSkill("Python/Java"))
	// Parts are alias-mapped independently after the split.
	require.Equal(t, []string{"Go", "Python"}, n.NormalizeSkill("Golang/Python"))
	// "C" is under two characters, so only the mapped "C++" part survives.
	require.Equal(t, []string{"C/C++"}, n.NormalizeSkill("C/C++"))
	// Long strings containing "/" are left unsplit.
	require.Equal(t,
		[]string{"Reading comprehension/Writing papers"},
		n.NormalizeSkill("Reading comprehension/Writing papers"))
}

func TestNormalizeSkill_SplitFallback(t *testing.T) {
	n := NewNormalizer()

	// Every part under two characters: fall back to the original string.
	require.Equal(t, []string{"a/b"}, n.NormalizeSkill("a/b"))
}

func TestNormalizeSkill_PassThrough(t *testing.T) {
	n := NewNormalizer()

	require.Equal(t, []string{"Rust"}, n.NormalizeSkill("Rust"))
	require.Equal(t, []string{"Spring Boot"}, n.NormalizeSkill("Spring Boot"))
}

func TestCategorize_OrderSensitivity(t *testing.T) {
	c := NewCategorizer()

	// The DevOps rule precedes the generic engineering rule, so the
	// "engineer" keyword must not win here.
	require.Equal(t, "DevOps / Infrastructure", c.Categorize("DevOps Engineer"))
	require.Equal(t, "Machine Learning / AI", c.Categorize("Machine Learning Engineer"))
	require.Equal(t, "Data Science", c.Categorize("Data Science Intern"))
	require.Equal(t, "Research", c.Categorize("Research Scientist"))
	require.Equal(t, "Software Engineering", c.Categorize("Backend Developer"))
}

func TestCategorize_Other(t *testing.T) {
	c := NewCategorizer()

	require.Equal(t, CategoryOther, c.Categorize(""))
	require.Equal(t, CategoryOther, c.Categorize("Underwater Basket Weaver"))
}

func TestIsTechRelated(t *testing.T) {
	c := NewCategorizer()

	require.True(t, c.IsTechRelated("Software Engineer Intern"))
	require.True(t, c.IsTechRelated("DevOps Engineer"))
	require.False(t, c.IsTechRelated(""))
	require.False(t, c.IsTechRelated("Clinical Nurse"))
	require.False(t, c.IsTechRelated("Marketing Coordinator"))
	require.False(t, c.IsTechRelated("HR Generalist")) // "hr " pattern
}
