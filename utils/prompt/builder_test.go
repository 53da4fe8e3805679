package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kris-hansen/scrollystory/utils/profile"
)

func testProfile(t *testing.T) *profile.Profile {
	t.Helper()
	p, err := profile.FromCSV("region,sales\nNorth,10\nSouth,20\nNorth,30\n")
	require.NoError(t, err)
	return p
}

func TestBuildGenerationPromptDeterministic(t *testing.T) {
	p := testProfile(t)
	first := BuildGenerationPrompt(p, "sales.csv", "editorial", "Use a dark theme")
	second := BuildGenerationPrompt(testProfile(t), "sales.csv", "editorial", "Use a dark theme")
	assert.Equal(t, first, second)
}

func TestBuildGenerationPromptSectionOrder(t *testing.T) {
	p := testProfile(t)
	out := BuildGenerationPrompt(p, "sales.csv", "investigative", "Mention the north region first")

	markers := []string{
		"SYSTEM: You are an expert data journalist",
		"--- STRICT TECHNICAL CONTRACT ---",
		"--- VALIDATION CHECKLIST",
		"--- DATA ANALYSIS ---",
		"--- OUTPUT FORMAT ---",
		"--- STORY STYLE ---",
		"--- ADDITIONAL USER INSTRUCTIONS ---",
		"--- DATASET ---",
	}
	last := -1
	for _, m := range markers {
		idx := strings.Index(out, m)
		require.NotEqual(t, -1, idx, "missing section %q", m)
		assert.Greater(t, idx, last, "section %q out of order", m)
		last = idx
	}

	assert.Contains(t, out, "File name: sales.csv")
	assert.Contains(t, out, `"name": "region"`)
	assert.Contains(t, out, "Mention the north region first")
	assert.Contains(t, out, "Investigative:")
}

func TestBuildGenerationPromptContract(t *testing.T) {
	out := BuildGenerationPrompt(testProfile(t), "sales.csv", "", "")

	assert.Contains(t, out, D3URL)
	assert.Contains(t, out, ScrollamaURL)
	assert.Contains(t, out, "position: sticky")
	assert.Contains(t, out, `data-step="12"`)
	assert.NotContains(t, out, `data-step="13"`)
	assert.Contains(t, out, "Steps 4-6: line chart")
	assert.Contains(t, out, "between 500ms and 1200ms")
	assert.Contains(t, out, "Return ONLY the complete HTML document")

	assert.NotContains(t, out, "--- STORY STYLE ---")
	assert.NotContains(t, out, "--- ADDITIONAL USER INSTRUCTIONS ---")
}

func TestBuildGenerationPromptUnknownStyleAndNilProfile(t *testing.T) {
	out := BuildGenerationPrompt(nil, "", "noir detective", "")
	assert.Contains(t, out, "--- STORY STYLE ---\nnoir detective")
	assert.Contains(t, out, "Data profile (JSON):\nnull")
}

func TestBuildRefactorPromptKeepsFullDocument(t *testing.T) {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><body>")
	for i := 0; i < 20000; i++ {
		b.WriteString("<p>row</p>")
	}
	b.WriteString("</body></html>")
	existing := b.String()

	out := BuildRefactorPrompt("Make the bars red", existing, testProfile(t), "sales.csv")

	assert.Contains(t, out, existing)
	assert.Contains(t, out, "--- REQUESTED CHANGE ---\nMake the bars red")
	assert.Contains(t, out, "File name: sales.csv")
	assert.Contains(t, out, "Return ONLY the complete HTML document")
	assert.Less(t, strings.Index(out, "Make the bars red"), strings.Index(out, existing))
}

func TestStoryStyles(t *testing.T) {
	styles := StoryStyles()
	assert.Equal(t, []string{"editorial", "executive", "explanatory", "investigative", "playful"}, styles)
	assert.Equal(t, "custom tone", describeStyle("  custom tone "))
	assert.True(t, strings.HasPrefix(describeStyle("Executive"), "Executive:"))
}
