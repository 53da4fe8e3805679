package prompt

import (
	"fmt"
	"strings"

	"github.com/kris-hansen/scrollystory/utils/profile"
)

const generationPersona = `SYSTEM: You are an expert data journalist, D3.js developer and scrollytelling designer. You turn tabular data into accurate, engaging, self-contained HTML stories that work on the first load without any build step.`

const refactorPersona = `SYSTEM: You are an expert front-end engineer who specialises in refactoring D3.js + Scrollama scrollytelling pages. You make precise, minimal edits to existing HTML documents.`

const outputFormat = `--- OUTPUT FORMAT ---
Return ONLY the complete HTML document, starting with <!DOCTYPE html> and ending with </html>.
Do NOT include explanations, commentary, or markdown code fences before or after the document.`

func technicalContract() string {
	return fmt.Sprintf(`--- STRICT TECHNICAL CONTRACT ---
1. Page structure: produce exactly this skeleton, filling in the "..." parts:
%s

2. Libraries: load ONLY these from CDN, in <head>, in this order:
   - D3.js v7: %s
   - Scrollama: %s
   All other CSS and JavaScript must be inline. No other external requests.

3. Layout: a two-column layout inside #scrolly. The left column (.steps) holds the narrative
   steps and scrolls normally. The right column (.sticky-graphic) uses position: sticky with
   top: 0 and height: 100vh so the chart stays in view while the steps scroll past. On screens
   narrower than 768px, stack the columns with the graphic on top.

4. Steps: exactly %d .step elements with data-step attributes 1 to %d. Charts by step:
%s
5. Charts: between %d and %d distinct scroll-driven chart blocks, each drawn with D3 into the
   sticky SVG and updated from the Scrollama onStepEnter handler. Charts must resize with the
   window.

6. Transitions: every D3 transition duration must be between %dms and %dms.

7. Data: embed the data the charts need as a JavaScript constant derived from the profile below.
   Never fetch data at runtime.`,
		htmlSkeleton(), D3URL, ScrollamaURL, TotalSteps, TotalSteps, phaseLines(),
		MinChartBlocks, MaxChartBlocks, MinTransitionMs, MaxTransitionMs)
}

func validationChecklist() string {
	return fmt.Sprintf(`--- VALIDATION CHECKLIST (verify every item before responding) ---
[ ] The document starts with <!DOCTYPE html> and ends with </html>
[ ] %s and %s are both loaded in <head>
[ ] There are exactly %d .step elements numbered 1-%d
[ ] .sticky-graphic uses position: sticky
[ ] Between %d and %d chart blocks are driven by Scrollama step events
[ ] Every transition duration is between %dms and %dms
[ ] Every number in the narrative matches the data profile
[ ] There is no text outside the HTML document`,
		D3URL, ScrollamaURL, TotalSteps, TotalSteps, MinChartBlocks, MaxChartBlocks,
		MinTransitionMs, MaxTransitionMs)
}

const dataAnalysis = `--- DATA ANALYSIS ---
Study the data profile before writing anything:
- Use the column types, ranges, distributions and top values to find the three to five most
  interesting patterns, comparisons or outliers.
- Build the narrative arc from those findings: an introduction, a sequence of insights, and a
  conclusion with takeaways.
- Choose the columns each chart displays so that it supports the step text beside it.
- Only state facts the profile supports. Do not invent columns or values.`

func datasetSection(p *profile.Profile, fileName string) string {
	return fmt.Sprintf(`--- DATASET ---
File name: %s
Data profile (JSON):
%s`, fileName, profileJSON(p))
}

// profileJSON serializes the profile; a nil or unserializable profile is passed through as null
func profileJSON(p *profile.Profile) string {
	if p == nil {
		return "null"
	}
	data, err := p.JSON()
	if err != nil {
		return "null"
	}
	return data
}

// BuildGenerationPrompt builds the prompt for a new scrollytelling document
func BuildGenerationPrompt(p *profile.Profile, fileName, storyStyle, userInstructions string) string {
	sections := []string{
		generationPersona,
		technicalContract(),
		validationChecklist(),
		dataAnalysis,
		outputFormat,
	}

	if strings.TrimSpace(storyStyle) != "" {
		sections = append(sections, "--- STORY STYLE ---\n"+describeStyle(storyStyle))
	}
	if strings.TrimSpace(userInstructions) != "" {
		sections = append(sections, "--- ADDITIONAL USER INSTRUCTIONS ---\n"+
			"Apply these as long as they do not break the technical contract:\n"+
			strings.TrimSpace(userInstructions))
	}

	sections = append(sections, datasetSection(p, fileName))
	return strings.Join(sections, "\n\n") + "\n"
}

// BuildRefactorPrompt builds the prompt that modifies an existing document.
// existingHTML is embedded in full; it is never truncated.
func BuildRefactorPrompt(instructions, existingHTML string, p *profile.Profile, fileName string) string {
	sections := []string{
		refactorPersona,
		`--- REFACTOR RULES ---
- Preserve the working structure, the D3.js and Scrollama libraries, the step markup and the
  data already embedded in the document.
- Apply ONLY the requested change. Do not restyle, rename or reorganise anything else.
- Keep the document self-contained and valid.`,
		"--- REQUESTED CHANGE ---\n" + instructions,
		datasetSection(p, fileName),
		"--- CURRENT HTML DOCUMENT ---\n" + existingHTML + "\n--- END CURRENT HTML DOCUMENT ---",
		outputFormat,
	}
	return strings.Join(sections, "\n\n") + "\n"
}
