// Package prompt builds the generation and refactor prompts sent to the LLM.
// Every builder is a pure function: identical inputs give byte-identical prompts.
package prompt

import (
	"fmt"
	"sort"
	"strings"
)

const (
	// D3URL is the CDN location of the D3 build the generated page must load
	D3URL = "https://d3js.org/d3.v7.min.js"
	// ScrollamaURL is the CDN location of the Scrollama build the generated page must load
	ScrollamaURL = "https://unpkg.com/scrollama"

	// TotalSteps is the exact number of narrative steps required
	TotalSteps = 12
	// MinChartBlocks and MaxChartBlocks bound the distinct scroll-driven charts
	MinChartBlocks = 3
	MaxChartBlocks = 5
	// MinTransitionMs and MaxTransitionMs bound D3 transition durations
	MinTransitionMs = 500
	MaxTransitionMs = 1200
)

// ChartPhase assigns a chart type to a contiguous range of steps
type ChartPhase struct {
	Chart     string
	FirstStep int
	LastStep  int
}

// ChartPhases partitions the steps by chart type, in scroll order
var ChartPhases = []ChartPhase{
	{Chart: "bar chart", FirstStep: 1, LastStep: 3},
	{Chart: "line chart", FirstStep: 4, LastStep: 6},
	{Chart: "scatter plot", FirstStep: 7, LastStep: 9},
	{Chart: "summary donut chart", FirstStep: 10, LastStep: 12},
}

// LibraryMarker names substrings whose presence shows a required library is referenced
type LibraryMarker struct {
	Library string
	Markers []string
}

// RequiredLibraryMarkers is consulted by the advisory post-check on generated documents
var RequiredLibraryMarkers = []LibraryMarker{
	{Library: "D3.js", Markers: []string{"d3.v7.min.js", "d3js.org"}},
	{Library: "Scrollama", Markers: []string{"scrollama"}},
}

var storyStyles = map[string]string{
	"explanatory":   "Explanatory: walk a general audience through the data step by step, defining every measure before using it.",
	"investigative": "Investigative: frame the story as a question, build tension through the evidence, and reveal the key finding near the end.",
	"executive":     "Executive: lead with the conclusion, keep every step short, and quantify impact in each step.",
	"editorial":     "Editorial: write like a data journalist, with a headline, a nut graf, and a clear point of view backed by the numbers.",
	"playful":       "Playful: use a light, curious tone with vivid comparisons, while keeping every number accurate.",
}

// StoryStyles returns the known story style tags in sorted order
func StoryStyles() []string {
	styles := make([]string, 0, len(storyStyles))
	for s := range storyStyles {
		styles = append(styles, s)
	}
	sort.Strings(styles)
	return styles
}

// describeStyle expands a known tag; unknown tags are passed through verbatim
func describeStyle(style string) string {
	if desc, ok := storyStyles[strings.ToLower(strings.TrimSpace(style))]; ok {
		return desc
	}
	return strings.TrimSpace(style)
}

func htmlSkeleton() string {
	var steps strings.Builder
	for i := 1; i <= TotalSteps; i++ {
		fmt.Fprintf(&steps, "      <div class=\"step\" data-step=\"%d\">...</div>\n", i)
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>...</title>
  <script src="%s"></script>
  <script src="%s"></script>
  <style>/* all CSS inline */</style>
</head>
<body>
  <header class="intro">...</header>
  <section id="scrolly">
    <div class="sticky-graphic"><svg id="chart"></svg></div>
    <article class="steps">
%s    </article>
  </section>
  <footer class="outro">...</footer>
  <script>/* embedded data, D3 charts, Scrollama setup */</script>
</body>
</html>`, D3URL, ScrollamaURL, steps.String())
}

func phaseLines() string {
	var b strings.Builder
	for _, p := range ChartPhases {
		fmt.Fprintf(&b, "   - Steps %d-%d: %s\n", p.FirstStep, p.LastStep, p.Chart)
	}
	return b.String()
}
