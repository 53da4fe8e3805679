package profile

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
)

// categoricalLimit is the cardinality at or below which a column is always categorical
const categoricalLimit = 20

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
}

func summarizeColumn(name string, values []string) Column {
	col := Column{Name: name}

	counts := make(map[string]int)
	var present []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			col.Missing++
			continue
		}
		if counts[v] == 0 {
			present = append(present, v)
		}
		counts[v]++
		col.Count++
	}
	col.Unique = len(counts)
	col.Samples = samples(present)

	if col.Count == 0 {
		col.Type = Text
		return col
	}

	if numbers, ok := parseNumbers(values); ok {
		col.Type = Numeric
		fillNumeric(&col, numbers)
		return col
	}

	if earliest, latest, ok := parseDates(present); ok {
		col.Type = Date
		col.Earliest, col.Latest = earliest, latest
		return col
	}

	if col.Unique <= categoricalLimit || col.Unique*2 <= col.Count {
		col.Type = Categorical
	} else {
		col.Type = Text
	}
	col.TopValues = topValues(counts, col.Count)
	return col
}

func parseNumbers(values []string) (stats.Float64Data, bool) {
	var numbers stats.Float64Data
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		numbers = append(numbers, f)
	}
	return numbers, len(numbers) > 0
}

func fillNumeric(col *Column, numbers stats.Float64Data) {
	set := func(fn func(stats.Float64Data) (float64, error)) *float64 {
		v, err := fn(numbers)
		if err != nil {
			return nil
		}
		rounded, err := stats.Round(v, 4)
		if err != nil {
			return &v
		}
		return &rounded
	}
	col.Min = set(stats.Min)
	col.Max = set(stats.Max)
	col.Mean = set(stats.Mean)
	col.Median = set(stats.Median)
	col.StdDev = set(stats.StandardDeviation)
}

// parseDates succeeds when every value parses with a single shared layout
func parseDates(values []string) (string, string, bool) {
	for _, layout := range dateLayouts {
		var (
			minT, maxT     time.Time
			minStr, maxStr string
			ok             = true
		)
		for i, v := range values {
			t, err := time.Parse(layout, v)
			if err != nil {
				ok = false
				break
			}
			if i == 0 || t.Before(minT) {
				minT, minStr = t, v
			}
			if i == 0 || t.After(maxT) {
				maxT, maxStr = t, v
			}
		}
		if ok {
			return minStr, maxStr, true
		}
	}
	return "", "", false
}

func topValues(counts map[string]int, total int) []ValueCount {
	all := make([]ValueCount, 0, len(counts))
	for v, c := range counts {
		all = append(all, ValueCount{Value: v, Count: c})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Count != all[j].Count {
			return all[i].Count > all[j].Count
		}
		return all[i].Value < all[j].Value
	})
	if len(all) > TopK {
		all = all[:TopK]
	}
	for i := range all {
		all[i].Value = truncate(all[i].Value)
		all[i].Percent = math.Round(float64(all[i].Count)/float64(total)*1000) / 10
	}
	return all
}

func samples(distinct []string) []string {
	n := len(distinct)
	if n > SampleSize {
		n = SampleSize
	}
	out := make([]string, 0, n)
	for _, v := range distinct[:n] {
		out = append(out, truncate(v))
	}
	return out
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= MaxSampleLength {
		return s
	}
	return string(r[:MaxSampleLength-3]) + "..."
}
