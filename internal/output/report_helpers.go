package output

import "sort"

type categoryCount struct {
	Category string
	Count    int
}

func countByStatus(records []Record) (fixed, manual, errored int) {
	for _, r := range records {
		switch r.Status {
		case StatusFixed:
			fixed++
		case StatusManual:
			manual++
		case StatusError:
			errored++
		}
	}
	return fixed, manual, errored
}

func countRuns(records []Record) int {
	type runKey struct {
		repo string
		id   int64
	}
	seen := make(map[runKey]struct{})
	for _, r := range records {
		seen[runKey{r.Repo, r.RunID}] = struct{}{}
	}
	return len(seen)
}

// categoryCounts tallies detections per category, most frequent first.
// Ties break alphabetically so the table is stable.
func categoryCounts(records []Record) []categoryCount {
	counts := make(map[string]int)
	for _, r := range records {
		if r.Category == "" {
			continue
		}
		counts[r.Category]++
	}

	out := make([]categoryCount, 0, len(counts))
	for cat, n := range counts {
		out = append(out, categoryCount{Category: cat, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}
