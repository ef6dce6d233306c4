package wikifetch

import "sort"

// SummarySampleSize is how many example results a Summary keeps per status.
const SummarySampleSize = 5

// Summary aggregates a set of persisted results for reporting.
type Summary struct {
	Total    int
	ByStatus map[Status]int

	// FoundByCategory counts found results by category field value.
	// Results without the field are counted under "unknown".
	FoundByCategory map[string]int

	// Body length statistics over found results, in characters.
	MinLength int
	MaxLength int
	AvgLength int

	FoundSamples    []*FetchResult
	NotFoundSamples []*FetchResult
}

// Summarize computes a Summary over results. categoryField names the carried
// field used to group found results; empty means DefaultCategoryField.
func Summarize(results []*FetchResult, categoryField string) *Summary {
	if categoryField == "" {
		categoryField = DefaultCategoryField
	}

	s := &Summary{
		Total:           len(results),
		ByStatus:        make(map[Status]int),
		FoundByCategory: make(map[string]int),
	}

	var totalLength, found int
	for _, r := range results {
		s.ByStatus[r.Status]++

		switch r.Status {
		case StatusFound:
			category := r.Field(categoryField)
			if category == "" {
				category = "unknown"
			}
			s.FoundByCategory[category]++

			n := r.BodyLength()
			if found == 0 || n < s.MinLength {
				s.MinLength = n
			}
			if n > s.MaxLength {
				s.MaxLength = n
			}
			totalLength += n
			found++

			if len(s.FoundSamples) < SummarySampleSize {
				s.FoundSamples = append(s.FoundSamples, r)
			}
		case StatusNotFound:
			if len(s.NotFoundSamples) < SummarySampleSize {
				s.NotFoundSamples = append(s.NotFoundSamples, r)
			}
		}
	}

	if found > 0 {
		s.AvgLength = totalLength / found
	}
	return s
}

// Categories returns the categories of FoundByCategory in ascending order.
func (s *Summary) Categories() []string {
	categories := make([]string, 0, len(s.FoundByCategory))
	for c := range s.FoundByCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories
}

// Statuses returns the statuses present in ByStatus, most frequent first.
func (s *Summary) Statuses() []Status {
	statuses := make([]Status, 0, len(s.ByStatus))
	for st := range s.ByStatus {
		statuses = append(statuses, st)
	}
	sort.Slice(statuses, func(i, j int) bool {
		if s.ByStatus[statuses[i]] != s.ByStatus[statuses[j]] {
			return s.ByStatus[statuses[i]] > s.ByStatus[statuses[j]]
		}
		return statuses[i] < statuses[j]
	})
	return statuses
}
