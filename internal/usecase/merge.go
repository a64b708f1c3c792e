package usecase

import (
	"sort"

	"StoryScanner/internal/domain"
)

// Merge concatenates sequences in order and keeps only the first record for
// each URL. Later duplicates are dropped whole. The inputs are not modified.
func Merge(sequences ...[]domain.Story) []domain.Story {
	total := 0
	for _, seq := range sequences {
		total += len(seq)
	}

	out := make([]domain.Story, 0, total)
	seen := make(map[string]struct{}, total)
	for _, seq := range sequences {
		for _, story := range seq {
			if _, dup := seen[story.URL]; dup {
				continue
			}
			seen[story.URL] = struct{}{}
			out = append(out, story)
		}
	}
	return out
}

// NewestFirst returns a copy of records ordered by publication time,
// newest first. Ties keep their merge order.
func NewestFirst(records []domain.Story) []domain.Story {
	out := append([]domain.Story(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	return out
}
