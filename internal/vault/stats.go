package vault

import "context"

// Statistics summarizes an owner's learning state for one subject.
type Statistics struct {
	ValidatedProblems int `json:"validated_problems"`
	ReviewProblems    int `json:"review_problems"`
	KnowledgeCards    int `json:"knowledge_cards"`
	Lessons           int `json:"lessons"`

	// AverageAccuracy is the mean running accuracy over documents that
	// have been attempted at least once. Zero when none have.
	AverageAccuracy float64 `json:"average_accuracy"`

	// DifficultyDistribution counts documents per difficulty level 1..5.
	DifficultyDistribution map[int]int `json:"difficulty_distribution"`

	// Skipped counts unreadable documents encountered during the scan.
	Skipped int `json:"skipped"`
}

// Statistics walks all four categories of (owner, subject) and aggregates
// counts, accuracy, and the difficulty histogram. Unreadable files are
// skipped and counted, never fatal.
func (s *Store) Statistics(ctx context.Context, owner, subject string) (*Statistics, error) {
	stats := &Statistics{
		DifficultyDistribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
	}

	var accuracySum float64
	var attempted int

	for _, category := range Categories() {
		listed, err := s.ListByCategory(ctx, owner, subject, category, nil)
		if err != nil {
			return nil, err
		}
		stats.Skipped += listed.Skipped

		switch category {
		case CategoryValidated:
			stats.ValidatedProblems = len(listed.Documents)
		case CategoryReview:
			stats.ReviewProblems = len(listed.Documents)
		case CategoryCards:
			stats.KnowledgeCards = len(listed.Documents)
		case CategoryLessons:
			stats.Lessons = len(listed.Documents)
		}

		for _, doc := range listed.Documents {
			if d := doc.Metadata.Difficulty; d >= MinDifficulty && d <= MaxDifficulty {
				stats.DifficultyDistribution[d]++
			}
			if doc.Metadata.Accuracy != nil {
				accuracySum += *doc.Metadata.Accuracy
				attempted++
			}
		}
	}

	if attempted > 0 {
		stats.AverageAccuracy = accuracySum / float64(attempted)
	}
	return stats, nil
}
