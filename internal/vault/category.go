package vault

import "fmt"

// Category is one of the four fixed document lifecycle buckets. A document
// belongs to exactly one category directory at a time; moving categories is
// a copy, not a pointer change.
type Category string

const (
	// CategoryValidated holds checked, correct schoolwork.
	CategoryValidated Category = "validated-clean"

	// CategoryReview holds problems answered incorrectly, awaiting review.
	CategoryReview Category = "needs-review"

	// CategoryCards holds knowledge-point cards.
	CategoryCards Category = "knowledge-card"

	// CategoryLessons holds generated lesson content.
	CategoryLessons Category = "generated-lesson"
)

// folderNames maps each category to its vault directory name.
var folderNames = map[Category]string{
	CategoryValidated: "Validated",
	CategoryReview:    "Review",
	CategoryCards:     "Cards",
	CategoryLessons:   "Lessons",
}

// Categories returns all categories in a stable order.
func Categories() []Category {
	return []Category{CategoryValidated, CategoryReview, CategoryCards, CategoryLessons}
}

// ParseCategory validates a category string.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if _, ok := folderNames[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

// Folder returns the directory name for the category, or an error for
// unknown values.
func (c Category) Folder() (string, error) {
	name, ok := folderNames[c]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, string(c))
	}
	return name, nil
}

func (c Category) String() string { return string(c) }
