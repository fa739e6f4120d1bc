package vault

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Difficulty bounds. Out-of-range inputs are clamped, never rejected.
const (
	MinDifficulty = 1
	MaxDifficulty = 5

	// DefaultDifficulty applies when the caller supplies none.
	DefaultDifficulty = 3
)

// Metadata is the structured record attached 1:1 to every document.
//
// Accuracy, when present, is the running mean of binary correctness
// outcomes across Attempts graded submissions for this document, not the
// accuracy of any single attempt. Nil means "not yet attempted".
type Metadata struct {
	// ID is a stable identity minted on first save. It survives category
	// moves and renames, so index-only pointers remain resolvable even if
	// the document's path changes.
	ID uuid.UUID `json:"id"`

	// Source records provenance, e.g. "Photo Upload".
	Source string `json:"source"`

	// Difficulty is always within [MinDifficulty, MaxDifficulty].
	Difficulty int `json:"difficulty"`

	// Accuracy is the running mean in [0,1]; nil = never attempted.
	Accuracy *float64 `json:"accuracy,omitempty"`

	// Attempts counts graded submissions.
	Attempts int `json:"attempts"`

	// Tags preserve caller order for display; lookup ignores order.
	Tags []string `json:"tags,omitempty"`

	// RelatedKnowledgePoints is an ordered list of knowledge-point names.
	RelatedKnowledgePoints []string `json:"related_knowledge_points,omitempty"`

	// LastModified advances on every write; monotonically non-decreasing.
	LastModified time.Time `json:"last_modified"`

	// LastAttempted advances only on grading events. Zero = never graded.
	LastAttempted time.Time `json:"last_attempted,omitzero"`

	// MovedToReview is stamped by the category transition engine.
	// Zero = never moved.
	MovedToReview time.Time `json:"moved_to_review,omitzero"`

	// Extra carries unrecognized caller-supplied fields through reads and
	// writes unchanged (forward compatibility side-channel).
	Extra map[string]any `json:"extra,omitempty"`
}

// clampDifficulty forces d into the valid range.
func clampDifficulty(d int) int {
	if d < MinDifficulty {
		return MinDifficulty
	}
	if d > MaxDifficulty {
		return MaxDifficulty
	}
	return d
}

// Normalize fills defaults, clamps difficulty, and stamps LastModified.
// A zero ID is replaced with a freshly minted one. The receiver is
// modified in place.
func (m *Metadata) Normalize(now time.Time) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Source == "" {
		m.Source = "Unknown"
	}
	if m.Difficulty == 0 {
		m.Difficulty = DefaultDifficulty
	}
	m.Difficulty = clampDifficulty(m.Difficulty)
	if m.Attempts < 0 {
		m.Attempts = 0
	}
	if m.Tags == nil {
		m.Tags = []string{}
	}
	if m.RelatedKnowledgePoints == nil {
		m.RelatedKnowledgePoints = []string{}
	}
	m.LastModified = now
}

// ApplyGradingOutcome records one graded submission: increments Attempts
// and recomputes Accuracy as the running mean
//
//	((accuracy_or_0 * (attempts-1)) + outcome) / attempts
//
// then stamps LastAttempted and LastModified. The formula is
// order-sensitive and assumes grading events apply strictly sequentially
// per document; the store guarantees that via the per-document lock.
func (m *Metadata) ApplyGradingOutcome(correct bool, now time.Time) {
	m.Attempts++

	prev := 0.0
	if m.Accuracy != nil {
		prev = *m.Accuracy
	}
	outcome := 0.0
	if correct {
		outcome = 1.0
	}
	acc := ((prev * float64(m.Attempts-1)) + outcome) / float64(m.Attempts)
	m.Accuracy = &acc

	m.LastAttempted = now
	m.LastModified = now
}

// Merge applies a partial update keyed by frontmatter field names.
// Known keys update their struct fields (difficulty is clamped); unknown
// keys land in Extra. LastModified is restamped by the caller's write path,
// not here.
func (m *Metadata) Merge(partial map[string]any) error {
	for k, v := range partial {
		switch k {
		case keyID, keyLastModified:
			// Identity and write stamps are owned by the store.
		case keySource:
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("%w: source must be a string", ErrInvalidInput)
			}
			m.Source = s
		case keyDifficulty:
			d, err := toInt(v)
			if err != nil {
				return fmt.Errorf("%w: difficulty: %v", ErrInvalidInput, err)
			}
			m.Difficulty = clampDifficulty(d)
		case keyAccuracy:
			if v == nil {
				m.Accuracy = nil
				continue
			}
			f, err := toFloat(v)
			if err != nil {
				return fmt.Errorf("%w: accuracy: %v", ErrInvalidInput, err)
			}
			m.Accuracy = &f
		case keyAttempts:
			n, err := toInt(v)
			if err != nil || n < 0 {
				return fmt.Errorf("%w: attempts must be a non-negative integer", ErrInvalidInput)
			}
			m.Attempts = n
		case keyTags:
			m.Tags = toStringSlice(v)
		case keyRelated:
			m.RelatedKnowledgePoints = toStringSlice(v)
		case keyLastAttempted:
			t, err := toTime(v)
			if err != nil {
				return fmt.Errorf("%w: last_attempted: %v", ErrInvalidInput, err)
			}
			m.LastAttempted = t
		case keyMovedToReview:
			t, err := toTime(v)
			if err != nil {
				return fmt.Errorf("%w: moved_to_review: %v", ErrInvalidInput, err)
			}
			m.MovedToReview = t
		default:
			if m.Extra == nil {
				m.Extra = map[string]any{}
			}
			m.Extra[k] = v
		}
	}
	return nil
}

// MatchesFilter reports whether the metadata satisfies every key/value pair
// in filter, compared against the frontmatter representation.
func (m *Metadata) MatchesFilter(filter map[string]any) bool {
	if len(filter) == 0 {
		return true
	}
	repr := m.toMap()
	for k, want := range filter {
		got, ok := repr[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

func toStringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			out = append(out, fmt.Sprint(e))
		}
		return out
	case nil:
		return []string{}
	default:
		return []string{fmt.Sprint(v)}
	}
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		return time.Parse(time.RFC3339Nano, t)
	default:
		return time.Time{}, fmt.Errorf("unexpected type %T", v)
	}
}
