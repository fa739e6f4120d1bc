// Package assess holds generated assessment sessions: a problem set, the
// grading outcomes once produced, and the aggregate score. Sessions live in
// a [Store]; the in-memory backend serves a single instance, a durable
// backend can be swapped in behind the same interface.
package assess

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound is returned when a session id is unknown or expired.
	ErrSessionNotFound = errors.New("assessment session not found")

	// ErrAlreadyGraded is returned when grading a session a second time.
	ErrAlreadyGraded = errors.New("assessment session already graded")
)

// DefaultMaxScore is the per-problem score when the generator does not set one.
const DefaultMaxScore = 10

// Problem is one generated question. Numbers are 1-based and match the
// order students see on the printed sheet.
type Problem struct {
	Number          int      `json:"number"`
	Question        string   `json:"question"`
	Solution        string   `json:"solution,omitempty"`
	MaxScore        int      `json:"max_score"`
	Difficulty      int      `json:"difficulty"`
	KnowledgePoints []string `json:"knowledge_points,omitempty"`
}

// Grading is the outcome for one problem. An unanswered problem scores zero
// with Correct false.
type Grading struct {
	ProblemNumber int      `json:"problem_number"`
	StudentAnswer string   `json:"student_answer"`
	Score         int      `json:"score"`
	MaxScore      int      `json:"max_score"`
	Feedback      string   `json:"feedback,omitempty"`
	Suggestions   []string `json:"suggestions,omitempty"`
	Correct       bool     `json:"correct"`
}

// Session is one generated problem set for an owner and subject.
type Session struct {
	ID         uuid.UUID `json:"id"`
	Owner      string    `json:"owner"`
	Subject    string    `json:"subject"`
	TopicRange string    `json:"topic_range,omitempty"`
	Problems   []Problem `json:"problems"`
	CreatedAt  time.Time `json:"created_at"`

	Graded        bool      `json:"graded"`
	Gradings      []Grading `json:"gradings,omitempty"`
	TotalScore    int       `json:"total_score"`
	PossibleScore int       `json:"possible_score"`
	Accuracy      float64   `json:"accuracy"`
}

// NewSession mints a session with a fresh id and normalized problems:
// numbers assigned in order, zero max scores defaulted.
func NewSession(owner, subject, topicRange string, problems []Problem) *Session {
	normalized := make([]Problem, len(problems))
	for i, p := range problems {
		p.Number = i + 1
		if p.MaxScore <= 0 {
			p.MaxScore = DefaultMaxScore
		}
		normalized[i] = p
	}
	return &Session{
		ID:         uuid.New(),
		Owner:      owner,
		Subject:    subject,
		TopicRange: topicRange,
		Problems:   normalized,
		CreatedAt:  time.Now().UTC(),
	}
}

// ApplyGradings records the outcomes and computes the aggregate score.
// Every problem counts toward the possible score whether or not a grading
// was produced for it. Returns ErrAlreadyGraded on a second call.
func (s *Session) ApplyGradings(gradings []Grading) error {
	if s.Graded {
		return ErrAlreadyGraded
	}

	byNumber := make(map[int]Grading, len(gradings))
	for _, g := range gradings {
		byNumber[g.ProblemNumber] = g
	}

	s.Gradings = s.Gradings[:0]
	s.TotalScore = 0
	s.PossibleScore = 0
	for _, p := range s.Problems {
		g, ok := byNumber[p.Number]
		if !ok {
			g = Grading{ProblemNumber: p.Number, Feedback: "not answered"}
		}
		g.MaxScore = p.MaxScore
		if g.Score > g.MaxScore {
			g.Score = g.MaxScore
		}
		if g.Score < 0 {
			g.Score = 0
		}
		s.Gradings = append(s.Gradings, g)
		s.TotalScore += g.Score
		s.PossibleScore += g.MaxScore
	}

	if s.PossibleScore > 0 {
		s.Accuracy = float64(s.TotalScore) / float64(s.PossibleScore)
	}
	s.Graded = true
	return nil
}

// WrongProblems returns the gradings marked incorrect, paired with their
// problems. Only meaningful after ApplyGradings.
func (s *Session) WrongProblems() []WrongProblem {
	var wrong []WrongProblem
	for _, g := range s.Gradings {
		if g.Correct {
			continue
		}
		idx := g.ProblemNumber - 1
		if idx < 0 || idx >= len(s.Problems) {
			continue
		}
		wrong = append(wrong, WrongProblem{Problem: s.Problems[idx], Grading: g})
	}
	return wrong
}

// WrongProblem pairs a problem with its failed grading, ready to be written
// into the review category of the vault.
type WrongProblem struct {
	Problem Problem
	Grading Grading
}

// Summary is the lightweight history view of a session.
type Summary struct {
	ID            uuid.UUID `json:"id"`
	Subject       string    `json:"subject"`
	TopicRange    string    `json:"topic_range,omitempty"`
	TotalProblems int       `json:"total_problems"`
	Graded        bool      `json:"graded"`
	CreatedAt     time.Time `json:"created_at"`
	TotalScore    int       `json:"total_score"`
	Accuracy      float64   `json:"accuracy"`
}

func (s *Session) summary() Summary {
	return Summary{
		ID:            s.ID,
		Subject:       s.Subject,
		TopicRange:    s.TopicRange,
		TotalProblems: len(s.Problems),
		Graded:        s.Graded,
		CreatedAt:     s.CreatedAt,
		TotalScore:    s.TotalScore,
		Accuracy:      s.Accuracy,
	}
}
