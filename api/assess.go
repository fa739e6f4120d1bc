package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/linchen0/tutorvault/internal/assess"
	"github.com/linchen0/tutorvault/internal/log"
	"github.com/linchen0/tutorvault/internal/vault"
)

// reviewTag marks documents produced by assessment grading.
const reviewTag = "needs-review"

// AssessHandler serves assessment session endpoints. Grading writes each
// wrong problem into the vault's review category, so the session store can
// stay ephemeral without losing the material worth revisiting.
type AssessHandler struct {
	store    *vault.Store
	sessions assess.Store
	logger   log.Logger
}

// NewAssessHandler creates an assessment handler.
func NewAssessHandler(store *vault.Store, sessions assess.Store, logger log.Logger) *AssessHandler {
	return &AssessHandler{store: store, sessions: sessions, logger: logger}
}

// RegisterRoutes registers assessment routes on the given mux.
func (h *AssessHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/assessments", h.create)
	mux.HandleFunc("GET /api/assessments", h.history)
	mux.HandleFunc("GET /api/assessments/{id}", h.get)
	mux.HandleFunc("POST /api/assessments/{id}/grade", h.grade)
}

// CreateAssessmentRequest holds a generated problem set.
type CreateAssessmentRequest struct {
	Owner      string           `json:"owner"`
	Subject    string           `json:"subject"`
	TopicRange string           `json:"topic_range,omitempty"`
	Problems   []assess.Problem `json:"problems"`
}

func (h *AssessHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateAssessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}
	if req.Owner == "" || req.Subject == "" || len(req.Problems) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_input", "owner, subject, and problems are required", h.logger)
		return
	}

	session := assess.NewSession(req.Owner, req.Subject, req.TopicRange, req.Problems)
	if err := h.sessions.Create(r.Context(), session); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, session, h.logger)
}

func (h *AssessHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid session id", h.logger)
		return
	}

	session, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, session, h.logger)
}

func (h *AssessHandler) history(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner := q.Get("owner")
	if owner == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "owner is required", h.logger)
		return
	}

	summaries, err := h.sessions.History(r.Context(), owner, q.Get("subject"), parseIntParam(q.Get("limit"), 20))
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": summaries,
		"total":    len(summaries),
	}, h.logger)
}

// GradeSessionRequest carries the per-problem outcomes.
type GradeSessionRequest struct {
	Gradings []assess.Grading `json:"gradings"`
}

// GradeSessionResponse reports the graded session plus how many wrong
// problems landed in the review category.
type GradeSessionResponse struct {
	Session       *assess.Session `json:"session"`
	WrongProblems int             `json:"wrong_problems"`
	ReviewSaved   int             `json:"review_saved"`
}

func (h *AssessHandler) grade(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid session id", h.logger)
		return
	}

	var req GradeSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}

	session, err := h.sessions.Update(r.Context(), id, func(s *assess.Session) error {
		return s.ApplyGradings(req.Gradings)
	})
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	wrong := session.WrongProblems()
	saved := h.saveWrongProblems(r, session, wrong)

	writeJSON(w, http.StatusOK, GradeSessionResponse{
		Session:       session,
		WrongProblems: len(wrong),
		ReviewSaved:   saved,
	}, h.logger)
}

// saveWrongProblems writes each failed problem into the review category.
// Failures are logged per problem and never fail the grading response; the
// session already holds the authoritative outcome.
func (h *AssessHandler) saveWrongProblems(r *http.Request, session *assess.Session, wrong []assess.WrongProblem) int {
	var saved int
	for _, wp := range wrong {
		body := wrongProblemBody(wp)
		_, err := h.store.Save(r.Context(), vault.SaveRequest{
			Owner:    session.Owner,
			Subject:  session.Subject,
			Category: vault.CategoryReview,
			Title:    fmt.Sprintf("assessment %s problem %d", shortID(session.ID), wp.Problem.Number),
			Body:     body,
			Metadata: vault.Metadata{
				Source:     fmt.Sprintf("Assessment %s", session.ID),
				Difficulty: wp.Problem.Difficulty,
				Tags:       append([]string{reviewTag}, wp.Problem.KnowledgePoints...),
			},
		})
		if err != nil {
			h.logger.Error("saving wrong problem to review",
				"session", session.ID,
				"problem", wp.Problem.Number,
				"error", err)
			continue
		}
		saved++
	}
	return saved
}

func wrongProblemBody(wp assess.WrongProblem) string {
	var b strings.Builder
	b.WriteString("# Problem\n\n")
	b.WriteString(wp.Problem.Question)
	b.WriteString("\n\n## Correct Answer\n\n")
	if wp.Problem.Solution != "" {
		b.WriteString(wp.Problem.Solution)
	} else {
		b.WriteString("See detailed solution")
	}
	fmt.Fprintf(&b, "\n\n## Grading\n\n**Student Answer:** %s\n\n**Score:** %d/%d\n",
		wp.Grading.StudentAnswer, wp.Grading.Score, wp.Grading.MaxScore)
	if wp.Grading.Feedback != "" {
		fmt.Fprintf(&b, "\n**Feedback:** %s\n", wp.Grading.Feedback)
	}
	if len(wp.Grading.Suggestions) > 0 {
		b.WriteString("\n**Suggestions:**\n")
		for _, s := range wp.Grading.Suggestions {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	return b.String()
}

// shortID keeps review filenames readable.
func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
