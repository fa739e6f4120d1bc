package vault

import (
	"context"
	"fmt"
)

// MoveToReview copies a document into the needs-review category with an
// appended, dated error record (the student's answer and optionally the
// reason). The source document is read and never mutated: the engine writes
// a new target, so a failure partway leaves the original untouched.
//
// The original deliberately stays in place; review items may overlap
// still-assigned tracking, so both copies coexist. If a review copy of the
// same document already exists (matched by document ID), the new record is
// appended to that copy; prior error records are never edited.
func (s *Store) MoveToReview(ctx context.Context, ref Ref, owner, subject, studentAnswer, errorReason string) (Ref, error) {
	doc, err := s.Read(ctx, ref)
	if err != nil {
		return Ref{}, err
	}

	now := s.now().UTC()

	record := fmt.Sprintf("\n\n## Error Record - %s\n\n", now.Format("2006-01-02"))
	record += fmt.Sprintf("**Student Answer:** %s\n\n", studentAnswer)
	if errorReason != "" {
		record += fmt.Sprintf("**Reason:** %s\n\n", errorReason)
	}

	if existing := s.findReviewCopy(ctx, owner, subject, doc); existing != nil {
		stamp := map[string]any{keyMovedToReview: now}
		if err := s.UpdateContent(ctx, existing.Ref, existing.Body+record, stamp); err != nil {
			return Ref{}, fmt.Errorf("appending error record to %s: %w", existing.Ref.Path(), err)
		}
		s.logger.Info("appended error record to review copy",
			"source", ref.Path(),
			"target", existing.Ref.Path())
		return existing.Ref, nil
	}

	meta := doc.Metadata
	meta.MovedToReview = now

	newRef, err := s.Save(ctx, SaveRequest{
		Owner:    owner,
		Subject:  subject,
		Category: CategoryReview,
		Title:    ref.Slug(),
		Body:     doc.Body + record,
		Metadata: meta,
	})
	if err != nil {
		return Ref{}, fmt.Errorf("saving review copy of %s: %w", ref.Path(), err)
	}

	s.logger.Info("moved document to review",
		"source", ref.Path(),
		"target", newRef.Path())
	return newRef, nil
}

// findReviewCopy locates an existing needs-review copy of doc by document
// ID, skipping the source itself. Scan problems degrade to "no copy found";
// the subsequent Save still never overwrites a foreign document.
func (s *Store) findReviewCopy(ctx context.Context, owner, subject string, doc *Document) *Document {
	listed, err := s.ListByCategory(ctx, owner, subject, CategoryReview, nil)
	if err != nil {
		s.logger.Warn("review scan failed while looking for existing copy", "error", err)
		return nil
	}
	for i := range listed.Documents {
		candidate := &listed.Documents[i]
		if candidate.Metadata.ID == doc.Metadata.ID && candidate.Ref != doc.Ref {
			return candidate
		}
	}
	return nil
}
