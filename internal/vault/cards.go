package vault

import (
	"context"
	"fmt"
	"strings"
)

// CardRequest describes one knowledge-point card.
type CardRequest struct {
	Owner           string
	Subject         string
	KnowledgePoint  string
	Explanation     string
	Examples        []string
	RelatedProblems []string
	Metadata        Metadata
}

// CreateKnowledgeCard composes a card document (concept explanation,
// worked examples, wiki-links to related problems) and saves it into the
// knowledge-card category under the knowledge-point name.
func (s *Store) CreateKnowledgeCard(ctx context.Context, req CardRequest) (Ref, error) {
	if strings.TrimSpace(req.KnowledgePoint) == "" {
		return Ref{}, fmt.Errorf("%w: empty knowledge point", ErrInvalidInput)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", req.KnowledgePoint)
	fmt.Fprintf(&b, "## Core Concept\n%s\n\n", req.Explanation)
	b.WriteString("## Examples\n\n")
	for i, example := range req.Examples {
		fmt.Fprintf(&b, "### Example %d\n%s\n\n", i+1, example)
	}
	b.WriteString("## Related Problems\n\n")
	for _, problem := range req.RelatedProblems {
		fmt.Fprintf(&b, "- [[%s]]\n", problem)
	}

	meta := req.Metadata
	if !containsString(meta.RelatedKnowledgePoints, req.KnowledgePoint) {
		meta.RelatedKnowledgePoints = append(meta.RelatedKnowledgePoints, req.KnowledgePoint)
	}

	return s.Save(ctx, SaveRequest{
		Owner:    req.Owner,
		Subject:  req.Subject,
		Category: CategoryCards,
		Title:    req.KnowledgePoint,
		Body:     b.String(),
		Metadata: meta,
	})
}

// KnowledgeCards lists the owner's cards for a subject. With tags given, a
// card matches when it carries at least one of them.
func (s *Store) KnowledgeCards(ctx context.Context, owner, subject string, tags []string) (*ListResult, error) {
	listed, err := s.ListByCategory(ctx, owner, subject, CategoryCards, nil)
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return listed, nil
	}

	filtered := listed.Documents[:0]
	for _, doc := range listed.Documents {
		if anyTagMatch(doc.Metadata.Tags, tags) {
			filtered = append(filtered, doc)
		}
	}
	listed.Documents = filtered
	return listed, nil
}

func anyTagMatch(have, want []string) bool {
	for _, w := range want {
		if containsString(have, w) {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
