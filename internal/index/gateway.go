package index

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/linchen0/tutorvault/internal/log"
	"github.com/linchen0/tutorvault/internal/vault"
)

// DefaultBatchConcurrency bounds fan-out for batch pushes.
const DefaultBatchConcurrency = 4

// WorkspaceSlug derives the deterministic workspace identifier for
// (owner, subject, purpose). Same inputs always yield the same slug; it is
// the idempotency key for workspace creation. Subject may be empty for
// owner-wide purposes (e.g. "textbooks").
func WorkspaceSlug(owner, subject, purpose string) string {
	parts := []string{slugPart(owner)}
	if subject != "" {
		parts = append(parts, slugPart(subject))
	}
	parts = append(parts, slugPart(purpose))
	return strings.Join(parts, "_")
}

func slugPart(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "_", "-")
	return s
}

// Gateway maps vault documents onto the remote retrieval index.
type Gateway struct {
	client *Client
	logger log.Logger
}

// NewGateway creates a gateway over the given client.
func NewGateway(client *Client, logger log.Logger) *Gateway {
	return &Gateway{client: client, logger: logger}
}

// EnsureWorkspace returns the workspace with the given slug, creating it if
// absent. Tolerates the concurrent-creation race: when create fails because
// another caller got there first, the existing workspace wins and no error
// surfaces.
func (g *Gateway) EnsureWorkspace(ctx context.Context, slug, displayName string) (*Workspace, error) {
	ws, err := g.client.GetWorkspace(ctx, slug)
	if err == nil {
		return ws, nil
	}
	if !errors.Is(err, ErrWorkspaceNotFound) {
		return nil, err
	}

	ws, createErr := g.client.CreateWorkspace(ctx, slug, displayName)
	if createErr == nil {
		g.logger.Info("created index workspace", "slug", slug)
		return ws, nil
	}

	// "Already exists" from a concurrent creator reads as success.
	if ws, err := g.client.GetWorkspace(ctx, slug); err == nil {
		return ws, nil
	}
	return nil, createErr
}

// PushFull uploads the whole document body for embedding.
func (g *Gateway) PushFull(ctx context.Context, workspace string, doc *vault.Document) (PushResult, error) {
	location, err := g.client.UploadDocument(ctx, doc.Ref.Slug()+".md", []byte(doc.Body), uploadMetadata(doc, false))
	if err != nil {
		return PushResult{Status: StatusFailed, Workspace: workspace}, err
	}
	if err := g.client.UpdateEmbeddings(ctx, workspace, []string{location}, nil); err != nil {
		return PushResult{Status: StatusFailed, Workspace: workspace}, err
	}

	g.logger.Debug("embedded document", "workspace", workspace, "location", location)
	return PushResult{
		Status:       StatusEmbedded,
		DocumentName: location,
		Workspace:    workspace,
	}, nil
}

// PushIndexOnly uploads a lightweight pointer document instead of the full
// content: title, metadata summary, and a back-reference to the
// authoritative vault file (path plus stable document id, so the pointer
// survives a future re-homing of the file).
func (g *Gateway) PushIndexOnly(ctx context.Context, workspace string, doc *vault.Document) (PushResult, error) {
	pointer := buildPointerDoc(doc)

	location, err := g.client.UploadDocument(ctx, doc.Ref.Slug()+"-index.md", []byte(pointer), uploadMetadata(doc, true))
	if err != nil {
		return PushResult{Status: StatusFailed, Workspace: workspace}, err
	}

	g.logger.Debug("created index-only pointer", "workspace", workspace, "location", location)
	return PushResult{
		Status:       StatusIndexCreated,
		DocumentName: location,
		Workspace:    workspace,
		IndexOnly:    true,
	}, nil
}

// Remove detaches a previously pushed document from the workspace's
// embedding set.
func (g *Gateway) Remove(ctx context.Context, workspace, documentName string) error {
	return g.client.UpdateEmbeddings(ctx, workspace, nil, []string{documentName})
}

// Query runs a read-only retrieval query against the workspace.
func (g *Gateway) Query(ctx context.Context, workspace, text string, topK int) (*QueryResult, error) {
	if topK <= 0 {
		topK = 5
	}
	resp, err := g.client.Query(ctx, workspace, text, topK)
	if err != nil {
		return nil, err
	}
	return &QueryResult{Context: resp.TextResponse, Sources: resp.Sources}, nil
}

// RetrieveContext queries the workspace and flattens the result into one
// context string: the service's text response when present, otherwise the
// joined source texts.
func (g *Gateway) RetrieveContext(ctx context.Context, workspace, text string, topK int) (string, error) {
	result, err := g.Query(ctx, workspace, text, topK)
	if err != nil {
		return "", err
	}
	if result.Context != "" {
		return result.Context, nil
	}

	var parts []string
	for _, src := range result.Sources {
		if src.Text != "" {
			parts = append(parts, src.Text)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

// Ping probes the remote service.
func (g *Gateway) Ping(ctx context.Context) error {
	return g.client.Ping(ctx)
}

// BatchPush pushes documents concurrently with bounded fan-out and collects
// per-item outcomes. One item's failure never aborts its siblings; the
// returned slice parallels docs.
func (g *Gateway) BatchPush(ctx context.Context, workspace string, docs []vault.Document, fullEmbed bool) []BatchItemResult {
	results := make([]BatchItemResult, len(docs))

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(DefaultBatchConcurrency)

	for i := range docs {
		grp.Go(func() error {
			doc := &docs[i]

			var res PushResult
			var err error
			if fullEmbed {
				res, err = g.PushFull(grpCtx, workspace, doc)
			} else {
				res, err = g.PushIndexOnly(grpCtx, workspace, doc)
			}

			if err != nil {
				g.logger.Warn("batch push item failed",
					"workspace", workspace,
					"document", doc.Ref.Path(),
					"error", err)
			}
			results[i] = BatchItemResult{DocumentPath: doc.Ref.Path(), Result: res, Err: err}
			// Item failures are collected, never propagated: returning nil
			// keeps sibling items running.
			return nil
		})
	}
	_ = grp.Wait()
	return results
}

// uploadMetadata flattens the fields the index cares about.
func uploadMetadata(doc *vault.Document, indexOnly bool) map[string]any {
	m := map[string]any{
		"doc_id":     doc.Metadata.ID.String(),
		"source":     doc.Metadata.Source,
		"difficulty": doc.Metadata.Difficulty,
		"tags":       doc.Metadata.Tags,
	}
	if indexOnly {
		m["is_index_only"] = true
		m["original_file_path"] = doc.Ref.Path()
	}
	return m
}

// buildPointerDoc renders the index-only pointer artifact.
func buildPointerDoc(doc *vault.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", doc.Ref.Slug())
	fmt.Fprintf(&b, "**Document ID**: `%s`\n", doc.Metadata.ID)
	fmt.Fprintf(&b, "**Authoritative File**: `%s`\n\n", doc.Ref.Path())

	b.WriteString("## Metadata\n\n")
	fmt.Fprintf(&b, "- **Source**: %s\n", doc.Metadata.Source)
	fmt.Fprintf(&b, "- **Difficulty**: %d\n", doc.Metadata.Difficulty)
	if doc.Metadata.Accuracy != nil {
		fmt.Fprintf(&b, "- **Accuracy**: %.2f\n", *doc.Metadata.Accuracy)
	}
	if doc.Metadata.Attempts > 0 {
		fmt.Fprintf(&b, "- **Attempts**: %d\n", doc.Metadata.Attempts)
	}
	if len(doc.Metadata.Tags) > 0 {
		fmt.Fprintf(&b, "- **Tags**: %s\n", strings.Join(doc.Metadata.Tags, ", "))
	}
	if len(doc.Metadata.RelatedKnowledgePoints) > 0 {
		fmt.Fprintf(&b, "- **Knowledge Points**: %s\n", strings.Join(doc.Metadata.RelatedKnowledgePoints, ", "))
	}

	b.WriteString("\nThis is an index pointer; the full content lives in the vault file above.\n")
	return b.String()
}
