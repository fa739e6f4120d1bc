package vault

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Frontmatter field names. These are the on-disk contract; documents must
// stay readable and recoverable by direct inspection.
const (
	keyID            = "id"
	keySource        = "source"
	keyDifficulty    = "difficulty"
	keyAccuracy      = "accuracy"
	keyAttempts      = "attempts"
	keyTags          = "tags"
	keyRelated       = "related_knowledge_points"
	keyLastModified  = "last_modified"
	keyLastAttempted = "last_attempted"
	keyMovedToReview = "moved_to_review"
)

const frontmatterDelimiter = "---"

// toMap converts metadata to its frontmatter representation.
// Absent optional fields (nil accuracy, zero timestamps) are omitted so the
// file states exactly what is known.
func (m *Metadata) toMap() map[string]any {
	out := map[string]any{
		keySource:       m.Source,
		keyDifficulty:   m.Difficulty,
		keyAttempts:     m.Attempts,
		keyTags:         m.Tags,
		keyRelated:      m.RelatedKnowledgePoints,
		keyLastModified: m.LastModified.UTC().Format(time.RFC3339Nano),
	}
	if m.ID != uuid.Nil {
		out[keyID] = m.ID.String()
	}
	if m.Accuracy != nil {
		out[keyAccuracy] = *m.Accuracy
	}
	if !m.LastAttempted.IsZero() {
		out[keyLastAttempted] = m.LastAttempted.UTC().Format(time.RFC3339Nano)
	}
	if !m.MovedToReview.IsZero() {
		out[keyMovedToReview] = m.MovedToReview.UTC().Format(time.RFC3339Nano)
	}
	for k, v := range m.Extra {
		out[k] = v
	}
	return out
}

// metadataFromMap rebuilds a Metadata from its frontmatter representation.
// Unknown keys are preserved in Extra.
func metadataFromMap(raw map[string]any) (Metadata, error) {
	var m Metadata
	for k, v := range raw {
		switch k {
		case keyID:
			s, ok := v.(string)
			if !ok {
				return Metadata{}, fmt.Errorf("id: expected string, got %T", v)
			}
			id, err := uuid.Parse(s)
			if err != nil {
				return Metadata{}, fmt.Errorf("id: %w", err)
			}
			m.ID = id
		case keyLastModified:
			t, err := toTime(v)
			if err != nil {
				return Metadata{}, fmt.Errorf("last_modified: %w", err)
			}
			m.LastModified = t
		default:
			if err := m.Merge(map[string]any{k: v}); err != nil {
				return Metadata{}, err
			}
		}
	}
	m.Difficulty = clampDifficulty(m.Difficulty)
	return m, nil
}

// encodeDocument serializes metadata and body as one frontmatter file:
//
//	---
//	<yaml metadata>
//	---
//	<body>
func encodeDocument(meta *Metadata, body string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(frontmatterDelimiter)
	buf.WriteByte('\n')

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(meta.toMap()); err != nil {
		return nil, fmt.Errorf("encoding frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("closing frontmatter encoder: %w", err)
	}

	buf.WriteString(frontmatterDelimiter)
	buf.WriteByte('\n')
	buf.WriteString(body)
	return buf.Bytes(), nil
}

// decodeDocument splits a frontmatter file into metadata and body.
// A file without a frontmatter block decodes as body-only with empty
// metadata, matching how a human-created markdown file would read.
func decodeDocument(data []byte) (Metadata, string, error) {
	text := string(data)

	if !strings.HasPrefix(text, frontmatterDelimiter+"\n") {
		return Metadata{}, text, nil
	}

	rest := text[len(frontmatterDelimiter)+1:]
	end := strings.Index(rest, "\n"+frontmatterDelimiter)
	if end < 0 {
		return Metadata{}, "", fmt.Errorf("unterminated frontmatter block")
	}

	yamlPart := rest[:end+1]
	body := rest[end+1+len(frontmatterDelimiter):]
	body = strings.TrimPrefix(body, "\n")

	var raw map[string]any
	if err := yaml.Unmarshal([]byte(yamlPart), &raw); err != nil {
		return Metadata{}, "", fmt.Errorf("decoding frontmatter: %w", err)
	}

	meta, err := metadataFromMap(raw)
	if err != nil {
		return Metadata{}, "", err
	}
	return meta, body, nil
}
