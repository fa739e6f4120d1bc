// Package vault implements the validated-document store: a filesystem
// hierarchy of markdown documents with YAML frontmatter metadata, organized
// as {root}/{owner}/{subject}/{category}/{slug}.md.
//
// The vault is the source of truth. Every document embeds its metadata and
// body in one human-readable file that remains legible without the
// application. The retrieval index (package index) is a best-effort derived
// view and never participates in vault durability.
//
// Key operations:
//
//   - Document lifecycle: [Store.Save], [Store.Read], [Store.UpdateMetadata],
//     [Store.UpdateContent], [Store.Delete]
//   - Queries: [Store.ListByCategory], [Store.FindLowestAccuracy],
//     [Store.KnowledgeCards], [Store.Statistics]
//   - Lifecycle transitions: [Store.MoveToReview]
//
// # Concurrency
//
// Writes to the same document are serialized through a per-path mutex plus
// a cross-process flock on a sidecar lock file. Every metadata update is a
// full read-modify-write under that lock, so concurrent partial updates
// with disjoint keys both survive. File writes are atomic
// (temp file + rename); a crash never leaves a partial document.
package vault
