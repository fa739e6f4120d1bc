// Package index talks to the remote retrieval-index service (an
// AnythingLLM-compatible REST API) that provides vector search over
// vault documents.
//
// The vault is the source of truth; the index is a best-effort derived
// view. Every operation here may fail without affecting the durability of
// the document write that triggered it: callers either treat errors as
// soft warnings or hand work to [Worker], which retries in the background.
//
// Two push policies exist:
//
//   - Full embedding ([Gateway.PushFull]): the whole document body is
//     uploaded and embedded. Used for source material like textbooks.
//   - Index-only ([Gateway.PushIndexOnly]): a lightweight pointer document
//     (title, metadata summary, back-reference path and stable document id)
//     is uploaded instead. The default for validated homework, cards, and
//     review items; it keeps the index store's size proportional to
//     document count, not content volume, and avoids duplicating the
//     authoritative copy.
//
// Workspaces are named deterministically from (owner, subject, purpose) by
// [WorkspaceSlug], which doubles as the idempotency key for creation.
package index
