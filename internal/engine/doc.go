// Package engine implements the entity verbs: save, load, list and remove.
//
// Each verb composes statements from queryir, runs them through a
// store.Executor and maps rows back to entities with the entity codec.
// MySQL has no RETURNING clause, so every write is followed by a reload.
//
// Save:
//   - id present: update by id; no matching row falls back to insert.
//   - no id, no upsert$: insert with a new id, reload by id.
//   - no id, upsert$: in one transaction, update where the key fields
//     match, insert where no row matches them, reload by them.
//
// Load and List lift the query's filter fields to a where clause and apply
// sort$, limit$ and skip$. native$ runs verbatim SQL instead.
//
// Remove deletes the first match, or with all$ every match in a single
// delete by id. load$ returns the deleted entity.
//
// Errors from the store propagate wrapped in *OperationError. Nothing is
// retried; only the upsert transaction rolls back.
package engine
