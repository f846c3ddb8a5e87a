// Package entity defines entity descriptors and instances and the codec that
// maps them to and from MySQL rows.
//
// A Descriptor names an entity kind (zone/base/name) and its table
// (base_name). An Entity is an ordered field map plus the `id` field. The
// Codec turns structured field values into canonical JSON text on write and
// back on read, in either inference or tagged mode (see Codec).
//
// Key constraints:
//   - Descriptors are never mutated after construction
//   - Stored JSON has sorted keys, so equal values produce equal column
//     text; strings are never rewritten
//   - A nil row decodes to a nil entity, never an error
package entity
