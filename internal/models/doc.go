// Package models defines the domain records for the trax catalog and ledger.
//
// The package contains three persisted record types and their document
// wrappers:
//   - [Track] : one indexed media item with parsed title/artist/format/size
//   - [User] : per-user points balance and usage counters
//   - [MissingRequest] : a recorded unresolved search query
//
// Records are fixed-shape structs serialized as JSON documents by the storage
// layer. Optional state (a user who has never claimed a grant) is an explicit
// pointer field, never a missing key.
package models
