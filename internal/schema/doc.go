// Package schema defines the remote record types exchanged with the badwave
// cloud store, plus identifier normalization.
//
// Remote payloads arrive loosely typed: identifiers may be numbers, strings,
// or strings carrying a floating-point artifact ("5.0") from transport
// round-tripping. Every id is normalized to its canonical string form with
// NormalizeID before it is used as a primary or foreign key in the embedded
// store.
//
// Record fields mirror the remote schema's snake_case columns. Optional
// fields are pointers; validation and defaulting happen at the sync-engine
// boundary rather than being trusted throughout.
package schema
