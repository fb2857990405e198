// Package memtree implements the multi-index memory tree: a disposable,
// fully rebuildable in-memory view of every stored model.
//
// Each model is indexed into a ModelIndex holding five indexes:
//
//   - byEntity: entity guid -> component guids
//   - byComponentType: component type (suffix stripped) -> component guids
//   - byEntityType: entity type -> entity guids
//   - entityTypeOf: entity guid -> entity type (first writer wins)
//   - byComponentGuid: component guid -> record
//
// Identifiers are interned to ordinals in ascending lexicographic order and
// posting lists are Roaring bitmaps, so iterating a bitmap yields identifiers
// already sorted.
//
// # Consistency
//
// Refresh builds a complete new Snapshot and publishes it with a single atomic
// pointer swap. Readers holding a Snapshot never observe a partial rebuild and
// never take a lock.
package memtree
