// Package store persists component records, one blob per record, partitioned
// by model.
//
// Layout:
//
//	<model>/<entityGuid>_<componentGuid>.json
//
// "unknown" stands in for a missing id. The store is the source of truth; the
// memory tree is rebuilt from it on demand.
package store
