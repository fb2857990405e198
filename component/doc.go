// Package component defines the record model shared by the store, the memory
// tree and the query layer.
//
// A Component carries four well-known optional fields (componentGuid,
// componentType, entityGuid, entityType) and an opaque payload that is
// preserved verbatim across store and retrieve.
package component
