// Package taxonomy loads a single-inheritance class forest (such as the IFC4
// entity schema) and answers descendant-closure and ancestry queries over it.
//
// A Hierarchy is immutable after Load and safe for concurrent use. Every walk
// is iterative and tracks visited classes, so malformed cyclic input cannot
// loop or exhaust the stack.
package taxonomy
