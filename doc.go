// Package bimtree provides an embeddable query engine over building-model
// components.
//
// Ingested components are persisted one record per file under a per-model
// partition, then indexed into an in-memory tree that answers filtered lookups
// across every loaded model. Type filters are interpreted against a class
// hierarchy: asking for an abstract type includes every concrete subtype that
// occurs in a model.
//
// # Quick Start
//
// Local mode:
//
//	ctx := context.Background()
//	db, _ := bimtree.Open(ctx, bimtree.Local("./data"),
//	    bimtree.WithTaxonomySource(taxonomy.FileSource("ifc4.json")))
//
// Cloud mode:
//
//	s3Store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("models/"))
//	db, _ := bimtree.Open(ctx, bimtree.Remote(s3Store), bimtree.WithRecordCache(64<<20))
//
// # Ingest
//
// An ingestion collaborator hands the engine a flat list of records per model:
//
//	wall := component.New("IfcWallComponent", entityGuid, "IfcWall")
//	_ = wall.Set("height", 2.7)
//	res, _ := db.Ingest(ctx, "M1", []component.Component{wall})
//
// Component guids are derived from (componentType, entityGuid), so ingesting
// the same source twice overwrites rather than duplicates. Ingest refreshes the
// memory tree unless WithoutAutoRefresh is set.
//
// # Query
//
//	guids, _ := db.EntityGuidsByModel(ctx, bimtree.Query{
//	    EntityTypes: []string{"IfcBuildingElement"}, // expands to IfcWall, IfcDoor, ...
//	})
//	comps, owner, _ := db.Components(ctx, bimtree.Query{EntityGuids: []string{"e1"}})
//
// Every list result is sorted and de-duplicated. Unknown models, types and ids
// yield empty results, not errors.
//
// # Consistency
//
// A refresh rebuilds every index from the store into a new snapshot and
// publishes it with one atomic swap. Queries always observe either the old or
// the new snapshot.
package bimtree
