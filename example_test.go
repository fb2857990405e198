package bimtree_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/hupe1980/bimtree"
	"github.com/hupe1980/bimtree/blobstore"
	"github.com/hupe1980/bimtree/component"
	"github.com/hupe1980/bimtree/taxonomy"
)

func exampleTaxonomy() taxonomy.Source {
	return taxonomy.MapSource(map[string]string{
		"IfcRoot":             "",
		"IfcBuildingElement":  "IfcRoot",
		"IfcWall":             "IfcBuildingElement",
		"IfcWallStandardCase": "IfcWall",
		"IfcDoor":             "IfcBuildingElement",
	})
}

// Example demonstrates ingesting a model and querying it by an abstract type.
func Example() {
	ctx := context.Background()

	db, err := bimtree.Open(ctx, bimtree.Remote(blobstore.NewMemoryStore()),
		bimtree.WithTaxonomySource(exampleTaxonomy()))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	_, err = db.Ingest(ctx, "M1", []component.Component{
		component.New("IfcWallComponent", "wall-1", "IfcWall"),
		component.New("IfcWallStandardCaseComponent", "wall-2", "IfcWallStandardCase"),
		component.New("IfcDoorComponent", "door-1", "IfcDoor"),
	})
	if err != nil {
		log.Fatal(err)
	}

	walls, _ := db.EntityGuids(ctx, bimtree.Query{EntityTypes: []string{"IfcWall"}})
	fmt.Println(walls)

	literal, _ := db.EntityGuids(ctx, bimtree.Query{EntityTypes: []string{"IfcWall"}, Literal: true})
	fmt.Println(literal)
	// Output:
	// [wall-1 wall-2]
	// [wall-1]
}

// Example_local demonstrates the file-based backend and model deletion.
func Example_local() {
	ctx := context.Background()

	dir, err := os.MkdirTemp("", "bimtree-example-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	db, err := bimtree.Open(ctx, bimtree.Local(dir))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	data := []byte(`[
		{"componentGuid": "a", "entityGuid": "e1", "entityType": "Wall", "componentType": "WallComponent"},
		{"componentGuid": "b", "entityGuid": "e1", "entityType": "Wall", "componentType": "PropertySetComponent", "name": "Pset_WallCommon"}
	]`)
	res, err := db.IngestJSON(ctx, "M1.json", data)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.Model, res.Stored)

	types, _ := db.ComponentTypes(ctx, nil)
	fmt.Println(types)

	deleted, _ := db.DeleteModel(ctx, "M1")
	fmt.Println(deleted, db.Models())
	// Output:
	// M1 2
	// [PropertySet Wall]
	// true []
}
