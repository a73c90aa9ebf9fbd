package voxelgi

import (
	"testing"
)

func TestQuery_Map(t *testing.T) {
	type Comp1 struct{ a int }
	type Comp2 struct{ b float32 }
	type Comp3 struct{}

	ecs := MakeEcs()
	ecs.addEntity(Comp1{a: 1})                                 // comp1 only: no match
	id2 := ecs.addEntity(Comp1{a: 2}, Comp2{b: 1.37})          // both: match
	id3 := ecs.addEntity(Comp1{a: 3}, Comp2{b: 4.20}, Comp3{}) // both plus extra: match
	ecs.addEntity(Comp1{a: 4}, Comp3{})                        // comp1 plus extra: no match
	ecs.addEntity(Comp2{b: 3.14})                              // comp2 only: no match

	query := Query2[Comp1, Comp2]{ecs: &ecs}

	got := make(map[EntityId]Comp1)
	query.Map(func(entityId EntityId, c1 *Comp1, c2 *Comp2) bool {
		got[entityId] = *c1
		return true
	})

	if len(got) != 2 {
		t.Fatalf("Expected 2 matching entities, got %v", len(got))
	}
	if got[id2].a != 2 {
		t.Errorf("Unexpected Comp1 for entity %v: %v", id2, got[id2])
	}
	if got[id3].a != 3 {
		t.Errorf("Unexpected Comp1 for entity %v: %v", id3, got[id3])
	}
}

func TestQuery_MapOptional(t *testing.T) {
	type Required struct{ a int }
	type Optional struct{ b int }

	ecs := MakeEcs()
	withOpt := ecs.addEntity(Required{a: 1}, Optional{b: 10})
	withoutOpt := ecs.addEntity(Required{a: 2})

	query := Query2[Required, Optional]{ecs: &ecs}

	seen := make(map[EntityId]*Optional)
	query.Map(func(entityId EntityId, req *Required, opt *Optional) bool {
		seen[entityId] = opt
		return true
	}, Optional{})

	if len(seen) != 2 {
		t.Fatalf("Optional component should not filter entities, got %v matches", len(seen))
	}
	if seen[withOpt] == nil || seen[withOpt].b != 10 {
		t.Errorf("Entity with the optional component should yield its value")
	}
	if seen[withoutOpt] != nil {
		t.Errorf("Entity lacking the optional component should yield nil, got %v", seen[withoutOpt])
	}
}

func TestQuery_MapEarlyStop(t *testing.T) {
	type Comp struct{ a int }

	ecs := MakeEcs()
	ecs.addEntity(Comp{a: 1})
	ecs.addEntity(Comp{a: 2})
	ecs.addEntity(Comp{a: 3})

	count := 0
	query := Query1[Comp]{ecs: &ecs}
	query.Map(func(EntityId, *Comp) bool {
		count++
		return false
	})

	if count != 1 {
		t.Errorf("Returning false should stop the iteration, visited %v", count)
	}
}
