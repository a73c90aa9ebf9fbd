package voxelgi

import (
	"testing"
)

func TestEcs_addEntity(t *testing.T) {
	type Comp1 struct{ a int }
	type Comp2 struct{ b float32 }

	ecs := MakeEcs()
	id1 := ecs.addEntity(Comp1{a: 1})
	id2 := ecs.addEntity(Comp1{a: 2}, Comp2{b: 3.14})

	if id1 == id2 {
		t.Errorf("Entity ids should be unique, got %v twice", id1)
	}
	if !ecs.hasEntity(id1) || !ecs.hasEntity(id2) {
		t.Errorf("Both entities should be registered")
	}
	if len(ecs.archetypes) != 2 {
		t.Errorf("Expected 2 archetypes, got %v", len(ecs.archetypes))
	}
}

func TestEcs_removeEntity(t *testing.T) {
	type Comp1 struct{ a int }

	ecs := MakeEcs()
	id1 := ecs.addEntity(Comp1{a: 1})
	id2 := ecs.addEntity(Comp1{a: 2})

	ecs.removeEntity(id1)

	if ecs.hasEntity(id1) {
		t.Errorf("Removed entity should be gone")
	}
	if !ecs.hasEntity(id2) {
		t.Errorf("Sibling entity should survive removal")
	}
}

func TestEcs_addComponents(t *testing.T) {
	type Comp1 struct{ a int }
	type Comp2 struct{ b float32 }

	ecs := MakeEcs()
	id := ecs.addEntity(Comp1{a: 7})
	ecs.addComponents(id, Comp2{b: 1.5})

	found := false
	query := Query2[Comp1, Comp2]{ecs: &ecs}
	query.Map(func(entityId EntityId, c1 *Comp1, c2 *Comp2) bool {
		if entityId == id {
			found = true
			if c1.a != 7 {
				t.Errorf("Component data should survive the archetype move, got %v", c1.a)
			}
			if c2.b != 1.5 {
				t.Errorf("Added component should carry its value, got %v", c2.b)
			}
		}
		return true
	})

	if !found {
		t.Errorf("Entity should land in the combined archetype")
	}
}

func TestEcs_componentMutationSticks(t *testing.T) {
	type Counter struct{ n int }

	ecs := MakeEcs()
	id := ecs.addEntity(Counter{n: 0})

	query := Query1[Counter]{ecs: &ecs}
	query.Map(func(_ EntityId, c *Counter) bool {
		c.n = 42
		return true
	})

	query.Map(func(entityId EntityId, c *Counter) bool {
		if entityId == id && c.n != 42 {
			t.Errorf("Mutation through the query pointer should persist, got %v", c.n)
		}
		return true
	})
}
