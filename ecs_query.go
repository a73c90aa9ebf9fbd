package voxelgi

import (
	"reflect"
)

// Queries iterate entities that carry all of the queried component types.
// A component type may be demoted to optional by passing its zero value to
// Map's optionals argument; entities lacking it then yield a nil pointer.
// The mapped function returns false to stop the iteration early.
type Query1[A any] struct{ ecs *Ecs }
type Query2[A, B any] struct{ ecs *Ecs }
type Query3[A, B, C any] struct{ ecs *Ecs }
type Query4[A, B, C, D any] struct{ ecs *Ecs }
type Query5[A, B, C, D, E any] struct{ ecs *Ecs }

func MakeQuery1[A any](cmd *Commands) Query1[A]             { return Query1[A]{ecs: cmd.app.ecs} }
func MakeQuery2[A, B any](cmd *Commands) Query2[A, B]       { return Query2[A, B]{ecs: cmd.app.ecs} }
func MakeQuery3[A, B, C any](cmd *Commands) Query3[A, B, C] { return Query3[A, B, C]{ecs: cmd.app.ecs} }
func MakeQuery4[A, B, C, D any](cmd *Commands) Query4[A, B, C, D] {
	return Query4[A, B, C, D]{ecs: cmd.app.ecs}
}
func MakeQuery5[A, B, C, D, E any](cmd *Commands) Query5[A, B, C, D, E] {
	return Query5[A, B, C, D, E]{ecs: cmd.app.ecs}
}

func (q Query1[A]) Map(m func(EntityId, *A) bool, optionals ...any) {
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		compsA, ok := column[A](q.ecs, arch, opt)
		if !ok {
			continue
		}

		for entityId, row := range arch.entities {
			if !m(entityId, at(compsA, row)) {
				return
			}
		}
	}
}

func (q Query2[A, B]) Map(m func(EntityId, *A, *B) bool, optionals ...any) {
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		compsA, okA := column[A](q.ecs, arch, opt)
		compsB, okB := column[B](q.ecs, arch, opt)
		if !okA || !okB {
			continue
		}

		for entityId, row := range arch.entities {
			if !m(entityId, at(compsA, row), at(compsB, row)) {
				return
			}
		}
	}
}

func (q Query3[A, B, C]) Map(m func(EntityId, *A, *B, *C) bool, optionals ...any) {
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		compsA, okA := column[A](q.ecs, arch, opt)
		compsB, okB := column[B](q.ecs, arch, opt)
		compsC, okC := column[C](q.ecs, arch, opt)
		if !okA || !okB || !okC {
			continue
		}

		for entityId, row := range arch.entities {
			if !m(entityId, at(compsA, row), at(compsB, row), at(compsC, row)) {
				return
			}
		}
	}
}

func (q Query4[A, B, C, D]) Map(m func(EntityId, *A, *B, *C, *D) bool, optionals ...any) {
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		compsA, okA := column[A](q.ecs, arch, opt)
		compsB, okB := column[B](q.ecs, arch, opt)
		compsC, okC := column[C](q.ecs, arch, opt)
		compsD, okD := column[D](q.ecs, arch, opt)
		if !okA || !okB || !okC || !okD {
			continue
		}

		for entityId, row := range arch.entities {
			if !m(entityId, at(compsA, row), at(compsB, row), at(compsC, row), at(compsD, row)) {
				return
			}
		}
	}
}

func (q Query5[A, B, C, D, E]) Map(m func(EntityId, *A, *B, *C, *D, *E) bool, optionals ...any) {
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		compsA, okA := column[A](q.ecs, arch, opt)
		compsB, okB := column[B](q.ecs, arch, opt)
		compsC, okC := column[C](q.ecs, arch, opt)
		compsD, okD := column[D](q.ecs, arch, opt)
		compsE, okE := column[E](q.ecs, arch, opt)
		if !okA || !okB || !okC || !okD || !okE {
			continue
		}

		for entityId, row := range arch.entities {
			if !m(entityId, at(compsA, row), at(compsB, row), at(compsC, row), at(compsD, row), at(compsE, row)) {
				return
			}
		}
	}
}

// column resolves the typed component slice for T in the archetype.
// A nil slice with ok=true means T was optional and is absent here.
func column[T any](ecs *Ecs, arch *archetype, opt set[componentId]) (comps []T, ok bool) {
	id := componentIdOf[T](ecs)
	if data, present := arch.componentData[id]; present {
		return data.([]T), true
	}
	if _, optional := opt[id]; optional {
		return nil, true
	}
	return nil, false
}

func at[T any](comps []T, r row) *T {
	if comps == nil {
		return nil
	}
	return &comps[r]
}

func componentIdOf[T any](ecs *Ecs) componentId {
	var zero T
	return ecs.getComponentId(reflect.TypeOf(zero))
}

func identifyOptionals(ecs *Ecs, components ...any) set[componentId] {
	res := make(set[componentId])
	for _, c := range components {
		res[ecs.getComponentId(reflect.TypeOf(c))] = struct{}{}
	}

	return res
}
