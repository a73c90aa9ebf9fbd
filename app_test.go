package voxelgi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockResource struct {
	name string
}

func TestApp_addResources(t *testing.T) {
	app := NewApp()
	res := &mockResource{name: "one"}
	app.addResources(res)

	require.Panics(t, func() {
		app.addResources(&mockResource{name: "dup"})
	}, "registering the same resource type twice should panic")

	require.Panics(t, func() {
		app.addResources(mockResource{name: "value"})
	}, "non-pointer resources should panic")
}

func TestApp_systemDependencyInjection(t *testing.T) {
	app := NewApp()
	app.addResources(&mockResource{name: "injected"})

	var got string
	app.UseSystem(System(func(res *mockResource, cmd *Commands) {
		got = res.name
	}).InStage(Update))

	app.RunFrame()
	assert.Equal(t, "injected", got)
}

func TestApp_unresolvableDependencyPanics(t *testing.T) {
	app := NewApp()
	app.UseSystem(System(func(res *mockResource) {}).InStage(Update))

	require.Panics(t, func() {
		app.RunFrame()
	})
}

func TestApp_commandsFlushBetweenStages(t *testing.T) {
	type marker struct{ n int }

	app := NewApp()

	var spawned EntityId
	app.UseSystem(System(func(cmd *Commands) {
		spawned = cmd.AddEntity(marker{n: 5})
	}).InStage(Update))

	found := 0
	app.UseSystem(System(func(cmd *Commands) {
		MakeQuery1[marker](cmd).Map(func(eid EntityId, m *marker) bool {
			if eid == spawned && m.n == 5 {
				found++
			}
			return true
		})
	}).InStage(PostUpdate))

	app.RunFrame()
	assert.Equal(t, 1, found, "entity added in Update should be visible in PostUpdate")
}

func TestApp_removeEntity(t *testing.T) {
	type marker struct{}

	app := NewApp()
	cmd := app.Commands()
	eid := cmd.AddEntity(marker{})
	app.FlushCommands()

	cmd.RemoveEntity(eid)
	app.FlushCommands()

	assert.False(t, app.ecs.hasEntity(eid))
	assert.Nil(t, cmd.GetAllComponents(eid))
}

func TestApp_quitStopsRun(t *testing.T) {
	app := NewApp()

	frames := 0
	app.UseSystem(System(func(cmd *Commands) {
		frames++
		if frames == 3 {
			cmd.Quit()
		}
	}).InStage(Update))

	app.Run()
	assert.Equal(t, 3, frames)
}

func TestApp_useStageOrdering(t *testing.T) {
	custom := Stage{Name: "Custom"}

	app := NewApp()
	app.UseStage(custom, AfterStage(Update))

	var order []string
	record := func(name string) systemScheduleBuilder {
		return System(func(cmd *Commands) {
			order = append(order, name)
		})
	}
	app.UseSystem(record("update").InStage(Update))
	app.UseSystem(record("custom").InStage(custom))
	app.UseSystem(record("post").InStage(PostUpdate))

	app.RunFrame()
	assert.Equal(t, []string{"update", "custom", "post"}, order)
}
