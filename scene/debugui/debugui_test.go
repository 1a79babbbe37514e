package debugui

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/plus3/objectlab/physics"
	"github.com/plus3/objectlab/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*scene.Registry, *scene.Executor) {
	t.Helper()
	registry := scene.NewRegistry(physics.NewWorld(physics.DefaultConfig()), scene.DefaultRegistryConfig())
	exec := scene.NewExecutor(registry)
	res := exec.Execute(scene.CreateObject{Objects: []scene.ObjectSpec{
		{ID: "ball", Kind: scene.KindSphere, Dimensions: scene.Dimensions{Radius: 0.5}, MaterialTag: "rubber", Position: mgl64.Vec3{0, 3, 0}},
		{ID: "crate", Kind: scene.KindBox, Dimensions: scene.Dimensions{Width: 1, Height: 1, Depth: 1}, MaterialTag: "wood", Position: mgl64.Vec3{2, 0.5, 0}},
		{ID: "post", Kind: scene.KindCylinder, Dimensions: scene.Dimensions{Radius: 0.2, Height: 2}, MaterialTag: "steel", Position: mgl64.Vec3{-2, 1, 0}},
	}})
	require.NoError(t, res.Err)
	return registry, exec
}

func TestObjectRows(t *testing.T) {
	registry, exec := newTestRegistry(t)
	require.NoError(t, exec.Execute(scene.KeepBouncing{Target: "crate", Speed: 2}).Err)

	rows := describeObjects(registry, nil)
	require.Len(t, rows, 3)
	assert.Equal(t, "ball", rows[0].Name)
	assert.Equal(t, "sphere", rows[0].Kind)
	assert.Equal(t, []string{"keep_bouncing"}, rows[1].Behaviors)

	t.Run("sort by height descending", func(t *testing.T) {
		sortObjects(rows, 5, false)
		assert.Equal(t, []string{"ball", "post", "crate"}, names(rows))
	})

	t.Run("sort by name", func(t *testing.T) {
		sortObjects(rows, 1, true)
		assert.Equal(t, []string{"ball", "crate", "post"}, names(rows))
	})

	t.Run("filter", func(t *testing.T) {
		assert.Len(t, filterObjects(rows, ""), 3)
		assert.Equal(t, []string{"post"}, names(filterObjects(rows, "STEEL")))
		assert.Equal(t, []string{"crate"}, names(filterObjects(rows, "bouncing")))
		assert.Empty(t, filterObjects(rows, "nothing"))
	})
}

func TestSortContacts(t *testing.T) {
	table := physics.NewContactMaterialTable()
	table.Set("rubber", "ground", physics.ContactMaterial{Restitution: 0.85, Friction: 0.9})
	table.Set("wood", "ground", physics.ContactMaterial{Restitution: 0.4, Friction: 0.6})
	table.Set("ice", "ground", physics.ContactMaterial{Restitution: 0.1, Friction: 0.02})
	entries := table.Entries()

	sortContacts(entries, 2, false)
	assert.Equal(t, 0.85, entries[0].Material.Restitution)
	assert.Equal(t, 0.1, entries[2].Material.Restitution)

	sortContacts(entries, 3, true)
	assert.Equal(t, 0.02, entries[0].Material.Friction)
}

func TestDescribeFields(t *testing.T) {
	rotate, err := scene.NewRotate(mgl64.Vec3{0, 2, 0}, 1.5)
	require.NoError(t, err)

	fields := describeFields(rotate)
	assert.Equal(t, []FieldValue{
		{Name: "Axis", Value: "(0.000, 1.000, 0.000)"},
		{Name: "Speed", Value: "1.5"},
		{Name: "Angle", Value: "0"},
	}, fields)

	bouncer, err := scene.NewBouncer(3)
	require.NoError(t, err)
	fields = describeFields(bouncer)
	require.Len(t, fields, 4)
	assert.Equal(t, FieldValue{Name: "Bounces", Value: "0"}, fields[3])

	assert.Nil(t, describeFields((*scene.Force)(nil)))
}

func TestFrameTimer(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	timer := &FrameTimer{lastFrameTime: start, now: func() time.Time { return now }}

	now = now.Add(20 * time.Millisecond)
	assert.InDelta(t, 0.02, timer.GetDeltaTime(), 1e-6)
	now = now.Add(10 * time.Millisecond)
	assert.InDelta(t, 0.01, timer.GetDeltaTime(), 1e-6)

	stats := NewPerformanceStatsWindow(4)
	stats.record(0.01)
	stats.record(0.03)
	assert.InDelta(t, 10, stats.average(), 1e-4)
}

func names(rows []ObjectInfo) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Name
	}
	return out
}
