package debugui

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/objectlab/physics"
)

type ContactTableCache struct {
	entries       []physics.ContactEntry
	sortColumn    int
	sortAscending bool
}

func NewContactTableWindow() ContactTableWindow {
	return ContactTableWindow{
		cache: &ContactTableCache{sortAscending: true},
	}
}

func (ct *ContactTableWindow) Render(world *physics.World) {
	if !imgui.BeginV("Contact Materials", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	def := world.DefaultMaterial()
	imgui.Text(fmt.Sprintf("Ground tag: %s", world.Ground().Tag))
	imgui.Text(fmt.Sprintf("Default: restitution %.2f friction %.2f", def.Restitution, def.Friction))
	imgui.Separator()

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSortable | imgui.TableFlagsScrollY
	if imgui.BeginTableV("ContactTable", 4, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("Tag A")
		imgui.TableSetupColumn("Tag B")
		imgui.TableSetupColumn("Restitution")
		imgui.TableSetupColumn("Friction")
		imgui.TableHeadersRow()

		sortSpecs := imgui.TableGetSortSpecs()
		if sortSpecs.SpecsDirty() && sortSpecs.SpecsCount() > 0 {
			spec := sortSpecs.Specs()
			ct.cache.sortColumn = int(spec.ColumnIndex())
			ct.cache.sortAscending = spec.SortDirection() == imgui.SortDirectionAscending
			sortSpecs.SetSpecsDirty(false)
		}

		ct.cache.entries = world.Materials().Entries()
		sortContacts(ct.cache.entries, ct.cache.sortColumn, ct.cache.sortAscending)

		for _, e := range ct.cache.entries {
			imgui.TableNextRow()
			imgui.TableNextColumn()
			imgui.Text(e.A)
			imgui.TableNextColumn()
			imgui.Text(e.B)
			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%.3f", e.Material.Restitution))
			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%.3f", e.Material.Friction))
		}

		imgui.EndTable()
	}

	imgui.Text(fmt.Sprintf("Total: %d pairs", len(ct.cache.entries)))
	imgui.End()
}

func sortContacts(entries []physics.ContactEntry, column int, ascending bool) {
	slices.SortStableFunc(entries, func(a, b physics.ContactEntry) int {
		var c int
		switch column {
		case 1:
			c = cmp.Compare(a.B, b.B)
		case 2:
			c = cmp.Compare(a.Material.Restitution, b.Material.Restitution)
		case 3:
			c = cmp.Compare(a.Material.Friction, b.Material.Friction)
		default:
			c = cmp.Or(cmp.Compare(a.A, b.A), cmp.Compare(a.B, b.B))
		}
		if !ascending {
			return -c
		}
		return c
	})
}
