package debugui

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/objectlab/scene"
)

type ObjectInfo struct {
	ID        scene.ObjectID
	Name      string
	Kind      string
	Material  string
	Authority string
	Behaviors []string
	Height    float64
}

type ObjectBrowserCache struct {
	objects       []ObjectInfo
	sortColumn    int
	sortAscending bool
}

func NewObjectBrowserWindow(maxRowsPerPage int) ObjectBrowserWindow {
	return ObjectBrowserWindow{
		cache: &ObjectBrowserCache{
			sortColumn:    0,
			sortAscending: true,
		},
		maxRowsPerPage: maxRowsPerPage,
	}
}

func (ob *ObjectBrowserWindow) Render(registry *scene.Registry) {
	if !imgui.BeginV("Object Browser", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	ob.rebuildCache(registry)

	imgui.InputTextWithHint("##search", "Search...", &ob.filterText, imgui.InputTextFlagsNone, nil)
	imgui.SameLine()
	if imgui.Button("Clear Filter") {
		ob.filterText = ""
	}

	filtered := filterObjects(ob.cache.objects, ob.filterText)

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSortable | imgui.TableFlagsScrollY
	if imgui.BeginTableV("ObjectTable", 6, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("ID")
		imgui.TableSetupColumn("Name")
		imgui.TableSetupColumn("Kind")
		imgui.TableSetupColumn("Material")
		imgui.TableSetupColumn("Authority")
		imgui.TableSetupColumn("Height")
		imgui.TableHeadersRow()

		sortSpecs := imgui.TableGetSortSpecs()
		if sortSpecs.SpecsDirty() && sortSpecs.SpecsCount() > 0 {
			spec := sortSpecs.Specs()
			ob.cache.sortColumn = int(spec.ColumnIndex())
			ob.cache.sortAscending = spec.SortDirection() == imgui.SortDirectionAscending
			sortSpecs.SetSpecsDirty(false)
		}

		start := min(ob.currentPage*ob.maxRowsPerPage, len(filtered))
		end := min(start+ob.maxRowsPerPage, len(filtered))
		for _, obj := range filtered[start:end] {
			imgui.TableNextRow()

			imgui.TableNextColumn()
			if imgui.SelectableBoolV(obj.ID.String(), ob.selected == obj.ID, imgui.SelectableFlagsSpanAllColumns, imgui.NewVec2(0, 0)) {
				ob.selected = obj.ID
			}
			imgui.TableNextColumn()
			imgui.Text(obj.Name)
			imgui.TableNextColumn()
			imgui.Text(obj.Kind)
			imgui.TableNextColumn()
			imgui.Text(obj.Material)
			imgui.TableNextColumn()
			imgui.Text(obj.Authority)
			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%.3f", obj.Height))
		}

		imgui.EndTable()
	}

	if len(filtered) > ob.maxRowsPerPage {
		totalPages := (len(filtered) + ob.maxRowsPerPage - 1) / ob.maxRowsPerPage
		imgui.Text(fmt.Sprintf("Page %d / %d (%d objects)", ob.currentPage+1, totalPages, len(filtered)))
		imgui.SameLine()
		if imgui.Button("Prev") && ob.currentPage > 0 {
			ob.currentPage--
		}
		imgui.SameLine()
		if imgui.Button("Next") && ob.currentPage < totalPages-1 {
			ob.currentPage++
		}
	} else {
		ob.currentPage = 0
		imgui.Text(fmt.Sprintf("Total: %d objects", len(filtered)))
	}

	imgui.End()
}

// rebuildCache snapshots the registry. Heights change every step, so the rows are rebuilt each frame.
func (ob *ObjectBrowserWindow) rebuildCache(registry *scene.Registry) {
	ob.cache.objects = describeObjects(registry, ob.cache.objects[:0])
	sortObjects(ob.cache.objects, ob.cache.sortColumn, ob.cache.sortAscending)
	if _, ok := registry.Get(ob.selected); !ok {
		ob.selected = 0
	}
}

func (ob *ObjectBrowserWindow) Selected() scene.ObjectID {
	return ob.selected
}

func describeObjects(registry *scene.Registry, out []ObjectInfo) []ObjectInfo {
	for obj := range registry.All() {
		var behaviors []string
		for _, b := range obj.Behaviors() {
			behaviors = append(behaviors, b.Kind().String())
		}
		out = append(out, ObjectInfo{
			ID:        obj.ID(),
			Name:      obj.ExternalID(),
			Kind:      obj.Kind().String(),
			Material:  obj.MaterialTag(),
			Authority: obj.Authority().String(),
			Behaviors: behaviors,
			Height:    obj.Visual.Position[1],
		})
	}
	return out
}

func sortObjects(objects []ObjectInfo, column int, ascending bool) {
	slices.SortStableFunc(objects, func(a, b ObjectInfo) int {
		var c int
		switch column {
		case 1:
			c = cmp.Compare(a.Name, b.Name)
		case 2:
			c = cmp.Compare(a.Kind, b.Kind)
		case 3:
			c = cmp.Compare(a.Material, b.Material)
		case 4:
			c = cmp.Compare(a.Authority, b.Authority)
		case 5:
			c = cmp.Compare(a.Height, b.Height)
		}
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if !ascending {
			return -c
		}
		return c
	})
}

// filterObjects keeps rows whose id, name, kind, material or behaviors contain text, ignoring case.
func filterObjects(objects []ObjectInfo, text string) []ObjectInfo {
	if text == "" {
		return objects
	}
	needle := strings.ToLower(text)
	filtered := make([]ObjectInfo, 0, len(objects))
	for _, obj := range objects {
		haystack := strings.ToLower(strings.Join(append([]string{obj.ID.String(), obj.Name, obj.Kind, obj.Material}, obj.Behaviors...), " "))
		if strings.Contains(haystack, needle) {
			filtered = append(filtered, obj)
		}
	}
	return filtered
}
