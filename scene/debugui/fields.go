package debugui

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// FieldValue is one exported field of a behavior, formatted for display.
type FieldValue struct {
	Name  string
	Value string
}

// exportedFields caches the exported field indices per struct type.
var exportedFields sync.Map

func fieldIndices(t reflect.Type) []int {
	if cached, ok := exportedFields.Load(t); ok {
		return cached.([]int)
	}
	var idx []int
	for i := range t.NumField() {
		if t.Field(i).IsExported() {
			idx = append(idx, i)
		}
	}
	exportedFields.Store(t, idx)
	return idx
}

// describeFields formats the exported fields of v, following one pointer.
func describeFields(v any) []FieldValue {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return []FieldValue{{Name: "value", Value: formatValue(val)}}
	}
	var out []FieldValue
	for _, i := range fieldIndices(val.Type()) {
		out = append(out, FieldValue{Name: val.Type().Field(i).Name, Value: formatValue(val.Field(i))})
	}
	return out
}

func formatValue(val reflect.Value) string {
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return "nil"
		}
		val = val.Elem()
	}
	switch v := val.Interface().(type) {
	case mgl64.Vec3:
		return formatVec(v)
	case float64:
		return fmt.Sprintf("%.4g", v)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprintf("%v", val.Interface())
}

func formatVec(v mgl64.Vec3) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v[0], v[1], v[2])
}
