package sandbox

import (
	"fmt"
	"reflect"

	"github.com/go-python/gpython/py"
)

// toPython marshals a host Go value into a gpython object via a fixed
// type switch with a reflect-driven fallback for slices, arrays, and
// maps of unlisted element types.
func toPython(v any) (py.Object, error) {
	switch val := v.(type) {
	case nil:
		return py.None, nil
	case py.Object:
		return val, nil
	case bool:
		return py.Bool(val), nil
	case string:
		return py.String(val), nil
	case int:
		return py.Int(val), nil
	case int64:
		return py.Int(val), nil
	case float64:
		return py.Float(val), nil
	case []any:
		items := make(py.List, len(val))
		for i, e := range val {
			pv, err := toPython(e)
			if err != nil {
				return nil, err
			}
			items[i] = pv
		}
		return &items, nil
	case map[string]any:
		dict := py.NewDict()
		for k, e := range val {
			pv, err := toPython(e)
			if err != nil {
				return nil, err
			}
			dict.Dict[py.String(k)] = pv
		}
		return dict, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make(py.List, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			pv, err := toPython(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			items[i] = pv
		}
		return &items, nil
	case reflect.Map:
		dict := py.NewDict()
		iter := rv.MapRange()
		for iter.Next() {
			pv, err := toPython(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			dict.Dict[py.String(fmt.Sprint(iter.Key().Interface()))] = pv
		}
		return dict, nil
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return py.None, nil
		}
		return toPython(rv.Elem().Interface())
	}

	return nil, fmt.Errorf("sandbox: unsupported type for python conversion: %T", v)
}

// fromPython converts a gpython object back into a native Go value,
// used by ReadFinal to read __final_result__. ok is false for py.None
// or the "unset" sentinel the caller checks separately.
func fromPython(obj py.Object) (value any, ok bool) {
	switch v := obj.(type) {
	case nil:
		return nil, false
	case py.NoneType:
		return nil, false
	case py.Bool:
		return bool(v), true
	case py.Int:
		return int64(v), true
	case py.Float:
		return float64(v), true
	case py.String:
		return string(v), true
	case *py.List:
		out := make([]any, len(*v))
		for i, e := range *v {
			out[i], _ = fromPython(e)
		}
		return out, true
	case *py.Tuple:
		out := make([]any, len(*v))
		for i, e := range *v {
			out[i], _ = fromPython(e)
		}
		return out, true
	case *py.Dict:
		out := make(map[string]any, len(v.Dict))
		for k, val := range v.Dict {
			key := fmt.Sprintf("%v", k)
			out[key], _ = fromPython(val)
		}
		return out, true
	default:
		return fmt.Sprintf("%v", obj), true
	}
}
