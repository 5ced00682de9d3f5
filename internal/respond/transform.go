package respond

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Serializable lets a value opt into custom serialization: the transformer
// calls Serialize and transforms the result instead of reflecting over the
// value's fields.
type Serializable interface {
	Serialize() any
}

// Page is a paginated collection. The transformer unwraps it into
// {data, meta: {pagination: {currentPage, perPage, total}}}; the envelope
// builder hoists the pagination block into the outer meta.
type Page struct {
	Data        any
	CurrentPage int
	PerPage     int
	Total       int
}

func (p *Page) pagination() map[string]any {
	return map[string]any{
		"currentPage": p.CurrentPage,
		"perPage":     p.PerPage,
		"total":       p.Total,
	}
}

// Transformer recursively rewrites values for the wire: mapping keys become
// camelCase, timestamps become integer microseconds since the Unix epoch,
// enums collapse to their value or name, and unrecognized objects fall back
// to field reflection rather than failing.
type Transformer struct {
	keys *KeyCache
}

func NewTransformer(cache *KeyCache) *Transformer {
	return &Transformer{keys: cache}
}

var timeType = reflect.TypeOf(time.Time{})

func (tr *Transformer) Transform(v any) any {
	if v == nil {
		return nil
	}

	switch x := v.(type) {
	case time.Time:
		return unixMicro(x)
	case *time.Time:
		if x == nil {
			return nil
		}
		return unixMicro(*x)
	case Page:
		return tr.Transform(&x)
	case *Page:
		if x == nil {
			return nil
		}
		return map[string]any{
			"data": tr.Transform(x.Data),
			"meta": map[string]any{"pagination": x.pagination()},
		}
	case Serializable:
		return tr.Transform(x.Serialize())
	case []byte:
		return x
	case string, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return x
	}

	return tr.transformReflect(reflect.ValueOf(v))
}

func (tr *Transformer) transformReflect(rv reflect.Value) any {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return tr.Transform(rv.Elem().Interface())

	case reflect.Map:
		return tr.transformMap(rv)

	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = tr.Transform(rv.Index(i).Interface())
		}
		return out

	case reflect.Struct:
		if rv.Type() == timeType {
			return unixMicro(rv.Interface().(time.Time))
		}
		return tr.transformStruct(rv)

	case reflect.String:
		// Value-carrying string enum: emit the underlying value.
		return rv.String()

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// A defined integer type with a String method is a name-only enum:
		// emit the symbolic name. Otherwise emit the underlying value.
		if s, ok := rv.Interface().(fmt.Stringer); ok && rv.Type() != reflect.TypeOf(time.Duration(0)) {
			return s.String()
		}
		return rv.Int()

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if s, ok := rv.Interface().(fmt.Stringer); ok {
			return s.String()
		}
		return rv.Uint()

	case reflect.Float32, reflect.Float64:
		return rv.Float()

	case reflect.Bool:
		return rv.Bool()

	default:
		// Fail closed: emit something serializable instead of raising.
		return fmt.Sprint(rv.Interface())
	}
}

func (tr *Transformer) transformMap(rv reflect.Value) map[string]any {
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key()
		var key string
		if k.Kind() == reflect.String {
			key = tr.keys.Camel(k.String())
		} else {
			// Numeric and other non-string keys pass through untransformed.
			key = fmt.Sprint(k.Interface())
		}
		out[key] = tr.Transform(iter.Value().Interface())
	}
	return out
}

func (tr *Transformer) transformStruct(rv reflect.Value) map[string]any {
	rt := rv.Type()
	out := make(map[string]any, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		key := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			name, _, _ := strings.Cut(tag, ",")
			if name == "-" {
				continue
			}
			if name != "" {
				key = name
			}
		}
		out[tr.keys.Camel(lowerFirst(key))] = tr.Transform(rv.Field(i).Interface())
	}
	return out
}

// unixMicro converts a timestamp to integer microseconds since the epoch,
// flooring any sub-microsecond component.
func unixMicro(t time.Time) int64 {
	return t.UnixMicro()
}
