package mapping

import (
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/nioertel/neo4j-ogm/metadata"
)

// All reflective access goes through the field index paths recorded in the
// model; types are never inspected here beyond what the model describes.

var timeType = reflect.TypeOf(time.Time{})

func fieldOf(obj any, f *metadata.FieldModel) reflect.Value {
	return reflect.ValueOf(obj).Elem().FieldByIndex(f.Index)
}

// Properties returns the graph properties of obj as described by class, in
// canonical form: integers as int64, floats as float64, lists as []any and
// converters applied. Nil pointers map to nil.
func Properties(class *metadata.ClassModel, obj any) (map[string]any, error) {
	props := make(map[string]any, len(class.Fields))
	for _, f := range class.PropertyFields() {
		v, err := PropertyValue(f, obj)
		if err != nil {
			return nil, err
		}
		props[f.Property] = v
	}
	return props, nil
}

// PropertyValue returns the canonical graph value of one property field.
func PropertyValue(f *metadata.FieldModel, obj any) (any, error) {
	v := fieldOf(obj, f)
	if f.Kind == metadata.KindConvertible {
		if isNil(v) {
			return nil, nil
		}
		out, err := f.Converter.ToGraphProperty(v.Interface())
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", f.Owner, f.Name, err)
		}
		return Canonical(out), nil
	}
	return canonical(v), nil
}

// Canonical normalizes a property value so that values read from the store
// and values extracted from objects compare equal when they mean the same.
func Canonical(v any) any {
	if v == nil {
		return nil
	}
	return canonical(reflect.ValueOf(v))
}

func canonical(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Invalid:
		return nil
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return canonical(v.Elem())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.Bool:
		return v.Bool()
	case reflect.String:
		return v.String()
	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return append([]byte(nil), v.Bytes()...)
		}
		out := make([]any, v.Len())
		for i := range out {
			out[i] = canonical(v.Index(i))
		}
		return out
	default:
		return v.Interface()
	}
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// setProperty stores a raw graph value into a property field, applying the
// field's converter.
func setProperty(f *metadata.FieldModel, obj any, raw any) error {
	dst := fieldOf(obj, f)
	if f.Kind == metadata.KindConvertible {
		if raw == nil {
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		val, err := f.Converter.ToFieldValue(raw)
		if err != nil {
			return err
		}
		return assign(dst, val)
	}
	return assign(dst, raw)
}

// assign stores src into dst, converting between compatible scalar kinds.
func assign(dst reflect.Value, src any) error {
	if src == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	sv := reflect.ValueOf(src)
	if sv.Type().AssignableTo(dst.Type()) {
		dst.Set(sv)
		return nil
	}
	switch dst.Kind() {
	case reflect.Ptr:
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Elem(), src); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := toInt64(sv)
		if !ok || dst.OverflowInt(n) {
			return fmt.Errorf("cannot store %T in %s", src, dst.Type())
		}
		dst.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := toInt64(sv)
		if !ok || n < 0 || dst.OverflowUint(uint64(n)) {
			return fmt.Errorf("cannot store %T in %s", src, dst.Type())
		}
		dst.SetUint(uint64(n))
		return nil
	case reflect.Float32, reflect.Float64:
		switch sv.Kind() {
		case reflect.Float32, reflect.Float64:
			dst.SetFloat(sv.Float())
			return nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			dst.SetFloat(float64(sv.Int()))
			return nil
		}
	case reflect.String:
		if sv.Kind() == reflect.String {
			dst.SetString(sv.String())
			return nil
		}
	case reflect.Bool:
		if sv.Kind() == reflect.Bool {
			dst.SetBool(sv.Bool())
			return nil
		}
	case reflect.Slice:
		if sv.Kind() == reflect.Slice {
			out := reflect.MakeSlice(dst.Type(), sv.Len(), sv.Len())
			for i := 0; i < sv.Len(); i++ {
				if err := assign(out.Index(i), sv.Index(i).Interface()); err != nil {
					return err
				}
			}
			dst.Set(out)
			return nil
		}
	case reflect.Struct:
		if dst.Type() == timeType && sv.Type().ConvertibleTo(timeType) {
			dst.Set(sv.Convert(timeType))
			return nil
		}
	}
	return fmt.Errorf("cannot store %T in %s", src, dst.Type())
}

func toInt64(v reflect.Value) (int64, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := v.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if f != math.Trunc(f) {
			return 0, false
		}
		return int64(f), true
	}
	return 0, false
}

// IdentityOf returns the value of the class's identity field. It reports
// false when the class has no identity field, the pointer is nil or a plain
// int64 field still holds zero.
func IdentityOf(class *metadata.ClassModel, obj any) (int64, bool) {
	if class.Identity == nil {
		return 0, false
	}
	v := fieldOf(obj, class.Identity)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return 0, false
		}
		return v.Elem().Int(), true
	}
	return v.Int(), v.Int() != 0
}

// SetIdentity writes a native id into the class's identity field, if any.
func SetIdentity(class *metadata.ClassModel, obj any, id int64) {
	if class.Identity == nil {
		return
	}
	v := fieldOf(obj, class.Identity)
	if v.Kind() == reflect.Ptr {
		p := reflect.New(v.Type().Elem())
		p.Elem().SetInt(id)
		v.Set(p)
		return
	}
	v.SetInt(id)
}

// SetVersion writes a version number into the class's version field.
func SetVersion(class *metadata.ClassModel, obj any, version int64) error {
	if class.Version == nil {
		return nil
	}
	return assign(fieldOf(obj, class.Version), version)
}

// Related returns the objects held by a reference or collection field. Nil
// elements of a collection are returned as nil so callers can reject them.
func Related(f *metadata.FieldModel, obj any) []any {
	v := fieldOf(obj, f)
	switch f.Kind {
	case metadata.KindReference:
		if v.IsNil() {
			return nil
		}
		return []any{v.Interface()}
	case metadata.KindCollection:
		out := make([]any, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			e := v.Index(i)
			if e.IsNil() {
				out = append(out, nil)
				continue
			}
			out = append(out, e.Interface())
		}
		return out
	}
	return nil
}

// link stores target in a reference field or appends it to a collection
// field unless the collection already holds that instance.
func link(f *metadata.FieldModel, obj, target any) {
	v := fieldOf(obj, f)
	tv := reflect.ValueOf(target)
	switch f.Kind {
	case metadata.KindReference:
		v.Set(tv)
	case metadata.KindCollection:
		for i := 0; i < v.Len(); i++ {
			if v.Index(i).Interface() == target {
				return
			}
		}
		v.Set(reflect.Append(v, tv))
	}
}

// newInstance allocates a zero instance of the class and returns a pointer to it.
func newInstance(class *metadata.ClassModel) (any, error) {
	if class.Type == nil {
		return nil, fmt.Errorf("class %s has no runtime type", class.Name)
	}
	return reflect.New(class.Type).Interface(), nil
}
