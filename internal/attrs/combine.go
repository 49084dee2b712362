package attrs

import (
	"fmt"
	"reflect"
)

// Policy decides which value wins when a scalar is present on both sides.
type Policy string

// Combine policies.
const (
	// First keeps the accumulator's value.
	First Policy = "first"
	// Last lets the incoming value override.
	Last Policy = "last"
	// Append keeps scalars like First and appends list items without deduplication.
	Append Policy = "append"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case First, Last, Append:
		return p, nil
	}
	return "", fmt.Errorf("unknown combine policy %q", s)
}

// Combine merges items left to right into a fresh record. T must be a struct
// whose fields are pointers, slices, maps or plain values. Inputs are never
// mutated.
//
// An absent incoming value never overwrites. Lists are unioned with
// structural deduplication (appended as-is under Append).
func Combine[T any](policy Policy, items ...T) T {
	var acc T
	if len(items) == 0 {
		return acc
	}

	acc = Clone(items[0])
	av := reflect.ValueOf(&acc).Elem()
	if av.Kind() != reflect.Struct {
		panic(fmt.Sprintf("attrs.Combine: %T is not a struct", acc))
	}

	for _, item := range items[1:] {
		merge(av, reflect.ValueOf(item), policy)
	}
	return acc
}

// Clone deep-copies a record.
func Clone[T any](v T) T {
	var out T
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return out
	}
	reflect.ValueOf(&out).Elem().Set(deepCopy(rv))
	return out
}

func merge(acc, in reflect.Value, policy Policy) {
	t := acc.Type()
	for i := 0; i < acc.NumField(); i++ {
		if !t.Field(i).IsExported() {
			continue
		}
		a, v := acc.Field(i), in.Field(i)

		switch v.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map:
			if v.IsNil() {
				continue
			}
			if a.IsNil() || policy == Last {
				a.Set(deepCopy(v))
			}

		case reflect.Slice:
			for j := 0; j < v.Len(); j++ {
				elem := v.Index(j)
				if policy != Append && containsValue(a, elem) {
					continue
				}
				a.Set(reflect.Append(a, deepCopy(elem)))
			}

		default:
			if v.IsZero() {
				continue
			}
			if a.IsZero() || policy == Last {
				a.Set(v)
			}
		}
	}
}

// containsValue reports whether list holds an element structurally equal to elem.
func containsValue(list, elem reflect.Value) bool {
	target := elem.Interface()
	for i := 0; i < list.Len(); i++ {
		if reflect.DeepEqual(list.Index(i).Interface(), target) {
			return true
		}
	}
	return false
}

func deepCopy(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		p := reflect.New(v.Type().Elem())
		p.Elem().Set(deepCopy(v.Elem()))
		return p

	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		s := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			s.Index(i).Set(deepCopy(v.Index(i)))
		}
		return s

	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		m := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			m.SetMapIndex(iter.Key(), deepCopy(iter.Value()))
		}
		return m

	case reflect.Struct:
		s := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			if !v.Type().Field(i).IsExported() {
				continue
			}
			s.Field(i).Set(deepCopy(v.Field(i)))
		}
		return s

	default:
		return v
	}
}
