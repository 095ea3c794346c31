package mutantic

import (
	"fmt"
	"math"
	"reflect"
	"time"

	automerge "github.com/automerge/automerge-go"
	"github.com/go-playground/validator/v10"

	"github.com/mutantic/go-mutantic/debug"
	"github.com/mutantic/go-mutantic/schema"
)

// validate is the whole-structure validation entry point. It runs
// exactly once per snapshot reconstruction and is never bypassed.
var validate = validator.New(validator.WithRequiredStructEnabled())

// toCRDT converts a typed value into the plain tree form the engine
// accepts as one subtree: map[string]any for records, []any for lists,
// native scalars for leaves. The shape is checked against the schema
// node as it is walked.
func toCRDT(v reflect.Value, n *schema.Node) (any, error) {
	for v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	if n.Kind == schema.OptionalKind {
		if !v.IsValid() {
			return nil, nil
		}
		if v.Type() == n.Type {
			if v.IsNil() {
				return nil, nil
			}
			return toCRDT(v.Elem(), n.Elem)
		}
		// a bare value is accepted where a pointer is declared
		return toCRDT(v, n.Elem)
	}
	if !v.IsValid() {
		return nil, fmt.Errorf("%w: cannot use nil as %s", ErrSchemaMismatch, n.Kind)
	}
	switch n.Kind {
	case schema.RecordKind:
		if v.Type() != n.Type {
			return nil, fmt.Errorf("%w: cannot use %s as %s", ErrSchemaMismatch, v.Type(), n.Type)
		}
		out := make(map[string]any, len(n.Fields))
		for _, f := range n.Fields {
			fv, err := toCRDT(v.Field(f.Index), f.Node)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			out[f.Name] = fv
		}
		return out, nil
	case schema.ListKind:
		if v.Kind() != reflect.Slice || v.Type() != n.Type {
			return nil, fmt.Errorf("%w: cannot use %s as %s", ErrSchemaMismatch, typeName(v), n.Type)
		}
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			ev, err := toCRDT(v.Index(i), n.Elem)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = ev
		}
		return out, nil
	default:
		return toLeaf(v, n)
	}
}

func toLeaf(v reflect.Value, n *schema.Node) (any, error) {
	switch n.Kind {
	case schema.StringKind:
		if v.Kind() == reflect.String {
			return v.String(), nil
		}
	case schema.BoolKind:
		if v.Kind() == reflect.Bool {
			return v.Bool(), nil
		}
	case schema.IntKind:
		switch v.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return v.Int(), nil
		}
	case schema.UintKind:
		switch v.Kind() {
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return v.Uint(), nil
		}
	case schema.FloatKind:
		switch v.Kind() {
		case reflect.Float32, reflect.Float64:
			return v.Float(), nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return float64(v.Int()), nil
		}
	case schema.BytesKind:
		if v.Type() == n.Type {
			return v.Bytes(), nil
		}
	case schema.TimeKind:
		if t, ok := v.Interface().(time.Time); ok {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: cannot use %s as %s", ErrSchemaMismatch, typeName(v), n.Kind)
}

func typeName(v reflect.Value) string {
	if !v.IsValid() {
		return "nil"
	}
	return v.Type().String()
}

// decodeState rebuilds a typed value from the root map and runs the
// whole-structure validation pass. It returns either a value that
// fully validates or an error; never a partially defaulted record.
func decodeState(m *automerge.Map, n *schema.Node) (reflect.Value, error) {
	rv, err := decodeRecord(m, n)
	if err != nil {
		return reflect.Value{}, err
	}
	if err := validate.Struct(rv.Interface()); err != nil {
		if debug.Convert() {
			debug.Logf("decode %s: %v\n", n.Type, err)
		}
		return reflect.Value{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return rv, nil
}

// fromCRDT is the inverse walk of toCRDT. Shape disagreements found
// here come from the replicated side (a peer wrote something the
// schema does not describe) and surface as ErrValidation.
func fromCRDT(v *automerge.Value, n *schema.Node) (reflect.Value, error) {
	if n.Kind == schema.OptionalKind {
		if v == nil || v.Kind() == automerge.KindNull || v.Kind() == automerge.KindVoid {
			return reflect.Zero(n.Type), nil
		}
		ev, err := fromCRDT(v, n.Elem)
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(n.Elem.Type)
		p.Elem().Set(ev)
		return p, nil
	}
	switch n.Kind {
	case schema.RecordKind:
		if v.Kind() != automerge.KindMap {
			return reflect.Value{}, fmt.Errorf("%w: expected a map for %s, got %s", ErrValidation, n.Type, v.Kind())
		}
		return decodeRecord(v.Map(), n)
	case schema.ListKind:
		if v.Kind() != automerge.KindList {
			return reflect.Value{}, fmt.Errorf("%w: expected a list for %s, got %s", ErrValidation, n.Type, v.Kind())
		}
		l := v.List()
		out := reflect.MakeSlice(n.Type, l.Len(), l.Len())
		for i := 0; i < l.Len(); i++ {
			ev, err := l.Get(i)
			if err != nil {
				return reflect.Value{}, err
			}
			dv, err := fromCRDT(ev, n.Elem)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			out.Index(i).Set(dv)
		}
		return out, nil
	default:
		return fromLeaf(v, n)
	}
}

func decodeRecord(m *automerge.Map, n *schema.Node) (reflect.Value, error) {
	rv := reflect.New(n.Type).Elem()
	for _, f := range n.Fields {
		av, err := m.Get(f.Name)
		if err != nil {
			return reflect.Value{}, err
		}
		if av.Kind() == automerge.KindVoid {
			if f.Optional() {
				continue
			}
			return reflect.Value{}, fmt.Errorf("%w: %s is missing field %q", ErrValidation, n.Type, f.Name)
		}
		fv, err := fromCRDT(av, f.Node)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("field %q: %w", f.Name, err)
		}
		rv.Field(f.Index).Set(fv)
	}
	return rv, nil
}

// fromLeaf coerces a replicated scalar to the declared leaf type.
// Numbers cross-coerce where lossless, since peers in other languages
// do not distinguish integer and float writes reliably.
func fromLeaf(v *automerge.Value, n *schema.Node) (reflect.Value, error) {
	switch n.Kind {
	case schema.StringKind:
		switch v.Kind() {
		case automerge.KindStr:
			return reflect.ValueOf(v.Str()).Convert(n.Type), nil
		case automerge.KindText:
			s, err := v.Text().Get()
			if err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(s).Convert(n.Type), nil
		}
	case schema.BoolKind:
		if v.Kind() == automerge.KindBool {
			return reflect.ValueOf(v.Bool()).Convert(n.Type), nil
		}
	case schema.IntKind:
		switch v.Kind() {
		case automerge.KindInt64:
			return reflect.ValueOf(v.Int64()).Convert(n.Type), nil
		case automerge.KindUint64:
			return reflect.ValueOf(int64(v.Uint64())).Convert(n.Type), nil
		case automerge.KindFloat64:
			if f := v.Float64(); f == math.Trunc(f) {
				return reflect.ValueOf(int64(f)).Convert(n.Type), nil
			}
		}
	case schema.UintKind:
		switch v.Kind() {
		case automerge.KindUint64:
			return reflect.ValueOf(v.Uint64()).Convert(n.Type), nil
		case automerge.KindInt64:
			if i := v.Int64(); i >= 0 {
				return reflect.ValueOf(uint64(i)).Convert(n.Type), nil
			}
		}
	case schema.FloatKind:
		switch v.Kind() {
		case automerge.KindFloat64:
			return reflect.ValueOf(v.Float64()).Convert(n.Type), nil
		case automerge.KindInt64:
			return reflect.ValueOf(float64(v.Int64())).Convert(n.Type), nil
		}
	case schema.BytesKind:
		if v.Kind() == automerge.KindBytes {
			return reflect.ValueOf(v.Bytes()).Convert(n.Type), nil
		}
	case schema.TimeKind:
		if v.Kind() == automerge.KindTime {
			return reflect.ValueOf(v.Time()), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("%w: expected %s, got %s", ErrValidation, n.Kind, v.Kind())
}

// plain extracts an engine value as a plain Go tree, used to compare
// subtrees without binding them to a schema.
func plain(v *automerge.Value) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch v.Kind() {
	case automerge.KindVoid, automerge.KindNull:
		return nil, nil
	case automerge.KindMap:
		vals, err := v.Map().Values()
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(vals))
		for k, mv := range vals {
			pv, err := plain(mv)
			if err != nil {
				return nil, err
			}
			out[k] = pv
		}
		return out, nil
	case automerge.KindList:
		l := v.List()
		out := make([]any, l.Len())
		for i := 0; i < l.Len(); i++ {
			ev, err := l.Get(i)
			if err != nil {
				return nil, err
			}
			pv, err := plain(ev)
			if err != nil {
				return nil, err
			}
			out[i] = pv
		}
		return out, nil
	case automerge.KindStr:
		return v.Str(), nil
	case automerge.KindBool:
		return v.Bool(), nil
	case automerge.KindInt64:
		return v.Int64(), nil
	case automerge.KindUint64:
		return v.Uint64(), nil
	case automerge.KindFloat64:
		return v.Float64(), nil
	case automerge.KindBytes:
		return v.Bytes(), nil
	case automerge.KindTime:
		return v.Time(), nil
	default:
		return nil, fmt.Errorf("cannot extract %s value", v.Kind())
	}
}
