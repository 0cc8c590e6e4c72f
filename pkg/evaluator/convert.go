package evaluator

import (
	"errors"
	"time"

	celtypes "github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"

	"github.com/sandrolain/celfx/pkg/types"
)

// valueAdapter converts document values into CEL values. Lists and maps are
// wrapped lazily so that nested values go through the same adapter.
type valueAdapter struct {
	base celtypes.Adapter
}

func newValueAdapter() *valueAdapter {
	return &valueAdapter{base: celtypes.DefaultTypeAdapter}
}

// NativeToValue implements types.Adapter.
func (a *valueAdapter) NativeToValue(value any) ref.Val {
	switch v := value.(type) {
	case nil:
		return celtypes.NullValue
	case ref.Val:
		return v
	case float64:
		return celtypes.Double(v)
	case []any:
		return celtypes.NewDynamicList(a, v)
	case map[string]any:
		return celtypes.NewStringInterfaceMap(a, v)
	case *types.OrderedObject:
		return &orderedMap{
			Mapper:  celtypes.NewStringInterfaceMap(a, v.Values),
			obj:     v,
			adapter: a,
		}
	}
	return a.base.NativeToValue(value)
}

// orderedMap exposes an *types.OrderedObject to CEL. Lookups are served by
// the embedded map; iteration follows the object's key order.
type orderedMap struct {
	traits.Mapper
	obj     *types.OrderedObject
	adapter celtypes.Adapter
}

// Iterator returns the keys in insertion order.
func (m *orderedMap) Iterator() traits.Iterator {
	return celtypes.NewStringList(m.adapter, m.obj.Keys).Iterator()
}

// Value returns the underlying ordered object.
func (m *orderedMap) Value() any {
	return m.obj
}

// toNative converts a CEL value back into a document value. Numbers are
// normalised to float64, maps become map[string]any unless they originated
// from an ordered object.
func toNative(val ref.Val) (any, error) {
	switch v := val.(type) {
	case nil:
		return nil, nil
	case *celtypes.Err:
		return nil, fromCELError(v)
	case *orderedMap:
		return v.obj, nil
	case celtypes.Null:
		return nil, nil
	case celtypes.Bool:
		return bool(v), nil
	case celtypes.Int:
		return float64(v), nil
	case celtypes.Uint:
		return float64(v), nil
	case celtypes.Double:
		return float64(v), nil
	case celtypes.String:
		return string(v), nil
	case celtypes.Bytes:
		return string(v), nil
	case celtypes.Duration:
		return v.Duration.String(), nil
	case celtypes.Timestamp:
		return v.Time.UTC().Format(time.RFC3339Nano), nil
	case traits.Mapper:
		out := make(map[string]any)
		it := v.Iterator()
		for it.HasNext() == celtypes.True {
			k := it.Next()
			key, err := toNative(k)
			if err != nil {
				return nil, err
			}
			item, err := toNative(v.Get(k))
			if err != nil {
				return nil, err
			}
			out[types.KeyString(key)] = item
		}
		return out, nil
	case traits.Lister:
		out := make([]any, 0)
		it := v.Iterator()
		for it.HasNext() == celtypes.True {
			item, err := toNative(it.Next())
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		return out, nil
	}
	if celtypes.IsUnknown(val) {
		return nil, types.NewError(types.ErrCodeEvaluation, "result depends on unknown attributes")
	}
	return val.Value(), nil
}

// toCELError wraps a Go error so it can travel through the CEL interpreter
// and be recovered intact by fromCELError.
func toCELError(err error) ref.Val {
	return celtypes.WrapErr(err)
}

// fromCELError recovers a *types.Error from an error returned by the CEL
// runtime. Errors raised by CEL itself become evaluation errors.
func fromCELError(err error) error {
	if err == nil {
		return nil
	}
	var te *types.Error
	if errors.As(err, &te) {
		return te
	}
	return types.NewError(types.ErrCodeEvaluation, err.Error()).WithCause(err)
}
