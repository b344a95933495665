package vector

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// columnBuilder accumulates raw row values for one attribute and settles
// the final column kind once all rows are read.
type columnBuilder struct {
	name   string
	kind   Kind
	values []any
}

func (b *columnBuilder) append(v any) {
	b.values = append(b.values, v)
}

// build returns the finished column. Integer columns with missing or
// fractional values become float columns; missing floats are NaN.
func (b *columnBuilder) build() *Column {
	switch b.kind {
	case KindInt:
		for _, v := range b.values {
			if _, ok := v.(int64); !ok {
				return b.asFloat()
			}
		}
		return &Column{Name: b.name, Kind: KindInt, Values: b.values}
	case KindFloat:
		return b.asFloat()
	case KindText:
		out := make([]any, len(b.values))
		for i, v := range b.values {
			out[i] = textValue(v)
		}
		return &Column{Name: b.name, Kind: KindText, Values: out}
	default:
		return &Column{Name: b.name, Kind: b.kind, Values: b.values}
	}
}

func (b *columnBuilder) asFloat() *Column {
	out := make([]any, len(b.values))
	for i, v := range b.values {
		switch n := v.(type) {
		case int64:
			out[i] = float64(n)
		case float64:
			out[i] = n
		default:
			out[i] = math.NaN()
		}
	}
	return &Column{Name: b.name, Kind: KindFloat, Values: out}
}

// inferKind picks the narrowest kind holding every non-nil value.
func (b *columnBuilder) inferKind() Kind {
	var ints, floats, bools, others int
	for _, v := range b.values {
		switch v.(type) {
		case nil:
		case int64:
			ints++
		case float64:
			floats++
		case bool:
			bools++
		default:
			others++
		}
	}
	switch {
	case others > 0:
		return KindText
	case bools > 0 && ints+floats == 0:
		return KindBool
	case bools > 0:
		return KindText
	case floats > 0:
		return KindFloat
	case ints > 0:
		return KindInt
	default:
		return KindText
	}
}

func textValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}
