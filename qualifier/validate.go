package qualifier

import (
	"fmt"
	"math"
	"reflect"
)

// Validate checks every leaf's operands against its operator's valid domain.
// Strict ordering operators reject bounds at the extreme end of the operand's
// integral range, since no record could ever satisfy them, and ordering
// operators reject unordered collection operands.
func Validate(q Qualifier) error {
	for _, leaf := range Leaves(q) {
		if err := validateLeaf(leaf); err != nil {
			return err
		}
	}
	return nil
}

func validateLeaf(l *Leaf) error {
	if !l.Op.Ordering() {
		return nil
	}

	for _, v := range l.Values {
		if reflect.ValueOf(v).Kind() == reflect.Map {
			return fmt.Errorf("bin %q: operator %s requires an ordered operand, got unordered %T",
				l.Bin, l.Op, v)
		}
	}

	switch l.Op {
	case OpGt:
		if v, at := atUpperLimit(l.Values[0]); at {
			return fmt.Errorf("bin %q: no value is strictly greater than %v", l.Bin, v)
		}
	case OpLt:
		if v, at := atLowerLimit(l.Values[0]); at {
			return fmt.Errorf("bin %q: no value is strictly less than %v", l.Bin, v)
		}
	}
	return nil
}

func atUpperLimit(v any) (any, bool) {
	switch n := v.(type) {
	case int:
		return n, n == math.MaxInt
	case int8:
		return n, n == math.MaxInt8
	case int16:
		return n, n == math.MaxInt16
	case int32:
		return n, n == math.MaxInt32
	case int64:
		return n, n == math.MaxInt64
	case uint:
		return n, n == math.MaxUint
	case uint8:
		return n, n == math.MaxUint8
	case uint16:
		return n, n == math.MaxUint16
	case uint32:
		return n, n == math.MaxUint32
	case uint64:
		return n, n == math.MaxUint64
	}
	return v, false
}

func atLowerLimit(v any) (any, bool) {
	switch n := v.(type) {
	case int:
		return n, n == math.MinInt
	case int8:
		return n, n == math.MinInt8
	case int16:
		return n, n == math.MinInt16
	case int32:
		return n, n == math.MinInt32
	case int64:
		return n, n == math.MinInt64
	case uint:
		return n, n == 0
	case uint8:
		return n, n == 0
	case uint16:
		return n, n == 0
	case uint32:
		return n, n == 0
	case uint64:
		return n, n == 0
	}
	return v, false
}
