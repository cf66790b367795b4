package xmatch

import (
	"fmt"
	"strconv"
)

// ColumnType is an interface which is implemented to define the supported column types.
// xmatch provides a variety of built-in types, covering the values astronomical services return.
type ColumnType interface {
	Name() string                  // returns a short name for this column type
	ToString(v interface{}) string // produces a string representation of a value of this type
	IsNumeric() bool               // returns true iff values of this type can be used as coordinates or scores
}

// IsNumeric returns true iff colType is a non-nil numeric ColumnType
func IsNumeric(colType ColumnType) bool {
	return colType != nil && colType.IsNumeric()
}

// ToFloat64 converts a numeric cell value to a float64. ok is false for blank or non-numeric values.
func ToFloat64(v Value) (f float64, ok bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case int:
		return float64(n), true
	case int16:
		return float64(n), true
	case int8:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

// BoolColumnType is a column type which stores a boolean value
type BoolColumnType struct{}

// Name of a BoolColumnType
func (b *BoolColumnType) Name() string {
	return "boolean"
}

// ToString produces a string representation of a value of a BoolColumnType value
func (b *BoolColumnType) ToString(v interface{}) string {
	return fmt.Sprintf("%t", v.(bool))
}

// IsNumeric is false for BoolColumnTypes
func (b *BoolColumnType) IsNumeric() bool {
	return false
}

// Int32ColumnType is a column type which stores a int32 value
type Int32ColumnType struct{}

// Name of an Int32ColumnType
func (b *Int32ColumnType) Name() string {
	return "int"
}

// ToString produces a string representation of a value of a Int32ColumnType value
func (b *Int32ColumnType) ToString(v interface{}) string {
	return fmt.Sprintf("%d", v.(int32))
}

// IsNumeric is true for Int32ColumnTypes
func (b *Int32ColumnType) IsNumeric() bool {
	return true
}

// Int64ColumnType is a column type which stores a int64 value
type Int64ColumnType struct{}

// Name of an Int64ColumnType
func (b *Int64ColumnType) Name() string {
	return "long"
}

// ToString produces a string representation of a value of a Int64ColumnType value
func (b *Int64ColumnType) ToString(v interface{}) string {
	return fmt.Sprintf("%d", v.(int64))
}

// IsNumeric is true for Int64ColumnTypes
func (b *Int64ColumnType) IsNumeric() bool {
	return true
}

// Float32ColumnType is a column type which stores a float32 value
type Float32ColumnType struct{}

// Name of a Float32ColumnType
func (b *Float32ColumnType) Name() string {
	return "float"
}

// ToString produces a string representation of a value of a Float32ColumnType value
func (b *Float32ColumnType) ToString(v interface{}) string {
	return fmt.Sprintf("%f", v.(float32))
}

// IsNumeric is true for Float32ColumnTypes
func (b *Float32ColumnType) IsNumeric() bool {
	return true
}

// Float64ColumnType is a column type which stores a float64 value
type Float64ColumnType struct{}

// Name of a Float64ColumnType
func (b *Float64ColumnType) Name() string {
	return "double"
}

// ToString produces a string representation of a value of a Float64ColumnType value
func (b *Float64ColumnType) ToString(v interface{}) string {
	return fmt.Sprintf("%f", v.(float64))
}

// IsNumeric is true for Float64ColumnTypes
func (b *Float64ColumnType) IsNumeric() bool {
	return true
}

// VarStringColumnType is a column type which stores a variable-length string value
type VarStringColumnType struct{}

// Name of a VarStringColumnType
func (b *VarStringColumnType) Name() string {
	return "char"
}

// ToString produces a string representation of a value of a VarStringColumnType value
func (b *VarStringColumnType) ToString(v interface{}) string {
	return fmt.Sprintf("\"%s\"", v.(string))
}

// IsNumeric is false for VarStringColumnTypes
func (b *VarStringColumnType) IsNumeric() bool {
	return false
}
