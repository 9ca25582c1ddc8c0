package types

import "strings"

// ColumnType represents the declared data type of a table column
type ColumnType string

const (
	ColumnTypeSmallInt  ColumnType = "smallint"
	ColumnTypeInteger   ColumnType = "integer"
	ColumnTypeBigInt    ColumnType = "bigint"
	ColumnTypeReal      ColumnType = "real"
	ColumnTypeDouble    ColumnType = "double"
	ColumnTypeNumeric   ColumnType = "numeric"
	ColumnTypeBoolean   ColumnType = "boolean"
	ColumnTypeVarchar   ColumnType = "varchar"
	ColumnTypeChar      ColumnType = "char"
	ColumnTypeText      ColumnType = "text"
	ColumnTypeDate      ColumnType = "date"
	ColumnTypeTime      ColumnType = "time"
	ColumnTypeTimestamp ColumnType = "timestamp"
	ColumnTypeInterval  ColumnType = "interval"
	ColumnTypeUUID      ColumnType = "uuid"
	ColumnTypeJSON      ColumnType = "json"
	ColumnTypeJSONB     ColumnType = "jsonb"
	ColumnTypeBinary    ColumnType = "binary"
	ColumnTypeUnknown   ColumnType = "unknown"
)

// TypeFamily groups column types that are mutually comparable
type TypeFamily int

const (
	FamilyUnknown TypeFamily = iota
	FamilyNumeric
	FamilyText
	FamilyBoolean
	FamilyTemporal
	FamilyUUID
	FamilyJSON
	FamilyBinary
)

// Family returns the comparability family of a column type
func (t ColumnType) Family() TypeFamily {
	switch t {
	case ColumnTypeSmallInt, ColumnTypeInteger, ColumnTypeBigInt,
		ColumnTypeReal, ColumnTypeDouble, ColumnTypeNumeric:
		return FamilyNumeric
	case ColumnTypeVarchar, ColumnTypeChar, ColumnTypeText:
		return FamilyText
	case ColumnTypeBoolean:
		return FamilyBoolean
	case ColumnTypeDate, ColumnTypeTime, ColumnTypeTimestamp, ColumnTypeInterval:
		return FamilyTemporal
	case ColumnTypeUUID:
		return FamilyUUID
	case ColumnTypeJSON, ColumnTypeJSONB:
		return FamilyJSON
	case ColumnTypeBinary:
		return FamilyBinary
	default:
		return FamilyUnknown
	}
}

// IsText reports whether the type accepts pattern-match operators (LIKE, ILIKE)
func (t ColumnType) IsText() bool {
	return t.Family() == FamilyText
}

// Comparable reports whether two column types can appear on the two sides
// of an equality join condition. Unknown types never compare.
func Comparable(a, b ColumnType) bool {
	fa, fb := a.Family(), b.Family()
	if fa == FamilyUnknown || fb == FamilyUnknown {
		return false
	}
	return fa == fb
}

// AggregateFunc is an aggregate function applicable to a selected column
type AggregateFunc string

const (
	AggCount AggregateFunc = "COUNT"
	AggSum   AggregateFunc = "SUM"
	AggAvg   AggregateFunc = "AVG"
	AggMin   AggregateFunc = "MIN"
	AggMax   AggregateFunc = "MAX"
)

// IsValidAggregateFunc checks if fn is a known aggregate function
func IsValidAggregateFunc(fn AggregateFunc) bool {
	switch fn {
	case AggCount, AggSum, AggAvg, AggMin, AggMax:
		return true
	default:
		return false
	}
}

// SupportsAggregate reports whether fn may be applied to a column of type t.
// COUNT applies to any type; SUM and AVG need numeric columns; MIN and MAX
// need an ordered family (numeric, text or temporal).
func (t ColumnType) SupportsAggregate(fn AggregateFunc) bool {
	switch fn {
	case AggCount:
		return true
	case AggSum, AggAvg:
		return t.Family() == FamilyNumeric
	case AggMin, AggMax:
		switch t.Family() {
		case FamilyNumeric, FamilyText, FamilyTemporal:
			return true
		}
		return false
	default:
		return false
	}
}

// ParseDataType maps an information_schema data_type string to a ColumnType.
// Postgres reports verbose names ("character varying", "timestamp without
// time zone"); the mapping keys off the leading words.
func ParseDataType(dataType string) ColumnType {
	s := strings.ToLower(strings.TrimSpace(dataType))
	switch {
	case s == "smallint", s == "int2":
		return ColumnTypeSmallInt
	case s == "integer", s == "int", s == "int4":
		return ColumnTypeInteger
	case s == "bigint", s == "int8":
		return ColumnTypeBigInt
	case s == "real", s == "float4":
		return ColumnTypeReal
	case s == "double precision", s == "float8":
		return ColumnTypeDouble
	case s == "numeric", s == "decimal", strings.HasPrefix(s, "numeric("):
		return ColumnTypeNumeric
	case s == "boolean", s == "bool":
		return ColumnTypeBoolean
	case strings.HasPrefix(s, "character varying"), strings.HasPrefix(s, "varchar"):
		return ColumnTypeVarchar
	case strings.HasPrefix(s, "character"), strings.HasPrefix(s, "char"), s == "bpchar":
		return ColumnTypeChar
	case s == "text", s == "citext", s == "name":
		return ColumnTypeText
	case s == "date":
		return ColumnTypeDate
	case strings.HasPrefix(s, "time without"), strings.HasPrefix(s, "time with"), s == "time":
		return ColumnTypeTime
	case strings.HasPrefix(s, "timestamp"):
		return ColumnTypeTimestamp
	case s == "interval":
		return ColumnTypeInterval
	case s == "uuid":
		return ColumnTypeUUID
	case s == "json":
		return ColumnTypeJSON
	case s == "jsonb":
		return ColumnTypeJSONB
	case s == "bytea":
		return ColumnTypeBinary
	default:
		return ColumnTypeUnknown
	}
}
