// Package rowmap provides RowMappers, which translate between input row indices and the
// identifiers uploaded to (and echoed back by) a remote cross-match service.
package rowmap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sif/xmatch"
)

type int64Mapper struct {
	offset int64
}

// Int64 produces a RowMapper whose identifiers are offset+rowIndex
func Int64(offset int64) xmatch.RowMapper[int64] {
	return int64Mapper{offset: offset}
}

// Int64Factory is a MapperFactory for Int64 mappers
func Int64Factory(offset int64) xmatch.RowMapper[int64] {
	return Int64(offset)
}

func (m int64Mapper) ToID(rowIndex int64) int64 {
	return m.offset + rowIndex
}

func (m int64Mapper) ToIndex(id int64) int64 {
	return id - m.offset
}

type int32Mapper struct {
	offset int64
}

// Int32 produces a RowMapper for services whose identifier columns are 32 bits wide.
// Identifiers are offset+rowIndex, which must fit into an int32.
func Int32(offset int64) xmatch.RowMapper[int32] {
	return int32Mapper{offset: offset}
}

// Int32Factory is a MapperFactory for Int32 mappers
func Int32Factory(offset int64) xmatch.RowMapper[int32] {
	return Int32(offset)
}

func (m int32Mapper) ToID(rowIndex int64) int32 {
	return int32(m.offset + rowIndex)
}

func (m int32Mapper) ToIndex(id int32) int64 {
	return int64(id) - m.offset
}

type stringMapper struct {
	prefix string
	offset int64
}

// String produces a RowMapper whose identifiers are prefix followed by the decimal value of
// offset+rowIndex. Identifiers which were not produced by this mapper map to the index -1.
func String(prefix string, offset int64) xmatch.RowMapper[string] {
	return stringMapper{prefix: prefix, offset: offset}
}

// StringFactory produces a MapperFactory for String mappers with the given prefix
func StringFactory(prefix string) xmatch.MapperFactory[string] {
	return func(offset int64) xmatch.RowMapper[string] {
		return String(prefix, offset)
	}
}

func (m stringMapper) ToID(rowIndex int64) string {
	return fmt.Sprintf("%s%d", m.prefix, m.offset+rowIndex)
}

func (m stringMapper) ToIndex(id string) int64 {
	if !strings.HasPrefix(id, m.prefix) {
		return -1
	}
	n, err := strconv.ParseInt(id[len(m.prefix):], 10, 64)
	if err != nil {
		return -1
	}
	return n - m.offset
}

// compile-time checks
var _ xmatch.MapperFactory[int64] = Int64Factory
var _ xmatch.MapperFactory[int32] = Int32Factory
