// Package rowstore provides an append-only, random-access row store, used to accumulate
// match results. Rows are buffered into pages which are sealed once full: a sealed page is
// gob-encoded, compressed and checksummed, and decoded again on demand through a small LRU cache.
package rowstore

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/go-sif/xmatch"
	"github.com/go-sif/xmatch/errors"
	"github.com/go-sif/xmatch/logging"
	"github.com/go-sif/xmatch/table"
)

// Options configures a Store
type Options struct {
	Name        string // Name of the Table presented by the Store
	PageSize    int    // Number of rows per page. Defaults to 1024.
	CachedPages int    // Number of decoded pages kept in memory. Defaults to 4.
	Compression string // "lz4" (default), "zstd" or "none"
}

func ensureDefaultOptionsValues(opts *Options) {
	if opts.PageSize <= 0 {
		opts.PageSize = 1024
	}
	if opts.CachedPages <= 0 {
		opts.CachedPages = 4
	}
	if len(opts.Compression) == 0 {
		opts.Compression = "lz4"
	}
}

type sealedPage struct {
	data     []byte
	checksum uint64
}

// Store is a RawSink which accumulates rows, and a RandomAccessTable over the rows accumulated so far.
// Only the first Schema declared through AcceptMetadata is retained. It is safe for concurrent use.
type Store struct {
	opts       Options
	lock       sync.Mutex
	schema     xmatch.Schema
	params     map[string]string
	sealed     []sealedPage
	tail       [][]interface{}
	numRows    int64
	ended      bool
	compressor Compressor
	cache      *pageCache
	logger     *logging.Logger
}

// New creates an empty Store
func New(opts *Options) (*Store, error) {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	ensureDefaultOptionsValues(&o)
	compressor, err := NewCompressor(o.Compression)
	if err != nil {
		return nil, err
	}
	return &Store{
		opts:       o,
		params:     make(map[string]string),
		sealed:     make([]sealedPage, 0),
		tail:       make([][]interface{}, 0, o.PageSize),
		compressor: compressor,
		cache:      newPageCache(o.CachedPages),
		logger:     logging.For("rowstore"),
	}, nil
}

// AcceptMetadata declares the Schema of the stored rows. Calls after the first are ignored.
func (s *Store) AcceptMetadata(schema xmatch.Schema) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.schema != nil {
		s.logger.Debug().Int("columns", schema.NumColumns()).Msg("Ignoring repeated result metadata")
		return nil
	}
	s.schema = schema
	return nil
}

// AcceptRow appends a row to the Store
func (s *Store) AcceptRow(row []xmatch.Value) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.ended {
		return fmt.Errorf("Row store %s does not accept rows after EndRows", s.opts.Name)
	}
	if s.schema == nil {
		return errors.NoSchemaError{}
	}
	if len(row) != s.schema.NumColumns() {
		return errors.IncompatibleRowError{Expected: s.schema.NumColumns(), Actual: len(row)}
	}
	s.tail = append(s.tail, row)
	s.numRows++
	if len(s.tail) >= s.opts.PageSize {
		return s.sealTail()
	}
	return nil
}

// EndRows indicates that no more rows will be accepted
func (s *Store) EndRows() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.ended = true
	return nil
}

// HasSchema returns true iff a Schema has been declared
func (s *Store) HasSchema() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.schema != nil
}

// NumPages returns the number of sealed pages
func (s *Store) NumPages() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.sealed)
}

// sealTail encodes, compresses and checksums the tail page. Callers must hold s.lock.
func (s *Store) sealTail() error {
	buf := new(bytes.Buffer)
	if err := gob.NewEncoder(buf).Encode(s.tail); err != nil {
		return fmt.Errorf("Unable to encode page %d: %w", len(s.sealed), err)
	}
	data, err := s.compressor.Compress(buf.Bytes())
	if err != nil {
		return fmt.Errorf("Unable to compress page %d: %w", len(s.sealed), err)
	}
	s.sealed = append(s.sealed, sealedPage{data: data, checksum: xxhash.Sum64(data)})
	s.logger.Trace().
		Int("page", len(s.sealed)-1).
		Int("raw_bytes", buf.Len()).
		Int("stored_bytes", len(data)).
		Str("compression", s.compressor.Name()).
		Msg("Sealed page")
	s.tail = make([][]interface{}, 0, s.opts.PageSize)
	return nil
}

// loadPage returns the rows of a sealed page. Callers must hold s.lock.
func (s *Store) loadPage(page int) ([][]interface{}, error) {
	if rows, ok := s.cache.get(page); ok {
		return rows, nil
	}
	p := s.sealed[page]
	if xxhash.Sum64(p.data) != p.checksum {
		return nil, errors.CorruptPageError{Page: page}
	}
	raw, err := s.compressor.Decompress(p.data)
	if err != nil {
		return nil, err
	}
	var rows [][]interface{}
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&rows); err != nil {
		return nil, fmt.Errorf("Unable to decode page %d: %w", page, err)
	}
	s.cache.add(page, rows)
	return rows, nil
}

// Name returns the name of this Table
func (s *Store) Name() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.opts.Name
}

// SetName renames this Table
func (s *Store) SetName(name string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.opts.Name = name
}

// Schema returns the Schema of the stored rows, or nil if none has been declared
func (s *Store) Schema() xmatch.Schema {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.schema
}

// Params returns the table-level metadata of this Table
func (s *Store) Params() map[string]string {
	return s.params
}

// RowCount returns the number of rows accepted so far
func (s *Store) RowCount() int64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.numRows
}

// GetRow retrieves a copy of a specific row
func (s *Store) GetRow(rowIndex int64) ([]xmatch.Value, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if rowIndex < 0 || rowIndex >= s.numRows {
		return nil, errors.RowIndexError{Index: rowIndex, Count: s.numRows}
	}
	pageSize := int64(s.opts.PageSize)
	page := int(rowIndex / pageSize)
	offset := int(rowIndex % pageSize)
	if page == len(s.sealed) {
		return copyRow(s.tail[offset]), nil
	}
	rows, err := s.loadPage(page)
	if err != nil {
		return nil, err
	}
	return copyRow(rows[offset]), nil
}

func copyRow(row []interface{}) []xmatch.Value {
	out := make([]xmatch.Value, len(row))
	copy(out, row)
	return out
}

// RowIterator returns an iterator over the rows accepted so far
func (s *Store) RowIterator() (xmatch.RowIterator, error) {
	return table.Iterate(s), nil
}
