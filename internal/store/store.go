package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// Header is the first row of every partition file.
var Header = []string{"timestamp", "channel", "message"}

// DefaultPrefix is the partition file name prefix.
const DefaultPrefix = "telegram_log_"

// Store is an append-only log of records, one CSV file per UTC date.
// Appends are serialized; reads open the file independently and may see
// a prefix of appends still in flight.
type Store struct {
	dir    string
	prefix string
	logger zerolog.Logger

	mu sync.Mutex
}

// New returns a Store writing partitions under dir. An empty prefix
// selects DefaultPrefix.
func New(dir, prefix string, logger zerolog.Logger) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{
		dir:    dir,
		prefix: prefix,
		logger: logger.With().Str("component", "store").Logger(),
	}
}

// Path returns the file backing the partition with the given date key.
func (s *Store) Path(dateKey string) string {
	return filepath.Join(s.dir, s.prefix+dateKey+".csv")
}

// Append writes rec to the partition of its timestamp's UTC date, creating
// the partition with its header on first write.
func (s *Store) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("store: create dir %s: %w", s.dir, err)
	}

	path := s.Path(DateKey(rec.Timestamp))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("store: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("store: stat %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("store: write header %s: %w", path, err)
		}
	}
	if err := w.Write([]string{formatTimestamp(rec.Timestamp), rec.Source, rec.Text}); err != nil {
		return fmt.Errorf("store: write record %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("store: flush %s: %w", path, err)
	}
	return nil
}

// Read returns the records of a partition in append order. A partition
// that does not exist yields no records and no error. Malformed rows are
// skipped.
func (s *Store) Read(dateKey string) ([]Record, error) {
	path := s.Path(dateKey)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records := []Record{}
	for row := 1; ; row++ {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				s.logger.Debug().Err(err).Str("partition", dateKey).Int("row", row).Msg("skipping malformed row")
				continue
			}
			return records, fmt.Errorf("store: read %s: %w", path, err)
		}
		if len(fields) < 3 {
			continue
		}
		if row == 1 && fields[0] == Header[0] {
			continue
		}
		ts, err := parseTimestamp(fields[0])
		if err != nil {
			s.logger.Debug().Err(err).Str("partition", dateKey).Int("row", row).Msg("skipping row")
			continue
		}
		records = append(records, Record{Timestamp: ts, Source: fields[1], Text: fields[2]})
	}
	return records, nil
}
