package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"carbonequip/internal"
	"carbonequip/internal/dataset"
	"carbonequip/internal/util"
)

const (
	JSONFileName = "machines.json"
	CSVFileName  = "machines.csv"
)

// ProducerFields is the column layout of the dataset's CSV twin.
var ProducerFields = []string{
	"power", "oem", "country", "class_tons", "engine_power_kw", "blade_size", "bucket_size_m3",
	"type", "year_of_release", "development_status", "model_number", "link", "link_date", "last_seen_utc",
}

// Store is the on-disk dataset: machines.json plus a CSV twin in one directory.
type Store struct {
	dir string

	mu sync.Mutex
}

type MergeResult struct {
	Total   int
	Added   int
	Updated int
}

func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

func (s *Store) JSONPath() string { return filepath.Join(s.dir, JSONFileName) }

func (s *Store) CSVPath() string { return filepath.Join(s.dir, CSVFileName) }

// ReadRecords returns the stored records; a missing file is an empty dataset.
func (s *Store) ReadRecords() ([]internal.RawRecord, error) {
	blob, err := os.ReadFile(s.JSONPath())
	if errors.Is(err, fs.ErrNotExist) {
		return []internal.RawRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	return dataset.Unwrap(blob)
}

func (s *Store) WriteRecords(records []internal.RawRecord) error {
	if records == nil {
		records = []internal.RawRecord{}
	}
	blob, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	if err := writeAtomic(s.JSONPath(), append(blob, '\n')); err != nil {
		return err
	}
	return s.writeCSV(records)
}

// Merge upserts incoming records by machine identity and rewrites both files.
func (s *Store) Merge(incoming []internal.RawRecord) (MergeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, err := s.ReadRecords()
	if err != nil {
		return MergeResult{}, err
	}
	merged, added, updated := dataset.Upsert(existing, incoming)
	if err := s.WriteRecords(merged); err != nil {
		return MergeResult{}, err
	}
	return MergeResult{Total: len(merged), Added: added, Updated: updated}, nil
}

func (s *Store) writeCSV(records []internal.RawRecord) error {
	tmp, err := os.CreateTemp(s.dir, ".machines-*.csv")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	w := csv.NewWriter(tmp)
	if err := w.Write(ProducerFields); err != nil {
		_ = tmp.Close()
		return err
	}
	line := make([]string, len(ProducerFields))
	for _, rec := range records {
		for i, field := range ProducerFields {
			line[i] = util.Resolve(rec, []string{field}, "")
		}
		if err := w.Write(line); err != nil {
			_ = tmp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.CSVPath())
}

func writeAtomic(path string, blob []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".machines-*.json")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(blob); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
