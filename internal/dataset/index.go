package dataset

import (
	"strings"

	"carbonequip/internal"
	"carbonequip/internal/pipeline"
)

// RecordKey identifies a machine across scraper runs.
type RecordKey struct {
	OEM   string
	Model string
	Link  string
}

func KeyOf(rec internal.RawRecord) RecordKey {
	row := pipeline.NormalizeRecord(rec)
	return RecordKey{
		OEM:   strings.ToLower(row.OEM),
		Model: strings.ToLower(row.Model),
		Link:  strings.TrimRight(row.SourceLink, "/"),
	}
}

type Index struct {
	Records  []internal.RawRecord
	Position map[RecordKey]int
}

func BuildIndex(records []internal.RawRecord) *Index {
	idx := &Index{
		Records:  make([]internal.RawRecord, 0, len(records)),
		Position: map[RecordKey]int{},
	}
	for _, rec := range records {
		idx.Put(rec)
	}
	return idx
}

// Put replaces the record with the same key in place, or appends it. It
// reports whether the record was new.
func (idx *Index) Put(rec internal.RawRecord) bool {
	key := KeyOf(rec)
	if pos, ok := idx.Position[key]; ok {
		idx.Records[pos] = rec
		return false
	}
	idx.Position[key] = len(idx.Records)
	idx.Records = append(idx.Records, rec)
	return true
}

// Upsert merges incoming into existing, keeping existing order.
func Upsert(existing, incoming []internal.RawRecord) ([]internal.RawRecord, int, int) {
	idx := BuildIndex(existing)
	added, updated := 0, 0
	for _, rec := range incoming {
		if idx.Put(rec) {
			added++
		} else {
			updated++
		}
	}
	return idx.Records, added, updated
}
