package storage

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"go.etcd.io/bbolt"
)

// FeatureRecord is one extracted feature vector with the label the model
// gave it. Names and Values are parallel.
type FeatureRecord struct {
	Source     string    `json:"source"`
	Timestamp  time.Time `json:"timestamp"`
	Names      []string  `json:"names"`
	Values     []float64 `json:"values"`
	Prediction string    `json:"prediction"`
	Confidence float64   `json:"confidence"`
}

func featureKey(source string, ts time.Time) []byte {
	return []byte(fmt.Sprintf("%s_%020d", source, ts.UnixNano()))
}

// StoreFeatures stores a feature record keyed by source and timestamp.
func (s *Store) StoreFeatures(record FeatureRecord) error {
	if len(record.Names) != len(record.Values) {
		return fmt.Errorf("feature record: %d names for %d values", len(record.Names), len(record.Values))
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(featuresBucket))

		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal feature record: %w", err)
		}
		return b.Put(featureKey(record.Source, record.Timestamp), data)
	})
}

// GetFeaturesInRange returns records for source with start <= timestamp <= end,
// oldest first.
func (s *Store) GetFeaturesInRange(source string, start, end time.Time) ([]FeatureRecord, error) {
	var records []FeatureRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(featuresBucket)).Cursor()
		prefix := []byte(source + "_")
		endKey := featureKey(source, end)

		for k, v := c.Seek(featureKey(source, start)); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			if !bytes.HasPrefix(k, prefix) {
				continue
			}
			var rec FeatureRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue // Skip malformed records
			}
			records = append(records, rec)
		}
		return nil
	})

	return records, err
}

// AllFeatures returns every stored record in key order.
func (s *Store) AllFeatures() ([]FeatureRecord, error) {
	var records []FeatureRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(featuresBucket)).ForEach(func(_, v []byte) error {
			var rec FeatureRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return nil
			}
			records = append(records, rec)
			return nil
		})
	})
	return records, err
}

// ExportFeaturesToCSV writes all feature records to filename, one row per
// record, with a header of source, timestamp, the feature names and the
// predicted label. It returns the number of rows written.
func (s *Store) ExportFeaturesToCSV(filename string) (int, error) {
	f, err := os.Create(filename)
	if err != nil {
		return 0, fmt.Errorf("create export file: %w", err)
	}
	n, err := s.WriteFeaturesCSV(f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close export file: %w", cerr)
	}
	return n, err
}

// WriteFeaturesCSV streams the export of every stored record to w.
func (s *Store) WriteFeaturesCSV(w io.Writer) (int, error) {
	records, err := s.AllFeatures()
	if err != nil {
		return 0, err
	}
	return WriteRecordsCSV(w, records)
}

// WriteRecordsCSV writes records in the export layout. Records whose
// feature names differ from the first record's are skipped.
func WriteRecordsCSV(w io.Writer, records []FeatureRecord) (int, error) {
	cw := csv.NewWriter(w)
	if len(records) == 0 {
		cw.Flush()
		return 0, cw.Error()
	}

	names := records[0].Names
	header := append([]string{"source", "timestamp"}, names...)
	header = append(header, "prediction", "confidence")
	if err := cw.Write(header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	written := 0
	for _, rec := range records {
		if !sameNames(rec.Names, names) {
			continue
		}
		row := make([]string, 0, len(header))
		row = append(row, rec.Source, rec.Timestamp.UTC().Format(time.RFC3339Nano))
		for _, v := range rec.Values {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		row = append(row, rec.Prediction, strconv.FormatFloat(rec.Confidence, 'f', 6, 64))
		if err := cw.Write(row); err != nil {
			return written, fmt.Errorf("write row: %w", err)
		}
		written++
	}

	cw.Flush()
	return written, cw.Error()
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
