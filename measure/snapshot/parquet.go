package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
)

// MetadataKey is the key-value entry of the bins file that holds the
// JSON-encoded Metadata.
const MetadataKey = "rta.metadata"

const readBatch = 1024

// ErrNoMetadata is returned when a bins file lacks MetadataKey.
var ErrNoMetadata = errors.New("snapshot: parquet file has no metadata")

// WriteParquet writes the bin rows to bins and the impulse rows to
// impulse, both zstd-compressed. The metadata travels in the bins file.
func (s *Snapshot) WriteParquet(bins, impulse io.Writer) error {
	meta, err := json.Marshal(s.Metadata)
	if err != nil {
		return fmt.Errorf("snapshot: encode metadata: %w", err)
	}

	if err := writeRows(bins, s.Bins,
		parquet.Compression(&parquet.Zstd),
		parquet.KeyValueMetadata(MetadataKey, string(meta))); err != nil {
		return fmt.Errorf("snapshot: bins: %w", err)
	}

	if err := writeRows(impulse, s.Impulse, parquet.Compression(&parquet.Zstd)); err != nil {
		return fmt.Errorf("snapshot: impulse: %w", err)
	}

	return nil
}

func writeRows[T any](w io.Writer, rows []T, opts ...parquet.WriterOption) error {
	pw := parquet.NewGenericWriter[T](w, opts...)

	if _, err := pw.Write(rows); err != nil {
		_ = pw.Close()

		return err
	}

	return pw.Close()
}

// ReadParquet reads the two files written by WriteParquet. binsSize is
// the length of the bins file.
func ReadParquet(bins io.ReaderAt, binsSize int64, impulse io.ReaderAt) (*Snapshot, error) {
	f, err := parquet.OpenFile(bins, binsSize)
	if err != nil {
		return nil, fmt.Errorf("snapshot: bins: %w", err)
	}

	raw, ok := f.Lookup(MetadataKey)
	if !ok {
		return nil, ErrNoMetadata
	}

	s := &Snapshot{}
	if err := json.Unmarshal([]byte(raw), &s.Metadata); err != nil {
		return nil, fmt.Errorf("snapshot: decode metadata: %w", err)
	}

	if s.Bins, err = readRows[BinRow](bins); err != nil {
		return nil, fmt.Errorf("snapshot: bins: %w", err)
	}

	if s.Impulse, err = readRows[ImpulseRow](impulse); err != nil {
		return nil, fmt.Errorf("snapshot: impulse: %w", err)
	}

	return s, nil
}

func readRows[T any](ra io.ReaderAt) ([]T, error) {
	gr := parquet.NewGenericReader[T](ra)
	defer gr.Close()

	out := make([]T, 0, gr.NumRows())
	batch := make([]T, readBatch)

	for {
		n, err := gr.Read(batch)
		out = append(out, batch[:n]...)

		if errors.Is(err, io.EOF) {
			return out, nil
		}

		if err != nil {
			return nil, err
		}
	}
}
