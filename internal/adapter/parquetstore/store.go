// Package parquetstore persists partition outputs and the master site index
// as snappy-compressed Parquet files.
package parquetstore

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/riverspeak/nwis-ingest/internal/domain"
)

// parallelism for the parquet encoder's marshalling goroutines.
const encoderParallelism = 4

// Store writes one Parquet file per partition under dir. A final file that
// exists and exceeds minBytes is the durable "partition complete" marker.
type Store struct {
	dir      string
	minBytes int64
	logger   *slog.Logger
}

// NewStore creates a partition store rooted at dir, creating it if needed.
func NewStore(dir string, minBytes int64, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Store{dir: dir, minBytes: minBytes, logger: logger}, nil
}

// PartitionPath returns the deterministic output path for a state.
func (s *Store) PartitionPath(state string) string {
	return filepath.Join(s.dir, fmt.Sprintf("states_iv_%s_3yrs.parquet", state))
}

// Completed reports whether the state's output file exists and is large
// enough to be a finished write rather than a truncated one.
func (s *Store) Completed(state string) bool {
	info, err := os.Stat(s.PartitionPath(state))
	if err != nil {
		return false
	}
	return info.Size() > s.minBytes
}

// Write commits the full row set for a state. The file is serialized to a
// temporary path and renamed onto the final path only after a successful
// close, so the resume check can never observe a partial file. Returns the
// final path.
func (s *Store) Write(state string, rows []domain.ObservationRow) (string, error) {
	final := s.PartitionPath(state)
	tmp := final + ".tmp"

	if err := writeRows(tmp, rows); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write partition %s: %w", state, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("commit partition %s: %w", state, err)
	}
	s.logger.Debug("partition committed", "state", state, "rows", len(rows), "path", final)
	return final, nil
}

// ReadPartition loads every row from a committed partition file. Used by
// the validate tool and tests.
func (s *Store) ReadPartition(state string) ([]domain.ObservationRow, error) {
	return ReadRows(s.PartitionPath(state))
}

func writeRows(path string, rows []domain.ObservationRow) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	pw, err := writer.NewParquetWriter(fw, new(domain.ObservationRow), encoderParallelism)
	if err != nil {
		_ = fw.Close()
		return fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i := range rows {
		if err := pw.Write(rows[i]); err != nil {
			_ = fw.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return fmt.Errorf("finalize parquet file: %w", err)
	}
	return fw.Close()
}

// ReadRows loads every observation row from a Parquet file.
func ReadRows(path string) ([]domain.ObservationRow, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(domain.ObservationRow), encoderParallelism)
	if err != nil {
		return nil, fmt.Errorf("create parquet reader: %w", err)
	}
	defer pr.ReadStop()

	rows := make([]domain.ObservationRow, pr.GetNumRows())
	if len(rows) == 0 {
		return nil, nil
	}
	if err := pr.Read(&rows); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return rows, nil
}
