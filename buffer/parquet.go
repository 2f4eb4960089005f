package buffer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"zero/game"
)

// ExampleRow is the on-disk form of a deduplicated training example.
type ExampleRow struct {
	Key        []byte    `parquet:"key"`
	Generation int32     `parquet:"generation"`
	Player     int32     `parquet:"player"`
	Ply        int32     `parquet:"ply"`
	Encoding   []float32 `parquet:"encoding"`
	Policy     []float32 `parquet:"policy"`
	Value      float32   `parquet:"value"`
}

// ExportPath names the export of a run's pool after a generation.
func ExportPath(dir, run string, generation int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%d.parquet", run, generation))
}

// WriteParquet writes examples to path, replacing any existing file atomically.
func WriteParquet(path string, examples []Example) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	rows := make([]ExampleRow, len(examples))
	for i, ex := range examples {
		rows[i] = ExampleRow{
			Key:        ex.Key[:],
			Generation: int32(ex.Generation),
			Player:     int32(ex.Player),
			Ply:        int32(ex.Ply),
			Encoding:   ex.Encoding,
			Policy:     ex.Policy,
			Value:      ex.Value,
		}
	}

	tmpPath := path + ".tmp"
	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", "training_example_v1"),
	); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write parquet: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move parquet into place: %w", err)
	}
	return nil
}

// ReadParquet loads examples written by WriteParquet.
func ReadParquet(path string) ([]Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat parquet: %w", err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[ExampleRow](pf)
	defer reader.Close()

	rows := make([]ExampleRow, 0, reader.NumRows())
	for {
		// Fresh batches each time; the reader may reuse slices inside rows.
		batch := make([]ExampleRow, 256)
		n, err := reader.Read(batch)
		rows = append(rows, batch[:n]...)
		if errors.Is(err, io.EOF) || (err == nil && n == 0) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}

	examples := make([]Example, len(rows))
	for i, row := range rows {
		var key game.Key
		copy(key[:], row.Key)
		examples[i] = Example{
			Key:        key,
			Encoding:   row.Encoding,
			Policy:     row.Policy,
			Value:      row.Value,
			Player:     int(row.Player),
			Ply:        int(row.Ply),
			Generation: int(row.Generation),
		}
	}
	return examples, nil
}
