package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/soltixdb/tsfile/internal/config"
	"github.com/soltixdb/tsfile/internal/logging"
	"github.com/soltixdb/tsfile/internal/model"
	"github.com/soltixdb/tsfile/internal/read"
	"github.com/soltixdb/tsfile/internal/write"
)

func main() {
	// Command line flags
	dir := flag.String("dir", os.TempDir(), "Directory for the benchmark file")
	devices := flag.Int("devices", 10, "Number of devices")
	rows := flag.Int("rows", 100000, "Rows per device")
	batch := flag.Int("batch", 1000, "Tablet batch size")
	seed := flag.Int64("seed", 42, "Random seed")
	keep := flag.Bool("keep", false, "Keep the generated file")
	flag.Parse()

	cfg := config.Default()
	logger := logging.NewProduction()
	logging.SetGlobal(logger)

	path := filepath.Join(*dir, fmt.Sprintf("bench-%d.tsfile", time.Now().UnixNano()))
	if !*keep {
		defer os.Remove(path)
	}

	rng := rand.New(rand.NewSource(*seed))
	totalRows := *devices * *rows

	start := time.Now()
	if err := writeBench(path, cfg, logger, rng, *devices, *rows, *batch); err != nil {
		log.Fatalf("Error: write benchmark: %v", err)
	}
	writeDur := time.Since(start)

	st, err := os.Stat(path)
	if err != nil {
		log.Fatalf("Error: stat %s: %v", path, err)
	}

	start = time.Now()
	readRows, err := readBench(path, cfg, logger, *devices)
	if err != nil {
		log.Fatalf("Error: read benchmark: %v", err)
	}
	readDur := time.Since(start)

	if readRows != totalRows {
		log.Fatalf("Error: wrote %d rows, read back %d", totalRows, readRows)
	}

	fmt.Printf("file:   %s (%d bytes, %.2f bytes/row)\n", path, st.Size(), float64(st.Size())/float64(totalRows))
	fmt.Printf("write:  %d rows in %v (%.0f rows/s)\n", totalRows, writeDur, float64(totalRows)/writeDur.Seconds())
	fmt.Printf("read:   %d rows in %v (%.0f rows/s)\n", readRows, readDur, float64(readRows)/readDur.Seconds())
}

func writeBench(path string, cfg *config.Config, logger *logging.Logger,
	rng *rand.Rand, devices, rows, batch int) error {
	w, err := write.NewWriter(path, cfg, logger)
	if err != nil {
		return err
	}

	columns := []model.ColumnSchema{
		{MeasurementSchema: model.NewMeasurementSchema("region", model.String, model.EncPlain, model.CompUncompressed), Category: model.CategoryTag},
		{MeasurementSchema: model.NewMeasurementSchema("unit", model.String, model.EncPlain, model.CompUncompressed), Category: model.CategoryTag},
		{MeasurementSchema: model.NewMeasurementSchema("power", model.Double, model.EncGorilla, model.CompSnappy), Category: model.CategoryField},
		{MeasurementSchema: model.NewMeasurementSchema("state", model.Int32, model.EncTS2Diff, model.CompLZ4), Category: model.CategoryField},
	}
	schema, err := model.NewTableSchema("plant", columns)
	if err != nil {
		return err
	}
	if err := w.RegisterTable(schema); err != nil {
		return err
	}

	base := time.Now().UnixMilli()
	for d := 0; d < devices; d++ {
		region := fmt.Sprintf("region-%02d", d%4)
		unit := fmt.Sprintf("unit-%04d", d)
		for start := 0; start < rows; start += batch {
			stop := start + batch
			if stop > rows {
				stop = rows
			}
			tablet := model.NewTablet("plant", columns, stop-start)
			for i := start; i < stop; i++ {
				row, err := tablet.AddRow(base + int64(i))
				if err != nil {
					return err
				}
				if err := tablet.SetValue(row, 0, region); err != nil {
					return err
				}
				if err := tablet.SetValue(row, 1, unit); err != nil {
					return err
				}
				if err := tablet.SetValue(row, 2, rng.NormFloat64()*100); err != nil {
					return err
				}
				if err := tablet.SetValue(row, 3, int32(rng.Intn(5))); err != nil {
					return err
				}
			}
			if err := w.WriteTable(tablet); err != nil {
				return err
			}
		}
	}
	return w.Close()
}

func readBench(path string, cfg *config.Config, logger *logging.Logger, devices int) (int, error) {
	r, err := read.Open(path, cfg, logger, read.NewChunkCache(cfg.Read.ChunkCacheCapacity))
	if err != nil {
		return 0, err
	}
	defer r.Close()

	rs, err := r.QueryTable("plant", []string{"region", "unit", "power", "state"},
		nil, nil, nil, read.DeviceOrder)
	if err != nil {
		return 0, err
	}
	defer rs.Close()

	total := 0
	for {
		block, err := rs.Next()
		if err != nil {
			if read.IsNoMoreData(err) {
				break
			}
			return 0, err
		}
		total += block.RowCount()
	}
	return total, nil
}
