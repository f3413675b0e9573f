package main

import (
	"flag"
	"fmt"
	"log"
	"sort"

	"github.com/soltixdb/tsfile/internal/config"
	"github.com/soltixdb/tsfile/internal/logging"
	"github.com/soltixdb/tsfile/internal/meta"
	"github.com/soltixdb/tsfile/internal/read"
)

func main() {
	// Command line flags
	file := flag.String("file", "", "TsFile to inspect")
	configPath := flag.String("config", "", "Config file path (optional)")
	table := flag.String("table", "", "Dump series of this table only (optional)")
	showIndex := flag.Bool("index", false, "Dump the device index tree")
	flag.Parse()

	if *file == "" {
		log.Fatal("Error: -file parameter is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error: load config: %v", err)
	}
	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		log.Fatalf("Error: init logging: %v", err)
	}
	logging.SetGlobal(logger)

	r, err := read.Open(*file, cfg, logger, nil)
	if err != nil {
		log.Fatalf("Error: open %s: %v", *file, err)
	}
	defer r.Close()

	fm, err := r.FileMeta()
	if err != nil {
		log.Fatalf("Error: read footer: %v", err)
	}

	fmt.Printf("file: %s (%d bytes)\n", *file, r.IO().FileSize())
	fmt.Printf("meta offset: %d\n", fm.MetaOffset)
	fmt.Printf("tables: %d, schemas: %d, properties: %d\n",
		len(fm.TableIndexRoots), len(fm.TableSchemas), len(fm.Properties))
	for k, v := range fm.Properties {
		fmt.Printf("  property %s = %s\n", k, v)
	}

	tables := make([]string, 0, len(fm.TableIndexRoots))
	for name := range fm.TableIndexRoots {
		tables = append(tables, name)
	}
	sort.Strings(tables)

	for _, name := range tables {
		if *table != "" && name != *table {
			continue
		}
		fmt.Printf("\ntable %q\n", name)
		if schema, ok := fm.TableSchemas[name]; ok {
			for _, c := range schema.Columns {
				fmt.Printf("  column %-20s %-10s %-12s %-12s %s\n",
					c.Name, c.DataType, c.Encoding, c.Compression, c.Category)
			}
		}
		devices, err := read.NewDeviceTaskIterator(r.IO(), name, nil)
		if err != nil {
			log.Fatalf("Error: walk device index of %q: %v", name, err)
		}
		for devices.HasNext() {
			device, err := devices.Next()
			if err != nil {
				log.Fatalf("Error: device iteration: %v", err)
			}
			fmt.Printf("  device %s\n", device)
			metas, err := r.IO().DeviceTimeseriesMetas(device)
			if err != nil {
				log.Fatalf("Error: series of %s: %v", device, err)
			}
			for _, ti := range metas {
				printSeries(ti)
			}
		}
		if *showIndex {
			dumpNode(fm.TableIndexRoots[name], "  ")
		}
	}
}

func printSeries(ti *meta.TimeseriesIndex) {
	name := ti.MeasurementName
	if ti.AlignedTime() {
		name = "<time>"
	}
	st := ti.Statistics
	fmt.Printf("    series %-16s %-10s chunks=%d count=%d range=[%d,%d]\n",
		name, ti.DataType, len(ti.ChunkMetas), st.Count, st.StartTime, st.EndTime)
}

func dumpNode(n *meta.IndexNode, indent string) {
	fmt.Printf("%s%s children=%d end=%d\n", indent, n.NodeType, len(n.Children), n.EndOffset)
	for i := range n.Children {
		c := &n.Children[i]
		if n.NodeType.IsDeviceNode() {
			fmt.Printf("%s  %s -> %d\n", indent, c.Device, c.Offset)
		} else {
			fmt.Printf("%s  %q -> %d\n", indent, c.Name, c.Offset)
		}
	}
}
