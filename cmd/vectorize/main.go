package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/danielpatrickdp/featurevec/internal/dataset"
	"github.com/danielpatrickdp/featurevec/internal/evaluator"
	"github.com/danielpatrickdp/featurevec/internal/feature"
	"github.com/danielpatrickdp/featurevec/internal/vectorizer"
)

// #region main

func main() {
	dataPath := flag.String("data", "", "path to JSONL dataset")
	fields := flag.String("fields", "", "comma-separated field names to use as features")
	sparse := flag.Bool("sparse", false, "report sparse (CSR) output instead of dense")
	csvPath := flag.String("csv", "", "write the dense matrix to this CSV file")
	columns := flag.Bool("columns", false, "print the column-to-feature mapping")
	strictUntil := flag.Int("strict-until", evaluator.DefaultStrictUntil, "strict-window length")
	maxErrors := flag.Int("max-errors", evaluator.DefaultMaxErrors, "tolerated failures per feature")
	flag.Parse()

	if *dataPath == "" || *fields == "" {
		fmt.Fprintln(os.Stderr, "usage: vectorize --data points.jsonl --fields a,b,c [--sparse] [--csv out.csv] [--columns]")
		os.Exit(2)
	}

	points, err := dataset.Load(*dataPath)
	if err != nil {
		log.Fatalf("failed to load dataset: %v", err)
	}

	var features []feature.Feature
	for _, name := range strings.Split(*fields, ",") {
		features = append(features, feature.Field(strings.TrimSpace(name)))
	}

	ev := evaluator.NewTolerant(features,
		evaluator.WithStrictWindow(*strictUntil),
		evaluator.WithMaxErrors(*maxErrors))
	v := vectorizer.New(ev)
	ds := evaluator.FromSlice(points)

	if *sparse {
		m, err := v.FitTransformSparse(ds)
		if err != nil {
			log.Fatalf("vectorization failed: %v", err)
		}
		rows, cols := m.Dims()
		fmt.Printf("matrix: %dx%d sparse, %d stored cells\n", rows, cols, m.NNZ())
	} else {
		m, err := v.FitTransform(ds)
		if err != nil {
			log.Fatalf("vectorization failed: %v", err)
		}
		rows, cols := m.Dims()
		fmt.Printf("matrix: %dx%d dense\n", rows, cols)
		if *csvPath != "" {
			if err := writeCSV(*csvPath, m); err != nil {
				log.Fatalf("failed to write csv: %v", err)
			}
			fmt.Printf("wrote %s\n", *csvPath)
		}
	}

	printStats(ev)
	if *columns {
		printColumns(v)
	}
}

// #endregion main

// #region report

func printStats(ev *evaluator.Tolerant) {
	stats := ev.Stats()
	fmt.Printf("alive features: %d\n", len(ev.Alive()))
	if len(stats.Excluded) > 0 {
		fmt.Printf("excluded features: %s\n", strings.Join(stats.Excluded, ", "))
	}
	if len(stats.DiscardedSamples) > 0 {
		fmt.Printf("discarded samples: %d (%s ...)\n",
			len(stats.DiscardedSamples), stats.DiscardedSamples[0])
	}
}

func printColumns(v *vectorizer.Vectorizer) {
	fmt.Printf("\n%-6s  %-20s  %-10s  %s\n", "Col", "Feature", "Kind", "Discriminator")
	for j := 0; j < v.NumColumns(); j++ {
		info, err := v.ColumnInfo(j)
		if err != nil {
			log.Fatalf("column lookup: %v", err)
		}
		disc := info.Label
		if info.Offset >= 0 {
			disc = fmt.Sprintf("[%d]", info.Offset)
		}
		fmt.Printf("%-6d  %-20s  %-10s  %s\n", j, info.Feature, info.Kind, disc)
	}
}

// #endregion report

// #region csv

func writeCSV(path string, m interface {
	Dims() (int, int)
	At(i, j int) float64
}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		parts := make([]string, cols)
		for j := 0; j < cols; j++ {
			parts[j] = fmt.Sprintf("%g", m.At(i, j))
		}
		if _, err := fmt.Fprintln(f, strings.Join(parts, ",")); err != nil {
			return err
		}
	}
	return nil
}

// #endregion csv
