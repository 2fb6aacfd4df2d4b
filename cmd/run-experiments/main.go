package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/danielpatrickdp/featurevec/internal/dataset"
	"github.com/danielpatrickdp/featurevec/internal/evaluator"
	"github.com/danielpatrickdp/featurevec/internal/experiment"
	"github.com/danielpatrickdp/featurevec/internal/feature"
	"github.com/danielpatrickdp/featurevec/internal/vectorizer"
)

// #region main

func main() {
	dbPath := flag.String("db", envOr("FEATUREVEC_DB", "experiments.db"), "path to experiments database")
	configsPath := flag.String("configs", "", "path to JSON file with experiment configurations")
	booking := flag.Int("booking", 600, "booking duration in seconds")
	flag.Parse()

	if *configsPath == "" {
		fmt.Fprintln(os.Stderr, "usage: run-experiments --configs configs.json [--db experiments.db] [--booking seconds]")
		os.Exit(2)
	}

	configs, err := loadConfigs(*configsPath)
	if err != nil {
		log.Fatalf("failed to load configs: %v", err)
	}

	store, err := experiment.NewStore(*dbPath, time.Duration(*booking)*time.Second)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	sum, err := experiment.RunAll(store, configs, vectorizeRunner)
	if err != nil {
		log.Fatalf("run aborted: %v", err)
	}
	fmt.Printf("done: %d ran, %d skipped, %d failed\n", sum.Ran, sum.Skipped, sum.Failed)
}

func loadConfigs(path string) ([]experiment.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read configs %s: %w", path, err)
	}
	var configs []experiment.Config
	if err := json.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("parse configs %s: %w", path, err)
	}
	return configs, nil
}

// #endregion main

// #region runner

// vectorizeRunner runs one experiment: vectorize the configured
// dataset fields and report the resulting shape plus training stats.
func vectorizeRunner(config experiment.Config) (map[string]any, error) {
	dataPath, ok := config["dataset"].(string)
	if !ok {
		return nil, fmt.Errorf("config missing dataset path")
	}
	rawFields, ok := config["fields"].([]any)
	if !ok || len(rawFields) == 0 {
		return nil, fmt.Errorf("config missing fields")
	}

	var features []feature.Feature
	for _, rf := range rawFields {
		name, ok := rf.(string)
		if !ok {
			return nil, fmt.Errorf("field name %v is not a string", rf)
		}
		features = append(features, feature.Field(name))
	}

	points, err := dataset.Load(dataPath)
	if err != nil {
		return nil, err
	}

	ev := evaluator.NewTolerant(features)
	v := vectorizer.New(ev)
	m, err := v.FitTransform(evaluator.FromSlice(points))
	if err != nil {
		return nil, err
	}

	rows, cols := m.Dims()
	stats := ev.Stats().Artifact()
	return map[string]any{
		"rows":              rows,
		"cols":              cols,
		"excluded_features": stats.ExcludedFeatures,
		"discarded_samples": len(stats.DiscardedSampleIDs),
	}, nil
}

// #endregion runner

// #region helpers

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
