package experiment

import (
	"fmt"
	"log"
)

// #region runner

// Runner executes one experiment configuration and returns its
// results.
type Runner func(Config) (map[string]any, error)

// Summary counts the outcomes of one RunAll pass.
type Summary struct {
	Ran     int
	Skipped int
	Failed  int
}

// RunAll books each configuration, runs the booked ones and stores
// their results. A failing experiment is logged and skipped; the pass
// keeps going. Configurations booked by someone else are skipped
// silently.
func RunAll(store *Store, configs []Config, run Runner) (Summary, error) {
	var sum Summary
	for i, config := range configs {
		ticket, ok, err := store.BookIfAvailable(config)
		if err != nil {
			return sum, fmt.Errorf("booking config %d: %w", i, err)
		}
		if !ok {
			sum.Skipped++
			continue
		}

		results, err := run(config)
		if err != nil {
			sum.Failed++
			log.Printf("experiment %s failed: %v, skipping", ticket, err)
			if logErr := store.LogEvent(ticket, "failed", err.Error()); logErr != nil {
				log.Printf("run log error: %v", logErr)
			}
			continue
		}

		stored, err := store.StoreResults(ticket, results)
		if err != nil {
			return sum, fmt.Errorf("storing results for %s: %w", ticket, err)
		}
		if !stored {
			// Booking expired mid-run and someone else solved it first.
			log.Printf("experiment %s succeeded but was not stored", ticket)
			sum.Skipped++
			continue
		}
		if err := store.LogEvent(ticket, "solved", ""); err != nil {
			log.Printf("run log error: %v", err)
		}
		sum.Ran++
	}
	return sum, nil
}

// #endregion runner
