package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/danielpatrickdp/featurevec/internal/experiment"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to experiments.db")
	last := flag.Int("last", 20, "show N most recent experiments")
	ticket := flag.String("ticket", "", "show single experiment detail")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/experiments.db [--last N] [--ticket id] [--json]")
		os.Exit(2)
	}

	store, err := experiment.NewStore(*dbPath, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *ticket != "" {
		err = runDetailMode(store, *ticket, *jsonOut)
	} else {
		err = runListMode(store, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	Ticket    string `json:"ticket"`
	ConfigKey string `json:"config_key"`
	Status    string `json:"status"`
	BookedAt  string `json:"booked_at"`
}

func runListMode(store *experiment.Store, last int, jsonOut bool) error {
	records, err := store.List(last)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stderr, "no experiments found")
		return nil
	}

	rows := make([]listRow, len(records))
	for i, rec := range records {
		rows[i] = listRow{
			Ticket:    rec.Ticket,
			ConfigKey: rec.ConfigKey,
			Status:    rec.Status,
			BookedAt:  rec.BookedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}
	fmt.Printf("%-10s  %-34s  %-8s  %s\n", "Ticket", "Config Key", "Status", "Booked")
	fmt.Printf("%-10s+-%-34s+-%-8s+-%s\n",
		"----------", "----------------------------------", "--------", "--------------------")
	for _, r := range rows {
		fmt.Printf("%-10s  %-34s  %-8s  %s\n", shortID(r.Ticket), r.ConfigKey, r.Status, r.BookedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	Ticket   string            `json:"ticket"`
	Status   string            `json:"status"`
	BookedAt string            `json:"booked_at"`
	Config   experiment.Config `json:"config"`
	Results  map[string]any    `json:"results,omitempty"`
	Events   []detailEvent     `json:"events,omitempty"`
}

type detailEvent struct {
	Event     string `json:"event"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt string `json:"created_at"`
}

func runDetailMode(store *experiment.Store, ticket string, jsonOut bool) error {
	records, err := store.List(0x7fffffff)
	if err != nil {
		return err
	}
	var rec *experiment.Record
	for i := range records {
		if records[i].Ticket == ticket {
			rec = &records[i]
			break
		}
	}
	if rec == nil {
		return fmt.Errorf("ticket %s not found", ticket)
	}

	events, err := store.Events(ticket)
	if err != nil {
		return err
	}

	out := detailOutput{
		Ticket:   rec.Ticket,
		Status:   rec.Status,
		BookedAt: rec.BookedAt.Format(time.RFC3339),
		Config:   rec.Config,
		Results:  rec.Results,
	}
	for _, e := range events {
		out.Events = append(out.Events, detailEvent{
			Event:     e.Event,
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		})
	}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Ticket:  %s\n", out.Ticket)
	fmt.Printf("Status:  %s\n", out.Status)
	fmt.Printf("Booked:  %s\n", out.BookedAt)
	fmt.Printf("\nConfig:\n")
	printIndentedJSON(out.Config)
	if out.Results != nil {
		fmt.Printf("\nResults:\n")
		printIndentedJSON(out.Results)
	}
	if len(out.Events) > 0 {
		fmt.Printf("\nEvents:\n")
		for _, e := range out.Events {
			fmt.Printf("  %s  %-8s  %s\n", e.CreatedAt, e.Event, e.Detail)
		}
	}
	return nil
}

// #endregion detail-mode

// #region output

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func printIndentedJSON(v any) {
	data, err := json.MarshalIndent(v, "  ", "  ")
	if err != nil {
		fmt.Printf("  %v\n", v)
		return
	}
	fmt.Printf("  %s\n", string(data))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
