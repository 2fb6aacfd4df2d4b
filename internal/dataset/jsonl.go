// Package dataset loads data points from JSON-lines files: one object
// per line, with an optional "pk" field used for diagnostics.
package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/danielpatrickdp/featurevec/internal/feature"
)

// #region load

// Load reads a JSONL file into data points. Blank lines are skipped.
func Load(path string) ([]feature.DataPoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer f.Close()

	var points []feature.DataPoint
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var point map[string]any
		if err := json.Unmarshal([]byte(text), &point); err != nil {
			return nil, fmt.Errorf("parse dataset %s line %d: %w", path, line, err)
		}
		points = append(points, point)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return points, nil
}

// #endregion load
