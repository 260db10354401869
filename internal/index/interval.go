package index

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var intervalPattern = regexp.MustCompile(`^every\s+(\d+)\s*(s|m|h|d|seconds?|minutes?|hours?|days?)$`)

// ParseRefreshInterval parses expressions like "every 30m" or
// "every 2 hours" into a duration. The smallest accepted interval is one
// minute.
func ParseRefreshInterval(expr string) (time.Duration, error) {
	expr = strings.ToLower(strings.TrimSpace(expr))
	m := intervalPattern.FindStringSubmatch(expr)
	if m == nil {
		return 0, fmt.Errorf("invalid refresh interval %q (want \"every <n> <s|m|h|d>\")", expr)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid refresh interval count %q", m[1])
	}
	var unit time.Duration
	switch m[2][0] {
	case 's':
		unit = time.Second
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	}
	d := time.Duration(n) * unit
	if d < time.Minute {
		return 0, fmt.Errorf("refresh interval %s is below the one minute minimum", d)
	}
	return d, nil
}

// RunPeriodic rescans at a fixed cadence until ctx is done. Meant to run
// on its own goroutine alongside the watcher as a drift corrector.
func (ix *Indexer) RunPeriodic(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := ix.FullScan(ctx); err != nil && ctx.Err() == nil {
				ix.logger.Error("periodic rescan failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}
