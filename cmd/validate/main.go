// Command validate performs integrity checks across produced state partition
// files: parquet readability, time-window containment, missing-value
// normalization, date/datetime agreement, and site-index membership.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -index usgs_all_sites.parquet \
//	  -data-dir state_parquet_3yrs
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/riverspeak/nwis-ingest/internal/adapter/parquetstore"
	"github.com/riverspeak/nwis-ingest/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	indexPath := flag.String("index", "usgs_all_sites.parquet", "path to the site index parquet file")
	dataDir := flag.String("data-dir", "state_parquet_3yrs", "directory containing state partition parquet files")
	windowStart := flag.String("window-start", "2022-11-07T00:00:00Z", "inclusive window start (RFC 3339)")
	windowEnd := flag.String("window-end", "2025-11-07T00:00:00Z", "inclusive window end (RFC 3339)")
	flag.Parse()

	start, err := time.Parse(time.RFC3339, *windowStart)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: parse -window-start: %v\n", err)
		os.Exit(1)
	}
	end, err := time.Parse(time.RFC3339, *windowEnd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: parse -window-end: %v\n", err)
		os.Exit(1)
	}

	if code := run(*indexPath, *dataDir, domain.TimeWindow{Start: start, End: end}); code != 0 {
		os.Exit(code)
	}
}

// partition is one loaded state file.
type partition struct {
	state string
	path  string
	rows  []domain.ObservationRow
}

func run(indexPath, dataDir string, window domain.TimeWindow) int {
	fmt.Println("=== NWIS Partition Integrity Validation ===")
	fmt.Println()

	index, err := parquetstore.LoadSiteIndex(indexPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load site index: %v\n", err)
		return 1
	}

	parts, loadPhase := loadPartitions(dataDir)

	phases := []*phase{
		loadPhase,
		validateWindow(parts, window),
		validateValues(parts),
		validateDates(parts),
		validateSiteMembership(parts, index),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Partitions: %d, rows: %d, indexed sites: %d\n", len(parts), countRows(parts), index.Len())

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i == 20 {
				fmt.Printf("  ... %d more\n", len(p.errors)-20)
				break
			}
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Load ──
// Every committed partition must read back as parquet, with no leftover
// temp files in the directory.

func loadPartitions(dataDir string) ([]partition, *phase) {
	p := &phase{name: "Phase 1: Partition Readability"}

	entries, err := os.ReadDir(dataDir)
	if err != nil {
		p.errorf("read data dir: %v", err)
		return nil, p
	}

	var parts []partition
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".tmp") {
			p.errorf("uncommitted temp file left behind: %s", name)
			continue
		}
		state, ok := stateFromName(name)
		if !ok {
			continue
		}
		path := filepath.Join(dataDir, name)
		rows, err := parquetstore.ReadRows(path)
		if err != nil {
			p.errorf("%s: read parquet: %v", name, err)
			continue
		}
		if len(rows) == 0 {
			p.errorf("%s: committed partition has zero rows", name)
		}
		parts = append(parts, partition{state: state, path: path, rows: rows})
	}

	if len(parts) == 0 {
		p.errorf("no state partition files found in %s", dataDir)
	}

	sort.Slice(parts, func(i, j int) bool { return parts[i].state < parts[j].state })
	return parts, p
}

// stateFromName extracts the state token from states_iv_<ST>_3yrs.parquet.
func stateFromName(name string) (string, bool) {
	const prefix, suffix = "states_iv_", "_3yrs.parquet"
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
		return "", false
	}
	state := strings.TrimSuffix(strings.TrimPrefix(name, prefix), suffix)
	if len(state) != 2 {
		return "", false
	}
	return state, true
}

// ── Phase 2: Window Containment ──
// Every row's timestamp must parse and fall inside the closed window.

func validateWindow(parts []partition, window domain.TimeWindow) *phase {
	p := &phase{name: "Phase 2: Window Containment"}
	for _, part := range parts {
		for i, row := range part.rows {
			t, err := time.Parse(time.RFC3339, row.DateTime)
			if err != nil {
				p.errorf("%s row %d: unparseable datetime %q", part.state, i, row.DateTime)
				continue
			}
			if !window.Contains(t.UTC()) {
				p.errorf("%s row %d: datetime %s outside window [%s, %s]",
					part.state, i, row.DateTime, window.StartDT(), window.EndDT())
			}
		}
	}
	return p
}

// ── Phase 3: Value Normalization ──
// The missing-value sentinel never survives to a partition; it is written
// as an empty string. State and site fields are never empty.

func validateValues(parts []partition) *phase {
	p := &phase{name: "Phase 3: Value Normalization"}
	for _, part := range parts {
		for i, row := range part.rows {
			if row.Value == domain.MissingValueSentinel {
				p.errorf("%s row %d: sentinel value not normalized (site %s, param %s)",
					part.state, i, row.SiteNo, row.ParamCode)
			}
			if row.SiteNo == "" {
				p.errorf("%s row %d: empty site_no", part.state, i)
			}
			if row.State != part.state {
				p.errorf("%s row %d: state column %q does not match partition file", part.state, i, row.State)
			}
			if row.ParamCode == "" {
				p.errorf("%s row %d: empty param_code (site %s)", part.state, i, row.SiteNo)
			}
		}
	}
	return p
}

// ── Phase 4: Date Consistency ──
// The date column must be the datetime truncated at 'T'.

func validateDates(parts []partition) *phase {
	p := &phase{name: "Phase 4: Date Consistency"}
	for _, part := range parts {
		for i, row := range part.rows {
			want, _, found := strings.Cut(row.DateTime, "T")
			if !found {
				p.errorf("%s row %d: datetime %q has no time component", part.state, i, row.DateTime)
				continue
			}
			if row.Date != want {
				p.errorf("%s row %d: date %q disagrees with datetime %q", part.state, i, row.Date, row.DateTime)
			}
		}
	}
	return p
}

// ── Phase 5: Site Membership ──
// Every site in a partition exists in the site index, as a stream site,
// registered under the partition's state.

func validateSiteMembership(parts []partition, index *parquetstore.SiteIndex) *phase {
	p := &phase{name: "Phase 5: Site Index Membership"}
	for _, part := range parts {
		seen := map[string]bool{}
		for _, row := range part.rows {
			if seen[row.SiteNo] {
				continue
			}
			seen[row.SiteNo] = true

			site, ok := index.Lookup(row.SiteNo)
			if !ok {
				p.errorf("%s: site %s not present in site index", part.state, row.SiteNo)
				continue
			}
			if site.SiteTpCd != domain.SiteTypeStream {
				p.errorf("%s: site %s has type %q, expected %q", part.state, row.SiteNo, site.SiteTpCd, domain.SiteTypeStream)
			}
			if site.SourceState != part.state {
				p.errorf("%s: site %s indexed under state %q", part.state, row.SiteNo, site.SourceState)
			}
		}
	}
	return p
}

func countRows(parts []partition) int {
	n := 0
	for _, p := range parts {
		n += len(p.rows)
	}
	return n
}
