// csvpush imports measurement CSV exports into a running RDP service.
//
// It reads a comma-separated file with a header row and POSTs one JSON
// sample per mapped cell to the service's values endpoint. Two mapping
// modes are available:
//
// A data column carries the value type id of each row:
//
//	csvpush -file export.csv -type-column station -value-column FFX
//
// Or fixed column-to-type assignments, one sample per mapped column:
//
//	csvpush -file export.csv -types FFX=1,LT2=2,PPX=3
//
// Rows the service rejects are logged and counted; the exit code is
// non-zero when any row was lost.
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MaNameJonas/rdp-api/internal/infrastructure/config"
	"github.com/MaNameJonas/rdp-api/internal/infrastructure/logging"
)

// options holds the parsed command line.
type options struct {
	file        string
	url         string
	timeColumn  string
	typeColumn  string
	valueColumn string
	typeMap     map[string]int
	timeout     time.Duration
}

// importStats counts the outcome of one import run.
type importStats struct {
	posted   int // samples the service accepted
	skipped  int // blank cells, not an error
	rejected int // rows or cells that were lost
}

// sample is one measurement extracted from a CSV cell, in the wire
// shape of POST /api/v1/values.
type sample struct {
	Time        int64   `json:"time"`
	Value       float64 `json:"value"`
	ValueTypeID int     `json:"value_type_id"`
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	log := logging.New(config.LoggingConfig{
		Level:  "info",
		Format: "text",
		Output: "stderr",
	}, "dev")

	stats, err := run(opts, log)
	if err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}

	log.Info("import finished",
		"posted", stats.posted,
		"skipped", stats.skipped,
		"rejected", stats.rejected,
	)
	if stats.rejected > 0 {
		os.Exit(1)
	}
}

// parseArgs parses and validates the command line.
//
// Exactly one of the two mapping modes must be selected: either
// -type-column together with -value-column, or -types.
func parseArgs(args []string) (*options, error) {
	fs := flag.NewFlagSet("csvpush", flag.ContinueOnError)
	file := fs.String("file", "", "CSV file to import, or - for stdin")
	url := fs.String("url", "http://localhost:8080", "base URL of the RDP service")
	timeColumn := fs.String("time-column", "time", "header name of the timestamp column")
	typeColumn := fs.String("type-column", "", "header name of the column carrying the value type id")
	valueColumn := fs.String("value-column", "", "header name of the value column (with -type-column)")
	typeSpec := fs.String("types", "", "column=type_id assignments, e.g. FFX=1,LT2=2")
	timeout := fs.Int("timeout", 10, "HTTP timeout in seconds")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts := &options{
		file:        *file,
		url:         strings.TrimRight(*url, "/"),
		timeColumn:  *timeColumn,
		typeColumn:  *typeColumn,
		valueColumn: *valueColumn,
		timeout:     time.Duration(*timeout) * time.Second,
	}

	if opts.file == "" {
		return nil, fmt.Errorf("-file is required")
	}

	usingColumns := opts.typeColumn != "" || opts.valueColumn != ""
	switch {
	case usingColumns && *typeSpec != "":
		return nil, fmt.Errorf("-types cannot be combined with -type-column/-value-column")
	case usingColumns:
		if opts.typeColumn == "" || opts.valueColumn == "" {
			return nil, fmt.Errorf("-type-column and -value-column are used together")
		}
	case *typeSpec != "":
		m, err := parseTypeMap(*typeSpec)
		if err != nil {
			return nil, err
		}
		opts.typeMap = m
	default:
		return nil, fmt.Errorf("either -types or -type-column/-value-column is required")
	}

	return opts, nil
}

// parseTypeMap parses "FFX=1,LT2=2" style column assignments.
func parseTypeMap(spec string) (map[string]int, error) {
	m := make(map[string]int)
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("assignment %q is not column=type_id", pair)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("assignment %q has an empty column name", pair)
		}
		id, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("type id in %q is not numeric", pair)
		}
		m[name] = id
	}
	if len(m) == 0 {
		return nil, fmt.Errorf("no assignments in %q", spec)
	}
	return m, nil
}

// timeLayouts are tried in order. Weather exports commonly omit the
// seconds, which RFC 3339 parsing alone would refuse.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// parseTime converts a CSV timestamp cell to unix seconds. Plain
// integers pass through unchanged.
func parseTime(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return unix, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Unix(), nil
		}
	}
	return 0, fmt.Errorf("unrecognised timestamp %q", raw)
}

// run opens the input and streams it to the service.
func run(opts *options, log *logging.Logger) (importStats, error) {
	var in io.Reader
	if opts.file == "-" {
		in = os.Stdin
	} else {
		f, err := os.Open(opts.file)
		if err != nil {
			return importStats{}, fmt.Errorf("opening CSV: %w", err)
		}
		defer f.Close()
		in = f
	}

	client := &http.Client{Timeout: opts.timeout}
	push := func(s sample) error {
		return postSample(client, opts.url, s)
	}
	return importCSV(in, opts, push, log)
}

// mappedColumn pairs a header index with its assigned value type.
type mappedColumn struct {
	name   string
	idx    int
	typeID int
}

// importCSV reads the export and pushes one sample per mapped cell.
//
// Header problems (a configured column missing from the file) abort
// the import; row-level problems are logged, counted and skipped so
// one bad line cannot sink a multi-year export.
func importCSV(r io.Reader, opts *options, push func(sample) error, log *logging.Logger) (importStats, error) {
	var stats importStats

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return stats, fmt.Errorf("reading header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}

	timeIdx, ok := cols[opts.timeColumn]
	if !ok {
		return stats, fmt.Errorf("column %q not in header", opts.timeColumn)
	}

	// Resolve configured columns up front so a typo fails before
	// anything is posted.
	var typeIdx, valueIdx int
	var mapped []mappedColumn
	if opts.typeColumn != "" {
		if typeIdx, ok = cols[opts.typeColumn]; !ok {
			return stats, fmt.Errorf("column %q not in header", opts.typeColumn)
		}
		if valueIdx, ok = cols[opts.valueColumn]; !ok {
			return stats, fmt.Errorf("column %q not in header", opts.valueColumn)
		}
	} else {
		for name, id := range opts.typeMap {
			idx, ok := cols[name]
			if !ok {
				return stats, fmt.Errorf("column %q not in header", name)
			}
			mapped = append(mapped, mappedColumn{name: name, idx: idx, typeID: id})
		}
		// Map iteration order is random; post in file column order
		sort.Slice(mapped, func(i, j int) bool { return mapped[i].idx < mapped[j].idx })
	}

	line := 1
	for {
		record, readErr := cr.Read()
		if readErr == io.EOF {
			break
		}
		line++
		if readErr != nil {
			log.Warn("skipping malformed row", "line", line, "error", readErr)
			stats.rejected++
			continue
		}

		unix, err := parseTime(record[timeIdx])
		if err != nil {
			log.Warn("skipping row", "line", line, "error", err)
			stats.rejected++
			continue
		}

		if opts.typeColumn != "" {
			typeID, typeErr := strconv.Atoi(strings.TrimSpace(record[typeIdx]))
			if typeErr != nil {
				log.Warn("skipping row with non-numeric type id",
					"line", line, "type", record[typeIdx])
				stats.rejected++
				continue
			}
			importCell(&stats, log, push, line, unix, typeID, record[valueIdx])
			continue
		}
		for _, mc := range mapped {
			importCell(&stats, log, push, line, unix, mc.typeID, record[mc.idx])
		}
	}

	return stats, nil
}

// importCell parses one value cell and pushes it, folding the outcome
// into the running stats. Blank cells are common in sparse exports and
// count as skipped, not rejected.
func importCell(stats *importStats, log *logging.Logger, push func(sample) error, line int, unix int64, typeID int, rawValue string) {
	value := strings.TrimSpace(rawValue)
	if value == "" {
		stats.skipped++
		return
	}

	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Warn("skipping non-numeric value cell", "line", line, "value", value)
		stats.rejected++
		return
	}

	s := sample{Time: unix, Value: v, ValueTypeID: typeID}
	if err := push(s); err != nil {
		log.Warn("sample rejected", "line", line, "value_type_id", typeID, "error", err)
		stats.rejected++
		return
	}
	stats.posted++
}

// postSample POSTs one sample to the values endpoint.
func postSample(client *http.Client, baseURL string, s sample) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding sample: %w", err)
	}

	resp, err := client.Post(baseURL+"/api/v1/values", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("service answered %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
