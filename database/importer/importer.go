// Package importer bulk-loads the CSV fixtures (category.csv, genre.csv, ...)
// into the database.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/freemirror/yamdb-final/pkg/logger"
)

// Sink receives the converted rows of one table at a time.
type Sink interface {
	CopyRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
}

// Result reports how many rows were loaded per table. Skipped lists files that were absent.
type Result struct {
	Loaded  map[string]int64
	Skipped []string
}

type column struct {
	name string
	// source is the CSV header; empty means the column is filled by fill.
	source   string
	parse    func(string) (any, error)
	fill     func() any
	optional bool
}

type table struct {
	file    string
	name    string
	columns []column
}

func text(s string) (any, error) { return s, nil }

func integer(s string) (any, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("not an integer: %q", s)
	}
	return n, nil
}

// nullableInt maps an empty cell to NULL.
func nullableInt(s string) (any, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	return integer(s)
}

func timestamp(s string) (any, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999Z07:00", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return nil, fmt.Errorf("not a timestamp: %q", s)
}

func role(s string) (any, error) {
	switch r := strings.TrimSpace(s); r {
	case "":
		return "user", nil
	case "user", "moderator", "admin":
		return r, nil
	default:
		return nil, fmt.Errorf("unknown role %q", s)
	}
}

// tables is in foreign-key order.
func tables(now time.Time) []table {
	stamp := func() any { return now }
	return []table{
		{file: "category.csv", name: "categories", columns: []column{
			{name: "id", source: "id", parse: integer},
			{name: "name", source: "name", parse: text},
			{name: "slug", source: "slug", parse: text},
		}},
		{file: "genre.csv", name: "genres", columns: []column{
			{name: "id", source: "id", parse: integer},
			{name: "name", source: "name", parse: text},
			{name: "slug", source: "slug", parse: text},
		}},
		{file: "titles.csv", name: "titles", columns: []column{
			{name: "id", source: "id", parse: integer},
			{name: "name", source: "name", parse: text},
			{name: "year", source: "year", parse: integer},
			{name: "description", source: "description", parse: text, optional: true},
			{name: "category_id", source: "category", parse: nullableInt, optional: true},
		}},
		{file: "genre_title.csv", name: "genre_titles", columns: []column{
			{name: "title_id", source: "title_id", parse: integer},
			{name: "genre_id", source: "genre_id", parse: integer},
		}},
		{file: "users.csv", name: "users", columns: []column{
			{name: "id", source: "id", parse: integer},
			{name: "username", source: "username", parse: text},
			{name: "email", source: "email", parse: text},
			{name: "role", source: "role", parse: role, optional: true},
			{name: "bio", source: "bio", parse: text, optional: true},
			{name: "first_name", source: "first_name", parse: text, optional: true},
			{name: "last_name", source: "last_name", parse: text, optional: true},
			{name: "is_superuser", fill: func() any { return false }},
			{name: "created_at", fill: stamp},
			{name: "updated_at", fill: stamp},
		}},
		{file: "review.csv", name: "reviews", columns: []column{
			{name: "id", source: "id", parse: integer},
			{name: "title_id", source: "title_id", parse: integer},
			{name: "text", source: "text", parse: text},
			{name: "author_id", source: "author", parse: integer},
			{name: "score", source: "score", parse: integer},
			{name: "pub_date", source: "pub_date", parse: timestamp},
		}},
		{file: "comments.csv", name: "comments", columns: []column{
			{name: "id", source: "id", parse: integer},
			{name: "review_id", source: "review_id", parse: integer},
			{name: "text", source: "text", parse: text},
			{name: "author_id", source: "author", parse: integer},
			{name: "pub_date", source: "pub_date", parse: timestamp},
		}},
	}
}

// Load reads every known fixture from dir and hands it to sink, in dependency order.
// Missing files are skipped; any malformed row aborts the load.
func Load(ctx context.Context, dir string, sink Sink) (*Result, error) {
	res := &Result{Loaded: map[string]int64{}}

	for _, t := range tables(time.Now().UTC()) {
		path := filepath.Join(dir, t.file)
		f, err := os.Open(path)
		if errors.Is(err, fs.ErrNotExist) {
			logger.Log.Info("Fixture not found, skipping", zap.String("file", path))
			res.Skipped = append(res.Skipped, t.file)
			continue
		}
		if err != nil {
			return res, fmt.Errorf("open %s: %w", t.file, err)
		}

		columns, rows, err := readTable(f, t)
		f.Close()
		if err != nil {
			return res, fmt.Errorf("%s: %w", t.file, err)
		}

		n, err := sink.CopyRows(ctx, t.name, columns, rows)
		if err != nil {
			return res, fmt.Errorf("copy %s: %w", t.name, err)
		}
		res.Loaded[t.name] = n
		logger.Log.Info("Fixture loaded", zap.String("table", t.name), zap.Int64("rows", n))
	}
	return res, nil
}

func readTable(r io.Reader, t table) ([]string, [][]any, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	// drop optional columns the file does not have so the database defaults apply
	var cols []column
	for _, c := range t.columns {
		if c.source == "" {
			cols = append(cols, c)
			continue
		}
		if _, ok := index[c.source]; ok {
			cols = append(cols, c)
			continue
		}
		if !c.optional {
			return nil, nil, fmt.Errorf("missing column %q", c.source)
		}
	}

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}

	var rows [][]any
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}

		row := make([]any, len(cols))
		for i, c := range cols {
			if c.source == "" {
				row[i] = c.fill()
				continue
			}
			pos := index[c.source]
			if pos >= len(record) {
				return nil, nil, fmt.Errorf("line %d: short record", line)
			}
			v, err := c.parse(record[pos])
			if err != nil {
				return nil, nil, fmt.Errorf("line %d, column %s: %w", line, c.source, err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	return names, rows, nil
}
