package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type copied struct {
	table   string
	columns []string
	rows    [][]any
}

type fakeSink struct {
	calls []copied
}

func (s *fakeSink) CopyRows(_ context.Context, table string, columns []string, rows [][]any) (int64, error) {
	s.calls = append(s.calls, copied{table: table, columns: columns, rows: rows})
	return int64(len(rows)), nil
}

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoad_DependencyOrderAndConversion(t *testing.T) {
	dir := t.TempDir()
	// files are written out of order on purpose
	writeFixture(t, dir, "review.csv", "id,title_id,text,author,score,pub_date\n1,1,\"Fine, really\",100,7,2019-09-24T21:08:21.567Z\n")
	writeFixture(t, dir, "titles.csv", "id,name,year,category\n1,Shawshank,1994,1\n2,Untagged,2001,\n")
	writeFixture(t, dir, "category.csv", "id,name,slug\n1,Movie,movie\n")
	writeFixture(t, dir, "users.csv", "id,username,email,role,bio,first_name,last_name\n100,bingobongo,bingo@yamdb.fake,user,,,\n")

	sink := &fakeSink{}
	res, err := Load(context.Background(), dir, sink)
	require.NoError(t, err)

	var order []string
	for _, c := range sink.calls {
		order = append(order, c.table)
	}
	assert.Equal(t, []string{"categories", "titles", "users", "reviews"}, order)
	assert.ElementsMatch(t, []string{"genre.csv", "genre_title.csv", "comments.csv"}, res.Skipped)
	assert.Equal(t, int64(2), res.Loaded["titles"])

	titles := sink.calls[1]
	assert.Equal(t, []string{"id", "name", "year", "category_id"}, titles.columns)
	assert.Equal(t, []any{int64(1), "Shawshank", int64(1994), int64(1)}, titles.rows[0])
	assert.Nil(t, titles.rows[1][3])

	users := sink.calls[2]
	assert.Contains(t, users.columns, "created_at")
	assert.Equal(t, "user", users.rows[0][3])

	review := sink.calls[3]
	assert.Equal(t, "Fine, really", review.rows[0][2])
	pubDate, ok := review.rows[0][5].(time.Time)
	require.True(t, ok)
	assert.True(t, pubDate.Equal(time.Date(2019, 9, 24, 21, 8, 21, 567000000, time.UTC)))
}

func TestLoad_RejectsBadRows(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"non numeric year", "titles.csv", "id,name,year\n1,X,soon\n", "line 2, column year"},
		{"missing required column", "category.csv", "id,name\n1,Movie\n", `missing column "slug"`},
		{"unknown role", "users.csv", "id,username,email,role\n1,a,a@b.c,king\n", "unknown role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFixture(t, dir, tt.file, tt.content)

			_, err := Load(context.Background(), dir, &fakeSink{})

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_EmptyDirectory(t *testing.T) {
	sink := &fakeSink{}
	res, err := Load(context.Background(), t.TempDir(), sink)

	require.NoError(t, err)
	assert.Empty(t, sink.calls)
	assert.Len(t, res.Skipped, 7)
}
