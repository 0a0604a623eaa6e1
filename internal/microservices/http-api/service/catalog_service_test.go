package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freemirror/yamdb-final/internal/microservices/http-api/apperr"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/dto"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/repository"
	"github.com/freemirror/yamdb-final/internal/testutil"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Science Fiction":     "science-fiction",
		"  Rock & Roll!  ":    "rock-roll",
		"Café Crème":          "cafe-creme",
		"already-a_slug":      "already-a-slug",
		"Фантастика":          "",
		"Mixed Фантастика 42": "mixed-42",
	}
	for in, want := range tests {
		assert.Equal(t, want, slugify(in), in)
	}
	long := slugify("a very long name that keeps going well past the fifty character limit")
	assert.LessOrEqual(t, len(long), maxSlugLen)
	assert.NotEqual(t, byte('-'), long[len(long)-1])
}

func TestGenreService_Create(t *testing.T) {
	db := testutil.SetupTestDatabase(t)
	svc := NewGenreService(repository.NewGenreRepo(db))
	ctx := context.Background()

	g, err := svc.Create(ctx, dto.SlugEntityRequest{Name: "Science Fiction"})
	require.NoError(t, err)
	assert.Equal(t, "science-fiction", g.Slug)

	_, err = svc.Create(ctx, dto.SlugEntityRequest{Name: "Sci-Fi", Slug: "science-fiction"})
	assert.Contains(t, fieldErrors(t, err), "slug")

	_, err = svc.Create(ctx, dto.SlugEntityRequest{Name: "Bad", Slug: "bad slug"})
	assert.Contains(t, fieldErrors(t, err), "slug")

	_, err = svc.Create(ctx, dto.SlugEntityRequest{Slug: "noname"})
	assert.Contains(t, fieldErrors(t, err), "name")

	list, total, err := svc.List(ctx, "fic", dto.PageParams{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Science Fiction", list[0].Name)

	require.NoError(t, svc.Delete(ctx, "science-fiction"))
	assert.True(t, apperr.Is(svc.Delete(ctx, "science-fiction"), apperr.KindNotFound))
}

func TestCategoryService_Create(t *testing.T) {
	db := testutil.SetupTestDatabase(t)
	svc := NewCategoryService(repository.NewCategoryRepo(db))
	ctx := context.Background()

	c, err := svc.Create(ctx, dto.SlugEntityRequest{Name: "Books", Slug: "books"})
	require.NoError(t, err)
	assert.Equal(t, "Books", c.Name)

	_, err = svc.Create(ctx, dto.SlugEntityRequest{Name: "Books again", Slug: "books"})
	assert.Contains(t, fieldErrors(t, err), "slug")

	assert.True(t, apperr.Is(svc.Delete(ctx, "films"), apperr.KindNotFound))
	require.NoError(t, svc.Delete(ctx, "books"))
}
