package dto

import (
	"net/url"
	"strconv"

	"github.com/freemirror/yamdb-final/internal/microservices/http-api/models"
)

// TitleRequest is the write payload for titles. Category and genres are slugs.
// Genre distinguishes "absent" (nil) from "clear all" (pointer to empty slice).
type TitleRequest struct {
	Name        *string   `json:"name"`
	Year        *int      `json:"year"`
	Description *string   `json:"description"`
	Category    *string   `json:"category"`
	Genre       *[]string `json:"genre"`
}

// TitleResponse is the read representation. Rating is null until the first review.
type TitleResponse struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Year        int               `json:"year"`
	Rating      *float64          `json:"rating"`
	Description string            `json:"description"`
	Genre       []GenreResponse   `json:"genre"`
	Category    *CategoryResponse `json:"category"`
}

func FromModelToTitleResponse(t models.Title, rating *float64) TitleResponse {
	genres := make([]GenreResponse, 0, len(t.Genres))
	for _, g := range t.Genres {
		genres = append(genres, GenreFromModel(g))
	}

	resp := TitleResponse{
		ID:          t.ID,
		Name:        t.Name,
		Year:        t.Year,
		Rating:      rating,
		Description: t.Description,
		Genre:       genres,
	}
	if t.Category != nil {
		c := CategoryFromModel(*t.Category)
		resp.Category = &c
	}
	return resp
}

// TitleFilter holds the list filters; empty fields do not filter.
type TitleFilter struct {
	Year     *int
	Category string
	Genre    string
	Name     string
}

// TitleFilterFromQuery maps ?year=&category=&genre=&name= onto a TitleFilter.
// ok is false when year is not an integer.
func TitleFilterFromQuery(q url.Values) (f TitleFilter, ok bool) {
	f = TitleFilter{
		Category: q.Get("category"),
		Genre:    q.Get("genre"),
		Name:     q.Get("name"),
	}
	if raw := q.Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return f, false
		}
		f.Year = &year
	}
	return f, true
}
