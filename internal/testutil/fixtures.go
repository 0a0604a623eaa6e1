package testutil

import (
	"testing"

	"gorm.io/gorm"

	"github.com/freemirror/yamdb-final/internal/microservices/http-api/models"
)

// CreateUser inserts an account with the given role.
func CreateUser(t testing.TB, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// CreateSuperuser inserts an account with the superuser flag and the plain user role.
func CreateSuperuser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{
		Username:    username,
		Email:       username + "@example.com",
		Role:        models.RoleUser,
		IsSuperuser: true,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create superuser %s: %v", username, err)
	}
	return u
}

func CreateCategory(t testing.TB, db *gorm.DB, name, slug string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name, Slug: slug}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("create category %s: %v", slug, err)
	}
	return c
}

func CreateGenre(t testing.TB, db *gorm.DB, name, slug string) *models.Genre {
	t.Helper()
	g := &models.Genre{Name: name, Slug: slug}
	if err := db.Create(g).Error; err != nil {
		t.Fatalf("create genre %s: %v", slug, err)
	}
	return g
}

// CreateTitle inserts a title and links it to the given genres.
func CreateTitle(t testing.TB, db *gorm.DB, name string, year int, category *models.Category, genres ...*models.Genre) *models.Title {
	t.Helper()
	title := &models.Title{Name: name, Year: year}
	if category != nil {
		title.CategoryID = &category.ID
	}
	if err := db.Omit("Genres", "Category").Create(title).Error; err != nil {
		t.Fatalf("create title %s: %v", name, err)
	}
	for _, g := range genres {
		if err := db.Create(&models.GenreTitle{TitleID: title.ID, GenreID: g.ID}).Error; err != nil {
			t.Fatalf("link genre %s: %v", g.Slug, err)
		}
	}
	return title
}

func CreateReview(t testing.TB, db *gorm.DB, title *models.Title, author *models.User, score int) *models.Review {
	t.Helper()
	r := &models.Review{TitleID: title.ID, AuthorID: author.ID, Text: "review by " + author.Username, Score: score}
	if err := db.Omit("Author", "Title").Create(r).Error; err != nil {
		t.Fatalf("create review: %v", err)
	}
	return r
}

func CreateComment(t testing.TB, db *gorm.DB, review *models.Review, author *models.User, text string) *models.Comment {
	t.Helper()
	c := &models.Comment{ReviewID: review.ID, AuthorID: author.ID, Text: text}
	if err := db.Omit("Author", "Review").Create(c).Error; err != nil {
		t.Fatalf("create comment: %v", err)
	}
	return c
}
