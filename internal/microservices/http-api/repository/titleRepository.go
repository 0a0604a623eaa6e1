package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/freemirror/yamdb-final/internal/microservices/http-api/dto"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/models"
)

type TitleRepository interface {
	List(ctx context.Context, f dto.TitleFilter, limit, offset int) ([]models.Title, int64, error)
	GetByID(ctx context.Context, id int64) (*models.Title, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Create(ctx context.Context, t *models.Title, genreIDs []int64) error
	Update(ctx context.Context, t *models.Title, genreIDs []int64, replaceGenres bool) error
	Delete(ctx context.Context, id int64) error
}

type TitleRepo struct {
	db *gorm.DB
}

func NewTitleRepo(db *gorm.DB) *TitleRepo {
	return &TitleRepo{db: db}
}

// applyTitleFilter maps list filters onto predicates. Category and genre go through
// subqueries so the outer select stays on titles only.
func applyTitleFilter(q *gorm.DB, f dto.TitleFilter) *gorm.DB {
	if f.Year != nil {
		q = q.Where("titles.year = ?", *f.Year)
	}
	if f.Category != "" {
		q = q.Where("titles.category_id IN (SELECT id FROM categories WHERE slug = ?)", f.Category)
	}
	if f.Genre != "" {
		q = q.Where(`EXISTS (SELECT 1 FROM genre_titles gt JOIN genres g ON g.id = gt.genre_id
			WHERE gt.title_id = titles.id AND g.slug = ?)`, f.Genre)
	}
	if name := strings.TrimSpace(f.Name); name != "" {
		q = q.Where("LOWER(titles.name) LIKE ? ESCAPE '\\'", containsPattern(name))
	}
	return q
}

func (r *TitleRepo) List(ctx context.Context, f dto.TitleFilter, limit, offset int) ([]models.Title, int64, error) {
	var list []models.Title
	var total int64

	q := applyTitleFilter(r.db.WithContext(ctx).Model(&models.Title{}), f).Session(&gorm.Session{})

	// Count total records
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count titles: %w", err)
	}

	// Fetch paginated results
	if err := q.
		Preload("Category").
		Preload("Genres", func(db *gorm.DB) *gorm.DB { return db.Order("genres.id") }).
		Order("titles.id").
		Limit(limit).
		Offset(offset).
		Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("list titles: %w", err)
	}

	return list, total, nil
}

func (r *TitleRepo) GetByID(ctx context.Context, id int64) (*models.Title, error) {
	var t models.Title
	if err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Genres", func(db *gorm.DB) *gorm.DB { return db.Order("genres.id") }).
		First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TitleRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Title{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check title: %w", err)
	}
	return count > 0, nil
}

// Create inserts the title and one association row per genre in a single transaction.
func (r *TitleRepo) Create(ctx context.Context, t *models.Title, genreIDs []int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(t).Error; err != nil {
			return fmt.Errorf("create title: %w", err)
		}
		return linkGenres(tx, t.ID, genreIDs)
	})
}

// Update saves every column of t. With replaceGenres the association set is deleted
// and recreated from genreIDs (an empty slice clears it); otherwise it is left alone.
func (r *TitleRepo) Update(ctx context.Context, t *models.Title, genreIDs []int64, replaceGenres bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(t).Error; err != nil {
			return fmt.Errorf("update title: %w", err)
		}
		if !replaceGenres {
			return nil
		}
		if err := tx.Where("title_id = ?", t.ID).Delete(&models.GenreTitle{}).Error; err != nil {
			return fmt.Errorf("clear title genres: %w", err)
		}
		return linkGenres(tx, t.ID, genreIDs)
	})
}

func linkGenres(tx *gorm.DB, titleID int64, genreIDs []int64) error {
	if len(genreIDs) == 0 {
		return nil
	}
	links := make([]models.GenreTitle, 0, len(genreIDs))
	for _, id := range genreIDs {
		links = append(links, models.GenreTitle{TitleID: titleID, GenreID: id})
	}
	if err := tx.Create(&links).Error; err != nil {
		return fmt.Errorf("link title genres: %w", err)
	}
	return nil
}

// Delete removes the title with its genre links, its reviews and their comments.
func (r *TitleRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("review_id IN (?)", tx.Model(&models.Review{}).Select("id").Where("title_id = ?", id)).
			Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("delete title comments: %w", err)
		}
		if err := tx.Where("title_id = ?", id).Delete(&models.Review{}).Error; err != nil {
			return fmt.Errorf("delete title reviews: %w", err)
		}
		if err := tx.Where("title_id = ?", id).Delete(&models.GenreTitle{}).Error; err != nil {
			return fmt.Errorf("delete title genres: %w", err)
		}
		res := tx.Delete(&models.Title{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete title: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
