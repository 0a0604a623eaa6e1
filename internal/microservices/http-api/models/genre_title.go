package models

// GenreTitle is the explicit join model behind Title.Genres. The pair is the identity.
type GenreTitle struct {
	TitleID int64 `json:"title_id" gorm:"primaryKey;autoIncrement:false"`
	GenreID int64 `json:"genre_id" gorm:"primaryKey;autoIncrement:false;index"`
}

func (GenreTitle) TableName() string {
	return "genre_titles"
}
