package dto

import (
	"time"

	"github.com/freemirror/yamdb-final/internal/microservices/http-api/models"
)

// CommentRequest for creating or updating a comment
type CommentRequest struct {
	Text *string `json:"text"`
}

// CommentResponse shows the author by username
type CommentResponse struct {
	ID      int64     `json:"id"`
	Text    string    `json:"text"`
	Author  string    `json:"author"`
	PubDate time.Time `json:"pub_date"`
}

// FromModelToCommentResponse converts a Comment model (with Author preloaded) to CommentResponse
func FromModelToCommentResponse(comment *models.Comment) CommentResponse {
	return CommentResponse{
		ID:      comment.ID,
		Text:    comment.Text,
		Author:  comment.Author.Username,
		PubDate: comment.PubDate,
	}
}
