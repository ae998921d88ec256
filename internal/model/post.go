package model

import "github.com/jackc/pgx/v5/pgtype"

type Post struct {
	ID         int64              `json:"id"`
	AuthorID   string             `json:"author_id"`
	AuthorName *string            `json:"author_name,omitempty"`
	Caption    string             `json:"caption"`
	MediaURL   *string            `json:"media_url,omitempty"`
	CreatedAt  pgtype.Timestamptz `json:"created_at"`
}
