package model

type CreatePostDTO struct {
	AuthorID   string  `json:"author_id" validate:"required"`
	AuthorName *string `json:"author_name,omitempty"`
	Caption    string  `json:"caption" validate:"required,max=2200"`
	MediaURL   *string `json:"media_url,omitempty" validate:"omitempty,url"`
}
