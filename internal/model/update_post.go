package model

type UpdatePostDTO struct {
	Caption  *string `json:"caption,omitempty" validate:"omitempty,max=2200"`
	MediaURL *string `json:"media_url,omitempty" validate:"omitempty,url"`
}
