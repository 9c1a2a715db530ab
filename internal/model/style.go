package model

import "time"

// MaxPhotoBytes caps the decoded upload size for style generation.
const MaxPhotoBytes = 10 * 1024 * 1024

// StylesPerRequest is the fixed number of suggestions per photo.
const StylesPerRequest = 3

// Style is one generated makeup/hairstyle suggestion.
type Style struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	ImageURL         string    `json:"imageUrl"`
	RawDescription   string    `json:"-"` // full English style text, reused as tutorial input
	Gender           Gender    `json:"-"`
	Tools            []string  `json:"tools,omitempty"`
	EstimatedTimeMin int       `json:"estimatedTimeMin,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// StyleGenerateRequest is the body of POST /api/styles/generate.
type StyleGenerateRequest struct {
	Photo  string `json:"photo" validate:"required"` // base64, decoded size <= MaxPhotoBytes
	Gender Gender `json:"gender" validate:"required,oneof=male female neutral"`
}

// StyleGenerateResponse carries exactly StylesPerRequest suggestions.
type StyleGenerateResponse struct {
	Styles []Style `json:"styles"`
}

// StyleDetailResponse is the shape of GET /api/styles/:styleId.
type StyleDetailResponse struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	ImageURL         string   `json:"imageUrl"`
	RawDescription   string   `json:"rawDescription"`
	Tools            []string `json:"tools"`
	EstimatedTimeMin int      `json:"estimatedTimeMin"`
}
