package repository

import (
	"context"

	"github.com/ejanapp/api/internal/model"
)

// TutorialRepository stores tutorial records keyed by ID.
type TutorialRepository interface {
	Put(ctx context.Context, tutorial *model.Tutorial) error
	Get(ctx context.Context, id string) (*model.Tutorial, error)
}

// StyleRepository stores generated style records keyed by ID.
type StyleRepository interface {
	Put(ctx context.Context, style *model.Style) error
	Get(ctx context.Context, id string) (*model.Style, error)
}
