package settings

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("setting not found")

type (
	Repository interface {
		GetSetting(ctx context.Context, typ, key string) (Setting, error)
		QuerySettings(ctx context.Context, typ string) ([]Setting, error)
		UpsertSetting(ctx context.Context, s Setting) (Setting, error)
		DeleteSetting(ctx context.Context, typ, key string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Get(ctx context.Context, typ, key string) (Setting, error) {
	return svc.repo.GetSetting(ctx, typ, key)
}

func (svc *Service) Query(ctx context.Context, typ string) ([]Setting, error) {
	return svc.repo.QuerySettings(ctx, typ)
}

func (svc *Service) Upsert(ctx context.Context, us UpsertSetting) (Setting, error) {
	return svc.repo.UpsertSetting(ctx, Setting{
		Type:      us.Type,
		Key:       us.Key,
		Value:     us.Value,
		UpdatedAt: time.Now().UTC(),
	})
}

func (svc *Service) Delete(ctx context.Context, typ, key string) error {
	return svc.repo.DeleteSetting(ctx, typ, key)
}

// TemplateContent implements the notification pipeline's template source: it
// returns the stored mail template for key, or ok=false when none is
// configured so the renderer falls back to its default.
func (svc *Service) TemplateContent(ctx context.Context, key string) (string, bool) {
	s, err := svc.repo.GetSetting(ctx, TypeMail, key)
	if err != nil || s.Value == "" {
		return "", false
	}
	return s.Value, true
}
