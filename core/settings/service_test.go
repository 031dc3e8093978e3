package settings_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmonsalve/aula/core/settings"
	dummydb "github.com/tmonsalve/aula/storage/database/dummy"
)

func newService(t *testing.T) *settings.Service {
	t.Helper()
	db, _ := dummydb.Open()
	return settings.NewService(dummydb.NewSettingRepository(db))
}

func TestService_upsert(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	s, err := svc.Upsert(ctx, settings.UpsertSetting{
		Type:  settings.TypeMail,
		Key:   settings.KeyVoucherApproved,
		Value: "Pago confirmado, {{student_name}}!",
	})
	require.NoError(t, err)
	assert.NotZero(t, s.ID)

	// upserting the same (type, key) replaces the value, not the row
	s2, err := svc.Upsert(ctx, settings.UpsertSetting{
		Type:  settings.TypeMail,
		Key:   settings.KeyVoucherApproved,
		Value: "Listo, {{student_name}}!",
	})
	require.NoError(t, err)
	assert.Equal(t, s.ID, s2.ID)

	got, err := svc.Get(ctx, settings.TypeMail, settings.KeyVoucherApproved)
	require.NoError(t, err)
	assert.Equal(t, "Listo, {{student_name}}!", got.Value)

	// same key under another type is a distinct row
	s3, err := svc.Upsert(ctx, settings.UpsertSetting{
		Type:  settings.TypeGeneral,
		Key:   settings.KeyVoucherApproved,
		Value: "unrelated",
	})
	require.NoError(t, err)
	assert.NotEqual(t, s.ID, s3.ID)

	all, err := svc.Query(ctx, settings.TypeMail)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, svc.Delete(ctx, settings.TypeMail, settings.KeyVoucherApproved))
	_, err = svc.Get(ctx, settings.TypeMail, settings.KeyVoucherApproved)
	assert.Equal(t, settings.ErrNotFound, errors.Cause(err))
}

// The settings service doubles as the notification renderer's template
// source: a configured row wins, a missing or blank one defers to defaults.
func TestService_TemplateContent(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, ok := svc.TemplateContent(ctx, settings.KeyVoucherRejected)
	assert.False(t, ok)

	_, err := svc.Upsert(ctx, settings.UpsertSetting{
		Type:  settings.TypeMail,
		Key:   settings.KeyVoucherRejected,
		Value: "Lo sentimos {{student_name}}: {{reason}}",
	})
	require.NoError(t, err)

	content, ok := svc.TemplateContent(ctx, settings.KeyVoucherRejected)
	assert.True(t, ok)
	assert.Equal(t, "Lo sentimos {{student_name}}: {{reason}}", content)

	// non-mail rows never leak into templates
	_, err = svc.Upsert(ctx, settings.UpsertSetting{
		Type: settings.TypeGeneral, Key: "banner", Value: "hello",
	})
	require.NoError(t, err)
	_, ok = svc.TemplateContent(ctx, "banner")
	assert.False(t, ok)
}
