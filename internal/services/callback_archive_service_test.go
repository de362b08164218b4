package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"escrow-service/internal/models"
)

func TestArchiveCallbackLogs(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	old := models.CallbackLog{Provider: models.ProviderPayFast, RequestType: models.CallbackTypeNotification, GigID: "gig-old", CreatedAt: now.AddDate(0, 0, -200)}
	recent := models.CallbackLog{Provider: models.ProviderTradeSafe, RequestType: models.CallbackTypeVerify, GigID: "gig-new", CreatedAt: now.AddDate(0, 0, -3)}
	require.NoError(t, f.store.CreateCallbackLog(f.ctx, &old))
	require.NoError(t, f.store.CreateCallbackLog(f.ctx, &recent))

	svc := NewCallbackArchiveService(f.store, 0, f.logger)
	svc.now = func() time.Time { return now }

	n, err := svc.ArchiveCallbackLogs(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var remaining []models.CallbackLog
	require.NoError(t, f.store.DB().Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "gig-new", remaining[0].GigID)

	var archived []models.ArchivedCallbackLog
	require.NoError(t, f.store.DB().Find(&archived).Error)
	require.Len(t, archived, 1)
	assert.Equal(t, old.ID, archived[0].ID)
	assert.Equal(t, "gig-old", archived[0].GigID)

	n, err = svc.ArchiveCallbackLogs(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
