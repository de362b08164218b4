package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"escrow-service/internal/models"
	"escrow-service/pkg/apperrors"
)

const (
	disputeReason = "The logo was not delivered in vector format"
	adminNotes    = "Worker delivered every file listed in the brief."
)

// disputedGig funds a R1000 gig and walks it to completion_disputed.
func disputedGig(t *testing.T, f *fixture, svc *DisputeService) (models.Gig, models.GigApplication) {
	t.Helper()
	gig, app := f.seedGig(t, "1000")
	f.fundGig(t, gig)

	_, err := svc.RequestCompletion(f.ctx, app.ID, app.WorkerID)
	require.NoError(t, err)
	disputed, err := svc.DisputeCompletion(f.ctx, app.ID, gig.EmployerID, disputeReason)
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusCompletionDisputed, disputed.Status)
	return gig, app
}

func newDisputes(f *fixture) *DisputeService {
	return NewDisputeService(f.store, f.funding, f.fees, f.logger)
}

func TestResolveDisputeInFavorOfWorker(t *testing.T) {
	f := newFixture(t)
	svc := newDisputes(f)
	gig, app := disputedGig(t, f, svc)

	escrow, err := f.store.FindEscrowByGig(f.ctx, gig.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EscrowStatusDisputed, escrow.Status)

	res, err := svc.ResolveInFavorOfWorker(f.ctx, app.ID, "admin-1", adminNotes)
	require.NoError(t, err)
	require.NotNil(t, res.Release)
	assertAmount(t, "1000.00", res.Release.GrossAmount)
	assertAmount(t, "900.00", res.Release.NetAmount)
	assertAmount(t, "100.00", res.Release.PlatformRetained)

	w := f.walletOf(t, app.WorkerID)
	assertAmount(t, "0.00", w.PendingBalance)
	assertAmount(t, "900.00", w.WalletBalance)

	g, err := f.store.GetGig(f.ctx, gig.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GigStatusCompleted, g.Status)
	assert.Equal(t, models.PaymentStatusReleased, g.PaymentStatus)

	escrow, err = f.store.FindEscrowByGig(f.ctx, gig.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EscrowStatusCompleted, escrow.Status)
	assertAmount(t, "1000.00", escrow.ReleasedAmount)

	resolved, err := f.store.GetApplication(f.ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusCompleted, resolved.Status)
	assert.Equal(t, models.ResolutionWorker, resolved.DisputeResolution)
	assert.Equal(t, "admin-1", resolved.DisputeResolvedBy)
	require.NotNil(t, resolved.DisputeResolvedAt)

	_, err = svc.ResolveInFavorOfWorker(f.ctx, app.ID, "admin-2", adminNotes)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidState(err))
	assert.Contains(t, err.Error(), "already resolved")
	assertAmount(t, "900.00", f.walletOf(t, app.WorkerID).WalletBalance)
}

func TestResolveDisputeInFavorOfEmployer(t *testing.T) {
	f := newFixture(t)
	svc := newDisputes(f)
	gig, app := disputedGig(t, f, svc)

	res, err := svc.ResolveInFavorOfEmployer(f.ctx, app.ID, "admin-1", adminNotes)
	require.NoError(t, err)
	assert.Equal(t, models.ResolutionEmployer, res.Resolution)
	assert.Nil(t, res.Release)

	w := f.walletOf(t, app.WorkerID)
	assertAmount(t, "1000.00", w.PendingBalance)
	assertAmount(t, "0.00", w.WalletBalance)

	back, err := f.store.GetApplication(f.ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusFunded, back.Status)
	assert.Nil(t, back.CompletionRequestedAt)

	escrow, err := f.store.FindEscrowByGig(f.ctx, gig.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EscrowStatusActive, escrow.Status)

	g, err := f.store.GetGig(f.ctx, gig.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GigStatusInProgress, g.Status)

	_, err = svc.ResolveInFavorOfEmployer(f.ctx, app.ID, "admin-1", adminNotes)
	assert.Contains(t, err.Error(), "already resolved")

	// the worker redoes the work and the employer accepts it this time
	_, err = svc.RequestCompletion(f.ctx, app.ID, app.WorkerID)
	require.NoError(t, err)
	release, err := svc.ApproveCompletion(f.ctx, app.ID, gig.EmployerID)
	require.NoError(t, err)
	assertAmount(t, "900.00", release.NetAmount)
	assertAmount(t, "900.00", f.walletOf(t, app.WorkerID).WalletBalance)

	_, err = svc.ApproveCompletion(f.ctx, app.ID, gig.EmployerID)
	assert.True(t, apperrors.IsInvalidState(err))
}

func TestResolveDisputeRequiresNotes(t *testing.T) {
	f := newFixture(t)
	svc := newDisputes(f)
	_, app := disputedGig(t, f, svc)

	_, err := svc.ResolveInFavorOfWorker(f.ctx, app.ID, "admin-1", "too short")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "Notes must be at least 20 characters", err.Error())

	_, err = svc.ResolveInFavorOfEmployer(f.ctx, app.ID, "admin-1", "<p>          </p>x")
	assert.True(t, apperrors.IsValidation(err))

	stillOpen, err := svc.ListDisputes(f.ctx)
	require.NoError(t, err)
	require.Len(t, stillOpen, 1)
	assert.Equal(t, app.ID, stillOpen[0].ID)
}

func TestResolveWithoutDispute(t *testing.T) {
	f := newFixture(t)
	svc := newDisputes(f)
	gig, app := f.seedGig(t, "1000")
	f.fundGig(t, gig)

	_, err := svc.ResolveInFavorOfWorker(f.ctx, app.ID, "admin-1", adminNotes)
	assert.True(t, apperrors.IsInvalidState(err))
	assert.Contains(t, err.Error(), "No open dispute")

	_, err = svc.ResolveInFavorOfWorker(f.ctx, "missing", "admin-1", adminNotes)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCompletionHandshakeGuards(t *testing.T) {
	f := newFixture(t)
	svc := newDisputes(f)
	gig, app := f.seedGig(t, "1000")

	_, err := svc.RequestCompletion(f.ctx, app.ID, app.WorkerID)
	assert.True(t, apperrors.IsInvalidState(err), "unfunded application cannot request completion")

	f.fundGig(t, gig)
	_, err = svc.RequestCompletion(f.ctx, app.ID, gig.EmployerID)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.CodeOf(err))

	_, err = svc.RequestCompletion(f.ctx, app.ID, app.WorkerID)
	require.NoError(t, err)

	_, err = svc.DisputeCompletion(f.ctx, app.ID, gig.EmployerID, "bad")
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.DisputeCompletion(f.ctx, app.ID, app.WorkerID, disputeReason)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.CodeOf(err))
}
