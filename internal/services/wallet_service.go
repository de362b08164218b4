package services

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"escrow-service/internal/models"
	"escrow-service/internal/repository"
	"escrow-service/pkg/apperrors"
	"escrow-service/pkg/common"
)

// WalletService owns every balance mutation. Each public method runs in its
// own transaction; the lower-case variants take a transaction so a mutation
// can commit together with the state change that caused it.
type WalletService struct {
	Store  *repository.Store
	Helper *HelperService
	Logger *zap.Logger
}

func NewWalletService(store *repository.Store, helper *HelperService, logger *zap.Logger) *WalletService {
	return &WalletService{Store: store, Helper: helper, Logger: logger}
}

// LedgerEntry describes the history row written for a mutation.
type LedgerEntry struct {
	Type        string
	Description string
	Reference   string
	Status      string
}

func (e LedgerEntry) withDefaults(typ, description string) LedgerEntry {
	if e.Type == "" {
		e.Type = typ
	}
	if e.Description == "" {
		e.Description = description
	}
	return e
}

func (s *WalletService) CreditWallet(ctx context.Context, userID string, amount decimal.Decimal, entry LedgerEntry) (models.Wallet, error) {
	var w models.Wallet
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		w, err = s.credit(ctx, tx, userID, amount, entry)
		return err
	})
	return w, err
}

func (s *WalletService) DebitWalletAtomic(ctx context.Context, userID string, amount decimal.Decimal, entry LedgerEntry) (models.Wallet, error) {
	var w models.Wallet
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		w, err = s.debit(ctx, tx, userID, amount, entry)
		return err
	})
	return w, err
}

// UpdatePendingBalance adds amount (which may be negative) to the pending balance.
func (s *WalletService) UpdatePendingBalance(ctx context.Context, userID string, amount decimal.Decimal, entry LedgerEntry) (models.Wallet, error) {
	var w models.Wallet
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		w, err = s.adjustPending(ctx, tx, userID, amount, entry)
		return err
	})
	return w, err
}

func (s *WalletService) MovePendingToWallet(ctx context.Context, userID string, amount decimal.Decimal, entry LedgerEntry) (models.Wallet, error) {
	var w models.Wallet
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		w, err = s.movePending(ctx, tx, userID, amount, entry)
		return err
	})
	return w, err
}

// ReleaseEscrowWithCommission takes gross out of pending and pays net into
// the wallet. The difference stays with the platform.
func (s *WalletService) ReleaseEscrowWithCommission(ctx context.Context, userID string, gross, net decimal.Decimal, entry LedgerEntry) (models.Wallet, error) {
	var w models.Wallet
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		w, err = s.releaseWithCommission(ctx, tx, userID, gross, net, entry)
		return err
	})
	return w, err
}

// GetWalletBalance never fails: a missing user or a read error yields a zero wallet.
func (s *WalletService) GetWalletBalance(ctx context.Context, userID string) models.Wallet {
	w, err := s.Store.GetWallet(ctx, userID)
	if err != nil {
		apperrors.LogError(s.Logger, err, "failed to read wallet balance", zap.String("user_id", userID))
		return models.EmptyWallet(userID)
	}
	return w
}

// InitializeWallet writes zeroed balances unless any wallet field already exists.
func (s *WalletService) InitializeWallet(ctx context.Context, userID string) (bool, error) {
	created := false
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		_, initialized, err := tx.LockWallet(ctx, userID)
		if err != nil || initialized {
			return err
		}
		created = true
		return tx.SaveWallet(ctx, models.EmptyWallet(userID))
	})
	return created, err
}

func (s *WalletService) GetPaymentHistory(ctx context.Context, userID string, page, limit int) (common.PaginationResult, error) {
	page, limit = common.NormalizePage(page, limit)
	rows, total, err := s.Store.ListHistory(ctx, userID, page, limit)
	if err != nil {
		return common.PaginationResult{}, err
	}
	return common.PaginateResponse(rows, total, page, limit, "Payment history retrieved"), nil
}

func (s *WalletService) credit(ctx context.Context, tx *repository.Store, userID string, amount decimal.Decimal, entry LedgerEntry) (models.Wallet, error) {
	if err := requirePositive(amount); err != nil {
		return models.Wallet{}, err
	}
	w, _, err := tx.LockWallet(ctx, userID)
	if err != nil {
		return w, err
	}
	w.WalletBalance = w.WalletBalance.Add(amount)
	w.TotalEarnings = w.TotalEarnings.Add(amount)

	entry = entry.withDefaults(models.HistoryTypeWalletCredit, "Wallet credited")
	return w, s.commit(ctx, tx, w, amount, entry)
}

func (s *WalletService) debit(ctx context.Context, tx *repository.Store, userID string, amount decimal.Decimal, entry LedgerEntry) (models.Wallet, error) {
	if err := requirePositive(amount); err != nil {
		return models.Wallet{}, err
	}
	w, _, err := tx.LockWallet(ctx, userID)
	if err != nil {
		return w, err
	}
	if amount.GreaterThan(w.WalletBalance) {
		return w, apperrors.InsufficientBalance("Insufficient balance: available R%s, requested R%s",
			w.WalletBalance.StringFixed(2), amount.StringFixed(2))
	}
	w.WalletBalance = w.WalletBalance.Sub(amount)
	w.TotalWithdrawn = w.TotalWithdrawn.Add(amount)

	entry = entry.withDefaults(models.HistoryTypeWalletDebit, "Wallet debited")
	return w, s.commit(ctx, tx, w, amount.Neg(), entry)
}

func (s *WalletService) adjustPending(ctx context.Context, tx *repository.Store, userID string, amount decimal.Decimal, entry LedgerEntry) (models.Wallet, error) {
	if amount.IsZero() {
		return models.Wallet{}, apperrors.Validation("Amount must not be zero")
	}
	w, _, err := tx.LockWallet(ctx, userID)
	if err != nil {
		return w, err
	}
	next := w.PendingBalance.Add(amount)
	if next.IsNegative() {
		return w, apperrors.InsufficientPendingBalance("Insufficient pending balance: pending R%s, requested R%s",
			w.PendingBalance.StringFixed(2), amount.Abs().StringFixed(2))
	}
	w.PendingBalance = next

	if entry.Status == "" {
		entry.Status = models.HistoryStatusPending
	}
	entry = entry.withDefaults(models.HistoryTypePendingAdjustment, "Pending balance updated")
	return w, s.commit(ctx, tx, w, amount, entry)
}

func (s *WalletService) movePending(ctx context.Context, tx *repository.Store, userID string, amount decimal.Decimal, entry LedgerEntry) (models.Wallet, error) {
	if err := requirePositive(amount); err != nil {
		return models.Wallet{}, err
	}
	w, _, err := tx.LockWallet(ctx, userID)
	if err != nil {
		return w, err
	}
	if amount.GreaterThan(w.PendingBalance) {
		return w, apperrors.InsufficientPendingBalance("Insufficient pending balance: pending R%s, requested R%s",
			w.PendingBalance.StringFixed(2), amount.StringFixed(2))
	}
	w.PendingBalance = w.PendingBalance.Sub(amount)
	w.WalletBalance = w.WalletBalance.Add(amount)
	w.TotalEarnings = w.TotalEarnings.Add(amount)

	entry = entry.withDefaults(models.HistoryTypePendingRelease, "Pending funds released to wallet")
	return w, s.commit(ctx, tx, w, amount, entry)
}

func (s *WalletService) releaseWithCommission(ctx context.Context, tx *repository.Store, userID string, gross, net decimal.Decimal, entry LedgerEntry) (models.Wallet, error) {
	if err := requirePositive(gross); err != nil {
		return models.Wallet{}, err
	}
	if net.IsNegative() || net.GreaterThan(gross) {
		return models.Wallet{}, apperrors.Validation("Net amount must be between 0 and the gross amount")
	}
	w, _, err := tx.LockWallet(ctx, userID)
	if err != nil {
		return w, err
	}
	if gross.GreaterThan(w.PendingBalance) {
		return w, apperrors.InsufficientPendingBalance("Insufficient pending balance: pending R%s, release R%s",
			w.PendingBalance.StringFixed(2), gross.StringFixed(2))
	}
	w.PendingBalance = w.PendingBalance.Sub(gross)
	w.WalletBalance = w.WalletBalance.Add(net)
	w.TotalEarnings = w.TotalEarnings.Add(net)

	entry = entry.withDefaults(models.HistoryTypeEscrowReleased, "Escrow released")
	return w, s.commit(ctx, tx, w, net, entry)
}

func (s *WalletService) commit(ctx context.Context, tx *repository.Store, w models.Wallet, signed decimal.Decimal, entry LedgerEntry) error {
	if err := tx.SaveWallet(ctx, w); err != nil {
		return err
	}
	return s.Helper.SaveHistory(ctx, tx, HistoryData{
		UserID:      w.UserID,
		Type:        entry.Type,
		Amount:      signed,
		Status:      entry.Status,
		Description: entry.Description,
		Reference:   entry.Reference,
	})
}

func requirePositive(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.Validation("Amount must be greater than zero")
	}
	return nil
}
