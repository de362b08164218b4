package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"escrow-service/internal/models"
	"escrow-service/pkg/apperrors"
)

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if err := s.conn(ctx).Create(u).Error; err != nil {
		return apperrors.Internal(err, "failed to create user")
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	var u models.User
	if err := s.conn(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return u, notFound(err, "user %s not found", id)
	}
	return u, nil
}

// LockUser selects the user row for update inside a transaction.
func (s *Store) LockUser(ctx context.Context, id string) (models.User, error) {
	var u models.User
	if err := s.forUpdate(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return u, notFound(err, "user %s not found", id)
	}
	return u, nil
}

// LockWallet locks the owning user row and returns the wallet with absent
// fields read as zero. initialized is false when no wallet field was ever written.
func (s *Store) LockWallet(ctx context.Context, userID string) (w models.Wallet, initialized bool, err error) {
	u, err := s.LockUser(ctx, userID)
	if err != nil {
		return models.EmptyWallet(userID), false, err
	}
	return walletFromUser(u), walletInitialized(u), nil
}

func (s *Store) GetWallet(ctx context.Context, userID string) (models.Wallet, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return models.EmptyWallet(userID), err
	}
	return walletFromUser(u), nil
}

// SaveWallet writes all four balance fields.
func (s *Store) SaveWallet(ctx context.Context, w models.Wallet) error {
	res := s.conn(ctx).Model(&models.User{}).Where("id = ?", w.UserID).Updates(map[string]interface{}{
		"wallet_balance":  w.WalletBalance,
		"pending_balance": w.PendingBalance,
		"total_earnings":  w.TotalEarnings,
		"total_withdrawn": w.TotalWithdrawn,
	})
	if res.Error != nil {
		return apperrors.Internal(res.Error, "failed to save wallet")
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("user %s not found", w.UserID)
	}
	return nil
}

func (s *Store) SetTradeSafeToken(ctx context.Context, userID, token string) error {
	err := s.conn(ctx).Model(&models.User{}).Where("id = ?", userID).Update("tradesafe_token", token).Error
	if err != nil {
		return apperrors.Internal(err, "failed to store provider token")
	}
	return nil
}

func walletFromUser(u models.User) models.Wallet {
	return models.Wallet{
		UserID:         u.ID,
		WalletBalance:  orZero(u.WalletBalance),
		PendingBalance: orZero(u.PendingBalance),
		TotalEarnings:  orZero(u.TotalEarnings),
		TotalWithdrawn: orZero(u.TotalWithdrawn),
	}
}

func walletInitialized(u models.User) bool {
	return u.WalletBalance.Valid || u.PendingBalance.Valid || u.TotalEarnings.Valid || u.TotalWithdrawn.Valid
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}
