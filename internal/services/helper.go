package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"escrow-service/internal/models"
	"escrow-service/internal/repository"
	"escrow-service/pkg/common"
)

// HelperService writes the audit trail: payment history rows and provider callback logs.
type HelperService struct {
	Store  *repository.Store
	Logger *zap.Logger
}

func NewHelperService(store *repository.Store, logger *zap.Logger) *HelperService {
	return &HelperService{Store: store, Logger: logger}
}

type HistoryData struct {
	UserID      string
	Type        string
	Amount      decimal.Decimal // signed
	Status      string
	Description string
	Reference   string
}

// SaveHistory appends one history row using tx, so it commits with the mutation it describes.
func (s *HelperService) SaveHistory(ctx context.Context, tx *repository.Store, data HistoryData) error {
	status := data.Status
	if status == "" {
		status = models.HistoryStatusCompleted
	}
	return tx.AppendHistory(ctx, &models.PaymentHistory{
		ID:          common.NewID(),
		UserID:      data.UserID,
		Type:        data.Type,
		Amount:      data.Amount.Round(2),
		Status:      status,
		Description: truncate(data.Description, 255),
		Reference:   data.Reference,
		CreatedAt:   time.Now().UTC(),
	})
}

type CallbackData struct {
	Provider      string
	RequestType   string
	GigID         string
	TransactionID string
	Request       interface{}
	Response      interface{}
	Processed     bool
}

// LogCallback stores a provider interaction. Failures are logged and swallowed.
func (s *HelperService) LogCallback(ctx context.Context, data CallbackData) {
	entry := &models.CallbackLog{
		Provider:      data.Provider,
		RequestType:   data.RequestType,
		GigID:         data.GigID,
		TransactionID: data.TransactionID,
		Request:       toJSON(data.Request),
		Response:      toJSON(data.Response),
		Processed:     data.Processed,
	}
	if err := s.Store.CreateCallbackLog(ctx, entry); err != nil {
		s.Logger.Error("failed to write callback log",
			zap.String("provider", data.Provider),
			zap.String("transaction_id", data.TransactionID),
			zap.Error(err))
	}
}

func toJSON(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
