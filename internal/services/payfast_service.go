package services

import (
	"context"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"escrow-service/internal/config"
	"escrow-service/internal/models"
	"escrow-service/internal/repository"
	"escrow-service/pkg/apperrors"
	"escrow-service/pkg/common"
)

const payFastIntentTTL = 15 * time.Minute

var amountTolerance = decimal.RequireFromString("0.01")

type PayFastService struct {
	Store   *repository.Store
	Funding *FundingService
	Fees    *FeeService
	Helper  *HelperService
	Signer  Signer
	Config  config.PayFastConfig
	HTTP    *common.HTTPClient
	Retry   FundingRetryQueue
	Logger  *zap.Logger

	allowed []*net.IPNet
	now     func() time.Time
}

func NewPayFastService(
	store *repository.Store,
	funding *FundingService,
	fees *FeeService,
	helper *HelperService,
	cfg config.PayFastConfig,
	httpClient *common.HTTPClient,
	retry FundingRetryQueue,
	logger *zap.Logger,
) *PayFastService {
	s := &PayFastService{
		Store:   store,
		Funding: funding,
		Fees:    fees,
		Helper:  helper,
		Signer:  PayFastSigner{Passphrase: cfg.Passphrase},
		Config:  cfg,
		HTTP:    httpClient,
		Retry:   retry,
		Logger:  logger,
		now:     time.Now,
	}
	for _, cidr := range cfg.AllowedCIDRs {
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			logger.Warn("ignoring invalid PayFast CIDR", zap.String("cidr", cidr), zap.Error(err))
			continue
		}
		s.allowed = append(s.allowed, n)
	}
	return s
}

type InitPayFastDTO struct {
	GigID        string `json:"gigId" validate:"required"`
	UserID       string `json:"-" validate:"required"`
	NameFirst    string `json:"nameFirst"`
	NameLast     string `json:"nameLast"`
	EmailAddress string `json:"emailAddress"`
}

type PayFastCheckout struct {
	ActionURL string       `json:"actionUrl"`
	Fields    Payload      `json:"fields"`
	Signature string       `json:"signature"`
	IntentID  string       `json:"intentId"`
	Breakdown FeeBreakdown `json:"breakdown"`
}

// Initialize builds the signed checkout form for the gig owner.
func (s *PayFastService) Initialize(ctx context.Context, dto InitPayFastDTO) (*PayFastCheckout, error) {
	gig, err := s.Store.GetGig(ctx, dto.GigID)
	if err != nil {
		return nil, err
	}
	if gig.EmployerID != dto.UserID {
		return nil, apperrors.Forbidden("Only the gig owner can fund this gig")
	}
	if gig.IsFunded() {
		return nil, apperrors.InvalidState("Gig is already funded (status: %s)", gig.Status)
	}
	app, err := s.Store.FindAcceptedApplication(ctx, gig.ID)
	if err != nil {
		return nil, err
	}
	if app.Status != models.ApplicationStatusAccepted {
		return nil, apperrors.InvalidState("Application cannot be funded with status: %s", app.Status)
	}

	paid := app.Rate(gig.Budget).Round(2)
	if !paid.IsPositive() {
		return nil, apperrors.Validation("Gig has no payable amount")
	}
	cfg, _ := s.Fees.ActiveConfig(ctx)
	breakdown := CalculateFeeBreakdown(paid, cfg)

	now := s.now().UTC()
	intent := &models.PaymentIntent{
		ID:            common.NewID(),
		GigID:         gig.ID,
		ApplicationID: app.ID,
		EmployerID:    gig.EmployerID,
		WorkerID:      app.WorkerID,
		Amount:        paid,
		ChargeAmount:  breakdown.TotalEmployerCost,
		Provider:      models.ProviderPayFast,
		Status:        models.IntentStatusCreated,
		ExpiresAt:     now.Add(payFastIntentTTL),
	}
	if err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.SupersedeOpenIntents(ctx, gig.ID); err != nil {
			return err
		}
		return tx.CreateIntent(ctx, intent)
	}); err != nil {
		return nil, err
	}

	fields := Payload{
		{Key: "merchant_id", Value: s.Config.MerchantID},
		{Key: "merchant_key", Value: s.Config.MerchantKey},
		{Key: "return_url", Value: s.Config.ReturnURL},
		{Key: "cancel_url", Value: s.Config.CancelURL},
		{Key: "notify_url", Value: s.Config.NotifyURL},
		{Key: "name_first", Value: dto.NameFirst},
		{Key: "name_last", Value: dto.NameLast},
		{Key: "email_address", Value: dto.EmailAddress},
		{Key: "m_payment_id", Value: intent.ID},
		{Key: "amount", Value: breakdown.TotalEmployerCost.StringFixed(2)},
		{Key: "item_name", Value: truncate(gig.Title, 100)},
		{Key: "item_description", Value: truncate(gig.Description, 255)},
		{Key: "custom_str1", Value: gig.ID},
		{Key: "custom_str2", Value: dto.UserID},
		{Key: "custom_str3", Value: app.ID},
	}
	var form Payload
	for _, f := range fields {
		if strings.TrimSpace(f.Value) != "" {
			form = append(form, f)
		}
	}
	signature := s.Signer.Sign(form)

	s.Logger.Info("payfast checkout created",
		zap.String("gig_id", gig.ID),
		zap.String("intent_id", intent.ID),
		zap.String("amount", breakdown.TotalEmployerCost.StringFixed(2)))

	return &PayFastCheckout{
		ActionURL: s.Config.ProcessURL(),
		Fields:    append(form, Field{Key: "signature", Value: signature}),
		Signature: signature,
		IntentID:  intent.ID,
		Breakdown: breakdown,
	}, nil
}

// Notification is an ITN as received on the webhook.
type Notification struct {
	Values   url.Values
	SourceIP string
}

// HandleNotification processes an ITN and reports whether it changed or
// confirmed state. It never returns an error: the endpoint always acknowledges.
func (s *PayFastService) HandleNotification(ctx context.Context, n Notification) bool {
	payload := PayloadFromValues(n.Values)
	status := strings.ToUpper(n.Values.Get("payment_status"))
	gigID := n.Values.Get("custom_str1")
	pfPaymentID := n.Values.Get("pf_payment_id")
	log := s.Logger.With(
		zap.String("gig_id", gigID),
		zap.String("pf_payment_id", pfPaymentID),
		zap.String("payment_status", status))

	processed, outcome := s.processNotification(ctx, n, payload, status, log)

	s.Helper.LogCallback(ctx, CallbackData{
		Provider:      models.ProviderPayFast,
		RequestType:   models.CallbackTypeNotification,
		GigID:         gigID,
		TransactionID: pfPaymentID,
		Request:       n.Values,
		Response:      outcome,
		Processed:     processed,
	})
	return processed
}

func (s *PayFastService) processNotification(ctx context.Context, n Notification, payload Payload, status string, log *zap.Logger) (bool, string) {
	if !s.Signer.Verify(payload, n.Values.Get("signature")) {
		err := apperrors.SignatureMismatch("PayFast signature mismatch")
		apperrors.LogError(log, err, "rejected notification")
		return false, err.Error()
	}
	if !s.Config.Sandbox && !s.sourceAllowed(n.SourceIP) {
		log.Warn("rejected notification from unknown source", zap.String("source_ip", n.SourceIP))
		return false, "source not allowed"
	}
	if s.Config.ValidateWithServer {
		if err := s.confirmWithServer(ctx, payload); err != nil {
			apperrors.LogError(log, err, "server confirmation failed")
			return false, err.Error()
		}
	}

	intent, err := s.Store.GetIntent(ctx, n.Values.Get("m_payment_id"))
	if err != nil {
		apperrors.LogError(log, err, "notification for unknown payment")
		return false, err.Error()
	}
	if gigID := n.Values.Get("custom_str1"); gigID != "" && gigID != intent.GigID {
		log.Warn("notification gig does not match payment intent", zap.String("intent_gig_id", intent.GigID))
		return false, "gig mismatch"
	}

	switch status {
	case "COMPLETE":
		gross, err := decimal.NewFromString(n.Values.Get("amount_gross"))
		if err != nil || gross.Sub(intent.ChargeAmount).Abs().GreaterThan(amountTolerance) {
			log.Warn("amount mismatch",
				zap.String("amount_gross", n.Values.Get("amount_gross")),
				zap.String("expected", intent.ChargeAmount.StringFixed(2)))
			return false, "amount mismatch"
		}
		req := FundingRequest{
			GigID:         intent.GigID,
			PaidAmount:    intent.Amount,
			Provider:      models.ProviderPayFast,
			IntentID:      intent.ID,
			TransactionID: n.Values.Get("pf_payment_id"),
			Source:        models.CallbackTypeNotification,
		}
		res, err := s.Funding.ApplyFunding(ctx, req)
		if err != nil {
			apperrors.LogError(log, err, "funding failed, scheduling retry")
			s.scheduleRetry(ctx, req, log)
			return false, err.Error()
		}
		if res.AlreadyFunded {
			return true, "already funded"
		}
		return true, "funded"

	case "CANCELLED", "FAILED":
		if intent.IsTerminal() {
			return true, "intent already " + intent.Status
		}
		if err := s.Store.UpdateIntent(ctx, intent.ID, map[string]interface{}{
			"status":         models.IntentStatusFailed,
			"failure_reason": "payment_status: " + status,
		}); err != nil {
			apperrors.LogError(log, err, "failed to close payment intent")
			return false, err.Error()
		}
		return true, "intent failed"

	default:
		if intent.Status == models.IntentStatusCreated {
			if err := s.Store.UpdateIntent(ctx, intent.ID, map[string]interface{}{
				"status": models.IntentStatusProcessing,
			}); err != nil {
				apperrors.LogError(log, err, "failed to update payment intent")
				return false, err.Error()
			}
		}
		return true, "pending"
	}
}

func (s *PayFastService) scheduleRetry(ctx context.Context, req FundingRequest, log *zap.Logger) {
	if s.Retry == nil {
		return
	}
	if err := s.Retry.EnqueueFundingRetry(ctx, req); err != nil {
		log.Error("failed to enqueue funding retry", zap.Error(err))
	}
}

func (s *PayFastService) sourceAllowed(ip string) bool {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return false
	}
	for _, n := range s.allowed {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}

// confirmWithServer posts the notification back to PayFast, which answers VALID or INVALID.
func (s *PayFastService) confirmWithServer(ctx context.Context, payload Payload) error {
	data := url.Values{}
	for _, f := range payload {
		if f.Key != "signature" {
			data.Set(f.Key, f.Value)
		}
	}
	body, err := s.HTTP.PostForm(ctx, s.Config.ValidateURL(), data, nil)
	if err != nil {
		return apperrors.Upstream(err, "PayFast validation request failed")
	}
	if strings.TrimSpace(string(body)) != "VALID" {
		return apperrors.SignatureMismatch("PayFast rejected notification: %s", strings.TrimSpace(string(body)))
	}
	return nil
}

type VerifyPayFastDTO struct {
	GigID          string `json:"gigId" validate:"required"`
	UserID         string `json:"-" validate:"required"`
	PaymentSuccess bool   `json:"paymentSuccess"`
}

type PayFastVerifyResult struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message"`
	Status     string           `json:"status"`
	PaidAmount *decimal.Decimal `json:"paidAmount,omitempty"`
}

// VerifyFallback lets the gig owner confirm a payment when the ITN is late.
// Only sandbox mode mutates state; in production the ITN is authoritative.
func (s *PayFastService) VerifyFallback(ctx context.Context, dto VerifyPayFastDTO) (*PayFastVerifyResult, error) {
	gig, err := s.Store.GetGig(ctx, dto.GigID)
	if err != nil {
		return nil, err
	}
	if gig.EmployerID != dto.UserID {
		return nil, apperrors.Forbidden("Only the gig owner can verify this payment")
	}
	if !dto.PaymentSuccess {
		return &PayFastVerifyResult{Success: false, Status: "cancelled", Message: "Payment was cancelled"}, nil
	}
	if gig.IsFunded() {
		return &PayFastVerifyResult{Success: true, Status: "funded", Message: "Gig is already funded"}, nil
	}
	if !s.Config.Sandbox {
		return &PayFastVerifyResult{
			Success: false,
			Status:  "waiting_for_provider",
			Message: "Waiting for payment confirmation from PayFast",
		}, nil
	}

	app, err := s.Store.FindAcceptedApplication(ctx, gig.ID)
	if err != nil {
		return nil, err
	}
	paid := gig.Budget
	if app.ProposedRate.Valid && app.ProposedRate.Decimal.IsPositive() {
		paid = app.ProposedRate.Decimal
	}

	req := FundingRequest{
		GigID:      gig.ID,
		PaidAmount: paid.Round(2),
		Provider:   models.ProviderPayFast,
		Source:     models.CallbackTypeFallback,
	}
	res, err := s.Funding.ApplyFunding(ctx, req)
	s.Helper.LogCallback(ctx, CallbackData{
		Provider:    models.ProviderPayFast,
		RequestType: models.CallbackTypeFallback,
		GigID:       gig.ID,
		Request:     dto,
		Response:    res,
		Processed:   err == nil,
	})
	if err != nil {
		return nil, err
	}
	amount := res.PaidAmount
	return &PayFastVerifyResult{Success: true, Status: "funded", Message: "Payment verified", PaidAmount: &amount}, nil
}
