// Package validation holds the input rules shared by every write path.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"escrow-service/pkg/apperrors"
)

var (
	digitsOnly     = regexp.MustCompile(`^[0-9]+$`)
	holderName     = regexp.MustCompile(`^[\p{L} '\-]+$`)
	separators     = regexp.MustCompile(`[\s\-]`)
	accountTypes   = map[string]bool{"cheque": true, "current": true, "savings": true, "transmission": true}
	minNotesLength = 20
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("positive_amount", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(decimal.Decimal)
		return ok && d.IsPositive()
	})
	_ = v.RegisterValidation("account_number", func(fl validator.FieldLevel) bool {
		_, err := ValidateAccountNumber(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("branch_code", func(fl validator.FieldLevel) bool {
		_, err := ValidateBranchCode(fl.Field().String())
		return err == nil
	})
	return v
}

// ValidateStruct runs struct tag validation and converts failures to VALIDATION errors.
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return FormatValidationError(err)
	}
	return nil
}

// FormatValidationError turns validator output into one readable message.
func FormatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !apperrors.As(err, &verrs) {
		return apperrors.Validation("%s", err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "positive_amount":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than zero", fe.Field()))
		case "min", "max":
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return apperrors.Validation("%s", strings.Join(msgs, "; "))
}

// ValidateAmount checks amount > 0 and min <= amount <= max. A zero max disables the upper bound.
func ValidateAmount(amount, min, max decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.Validation("Amount must be greater than zero")
	}
	if amount.Round(2).Cmp(amount) != 0 {
		return apperrors.Validation("Amount cannot have more than two decimal places")
	}
	if min.IsPositive() && amount.LessThan(min) {
		return apperrors.Validation("Minimum amount is R%s", min.StringFixed(2))
	}
	if max.IsPositive() && amount.GreaterThan(max) {
		return apperrors.Validation("Maximum amount is R%s", max.StringFixed(2))
	}
	return nil
}

// ValidateDailyLimit rejects a withdrawal that would take the day's total over dailyMax.
func ValidateDailyLimit(dailyWithdrawn, amount, dailyMax decimal.Decimal) error {
	if dailyWithdrawn.Add(amount).LessThanOrEqual(dailyMax) {
		return nil
	}
	remaining := dailyMax.Sub(dailyWithdrawn)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return apperrors.Validation("Daily withdrawal limit of R%s exceeded. You can withdraw up to R%s more today",
		dailyMax.StringFixed(2), remaining.StringFixed(2))
}

// ValidateAccountNumber strips spaces and hyphens and requires 9 to 11 digits.
func ValidateAccountNumber(raw string) (string, error) {
	n := separators.ReplaceAllString(raw, "")
	if !digitsOnly.MatchString(n) || len(n) < 9 || len(n) > 11 {
		return "", apperrors.Validation("Account number must be 9 to 11 digits")
	}
	return n, nil
}

// ValidateBranchCode requires exactly 6 digits.
func ValidateBranchCode(raw string) (string, error) {
	n := separators.ReplaceAllString(raw, "")
	if !digitsOnly.MatchString(n) || len(n) != 6 {
		return "", apperrors.Validation("Branch code must be exactly 6 digits")
	}
	return n, nil
}

// ValidateAccountHolder allows letters, spaces, hyphens and apostrophes, 2 to 100 characters.
func ValidateAccountHolder(raw string) (string, error) {
	name := strings.Join(strings.Fields(raw), " ")
	l := utf8.RuneCountInString(name)
	if l < 2 || l > 100 {
		return "", apperrors.Validation("Account holder name must be between 2 and 100 characters")
	}
	if !holderName.MatchString(name) {
		return "", apperrors.Validation("Account holder name may only contain letters, spaces, hyphens and apostrophes")
	}
	return name, nil
}

// BankAccount is a payout destination as submitted by a user.
type BankAccount struct {
	BankName      string `json:"bankName" validate:"required,max=150"`
	AccountNumber string `json:"accountNumber" validate:"required"`
	BranchCode    string `json:"branchCode" validate:"required"`
	AccountHolder string `json:"accountHolder" validate:"required"`
	AccountType   string `json:"accountType"`
}

// ValidateBankDetails normalizes every field or returns the first failure.
func ValidateBankDetails(in BankAccount) (BankAccount, error) {
	if err := ValidateStruct(in); err != nil {
		return in, err
	}
	var (
		out BankAccount
		err error
	)
	out.BankName = SanitizeText(in.BankName)
	if out.BankName == "" {
		return in, apperrors.Validation("Bank name is required")
	}
	if out.AccountNumber, err = ValidateAccountNumber(in.AccountNumber); err != nil {
		return in, err
	}
	if out.BranchCode, err = ValidateBranchCode(in.BranchCode); err != nil {
		return in, err
	}
	if out.AccountHolder, err = ValidateAccountHolder(in.AccountHolder); err != nil {
		return in, err
	}
	out.AccountType = strings.ToLower(strings.TrimSpace(in.AccountType))
	if out.AccountType == "" {
		out.AccountType = "cheque"
	}
	if !accountTypes[out.AccountType] {
		return in, apperrors.Validation("Unsupported account type: %s", in.AccountType)
	}
	return out, nil
}

// MaskAccountNumber keeps the last four digits.
func MaskAccountNumber(n string) string {
	if len(n) <= 4 {
		return n
	}
	return strings.Repeat("*", len(n)-4) + n[len(n)-4:]
}

// ValidateNotes sanitizes free text and enforces a minimum length.
func ValidateNotes(raw string, minLen int) (string, error) {
	if minLen <= 0 {
		minLen = minNotesLength
	}
	notes := SanitizeText(raw)
	if utf8.RuneCountInString(notes) < minLen {
		return "", apperrors.Validation("Notes must be at least %d characters", minLen)
	}
	return notes, nil
}
