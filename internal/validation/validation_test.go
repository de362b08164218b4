package validation

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"escrow-service/pkg/apperrors"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestValidateAmount(t *testing.T) {
	min, max := d("50"), d("5000")

	assert.NoError(t, ValidateAmount(d("50"), min, max))
	assert.NoError(t, ValidateAmount(d("5000"), min, max))

	for _, bad := range []string{"0", "-10", "49.99", "5000.01", "100.001"} {
		err := ValidateAmount(d(bad), min, max)
		assert.True(t, apperrors.IsValidation(err), bad)
	}
	assert.NoError(t, ValidateAmount(d("999999"), decimal.Zero, decimal.Zero))
}

func TestValidateDailyLimit(t *testing.T) {
	assert.NoError(t, ValidateDailyLimit(d("4000"), d("1000"), d("5000")))

	err := ValidateDailyLimit(d("4000"), d("1500"), d("5000"))
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "R1000.00 more today")

	err = ValidateDailyLimit(d("6000"), d("1"), d("5000"))
	assert.Contains(t, err.Error(), "R0.00 more today")
}

func TestValidateAccountNumber(t *testing.T) {
	n, err := ValidateAccountNumber("6200 1234-567")
	require.NoError(t, err)
	assert.Equal(t, "62001234567", n)

	for _, bad := range []string{"12345678", "123456789012", "12345abc9", ""} {
		_, err := ValidateAccountNumber(bad)
		assert.Error(t, err, bad)
	}
}

func TestValidateBranchCode(t *testing.T) {
	n, err := ValidateBranchCode("250 655")
	require.NoError(t, err)
	assert.Equal(t, "250655", n)

	_, err = ValidateBranchCode("25065")
	assert.Error(t, err)
	_, err = ValidateBranchCode("2506555")
	assert.Error(t, err)
}

func TestValidateAccountHolder(t *testing.T) {
	name, err := ValidateAccountHolder("  Thandi  O'Neil-Mokoena ")
	require.NoError(t, err)
	assert.Equal(t, "Thandi O'Neil-Mokoena", name)

	_, err = ValidateAccountHolder("J")
	assert.Error(t, err)
	_, err = ValidateAccountHolder("Robert'); DROP TABLE users;--")
	assert.Error(t, err)
	_, err = ValidateAccountHolder(strings.Repeat("a", 101))
	assert.Error(t, err)
}

func TestValidateBankDetails(t *testing.T) {
	out, err := ValidateBankDetails(BankAccount{
		BankName:      "FNB",
		AccountNumber: "62-0012-3456",
		BranchCode:    "250655",
		AccountHolder: "Sipho Dlamini",
	})
	require.NoError(t, err)
	assert.Equal(t, "6200123456", out.AccountNumber)
	assert.Equal(t, "cheque", out.AccountType)

	_, err = ValidateBankDetails(BankAccount{BankName: "FNB"})
	assert.True(t, apperrors.IsValidation(err))

	_, err = ValidateBankDetails(BankAccount{
		BankName: "FNB", AccountNumber: "6200123456", BranchCode: "250655",
		AccountHolder: "Sipho Dlamini", AccountType: "crypto",
	})
	assert.Error(t, err)
}

func TestMaskAccountNumber(t *testing.T) {
	assert.Equal(t, "******3456", MaskAccountNumber("6200123456"))
	assert.Equal(t, "123", MaskAccountNumber("123"))
}

func TestSanitizeText(t *testing.T) {
	cases := map[string]string{
		`<script>alert('x')</script>Work was done`:       "Work was done",
		`<b>bold</b> claim`:                              "bold claim",
		`click <a href="javascript:alert(1)">here</a>`:   "click here",
		`javascript:alert(1)`:                            "alert(1)",
		`<img src=x onerror=alert(1)>missing`:            "missing",
		`name onclick=steal() text`:                      "name steal() text",
		`&lt;script&gt;alert(1)&lt;/script&gt;plain`:     "plain",
		`Fair price & good work`:                         "Fair price & good work",
		`a < b and c > d`:                                "a < b and c > d",
		`budget &lt; 500 but quote &gt; 400`:             "budget < 500 but quote > 400",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeText(in), in)
	}
}

func TestValidateNotes(t *testing.T) {
	_, err := ValidateNotes("too short", 20)
	assert.True(t, apperrors.IsValidation(err))

	_, err = ValidateNotes("<b></b><i></i><script>padding padding padding</script>", 20)
	assert.Error(t, err)

	notes, err := ValidateNotes("Worker delivered every milestone on time.", 20)
	require.NoError(t, err)
	assert.Equal(t, "Worker delivered every milestone on time.", notes)
}

type withdrawalForm struct {
	Amount decimal.Decimal `validate:"positive_amount"`
	Bank   string          `validate:"required"`
}

func TestValidateStruct(t *testing.T) {
	err := ValidateStruct(withdrawalForm{Amount: decimal.Zero})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "Amount must be greater than zero")
	assert.Contains(t, err.Error(), "Bank is required")

	assert.NoError(t, ValidateStruct(withdrawalForm{Amount: d("10"), Bank: "FNB"}))
}
