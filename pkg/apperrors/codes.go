package apperrors

const (
	CodeInternal                   = "INTERNAL"
	CodeNotFound                   = "NOT_FOUND"
	CodeInvalidState               = "INVALID_STATE"
	CodeInsufficientBalance        = "INSUFFICIENT_BALANCE"
	CodeInsufficientPendingBalance = "INSUFFICIENT_PENDING_BALANCE"
	CodeValidation                 = "VALIDATION"
	CodeSignatureMismatch          = "SIGNATURE_MISMATCH"
	CodeUpstreamProvider           = "UPSTREAM_PROVIDER"
	CodeUnauthenticated            = "UNAUTHENTICATED"
	CodeForbidden                  = "FORBIDDEN"
)
