package loan

import "errors"

var (
	ErrNotFound               = errors.New("loan not found")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidStatus          = errors.New("invalid loan status")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInsufficientAllowance  = errors.New("insufficient allowance")
	ErrInsufficientCollateral = errors.New("insufficient collateral")
	ErrOracleUnavailable      = errors.New("oracle unavailable")
	ErrStaleData              = errors.New("oracle data stale")
	ErrAdminGuard             = errors.New("caller is not an administrator")
	ErrAlreadyAdmin           = errors.New("address already administrator")
	ErrNotBorrower            = errors.New("caller is not the borrower")
	ErrNotShareholder         = errors.New("caller is not a shareholder")
	ErrAssetMismatch          = errors.New("asset does not match loan")
	ErrValueMismatch          = errors.New("sent value does not match declared amount")
	ErrForeclosureWindowOpen  = errors.New("foreclosure window not elapsed")
	ErrRatioOutOfBand         = errors.New("collateral ratio outside foreclosure band")
)

// Code returns the stable reason code surfaced to callers.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrInvalidInput):
		return "InvalidInput"
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrRatioOutOfBand), errors.Is(err, ErrForeclosureWindowOpen):
		return "InvalidStatus"
	case errors.Is(err, ErrInsufficientFunds):
		return "InsufficientFunds"
	case errors.Is(err, ErrInsufficientAllowance):
		return "InsufficientAllowance"
	case errors.Is(err, ErrInsufficientCollateral):
		return "InsufficientCollateral"
	case errors.Is(err, ErrOracleUnavailable):
		return "OracleUnavailable"
	case errors.Is(err, ErrStaleData):
		return "StaleData"
	case errors.Is(err, ErrAdminGuard), errors.Is(err, ErrNotBorrower), errors.Is(err, ErrNotShareholder):
		return "AdminGuard"
	case errors.Is(err, ErrAlreadyAdmin):
		return "AlreadyAdmin"
	case errors.Is(err, ErrAssetMismatch), errors.Is(err, ErrValueMismatch):
		return "InvalidInput"
	default:
		return "Internal"
	}
}
