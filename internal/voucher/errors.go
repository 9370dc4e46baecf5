package voucher

import "errors"

// Validation failures: the caller sent bad input and nothing was mutated.
var (
	// ErrInvalidAmount indicates a non-positive voucher or redemption amount.
	ErrInvalidAmount = errors.New("voucher: amount must be positive")
	// ErrExpiryInPast indicates an expiry date before today.
	ErrExpiryInPast = errors.New("voucher: expiry date is in the past")
	// ErrRecipientNotFound indicates the target recipient account does not exist.
	ErrRecipientNotFound = errors.New("voucher: recipient not found")
	// ErrVoucherNotFound indicates no voucher matches the given ID or code.
	ErrVoucherNotFound = errors.New("voucher: not found")
	// ErrRequestNotFound indicates no redemption request matches the given ID.
	ErrRequestNotFound = errors.New("voucher: redemption request not found")
	// ErrShopNotFound indicates the shop does not exist or belongs to another vendor.
	ErrShopNotFound = errors.New("voucher: shop not found for vendor")
)

// State conflicts: someone else already acted on the voucher or request, or
// its lifecycle has moved on. Distinct from validation errors so callers can
// tell "bad input" from "too late".
var (
	// ErrVoucherNotSpendable indicates the voucher is redeemed, expired, or past its expiry date.
	ErrVoucherNotSpendable = errors.New("voucher: not spendable")
	// ErrAmountExceedsBalance indicates the amount no longer fits the voucher's remaining value.
	ErrAmountExceedsBalance = errors.New("voucher: amount exceeds remaining balance")
	// ErrPendingRequestExists indicates another redemption request is already awaiting approval.
	ErrPendingRequestExists = errors.New("voucher: a pending redemption request already exists")
	// ErrRequestNotPending indicates the request has already been responded to.
	ErrRequestNotPending = errors.New("voucher: request is no longer pending")
	// ErrRequestExpired indicates the approval window elapsed before the response.
	ErrRequestExpired = errors.New("voucher: request expired")
	// ErrNotRequestRecipient indicates the responder is not the request's recipient.
	ErrNotRequestRecipient = errors.New("voucher: responder is not the request recipient")
	// ErrRecipientMismatch indicates the named recipient does not hold the voucher.
	ErrRecipientMismatch = errors.New("voucher: recipient does not hold this voucher")
)
