package services

import "errors"

var (
	// ErrInsufficientBalance is returned when a debit or reservation exceeds
	// the user's available cashback.
	ErrInsufficientBalance = errors.New("insufficient cashback balance")

	// ErrAlreadySettled means the order left payment_status=pending before
	// this settlement attempt. Duplicate webhook deliveries land here.
	ErrAlreadySettled = errors.New("order already settled")

	ErrInvalidReferralCode = errors.New("invalid or inactive referral code")
	ErrAlreadyReferred     = errors.New("user already has a referrer")
	ErrSelfReferral        = errors.New("cannot use your own referral code")
)
