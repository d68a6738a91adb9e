package market

import (
	"errors"

	"paylock/native/common"
)

var (
	errNilState = errors.New("market engine: state not configured")

	// Validation
	ErrInvalidName           = errors.New("market: invalid name")
	ErrInvalidID             = errors.New("market: invalid id")
	ErrInvalidAddress        = errors.New("market: invalid address")
	ErrEmptyContentRef       = errors.New("market: content reference required")
	ErrUnknownOrDisabledType = errors.New("market: unknown or disabled content type")
	ErrPriceBelowMinimum     = errors.New("market: price below minimum")
	ErrPriceAboveMaximum     = errors.New("market: price above maximum")
	ErrShareTooHigh          = errors.New("market: owner fee share too high")
	ErrPriceMismatch         = errors.New("market: price does not match payment")
	ErrZeroAmount            = errors.New("market: amount must be positive")
	ErrUnchangedValue        = errors.New("market: value unchanged")
	ErrIndexOutOfRange       = errors.New("market: index out of range")

	// State preconditions
	ErrContentNotFound     = errors.New("market: content not found")
	ErrContentTypeNotFound = errors.New("market: content type not found")
	ErrAlreadyPurchased    = errors.New("market: content already purchased")
	ErrNotPurchased        = errors.New("market: content not purchased")
	ErrAlreadyKept         = errors.New("market: content already kept")
	ErrAlreadyRefunded     = errors.New("market: content already refunded")
	ErrReentrantCall       = errors.New("market: reentrant call")
	ErrAlreadyInitialised  = errors.New("market: already initialised")
	ErrModulePaused        = common.ErrModulePaused

	// Authorization
	ErrNotAdmin         = errors.New("market: caller is not the administrator")
	ErrNotCreator       = errors.New("market: caller is not the content creator")
	ErrCreatorCannotBuy = errors.New("market: creator cannot buy own content")

	// Temporal
	ErrRefundPeriodExpired    = errors.New("market: refund period expired")
	ErrRefundPeriodNotExpired = errors.New("market: refund period not expired")

	// Funds
	ErrInsufficientPayment = errors.New("market: insufficient payment")
	ErrInsufficientFunds   = errors.New("market: insufficient caller balance")
	ErrInsufficientAccrued = errors.New("market: insufficient accrued balance")
	ErrInsufficientBalance = errors.New("market: insufficient vault balance")
	ErrTransferFailed      = errors.New("market: transfer failed")
)

// Class groups errors by what the caller should do about them.
type Class uint8

const (
	ClassInternal Class = iota
	ClassValidation
	ClassState
	ClassAuthorization
	ClassTemporal
	ClassFunds
)

func (c Class) String() string {
	switch c {
	case ClassValidation:
		return "validation"
	case ClassState:
		return "state"
	case ClassAuthorization:
		return "authorization"
	case ClassTemporal:
		return "temporal"
	case ClassFunds:
		return "funds"
	default:
		return "internal"
	}
}

var errorClasses = []struct {
	err   error
	class Class
}{
	{ErrInvalidName, ClassValidation},
	{ErrInvalidID, ClassValidation},
	{ErrInvalidAddress, ClassValidation},
	{ErrEmptyContentRef, ClassValidation},
	{ErrUnknownOrDisabledType, ClassValidation},
	{ErrPriceBelowMinimum, ClassValidation},
	{ErrPriceAboveMaximum, ClassValidation},
	{ErrShareTooHigh, ClassValidation},
	{ErrPriceMismatch, ClassValidation},
	{ErrZeroAmount, ClassValidation},
	{ErrUnchangedValue, ClassValidation},
	{ErrIndexOutOfRange, ClassValidation},
	{ErrContentNotFound, ClassState},
	{ErrContentTypeNotFound, ClassState},
	{ErrAlreadyPurchased, ClassState},
	{ErrNotPurchased, ClassState},
	{ErrAlreadyKept, ClassState},
	{ErrAlreadyRefunded, ClassState},
	{ErrReentrantCall, ClassState},
	{ErrAlreadyInitialised, ClassState},
	{ErrModulePaused, ClassState},
	{ErrNotAdmin, ClassAuthorization},
	{ErrNotCreator, ClassAuthorization},
	{ErrCreatorCannotBuy, ClassAuthorization},
	{ErrRefundPeriodExpired, ClassTemporal},
	{ErrRefundPeriodNotExpired, ClassTemporal},
	{ErrInsufficientPayment, ClassFunds},
	{ErrInsufficientFunds, ClassFunds},
	{ErrInsufficientAccrued, ClassFunds},
	{ErrInsufficientBalance, ClassFunds},
	{ErrTransferFailed, ClassFunds},
}

// Classify returns the class of a market error. Unknown errors, including
// storage failures, are internal.
func Classify(err error) Class {
	if err == nil {
		return ClassInternal
	}
	for _, entry := range errorClasses {
		if errors.Is(err, entry.err) {
			return entry.class
		}
	}
	return ClassInternal
}
