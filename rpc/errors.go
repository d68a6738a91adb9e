package rpc

import (
	"errors"
	"net/http"

	"paylock/core"
	"paylock/native/common"
	"paylock/native/market"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeUnavailable    = -32002
	codeInvalidTx      = -32010
	codeInvalidNonce   = -32011
	codeRateLimited    = -32020
	codeQuotaExceeded  = -32021
)

// Module failures carry the class of the market error.
const (
	codeMarketValidation    = -32100
	codeMarketState         = -32101
	codeMarketAuthorization = -32102
	codeMarketTemporal      = -32103
	codeMarketFunds         = -32104
	codeMarketNotFound      = -32105
)

// admissionError maps a transaction rejected before execution.
func admissionError(err error) *RPCError {
	switch {
	case errors.Is(err, core.ErrInvalidNonce):
		return newError(http.StatusConflict, codeInvalidNonce, err.Error(), nil)
	case errors.Is(err, common.ErrQuotaTxExceeded), errors.Is(err, common.ErrQuotaValueExceeded), errors.Is(err, common.ErrQuotaCounterOverflow):
		return newError(http.StatusTooManyRequests, codeQuotaExceeded, err.Error(), nil)
	case errors.Is(err, core.ErrInvalidSignature):
		return newError(http.StatusUnauthorized, codeInvalidTx, err.Error(), nil)
	case errors.Is(err, core.ErrInvalidTransaction),
		errors.Is(err, core.ErrUnknownTxType),
		errors.Is(err, core.ErrInvalidPayload),
		errors.Is(err, core.ErrUnexpectedValue):
		return newError(http.StatusBadRequest, codeInvalidTx, err.Error(), nil)
	default:
		return newError(http.StatusInternalServerError, codeServerError, "failed to apply transaction", err.Error())
	}
}

// marketError maps an engine error by class.
func marketError(err error, data interface{}) *RPCError {
	if errors.Is(err, market.ErrContentNotFound) || errors.Is(err, market.ErrContentTypeNotFound) {
		return newError(http.StatusNotFound, codeMarketNotFound, err.Error(), data)
	}
	switch market.Classify(err) {
	case market.ClassValidation:
		return newError(http.StatusBadRequest, codeMarketValidation, err.Error(), data)
	case market.ClassState:
		return newError(http.StatusConflict, codeMarketState, err.Error(), data)
	case market.ClassAuthorization:
		return newError(http.StatusForbidden, codeMarketAuthorization, err.Error(), data)
	case market.ClassTemporal:
		return newError(http.StatusConflict, codeMarketTemporal, err.Error(), data)
	case market.ClassFunds:
		return newError(http.StatusPaymentRequired, codeMarketFunds, err.Error(), data)
	default:
		return newError(http.StatusInternalServerError, codeServerError, "internal error", err.Error())
	}
}

func invalidParams(message string, err error) *RPCError {
	var data interface{}
	if err != nil {
		data = err.Error()
	}
	return newError(http.StatusBadRequest, codeInvalidParams, message, data)
}
