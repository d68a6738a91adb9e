package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"paylock/core/types"
	"paylock/crypto"
	"paylock/native/market"
	"paylock/services/indexer"
)

type contentIDParams struct {
	ID uint64 `json:"id"`
}

type addressParams struct {
	Address string `json:"address"`
}

type purchaseParams struct {
	ContentID uint64 `json:"contentId"`
	Buyer     string `json:"buyer"`
}

type listEventsParams struct {
	ContentID     uint64   `json:"contentId,omitempty"`
	Account       string   `json:"account,omitempty"`
	Types         []string `json:"types,omitempty"`
	AfterSequence uint64   `json:"afterSequence,omitempty"`
	Limit         int      `json:"limit,omitempty"`
}

// decodeParams strictly decodes the single object parameter of req.
func decodeParams(req *RPCRequest, dst interface{}) *RPCError {
	if len(req.Params) != 1 {
		return invalidParams("parameter object required", nil)
	}
	dec := json.NewDecoder(bytes.NewReader(req.Params[0]))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return invalidParams("invalid parameter object", err)
	}
	return nil
}

func requireNoParams(req *RPCRequest) *RPCError {
	if len(req.Params) != 0 {
		return invalidParams("no parameters expected", nil)
	}
	return nil
}

func parseAddressParam(field, raw string) ([20]byte, *RPCError) {
	addr, err := crypto.ParseAddress(raw)
	if err != nil {
		return addr, invalidParams(field+" must be a bech32 or hex address", err)
	}
	return addr, nil
}

func (s *Server) readMarket(fn func(*market.Engine) error) *RPCError {
	if err := s.node.Market(fn); err != nil {
		return marketError(err, nil)
	}
	return nil
}

func (s *Server) handleSendTransaction(_ context.Context, r *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	if authErr := s.auth.authorize(r); authErr != nil {
		return nil, authErr
	}
	source := clientSource(r, s.cfg.TrustProxyHeaders)
	if !s.limiter.allow(source) {
		s.metrics.RecordThrottle("rate_limit")
		return nil, newError(http.StatusTooManyRequests, codeRateLimited, "transaction rate limit exceeded", source)
	}
	if len(req.Params) != 1 {
		return nil, invalidParams("transaction parameter required", nil)
	}
	var tx types.Transaction
	if err := json.Unmarshal(req.Params[0], &tx); err != nil {
		return nil, invalidParams("invalid transaction format", err)
	}
	receipt, err := s.node.SubmitTransaction(&tx)
	if err != nil {
		rpcErr := admissionError(err)
		if rpcErr.Code == codeQuotaExceeded {
			s.metrics.RecordThrottle("quota_exceeded")
		}
		return nil, rpcErr
	}
	result := receiptResult(receipt)
	if !receipt.Success {
		return nil, marketError(receipt.Err, result)
	}
	return result, nil
}

func (s *Server) handleGetContent(_ context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params contentIDParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	var content *market.Content
	if err := s.readMarket(func(e *market.Engine) error {
		var err error
		content, err = e.Content(params.ID)
		return err
	}); err != nil {
		return nil, err
	}
	return contentResult(content), nil
}

func (s *Server) handleGetContentTypes(_ context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	if err := requireNoParams(req); err != nil {
		return nil, err
	}
	var list []*market.ContentType
	if err := s.readMarket(func(e *market.Engine) error {
		var err error
		list, err = e.ContentTypes()
		return err
	}); err != nil {
		return nil, err
	}
	out := make([]ContentTypeResult, len(list))
	for i, t := range list {
		out[i] = contentTypeResult(t)
	}
	return out, nil
}

func (s *Server) handleGetContentOwners(_ context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params contentIDParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	var owners, buyers [][20]byte
	if err := s.readMarket(func(e *market.Engine) error {
		var err error
		if owners, err = e.ContentOwners(params.ID); err != nil {
			return err
		}
		buyers, err = e.ContentBuyers(params.ID)
		return err
	}); err != nil {
		return nil, err
	}
	return OwnersResult{ContentID: params.ID, Owners: addressList(owners), Buyers: addressList(buyers)}, nil
}

func (s *Server) handleGetPurchase(_ context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params purchaseParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	buyer, rpcErr := parseAddressParam("buyer", params.Buyer)
	if rpcErr != nil {
		return nil, rpcErr
	}
	var state *market.BuyerState
	if err := s.readMarket(func(e *market.Engine) error {
		if _, err := e.Content(params.ContentID); err != nil {
			return err
		}
		var err error
		state, err = e.Purchase(params.ContentID, buyer)
		return err
	}); err != nil {
		return nil, err
	}
	return purchaseResult(params.ContentID, buyer, state), nil
}

func (s *Server) handleGetBalances(_ context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params addressParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	addr, rpcErr := parseAddressParam("address", params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	var balances *market.UserBalances
	if err := s.readMarket(func(e *market.Engine) error {
		var err error
		balances, err = e.UserBalances(addr)
		return err
	}); err != nil {
		return nil, err
	}
	return BalancesResult{
		Address:   crypto.FormatAddress(addr),
		Creator:   amount(balances.Creator),
		Referral:  amount(balances.Referral),
		Owner:     amount(balances.Owner),
		Withdrawn: amount(balances.Withdrawn),
		Available: amount(balances.Available()),
	}, nil
}

func (s *Server) handleGetProtocolBalances(_ context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	if err := requireNoParams(req); err != nil {
		return nil, err
	}
	var result ProtocolBalancesResult
	if err := s.readMarket(func(e *market.Engine) error {
		balances, err := e.ProtocolBalances()
		if err != nil {
			return err
		}
		vault, err := e.VaultBalance()
		if err != nil {
			return err
		}
		result = ProtocolBalancesResult{
			Accumulated:  amount(balances.Accumulated),
			Withdrawn:    amount(balances.Withdrawn),
			Available:    amount(balances.Available()),
			VaultBalance: amount(vault),
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Server) handleGetDeleteCost(_ context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params contentIDParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	var result DeleteCostResult
	if err := s.readMarket(func(e *market.Engine) error {
		cost, err := e.DeleteContentCost(params.ID)
		if err != nil {
			return err
		}
		result = DeleteCostResult{ContentID: params.ID, Cost: amount(cost)}
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Server) handleGetParams(_ context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	if err := requireNoParams(req); err != nil {
		return nil, err
	}
	var result ParamsResult
	if err := s.readMarket(func(e *market.Engine) error {
		params, err := e.Params()
		if err != nil {
			return err
		}
		count, err := e.ContentCount()
		if err != nil {
			return err
		}
		result = ParamsResult{
			Admin:             crypto.FormatAddress(params.Admin),
			MinPrice:          amount(params.MinPrice),
			RefundTimeLimit:   params.RefundTimeLimit,
			Paused:            params.Paused,
			ContentCount:      count,
			NextContentTypeID: params.NextContentTypeID,
		}
		return nil
	}); err != nil {
		return nil, err
	}
	seq, err := s.node.Sequence()
	if err != nil {
		return nil, marketError(err, nil)
	}
	result.Sequence = seq
	return result, nil
}

func (s *Server) handleGetAccount(_ context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params addressParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	addr, rpcErr := parseAddressParam("address", params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	account, err := s.node.Account(addr)
	if err != nil {
		return nil, newError(http.StatusInternalServerError, codeServerError, "failed to load account", err.Error())
	}
	return AccountResult{
		Address: crypto.FormatAddress(addr),
		Nonce:   account.Nonce,
		Balance: amount(account.Balance),
	}, nil
}

func (s *Server) handleListEvents(ctx context.Context, _ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	if s.events == nil {
		return nil, newError(http.StatusServiceUnavailable, codeUnavailable, "event index not configured", nil)
	}
	var params listEventsParams
	if len(req.Params) > 0 {
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
	}
	filter := indexer.Filter{
		ContentID:     params.ContentID,
		Types:         params.Types,
		AfterSequence: params.AfterSequence,
		Limit:         params.Limit,
	}
	if account := strings.TrimSpace(params.Account); account != "" {
		addr, rpcErr := parseAddressParam("account", account)
		if rpcErr != nil {
			return nil, rpcErr
		}
		filter.Account = crypto.FormatAddress(addr)
	}
	records, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, newError(http.StatusInternalServerError, codeServerError, "failed to list events", err.Error())
	}
	out := make([]EventResult, 0, len(records))
	for _, rec := range records {
		evt, err := recordResult(rec)
		if err != nil {
			return nil, newError(http.StatusInternalServerError, codeServerError, "corrupt event record", err.Error())
		}
		out = append(out, evt)
	}
	return out, nil
}
