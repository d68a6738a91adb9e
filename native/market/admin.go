package market

import (
	"fmt"
	"math/big"
)

// DefaultRefundTimeLimit is one day in seconds.
const DefaultRefundTimeLimit uint64 = 86_400

// Genesis seeds the module configuration.
type Genesis struct {
	Admin           [20]byte
	MinPrice        *big.Int
	RefundTimeLimit uint64
	// ContentTypes are registered after the built-in types.
	ContentTypes []string
}

// InitGenesis writes the initial params and registers the built-in content
// types followed by any configured extras.
func (e *Engine) InitGenesis(genesis Genesis) error {
	return e.execute(func() error {
		_, ok, err := e.state.MarketParamsGet()
		if err != nil {
			return err
		}
		if ok {
			return ErrAlreadyInitialised
		}
		if isZeroAddress(genesis.Admin) {
			return fmt.Errorf("%w: admin required", ErrInvalidAddress)
		}
		minPrice := cloneBigInt(genesis.MinPrice)
		if minPrice.Sign() < 0 || minPrice.Cmp(MaxPrice) > 0 {
			return fmt.Errorf("%w: min price %s", ErrPriceAboveMaximum, minPrice)
		}
		limit := genesis.RefundTimeLimit
		if limit == 0 {
			limit = DefaultRefundTimeLimit
		}
		params := &Params{
			Admin:             genesis.Admin,
			MinPrice:          minPrice,
			RefundTimeLimit:   limit,
			NextContentID:     1,
			NextContentTypeID: 1,
		}
		if err := e.state.MarketParamsPut(params); err != nil {
			return err
		}
		names := append(append([]string(nil), BuiltinContentTypes...), genesis.ContentTypes...)
		for _, name := range names {
			name, err := normalizeTypeName(name)
			if err != nil {
				return err
			}
			if _, err := e.addContentType(params, name); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *Engine) setPaused(caller [20]byte, paused bool) error {
	return e.execute(func() error {
		params, err := e.loadParams()
		if err != nil {
			return err
		}
		if err := e.requireAdmin(params, caller); err != nil {
			return err
		}
		if params.Paused == paused {
			return ErrUnchangedValue
		}
		params.Paused = paused
		if err := e.state.MarketParamsPut(params); err != nil {
			return err
		}
		e.record(PauseChangedEvent(caller, paused))
		return nil
	})
}

// Pause freezes content creation, purchases, refunds and keeps.
func (e *Engine) Pause(caller [20]byte) error { return e.setPaused(caller, true) }

// Unpause lifts a pause.
func (e *Engine) Unpause(caller [20]byte) error { return e.setPaused(caller, false) }

// SetMinPrice updates the floor applied to new listings.
func (e *Engine) SetMinPrice(caller [20]byte, minPrice *big.Int) error {
	next := cloneBigInt(minPrice)
	return e.execute(func() error {
		params, err := e.loadParams()
		if err != nil {
			return err
		}
		if err := e.requireAdmin(params, caller); err != nil {
			return err
		}
		if next.Sign() < 0 {
			return fmt.Errorf("%w: negative min price", ErrZeroAmount)
		}
		if next.Cmp(params.MinPrice) == 0 {
			return ErrUnchangedValue
		}
		if next.Cmp(MaxPrice) > 0 {
			return fmt.Errorf("%w: %s", ErrPriceAboveMaximum, next)
		}
		previous := cloneBigInt(params.MinPrice)
		params.MinPrice = next
		if err := e.state.MarketParamsPut(params); err != nil {
			return err
		}
		e.record(MinPriceUpdatedEvent(previous, next))
		return nil
	})
}

// SetRefundTimeLimit updates the refund window in seconds. It applies to open
// purchases as well as new ones.
func (e *Engine) SetRefundTimeLimit(caller [20]byte, seconds uint64) error {
	return e.execute(func() error {
		params, err := e.loadParams()
		if err != nil {
			return err
		}
		if err := e.requireAdmin(params, caller); err != nil {
			return err
		}
		if seconds == 0 {
			return ErrZeroAmount
		}
		if seconds == params.RefundTimeLimit {
			return ErrUnchangedValue
		}
		previous := params.RefundTimeLimit
		params.RefundTimeLimit = seconds
		if err := e.state.MarketParamsPut(params); err != nil {
			return err
		}
		e.record(RefundTimeLimitUpdatedEvent(previous, seconds))
		return nil
	})
}

// TransferAdmin hands the administrator role to next.
func (e *Engine) TransferAdmin(caller [20]byte, next [20]byte) error {
	return e.execute(func() error {
		params, err := e.loadParams()
		if err != nil {
			return err
		}
		if err := e.requireAdmin(params, caller); err != nil {
			return err
		}
		if isZeroAddress(next) {
			return ErrInvalidAddress
		}
		previous := params.Admin
		params.Admin = next
		if err := e.state.MarketParamsPut(params); err != nil {
			return err
		}
		e.record(AdminTransferredEvent(previous, next))
		return nil
	})
}

// Params returns the current module configuration.
func (e *Engine) Params() (*Params, error) {
	if err := e.read(); err != nil {
		return nil, err
	}
	params, err := e.loadParams()
	if err != nil {
		return nil, err
	}
	return params.Clone(), nil
}
