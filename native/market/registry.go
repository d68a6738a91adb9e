package market

import (
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// BuiltinContentTypes are seeded at genesis with ids 1, 2 and 3.
var BuiltinContentTypes = []string{"TEXT", "IMAGE", "VIDEO"}

// normalizeTypeName returns the NFC form of name. The length limit applies to
// the normalized bytes so equivalent spellings are stored identically.
func normalizeTypeName(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidName)
	}
	name = norm.NFC.String(name)
	if len(name) >= MaxContentTypeNameLength {
		return "", fmt.Errorf("%w: %d bytes", ErrInvalidName, len(name))
	}
	return name, nil
}

func (e *Engine) addContentType(params *Params, name string) (*ContentType, error) {
	if params.NextContentTypeID == 0 {
		params.NextContentTypeID = 1
	}
	contentType := &ContentType{
		ID:      params.NextContentTypeID,
		Name:    name,
		Enabled: true,
		Exists:  true,
	}
	params.NextContentTypeID++
	if err := e.state.MarketContentTypePut(contentType); err != nil {
		return nil, err
	}
	if err := e.state.MarketParamsPut(params); err != nil {
		return nil, err
	}
	e.record(ContentTypeAddedEvent(contentType))
	return contentType, nil
}

// CreateContentType registers a new enabled content type.
func (e *Engine) CreateContentType(caller [20]byte, name string) (*ContentType, error) {
	var created *ContentType
	err := e.execute(func() error {
		params, err := e.loadParams()
		if err != nil {
			return err
		}
		if err := e.requireAdmin(params, caller); err != nil {
			return err
		}
		name, err = normalizeTypeName(name)
		if err != nil {
			return err
		}
		created, err = e.addContentType(params, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created.Clone(), nil
}

// UpdateContentType renames and enables or disables an existing type. Content
// already listed under a disabled type is unaffected.
func (e *Engine) UpdateContentType(caller [20]byte, id uint64, name string, enabled bool) (*ContentType, error) {
	var updated *ContentType
	err := e.execute(func() error {
		params, err := e.loadParams()
		if err != nil {
			return err
		}
		if err := e.requireAdmin(params, caller); err != nil {
			return err
		}
		if id == 0 {
			return ErrInvalidID
		}
		existing, ok, err := e.state.MarketContentTypeGet(id)
		if err != nil {
			return err
		}
		if !ok || existing == nil || !existing.Exists {
			return fmt.Errorf("%w: %d", ErrContentTypeNotFound, id)
		}
		name, err = normalizeTypeName(name)
		if err != nil {
			return err
		}
		updated = existing.Clone()
		updated.Name = name
		updated.Enabled = enabled
		if err := e.state.MarketContentTypePut(updated); err != nil {
			return err
		}
		e.record(ContentTypeUpdatedEvent(updated))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated.Clone(), nil
}

// CreateContent lists new content. The whole attached value, including any
// amount above the base price, accrues to the protocol.
func (e *Engine) CreateContent(caller [20]byte, req CreateContentParams, value *big.Int) (*Content, error) {
	paid := cloneBigInt(value)
	var created *Content
	err := e.execute(func() error {
		params, err := e.loadParams()
		if err != nil {
			return err
		}
		if err := e.requireActive(params); err != nil {
			return err
		}
		if strings.TrimSpace(req.ContentRef) == "" {
			return ErrEmptyContentRef
		}
		contentType, ok, err := e.state.MarketContentTypeGet(req.ContentType)
		if err != nil {
			return err
		}
		if req.ContentType == 0 || !ok || contentType == nil || !contentType.Exists || !contentType.Enabled {
			return fmt.Errorf("%w: %d", ErrUnknownOrDisabledType, req.ContentType)
		}
		basePrice := cloneBigInt(req.BasePrice)
		if basePrice.Cmp(params.MinPrice) < 0 {
			return fmt.Errorf("%w: %s < %s", ErrPriceBelowMinimum, basePrice, params.MinPrice)
		}
		if basePrice.Cmp(MaxPrice) > 0 {
			return fmt.Errorf("%w: %s", ErrPriceAboveMaximum, basePrice)
		}
		if req.ShareOwnFeeBps > MaxShareOwnFeeBps {
			return fmt.Errorf("%w: %d bps", ErrShareTooHigh, req.ShareOwnFeeBps)
		}
		if paid.Cmp(basePrice) < 0 {
			return fmt.Errorf("%w: paid %s, need %s", ErrInsufficientPayment, paid, basePrice)
		}
		if err := e.requireFunds(caller, paid); err != nil {
			return err
		}
		if err := e.collect(caller, paid); err != nil {
			return err
		}

		if params.NextContentID == 0 {
			params.NextContentID = 1
		}
		created = &Content{
			ID:             params.NextContentID,
			ContentType:    req.ContentType,
			ContentRef:     req.ContentRef,
			PreviewRef:     req.PreviewRef,
			BasePrice:      basePrice,
			ActualPrice:    new(big.Int).Set(basePrice),
			ShareOwnFeeBps: req.ShareOwnFeeBps,
			PriceStepBps:   req.PriceStepBps,
			Creator:        caller,
			CreatedAt:      e.now(),
			AutoPreview:    req.PreviewRef == "",
			Exists:         true,
			NSFW:           req.NSFW,
		}
		params.NextContentID++
		if err := e.state.MarketContentPut(created); err != nil {
			return err
		}
		if err := e.state.MarketParamsPut(params); err != nil {
			return err
		}
		if err := e.creditProtocol(paid); err != nil {
			return err
		}
		e.record(ContentCreatedEvent(created, paid))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created.Clone(), nil
}

// ChangeNSFWStatus updates the nsfw flag. The creator and the administrator
// may both change it.
func (e *Engine) ChangeNSFWStatus(caller [20]byte, contentID uint64, nsfw bool) error {
	return e.execute(func() error {
		content, err := e.loadContent(contentID)
		if err != nil {
			return err
		}
		params, err := e.loadParams()
		if err != nil {
			return err
		}
		if caller != content.Creator && (isZeroAddress(params.Admin) || caller != params.Admin) {
			return ErrNotCreator
		}
		content.NSFW = nsfw
		if err := e.state.MarketContentPut(content); err != nil {
			return err
		}
		e.record(NSFWStatusChangedEvent(contentID, caller, nsfw))
		return nil
	})
}

// Content returns a live content record.
func (e *Engine) Content(id uint64) (*Content, error) {
	if err := e.read(); err != nil {
		return nil, err
	}
	content, err := e.loadContent(id)
	if err != nil {
		return nil, err
	}
	return content.Clone(), nil
}

// ContentCount returns the number of content ids ever assigned, deleted ones
// included.
func (e *Engine) ContentCount() (uint64, error) {
	if err := e.read(); err != nil {
		return 0, err
	}
	params, err := e.loadParams()
	if err != nil {
		return 0, err
	}
	if params.NextContentID == 0 {
		return 0, nil
	}
	return params.NextContentID - 1, nil
}

// ContentType returns a registered content type.
func (e *Engine) ContentType(id uint64) (*ContentType, error) {
	if err := e.read(); err != nil {
		return nil, err
	}
	contentType, ok, err := e.state.MarketContentTypeGet(id)
	if err != nil {
		return nil, err
	}
	if id == 0 || !ok || contentType == nil || !contentType.Exists {
		return nil, fmt.Errorf("%w: %d", ErrContentTypeNotFound, id)
	}
	return contentType.Clone(), nil
}

// ContentTypes lists every registered type in id order.
func (e *Engine) ContentTypes() ([]*ContentType, error) {
	if err := e.read(); err != nil {
		return nil, err
	}
	params, err := e.loadParams()
	if err != nil {
		return nil, err
	}
	out := make([]*ContentType, 0)
	for id := uint64(1); id < params.NextContentTypeID; id++ {
		contentType, ok, err := e.state.MarketContentTypeGet(id)
		if err != nil {
			return nil, err
		}
		if !ok || contentType == nil || !contentType.Exists {
			continue
		}
		out = append(out, contentType.Clone())
	}
	return out, nil
}

// ContentOwnerCount returns how many buyers have kept the content.
func (e *Engine) ContentOwnerCount(id uint64) (uint64, error) {
	owners, err := e.ContentOwners(id)
	if err != nil {
		return 0, err
	}
	return uint64(len(owners)), nil
}

// ContentOwner returns the owner that kept the content with the given keep
// nonce.
func (e *Engine) ContentOwner(id uint64, index uint64) ([20]byte, error) {
	owners, err := e.ContentOwners(id)
	if err != nil {
		return [20]byte{}, err
	}
	if index >= uint64(len(owners)) {
		return [20]byte{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(owners))
	}
	return owners[index], nil
}

// ContentOwners returns the owner list in keep order.
func (e *Engine) ContentOwners(id uint64) ([][20]byte, error) {
	if err := e.read(); err != nil {
		return nil, err
	}
	if _, err := e.loadContent(id); err != nil {
		return nil, err
	}
	owners, err := e.state.MarketOwnersGet(id)
	if err != nil {
		return nil, err
	}
	return append([][20]byte(nil), owners...), nil
}

// ContentBuyers returns the buyers whose purchase is still open.
func (e *Engine) ContentBuyers(id uint64) ([][20]byte, error) {
	if err := e.read(); err != nil {
		return nil, err
	}
	if _, err := e.loadContent(id); err != nil {
		return nil, err
	}
	buyers, err := e.state.MarketBuyersGet(id)
	if err != nil {
		return nil, err
	}
	return append([][20]byte(nil), buyers...), nil
}

// DeleteContentCost quotes the payment DeleteContent requires: the sum of the
// prices every current owner paid.
func (e *Engine) DeleteContentCost(id uint64) (*big.Int, error) {
	if err := e.read(); err != nil {
		return nil, err
	}
	if _, err := e.loadContent(id); err != nil {
		return nil, err
	}
	return e.deleteCost(id)
}

func (e *Engine) deleteCost(id uint64) (*big.Int, error) {
	owners, err := e.state.MarketOwnersGet(id)
	if err != nil {
		return nil, err
	}
	total := big.NewInt(0)
	for _, owner := range owners {
		state, ok, err := e.state.MarketBuyerGet(id, owner)
		if err != nil {
			return nil, err
		}
		if !ok || state == nil {
			continue
		}
		total.Add(total, cloneBigInt(state.Price))
	}
	return total, nil
}
