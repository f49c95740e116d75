package interaction

import (
	"context"
	"errors"

	"feestplanner/internal/catalog"
)

const DeletePrompt = "Weet je zeker dat je deze dienst wilt verwijderen?"

var (
	ErrVendorNotFound = errors.New("vendor not found")
	ErrNotOwner       = errors.New("only owned vendors can be deleted")
	ErrNotConfirmed   = errors.New("delete needs confirmation")
)

type VendorRemover interface {
	Get(id string) (catalog.Vendor, bool)
	Remove(ctx context.Context, id string) error
}

// Delete removes an owned vendor after the client confirmed DeletePrompt.
func Delete(ctx context.Context, store VendorRemover, vendorID string, confirmed bool) (catalog.Vendor, error) {
	v, ok := store.Get(vendorID)
	if !ok {
		return catalog.Vendor{}, ErrVendorNotFound
	}
	if !v.IsOwner {
		return v, ErrNotOwner
	}
	if !confirmed {
		return v, ErrNotConfirmed
	}
	if err := store.Remove(ctx, vendorID); err != nil {
		return v, err
	}
	return v, nil
}
