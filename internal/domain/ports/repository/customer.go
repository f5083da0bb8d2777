package repository

import (
	"context"

	"payment-orchestration-core/internal/domain/model"
)

type CustomerRepository interface {
	Insert(ctx context.Context, customer *model.Customer, scheme model.StorageScheme) error
	FindByCustomerIDMerchantID(ctx context.Context, customerID, merchantID string, scheme model.StorageScheme) (*model.Customer, error)
}

type AddressRepository interface {
	Insert(ctx context.Context, addr *model.Address, scheme model.StorageScheme) error
	FindByID(ctx context.Context, addressID string, scheme model.StorageScheme) (*model.Address, error)
	Update(ctx context.Context, addr *model.Address, scheme model.StorageScheme) error
}
