// File: internal/infra/db/postgres/postgres_customer_repo.go
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"payment-orchestration-core/internal/domain"
	"payment-orchestration-core/internal/domain/model"
	"payment-orchestration-core/internal/domain/ports/repository"
)

var _ repository.CustomerRepository = (*customerRepo)(nil)
var _ repository.AddressRepository = (*addressRepo)(nil)

type customerRepo struct{ pool *pgxpool.Pool }

func NewCustomerRepo(pool *pgxpool.Pool) *customerRepo {
	return &customerRepo{pool: pool}
}

func (r *customerRepo) Insert(ctx context.Context, customer *model.Customer, _ model.StorageScheme) error {
	const q = `
INSERT INTO customers (customer_id, merchant_id, name, email, phone, created_at)
VALUES ($1,$2,$3,$4,$5,$6);`
	_, err := r.pool.Exec(ctx, q,
		customer.CustomerID, customer.MerchantID, customer.Name, customer.Email,
		customer.Phone, customer.CreatedAt)
	return mapInsertErr(err)
}

func (r *customerRepo) FindByCustomerIDMerchantID(ctx context.Context, customerID, merchantID string, _ model.StorageScheme) (*model.Customer, error) {
	const q = `SELECT customer_id, merchant_id, name, email, phone, created_at FROM customers WHERE customer_id=$1 AND merchant_id=$2;`
	customer := &model.Customer{}
	err := r.pool.QueryRow(ctx, q, customerID, merchantID).Scan(
		&customer.CustomerID, &customer.MerchantID, &customer.Name,
		&customer.Email, &customer.Phone, &customer.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return customer, nil
}

type addressRepo struct{ pool *pgxpool.Pool }

func NewAddressRepo(pool *pgxpool.Pool) *addressRepo {
	return &addressRepo{pool: pool}
}

const addressColumns = `address_id, merchant_id, customer_id, payment_id, line1, line2, city, state, zip, country, first_name, last_name, created_at, updated_at`

func (r *addressRepo) Insert(ctx context.Context, addr *model.Address, _ model.StorageScheme) error {
	const q = `
INSERT INTO addresses (` + addressColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14);`
	_, err := r.pool.Exec(ctx, q,
		addr.AddressID, addr.MerchantID, addr.CustomerID, addr.PaymentID,
		addr.Line1, addr.Line2, addr.City, addr.State, addr.Zip, addr.Country,
		addr.FirstName, addr.LastName, addr.CreatedAt, addr.UpdatedAt)
	return mapInsertErr(err)
}

func (r *addressRepo) FindByID(ctx context.Context, addressID string, _ model.StorageScheme) (*model.Address, error) {
	const q = `SELECT ` + addressColumns + ` FROM addresses WHERE address_id=$1;`
	addr := &model.Address{}
	err := r.pool.QueryRow(ctx, q, addressID).Scan(
		&addr.AddressID, &addr.MerchantID, &addr.CustomerID, &addr.PaymentID,
		&addr.Line1, &addr.Line2, &addr.City, &addr.State, &addr.Zip, &addr.Country,
		&addr.FirstName, &addr.LastName, &addr.CreatedAt, &addr.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return addr, nil
}

func (r *addressRepo) Update(ctx context.Context, addr *model.Address, _ model.StorageScheme) error {
	const q = `
UPDATE addresses SET
  line1=$2, line2=$3, city=$4, state=$5, zip=$6, country=$7,
  first_name=$8, last_name=$9, updated_at=NOW()
WHERE address_id=$1;`
	cmd, err := r.pool.Exec(ctx, q, addr.AddressID,
		addr.Line1, addr.Line2, addr.City, addr.State, addr.Zip, addr.Country,
		addr.FirstName, addr.LastName)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
