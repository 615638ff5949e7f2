package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"storefront/internal/domain"
)

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	err := s.run(ctx).QueryRowContext(ctx, `
INSERT INTO users (user_name, email, password_hash, roles)
VALUES ($1, $2, $3, $4)
RETURNING id`, u.UserName, u.Email, u.PasswordHash, pq.Array(u.Roles)).Scan(&u.ID)
	if isUniqueViolation(err) {
		return domain.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("postgres: insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByName(ctx context.Context, userName string) (domain.User, error) {
	var (
		u    domain.User
		addr struct {
			fullName, address1, address2, city, state, zip, country sql.NullString
		}
	)
	err := s.run(ctx).QueryRowContext(ctx, `
SELECT id, user_name, email, password_hash, roles,
  address_full_name, address_address1, address_address2, address_city,
  address_state, address_zip, address_country
FROM users
WHERE LOWER(user_name) = LOWER($1)`, userName).Scan(
		&u.ID, &u.UserName, &u.Email, &u.PasswordHash, pq.Array(&u.Roles),
		&addr.fullName, &addr.address1, &addr.address2, &addr.city,
		&addr.state, &addr.zip, &addr.country,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.NewNotFoundError("user", userName)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("postgres: get user: %w", err)
	}
	if addr.fullName.Valid {
		u.Address = &domain.Address{
			FullName: addr.fullName.String,
			Address1: addr.address1.String,
			Address2: addr.address2.String,
			City:     addr.city.String,
			State:    addr.state.String,
			Zip:      addr.zip.String,
			Country:  addr.country.String,
		}
	}
	return u, nil
}

func (s *Store) SaveAddress(ctx context.Context, userName string, a domain.Address) error {
	res, err := s.run(ctx).ExecContext(ctx, `
UPDATE users
SET address_full_name = $2, address_address1 = $3, address_address2 = $4, address_city = $5,
    address_state = $6, address_zip = $7, address_country = $8
WHERE LOWER(user_name) = LOWER($1)`,
		userName, a.FullName, a.Address1, a.Address2, a.City, a.State, a.Zip, a.Country)
	if err != nil {
		return fmt.Errorf("postgres: save address: %w", err)
	}
	if affected(res) == 0 {
		return domain.NewNotFoundError("user", userName)
	}
	return nil
}
