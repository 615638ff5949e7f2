// Package seed loads the demo catalog and accounts into an empty store.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"storefront/internal/auth"
	"storefront/internal/catalog"
	"storefront/internal/domain"
	"storefront/internal/store"
)

//go:embed products.json
var productsJSON []byte

// DemoPassword is the password of every demo account.
const DemoPassword = "Pa$$w0rd"

type demoUser struct {
	name  string
	email string
	roles []string
}

var demoUsers = []demoUser{
	{"bob", "bob@test.com", []string{domain.RoleMember}},
	{"admin", "admin@test.com", []string{domain.RoleMember, domain.RoleAdmin}},
}

func Products() ([]domain.Product, error) {
	var out []domain.Product
	if err := json.Unmarshal(productsJSON, &out); err != nil {
		return nil, fmt.Errorf("decode seed products: %w", err)
	}
	return out, nil
}

// Run is idempotent: products are only loaded into an empty catalog and
// existing users are left alone.
func Run(ctx context.Context, st store.Store, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	return st.WithinTx(ctx, func(ctx context.Context) error {
		n, err := st.QueryProducts(ctx, catalog.Query{}).Count(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			products, err := Products()
			if err != nil {
				return err
			}
			for i := range products {
				p := products[i]
				p.ID = 0
				if err := st.SaveProduct(ctx, &p); err != nil {
					return fmt.Errorf("seed product %q: %w", p.Name, err)
				}
			}
			log.Info("seeded products", "count", len(products))
		}

		hash, err := auth.HashPassword(DemoPassword)
		if err != nil {
			return err
		}
		for _, du := range demoUsers {
			u := domain.User{UserName: du.name, Email: du.email, PasswordHash: hash, Roles: du.roles}
			err := st.CreateUser(ctx, &u)
			if errors.Is(err, domain.ErrDuplicate) {
				continue
			}
			if err != nil {
				return fmt.Errorf("seed user %s: %w", du.name, err)
			}
			log.Info("seeded user", "user_name", u.UserName)
		}
		return nil
	})
}
