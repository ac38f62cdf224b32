package product

import (
	"context"

	"florashop-be/internal/breaker"
	"florashop-be/internal/db"

	"github.com/sony/gobreaker/v2"
)

// guardedRepository fails catalog reads fast while the database is down.
// Writes pass straight through: they run inside checkout transactions or
// back-office calls where a breaker adds nothing.
type guardedRepository struct {
	Repository
	one  *gobreaker.CircuitBreaker[*Product]
	many *gobreaker.CircuitBreaker[map[string]*Product]
}

func WithBreaker(repo Repository, s breaker.Settings) Repository {
	if s.Name == "" {
		s.Name = "catalog"
	}
	return &guardedRepository{
		Repository: repo,
		one:        breaker.New[*Product](s),
		many:       breaker.New[map[string]*Product](s),
	}
}

func (g *guardedRepository) GetByID(ctx context.Context, id string) (*Product, error) {
	p, err := g.one.Execute(func() (*Product, error) {
		return g.Repository.GetByID(ctx, id)
	})
	return p, breaker.Classify("product.GetByID", err)
}

func (g *guardedRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*Product, error) {
	m, err := g.many.Execute(func() (map[string]*Product, error) {
		return g.Repository.GetByIDs(ctx, ids)
	})
	return m, breaker.Classify("product.GetByIDs", err)
}

func (g *guardedRepository) WithTx(tx db.DBTX) Repository {
	return g.Repository.WithTx(tx)
}
