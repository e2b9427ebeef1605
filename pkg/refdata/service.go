package refdata

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/refcache/pkg/cache"
)

// Service serves reference data through the cache.
// Every read goes through Key.Load, so concurrent misses for a key hit the
// source once. Write paths call the Invalidate* hooks after changing data
// upstream.
type Service struct {
	cache  *cache.Cache
	source Source
	logger *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
// Default: discard.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService returns a service reading from src through c.
func NewService(c *cache.Cache, src Source, opts ...ServiceOption) (*Service, error) {
	if c == nil {
		return nil, ErrNilCache
	}
	if src == nil {
		return nil, ErrNilSource
	}

	s := &Service{
		cache:  c,
		source: src,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Cache returns the underlying cache.
func (s *Service) Cache() *cache.Cache {
	return s.cache
}

func (s *Service) Warehouses(ctx context.Context) ([]Warehouse, error) {
	return WarehousesKey.Load(ctx, s.cache, s.source.Warehouses)
}

func (s *Service) Variants(ctx context.Context) ([]Variant, error) {
	return VariantsKey.Load(ctx, s.cache, s.source.Variants)
}

func (s *Service) Variant(ctx context.Context, id string) (Variant, error) {
	if err := checkID(id); err != nil {
		return Variant{}, err
	}
	return VariantKey(id).Load(ctx, s.cache, func(ctx context.Context) (Variant, error) {
		return s.source.Variant(ctx, id)
	})
}

func (s *Service) Suppliers(ctx context.Context) ([]Supplier, error) {
	return SuppliersKey.Load(ctx, s.cache, s.source.Suppliers)
}

func (s *Service) Users(ctx context.Context) ([]User, error) {
	return UsersKey.Load(ctx, s.cache, s.source.Users)
}

func (s *Service) User(ctx context.Context, id string) (User, error) {
	if err := checkID(id); err != nil {
		return User{}, err
	}
	return UserKey(id).Load(ctx, s.cache, func(ctx context.Context) (User, error) {
		return s.source.User(ctx, id)
	})
}

// Prices returns the supplier prices of one variant.
func (s *Service) Prices(ctx context.Context, variantID string) ([]Price, error) {
	if err := checkID(variantID); err != nil {
		return nil, err
	}
	return PricesKey(variantID).Load(ctx, s.cache, func(ctx context.Context) ([]Price, error) {
		return s.source.Prices(ctx, variantID)
	})
}

func (s *Service) BusinessInfo(ctx context.Context) (BusinessInfo, error) {
	return BusinessInfoKey.Load(ctx, s.cache, s.source.BusinessInfo)
}

func (s *Service) ExpenseCategories(ctx context.Context) ([]ExpenseCategory, error) {
	return ExpenseCategoriesKey.Load(ctx, s.cache, s.source.ExpenseCategories)
}

func (s *Service) InvalidateWarehouses(ctx context.Context) {
	s.cache.Invalidate(ctx, WarehousesKey.Name())
}

// InvalidateVariants drops the variant list and every single-variant entry.
func (s *Service) InvalidateVariants(ctx context.Context) {
	s.invalidatePattern(ctx, VariantsPattern)
}

// InvalidateVariant drops one variant and the variant list containing it.
func (s *Service) InvalidateVariant(ctx context.Context, id string) {
	s.cache.Invalidate(ctx, VariantKey(id).Name())
	s.cache.Invalidate(ctx, VariantsKey.Name())
}

func (s *Service) InvalidateSuppliers(ctx context.Context) {
	s.cache.Invalidate(ctx, SuppliersKey.Name())
}

// InvalidateUsers drops the user list and every single-user entry.
func (s *Service) InvalidateUsers(ctx context.Context) {
	s.invalidatePattern(ctx, UsersPattern)
}

func (s *Service) InvalidatePrices(ctx context.Context, variantID string) {
	s.cache.Invalidate(ctx, PricesKey(variantID).Name())
}

func (s *Service) InvalidateBusinessInfo(ctx context.Context) {
	s.cache.Invalidate(ctx, BusinessInfoKey.Name())
}

func (s *Service) InvalidateExpenseCategories(ctx context.Context) {
	s.cache.Invalidate(ctx, ExpenseCategoriesKey.Name())
}

func (s *Service) invalidatePattern(ctx context.Context, pattern string) {
	// Patterns are package constants; a compile error here is a programming bug.
	if _, err := s.cache.InvalidatePattern(ctx, pattern); err != nil {
		s.logger.ErrorContext(ctx, "invalid invalidation pattern",
			slog.String("pattern", pattern),
			slog.Any("error", err),
		)
	}
}

// Warm preloads every list and the business info concurrently.
// Keys already cached are left as they are. It returns the first load error.
func (s *Service) Warm(ctx context.Context) error {
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { _, err := s.Warehouses(ctx); return err })
	g.Go(func() error { _, err := s.Variants(ctx); return err })
	g.Go(func() error { _, err := s.Suppliers(ctx); return err })
	g.Go(func() error { _, err := s.Users(ctx); return err })
	g.Go(func() error { _, err := s.BusinessInfo(ctx); return err })
	g.Go(func() error { _, err := s.ExpenseCategories(ctx); return err })

	if err := g.Wait(); err != nil {
		s.logger.WarnContext(ctx, "reference data warm-up failed", slog.Any("error", err))
		return err
	}

	s.logger.InfoContext(ctx, "reference data warmed",
		slog.Duration("took", time.Since(start)),
		slog.Int("entries", s.cache.Stats().Count),
	)
	return nil
}

// checkID rejects ids whose item key would collide with a list key.
func checkID(id string) error {
	switch id {
	case "":
		return ErrEmptyID
	case reservedID:
		return fmt.Errorf("%w: %q", ErrReservedID, id)
	}
	return nil
}
