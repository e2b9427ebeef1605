// Package filesource implements refdata.Source from a YAML fixture.
// It is meant for development and tests: the file is read once and served
// from memory.
package filesource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/refcache/pkg/refdata"
)

var (
	// ErrNotFound is returned for an unknown variant or user id.
	ErrNotFound = fmt.Errorf("filesource: %w", refdata.ErrNotFound)

	// ErrParse is returned when the fixture is not valid YAML.
	ErrParse = errors.New("filesource: failed to parse fixture")
)

// Fixture is the document layout of a fixture file.
type Fixture struct {
	BusinessInfo      refdata.BusinessInfo      `yaml:"business_info"`
	Warehouses        []refdata.Warehouse       `yaml:"warehouses"`
	Variants          []refdata.Variant         `yaml:"variants"`
	Suppliers         []refdata.Supplier        `yaml:"suppliers"`
	Users             []refdata.User            `yaml:"users"`
	Prices            []refdata.Price           `yaml:"prices"`
	ExpenseCategories []refdata.ExpenseCategory `yaml:"expense_categories"`
}

// Source serves a parsed fixture.
type Source struct {
	data Fixture
}

// Open reads and parses the fixture at path.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(f)
}

// Parse decodes a fixture document.
func Parse(r io.Reader) (*Source, error) {
	var fx Fixture
	if err := yaml.NewDecoder(r).Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Join(ErrParse, err)
	}
	return New(fx), nil
}

// New serves fx as is.
func New(fx Fixture) *Source {
	return &Source{data: fx}
}

func (s *Source) Warehouses(ctx context.Context) ([]refdata.Warehouse, error) {
	return slices.Clone(s.data.Warehouses), ctx.Err()
}

func (s *Source) Variants(ctx context.Context) ([]refdata.Variant, error) {
	return slices.Clone(s.data.Variants), ctx.Err()
}

func (s *Source) Variant(ctx context.Context, id string) (refdata.Variant, error) {
	if err := ctx.Err(); err != nil {
		return refdata.Variant{}, err
	}
	i := slices.IndexFunc(s.data.Variants, func(v refdata.Variant) bool { return v.ID == id })
	if i < 0 {
		return refdata.Variant{}, fmt.Errorf("%w: variant %q", ErrNotFound, id)
	}
	return s.data.Variants[i], nil
}

func (s *Source) Suppliers(ctx context.Context) ([]refdata.Supplier, error) {
	return slices.Clone(s.data.Suppliers), ctx.Err()
}

func (s *Source) Users(ctx context.Context) ([]refdata.User, error) {
	return slices.Clone(s.data.Users), ctx.Err()
}

func (s *Source) User(ctx context.Context, id string) (refdata.User, error) {
	if err := ctx.Err(); err != nil {
		return refdata.User{}, err
	}
	i := slices.IndexFunc(s.data.Users, func(u refdata.User) bool { return u.ID == id })
	if i < 0 {
		return refdata.User{}, fmt.Errorf("%w: user %q", ErrNotFound, id)
	}
	return s.data.Users[i], nil
}

// Prices returns the prices of variantID. An unknown variant has no prices.
func (s *Source) Prices(ctx context.Context, variantID string) ([]refdata.Price, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []refdata.Price
	for _, p := range s.data.Prices {
		if p.VariantID == variantID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Source) BusinessInfo(ctx context.Context) (refdata.BusinessInfo, error) {
	return s.data.BusinessInfo, ctx.Err()
}

func (s *Source) ExpenseCategories(ctx context.Context) ([]refdata.ExpenseCategory, error) {
	return slices.Clone(s.data.ExpenseCategories), ctx.Err()
}

// Healthcheck always succeeds; the fixture lives in memory.
func (s *Source) Healthcheck(context.Context) error {
	return nil
}

var _ refdata.Source = (*Source)(nil)
