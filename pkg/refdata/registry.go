package refdata

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/dmitrymomot/refcache/pkg/cache"
)

// Preset is a named caching configuration shared by a group of keys.
type Preset struct {
	Name     string
	TTL      time.Duration
	Strategy cache.Strategy
}

// Config returns the cache configuration of the preset.
func (p Preset) Config() cache.Config {
	return cache.Config{TTL: p.TTL, Strategy: p.Strategy}
}

var (
	// Static data changes rarely and survives restarts.
	Static = Preset{Name: "static", TTL: 24 * time.Hour, Strategy: cache.ProcessDurable}
	// Reference data changes occasionally and lives for a session.
	Reference = Preset{Name: "reference", TTL: 30 * time.Minute, Strategy: cache.SessionDurable}
	// Volatile data changes often and is kept in memory only.
	Volatile = Preset{Name: "volatile", TTL: 5 * time.Minute, Strategy: cache.Ephemeral}
)

// Presets lists every preset from the longest-lived to the shortest.
func Presets() []Preset {
	return []Preset{Static, Reference, Volatile}
}

// Key binds a cache key to the type of the value stored under it and to its preset.
type Key[T any] struct {
	name   string
	preset Preset
}

// NewKey returns a typed key.
func NewKey[T any](name string, preset Preset) Key[T] {
	return Key[T]{name: name, preset: preset}
}

func (k Key[T]) Name() string   { return k.name }
func (k Key[T]) Preset() Preset { return k.preset }

// Config returns the cache configuration used when the key is stored.
func (k Key[T]) Config() cache.Config {
	return k.preset.Config()
}

// Get returns the cached value, if any.
func (k Key[T]) Get(c *cache.Cache) (T, bool) {
	return cache.Get[T](c, k.name)
}

// Set stores v under the key using its preset.
func (k Key[T]) Set(ctx context.Context, c *cache.Cache, v T) error {
	return cache.Set(ctx, c, k.name, v, k.Config())
}

// Load returns the cached value or loads it once with fn.
func (k Key[T]) Load(ctx context.Context, c *cache.Cache, fn func(context.Context) (T, error)) (T, error) {
	return cache.GetOrLoad(ctx, c, k.name, fn, k.Config())
}

// Registered keys.
var (
	WarehousesKey        = NewKey[[]Warehouse]("warehouses_all", Reference)
	VariantsKey          = NewKey[[]Variant]("variants_all", Reference)
	SuppliersKey         = NewKey[[]Supplier]("suppliers_all", Reference)
	UsersKey             = NewKey[[]User]("users_all", Volatile)
	BusinessInfoKey      = NewKey[BusinessInfo]("business_info", Static)
	ExpenseCategoriesKey = NewKey[[]ExpenseCategory]("expense_categories_all", Static)
)

// reservedID is the suffix of list keys. No item id may use it.
const reservedID = "all"

// Patterns matching every key of a resource family.
const (
	VariantsPattern = "^variants_"
	UsersPattern    = "^users_"
)

// VariantKey returns the key of a single variant.
func VariantKey(id string) Key[Variant] {
	return NewKey[Variant]("variants_"+id, Reference)
}

// UserKey returns the key of a single user.
func UserKey(id string) Key[User] {
	return NewKey[User]("users_"+id, Volatile)
}

// PricesKey returns the key of the prices of one variant.
func PricesKey(variantID string) Key[[]Price] {
	return NewKey[[]Price]("prices_"+variantID, Volatile)
}

// Descriptor describes one registry entry.
type Descriptor struct {
	Key      string         `json:"key"`
	Type     string         `json:"type"`
	Preset   string         `json:"preset"`
	Strategy cache.Strategy `json:"strategy"`
	TTL      string         `json:"ttl"`
}

// Descriptors lists the registry. Parameterized keys use an "<id>" placeholder.
func Descriptors() []Descriptor {
	return []Descriptor{
		describe(WarehousesKey),
		describe(VariantsKey),
		describe(VariantKey("<id>")),
		describe(SuppliersKey),
		describe(UsersKey),
		describe(UserKey("<id>")),
		describe(PricesKey("<variantID>")),
		describe(BusinessInfoKey),
		describe(ExpenseCategoriesKey),
	}
}

func describe[T any](k Key[T]) Descriptor {
	return Descriptor{
		Key:      k.name,
		Type:     typeName[T](),
		Preset:   k.preset.Name,
		Strategy: k.preset.Strategy,
		TTL:      k.preset.TTL.String(),
	}
}

func typeName[T any]() string {
	return fmt.Sprint(reflect.TypeFor[T]())
}
