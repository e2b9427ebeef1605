package refdata

import "context"

// Source fetches reference data from the system of record.
// Implementations: httpsource (REST upstream) and filesource (YAML fixture).
type Source interface {
	Warehouses(ctx context.Context) ([]Warehouse, error)
	Variants(ctx context.Context) ([]Variant, error)
	Variant(ctx context.Context, id string) (Variant, error)
	Suppliers(ctx context.Context) ([]Supplier, error)
	Users(ctx context.Context) ([]User, error)
	User(ctx context.Context, id string) (User, error)
	Prices(ctx context.Context, variantID string) ([]Price, error)
	BusinessInfo(ctx context.Context) (BusinessInfo, error)
	ExpenseCategories(ctx context.Context) ([]ExpenseCategory, error)
}
