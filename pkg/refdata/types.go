package refdata

import "time"

// Warehouse is a stock location.
type Warehouse struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Address string `json:"address,omitempty" yaml:"address"`
	Active  bool   `json:"active" yaml:"active"`
}

// Variant is a sellable variant of a product.
type Variant struct {
	ID        string `json:"id" yaml:"id"`
	ProductID string `json:"product_id" yaml:"product_id"`
	SKU       string `json:"sku" yaml:"sku"`
	Name      string `json:"name" yaml:"name"`
	Unit      string `json:"unit,omitempty" yaml:"unit"`
}

// Supplier is a vendor that variants are purchased from.
type Supplier struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email,omitempty" yaml:"email"`
	Phone string `json:"phone,omitempty" yaml:"phone"`
}

// User is a member of the business account.
type User struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
	Role  string `json:"role" yaml:"role"`
}

// Price is the purchase price of a variant from one supplier.
// Amount is expressed in minor currency units.
type Price struct {
	ValidFrom  time.Time `json:"valid_from" yaml:"valid_from"`
	VariantID  string    `json:"variant_id" yaml:"variant_id"`
	SupplierID string    `json:"supplier_id" yaml:"supplier_id"`
	Currency   string    `json:"currency" yaml:"currency"`
	Amount     int64     `json:"amount" yaml:"amount"`
}

// BusinessInfo describes the business owning the account.
type BusinessInfo struct {
	Name      string `json:"name" yaml:"name"`
	LegalName string `json:"legal_name,omitempty" yaml:"legal_name"`
	TaxID     string `json:"tax_id,omitempty" yaml:"tax_id"`
	Currency  string `json:"currency" yaml:"currency"`
	Timezone  string `json:"timezone" yaml:"timezone"`
	Address   string `json:"address,omitempty" yaml:"address"`
}

// ExpenseCategory classifies business expenses.
type ExpenseCategory struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Code string `json:"code,omitempty" yaml:"code"`
}
