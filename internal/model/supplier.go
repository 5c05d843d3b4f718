package model

type Supplier struct {
	BaseModel
	Name        string  `db:"name"`
	ContactName *string `db:"contact_name"`
	Email       *string `db:"email"`
	Phone       *string `db:"phone"`
	TaxID       *string `db:"tax_id"`
	IsActive    bool    `db:"is_active"`
}
