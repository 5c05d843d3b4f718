package dto

type CreateSupplierInput struct {
	Name        string
	ContactName string
	Email       string
	Phone       string
	TaxID       string
}

type UpdateSupplierInput struct {
	ID          string
	Name        string
	ContactName string
	Email       string
	Phone       string
	TaxID       string
	IsActive    bool
}
