package dto

type ProductFilters struct {
	CategoryID  string
	SupplierID  string
	IsActive    *bool
	SearchQuery string // For name/sku search
	SortBy      string // name, created_at
	SortOrder   string // asc, desc
	Page        int
	PageSize    int
}

type MovementFilters struct {
	ProductID    string
	MovementType string
	Page         int
	PageSize     int
}
