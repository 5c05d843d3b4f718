package dto

type SupplierFilters struct {
	IsActive    *bool
	SearchQuery string // name match
	Page        int
	PageSize    int
}
