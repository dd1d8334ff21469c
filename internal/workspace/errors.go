package workspace

import "errors"

// Input validation errors.
var (
	ErrEmptyName         = errors.New("name is required")
	ErrDuplicateCategory = errors.New("category name already exists")
	ErrInvalidPrice      = errors.New("price must be a positive number")
	ErrInvalidCount      = errors.New("count must be a positive integer")
)

// Lookup errors.
var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrMaterialNotFound = errors.New("material not found")
	ErrProductNotFound  = errors.New("product not found")
)

// Step transition errors.
var (
	ErrNoCategories             = errors.New("add at least one category")
	ErrCategoryWithoutMaterials = errors.New("every category needs at least one material")
	ErrCategoryWithoutProducts  = errors.New("every category needs at least one product")
	ErrUnknownStep              = errors.New("unknown step")
)

// IsInvalidInput reports whether err was caused by rejected user input,
// including a failed step transition.
func IsInvalidInput(err error) bool {
	for _, target := range []error{
		ErrEmptyName, ErrDuplicateCategory, ErrInvalidPrice, ErrInvalidCount,
		ErrNoCategories, ErrCategoryWithoutMaterials, ErrCategoryWithoutProducts, ErrUnknownStep,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
