package workspace

import "fmt"

// Step is a stage of the input wizard.
type Step int

// Wizard steps, in order.
const (
	StepCategories Step = iota + 1
	StepMaterials
	StepProducts
	StepCalculate
)

// String returns the step name.
func (s Step) String() string {
	switch s {
	case StepCategories:
		return "categories"
	case StepMaterials:
		return "materials"
	case StepProducts:
		return "products"
	case StepCalculate:
		return "calculate"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// ValidateStep reports whether the wizard may move to target.
// Requirements accumulate: entering a step also requires everything the
// earlier steps required.
//
//   - materials: at least one category
//   - products: every category has a material
//   - calculate: every category has a product
func (w *Workspace) ValidateStep(target Step) error {
	if target < StepCategories || target > StepCalculate {
		return fmt.Errorf("%w: %d", ErrUnknownStep, int(target))
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	if target >= StepMaterials && len(w.categories) == 0 {
		return ErrNoCategories
	}
	if target >= StepProducts {
		for _, c := range w.categories {
			if len(w.materials[c.ID]) == 0 {
				return fmt.Errorf("%w: %q", ErrCategoryWithoutMaterials, c.Name)
			}
		}
	}
	if target >= StepCalculate {
		for _, c := range w.categories {
			if len(w.products[c.ID]) == 0 {
				return fmt.Errorf("%w: %q", ErrCategoryWithoutProducts, c.Name)
			}
		}
	}
	return nil
}
