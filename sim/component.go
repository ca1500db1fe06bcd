package sim

// A Named object is an object that has a name.
type Named interface {
	Name() string
}

// ComponentBase provides the name and hook support that every simulated
// element carries.
type ComponentBase struct {
	HookableBase

	name string
}

// NewComponentBase creates a new ComponentBase
func NewComponentBase(name string) *ComponentBase {
	NameMustBeValid(name)

	c := new(ComponentBase)
	c.name = name

	return c
}

// Name returns the name of the component.
func (c *ComponentBase) Name() string {
	return c.name
}
