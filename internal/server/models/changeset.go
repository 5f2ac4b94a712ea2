package models

// ChangeSet is the ordered set of approved field updates accumulated during a
// patch. Fields keep the order in which they were first staged; staging a
// field twice overwrites the value in place.
type ChangeSet struct {
	order  []string
	values map[string]any
}

func NewChangeSet() *ChangeSet {
	return &ChangeSet{values: make(map[string]any)}
}

// Set stages an approved value for field.
func (c *ChangeSet) Set(field string, value any) {
	if _, ok := c.values[field]; !ok {
		c.order = append(c.order, field)
	}
	c.values[field] = value
}

// Value returns the staged value for field.
func (c *ChangeSet) Value(field string) (any, bool) {
	v, ok := c.values[field]
	return v, ok
}

// Fields returns the staged field names in staging order.
func (c *ChangeSet) Fields() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Empty reports whether nothing has been staged.
func (c *ChangeSet) Empty() bool {
	return len(c.order) == 0
}

// Len returns the number of staged fields.
func (c *ChangeSet) Len() int {
	return len(c.order)
}
