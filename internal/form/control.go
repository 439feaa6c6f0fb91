// Package form builds toolkit-neutral entry forms, filters and grids from entity
// configurations. A form is a tree of named controls; renderers (the HTTP API, a
// terminal client) draw the controls and send values back by name.
package form

import (
	"sort"

	"gwin/internal/core/apperror"
)

// Kind tells a renderer which widget draws a control.
type Kind string

const (
	KindText          Kind = "text"
	KindMultiLine     Kind = "multiline"
	KindLocalizedText Kind = "localized_text"
	KindDate          Kind = "date"
	KindInteger       Kind = "integer"
	KindDecimal       Kind = "decimal"
	KindCheckBox      Kind = "checkbox"
	KindComboBox      Kind = "combobox"
	KindCheckList     Kind = "checklist"
	KindSubGrid       Kind = "subgrid"
)

// Option is one choice of a combo box, check list or sub grid.
type Option struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// Control is one named input. Name is the property name it edits.
type Control struct {
	Name     string   `json:"name"`
	Kind     Kind     `json:"kind"`
	Label    string   `json:"label"`
	Width    int      `json:"width,omitempty"`
	Required bool     `json:"required,omitempty"`
	Target   string   `json:"target,omitempty"`
	Options  []Option `json:"options,omitempty"`
	Value    any      `json:"value"`

	position int
}

// Container holds controls in display position order.
type Container struct {
	Name     string     `json:"name"`
	Controls []*Control `json:"controls"`
}

// NewContainer creates an empty container.
func NewContainer(name string) *Container {
	return &Container{Name: name}
}

// Add places c at position. Controls sharing a position keep insertion order.
func (c *Container) Add(ctl *Control, position int) {
	ctl.position = position
	c.Controls = append(c.Controls, ctl)
	sort.SliceStable(c.Controls, func(i, j int) bool {
		return c.Controls[i].position < c.Controls[j].position
	})
}

// Find returns the control named name, or a field not found error.
func (c *Container) Find(name string) (*Control, error) {
	for _, ctl := range c.Controls {
		if ctl.Name == name {
			return ctl, nil
		}
	}
	return nil, apperror.NewFieldNotFound(name, c.Name)
}

// Set stores v in the control named name, as typed by the user.
func (c *Container) Set(name string, v any) error {
	ctl, err := c.Find(name)
	if err != nil {
		return err
	}
	ctl.Value = v
	return nil
}

// Values returns the current value of every control by name.
func (c *Container) Values() map[string]any {
	out := make(map[string]any, len(c.Controls))
	for _, ctl := range c.Controls {
		out[ctl.Name] = ctl.Value
	}
	return out
}
