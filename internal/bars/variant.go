package bars

import "fmt"

// Variant is the closed set of bar shapes.
type Variant int

const (
	VariantTask Variant = iota
	VariantSmallTask
	VariantMilestone
	VariantProject
)

// Capabilities lists which handles a variant exposes.
type Capabilities struct {
	Movable     bool `json:"movable"`
	Resizable   bool `json:"resizable"`
	HasProgress bool `json:"has_progress"`
}

type variantSpec struct {
	name string
	caps Capabilities
}

var variantTable = map[Variant]variantSpec{
	VariantTask:      {name: "task", caps: Capabilities{Movable: true, Resizable: true, HasProgress: true}},
	VariantSmallTask: {name: "small-task", caps: Capabilities{Movable: true, Resizable: true, HasProgress: true}},
	VariantMilestone: {name: "milestone", caps: Capabilities{Movable: true}},
	VariantProject:   {name: "project", caps: Capabilities{Movable: true, Resizable: true, HasProgress: true}},
}

func (v Variant) String() string {
	if spec, ok := variantTable[v]; ok {
		return spec.name
	}
	return fmt.Sprintf("variant(%d)", int(v))
}

func (v Variant) Capabilities() Capabilities {
	return variantTable[v].caps
}

// MarshalText encodes the variant by name.
func (v Variant) MarshalText() ([]byte, error) {
	if _, ok := variantTable[v]; !ok {
		return nil, fmt.Errorf("unknown variant %d", int(v))
	}
	return []byte(v.String()), nil
}
