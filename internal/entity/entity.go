package entity

import (
	"fmt"
	"strings"

	"github.com/roach88/mysqlstore/internal/queryir"
)

// IDField is the identity column every entity table carries.
const IDField = "id"

// Descriptor identifies an entity kind and the table that stores it.
//
// Descriptors are plain values shared by every entity of the kind; nothing
// in this package mutates one after construction.
type Descriptor struct {
	// Zone, Base and Name form the canonical name zone/base/name.
	Zone string
	Base string
	Name string

	// Fields optionally restricts which entity fields are written as
	// columns. Empty means every non-control field is written.
	Fields []string

	// AutoIncrement marks tables whose id column is generated by the
	// database. Creates then omit the id and read back the insert id.
	AutoIncrement bool
}

// TableName returns base_name, or name when base is empty.
func (d *Descriptor) TableName() string {
	if d.Base == "" {
		return d.Name
	}
	return d.Base + "_" + d.Name
}

// Canon returns the canonical name: name, base/name, or zone/base/name.
func (d *Descriptor) Canon() string {
	switch {
	case d.Zone != "":
		return d.Zone + "/" + orDash(d.Base) + "/" + d.Name
	case d.Base != "":
		return d.Base + "/" + d.Name
	default:
		return d.Name
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// ParseCanon parses "name", "base/name" or "zone/base/name". A "-" segment
// means the part is unset.
func ParseCanon(canon string) (*Descriptor, error) {
	parts := strings.Split(canon, "/")
	for i, p := range parts {
		if p == "-" {
			parts[i] = ""
		}
	}

	d := &Descriptor{}
	switch len(parts) {
	case 1:
		d.Name = parts[0]
	case 2:
		d.Base, d.Name = parts[0], parts[1]
	case 3:
		d.Zone, d.Base, d.Name = parts[0], parts[1], parts[2]
	default:
		return nil, fmt.Errorf("invalid entity name %q: expected [zone/][base/]name", canon)
	}
	if d.Name == "" {
		return nil, fmt.Errorf("invalid entity name %q: name is required", canon)
	}
	return d, nil
}

// Declares reports whether name is written as a column.
func (d *Descriptor) Declares(name string) bool {
	if len(d.Fields) == 0 || name == IDField {
		return true
	}
	for _, f := range d.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// Make builds an entity of this kind from a field map. The map is copied.
func (d *Descriptor) Make(fields *queryir.Columns) *Entity {
	return &Entity{desc: d, data: fields.Clone()}
}

// Entity is one record: a descriptor plus an ordered field map that includes
// the id once the entity is persisted.
//
// An Entity is not synchronized with its row; reload it to observe
// database-side changes.
type Entity struct {
	desc *Descriptor
	data *queryir.Columns

	// NewID requests a specific id for the first persist of an entity that
	// has no id yet.
	NewID any
}

// Descriptor returns the entity's kind.
func (e *Entity) Descriptor() *Descriptor {
	return e.desc
}

// ID returns the id, or nil when the entity has not been persisted.
func (e *Entity) ID() any {
	v, _ := e.data.Get(IDField)
	return v
}

// SetID assigns the id. A nil id removes it.
func (e *Entity) SetID(id any) {
	if id == nil {
		e.data.Delete(IDField)
		return
	}
	e.data.Set(IDField, id)
}

// Get returns a field value.
func (e *Entity) Get(name string) (any, bool) {
	return e.data.Get(name)
}

// Set assigns a field value.
func (e *Entity) Set(name string, value any) {
	e.data.Set(name, value)
}

// Fields returns the data field names in order, excluding control keys
// (names containing "$").
func (e *Entity) Fields() []string {
	names := e.data.Names()
	out := names[:0]
	for _, n := range names {
		if !strings.Contains(n, queryir.OperatorSuffix) {
			out = append(out, n)
		}
	}
	return out
}

// Data returns a copy of the field map.
func (e *Entity) Data() *queryir.Columns {
	return e.data.Clone()
}

// Clone returns a deep-enough copy: the field map is copied, values are
// shared.
func (e *Entity) Clone() *Entity {
	return &Entity{desc: e.desc, data: e.data.Clone(), NewID: e.NewID}
}

// MarshalJSON encodes the field map in field order.
func (e *Entity) MarshalJSON() ([]byte, error) {
	return e.data.MarshalJSON()
}

// String returns a compact description for logs.
func (e *Entity) String() string {
	return fmt.Sprintf("%s:%v", e.desc.Canon(), e.ID())
}
