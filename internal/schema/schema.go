// Package schema loads entity declarations written in CUE.
//
// A schema file declares entities under the top-level "entity" field:
//
//	entity: users: {
//		base:           "sys"
//		auto_increment: false
//		fields: {
//			email:   string
//			score:   int
//			profile: {...}
//		}
//	}
//
// The label is the entity name. base and zone are optional namespace
// parts; fields, when present, restricts which entity fields are written
// (in declaration order). Field types are documentation only.
package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/mysqlstore/internal/entity"
)

// CompileError is a schema problem with its CUE source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Registry holds descriptors by canonical name.
type Registry struct {
	byCanon map[string]*entity.Descriptor

	// AutoIncrement applies to entities resolved without a declaration.
	AutoIncrement bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byCanon: make(map[string]*entity.Descriptor)}
}

// Add registers d, rejecting a second declaration of the same entity.
func (r *Registry) Add(d *entity.Descriptor) error {
	canon := d.Canon()
	if _, dup := r.byCanon[canon]; dup {
		return fmt.Errorf("entity %s declared twice", canon)
	}
	r.byCanon[canon] = d
	return nil
}

// Lookup returns the declared descriptor for a canonical name.
func (r *Registry) Lookup(canon string) (*entity.Descriptor, bool) {
	d, ok := r.byCanon[canon]
	return d, ok
}

// Resolve returns the declared descriptor for canon or, when there is none,
// an open descriptor parsed from canon using the registry's auto-increment
// default.
func (r *Registry) Resolve(canon string) (*entity.Descriptor, error) {
	if d, ok := r.Lookup(canon); ok {
		return d, nil
	}
	d, err := entity.ParseCanon(canon)
	if err != nil {
		return nil, err
	}
	d.AutoIncrement = r.AutoIncrement
	return d, nil
}

// Names returns the declared canonical names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byCanon))
	for n := range r.byCanon {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of declared entities.
func (r *Registry) Len() int {
	return len(r.byCanon)
}

// Compile reads every entity declared in v.
func Compile(v cue.Value) (*Registry, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	reg := NewRegistry()
	entities := v.LookupPath(cue.ParsePath("entity"))
	if !entities.Exists() {
		return reg, nil
	}

	iter, err := entities.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		sel := iter.Selector()
		if !sel.IsString() {
			continue
		}
		d, err := CompileEntity(sel.Unquoted(), iter.Value())
		if err != nil {
			return nil, err
		}
		if err := reg.Add(d); err != nil {
			return nil, &CompileError{Field: "entity." + d.Name, Message: err.Error(), Pos: iter.Value().Pos()}
		}
	}
	return reg, nil
}

// CompileEntity reads one entity declaration.
func CompileEntity(name string, v cue.Value) (*entity.Descriptor, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	d := &entity.Descriptor{Name: name}

	var err error
	if d.Base, err = optionalString(v, "base"); err != nil {
		return nil, err
	}
	if d.Zone, err = optionalString(v, "zone"); err != nil {
		return nil, err
	}

	if ai := v.LookupPath(cue.ParsePath("auto_increment")); ai.Exists() {
		if err := ai.Err(); err != nil {
			return nil, formatCUEError(err)
		}
		b, err := ai.Bool()
		if err != nil {
			return nil, &CompileError{Field: "auto_increment", Message: "must be a boolean", Pos: ai.Pos()}
		}
		d.AutoIncrement = b
	}

	if fields := v.LookupPath(cue.ParsePath("fields")); fields.Exists() {
		if d.Fields, err = fieldNames(fields); err != nil {
			return nil, err
		}
		if len(d.Fields) == 0 {
			return nil, &CompileError{Field: "fields", Message: "must declare at least one field when present", Pos: fields.Pos()}
		}
	}
	return d, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	if err := fv.Err(); err != nil {
		return "", formatCUEError(err)
	}
	s, err := fv.String()
	if err != nil {
		return "", &CompileError{Field: field, Message: "must be a string", Pos: fv.Pos()}
	}
	return s, nil
}

func fieldNames(v cue.Value) ([]string, error) {
	iter, err := v.Fields(cue.Optional(true))
	if err != nil {
		return nil, &CompileError{Field: "fields", Message: "must be a struct of field declarations", Pos: v.Pos()}
	}
	var names []string
	for iter.Next() {
		sel := iter.Selector()
		if !sel.IsString() {
			continue
		}
		names = append(names, sel.Unquoted())
	}
	return names, nil
}

// CompileString compiles schema source, for tests and embedded schemas.
func CompileString(src, filename string) (*Registry, error) {
	v := cuecontext.New().CompileString(src, cue.Filename(filename))
	return Compile(v)
}

// LoadDir loads every .cue file in dir as one CUE instance and compiles the
// entities it declares.
func LoadDir(dir string) (*Registry, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("schema directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("schema directory: not a directory: %s", dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, fmt.Errorf("scan schema directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}

	value := cuecontext.New().BuildInstance(inst)
	return Compile(value)
}

// formatCUEError keeps the first error and its position.
func formatCUEError(err error) error {
	ce := &CompileError{Field: "cue", Message: err.Error()}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return ce
	}
	first := errs[0]
	ce.Message = first.Error()
	if positions := errors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}
