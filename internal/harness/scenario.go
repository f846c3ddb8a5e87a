package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/mysqlstore/internal/engine"
	"github.com/roach88/mysqlstore/internal/entity"
	"github.com/roach88/mysqlstore/internal/queryir"
)

// Scenario is a scripted sequence of entity verbs run against a mocked
// database. Each step declares the statements the database expects and the
// rows or results it answers with; the harness checks the verb issued
// exactly those statements and returned the expected outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Entity is the canonical entity name, e.g. "sys/users".
	Entity string `yaml:"entity"`

	// AutoIncrement marks the entity's id as database generated.
	AutoIncrement bool `yaml:"auto_increment,omitempty"`

	// Fields restricts written fields, as a schema declaration would.
	Fields []string `yaml:"fields,omitempty"`

	// TypeColumn selects the tagged codec mode.
	TypeColumn string `yaml:"type_column,omitempty"`

	// IDs are handed out in order to entities created without an id.
	// Empty means every new entity gets "test-id".
	IDs []string `yaml:"ids,omitempty"`

	Steps []Step `yaml:"steps"`

	// Assertions validate the trace after every step ran.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step invokes one verb.
type Step struct {
	// Verb is save, load, list or remove.
	Verb string `yaml:"verb"`

	// Data is the entity to save, as a mapping in field order.
	Data yaml.Node `yaml:"data,omitempty"`

	// NewID is a caller-chosen id for a first save.
	NewID any `yaml:"new_id,omitempty"`

	// Query is the query object, a bare id, or a list of ids.
	Query yaml.Node `yaml:"query,omitempty"`

	// DB lists the statements the verb is expected to run, in order.
	DB []Statement `yaml:"db,omitempty"`

	// Expect checks the verb's outcome. Nil means the verb must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Statement kinds.
const (
	KindExec     = "exec"
	KindQuery    = "query"
	KindBegin    = "begin"
	KindCommit   = "commit"
	KindRollback = "rollback"
)

// Statement is one expected database interaction and its canned answer.
type Statement struct {
	Kind string `yaml:"kind"`

	// SQL is the expanded statement, identifiers backtick-quoted.
	SQL string `yaml:"sql,omitempty"`

	// Args are the driver arguments in binding order.
	Args yaml.Node `yaml:"args,omitempty"`

	// Affected and InsertID answer an exec.
	Affected int64 `yaml:"affected,omitempty"`
	InsertID int64 `yaml:"insert_id,omitempty"`

	// Rows answer a query: a list of mappings in column order. Columns
	// names the result columns when Rows is empty.
	Rows    yaml.Node `yaml:"rows,omitempty"`
	Columns []string  `yaml:"columns,omitempty"`

	// Error makes the database fail the statement with this message.
	Error string `yaml:"error,omitempty"`
}

// Expect specifies a step's expected outcome.
type Expect struct {
	// Result is matched field by field against the returned entity (a
	// mapping) or entities (a list of mappings). Extra fields are allowed.
	Result yaml.Node `yaml:"result,omitempty"`

	// Nil requires the verb to return no entity.
	Nil bool `yaml:"nil,omitempty"`

	// Count requires list to return exactly this many entities.
	Count *int `yaml:"count,omitempty"`

	// Error requires the verb to fail with a message containing this text.
	Error string `yaml:"error,omitempty"`
}

// Verbs a step may invoke.
const (
	VerbSave   = engine.VerbSave
	VerbLoad   = engine.VerbLoad
	VerbList   = engine.VerbList
	VerbRemove = engine.VerbRemove
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios expands paths into scenario files: a directory contributes
// its *.yaml and *.yml files, sorted; a file is taken as is.
func FindScenarios(paths ...string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("scenario path: %w", err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}

		var found []string
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(p, pattern))
			if err != nil {
				return nil, err
			}
			found = append(found, matches...)
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	return out, nil
}

// Descriptor builds the entity descriptor the scenario runs against.
func (s *Scenario) Descriptor() (*entity.Descriptor, error) {
	d, err := entity.ParseCanon(s.Entity)
	if err != nil {
		return nil, err
	}
	d.AutoIncrement = s.AutoIncrement
	d.Fields = s.Fields
	return d, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if _, err := s.Descriptor(); err != nil {
		return fmt.Errorf("entity: %w", err)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		switch step.Verb {
		case VerbSave:
			if step.Data.Kind != yaml.MappingNode {
				return fmt.Errorf("steps[%d]: save requires a data mapping", i)
			}
		case VerbLoad, VerbList, VerbRemove:
		case "":
			return fmt.Errorf("steps[%d]: verb is required", i)
		default:
			return fmt.Errorf("steps[%d]: unknown verb %q", i, step.Verb)
		}

		for j, st := range step.DB {
			if err := validateStatement(st); err != nil {
				return fmt.Errorf("steps[%d].db[%d]: %w", i, j, err)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStatement(st Statement) error {
	switch st.Kind {
	case KindExec, KindQuery:
		if st.SQL == "" {
			return fmt.Errorf("sql is required for %s", st.Kind)
		}
		if st.Args.Kind != 0 && st.Args.Kind != yaml.SequenceNode {
			return fmt.Errorf("args must be a list")
		}
		if st.Rows.Kind != 0 && st.Rows.Kind != yaml.SequenceNode {
			return fmt.Errorf("rows must be a list of mappings")
		}
	case KindBegin, KindCommit, KindRollback:
		if st.SQL != "" {
			return fmt.Errorf("%s takes no sql", st.Kind)
		}
	case "":
		return fmt.Errorf("kind is required")
	default:
		return fmt.Errorf("unknown kind %q", st.Kind)
	}
	return nil
}

// nodeValue converts a YAML node to a query value. Mappings keep document
// order as *queryir.Columns and integers become int64, matching what
// queryir.ParseJSONValue produces for JSON.
func nodeValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return nodeValue(n.Content[0])
	case yaml.AliasNode:
		return nodeValue(n.Alias)
	case yaml.MappingNode:
		cols := queryir.NewColumns()
		for i := 0; i+1 < len(n.Content); i += 2 {
			var key string
			if err := n.Content[i].Decode(&key); err != nil {
				return nil, fmt.Errorf("line %d: %w", n.Content[i].Line, err)
			}
			v, err := nodeValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			cols.Set(key, v)
		}
		return cols, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := nodeValue(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return normalizeScalar(v), nil
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node", n.Line)
	}
}

func normalizeScalar(v any) any {
	if x, ok := v.(int); ok {
		return int64(x)
	}
	return v
}

// nodeList converts a sequence node to a slice. An absent node is empty.
func nodeList(n *yaml.Node) ([]any, error) {
	v, err := nodeValue(n)
	if err != nil || v == nil {
		return nil, err
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("line %d: expected a list", n.Line)
	}
	return list, nil
}
