package queryir

// Expr is a boolean condition usable in a WHERE clause.
//
// This is a sealed interface - only types in this package implement it.
// Renderers switch exhaustively over the variants:
//   - Equals: column = value
//   - Compare: column <op> value (<>, <, <=, >, >=, like)
//   - IsNull: column is null
//   - In: column in (values...), the empty list matches nothing
//   - And: left and right
//   - Not: negation of any expression
//   - Exists: exists (select ...)
//   - Object: conjunction lifted from a filter map, the empty map matches all
//
// Expressions are immutable once built and are composed bottom-up.
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// Statement is a complete SQL statement.
//
// This is a sealed interface implemented by Insert, InsertWhereNotExists,
// Select, Update and Delete. Rendering a statement is a pure function of its
// fields.
type Statement interface {
	statementNode() // Marker method - seals interface to this package
}

// Equals matches rows whose column equals Value.
//
// A nil Value is not rewritten here; use IsNull (Where does this for you).
type Equals struct {
	Column string
	Value  any
}

func (Equals) exprNode() {}

// Operator is a binary comparison other than equality.
type Operator string

const (
	OpNotEqual     Operator = "<>"
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpLike         Operator = "like"
)

// Compare matches rows where `Column Op Value` holds.
type Compare struct {
	Column string
	Op     Operator
	Value  any
}

func (Compare) exprNode() {}

// IsNull matches rows whose column is SQL NULL.
type IsNull struct {
	Column string
}

func (IsNull) exprNode() {}

// In matches rows whose column is one of Values.
//
// An empty Values renders as the contradiction `0`.
type In struct {
	Column string
	Values []any
}

func (In) exprNode() {}

// And is the conjunction of two expressions.
type And struct {
	Left  Expr
	Right Expr
}

func (And) exprNode() {}

// Not negates an expression.
type Not struct {
	Expr Expr
}

func (Not) exprNode() {}

// Exists is true when the wrapped select returns at least one row.
type Exists struct {
	Select *Select
}

func (Exists) exprNode() {}

// Object is the conjunction of the terms lifted from a filter map.
//
// Terms keep the filter's key order. An Object with no terms renders as the
// tautology `1`.
type Object struct {
	Terms []Expr
}

func (Object) exprNode() {}

// Direction is a sort direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// String returns the SQL keyword.
func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// Order is one validated order-by entry.
type Order struct {
	Column    string
	Direction Direction
}

// Insert adds one row.
//
//	insert into <Into> (<Values names>) values (<Values>)
type Insert struct {
	Into   string
	Values *Columns
}

func (Insert) statementNode() {}

// InsertWhereNotExists adds one row unless a row matching NotWhere exists.
//
//	insert into <Into> (<cols>) select <vals> from dual
//	where not exists (select * from <Into> where <NotWhere>)
//
// The existence check and the insert are one statement.
type InsertWhereNotExists struct {
	Into     string
	Values   *Columns
	NotWhere Expr
}

func (InsertWhereNotExists) statementNode() {}

// Select reads rows.
//
//	select <Columns | *> from <From> [where] [order by] [limit] [offset]
type Select struct {
	From    string
	Columns []string // nil or empty selects *
	Where   Expr     // nil = no where clause
	OrderBy []Order
	Limit   *int64
	Offset  *int64
}

func (Select) statementNode() {}

// Update modifies rows.
//
//	update <Table> set <col> = <val>, ... [where] [order by] [limit]
type Update struct {
	Table   string
	Set     *Columns
	Where   Expr
	OrderBy []Order
	Limit   *int64
}

func (Update) statementNode() {}

// Delete removes rows.
//
//	delete from <From> [where] [limit]
type Delete struct {
	From  string
	Where Expr
	Limit *int64
}

func (Delete) statementNode() {}

// Int64 returns a pointer to n, for Limit and Offset literals.
func Int64(n int64) *int64 {
	return &n
}
