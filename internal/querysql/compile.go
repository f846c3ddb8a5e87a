package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/mysqlstore/internal/queryir"
)

// Query is a rendered statement: SQL text with `??` identifier and `?` value
// placeholders, and the bindings for them in left-to-right order.
type Query struct {
	SQL      string `json:"sql"`
	Bindings []any  `json:"bindings"`
}

// Compiler renders queryir statements to MySQL SQL.
//
// Compiler holds no state; a single instance may be shared. Every value and
// every identifier is a placeholder, never interpolated text.
type Compiler struct{}

// NewCompiler creates a new Compiler.
func NewCompiler() *Compiler {
	return &Compiler{}
}

// Render compiles stmt with a default Compiler.
func Render(stmt queryir.Statement) (Query, error) {
	sql, bindings, err := NewCompiler().Compile(stmt)
	if err != nil {
		return Query{}, err
	}
	return Query{SQL: sql, Bindings: bindings}, nil
}

// Compile converts a statement to SQL text and bindings.
// Returns (sql, bindings, error) tuple.
//
// The statement is validated first; malformed statements fail with a
// *queryir.QueryError and produce no SQL.
func (c *Compiler) Compile(stmt queryir.Statement) (string, []any, error) {
	if stmt == nil {
		return "", nil, fmt.Errorf("cannot compile nil statement")
	}
	if err := queryir.Validate(stmt); err != nil {
		return "", nil, err
	}

	b := &builder{}
	if err := c.statement(b, stmt); err != nil {
		return "", nil, err
	}
	return b.sql.String(), b.bindings(), nil
}

// builder accumulates SQL text and bindings in lockstep.
type builder struct {
	sql  strings.Builder
	args []any
}

func (b *builder) write(s string) {
	b.sql.WriteString(s)
}

func (b *builder) ident(name string) {
	b.sql.WriteString("??")
	b.args = append(b.args, name)
}

func (b *builder) value(v any) {
	b.sql.WriteString("?")
	b.args = append(b.args, v)
}

func (b *builder) bindings() []any {
	if b.args == nil {
		return []any{}
	}
	return b.args
}

func (c *Compiler) statement(b *builder, stmt queryir.Statement) error {
	switch s := stmt.(type) {
	case queryir.Insert:
		c.insert(b, s)
		return nil
	case *queryir.Insert:
		c.insert(b, *s)
		return nil
	case queryir.InsertWhereNotExists:
		return c.insertWhereNotExists(b, s)
	case *queryir.InsertWhereNotExists:
		return c.insertWhereNotExists(b, *s)
	case queryir.Select:
		return c.selectStmt(b, s)
	case *queryir.Select:
		return c.selectStmt(b, *s)
	case queryir.Update:
		return c.update(b, s)
	case *queryir.Update:
		return c.update(b, *s)
	case queryir.Delete:
		return c.deleteStmt(b, s)
	case *queryir.Delete:
		return c.deleteStmt(b, *s)
	default:
		return fmt.Errorf("unsupported statement type: %T", stmt)
	}
}

// insert renders `insert into ?? (??, ...) values (?, ...)`.
func (c *Compiler) insert(b *builder, s queryir.Insert) {
	b.write("insert into ")
	b.ident(s.Into)
	b.write(" (")
	c.identList(b, s.Values.Names())
	b.write(") values (")
	c.valueList(b, s.Values)
	b.write(")")
}

// insertWhereNotExists renders the guarded insert:
//
//	insert into ?? (??, ...) select ?, ... from dual
//	where not exists (select * from ?? where ...)
func (c *Compiler) insertWhereNotExists(b *builder, s queryir.InsertWhereNotExists) error {
	b.write("insert into ")
	b.ident(s.Into)
	b.write(" (")
	c.identList(b, s.Values.Names())
	b.write(") select ")
	c.valueList(b, s.Values)
	b.write(" from dual where not exists (")

	guard := queryir.Select{From: s.Into, Where: s.NotWhere}
	if err := c.selectStmt(b, guard); err != nil {
		return fmt.Errorf("compile insert guard: %w", err)
	}
	b.write(")")
	return nil
}

// selectStmt renders `select <cols|*> from ?? [where] [order by] [limit] [offset]`.
func (c *Compiler) selectStmt(b *builder, s queryir.Select) error {
	b.write("select ")
	if len(s.Columns) == 0 {
		b.write("*")
	} else {
		c.identList(b, s.Columns)
	}
	b.write(" from ")
	b.ident(s.From)

	if err := c.where(b, s.Where); err != nil {
		return err
	}
	c.orderBy(b, s.OrderBy)

	switch {
	case s.Limit != nil:
		b.write(" limit ")
		b.value(*s.Limit)
	case s.Offset != nil:
		// MySQL has no bare OFFSET; this is its documented "all rows" limit.
		b.write(" limit 18446744073709551615")
	}
	if s.Offset != nil {
		b.write(" offset ")
		b.value(*s.Offset)
	}
	return nil
}

// update renders `update ?? set ?? = ?, ... [where] [order by] [limit]`.
// Set columns keep insertion order.
func (c *Compiler) update(b *builder, s queryir.Update) error {
	b.write("update ")
	b.ident(s.Table)
	b.write(" set ")
	for i, name := range s.Set.Names() {
		if i > 0 {
			b.write(", ")
		}
		v, _ := s.Set.Get(name)
		b.ident(name)
		b.write(" = ")
		b.value(v)
	}

	if err := c.where(b, s.Where); err != nil {
		return err
	}
	c.orderBy(b, s.OrderBy)
	if s.Limit != nil {
		b.write(" limit ")
		b.value(*s.Limit)
	}
	return nil
}

// deleteStmt renders `delete from ?? [where] [limit]`.
func (c *Compiler) deleteStmt(b *builder, s queryir.Delete) error {
	b.write("delete from ")
	b.ident(s.From)
	if err := c.where(b, s.Where); err != nil {
		return err
	}
	if s.Limit != nil {
		b.write(" limit ")
		b.value(*s.Limit)
	}
	return nil
}

func (c *Compiler) where(b *builder, e queryir.Expr) error {
	if e == nil {
		return nil
	}
	b.write(" where ")
	if err := c.expr(b, e); err != nil {
		return fmt.Errorf("compile where: %w", err)
	}
	return nil
}

// orderBy renders ` order by ?? asc, ?? desc`. Directions are validated when
// the orders are built, so rendering cannot fail.
func (c *Compiler) orderBy(b *builder, orders []queryir.Order) {
	if len(orders) == 0 {
		return
	}
	b.write(" order by ")
	for i, o := range orders {
		if i > 0 {
			b.write(", ")
		}
		b.ident(o.Column)
		b.write(" ")
		b.write(o.Direction.String())
	}
}

func (c *Compiler) identList(b *builder, names []string) {
	for i, n := range names {
		if i > 0 {
			b.write(", ")
		}
		b.ident(n)
	}
}

func (c *Compiler) valueList(b *builder, values *queryir.Columns) {
	for i, n := range values.Names() {
		if i > 0 {
			b.write(", ")
		}
		v, _ := values.Get(n)
		b.value(v)
	}
}

// expr renders a boolean expression.
func (c *Compiler) expr(b *builder, e queryir.Expr) error {
	switch x := e.(type) {
	case queryir.Equals:
		b.ident(x.Column)
		b.write(" = ")
		b.value(x.Value)
	case *queryir.Equals:
		return c.expr(b, *x)
	case queryir.Compare:
		b.ident(x.Column)
		b.write(" " + string(x.Op) + " ")
		b.value(x.Value)
	case *queryir.Compare:
		return c.expr(b, *x)
	case queryir.IsNull:
		b.ident(x.Column)
		b.write(" is null")
	case *queryir.IsNull:
		return c.expr(b, *x)
	case queryir.In:
		c.in(b, x)
	case *queryir.In:
		c.in(b, *x)
	case queryir.And:
		if err := c.expr(b, x.Left); err != nil {
			return err
		}
		b.write(" and ")
		return c.expr(b, x.Right)
	case *queryir.And:
		return c.expr(b, *x)
	case queryir.Not:
		return c.not(b, x)
	case *queryir.Not:
		return c.not(b, *x)
	case queryir.Exists:
		return c.exists(b, x)
	case *queryir.Exists:
		return c.exists(b, *x)
	case queryir.Object:
		return c.object(b, x)
	case *queryir.Object:
		return c.object(b, *x)
	default:
		return fmt.Errorf("unsupported expression type: %T", e)
	}
	return nil
}

// in renders `?? in (?, ...)`; the empty list is the contradiction `0`.
func (c *Compiler) in(b *builder, x queryir.In) {
	if len(x.Values) == 0 {
		b.write("0")
		return
	}
	b.ident(x.Column)
	b.write(" in (")
	for i, v := range x.Values {
		if i > 0 {
			b.write(", ")
		}
		b.value(v)
	}
	b.write(")")
}

func (c *Compiler) not(b *builder, x queryir.Not) error {
	switch x.Expr.(type) {
	case queryir.Exists, *queryir.Exists:
		b.write("not ")
		return c.expr(b, x.Expr)
	}
	b.write("not (")
	if err := c.expr(b, x.Expr); err != nil {
		return err
	}
	b.write(")")
	return nil
}

func (c *Compiler) exists(b *builder, x queryir.Exists) error {
	b.write("exists (")
	if err := c.selectStmt(b, *x.Select); err != nil {
		return err
	}
	b.write(")")
	return nil
}

// object renders the lifted filter conjunction; no terms is the tautology `1`.
func (c *Compiler) object(b *builder, x queryir.Object) error {
	if len(x.Terms) == 0 {
		b.write("1")
		return nil
	}
	for i, t := range x.Terms {
		if i > 0 {
			b.write(" and ")
		}
		if err := c.expr(b, t); err != nil {
			return err
		}
	}
	return nil
}
