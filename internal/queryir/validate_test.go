package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_WellFormedStatements(t *testing.T) {
	where := Object{Terms: []Expr{NewEquals("id", "u1")}}

	stmts := []Statement{
		Insert{Into: "users", Values: ColumnsOf("id", "u1")},
		&Insert{Into: "users", Values: NewColumns()},
		InsertWhereNotExists{Into: "users", Values: ColumnsOf("id", "u1"), NotWhere: where},
		Select{From: "users", Columns: []string{"id"}, Where: where, OrderBy: []Order{{Column: "id"}}},
		Update{Table: "users", Set: ColumnsOf("email", "b@x.com"), Where: where},
		Delete{From: "users", Where: where, Limit: Int64(1)},
	}

	for _, s := range stmts {
		assert.NoError(t, Validate(s), "%T", s)
	}
}

func TestValidate_Violations(t *testing.T) {
	testCases := []struct {
		name string
		stmt Statement
		code QueryErrorCode
	}{
		{"missing table", Select{}, ErrCodeMissingTable},
		{"empty set", Update{Table: "users", Set: NewColumns()}, ErrCodeEmptySet},
		{"nil set", Update{Table: "users"}, ErrCodeEmptySet},
		{"empty column", Insert{Into: "users", Values: ColumnsOf("", 1)}, ErrCodeInvalidArgument},
		{"guard without values", InsertWhereNotExists{Into: "users", NotWhere: NewIsNull("a")}, ErrCodeEmptySet},
		{"guard without condition", InsertWhereNotExists{Into: "users", Values: ColumnsOf("id", 1)}, ErrCodeInvalidArgument},
		{"nil exists", Select{From: "users", Where: Exists{}}, ErrCodeInvalidArgument},
		{"nil and operand", Delete{From: "users", Where: And{Left: NewIsNull("a")}}, ErrCodeInvalidArgument},
		{"bad operator", Select{From: "users", Where: Compare{Column: "a", Op: "~", Value: 1}}, ErrCodeUnsupportedOperator},
		{"empty order column", Select{From: "users", OrderBy: []Order{{}}}, ErrCodeInvalidArgument},
		{"nested select table", Select{From: "users", Where: Exists{Select: &Select{}}}, ErrCodeMissingTable},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.stmt)
			require.Error(t, err)
			var qe *QueryError
			require.ErrorAs(t, err, &qe)
			assert.Equal(t, tc.code, qe.Code)
		})
	}
}

func TestValidate_UnknownStatement(t *testing.T) {
	assert.Error(t, Validate(nil))
}
