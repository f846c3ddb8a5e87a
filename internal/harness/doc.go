// Package harness runs scripted entity scenarios against a mocked MySQL
// connection.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: upsert_empty_table
//	description: "Upsert on an empty table inserts one row"
//	entity: users
//	ids: [u1]
//	steps:
//	  - verb: save
//	    data: {email: a@x.com, score: 5}
//	    query: {upsert$: [email]}
//	    db:
//	      - kind: begin
//	      - kind: exec
//	        sql: "update `users` set `email` = ?, `score` = ? where `email` = ?"
//	        args: [a@x.com, 5, a@x.com]
//	        affected: 0
//	      - ...
//	      - kind: commit
//	    expect:
//	      result: {id: u1, email: a@x.com}
//	assertions:
//	  - type: trace_count
//	    event: commit
//	    count: 1
//
// data and query keep their YAML key order, which fixes column and binding
// order just as JSON input would.
//
// # Statements
//
// Each step lists the statements its verb must run, with the database's
// answer: affected and insert_id for exec, rows (a list of mappings) for
// query, or error to make the statement fail. Statements are matched in
// order with exact SQL text and arguments.
//
// # Trace
//
// The trace is recorded from the store's query log: every statement with
// its bindings, transaction begin/commit/rollback, and each step's result
// or error. RunWithGolden compares it, as canonical JSON, against
// testdata/golden.
//
// # Assertion Types
//
//   - trace_contains: a statement with the given SQL ran
//   - trace_order: statements ran in the given order
//   - trace_count: a statement, or an event type, occurred exactly N times
package harness
