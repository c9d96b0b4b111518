package store

import (
	"fmt"
	"strings"
)

// Op is a comparison operator usable inside a key condition or filter
// expression string.
type Op string

const (
	OpEQ Op = "="
	OpLE Op = "<="
	OpGE Op = ">="
	OpLT Op = "<"
	OpGT Op = ">"
)

// Clause is one parsed "field <op> :placeholder" term.
type Clause struct {
	Field        string
	Op           Op
	ValuePlaceholder string
}

// ParseExpression splits a DynamoDB-style expression ("a = :a AND b <= :b")
// into its clauses. Both the in-memory test gateway and the DynamoDB
// adapter share this parser so a keyCondExpr/filterExpr string behaves
// identically regardless of backend.
func ParseExpression(expr string) ([]Clause, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	parts := strings.Split(expr, " AND ")
	clauses := make([]Clause, 0, len(parts))
	ops := []Op{OpLE, OpGE, OpEQ, OpLT, OpGT}
	for _, p := range parts {
		p = strings.TrimSpace(p)
		var matched bool
		for _, op := range ops {
			if idx := strings.Index(p, string(op)); idx >= 0 {
				field := strings.TrimSpace(p[:idx])
				rhs := strings.TrimSpace(p[idx+len(op):])
				if !strings.HasPrefix(rhs, ":") {
					continue
				}
				clauses = append(clauses, Clause{Field: field, Op: op, ValuePlaceholder: strings.TrimPrefix(rhs, ":")})
				matched = true
				break
			}
		}
		if !matched {
			return nil, fmt.Errorf("store: unrecognized expression clause %q", p)
		}
	}
	return clauses, nil
}
