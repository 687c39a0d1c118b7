package mongo

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/r-che/cadfael/types"
	"github.com/r-che/cadfael/types/dbms"
)

type Filter struct {
	expr bson.D	// search expression
}

func NewFilter() *Filter {
	return &Filter{}
}

func (f *Filter) Expr() bson.D {
	if f.expr == nil {
		// Empty document matches all records
		return bson.D{}
	}
	return f.expr
}

func (f *Filter) Len() int {
	return len(f.expr)
}

func (f *Filter) Clone() *Filter {
	// Make a copy
	rv := *f

	// Make a copy of expression slice using SetExpr
	rv.SetExpr(f.expr)

	// Return the pointer to the copy
	return &rv
}

func (f *Filter) SetExpr(expr primitive.D) *Filter {
	if expr == nil {
		return f
	}

	// Allocate new expression slice
	f.expr = make(primitive.D, len(expr))
	// Copy expression
	copy(f.expr, expr)

	return f
}

func (f *Filter) Append(expr ...primitive.E) *Filter {
	f.expr = append(f.expr, expr...)

	return f
}

// makeFilter converts lookup conditions to the filter, conditions are joined by AND
func makeFilter(l *dbms.Lookup) *Filter {
	filter := NewFilter()

	if l.Volume != "" {
		filter.Append(bson.E{types.FieldVolume, l.Volume})
	}
	if l.Perms != "" {
		filter.Append(bson.E{types.FieldPerms, l.Perms})
	}
	if l.Path != "" {
		// Equality on an array field matches any of its items
		filter.Append(bson.E{types.FieldPaths, l.Path})
	}

	return filter
}
