package tools

import (
	"testing"
)

func TestTern(t *testing.T) {
	tests := []struct{
		cond	bool
		ifTrue	any
		ifFalse	any
	} {
		{	// Positive, integers
			cond:		true,
			ifTrue:		-1,
			ifFalse:	-2,
		},
		{	// Negative, integers
			cond:		false,
			ifTrue:		999,
			ifFalse:	777,
		},
		{	// Positive, strings
			cond:		true,
			ifTrue:		"directory",
			ifFalse:	"object",
		},
		{	// Negative, mixed types
			cond:		false,
			ifTrue:		999,
			ifFalse:	"ȴ\u0000",
		},
	}

	for testN, test := range tests {
		val := Tern(test.cond, test.ifTrue, test.ifFalse)

		want := test.ifFalse
		if test.cond {
			want = test.ifTrue
		}
		if val != want {
			t.Errorf("[%d] got - %v, want - %v", testN, val, want)
		}
	}
}
