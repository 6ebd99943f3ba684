package main

import (
	"reflect"
	"testing"
)

func TestSplitFlag(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"thai", []string{"thai"}},
		{" thai, ramen ,,sushi ", []string{"thai", "ramen", "sushi"}},
	}
	for _, tt := range tests {
		if got := splitFlag(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%q: expected %v, got %v", tt.in, tt.want, got)
		}
	}
}
