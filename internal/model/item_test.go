package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		text    string
		want    int
		wantErr bool
	}{
		{"5", 5, false},
		{" 12 ", 12, false},
		{"0", 0, false},
		// No range policy at this layer.
		{"-3", -3, false},
		{"", 0, true},
		{"   ", 0, true},
		{"five", 0, true},
		{"2.5", 0, true},
		{"1e3", 0, true},
		{"99999999999999999999999", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseQuantity(tt.text)
		if tt.wantErr {
			assert.Error(t, err, "ParseQuantity(%q)", tt.text)
			assert.True(t, errors.Is(err, ErrInvalidArgument), "ParseQuantity(%q) error %v should wrap ErrInvalidArgument", tt.text, err)
			continue
		}
		assert.NoError(t, err, "ParseQuantity(%q)", tt.text)
		assert.Equal(t, tt.want, got, "ParseQuantity(%q)", tt.text)
	}
}
