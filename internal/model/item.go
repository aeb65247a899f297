package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Item is a single inventory record. ID is zero until the store assigns one.
type Item struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// ErrInvalidArgument marks input rejected at the boundary before it reaches the store.
var ErrInvalidArgument = errors.New("invalid argument")

// ParseQuantity parses free-text quantity input. Any value that is not a
// base-10 integer is rejected; no range policy is applied.
func ParseQuantity(text string) (int, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, fmt.Errorf("%w: quantity required", ErrInvalidArgument)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: quantity %q is not an integer", ErrInvalidArgument, text)
	}
	return n, nil
}
