package domain

import (
	"context"
)

// Library is the portable export format of one user's entries
type Library struct {
	Version int     `json:"version" yaml:"version"`
	Kind    Kind    `json:"kind" yaml:"kind"`
	Entries []Entry `json:"entries" yaml:"entries"`
}

// LibraryRepository reads and writes exported libraries
type LibraryRepository interface {
	Get(ctx context.Context, path string) (*Library, error)
	Store(ctx context.Context, path string, lib *Library) error
}
