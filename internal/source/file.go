package source

import (
	"context"
	"fmt"
	"io"
	"os"
)

// File reads the ledger from a local path on every fetch.
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Name() string { return "file:" + f.path }

func (f *File) Fetch(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fh, err := os.Open(f.path)
	if err != nil {
		return "", fmt.Errorf("open source file: %w", err)
	}
	defer fh.Close()

	body, err := io.ReadAll(io.LimitReader(fh, MaxBodyBytes+1))
	if err != nil {
		return "", fmt.Errorf("read source file: %w", err)
	}
	if len(body) > MaxBodyBytes {
		return "", ErrTooLarge
	}
	return string(body), nil
}
