package jsonstore

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/idilsaglam/postboard/internal/model"
)

// JSON snapshot of the posts collection. Single file, human-readable,
// portable. Written by export, read by import.

// DefaultFile is used when no path is given.
const DefaultFile = "posts.json"

// Load reads a snapshot. A missing file yields an empty list.
func Load(path string) ([]model.Post, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.Post{}, nil
		}
		return nil, errors.Wrap(err, "read file")
	}
	var posts []model.Post
	if err := json.Unmarshal(b, &posts); err != nil {
		return nil, errors.Wrap(err, "json unmarshal")
	}
	if posts == nil {
		posts = []model.Post{}
	}
	return posts, nil
}

// Save writes posts as indented JSON, creating parent directories.
func Save(path string, posts []model.Post) error {
	if posts == nil {
		posts = []model.Post{}
	}
	b, err := json.MarshalIndent(posts, "", "  ")
	if err != nil {
		return errors.Wrap(err, "json marshal")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "mkdir")
		}
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return errors.Wrap(err, "write file")
	}
	return nil
}
