package model

import "github.com/pkg/errors"

// Post is the domain model for a single entry of the posts collection.
// ID is assigned by the store and stays empty until the post is persisted.
type Post struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Image string `json:"image"`
}

// Fields returns the editable part of the post.
func (p Post) Fields() Fields {
	return Fields{Title: p.Title, Body: p.Body, Image: p.Image}
}

// Fields is what create and update send to the store. Updates replace all
// three fields at once.
type Fields struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Image string `json:"image"`
}

// ErrMissingField is returned by Validate, wrapped with the field name.
var ErrMissingField = errors.New("missing required field")

// Validate reports the first empty required field.
func (f Fields) Validate() error {
	switch {
	case f.Title == "":
		return errors.Wrap(ErrMissingField, "title")
	case f.Image == "":
		return errors.Wrap(ErrMissingField, "image")
	case f.Body == "":
		return errors.Wrap(ErrMissingField, "body")
	}
	return nil
}
