package remote

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/idilsaglam/postboard/internal/model"
)

// ErrMalformedCollection is returned when a collection body is neither a JSON
// object nor null.
var ErrMalformedCollection = errors.New("malformed collection")

// Collection converts the store's keyed-map representation of a collection
// into posts, in the order the keys appear in the document. Each post gets
// its key as ID. Entries are not validated: a missing field stays empty and a
// value that is not an object yields a post carrying only its ID.
func Collection(data []byte) ([]model.Post, error) {
	posts := []model.Post{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return posts, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.Wrap(ErrMalformedCollection, "invalid json")
	}

	root := gjson.ParseBytes(data)
	switch {
	case root.Type == gjson.Null:
		return posts, nil
	case !root.IsObject():
		return nil, errors.Wrapf(ErrMalformedCollection, "expected object, got %s", root.Type)
	}

	root.ForEach(func(key, value gjson.Result) bool {
		posts = append(posts, record(key.String(), value))
		return true
	})
	return posts, nil
}

func record(key string, v gjson.Result) model.Post {
	p := model.Post{ID: key}
	if !v.IsObject() {
		return p
	}
	p.Title = v.Get("title").String()
	p.Body = v.Get("body").String()
	p.Image = v.Get("image").String()
	return p
}
