package tree

import "github.com/pkg/errors"

var (
	ErrNotFound         = errors.New("comment not found")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrMalformedInput   = errors.New("malformed input")
)

func notFound(id string) error {
	return errors.WithMessagef(ErrNotFound, "id %q", id)
}
