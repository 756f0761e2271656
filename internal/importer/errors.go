package importer

import (
	"errors"

	"bookshelf/internal/types"
)

func isRejected(err error) bool {
	return errors.Is(err, types.ErrInvalid) || errors.Is(err, types.ErrDuplicate)
}
