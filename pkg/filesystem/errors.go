package filesystem

import (
	"errors"
	"fmt"

	. "github.com/weberc2/blockfs/pkg/types"
)

// PathError ties a sentinel error to the path it concerns. Its message is the
// one reported through LastError, e.g. `/home/x does not exist`.
type PathError struct {
	Path string
	Err  error
}

func (err *PathError) Error() string {
	switch {
	case errors.Is(err.Err, NotFoundErr):
		return fmt.Sprintf("%s does not exist", err.Path)
	case errors.Is(err.Err, NotADirErr):
		return fmt.Sprintf("%s is not a directory", err.Path)
	case errors.Is(err.Err, NotAFileErr):
		return fmt.Sprintf("%s is not a file", err.Path)
	case errors.Is(err.Err, InvalidPathErr):
		return fmt.Sprintf("%q is not a valid path", err.Path)
	case errors.Is(err.Err, AlreadyExistsErr):
		return fmt.Sprintf("%s already exists", err.Path)
	default:
		return fmt.Sprintf("%s: %v", err.Path, err.Err)
	}
}

func (err *PathError) Unwrap() error { return err.Err }
