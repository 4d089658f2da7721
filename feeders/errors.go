package feeders

import (
	"errors"
	"fmt"
)

var ErrUnsupportedExtension = errors.New("unsupported config file extension")

func wrapExtensionError(path, ext string) error {
	return fmt.Errorf("%w %q for %s", ErrUnsupportedExtension, ext, path)
}
