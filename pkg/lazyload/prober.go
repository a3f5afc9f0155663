package lazyload

import "errors"

// prober asks the host whether it already knows a module.
type prober struct {
	fw Framework
}

// exists reports whether the host knows name. Only ErrModuleNotFound means
// absent; any other lookup failure is returned as is.
func (p prober) exists(name string) (bool, error) {
	_, err := p.fw.Module(name)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrModuleNotFound):
		return false, nil
	default:
		return false, err
	}
}
