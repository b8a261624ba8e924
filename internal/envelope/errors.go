package envelope

import "errors"

var (
	ErrUnsupportedType    = errors.New("unsupported value type")
	ErrCorruptEnvelope    = errors.New("corrupt envelope")
	ErrTypeIntegrity      = errors.New("type integrity failure")
	ErrDuplicateComposite = errors.New("composite name already registered")
)
