package pigo

import (
	"embed"
	"errors"
	"fmt"
)

//go:generate curl -fsSL -o cascade/facefinder https://raw.githubusercontent.com/esimov/pigo/master/cascade/facefinder

//go:embed cascade
var cascadeFS embed.FS

const cascadeFile = "cascade/facefinder"

var ErrNoCascade = errors.New("facefinder cascade is not embedded")

// EmbeddedCascade returns the facefinder cascade compiled into the binary.
func EmbeddedCascade() ([]byte, error) {
	b, err := cascadeFS.ReadFile(cascadeFile)
	if err != nil {
		return nil, fmt.Errorf("%w (run go generate ./internal/provider/pigo): %v", ErrNoCascade, err)
	}
	return b, nil
}

// Default unpacks the embedded cascade.
func Default(cfg Config) (*Locator, error) {
	b, err := EmbeddedCascade()
	if err != nil {
		return nil, err
	}
	return NewLocator(b, cfg)
}
