package mutantic

import (
	"io"

	"github.com/goccy/go-yaml"
)

// DumpState writes the current validated snapshot as YAML. Debugging
// aid; the replicated serialization format is Update.
func (d *Document[T]) DumpState(w io.Writer) error {
	s, err := d.State()
	if err != nil {
		return err
	}
	b, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
