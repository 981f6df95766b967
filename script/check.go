package script

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

// Check parses a step script without running it. Empty sources are valid.
// Sources are method bodies, so they are compiled inside a function.
func Check(source string) error {
	if strings.TrimSpace(source) == "" {
		return nil
	}
	wrapped := "(function() {\n" + source + "\n})"
	if _, err := goja.Compile("step", wrapped, false); err != nil {
		return fmt.Errorf("error compiling javascript %w", err)
	}
	return nil
}

// CheckAll returns the errors of every non-empty failing source, keyed like the input.
func CheckAll(sources map[string]string) map[string]string {
	errs := make(map[string]string)
	for name, src := range sources {
		if err := Check(src); err != nil {
			errs[name] = err.Error()
		}
	}
	return errs
}
