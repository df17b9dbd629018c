// Package report writes scan results.
package report

import (
	"fmt"
	"io"

	"github.com/dhamidi/poolscan/scan"
)

type Encoder interface {
	Encode(res scan.Result) error
	Close(sum scan.Summary) error
}

// ForFormat returns the encoder registered under name.
func ForFormat(name string, w io.Writer, matchesOnly bool) (Encoder, error) {
	switch name {
	case "", "line":
		return NewLineEncoder(w, matchesOnly), nil
	case "json":
		return NewJSONEncoder(w, matchesOnly), nil
	}
	return nil, fmt.Errorf("unknown format: %s (expected line or json)", name)
}

func status(res scan.Result) string {
	switch {
	case res.Err != nil:
		return "error"
	case res.Matched:
		return "match"
	}
	return "miss"
}

func keep(res scan.Result, matchesOnly bool) bool {
	return !matchesOnly || res.Matched
}
