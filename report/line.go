package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dhamidi/poolscan/classfile"
	"github.com/dhamidi/poolscan/scan"
)

// LineEncoder writes one tab-separated line per result:
//
//	status  path  java-version  detail
type LineEncoder struct {
	w           io.Writer
	matchesOnly bool
}

func NewLineEncoder(w io.Writer, matchesOnly bool) *LineEncoder {
	return &LineEncoder{w: w, matchesOnly: matchesOnly}
}

func (e *LineEncoder) Encode(res scan.Result) error {
	if !keep(res, e.matchesOnly) {
		return nil
	}
	_, err := io.WriteString(e.w, e.line(res))
	return err
}

func (e *LineEncoder) line(res scan.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\t%s", status(res), res.Path)
	if res.Major != 0 {
		fmt.Fprintf(&sb, "\t%s", classfile.JavaVersion(res.Major))
	} else {
		sb.WriteString("\t-")
	}
	if res.Err != nil {
		fmt.Fprintf(&sb, "\t%v", res.Err)
	}
	sb.WriteString("\n")
	return sb.String()
}

func (e *LineEncoder) Close(sum scan.Summary) error {
	_, err := fmt.Fprintf(e.w, "# files=%d matched=%d errors=%d skipped=%d cache_hits=%d\n",
		sum.Files, sum.Matched, sum.Errors, sum.Skipped, sum.CacheHits)
	return err
}
