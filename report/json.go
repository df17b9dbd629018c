package report

import (
	"encoding/json"
	"io"

	"github.com/dhamidi/poolscan/scan"
)

// JSONEncoder writes newline-delimited JSON, one object per result and a
// final summary object.
type JSONEncoder struct {
	enc         *json.Encoder
	matchesOnly bool
}

type jsonResult struct {
	Path    string `json:"path"`
	Status  string `json:"status"`
	Major   uint16 `json:"major,omitempty"`
	Matched bool   `json:"matched"`
	Cached  bool   `json:"cached,omitempty"`
	Error   string `json:"error,omitempty"`
}

type jsonSummary struct {
	Summary   bool `json:"summary"`
	Files     int  `json:"files"`
	Matched   int  `json:"matched"`
	Errors    int  `json:"errors"`
	Skipped   int  `json:"skipped"`
	CacheHits int  `json:"cache_hits"`
}

func NewJSONEncoder(w io.Writer, matchesOnly bool) *JSONEncoder {
	return &JSONEncoder{enc: json.NewEncoder(w), matchesOnly: matchesOnly}
}

func (e *JSONEncoder) Encode(res scan.Result) error {
	if !keep(res, e.matchesOnly) {
		return nil
	}
	out := jsonResult{
		Path:    res.Path,
		Status:  status(res),
		Major:   res.Major,
		Matched: res.Matched,
		Cached:  res.Cached,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return e.enc.Encode(out)
}

func (e *JSONEncoder) Close(sum scan.Summary) error {
	return e.enc.Encode(jsonSummary{
		Summary:   true,
		Files:     sum.Files,
		Matched:   sum.Matched,
		Errors:    sum.Errors,
		Skipped:   sum.Skipped,
		CacheHits: sum.CacheHits,
	})
}
