// Package timeparse resolves a filter timestamp that may arrive either
// as RFC3339 or as a natural-language expression ("2 days ago", "last
// week"), the way the teacher's internal/timeparsing package resolves
// due dates, but backed by github.com/olebedev/when instead of a
// hand-rolled rule set.
package timeparse

import (
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var parser = newParser()

func newParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// Resolve parses s as RFC3339 first, falling back to a natural-language
// expression relative to ref. Returns ok=false if neither succeeds.
func Resolve(s string, ref time.Time) (time.Time, bool, error) {
	if s == "" {
		return time.Time{}, false, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true, nil
	}
	res, err := parser.Parse(s, ref)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse time expression %q: %w", s, err)
	}
	if res == nil {
		return time.Time{}, false, nil
	}
	return res.Time, true, nil
}
