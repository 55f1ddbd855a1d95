// Package lockout implements the action-gating policy: it decides whether a
// mutating action on a named service is permitted at the current wall-clock
// time, based on configured user exceptions, lockout days and a lockout hour.
package lockout

import (
	"fmt"
	"regexp"
	"time"
)

// Evaluator answers allow/deny for a (username, service) pair against an
// immutable policy snapshot. It holds no mutable state and is safe for
// concurrent use.
type Evaluator struct {
	exceptions map[string]struct{}
	pattern    *regexp.Regexp // nil when no service regex is configured
	days       map[time.Weekday]struct{}
	afterHour  int // -1 when disabled

	now func() time.Time
}

// NewEvaluator compiles the policy into an Evaluator. A malformed service
// regex is a configuration error; callers are expected to fail startup on it.
func NewEvaluator(p Policy) (*Evaluator, error) {
	e := &Evaluator{
		exceptions: make(map[string]struct{}, len(p.Exceptions)),
		days:       make(map[time.Weekday]struct{}, len(p.Days)),
		afterHour:  p.AfterHour,
		now:        time.Now,
	}

	for _, u := range p.Exceptions {
		if u != "" {
			e.exceptions[u] = struct{}{}
		}
	}
	for _, d := range p.Days {
		e.days[d] = struct{}{}
	}

	// An empty pattern means the lockout is scoped to nothing. This is
	// deliberate: leaving the regex unconfigured disables the lockout even
	// when days or hours are set, so we never hand regexp.MustCompile("")
	// (which matches everything) to the checks below.
	if p.ServiceRegex != "" {
		re, err := regexp.Compile(p.ServiceRegex)
		if err != nil {
			return nil, fmt.Errorf("lockout: invalid service regex %q: %w", p.ServiceRegex, err)
		}
		e.pattern = re
	}

	return e, nil
}

// Allowed reports whether the given user may mutate the given service right
// now. Precedence: user exceptions win unconditionally, then the day check,
// then the hour check. Both time checks only apply to services matching the
// configured regex.
func (e *Evaluator) Allowed(username, service string) bool {
	if _, ok := e.exceptions[username]; ok {
		return true
	}

	now := e.now()

	if len(e.days) > 0 {
		if _, ok := e.days[now.Weekday()]; ok && e.inScope(service) {
			return false
		}
	}

	if e.afterHour >= 0 && now.Hour() >= e.afterHour && e.inScope(service) {
		return false
	}

	return true
}

// inScope reports whether a service name matches the lockout regex. With no
// regex configured nothing is in scope.
func (e *Evaluator) inScope(service string) bool {
	return e.pattern != nil && e.pattern.MatchString(service)
}
