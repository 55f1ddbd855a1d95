package lockout

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Policy is the process-wide lockout configuration, loaded once at startup.
type Policy struct {
	Exceptions   []string       `yaml:"exceptions"`
	ServiceRegex string         `yaml:"serviceRegex"`
	Days         []time.Weekday `yaml:"days"`
	AfterHour    int            `yaml:"afterHour"`
}

// DefaultPolicy returns a policy with the lockout fully disabled.
func DefaultPolicy() Policy {
	return Policy{AfterHour: -1}
}

// PolicyFromEnv loads the policy from environment variables.
// LOCKOUT_EXCEPTIONS and LOCKOUT_DAYS are comma-separated; LOCKOUT_AFTER_HOUR
// is an hour of day (0-23). The service scope comes from
// LOCKOUT_DEPLOYMENT_REGEX in Kubernetes mode and LOCKOUT_SERVICE_REGEX
// otherwise.
func PolicyFromEnv(kubernetes bool) Policy {
	p := DefaultPolicy()

	if v := os.Getenv("LOCKOUT_EXCEPTIONS"); v != "" {
		p.Exceptions = splitList(v)
	}

	if kubernetes {
		p.ServiceRegex = os.Getenv("LOCKOUT_DEPLOYMENT_REGEX")
	} else {
		p.ServiceRegex = os.Getenv("LOCKOUT_SERVICE_REGEX")
	}

	if v := os.Getenv("LOCKOUT_DAYS"); v != "" {
		for _, part := range splitList(v) {
			if d, err := strconv.Atoi(part); err == nil && d >= 0 && d <= 6 {
				p.Days = append(p.Days, time.Weekday(d))
			}
		}
	}

	if v := os.Getenv("LOCKOUT_AFTER_HOUR"); v != "" {
		if h, err := strconv.Atoi(v); err == nil && h >= 0 && h <= 23 {
			p.AfterHour = h
		}
	}

	return p
}

// LoadPolicyFile loads a policy from a YAML file. A missing file yields the
// default (disabled) policy so the file is strictly optional.
func LoadPolicyFile(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultPolicy(), nil
		}
		return Policy{}, fmt.Errorf("read lockout policy: %w", err)
	}

	p := DefaultPolicy()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("parse lockout policy: %w", err)
	}

	return p, nil
}

// splitList splits a comma-separated value, trimming whitespace and dropping
// empty entries.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
