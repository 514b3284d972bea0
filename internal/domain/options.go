package domain

import "strings"

// Option identifies an optional correction pass.
type Option string

const (
	OptionFixCitations Option = "fix_citations"
	OptionAIGrammar    Option = "ai_grammar"
)

func (o Option) Known() bool {
	switch o {
	case OptionFixCitations, OptionAIGrammar:
		return true
	default:
		return false
	}
}

// Options is the ordered set of pass identifiers requested for a job.
// Unknown identifiers are kept so they can be echoed back, but never
// enable anything.
type Options []Option

// ParseOptions accepts repeated values and comma-separated lists, trimming
// blanks and dropping duplicates while keeping first-seen order.
func ParseOptions(values ...string) Options {
	seen := map[Option]struct{}{}
	out := Options{}
	for _, v := range values {
		for _, item := range strings.Split(v, ",") {
			opt := Option(strings.ToLower(strings.TrimSpace(item)))
			if opt == "" {
				continue
			}
			if _, dup := seen[opt]; dup {
				continue
			}
			seen[opt] = struct{}{}
			out = append(out, opt)
		}
	}
	return out
}

func (o Options) Has(opt Option) bool {
	for _, v := range o {
		if v == opt {
			return true
		}
	}
	return false
}

func (o Options) Strings() []string {
	out := make([]string, 0, len(o))
	for _, v := range o {
		out = append(out, string(v))
	}
	return out
}
