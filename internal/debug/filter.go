package debug

import (
	"fmt"
	"path"
	"strings"
)

type rule struct {
	pattern string
	include bool
}

// filter is an ordered list of rules, the first match wins.
type filter []rule

func parseFilter(env string) (filter, error) {
	var f filter
	for _, item := range strings.Split(env, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		r := rule{include: true}
		switch item[0] {
		case '-':
			r.include = false
			item = item[1:]
		case '+':
			item = item[1:]
		}

		if _, err := path.Match(item, ""); err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", item, err)
		}
		r.pattern = item
		f = append(f, r)
	}
	return f, nil
}

// match checks the rules against the package name pkg and the keys, which
// are matched with path.Match. ok is false if no rule applies.
func (f filter) match(pkg string, keys ...string) (include, ok bool) {
	for _, r := range f {
		if r.pattern == "all" || r.pattern == pkg {
			return r.include, true
		}
		for _, key := range keys {
			if m, _ := path.Match(r.pattern, key); m {
				return r.include, true
			}
		}
	}
	return false, false
}
