package pipeline

import (
	"regexp"
	"strings"
)

// BranchAllowed reports whether a branch triggers builds under the
// manifest's filters. Except wins over only; an empty only list allows
// every branch.
func (m *Manifest) BranchAllowed(branch string) bool {
	if matchesAny(m.Branches.Except, branch) {
		return false
	}
	if len(m.Branches.Only) == 0 {
		return true
	}
	return matchesAny(m.Branches.Only, branch)
}

func matchesAny(patterns []string, branch string) bool {
	for _, pattern := range patterns {
		re, err := compileBranchPattern(pattern)
		if err != nil {
			// Validate rejects bad patterns at load time
			continue
		}
		if re != nil {
			if re.MatchString(branch) {
				return true
			}
		} else if pattern == branch {
			return true
		}
	}
	return false
}

// compileBranchPattern compiles /.../ forms to a regexp. Plain names return
// a nil regexp and match literally.
func compileBranchPattern(pattern string) (*regexp.Regexp, error) {
	if len(pattern) >= 2 && strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/") {
		return regexp.Compile(pattern[1 : len(pattern)-1])
	}
	return nil, nil
}
