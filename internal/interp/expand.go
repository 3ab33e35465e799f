package interp

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	placeholderPattern      = regexp.MustCompile(`\$\{(\w+)\}`)
	substPlaceholderPattern = regexp.MustCompile(`\$\{exodep:(\w+)\}`)
)

// expand substitutes ${name} placeholders until none remain. A substituted
// value may introduce new placeholders; they are expanded in turn, up to the
// session's expansion limit.
//
// On failure the partially expanded text is discarded.
func (sc *script) expand(text string) (string, error) {
	return sc.expandWith(placeholderPattern, "${", text)
}

// substExpand is expand for the ${exodep:name} form used by subst.
func (sc *script) substExpand(text string) (string, error) {
	return sc.expandWith(substPlaceholderPattern, "${exodep:", text)
}

func (sc *script) expandWith(pattern *regexp.Regexp, open, text string) (string, error) {
	original := text
	limit := sc.session.maxExpansions
	for n := 0; ; n++ {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			return text, nil
		}
		if n >= limit {
			return "", newError(KindExpansionLimit,
				"expansion of %q did not terminate after %d substitutions", original, limit)
		}

		name := m[1]
		value, err := sc.lookup(name)
		if err != nil {
			return "", err
		}
		text = strings.ReplaceAll(text, open+name+"}", value)
	}
}

// lookup resolves one placeholder name. strand goes through the versions
// table.
func (sc *script) lookup(name string) (string, error) {
	if name == "strand" {
		return sc.selectStrand()
	}
	if value, ok := sc.vars[name]; ok {
		return value, nil
	}
	return "", &Error{
		Kind:     KindUnresolvedVariable,
		Message:  "unrecognised substitution variable: " + name,
		Variable: name,
	}
}

// selectStrand maps the bound strand through the versions table. The first
// entry listing the strand among its aliases wins; with no match the strand
// is used as is.
func (sc *script) selectStrand() (string, error) {
	strand, ok := sc.vars["strand"]
	if !ok {
		return "", newError(KindUnresolvedStrand, "no suitable 'strand' variable available for substitution")
	}
	for _, entry := range sc.versions {
		for _, alias := range strings.Fields(entry.aliases) {
			if alias == strand {
				return entry.label, nil
			}
		}
	}
	return strand, nil
}

var versionLinePattern = regexp.MustCompile(`^(\S+)\s+(.*)`)

// parseVersions adds the entries of a versions resource to the strand
// table. Each content line is "<label> <alias> <alias> ...". A repeated
// alias list keeps its original position and takes the newer label.
func (sc *script) parseVersions(content string) {
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimRightFunc(raw, unicode.IsSpace)
		line = commentPattern.ReplaceAllString(line, "")
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := versionLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		sc.setVersion(m[2], m[1])
	}
}

func (sc *script) setVersion(aliases, label string) {
	for i := range sc.versions {
		if sc.versions[i].aliases == aliases {
			sc.versions[i].label = label
			return
		}
	}
	sc.versions = append(sc.versions, strandEntry{aliases: aliases, label: label})
}
