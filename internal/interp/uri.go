package interp

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/roach88/exodep/internal/fetch"
)

// sourceURI builds the URI a file is fetched from using the active template.
func (sc *script) sourceURI(file string) (string, error) {
	return sc.uriFromTemplate(file, sc.uriTemplate)
}

// uriFromTemplate puts file into template and expands the result. An
// absolute http(s) file ignores the template.
func (sc *script) uriFromTemplate(file, template string) (string, error) {
	if fetch.IsRemote(file) {
		return sc.expand(file)
	}
	return sc.expand(strings.ReplaceAll(template, "${file}", file))
}

// versionsURI builds the URI of a versions resource. It always points at the
// master strand with no path so the table can be loaded before any strand
// is resolvable.
func (sc *script) versionsURI(file string) (string, error) {
	template := strings.ReplaceAll(sc.uriTemplate, "${strand}", "master")
	template = strings.ReplaceAll(template, "${path}", "")
	return sc.uriFromTemplate(file, template)
}

// defaultDestination is the unexpanded destination of a copy with no
// explicit dst: the source name, under ${path} when the template is laid out
// by path.
func (sc *script) defaultDestination(src string) string {
	if strings.Contains(sc.uriTemplate, "${path}") {
		return sc.vars["path"] + src
	}
	return src
}

// destination expands dst. A dst ending in a separator or naming an existing
// directory receives the base name of src.
func (sc *script) destination(src, dst string) (string, error) {
	expanded, err := sc.expand(dst)
	if err != nil {
		return "", err
	}
	if !isDirectoryTarget(expanded) {
		return expanded, nil
	}

	source, err := sc.expand(src)
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(expanded, "/") && !strings.HasSuffix(expanded, string(filepath.Separator)) {
		expanded += "/"
	}
	return expanded + path.Base(filepath.ToSlash(source)), nil
}

func isDirectoryTarget(p string) bool {
	if strings.HasSuffix(p, "/") || strings.HasSuffix(p, string(filepath.Separator)) {
		return true
	}
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
