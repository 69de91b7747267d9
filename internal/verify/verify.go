// Package verify checks staged output integrity: every local script and
// stylesheet reference in the staged index.html must resolve to a staged
// file. Problems are reported for the operator but never fail a build.
package verify

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// Checker verifies a staged target directory.
type Checker struct{}

// Verify parses index.html in targetDir and returns one problem string per
// local asset reference that does not resolve to a file under the target.
func (Checker) Verify(targetDir string) ([]string, error) {
	indexPath := filepath.Join(targetDir, "index.html")
	f, err := os.Open(indexPath)
	if err != nil {
		return nil, fmt.Errorf("open staged index.html: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse staged index.html: %w", err)
	}

	var problems []string
	for _, ref := range collectAssetRefs(doc) {
		rel, ok := localizeRef(ref)
		if !ok {
			continue // external or inline reference
		}
		if _, err := os.Stat(filepath.Join(targetDir, filepath.FromSlash(rel))); err != nil {
			problems = append(problems, fmt.Sprintf("missing %s (referenced by index.html)", rel))
		}
	}
	return problems, nil
}

// collectAssetRefs walks the parsed document collecting script src and
// link href attribute values.
func collectAssetRefs(doc *html.Node) []string {
	var refs []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script":
				if v, ok := attr(n, "src"); ok {
					refs = append(refs, v)
				}
			case "link":
				if v, ok := attr(n, "href"); ok {
					refs = append(refs, v)
				}
			case "img":
				if v, ok := attr(n, "src"); ok {
					refs = append(refs, v)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return refs
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key && a.Val != "" {
			return a.Val, true
		}
	}
	return "", false
}

// localizeRef converts a document reference to a target-relative path.
// External URLs, protocol-relative URLs and data URIs return ok=false.
func localizeRef(ref string) (string, bool) {
	if strings.Contains(ref, "://") || strings.HasPrefix(ref, "//") || strings.HasPrefix(ref, "data:") {
		return "", false
	}
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	ref = strings.TrimPrefix(ref, "/")
	if ref == "" {
		return "", false
	}
	return ref, true
}
