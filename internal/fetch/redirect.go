package fetch

import (
	"bytes"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// The two script-redirect shapes seen in the wild on file hosts:
// a literal replacement call, and a string substitution applied to the
// current location.
var (
	locationReplaceRe = regexp.MustCompile(`window\.location\.replace\(['"]([^'"]+)['"]\)`)
	hrefReplaceRe     = regexp.MustCompile(`window\.location\.href\.replace\(['"]([^'"]+)['"],\s*['"]([^'"]+)['"]\)`)
)

// extractScriptRedirect scans the script elements of an HTML page for a
// client-side redirect and resolves the target against originalURL.
func extractScriptRedirect(html []byte, originalURL string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", false
	}

	var target string
	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		script := sel.Text()

		if m := locationReplaceRe.FindStringSubmatch(script); m != nil {
			target = m[1]
			return false
		}
		if m := hrefReplaceRe.FindStringSubmatch(script); m != nil {
			// The page rewrites its own URL: apply the same substitution to
			// the URL we fetched.
			target = strings.ReplaceAll(originalURL, m[1], m[2])
			return false
		}
		return true
	})

	if target == "" {
		return "", false
	}
	return makeAbsoluteURL(target, originalURL), true
}

// makeAbsoluteURL resolves raw against the scheme/host (and directory, for
// bare relative paths) of base.
func makeAbsoluteURL(raw string, base string) string {
	if strings.HasPrefix(raw, "http") {
		return raw
	}

	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return raw
	}
	schemeHost := parsed.Scheme + "://" + parsed.Host

	if strings.HasPrefix(raw, "/") {
		return schemeHost + raw
	}
	return schemeHost + path.Dir(parsed.Path) + "/" + raw
}
