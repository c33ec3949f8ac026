package extract

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"go.uber.org/zap"
)

var (
	blockTagRes = func() []*regexp.Regexp {
		var res []*regexp.Regexp
		for _, tag := range []string{"script", "style", "nav", "footer"} {
			res = append(res, regexp.MustCompile(`(?is)<`+tag+`[^>]*>.*?</`+tag+`>`))
		}
		return res
	}()
	tagRe   = regexp.MustCompile(`<[^>]+>`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// CleanHTML converts page HTML to flat text the pattern banks can match
// against. Markdown conversion handles entity decoding and drops scripts
// and styles; the result is collapsed to single-space-separated prose so
// phrase patterns match across line breaks.
func CleanHTML(html []byte) string {
	md, err := htmltomarkdown.ConvertString(string(html))
	if err != nil {
		zap.L().Debug("extract: markdown conversion failed, falling back to tag strip", zap.Error(err))
		md = stripTags(string(html))
	}
	return strings.TrimSpace(spaceRe.ReplaceAllString(md, " "))
}

// stripTags is the fallback cleaner for markup the converter rejects.
func stripTags(html string) string {
	for _, re := range blockTagRes {
		html = re.ReplaceAllString(html, "")
	}
	html = tagRe.ReplaceAllString(html, " ")

	r := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	return r.Replace(html)
}
