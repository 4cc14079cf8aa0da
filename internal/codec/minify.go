package codec

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/json"
	"github.com/tdewolff/minify/v2/svg"
)

// Kind is a class of minifiable text.
type Kind string

const (
	Markup     Kind = "markup"
	Stylesheet Kind = "stylesheet"
	Script     Kind = "script"
	Data       Kind = "data"
	Vector     Kind = "vector"
)

var mediaTypes = map[Kind]string{
	Markup:     "text/html",
	Stylesheet: "text/css",
	Script:     "application/javascript",
	Data:       "application/json",
	Vector:     "image/svg+xml",
}

var extKinds = map[string]Kind{
	".html":        Markup,
	".htm":         Markup,
	".css":         Stylesheet,
	".js":          Script,
	".mjs":         Script,
	".json":        Data,
	".webmanifest": Data,
	".svg":         Vector,
}

// KindForExt returns the kind of a file extension.
func KindForExt(ext string) (Kind, bool) {
	k, ok := extKinds[strings.ToLower(ext)]
	return k, ok
}

// MinifyOptions tune the minifiers.
type MinifyOptions struct {
	KeepComments     bool
	KeepWhitespace   bool
	KeepDocumentTags bool
	KeepNames        bool

	// Precision is the number of significant digits kept in numbers; 0
	// keeps all.
	Precision int
}

// Minifier minifies text of a given kind.
type Minifier interface {
	Minify(kind Kind, data []byte, opts MinifyOptions) ([]byte, error)
}

// TextMinifier is the default Minifier.
type TextMinifier struct{}

// Minify implements Minifier.
func (TextMinifier) Minify(kind Kind, data []byte, opts MinifyOptions) ([]byte, error) {
	mediaType, ok := mediaTypes[kind]
	if !ok {
		return nil, fmt.Errorf("minify: unknown kind %q", kind)
	}
	out, err := newMinifier(opts).Bytes(mediaType, data)
	if err != nil {
		return nil, fmt.Errorf("minify %s: %w", kind, err)
	}
	return out, nil
}

var (
	scriptTypes = regexp.MustCompile(`^(application|text)/(x-)?(java|ecma)script$`)
	jsonTypes   = regexp.MustCompile(`[/+]json$`)
)

func newMinifier(opts MinifyOptions) *minify.M {
	m := minify.New()
	m.Add("text/html", &html.Minifier{
		KeepComments:     opts.KeepComments,
		KeepWhitespace:   opts.KeepWhitespace,
		KeepDocumentTags: opts.KeepDocumentTags,
		KeepEndTags:      true,
		KeepQuotes:       true,
	})
	m.Add("text/css", &css.Minifier{Precision: opts.Precision})
	m.AddRegexp(scriptTypes, &js.Minifier{
		Precision:    opts.Precision,
		KeepVarNames: opts.KeepNames,
	})
	m.AddRegexp(jsonTypes, &json.Minifier{Precision: opts.Precision})
	m.Add("image/svg+xml", &svg.Minifier{
		KeepComments: opts.KeepComments,
		Precision:    opts.Precision,
	})
	return m
}
