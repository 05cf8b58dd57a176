// Package bundler turns a multi-file JSX project into one self-contained
// HTML document suitable for inscription: JSX is compiled, local modules are
// inlined into a small registry, bare imports are mapped through an import
// map, and stylesheets are embedded.
package bundler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path"
	"time"

	"github.com/h2non/filetype"
)

// DefaultTimeout bounds a single build.
const DefaultTimeout = 10 * time.Second

// Options configure a Bundler.
type Options struct {
	// Entry overrides entry discovery when set.
	Entry string
	// EntryOnly emits only the entry module with bare specifiers rewritten,
	// leaving local imports in place.
	EntryOnly bool
	// Minify strips whitespace from scripts and stylesheets.
	Minify bool
	// ContentBase prefixes inscription ids in the import map.
	ContentBase string
	// Libraries override or extend WellKnownLibraries.
	Libraries map[string]string
	Timeout   time.Duration
}

// DefaultOptions returns inlining mode with the default content base and
// timeout.
func DefaultOptions() Options {
	return Options{ContentBase: DefaultContentBase, Timeout: DefaultTimeout}
}

// Result is a finished bundle.
type Result struct {
	HTML            string                    `json:"html"`
	Entry           string                    `json:"entry"`
	Modules         []string                  `json:"modules"`
	Stylesheets     []string                  `json:"stylesheets"`
	Warnings        []ImportResolutionWarning `json:"warnings"`
	TransformErrors []TransformError          `json:"transformErrors"`
	Size            int                       `json:"size"`
	Duration        time.Duration             `json:"duration"`
}

// Bundler builds projects. It holds no per-build state and is safe for
// concurrent use.
type Bundler struct {
	opts Options
	log  *slog.Logger
}

// New returns a Bundler. A nil logger uses slog.Default.
func New(opts Options, logger *slog.Logger) *Bundler {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bundler{opts: opts, log: logger.With("component", "bundler")}
}

// Options returns the bundler's configuration.
func (bd *Bundler) Options() Options { return bd.opts }

// Bundle builds files into a single HTML document. inscriptions maps bare
// specifiers to inscription ids or URLs and takes precedence over the
// well-known libraries.
func (bd *Bundler) Bundle(ctx context.Context, files FileMap, inscriptions InscriptionMap) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, bd.opts.Timeout)
	defer cancel()

	type outcome struct {
		res *Result
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		res, err := bd.run(ctx, files, inscriptions)
		ch <- outcome{res, err}
	}()

	var o outcome
	select {
	case o = <-ch:
	case <-ctx.Done():
		o.err = ctx.Err()
	}
	if errors.Is(o.err, context.DeadlineExceeded) {
		bd.log.Warn("build timed out", "timeout", bd.opts.Timeout)
		return nil, &BuildTimeoutError{Timeout: bd.opts.Timeout}
	}
	return o.res, o.err
}

type moduleKind int

const (
	modScript moduleKind = iota
	modJSON
	modAsset
)

type module struct {
	Path     string
	Kind     moduleKind
	Code     string
	Scan     scanResult
	Quotes   map[string]byte
	Resolved []string // per import: target path, or "" when external or unresolved
}

// build is the state of one Bundle call. Modules are memoised so each file
// is transformed once and import cycles terminate.
type build struct {
	ctx          context.Context
	opts         Options
	log          *slog.Logger
	files        FileMap
	inscriptions InscriptionMap
	entry        string
	modules      map[string]*module
	order        []string
	warnings     []ImportResolutionWarning
	errors       []TransformError
}

func (bd *Bundler) run(ctx context.Context, files FileMap, inscriptions InscriptionMap) (*Result, error) {
	start := time.Now()
	files = files.normalize()

	entry := normalizeKey(bd.opts.Entry)
	if bd.opts.Entry == "" {
		var err error
		if entry, err = FindEntry(files); err != nil {
			return nil, err
		}
	} else if _, ok := files[entry]; !ok {
		return nil, &EntryNotFoundError{Candidates: []string{entry}}
	}

	b := &build{
		ctx:          ctx,
		opts:         bd.opts,
		log:          bd.log,
		files:        files,
		inscriptions: inscriptions,
		entry:        entry,
		modules:      map[string]*module{},
	}
	if err := b.load(entry); err != nil {
		return nil, err
	}

	var script string
	if bd.opts.EntryOnly {
		script = b.rewriteEntryOnly(b.modules[entry])
	} else {
		script = b.emit()
	}

	css, sheets := collectCSS(files)
	if bd.opts.Minify && css != "" {
		css = minifyCSS(css)
	}
	tmpl, ok := files[TemplateFile]
	if !ok {
		tmpl = FallbackTemplate
	}
	out, err := assembleHTML(tmpl, page{
		ImportMap: ImportMap(inscriptions, bd.opts.Libraries, bd.opts.ContentBase),
		CSS:       css,
		Script:    script,
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		HTML:            out,
		Entry:           entry,
		Modules:         b.order,
		Stylesheets:     sheets,
		Warnings:        b.warnings,
		TransformErrors: b.errors,
		Size:            len(out),
		Duration:        time.Since(start),
	}
	bd.log.Info("bundle built",
		"entry", entry,
		"modules", len(res.Modules),
		"warnings", len(res.Warnings),
		"bytes", res.Size,
		"duration", res.Duration)
	return res, nil
}

// load transforms p and, depth first, every local module it imports. Modules
// are appended to the order after their dependencies.
func (b *build) load(p string) error {
	if _, ok := b.modules[p]; ok {
		return nil
	}
	if err := b.ctx.Err(); err != nil {
		return err
	}
	src := b.files[p]
	m := &module{Path: p, Code: src}
	b.modules[p] = m

	switch {
	case isJSON(p):
		m.Kind = modJSON
		if !json.Valid([]byte(src)) {
			b.errors = append(b.errors, TransformError{File: p, Message: "invalid JSON"})
			m.Code = "null"
		}
		b.order = append(b.order, p)
		return nil
	case !isScript(p):
		m.Kind = modAsset
		mime := "text/plain"
		if kind, err := filetype.Match([]byte(src)); err == nil && kind != filetype.Unknown {
			mime = kind.MIME.Value
		} else if path.Ext(p) == ".svg" {
			mime = "image/svg+xml"
		}
		m.Code = dataURL(mime, src)
		b.order = append(b.order, p)
		return nil
	}

	m.Quotes = quoteStyles(src)
	code, te := transformScript(p, src, b.opts.Minify)
	if te != nil {
		b.log.Warn("transform failed, using fallback", "file", p, "error", te.Message)
		b.errors = append(b.errors, *te)
	}
	m.Code = code

	res, err := scan(code)
	if err != nil {
		b.log.Debug("lexing failed, scanning imports by pattern", "file", p, "error", err)
	}
	m.Scan = res
	m.Resolved = make([]string, len(res.Imports))

	for i, ref := range res.Imports {
		if !isLocal(ref.Spec) {
			continue
		}
		target, ok := resolve(b.files, p, ref.Spec)
		if !ok {
			w := ImportResolutionWarning{From: p, Specifier: ref.Spec}
			b.log.Warn("unresolved import", "from", p, "specifier", ref.Spec)
			b.warnings = append(b.warnings, w)
			continue
		}
		m.Resolved[i] = target
		if isCSS(target) {
			continue
		}
		if err := b.load(target); err != nil {
			return err
		}
	}
	b.order = append(b.order, p)
	return nil
}
