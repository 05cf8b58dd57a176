package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chazu/boxel/pkg/budget"
	"github.com/chazu/boxel/pkg/bundler"
	"github.com/chazu/boxel/pkg/engine"
	"github.com/chazu/boxel/pkg/export"
	"github.com/chazu/boxel/pkg/project"
	"github.com/chazu/boxel/pkg/scene"
	"github.com/chazu/boxel/pkg/studio"
)

// ---------------------------------------------------------------------------
// bundle
// ---------------------------------------------------------------------------

func runBundle(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("bundle")
	out := fs.String("o", "", "output file (default stdout)")
	entry := fs.String("entry", c.cfg.Build.Entry, "entry file")
	minify := fs.Bool("minify", c.cfg.Build.Minify, "minify scripts and styles")
	entryOnly := fs.Bool("entry-only", c.cfg.Build.EntryOnly, "emit only the entry module")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected one project directory")
	}

	ws, err := project.NewWorkspace()
	if err != nil {
		return err
	}
	if _, err := project.Load(ctx, fs.Arg(0), ws, c.log); err != nil {
		return err
	}
	files, _, err := ws.Files()
	if err != nil {
		return err
	}
	m, _, err := project.FindManifest(files)
	if err != nil {
		return err
	}

	opts := c.cfg.BundlerOptions()
	opts.Entry, opts.Minify, opts.EntryOnly = *entry, *minify, *entryOnly
	if opts.Entry == "" {
		opts.Entry = m.Entry
	}
	res, err := bundler.New(opts, c.log).Bundle(ctx, files, m.InscriptionMap())
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(c.stderr, "warning: %v\n", w)
	}
	for _, e := range res.TransformErrors {
		fmt.Fprintf(c.stderr, "warning: %v\n", e)
	}

	if *out == "" {
		_, err = fmt.Fprint(c.out, res.HTML)
		return err
	}
	if err := os.WriteFile(*out, []byte(res.HTML), 0o644); err != nil {
		return err
	}
	c.printReport(filepath.Base(*out), budget.MeasureHTML(res.HTML, c.cfg.Build.MaxSizeKB))
	return nil
}

// ---------------------------------------------------------------------------
// export / estimate
// ---------------------------------------------------------------------------

func readScene(path string) ([]scene.SceneObject, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return export.ImportJSON(data)
}

func render(ctx context.Context, c *cli, objs []scene.SceneObject, format, title string) (string, error) {
	switch format {
	case "json":
		return export.ExportJSON(objs)
	case "jsx":
		return export.ExportJSX(objs), nil
	case "html":
		opts := c.cfg.BundlerOptions()
		libs := export.Libraries()
		for k, v := range opts.Libraries {
			libs[k] = v
		}
		opts.Libraries = libs
		res, err := bundler.New(opts, c.log).Bundle(ctx, export.Project(objs, title), nil)
		if err != nil {
			return "", err
		}
		return res.HTML, nil
	}
	return "", fmt.Errorf("unknown format %q", format)
}

func runExport(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("export")
	format := fs.String("format", "json", "json, jsx or html")
	title := fs.String("title", "", "document title for html output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected one scene file")
	}
	objs, err := readScene(fs.Arg(0))
	if err != nil {
		return err
	}
	s, err := render(ctx, c, objs, *format, *title)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, s)
	return err
}

func runEstimate(ctx context.Context, c *cli, args []string) error {
	settings := c.cfg.BudgetSettings()
	fs := c.flags("estimate")
	opt := fs.String("optimization", string(settings.Optimization), "none, basic, moderate or aggressive")
	format := fs.String("format", string(settings.Format), "html, jsx or json")
	maxKB := fs.Float64("max", settings.MaxSizeKB, "size target in KB")
	textures := fs.Bool("textures", false, "include texture references")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected one scene file")
	}
	var err error
	if settings.Optimization, err = budget.ParseOptimization(*opt); err != nil {
		return err
	}
	if settings.Format, err = budget.ParseFormat(*format); err != nil {
		return err
	}
	settings.MaxSizeKB = budget.ClampMaxSizeKB(*maxKB)
	settings.IncludeTextures = *textures

	objs, err := readScene(fs.Arg(0))
	if err != nil {
		return err
	}
	n := len(export.Visible(objs))
	c.printReport(fmt.Sprintf("%d objects", n), budget.Check(n, settings))
	if level, ok := budget.Recommend(n, settings); ok && level != settings.Optimization {
		fmt.Fprintf(c.out, "recommended optimization: %s\n", level)
	} else if !ok {
		fmt.Fprintln(c.out, "over target even at aggressive optimization")
	}
	return nil
}

// ---------------------------------------------------------------------------
// script
// ---------------------------------------------------------------------------

func runScript(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("script")
	format := fs.String("format", "json", "json, jsx or html")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected one script file")
	}
	src, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	objs, evalErrs, err := engine.NewEngine().EvaluateContext(ctx, string(src))
	if err != nil {
		return err
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			fmt.Fprintf(c.stderr, "%s: %v\n", fs.Arg(0), e)
		}
		return fmt.Errorf("%d errors", len(evalErrs))
	}
	s, err := render(ctx, c, objs, *format, filepath.Base(fs.Arg(0)))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, s)
	return err
}

// ---------------------------------------------------------------------------
// serve
// ---------------------------------------------------------------------------

func runServe(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("serve")
	addr := fs.String("addr", c.cfg.Server.Addr, "listen address")
	noWatch := fs.Bool("no-watch", false, "do not watch the directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected one project directory")
	}
	dir := fs.Arg(0)

	ws, err := project.NewWorkspace()
	if err != nil {
		return err
	}
	if _, err := project.Load(ctx, dir, ws, c.log); err != nil {
		return err
	}

	histPath, err := c.cfg.HistoryPath()
	if err != nil {
		return err
	}
	history, err := studio.OpenHistory(histPath)
	if err != nil {
		return err
	}
	defer history.Close()

	srv := studio.New(ws, history, studio.Options{
		Dir:          dir,
		Bundler:      c.cfg.BundlerOptions(),
		MaxSizeKB:    c.cfg.Build.MaxSizeKB,
		ReadTimeout:  c.cfg.Server.ReadTimeout.Duration,
		WriteTimeout: c.cfg.Server.WriteTimeout.Duration,
		AccessLog:    true,
		Logger:       c.log,
	})

	if !*noWatch {
		w, err := project.NewWatcher(dir, ws, func() {
			if res, err := srv.Build(ctx); err == nil {
				c.printReport("rebuilt", res.Size)
			}
		}, c.log)
		if err != nil {
			return err
		}
		defer w.Close()
		go func() { _ = w.Run(ctx) }()
	}

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown()
	}()
	fmt.Fprintf(c.out, "studio on http://%s\n", *addr)
	return srv.Listen(*addr)
}
