// Command lessonctl builds, merges and resolves lesson content offline.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/lessongest/internal/builder"
	"github.com/dgallion1/lessongest/internal/config"
	"github.com/dgallion1/lessongest/internal/doctree"
	"github.com/dgallion1/lessongest/internal/merge"
	"github.com/dgallion1/lessongest/internal/parser"
	"github.com/dgallion1/lessongest/internal/pipeline"
	"github.com/dgallion1/lessongest/internal/resolve"
)

// CLI defines the command-line interface for lessonctl.
type CLI struct {
	Config   string `name:"config" short:"c" help:"YAML config file (default: CONFIG_PATH or ./lessongest.yaml)" type:"path"`
	Pretty   bool   `help:"Indent JSON output"`
	LogLevel string `name:"log-level" help:"Override the configured log level"`

	Build   BuildCmd   `cmd:"" help:"Build a node tree from a document"`
	Merge   MergeCmd   `cmd:"" help:"Merge a secondary-language tree into its primary"`
	Resolve ResolveCmd `cmd:"" help:"Resolve a lesson bundle for one language"`
}

// env is bound into every command's Run method.
type env struct {
	cfg    *config.Config
	log    *slog.Logger
	out    io.Writer
	pretty bool
	worker *pipeline.Worker
}

func (e *env) emit(v any) error {
	enc := json.NewEncoder(e.out)
	if e.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// BuildCmd builds one document.
type BuildCmd struct {
	File string `arg:"" help:"Document to build (.docx, .md, .html, .txt, .csv, .pdf)" type:"existingfile"`
}

func (c *BuildCmd) Run(e *env) error {
	res, err := buildFile(e, c.File)
	if err != nil {
		return err
	}
	e.log.Debug("built tree", "file", c.File, "nodes", len(res.Nodes))
	return e.emit(res)
}

// MergeCmd merges two trees. Each input is a document or a JSON tree.
type MergeCmd struct {
	Primary   string `arg:"" help:"Primary document or JSON tree" type:"existingfile"`
	Secondary string `arg:"" help:"Secondary document or JSON tree" type:"existingfile"`
	Stats     bool   `help:"Include merge statistics in the output"`
}

func (c *MergeCmd) Run(e *env) error {
	primary, err := loadTree(e, c.Primary)
	if err != nil {
		return err
	}
	secondary, err := loadTree(e, c.Secondary)
	if err != nil {
		return err
	}
	builder.ExtractAudioTags(secondary)

	nodes, stats, err := merge.New(e.cfg.MergeOptions()).MergeWithStats(primary, secondary)
	if err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	if stats.Skewed {
		e.log.Warn("secondary tree skewed, using it as-is", "unmatched", stats.Unmatched)
	}
	if nodes == nil {
		nodes = []doctree.Node{}
	}
	if c.Stats {
		return e.emit(map[string]any{"nodes": nodes, "stats": stats})
	}
	return e.emit(nodes)
}

// ResolveCmd resolves a bundle file.
type ResolveCmd struct {
	Bundle string `arg:"" help:"Bundle file (.json, .yaml or .yml)" type:"existingfile"`
	Lang   string `short:"l" help:"Target language (default: the bundle's primary)"`
}

func (c *ResolveCmd) Run(e *env) error {
	b, err := readBundle(c.Bundle)
	if err != nil {
		return err
	}
	payload, err := resolve.New(e.cfg.ResolveOptions()).Resolve(b, resolve.Lang(c.Lang))
	if err != nil {
		return fmt.Errorf("resolve %s: %w", c.Bundle, err)
	}
	return e.emit(payload)
}

func buildFile(e *env, path string) (*builder.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	res, err := e.worker.BuildDocument(context.Background(), nil, filepath.Base(path), data)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", path, err)
	}
	return res, nil
}

// loadTree reads a JSON tree (a node array or a build result) or builds a
// document.
func loadTree(e *env, path string) ([]doctree.Node, error) {
	if strings.ToLower(filepath.Ext(path)) != ".json" {
		res, err := buildFile(e, path)
		if err != nil {
			return nil, err
		}
		return res.Nodes, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var nodes []doctree.Node
	if err := json.Unmarshal(data, &nodes); err == nil {
		return nodes, nil
	}
	var res builder.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode tree %s: %w", path, err)
	}
	return res.Nodes, nil
}

func readBundle(path string) (*resolve.Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var b resolve.Bundle
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &b)
	default:
		err = json.Unmarshal(data, &b)
	}
	if err != nil {
		return nil, fmt.Errorf("decode bundle %s: %w", path, err)
	}
	return &b, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path, true)
	}
	return config.Load()
}

func run(args []string, stdout, stderr io.Writer) error {
	var cli CLI
	k, err := kong.New(&cli,
		kong.Name("lessonctl"),
		kong.Description("Build, merge and resolve bilingual lesson content"),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		return err
	}
	kctx, err := k.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}
	logCfg := cfg.Log
	if cli.LogLevel != "" {
		logCfg.Level = cli.LogLevel
	}
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: logCfg.SlogLevel()}))

	e := &env{
		cfg:    cfg,
		log:    log,
		out:    stdout,
		pretty: cli.Pretty,
		worker: pipeline.NewWorker(builder.New(cfg.BuilderOptions()), merge.New(cfg.MergeOptions()), nil, nil, nil, log,
			parser.Options{PDFFallbackPdftotext: cfg.Pipeline.PDFFallbackPdftotext}),
	}
	return kctx.Run(e)
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "lessonctl:", err)
		os.Exit(1)
	}
}
