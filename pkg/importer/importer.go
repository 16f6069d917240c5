// Package importer decodes glTF 2.0 and GLB assets into a scene hierarchy
// and animation clips.
//
// An import reads the container, parses the scene description, decodes
// every array in dependency order and assembles a single-rooted node tree.
// Recoverable problems are reported as warnings on the result; container
// corruption and missing required fields abort the import with a
// *gltf.FormatError and no partial result.
package importer

import (
	"context"
	"fmt"
	"io/fs"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-gltf/internal/assemble"
	"github.com/Faultbox/midgard-gltf/internal/assets"
	"github.com/Faultbox/midgard-gltf/internal/config"
	"github.com/Faultbox/midgard-gltf/internal/decode"
	"github.com/Faultbox/midgard-gltf/internal/executor"
	"github.com/Faultbox/midgard-gltf/internal/logger"
	"github.com/Faultbox/midgard-gltf/pkg/gltf"
	"github.com/Faultbox/midgard-gltf/pkg/scene"
)

// Host builds engine objects from decoded records. Its methods run on the
// goroutine that calls Load, Job.Pump or Job.Wait, and receive the token
// proving it. A Host error aborts the import.
type Host = decode.Host

// Mode selects how stages run.
type Mode = executor.Mode

// Execution modes.
const (
	Sync  = executor.Sync
	Async = executor.Async
)

// Settings are the per-import options.
type Settings struct {
	Mode            Mode
	Workers         int // background worker limit, 0 = GOMAXPROCS
	GenerateNormals bool
	Shaders         scene.ShaderSet
}

// DefaultSettings returns synchronous decoding with the stock shader set.
func DefaultSettings() Settings {
	return Settings{Shaders: scene.DefaultShaderSet()}
}

// Result is a completed import.
type Result struct {
	Root     *scene.Node
	Clips    []*scene.Clip
	Warnings []gltf.Warning
	Document *gltf.Document
}

// Importer holds settings shared by many imports. It is safe for concurrent
// use; every import gets its own state.
type Importer struct {
	settings    Settings
	log         *zap.Logger
	host        Host
	progress    func(float64)
	stages      func(string, float64)
	searchPaths []string
	roots       []namedFS
}

type namedFS struct {
	name string
	fsys fs.FS
}

// Option configures an Importer.
type Option func(*Importer)

// WithSettings replaces the decoding settings.
func WithSettings(s Settings) Option {
	return func(im *Importer) { im.settings = s }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(log *zap.Logger) Option {
	return func(im *Importer) { im.log = log }
}

// WithHost sets the engine object factory.
func WithHost(h Host) Option {
	return func(im *Importer) { im.host = h }
}

// WithProgress sets the progress callback used by Load.
func WithProgress(fn func(fraction float64)) Option {
	return func(im *Importer) { im.progress = fn }
}

// WithStageProgress sets a callback receiving each stage's own fraction,
// keyed by stage name ("buffer", "mesh", ...). It is used by both Load and
// LoadAsync; per stage the values never decrease and 1.0 arrives exactly
// once.
func WithStageProgress(fn func(stage string, fraction float64)) Option {
	return func(im *Importer) { im.stages = fn }
}

// WithSearchPaths adds directories searched for external resources after
// the document's own directory.
func WithSearchPaths(dirs ...string) Option {
	return func(im *Importer) { im.searchPaths = append(im.searchPaths, dirs...) }
}

// WithFS adds a file system searched for external resources.
func WithFS(name string, fsys fs.FS) Option {
	return func(im *Importer) { im.roots = append(im.roots, namedFS{name, fsys}) }
}

// New creates an importer.
func New(opts ...Option) *Importer {
	im := &Importer{settings: DefaultSettings()}
	for _, opt := range opts {
		opt(im)
	}
	if im.log == nil {
		im.log = zap.NewNop()
	}
	return im
}

// FromConfig creates an importer from a loaded configuration. Logging goes
// to the configured file; opts are applied last.
func FromConfig(cfg *config.Config, opts ...Option) (*Importer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, err := executor.ParseMode(cfg.Import.Mode)
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithSettings(Settings{
			Mode:            mode,
			Workers:         cfg.Import.Workers,
			GenerateNormals: cfg.Import.GenerateNormals,
			Shaders:         cfg.Import.Shaders,
		}),
		WithLogger(logger.New(cfg.Logging.Level, logger.FileConfig{
			Path:       cfg.Logging.LogFile,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
		}, false)),
		WithSearchPaths(cfg.Import.SearchPaths...),
	}
	return New(append(base, opts...)...), nil
}

// FromConfigFile loads the configuration at path (or the first file found
// in the standard locations when path is empty) and creates an importer.
func FromConfigFile(path string, opts ...Option) (*Importer, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return FromConfig(cfg, opts...)
}

// Settings returns the importer's decoding settings.
func (im *Importer) Settings() Settings { return im.settings }

// Load imports src. Stages run as configured by Settings.Mode; in either
// mode Load returns only when the import has ended. onFinished, if set, is
// called exactly once with the same values Load returns.
func (im *Importer) Load(ctx context.Context, src Source, onFinished func(*Result, error)) (*Result, error) {
	if im.settings.Mode == Async {
		job, err := im.start(ctx, src, onFinished, im.progress)
		if err != nil {
			return nil, err
		}
		return job.Wait(ctx)
	}

	res, err := im.loadSync(ctx, src)
	if onFinished != nil {
		onFinished(res, err)
	}
	return res, err
}

// LoadAsync starts an import whose background phases run on a worker pool.
// The caller drives it with Job.Pump (non-blocking) or Job.Wait; host calls,
// onProgress and onFinished all happen inside those calls. A fatal error
// before any stage starts is returned directly and also passed to
// onFinished.
func (im *Importer) LoadAsync(ctx context.Context, src Source, onFinished func(*Result, error), onProgress func(float64)) (*Job, error) {
	return im.start(ctx, src, onFinished, onProgress)
}

func (im *Importer) loadSync(ctx context.Context, src Source) (*Result, error) {
	p, err := im.prepare(src, im.progress)
	if err != nil {
		return nil, err
	}
	defer p.assets.Close()

	if err := p.exec.Run(ctx); err != nil {
		return nil, p.fail(err)
	}
	return p.finish(), nil
}

func (im *Importer) start(ctx context.Context, src Source, onFinished func(*Result, error), onProgress func(float64)) (*Job, error) {
	fail := func(err error) (*Job, error) {
		if onFinished != nil {
			onFinished(nil, err)
		}
		return nil, err
	}

	p, err := im.prepare(src, onProgress)
	if err != nil {
		return fail(err)
	}
	run, err := p.exec.Start(ctx)
	if err != nil {
		p.assets.Close()
		return fail(p.fail(err))
	}
	return &Job{pipeline: p, run: run, onFinished: onFinished}, nil
}

// pipeline is the state of one import.
type pipeline struct {
	src      Source
	log      *zap.Logger
	doc      *gltf.Document
	warnings *gltf.Warnings
	assets   *assets.Manager
	stages   *decode.Stages
	exec     *executor.Executor
}

// prepare reads and parses src and builds the stage graph. Every error it
// returns is fatal.
func (im *Importer) prepare(src Source, onProgress func(float64)) (*pipeline, error) {
	log := im.log.With(zap.Stringer("source", src))

	container, err := src.read()
	if err != nil {
		return nil, fmt.Errorf("importing %s: %w", src, err)
	}
	doc, err := gltf.Parse(container.JSON)
	if err != nil {
		return nil, fmt.Errorf("importing %s: %w", src, err)
	}

	warnings := gltf.NewWarnings(log)
	gltf.CheckExtensions(doc, warnings)

	mgr := assets.NewManager()
	for _, r := range im.roots {
		mgr.AddFS(r.name, r.fsys)
	}
	// Later roots win, so the document directory goes last.
	dirs := append([]string{}, im.searchPaths...)
	if src.dir != "" {
		dirs = append(dirs, src.dir)
	}
	for _, dir := range dirs {
		if err := mgr.AddDir(dir); err != nil {
			log.Warn("skipping search path", zap.String("dir", dir), zap.Error(err))
		}
	}

	stages := decode.NewStages(&decode.Context{
		Doc:       doc,
		Container: container,
		Assets:    mgr,
		Warnings:  warnings,
		Settings: decode.Settings{
			GenerateNormals: im.settings.GenerateNormals,
			Shaders:         im.settings.Shaders,
		},
		Host: im.host,
		Log:  log,
	})
	exec, err := executor.New(stages, executor.Options{
		Workers:         im.settings.Workers,
		OnProgress:      onProgress,
		OnStageProgress: im.stages,
		Logger:          log,
	})
	if err != nil {
		mgr.Close()
		return nil, fmt.Errorf("importing %s: %w", src, err)
	}

	log.Debug("import prepared",
		zap.Int("buffers", len(doc.Buffers)),
		zap.Int("accessors", len(doc.Accessors)),
		zap.Int("meshes", len(doc.Meshes)),
		zap.Int("nodes", len(doc.Nodes)),
		zap.Int("animations", len(doc.Animations)))

	return &pipeline{
		src:      src,
		log:      log,
		doc:      doc,
		warnings: warnings,
		assets:   mgr,
		stages:   stages,
		exec:     exec,
	}, nil
}

// fail discards partial results and wraps err.
func (p *pipeline) fail(err error) error {
	for _, b := range p.stages.Buffers.Get() {
		if b != nil {
			b.Release()
		}
	}
	p.log.Error("import failed", zap.Error(err))
	return fmt.Errorf("importing %s: %w", p.src, err)
}

func (p *pipeline) finish() *Result {
	out := assemble.Assemble(p.stages)
	p.log.Info("import finished",
		zap.Int("nodes", out.Root.Count()),
		zap.Int("clips", len(out.Clips)),
		zap.Int("warnings", p.warnings.Len()))
	return &Result{
		Root:     out.Root,
		Clips:    out.Clips,
		Warnings: p.warnings.List(),
		Document: p.doc,
	}
}
