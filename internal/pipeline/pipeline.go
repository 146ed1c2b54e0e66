// Package pipeline sequences the provisioning stages:
//
//	Probing → CheckingPrivilege → Resolving → Mutating → Delegating
//
// ending in Succeeded or Failed(stage, reason). Stages run strictly in
// order, never retry, and are individually idempotent, so re-running from
// the start is the one recovery path after any failure or interruption.
package pipeline

import (
	"fmt"

	"github.com/GlacierEQ/drogon-autobuild/internal/buildtool"
	"github.com/GlacierEQ/drogon-autobuild/internal/deps"
	"github.com/GlacierEQ/drogon-autobuild/internal/envstore"
	"github.com/GlacierEQ/drogon-autobuild/internal/execx"
	"github.com/GlacierEQ/drogon-autobuild/internal/logger"
	"github.com/GlacierEQ/drogon-autobuild/internal/platform"
)

// Stage names one step of the pipeline, used in failure reports.
type Stage string

const (
	Probing           Stage = "probing"
	CheckingPrivilege Stage = "checking-privilege"
	Resolving         Stage = "resolving"
	Mutating          Stage = "mutating"
	Delegating        Stage = "delegating"
)

// Failure wraps the error that terminated the pipeline with the stage it
// happened in.
type Failure struct {
	Stage Stage
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("stage %s: %v", f.Stage, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Options collects the knobs the CLI exposes.
type Options struct {
	ManifestPath string // optional autobuild.yaml override for the dependency tables
	BinDir       string // destination for portable tools (ninja)
	VcpkgRoot    string // Windows vcpkg tree location

	SourceDir  string
	BuildDir   string
	InstallDir string
	Jobs       int

	HistoryPath       string
	OptimizationsPath string
}

// Pipeline wires the five stages together. The function fields default to
// the real implementations and exist so tests can substitute simulated
// platforms and privilege outcomes.
type Pipeline struct {
	Runner execx.Runner
	Store  envstore.Store
	Opts   Options

	DetectPlatform func() (platform.Descriptor, error)
	CheckPrivilege func(platform.Descriptor) (bool, error)
}

// New returns a Pipeline backed by the real host.
func New(opts Options) *Pipeline {
	return &Pipeline{
		Runner:         &execx.System{},
		Opts:           opts,
		DetectPlatform: platform.Detect,
		CheckPrivilege: platform.CheckPrivilege,
	}
}

// Run drives the pipeline to a terminal state. A nil return is Succeeded;
// any error is a *Failure naming the stage that aborted the run.
func (p *Pipeline) Run() error {
	// Probing
	logger.Stage("==> Probing platform\n")
	desc, err := p.DetectPlatform()
	if err != nil {
		return &Failure{Stage: Probing, Err: err}
	}
	logger.Info("[INFO] Detected %s\n", desc)

	// CheckingPrivilege. On Windows this aborts before anything has been
	// mutated; on POSIX a shortfall only warns because the package manager
	// escalates through sudo itself.
	logger.Stage("==> Checking privileges\n")
	elevated, err := p.CheckPrivilege(desc)
	if err != nil {
		return &Failure{Stage: CheckingPrivilege, Err: err}
	}
	if !elevated {
		logger.Warn("[WARN] Not running elevated; package installs will go through sudo.\n")
	}

	// Resolving
	logger.Stage("==> Resolving dependencies\n")
	if err := p.resolve(desc, elevated); err != nil {
		return &Failure{Stage: Resolving, Err: err}
	}

	// Mutating
	logger.Stage("==> Updating environment\n")
	if err := p.mutate(desc); err != nil {
		return &Failure{Stage: Mutating, Err: err}
	}

	// Delegating
	logger.Stage("==> Delegating to build tool\n")
	if err := p.delegate(desc); err != nil {
		return &Failure{Stage: Delegating, Err: err}
	}

	logger.Info("[INFO] Succeeded.\n")
	return nil
}

func (p *Pipeline) resolve(desc platform.Descriptor, elevated bool) error {
	boot := &deps.Bootstrap{
		Runner:    p.Runner,
		Elevated:  elevated,
		VcpkgRoot: p.Opts.VcpkgRoot,
		BinDir:    p.Opts.BinDir,
	}
	if err := boot.EnsureManager(desc); err != nil {
		return err
	}

	spec, err := deps.SpecFor(desc, p.Opts.ManifestPath)
	if err != nil {
		return err
	}
	resolver := &deps.Resolver{Runner: p.Runner, Elevated: elevated, VcpkgRoot: p.Opts.VcpkgRoot}
	if err := resolver.Sync(desc, spec); err != nil {
		return err
	}

	boot.EnsureNinja()
	return nil
}

func (p *Pipeline) mutate(desc platform.Descriptor) error {
	store := p.Store
	if store == nil {
		var err error
		store, err = envstore.NewStore()
		if err != nil {
			// No persistent store is advisory; the process environment is
			// what the build needs.
			logger.Warn("[WARN] No persistent environment store: %v\n", err)
			return envstore.Apply(envstore.DefaultPatch(desc, p.Opts.BinDir, p.Opts.VcpkgRoot), discardStore{})
		}
	}
	return envstore.Apply(envstore.DefaultPatch(desc, p.Opts.BinDir, p.Opts.VcpkgRoot), store)
}

func (p *Pipeline) delegate(desc platform.Descriptor) error {
	builder := &buildtool.Builder{
		Runner:            p.Runner,
		Platform:          desc,
		Toolchain:         buildtool.DetectToolchain(desc, p.Runner),
		SourceDir:         p.Opts.SourceDir,
		BuildDir:          p.Opts.BuildDir,
		InstallDir:        p.Opts.InstallDir,
		Jobs:              p.Opts.Jobs,
		HistoryPath:       p.Opts.HistoryPath,
		OptimizationsPath: p.Opts.OptimizationsPath,
	}
	if err := builder.Configure(); err != nil {
		return err
	}
	return builder.Build()
}

// discardStore satisfies envstore.Store when no persistent backend could be
// opened; only the in-process environment is mutated then.
type discardStore struct{}

func (discardStore) Read(string) (string, error)           { return "", nil }
func (discardStore) Write(string, string) error            { return nil }
func (discardStore) Append(string, string) error           { return nil }
func (discardStore) Contains(string, string) (bool, error) { return true, nil }
