package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"

	"git.home.luguber.info/inful/repoprep/internal/changeset"
	"git.home.luguber.info/inful/repoprep/internal/config"
	preperrors "git.home.luguber.info/inful/repoprep/internal/errors"
	"git.home.luguber.info/inful/repoprep/internal/executor"
	"git.home.luguber.info/inful/repoprep/internal/hook"
	"git.home.luguber.info/inful/repoprep/internal/logfields"
	"git.home.luguber.info/inful/repoprep/internal/orchestrator"
	"git.home.luguber.info/inful/repoprep/internal/overlay"
	"git.home.luguber.info/inful/repoprep/internal/repotool"
	"git.home.luguber.info/inful/repoprep/internal/version"
	"git.home.luguber.info/inful/repoprep/internal/workspace"
)

var CLI struct {
	Verbose bool   `short:"v" help:"Enable verbose logging"`
	Profile string `short:"p" help:"YAML tuning profile path" default:"repoprep.yaml"`

	Run struct {
		ManifestURL      string `env:"MANIFEST_URL" help:"Base manifest URL"`
		ManifestRevision string `env:"MANIFEST_REVISION" help:"Base manifest revision"`
		Target           string `env:"TARGET" help:"Build target identifier"`
		Workspace        string `env:"WORKSPACE_DIR" help:"Workspace directory" default:"workspace"`

		DeviceFamily           string `env:"DEVICE_FAMILY" help:"Device family substring selecting the manifest overlay"`
		DeviceManifestBaseURL  string `env:"DEVICE_MANIFEST_BASE_URL" help:"Device manifest overlay base URL"`
		DeviceManifestRevision string `env:"DEVICE_MANIFEST_REVISION" help:"Device manifest overlay revision"`

		ArtifactDir string `env:"ARTIFACT_DIR" help:"Artifact storage location handed to the post-init hook"`
		Clean       bool   `env:"CLEAN_BUILD" help:"Recreate the workspace before syncing"`

		GerritProject    string `env:"GERRIT_PROJECT" help:"Changeset project name"`
		GerritChange     string `env:"GERRIT_CHANGE_NUMBER" help:"Changeset change number"`
		GerritPatchset   string `env:"GERRIT_PATCHSET" help:"Changeset patchset number"`
		GerritCherryPick string `env:"GERRIT_CHERRY_PICK" help:"Fetch mode: 'false' uses the checkout tool's native download"`

		PostInitHook string `env:"POST_INIT_HOOK" help:"Command to run after the workspace is ready"`
	} `cmd:"" default:"1" help:"Prepare the build workspace"`

	Version struct{} `cmd:"" help:"Print version information"`
}

func main() {
	// Best effort: pipeline-supplied environment always wins over .env files.
	_ = config.LoadEnvFiles()

	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})).With(logfields.RunID(uuid.NewString()))
	slog.SetDefault(logger)

	switch ctx.Command() {
	case "run":
		adapter := preperrors.NewCLIErrorAdapter(CLI.Verbose, logger)
		adapter.HandleError(runPrep())
	case "version":
		fmt.Printf("repoprep %s (built %s, commit %s)\n", version.Version, version.BuildTime, version.GitCommit)
	}
}

func runPrep() error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	slog.Info("Preparing workspace",
		logfields.Target(cfg.Target),
		logfields.URL(cfg.ManifestURL),
		logfields.Path(cfg.WorkspaceDir))

	runCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ws := workspace.NewManager(cfg.WorkspaceDir)
	if cfg.CleanBuild {
		if err := ws.Recreate(); err != nil {
			return preperrors.WorkspaceError("clean", err)
		}
	} else if err := ws.Ensure(); err != nil {
		return preperrors.WorkspaceError("ensure", err)
	}

	runner := executor.NewCommandRunner()
	tool := repotool.New(runner, ws.Path())

	orch := orchestrator.New(cfg, tool, overlay.NewManager(cfg), ws.Recreate)
	fetcher := changeset.NewFetcher(tool, runner, cfg.ManifestURL)
	postHook := hook.New(runner, ws.Path(), hookEnv(cfg))

	return orchestrator.NewPipeline(cfg, orch, fetcher, postHook).Run(runCtx)
}

// buildConfig assembles and validates the immutable run configuration from
// CLI flags/environment plus the optional YAML profile.
func buildConfig() (*config.Config, error) {
	cfg := &config.Config{
		ManifestURL:            CLI.Run.ManifestURL,
		ManifestRevision:       CLI.Run.ManifestRevision,
		Target:                 CLI.Run.Target,
		WorkspaceDir:           CLI.Run.Workspace,
		DeviceFamily:           CLI.Run.DeviceFamily,
		DeviceManifestBaseURL:  CLI.Run.DeviceManifestBaseURL,
		DeviceManifestRevision: CLI.Run.DeviceManifestRevision,
		ArtifactDir:            CLI.Run.ArtifactDir,
		CleanBuild:             CLI.Run.Clean,
		PostInitHook:           CLI.Run.PostInitHook,
		Changeset: config.ChangesetConfig{
			Project:      CLI.Run.GerritProject,
			ChangeNumber: CLI.Run.GerritChange,
			Patchset:     CLI.Run.GerritPatchset,
			FetchMode:    CLI.Run.GerritCherryPick,
		},
	}

	explicit := CLI.Profile != config.DefaultProfilePath
	profile, err := config.LoadProfile(CLI.Profile, explicit)
	if err != nil {
		return nil, preperrors.Wrap(err, preperrors.CategoryConfig, preperrors.SeverityFatal, "failed to load profile")
	}
	cfg.ApplyProfile(profile)
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// hookEnv passes optional run context down to the post-init command.
func hookEnv(cfg *config.Config) map[string]string {
	env := map[string]string{
		"TARGET": cfg.Target,
	}
	if cfg.ArtifactDir != "" {
		env["ARTIFACT_DIR"] = cfg.ArtifactDir
	}
	return env
}
