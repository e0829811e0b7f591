package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/jvs-project/regis/internal/access"
	"github.com/jvs-project/regis/internal/audit"
	"github.com/jvs-project/regis/internal/auth"
	"github.com/jvs-project/regis/internal/hasher"
	"github.com/jvs-project/regis/internal/record"
	"github.com/jvs-project/regis/internal/repo"
	"github.com/jvs-project/regis/internal/table"
	"github.com/jvs-project/regis/pkg/config"
	"github.com/jvs-project/regis/pkg/errclass"
	"github.com/jvs-project/regis/pkg/logging"
	"github.com/jvs-project/regis/pkg/model"
)

// registry is everything one command needs, opened once and passed down.
type registry struct {
	repo     *repo.Repo
	cfg      *config.Config
	dataDir  string
	tables   table.Store
	hasher   hasher.Hasher
	store    *record.Store
	audit    *audit.Log
	sessions *auth.SessionFile
}

// requireRepo discovers the registry from the working directory.
func requireRepo() (*repo.Repo, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errclass.ErrIOFailure.Wrap(err, "get current directory")
	}
	r, err := repo.Discover(cwd)
	if errors.Is(err, errclass.ErrNotFound) {
		return nil, errclass.ErrNotFound.WithMessage(notInRegistryMessage())
	}
	return r, err
}

// loadConfig reads the registry config and applies its logging and output
// settings unless the matching flags were given.
func loadConfig(cmd *cobra.Command, r *repo.Repo) (*config.Config, error) {
	cfg, err := config.Load(r.Root)
	if err != nil {
		return nil, err
	}
	lg := logging.Global()
	if format, err := logging.ParseFormat(cfg.Logging.Format); err == nil {
		lg.SetFormat(format)
	}
	if !cmd.Flags().Changed("log-level") {
		if level, err := logging.ParseLevel(cfg.Logging.Level); err == nil {
			lg.SetLevel(level)
		}
	}
	if !cmd.Flags().Changed("json") && cfg.Output.Format == "json" {
		jsonOutput = true
	}
	return cfg, nil
}

// openRegistry discovers the registry and opens its tables.
func openRegistry(cmd *cobra.Command) (*registry, error) {
	r, err := requireRepo()
	if err != nil {
		return nil, err
	}
	return openAt(cmd, r)
}

func openAt(cmd *cobra.Command, r *repo.Repo) (*registry, error) {
	cfg, err := loadConfig(cmd, r)
	if err != nil {
		return nil, err
	}
	h, err := hasher.New(cfg.Security.Hasher, cfg.Security.BcryptCost)
	if err != nil {
		return nil, err
	}
	dataDir := cfg.DataPath(r.Root)
	tables, err := table.Open(cfg.Storage.Backend, dataDir)
	if err != nil {
		return nil, err
	}
	logging.Debug("registry opened", map[string]any{
		"root":    r.Root,
		"backend": cfg.Storage.Backend,
		"hasher":  h.Name(),
	})
	return &registry{
		repo:     r,
		cfg:      cfg,
		dataDir:  dataDir,
		tables:   tables,
		hasher:   h,
		store:    record.New(tables, h),
		audit:    audit.NewLog(tables),
		sessions: auth.NewSessionFile(r.SessionPath()),
	}, nil
}

func (g *registry) Close() error {
	return g.tables.Close()
}

func (g *registry) authenticator() *auth.Authenticator {
	return auth.New(g.store, g.hasher, g.audit, auth.Options{
		AuditFailedLogins: g.cfg.Security.AuditFailedLogins,
	})
}

// session loads the live session and re-reads its role from the users table.
func (g *registry) session() (model.Session, error) {
	s, err := g.sessions.Load()
	if err != nil {
		return model.Session{}, err
	}
	return g.authenticator().Resolve(s)
}

// guard returns the checked store for the live session.
func (g *registry) guard() (*access.Guard, error) {
	s, err := g.session()
	if err != nil {
		return nil, err
	}
	return access.NewGuard(s, g.store, g.audit), nil
}

// withGuard opens the registry, runs fn under the live session, then reports
// audit failures that were downgraded to warnings.
func withGuard(cmd *cobra.Command, fn func(g *access.Guard) error) error {
	reg, err := openRegistry(cmd)
	if err != nil {
		return err
	}
	defer reg.Close()

	guard, err := reg.guard()
	if err != nil {
		return err
	}
	err = fn(guard)
	for _, w := range guard.Warnings() {
		fmtWarn("%s", w)
	}
	return err
}
