package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pbaille/folio/internal/activity"
	"github.com/pbaille/folio/internal/api"
	"github.com/pbaille/folio/internal/assistant"
	"github.com/pbaille/folio/internal/auth"
	"github.com/pbaille/folio/internal/config"
	"github.com/pbaille/folio/internal/content"
	"github.com/pbaille/folio/internal/frontmatter"
	"github.com/pbaille/folio/internal/gallery"
	"github.com/pbaille/folio/internal/site"
	"github.com/pbaille/folio/internal/upload"
)

var (
	cfgFile string
	verbose bool
	v       = config.New()
	cfg     config.Config
	logger  = zap.NewNop()
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "folio",
		Short:         "Portfolio and blog content server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			zcfg := zap.NewProductionConfig()
			if verbose {
				zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			logger, err = zcfg.Build()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			cfg, err = config.Load(v, cfgFile)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./folio.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().String("content-dir", "", "content directory")
	rootCmd.PersistentFlags().String("db-path", "", "activity database path")

	serve := serveCmd()
	err := errors.Join(
		config.BindFlags(v, rootCmd.PersistentFlags(), "content_dir", "db_path"),
		config.BindFlags(v, serve.Flags(), "addr", "public_dir"),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd.AddCommand(serve)
	rootCmd.AddCommand(hashPasswordCmd())
	rootCmd.AddCommand(documentCmd(content.Work))
	rootCmd.AddCommand(documentCmd(content.Writing))
	rootCmd.AddCommand(galleryCmd())
	rootCmd.AddCommand(activityCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func stores() (work, writing *content.Store, g *gallery.Store) {
	work = content.NewStore(cfg.ContentDir, content.Work, logger)
	writing = content.NewStore(cfg.ContentDir, content.Writing, logger)
	g = gallery.NewStore(cfg.GalleryPath(), logger)
	return work, writing, g
}

func openActivity() (*activity.Log, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	return activity.Open(cfg.DBPath)
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			authn, err := auth.New(auth.Config{
				PasswordHash: cfg.Auth.PasswordHash,
				Secret:       cfg.Auth.JWTSecret,
				SecureCookie: cfg.Auth.SecureCookie,
			}, logger)
			if err != nil {
				return err
			}

			var ai assistant.Assistant
			if !strings.EqualFold(cfg.AI.Provider, "none") {
				ai, err = assistant.New(ctx, assistant.Config{
					Provider:        cfg.AI.Provider,
					Model:           cfg.AI.Model,
					GeminiAPIKey:    cfg.AI.GeminiAPIKey,
					AnthropicAPIKey: cfg.AI.AnthropicAPIKey,
				})
				if errors.Is(err, assistant.ErrNotConfigured) {
					logger.Warn("AI assistant disabled", zap.Error(err))
					ai = nil
				} else if err != nil {
					return err
				}
			}

			log, err := openActivity()
			if err != nil {
				return err
			}
			defer log.Close()

			work, writing, g := stores()
			server := api.New(api.Deps{
				Work:       work,
				Writing:    writing,
				Gallery:    g,
				Auth:       authn,
				Uploader:   upload.New(cfg.PublicDir, logger),
				Assistant:  ai,
				Activity:   log,
				Logger:     logger,
				BaseURL:    cfg.BaseURL,
				PublicDir:  cfg.PublicDir,
				CORSOrigin: cfg.CORSOrigin,
			})
			return server.Run(ctx, cfg.Addr)
		},
	}

	cmd.Flags().StringP("addr", "a", "", "server address")
	cmd.Flags().String("public-dir", "", "directory served as static files and receiving uploads")
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				var err error
				password, err = promptPassword()
				if err != nil {
					return err
				}
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), hash)
			fmt.Fprintln(cmd.ErrOrStderr(), "\nAdd this to your environment:")
			fmt.Fprintf(cmd.ErrOrStderr(), "ADMIN_PASSWORD_HASH=%s\n", hash)
			return nil
		},
	}
}

func promptPassword() (string, error) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	password, err := line.PasswordPrompt("Password: ")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	confirm, err := line.PasswordPrompt("Confirm: ")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if password != confirm {
		return "", errors.New("passwords do not match")
	}
	return password, nil
}

func documentCmd(kind content.Kind) *cobra.Command {
	cmd := &cobra.Command{
		Use:   kind.Name,
		Short: fmt.Sprintf("Manage %s documents", kind.Name),
	}
	cmd.AddCommand(lsCmd(kind), newCmd(kind))
	return cmd
}

func lsCmd(kind content.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: fmt.Sprintf("List %s documents in display order", kind.Name),
		RunE: func(cmd *cobra.Command, args []string) error {
			work, writing, g := stores()
			s := site.New(work, writing, g)
			out := cmd.OutOrStdout()

			if kind.Name == content.Work.Name {
				projects, err := s.WorkProjects()
				if err != nil {
					return err
				}
				if len(projects) == 0 {
					fmt.Fprintln(out, "No projects yet.")
					return nil
				}
				for _, p := range projects {
					star := " "
					if p.Featured {
						star = "*"
					}
					fmt.Fprintf(out, "%s %4g  %-24s  %s\n", star, p.Order, p.Slug, truncate(p.Title, 50))
				}
				return nil
			}

			posts, err := s.WritingPosts()
			if err != nil {
				return err
			}
			if len(posts) == 0 {
				fmt.Fprintln(out, "No posts yet.")
				return nil
			}
			for _, p := range posts {
				fmt.Fprintf(out, "%-10s  %-24s  %s\n", truncate(p.Date, 10), p.Slug, truncate(p.Title, 50))
			}
			return nil
		},
	}
}

func newCmd(kind content.Kind) *cobra.Command {
	var slug string

	cmd := &cobra.Command{
		Use:   "new [title]",
		Short: fmt.Sprintf("Create a %s document", kind.Name),
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args, " ")
			if slug == "" {
				slug = content.Slugify(title)
			}

			s := content.NewStore(cfg.ContentDir, kind, logger)
			doc, err := s.Create(slug, content.Input{Meta: frontmatter.Metadata{
				{Key: "title", Value: frontmatter.String(title)},
			}})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", filepath.Join(s.Dir(), doc.Slug+kind.Ext))
			return nil
		},
	}

	cmd.Flags().StringVar(&slug, "slug", "", "slug (default derived from the title)")
	return cmd
}

func galleryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "Manage the gallery",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "ls",
		Short: "List gallery items",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, g := stores()
			items, err := g.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "Gallery is empty.")
				return nil
			}
			for _, it := range items {
				fmt.Fprintf(out, "%s  %-18s  %4dx%-4d  %s\n", shortID(it.ID), truncate(it.Category, 18), it.Width, it.Height, it.Src)
			}
			return nil
		},
	})
	return cmd
}

func activityCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show recent admin edits",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := openActivity()
			if err != nil {
				return err
			}
			defer log.Close()

			entries, err := log.Recent(limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No activity recorded.")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s  %-6s  %-7s  %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Action, e.Kind, e.Key)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	return cmd
}

func shortID(id string) string {
	return id[:min(8, len(id))]
}

func truncate(s string, max int) string {
	// Replace newlines with spaces for display
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
