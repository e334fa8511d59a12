package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sibya/sibya/internal/actions"
	"github.com/sibya/sibya/internal/auth"
	"github.com/sibya/sibya/internal/config"
	"github.com/sibya/sibya/internal/database"
	"github.com/sibya/sibya/internal/logging"
	"github.com/sibya/sibya/internal/models"
	"github.com/sibya/sibya/internal/server"
	"github.com/sibya/sibya/internal/storage"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "sibya",
		Usage: "Event pages and identity-provider user sync.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: config.GetConfigDir(), Usage: "directory holding config.json"},
		},
		Commands: []*cli.Command{
			serveCommand(),
			usersCommand(),
			pagesCommand(),
			tokenCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logging.Error("Command failed", "cli", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}
}

// setup loads configuration and installs the process logger
func setup(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logging.InitializeLogger(cfg.LogDir, cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	return cfg, nil
}

func newProvider(cfg *config.Config) *database.Provider {
	return database.NewProvider(&database.Config{
		Type: database.DatabaseType(cfg.Database.Type),
		URI:  cfg.Database.URI,
		Name: cfg.Database.Name,
	})
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server.",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Usage: "listen port (overrides SIBYA_PORT)"},
			&cli.BoolFlag{Name: "dev", Usage: "development mode"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := setup(c)
			if err != nil {
				return err
			}
			if c.IsSet("port") {
				cfg.Port = c.Int("port")
			}
			if c.IsSet("dev") {
				cfg.Development = c.Bool("dev")
			}

			provider := newProvider(cfg)
			store, err := storage.NewManager(c.Context, &cfg.Storage)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}

			srv, err := server.New(cfg, provider, store)
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}

			httpServer := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Port),
				Handler:           srv,
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       60 * time.Second,
				WriteTimeout:      60 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			serveErr := make(chan error, 1)
			go func() {
				logging.Info("Server listening", "server", map[string]interface{}{
					"addr": httpServer.Addr,
				})
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-serveErr:
				if err != nil {
					return fmt.Errorf("failed to start server: %w", err)
				}
			case <-quit:
			}

			logging.Info("Shutting down server", "server", nil)

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(ctx); err != nil {
				logging.Error("Server forced to shutdown", "server", map[string]interface{}{
					"error": err.Error(),
				})
			}
			if err := provider.Close(ctx); err != nil {
				logging.Error("Error closing database", "server", map[string]interface{}{
					"error": err.Error(),
				})
			}

			logging.Info("Server shutdown complete", "server", nil)
			return logging.GetLogger().Close()
		},
	}
}

func usersCommand() *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "Apply user sync actions by hand.",
		Subcommands: []*cli.Command{
			{
				Name:  "upsert",
				Usage: "Create or update a user from identity-provider fields.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true, Usage: "identity-provider user id"},
					&cli.StringFlag{Name: "first-name"},
					&cli.StringFlag{Name: "last-name"},
					&cli.StringFlag{Name: "image-url"},
					&cli.StringSliceFlag{Name: "email", Usage: "email address; the first one is stored"},
					&cli.StringFlag{Name: "role", Value: string(models.RoleStudent), Usage: "Admin, Student or Faculty"},
				},
				Action: func(c *cli.Context) error {
					cfg, err := setup(c)
					if err != nil {
						return err
					}
					provider := newProvider(cfg)
					defer provider.Close(context.Background())

					var emails []actions.EmailAddress
					for _, e := range c.StringSlice("email") {
						emails = append(emails, actions.EmailAddress{EmailAddress: e})
					}

					user, err := actions.NewUsers(provider).CreateOrUpdateUser(c.Context, actions.UserProfile{
						ExternalID:     c.String("id"),
						FirstName:      c.String("first-name"),
						LastName:       c.String("last-name"),
						ImageURL:       c.String("image-url"),
						EmailAddresses: emails,
						Role:           c.String("role"),
					})
					if err != nil {
						return err
					}
					return printJSON(user)
				},
			},
			{
				Name:  "delete",
				Usage: "Delete a user by identity-provider id.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true, Usage: "identity-provider user id"},
				},
				Action: func(c *cli.Context) error {
					cfg, err := setup(c)
					if err != nil {
						return err
					}
					provider := newProvider(cfg)
					defer provider.Close(context.Background())

					user, err := actions.NewUsers(provider).DeleteUser(c.Context, c.String("id"))
					if err != nil {
						return err
					}
					if user == nil {
						fmt.Println("no such user")
						return nil
					}
					return printJSON(user)
				},
			},
		},
	}
}

func pagesCommand() *cli.Command {
	return &cli.Command{
		Name:  "pages",
		Usage: "Manage pages.",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create an empty page and print it.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "display name"},
				},
				Action: func(c *cli.Context) error {
					cfg, err := setup(c)
					if err != nil {
						return err
					}
					provider := newProvider(cfg)
					defer provider.Close(context.Background())

					db, err := provider.Get(c.Context)
					if err != nil {
						return err
					}
					page := &models.Page{Name: c.String("name")}
					if err := db.Pages().Insert(c.Context, page); err != nil {
						return err
					}
					return printJSON(page)
				},
			},
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Mint a session token signed with JWT_SECRET, for local testing.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Required: true, Usage: "identity-provider user id to put in sub"},
			&cli.DurationFlag{Name: "ttl", Usage: "token lifetime (defaults to the configured expiration)"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := setup(c)
			if err != nil {
				return err
			}
			if cfg.Security.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}

			ttl := c.Duration("ttl")
			if ttl == 0 {
				if ttl, err = time.ParseDuration(cfg.Security.JWTExpiration); err != nil {
					return fmt.Errorf("invalid jwt expiration %q: %w", cfg.Security.JWTExpiration, err)
				}
			}

			token, err := auth.NewJWTManager(cfg.Security.JWTSecret, ttl, cfg.Security.JWTIssuer).GenerateToken(c.String("user"))
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
}
