package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/BloodyDerby/biosentiers-backend/internal/config"
	"github.com/BloodyDerby/biosentiers-backend/internal/email"
	jwtx "github.com/BloodyDerby/biosentiers-backend/internal/jwt"
	"github.com/BloodyDerby/biosentiers-backend/internal/security/password"
	"github.com/BloodyDerby/biosentiers-backend/internal/store/core"
	storepg "github.com/BloodyDerby/biosentiers-backend/internal/store/pg"
	migrations "github.com/BloodyDerby/biosentiers-backend/migrations/postgres"
)

func loadConfig(configPath, envFile string) (*config.Config, error) {
	if envFile != "" {
		if st, err := os.Stat(envFile); err == nil && !st.IsDir() {
			_ = godotenv.Load(envFile)
		}
	}
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	return config.Load(configPath)
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.Storage.Driver != "postgres" {
		return nil, fmt.Errorf("storage driver %q has no migrations", cfg.Storage.Driver)
	}
	return pgxpool.New(ctx, cfg.Storage.DSN)
}

// listMigrations devuelve los archivos embebidos con el sufijo dado,
// ordenados por nombre.
func listMigrations(suffix string) ([]string, error) {
	entries, err := fs.ReadDir(migrations.FS, migrations.Dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			out = append(out, path.Join(migrations.Dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

func execMigrations(ctx context.Context, pool *pgxpool.Pool, files []string) error {
	for _, f := range files {
		b, err := fs.ReadFile(migrations.FS, f)
		if err != nil {
			return err
		}
		log.Printf("applying %s", path.Base(f))
		if _, err := pool.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("exec %s: %w", f, err)
		}
	}
	return nil
}

func main() {
	var (
		configPath string
		envFile    string
	)

	root := &cobra.Command{
		Use:   "biosentiersctl",
		Short: "Herramientas de administración del backend BioSentiers",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "ruta a config.yaml (fallback: $CONFIG_PATH)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "ruta a .env (si existe, se carga)")

	// ─── migrate ───
	migrateCmd := &cobra.Command{
		Use:   "migrate [up|down] [steps]",
		Short: "Aplica las migraciones de esquema embebidas",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			steps := 0
			if len(args) >= 1 {
				action = strings.ToLower(args[0])
			}
			if len(args) >= 2 {
				if n, err := strconv.Atoi(args[1]); err == nil && n > 0 {
					steps = n
				}
			}

			cfg, err := loadConfig(configPath, envFile)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			switch action {
			case "up":
				files, err := listMigrations(".up.sql")
				if err != nil {
					return err
				}
				if steps > 0 && steps < len(files) {
					files = files[:steps]
				}
				if err := execMigrations(ctx, pool, files); err != nil {
					return err
				}
				log.Printf("%d up migration(s) applied", len(files))
			case "down":
				files, err := listMigrations(".down.sql")
				if err != nil {
					return err
				}
				// se aplican de la más reciente a la más antigua
				for i, j := 0, len(files)-1; i < j; i, j = i+1, j-1 {
					files[i], files[j] = files[j], files[i]
				}
				if steps > 0 && steps < len(files) {
					files = files[:steps]
				}
				if err := execMigrations(ctx, pool, files); err != nil {
					return err
				}
				log.Printf("%d down migration(s) applied", len(files))
			default:
				return fmt.Errorf("unknown action %q (want up|down)", action)
			}
			return nil
		},
	}

	// ─── installations create ───
	installationsCmd := &cobra.Command{
		Use:   "installations",
		Short: "Gestión de instalaciones",
	}
	createInstallationCmd := &cobra.Command{
		Use:   "create",
		Short: "Registra una instalación y emite su secreto compartido",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath, envFile)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			store, err := storepg.New(ctx, cfg.Storage.DSN, storepg.Config{})
			if err != nil {
				return err
			}
			defer store.Close()

			secret := make([]byte, 32)
			if _, err := rand.Read(secret); err != nil {
				return err
			}
			inst := &core.Installation{
				APIID:        uuid.NewString(),
				SharedSecret: secret,
				Active:       true,
			}
			if err := store.Installations().Create(ctx, inst); err != nil {
				return err
			}
			// El secreto se muestra una sola vez; guárdalo en el dispositivo.
			fmt.Printf("id:     %s\nsecret: %s\n", inst.APIID, hex.EncodeToString(secret))
			return nil
		},
	}
	installationsCmd.AddCommand(createInstallationCmd)

	// ─── users create-admin ───
	var (
		adminEmail     string
		adminPassword  string
		adminFirstName string
		adminLastName  string
	)
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Gestión de cuentas de usuario",
	}
	createAdminCmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Crea una cuenta admin activa (bootstrap)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if adminEmail == "" || adminPassword == "" {
				return fmt.Errorf("--email and --password are required")
			}
			cfg, err := loadConfig(configPath, envFile)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			store, err := storepg.New(ctx, cfg.Storage.DSN, storepg.Config{})
			if err != nil {
				return err
			}
			defer store.Close()

			cost := cfg.Auth.BcryptCost
			if cost == 0 {
				cost = password.DefaultCost
			}
			hash, err := password.Hash(adminPassword, cost)
			if err != nil {
				return err
			}
			user := &core.User{
				APIID:        uuid.NewString(),
				Email:        strings.ToLower(strings.TrimSpace(adminEmail)),
				PasswordHash: hash,
				FirstName:    adminFirstName,
				LastName:     adminLastName,
				Active:       true,
				Role:         core.RoleAdmin,
			}
			if err := store.Users().Create(ctx, user); err != nil {
				return err
			}
			fmt.Printf("id: %s\n", user.APIID)
			return nil
		},
	}
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "email de la cuenta")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "password inicial")
	createAdminCmd.Flags().StringVar(&adminFirstName, "first-name", "Admin", "nombre")
	createAdminCmd.Flags().StringVar(&adminLastName, "last-name", "Admin", "apellido")
	usersCmd.AddCommand(createAdminCmd)

	// ─── users invite ───
	var (
		inviteEmail string
		inviteRole  string
	)
	inviteCmd := &cobra.Command{
		Use:   "invite",
		Short: "Emite un token de invitación e imprime el link de registro",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inviteEmail == "" {
				return fmt.Errorf("--email is required")
			}
			if !core.ValidRole(inviteRole) {
				return fmt.Errorf("unknown role %q", inviteRole)
			}
			cfg, err := loadConfig(configPath, envFile)
			if err != nil {
				return err
			}
			codec := jwtx.NewCodec([]byte(cfg.JWT.Secret))
			address := strings.ToLower(strings.TrimSpace(inviteEmail))
			token, err := codec.Issue(address, jwtx.AuthTypeInvitation,
				config.Duration(cfg.JWT.InvitationTTL),
				map[string]any{"email": address, "role": inviteRole})
			if err != nil {
				return err
			}
			mailer := email.NewMailer(nil, cfg.Email.BaseURL)
			fmt.Println(mailer.InvitationLink(token))
			return nil
		},
	}
	inviteCmd.Flags().StringVar(&inviteEmail, "email", "", "email del invitado")
	inviteCmd.Flags().StringVar(&inviteRole, "role", "user", "rol de la cuenta (user|admin)")
	usersCmd.AddCommand(inviteCmd)

	root.AddCommand(migrateCmd, installationsCmd, usersCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
