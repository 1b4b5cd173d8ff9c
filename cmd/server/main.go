package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	glog "github.com/labstack/gommon/log"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/editorial-roles/internal/admin"
	"github.com/iliyamo/editorial-roles/internal/config"
	"github.com/iliyamo/editorial-roles/internal/database"
	"github.com/iliyamo/editorial-roles/internal/handler"
	"github.com/iliyamo/editorial-roles/internal/middleware"
	"github.com/iliyamo/editorial-roles/internal/modules"
	"github.com/iliyamo/editorial-roles/internal/queue"
	"github.com/iliyamo/editorial-roles/internal/render"
	"github.com/iliyamo/editorial-roles/internal/repository"
	"github.com/iliyamo/editorial-roles/internal/roles"
	"github.com/iliyamo/editorial-roles/internal/router"
	queue_publisher "github.com/iliyamo/editorial-roles/internal/service"
	"github.com/iliyamo/editorial-roles/internal/utils"
	"github.com/iliyamo/editorial-roles/internal/workflow"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, dialect, err := openDB(cfg)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, dialect); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	rdb := config.NewRedisClient(ctx)
	if rdb != nil {
		defer rdb.Close()
	}

	roleRepo := repository.NewRoleRepo(db)
	userRepo := repository.NewUserRepo(db)
	termRepo := repository.NewTermRepo(db)
	optionRepo := repository.NewOptionRepo(db)
	metaRepo := repository.NewPostMetaRepo(db, rdb, config.LoadMetaCacheConfig())

	renderer, err := render.New()
	if err != nil {
		log.Fatalf("templates: %v", err)
	}

	// Workflow events subscribe to the hooks at construction.
	hooks := workflow.NewHooks()
	publishing := workflow.NewPublishing(hooks, metaRepo, renderer)

	rolesModule := roles.New(roles.Deps{
		Roles:    roleRepo,
		Users:    userRepo,
		Terms:    termRepo,
		Nonces:   utils.NonceSigner{Secret: cfg.JWTSecret, TTL: time.Duration(cfg.NonceTTLMin) * time.Minute},
		Renderer: renderer,
		UserID:   middleware.UserID,
	})
	g, gctx := errgroup.WithContext(ctx)
	var inflight sync.WaitGroup
	defer inflight.Wait()
	if cfg.RabbitURL != "" {
		pub := queue_publisher.Publisher{URL: cfg.RabbitURL}
		rolesModule.RoleChanged.Add(auditPublisher(pub.PublishRoleEvent, &inflight))
		audit := queue.AuditLog{Path: filepath.Join("logs", "roles.log")}
		g.Go(func() error {
			err := queue.StartRoleAuditConsumer(gctx, cfg.RabbitURL, audit)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	adminRouter := admin.NewRouter("/admin")
	registry := modules.NewRegistry(optionRepo, cfg.PluginVersion)
	registry.Register(rolesModule)
	if err := registry.Boot(ctx, adminRouter); err != nil {
		log.Fatalf("modules: %v", err)
	}
	if err := bootstrapAdmin(ctx, cfg, userRepo); err != nil {
		log.Fatalf("bootstrap admin: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(logLevel(cfg.Env))
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	router.RegisterRoutes(e, render.Assets())
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, userRepo), cfg.JWTSecret, limit)
	router.RegisterAdmin(e, adminRouter, cfg.JWTSecret, limit)
	router.RegisterWorkflow(e, handler.NewWorkflowHandler(hooks, publishing), cfg.JWTSecret, userRepo)

	addr := ":" + cfg.Port
	g.Go(func() error {
		e.Logger.Infof("listening on %s (env=%s, version=%s)", addr, cfg.Env, cfg.PluginVersion)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
}

func openDB(cfg config.Config) (*sql.DB, string, error) {
	if cfg.DBDriver == database.SQLite {
		if dir := filepath.Dir(cfg.DBName); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, "", err
			}
		}
		db, err := database.OpenSQLite(cfg.DBName)
		return db, database.SQLite, err
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	return db, database.MySQL, err
}

func logLevel(env string) glog.Lvl {
	if env == "production" {
		return glog.INFO
	}
	return glog.DEBUG
}

// bootstrapAdmin creates the ADMIN_EMAIL account on first start and makes
// sure it holds the administrator role.
func bootstrapAdmin(ctx context.Context, cfg config.Config, users *repository.UserRepo) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	u, err := users.GetByEmail(ctx, cfg.AdminEmail)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrUserNotFound):
		id, err := users.Create(ctx, cfg.AdminEmail, cfg.AdminPassword, "Administrator", cfg.BcryptCost)
		if err != nil {
			return err
		}
		u.ID = id
		log.Printf("created administrator %s", cfg.AdminEmail)
	default:
		return err
	}
	return users.AddRole(ctx, u.ID, roles.AdministratorRole)
}

// auditPublisher returns a RoleChanged subscriber that hands each event to
// publish in the background. Publishing dials the broker, so it stays off
// the request path; failures are logged and never fail the role change.
func auditPublisher(publish func(context.Context, queue.RoleAuditEvent) error, wg *sync.WaitGroup) func(context.Context, roles.RoleEvent) error {
	return func(_ context.Context, ev roles.RoleEvent) error {
		audit := auditEvent(ev)
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := publish(ctx, audit); err != nil {
				log.Printf("audit publish %s %s: %v", audit.Kind, audit.Role, err)
			}
		}()
		return nil
	}
}

func auditEvent(ev roles.RoleEvent) queue.RoleAuditEvent {
	return queue.RoleAuditEvent{
		Kind:        ev.Kind,
		Role:        ev.Role,
		DisplayName: ev.DisplayName,
		ID:          uuid.NewString(),
		ActorID:     ev.ActorID,
		UserIDs:     ev.UserIDs,
		OccurredAt:  ev.At.Format(time.RFC3339),
	}
}
