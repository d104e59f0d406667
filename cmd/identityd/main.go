package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	auth "github.com/avelhart/go-identity"
	"github.com/avelhart/go-identity/cmd/identityd/config"
	"github.com/avelhart/go-identity/mailer"
	"github.com/avelhart/go-identity/storage"
	"github.com/gofiber/fiber/v2"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type App struct {
	config *gconfig.Container[*config.BaseConfig]
	bunDB  *bun.DB
	repo   auth.RepositoryManager
	auth   auth.Authenticator
	srv    router.Server[*fiber.App]
	logger *glog.BaseLogger
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Info),
		glog.WithName("identityd"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.BaseConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if app.Config().GetApp().GetDebug() {
		fmt.Println("============")
		fmt.Println(print.MaybeHighlightJSON(cfg.Raw()))
		fmt.Println("============")
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	app.srv.Serve(app.Config().GetServer().GetAddr())

	WaitExitSignal()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.srv.Shutdown(shutdownCtx); err != nil {
		app.GetLogger("server").Error("shutdown", "error", err)
	}
}

func WithPersistence(ctx context.Context, app *App) error {
	db, err := sql.Open(sqliteshim.ShimName, app.Config().GetPersistence().GetDSN())
	if err != nil {
		log.Fatal(err)
		return err
	}

	persistence.RegisterModel((*auth.User)(nil))
	persistence.RegisterModel((*auth.Salt)(nil))
	persistence.RegisterModel((*auth.PasswordReset)(nil))
	persistence.RegisterModel((*auth.RefreshToken)(nil))

	cfg := app.Config().GetPersistence()
	dialect := sqlitedialect.New()
	client, err := persistence.New(cfg, db, dialect)
	if err != nil {
		log.Fatal(err)
		return err
	}

	client.SetLogger(app.GetLogger("persistence"))

	migrationsFS, err := fs.Sub(auth.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}
	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)
	if err := client.ValidateDialects(ctx); err != nil {
		return err
	}

	if err := client.Migrate(ctx); err != nil {
		return err
	}

	app.bunDB = client.DB()
	app.repo = auth.NewRepositoryManager(client.DB())

	return nil
}

func WithHTTPServer(ctx context.Context, app *App) error {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:       app.Config().GetApp().GetName(),
			StrictRouting: false,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	authCfg := app.Config().GetAuth()

	auther := auth.NewAuthenticator(app.repo, authCfg).
		WithLogger(app.GetLogger("auth"))

	app.auth = auther

	mail, err := buildMailer(app)
	if err != nil {
		return err
	}

	auth.RegisterAuthRoutes(srv.Router(),
		auth.WithControllerConfig(authCfg),
		auth.WithControllerRepo(app.repo),
		auth.WithControllerAuthenticator(auther),
		auth.WithControllerLogger(app.GetLogger("http")),
		auth.WithControllerMailer(mail),
		auth.WithControllerStorage(buildStorage(app)),
		auth.WithControllerDebug(app.Config().GetApp().GetDebug()),
	)

	app.srv = srv

	return nil
}

func buildMailer(app *App) (auth.Mailer, error) {
	smtp := app.Config().GetSMTP()

	if !smtp.Enabled {
		return mailer.Noop{}, nil
	}

	return mailer.NewSMTP(mailer.Config{
		Host:     smtp.Host,
		Port:     smtp.Port,
		Username: smtp.Username,
		Password: smtp.Password,
		From:     smtp.From,
		BaseURL:  app.Config().GetApp().GetBaseURL(),
		AppName:  app.Config().GetApp().GetName(),
	})
}

func buildStorage(app *App) auth.BlobStorage {
	st := app.Config().GetStorage()

	if st.Provider == "s3" {
		return storage.NewS3(storage.S3Config{
			Region:        st.Region,
			AccessKey:     st.AccessKey,
			SecretKey:     st.SecretKey,
			Bucket:        st.Bucket,
			BaseEndpoint:  st.BaseEndpoint,
			PublicBaseURL: st.PublicBaseURL,
		})
	}

	dir := st.LocalDir
	if dir == "" {
		dir = "data/blobs"
	}

	return storage.NewLocal(dir, app.Config().GetApp().GetBaseURL()+"/files")
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
