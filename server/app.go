package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"upravdom/config"
	"upravdom/internal/accessreq"
	"upravdom/internal/adminapi"
	"upravdom/internal/approval"
	"upravdom/internal/billing"
	"upravdom/internal/db"
	"upravdom/internal/email"
	"upravdom/internal/feed"
	"upravdom/internal/health"
	"upravdom/internal/logs"
	"upravdom/internal/middleware"
	"upravdom/internal/models"
	"upravdom/internal/realtime"
	"upravdom/internal/recaptcha"
	"upravdom/internal/repo"
	"upravdom/internal/signedlink"
	"upravdom/internal/viewer"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type App struct {
	cfg        *config.Config
	db         *gorm.DB
	Router     *mux.Router
	httpServer *http.Server

	hub *realtime.Hub

	ctx    context.Context
	cancel context.CancelFunc
}

func (a *App) Initialize(cfg *config.Config) {
	a.cfg = cfg

	/* 1) Логи */
	logs.Init(logs.Options{
		Level:  a.cfg.Logging.Level,
		Format: a.cfg.Logging.Format,
		File:   a.cfg.Logging.File,
	})

	/* 2) DB */
	d, err := db.Open(a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	a.db = d

	if err := a.db.AutoMigrate(
		&models.AccessRequest{},
		&models.Client{},
		&models.ClientMember{},
		&models.Tenant{},
		&models.Admin{},
		&models.Session{},
		&models.Building{},
		&models.Apartment{},
		&models.Announcement{},
		&models.Poll{},
		&models.PollVote{},
	); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	/* 3) Сторы */
	requests := repo.NewAccessRequestStore(a.db)
	clients := repo.NewClientStore(a.db)
	tenants := repo.NewTenantStore(a.db)
	admins := repo.NewAdminStore(a.db)
	sessions := repo.NewSessionStore(a.db)
	props := repo.NewPropertyStore(a.db)
	feedStore := repo.NewFeedStore(a.db)

	/* 4) Сервисы */
	signer := signedlink.New(a.cfg.App.LinkSecret, a.cfg.App.LinkTTL, a.cfg.App.BaseURL)
	nonces := signedlink.NewMemNonceStore(a.cfg.App.LinkTTL)

	var mailer email.Sender
	if a.cfg.SMTP.Host != "" {
		mailer = email.NewSMTPSender(a.cfg.SMTP.Host, a.cfg.SMTP.Port,
			a.cfg.SMTP.From, a.cfg.SMTP.User, a.cfg.SMTP.Pass, a.cfg.SMTP.TLSMode)
	} else {
		mailer = email.NopSender{} // dev: письма в лог
	}

	var captcha recaptcha.Verifier
	if a.cfg.Recaptcha.Secret != "" {
		captcha = recaptcha.NewGoogleVerifier(a.cfg.Recaptcha.Secret)
	} else {
		captcha = recaptcha.NopVerifier{}
	}

	decider := approval.New(requests, tenants, mailer, a.cfg.App.LoginURL)
	resolver := viewer.NewResolver(sessions, admins, clients, tenants)

	a.hub = realtime.NewHub(func(r *http.Request) (string, error) {
		p, err := resolver.Resolve(r.Context(), viewer.BearerToken(r))
		if err != nil {
			return "", err
		}
		return resolver.ClientRowUUID(r.Context(), p)
	})
	a.hub.Snapshot = func(ctx context.Context, rowUUID string) (realtime.ChangeEvent, error) {
		c, err := clients.GetByUUID(ctx, rowUUID)
		if err != nil {
			return realtime.ChangeEvent{}, err
		}
		return realtime.ChangeEvent{
			Table:     "clients",
			RowUUID:   c.UUID,
			Status:    c.Status,
			UpdatedAt: c.UpdatedAt,
		}, nil
	}
	go a.hub.Run()

	billingProvider := billing.NewHTTPProvider(a.cfg.Billing.APIURL, a.cfg.Billing.Token, a.cfg.Billing.Timeout)
	billingH := billing.NewHandler(newCustomerSource(clients), billingProvider, a.cfg.Billing.SyncWorkers)

	accessH := accessreq.NewHandler(accessreq.Options{
		Store:      requests,
		Decider:    decider,
		Signer:     signer,
		Nonces:     nonces,
		Mail:       mailer,
		Captcha:    captcha,
		Admins:     admins,
		FormSecret: a.cfg.App.FormSecret,
		AdminEmail: a.cfg.App.AdminEmail,
	})

	viewerH := viewer.NewHandler(resolver)
	feedH := feed.NewHandler(feedStore, props, resolver)
	adminH := adminapi.NewHandler(clients, requests, resolver, a.hub, sessions)

	/* 5) Router + middleware */
	a.Router = mux.NewRouter().StrictSlash(true)
	a.Router.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middleware.LoggerMW,
	)

	health.RegisterRoutesWithDB(a.Router, a.db) // /healthz, /readyz
	accessreq.RegisterRoutes(a.Router, accessH)
	billing.RegisterRoutes(a.Router, billingH)
	viewer.RegisterRoutes(a.Router, viewerH)
	feed.RegisterRoutes(a.Router, feedH)
	adminapi.RegisterRoutes(a.Router, adminH)
	realtime.RegisterRoutes(a.Router, a.hub)

	/* (необязательно) вывести известные маршруты в лог при старте */
	_ = a.Router.Walk(func(rt *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, _ := rt.GetPathTemplate()
		methods, _ := rt.GetMethods()
		if len(methods) == 0 {
			methods = []string{"ANY"}
		}
		log.Printf("route: %-6v %s", methods, path)
		return nil
	})
}

func (a *App) Run() error {
	if a.Router == nil || a.cfg == nil {
		return fmt.Errorf("server not initialized")
	}

	bind := net.JoinHostPort(a.cfg.Server.Address, a.cfg.Server.HTTPPort)

	a.ctx, a.cancel = context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigs
		logs.Logger.Infof("shutdown signal: %s", s)
		a.cancel()
	}()

	// Жёсткие таймауты — это важно для production
	a.httpServer = &http.Server{
		Addr:              bind,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logs.Logger.Infof("HTTP listening on %s", bind)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logs.Logger.Fatalf("http server error: %v", err)
		}
	}()

	<-a.ctx.Done()

	a.hub.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logs.Logger.Errorf("http shutdown: %v", err)
	}
	return nil
}
