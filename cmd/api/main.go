package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"stellarclub.org/internal/httpapi"
	"stellarclub.org/internal/membership"
	"stellarclub.org/internal/notify"
	"stellarclub.org/internal/obs"
	"stellarclub.org/internal/project"
	"stellarclub.org/internal/verify"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	dsn := os.Getenv("STELLAR_PG_DSN")
	if dsn == "" {
		log.Fatal("missing STELLAR_PG_DSN")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	notifier := buildNotifier()

	codes := verify.NewRegistry(verify.WithNotifier(notifier))

	members, err := membership.NewService(
		membership.NewPGStore(db),
		codes,
		membership.WithNotifier(notifier),
	)
	if err != nil {
		log.Fatalf("membership service: %v", err)
	}

	projects, err := project.NewService(project.NewPGStore(db))
	if err != nil {
		log.Fatalf("project service: %v", err)
	}

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, members, projects, codes)

	srv := &http.Server{
		Addr:              listenAddr(),
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting stellarclub-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = db.Close()
	log.Println("Stopped")
}

// buildNotifier prefers SMTP when STELLAR_SMTP_HOST is set and falls back to
// the log notifier, which keeps local development mail-free.
func buildNotifier() notify.Notifier {
	host := os.Getenv("STELLAR_SMTP_HOST")
	if host == "" {
		return notify.LogNotifier{}
	}
	port := 0
	if v := os.Getenv("STELLAR_SMTP_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid STELLAR_SMTP_PORT: %v", err)
		}
		port = p
	}
	n, err := notify.NewSMTPNotifier(notify.SMTPConfig{
		Host:     host,
		Port:     port,
		Username: os.Getenv("STELLAR_SMTP_USERNAME"),
		Password: os.Getenv("STELLAR_SMTP_PASSWORD"),
		From:     os.Getenv("STELLAR_SMTP_FROM"),
	})
	if err != nil {
		log.Fatalf("smtp notifier: %v", err)
	}
	return n
}

func listenAddr() string {
	if addr := os.Getenv("STELLAR_LISTEN_ADDR"); addr != "" {
		return addr
	}
	return ":8080"
}
