package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/vendor-portal/internal/mailer"
	"github.com/sells-group/vendor-portal/internal/server"
	"github.com/sells-group/vendor-portal/internal/storage"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the portal API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		resolver := storage.NewResolver(cfg.Storage.Roots, cfg.Storage.LogoFile)
		m := mailer.New(mailer.Config{
			Host:          cfg.SMTP.Host,
			Port:          cfg.SMTP.Port,
			Username:      cfg.SMTP.Username,
			Password:      cfg.SMTP.Password,
			From:          cfg.SMTP.From,
			RatePerMinute: cfg.SMTP.RatePerMinute,
		}, resolver.LogoPath())
		auth := server.NewAuth(cfg.Server.JWTSecret,
			time.Duration(cfg.Server.TokenTTLHours)*time.Hour)

		srv := server.New(server.Config{
			AllowedOrigins:    cfg.Server.AllowedOrigins,
			AdminEmails:       cfg.Admin.AllowedEmails,
			AdminPasswordHash: cfg.Admin.PasswordHash,
			ContactRecipient:  cfg.Admin.ContactRecipient,
			SheetDirs:         cfg.Sheets.Dirs,
			HomologationFile:  cfg.Sheets.Homologation,
			QualityFile:       cfg.Sheets.Quality,
			RosterFile:        cfg.Sheets.Roster,
			OverridesFile:     cfg.Sheets.OverridesFile,
		}, st, resolver, m, auth)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srv.Router(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
