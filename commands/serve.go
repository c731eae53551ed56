package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"grant_proposal_advisor/advisor"
	"grant_proposal_advisor/server"
)

func NewServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API.

Every POST /api/sessions creates an independent review session with its own
paragraphs, advice and advice threads.`,
		Example: `  advisor serve --addr :8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config server_addr)")
	return cmd
}

func runServe(ctx context.Context, addr string) error {
	st, err := loadStack()
	if err != nil {
		return err
	}
	defer st.log.Sync()

	if st.cfg.LogMode == "prod" || st.cfg.LogMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv, err := server.New(func() (advisor.Advisor, error) {
		return st.newEngine()
	}, server.Options{
		Questions:      st.questions,
		CORSOrigins:    st.cfg.CORSOrigins,
		RequestTimeout: st.cfg.RequestTimeout(),
		Logger:         st.log,
	})
	if err != nil {
		return err
	}

	listen := st.cfg.ServerAddr
	if addr != "" {
		listen = addr
	}
	httpSrv := &http.Server{Addr: listen, Handler: srv.Routes()}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		st.log.Info("starting web server", "addr", listen, "provider", st.cfg.LLM.Provider)
		serverErr <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		st.log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}
	return nil
}
