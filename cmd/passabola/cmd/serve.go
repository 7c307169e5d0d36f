package cmd

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/passa-a-bola/web/internal/adapter/inbound/http"
	"github.com/passa-a-bola/web/internal/domain/endpoint"
	"github.com/passa-a-bola/web/internal/domain/session"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the same-origin proxy",
	Long: `Serve the rewrite rules the web pages rely on.

  /api-proxy/*  -> internal origin, prefix stripped
  /api/*        -> internal origin, path kept
  /auth/*       -> internal origin, path kept

Also serves /health and /metrics. The proxy holds no user session; the
bearer token travels with each browser request.

Examples:
  passabola serve
  passabola serve --addr 0.0.0.0:3000`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.http_addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// stop() restores default signal handling so a second Ctrl+C does a hard kill.
	ctx, stop := signal.NotifyContext(cmd.Context(), gracefulSignals()...)
	go func() {
		<-ctx.Done()
		stop()
	}()

	return withApp(ctx, cmd.ErrOrStderr(), func(a *app) error {
		addr := a.cfg.Server.HTTPAddr
		if serveAddr != "" {
			addr = serveAddr
		}

		// The proxy always runs server side, whatever endpoint.side says.
		upstreamResolver, err := resolverFor(a.cfg, endpoint.SideServer)
		if err != nil {
			return err
		}
		upstream := upstreamResolver.ResolveBase()

		proxy := http.NewProxy(upstream, http.DefaultRewriteRules(),
			http.WithProxyLogger(a.logger),
			http.WithProxyTimeout(a.cfg.BackendTimeout()),
		)

		health := http.NewHealthChecker(Version)
		health.AddCheck("backend", dialCheck(upstream))
		health.AddCheck("session_storage", func(ctx context.Context) error {
			_, _, err := a.storage.Get(ctx, session.KeyToken)
			return err
		})

		opts := []http.Option{
			http.WithAddr(addr),
			http.WithLogger(a.logger),
			http.WithAllowedOrigins(a.cfg.Server.AllowedOrigins),
			http.WithHealthChecker(health),
			http.WithRegistry(a.registry),
		}
		if a.cfg.Server.TLSCertFile != "" {
			opts = append(opts, http.WithTLS(a.cfg.Server.TLSCertFile, a.cfg.Server.TLSKeyFile))
		}
		transport := http.NewHTTPTransport(proxy, opts...)

		a.logger.Info("starting proxy", "addr", addr, "upstream", upstream, "dev_mode", a.cfg.DevMode)
		if err := transport.Start(ctx); err != nil {
			return fmt.Errorf("proxy failed: %w", err)
		}
		a.logger.Info("passabola stopped")
		return nil
	})
}

// dialCheck reports whether a TCP connection to the upstream can be opened.
func dialCheck(upstream string) http.CheckFunc {
	return func(ctx context.Context) error {
		u, err := url.Parse(upstream)
		if err != nil {
			return fmt.Errorf("invalid upstream %q: %w", upstream, err)
		}
		host := u.Host
		if u.Port() == "" {
			port := "80"
			if u.Scheme == "https" {
				port = "443"
			}
			host = net.JoinHostPort(u.Hostname(), port)
		}

		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", host)
		if err != nil {
			return err
		}
		return conn.Close()
	}
}
