package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/passa-a-bola/web/internal/domain/endpoint"
)

var resolveSide string

var resolveCmd = &cobra.Command{
	Use:   "resolve PATH",
	Short: "Show the URL a logical path resolves to",
	Long: `Print the backend base and the URL a logical API path resolves to.

Server side resolves to the internal origin (INTERNAL_API_URL, default
http://backend:8000). Client side keeps the path relative so the request goes
through the same-origin proxy.

Examples:
  passabola resolve /api/news
  passabola resolve --side client /api/news`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveSide, "side", "", "execution side: server or client (default: endpoint.side)")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	side := cfg.EndpointSide()
	if resolveSide != "" {
		side = endpoint.Side(resolveSide)
	}
	if !side.IsValid() {
		return fmt.Errorf("invalid side %q (want server or client)", resolveSide)
	}

	r, err := resolverFor(cfg, side)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "side: %s\n", r.Side())
	fmt.Fprintf(out, "base: %s\n", r.ResolveBase())
	fmt.Fprintf(out, "path: %s\n", r.ResolvePath(args[0]))
	fmt.Fprintf(out, "url:  %s\n", r.ResolveURL(args[0], cfg.Endpoint.PageOrigin))
	return nil
}
