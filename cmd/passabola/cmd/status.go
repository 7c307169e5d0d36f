package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/passa-a-bola/web/internal/domain/session"
)

var (
	statusOutput  string
	statusRefresh bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session",
	Long: `Show the persisted session: whether a user is logged in, their role and profile.

The token itself is never printed. Its claims (subject and expiry) are decoded
without verification for display only; the backend decides validity.

Examples:
  passabola status
  passabola status --refresh -o yaml`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "text", "output format: text, json or yaml")
	statusCmd.Flags().BoolVar(&statusRefresh, "refresh", false, "re-fetch the profile from the backend first")
	rootCmd.AddCommand(statusCmd)
}

// statusView is the printable form of a session.
type statusView struct {
	LoggedIn  bool           `json:"logged_in" yaml:"logged_in"`
	Role      string         `json:"role,omitempty" yaml:"role,omitempty"`
	RoleName  string         `json:"role_name" yaml:"role_name"`
	KnownRole bool           `json:"known_role" yaml:"known_role"`
	Token     *tokenView     `json:"token,omitempty" yaml:"token,omitempty"`
	Name      string         `json:"name,omitempty" yaml:"name,omitempty"`
	Profile   map[string]any `json:"profile,omitempty" yaml:"profile,omitempty"`
	Storage   string         `json:"storage" yaml:"storage"`
}

type tokenView struct {
	Subject   string     `json:"subject,omitempty" yaml:"subject,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	Expired   bool       `json:"expired" yaml:"expired"`
}

func newStatusView(s session.Session, storage string, now time.Time) statusView {
	v := statusView{
		LoggedIn:  s.IsLoggedIn,
		Role:      string(s.Role),
		RoleName:  s.Role.Name(),
		KnownRole: s.Role.Known(),
		Storage:   storage,
	}
	if claims, ok := session.DecodeClaims(s.Token); ok {
		tv := &tokenView{Subject: claims.Subject, Expired: claims.Expired(now)}
		if !claims.ExpiresAt.IsZero() {
			exp := claims.ExpiresAt
			tv.ExpiresAt = &exp
		}
		v.Token = tv
	}
	if s.Profile != nil {
		v.Name = s.Profile.DisplayName
		if fields, err := s.Profile.Fields(); err == nil {
			v.Profile = fields
		}
	}
	return v
}

func runStatus(cmd *cobra.Command, args []string) error {
	switch statusOutput {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", statusOutput)
	}

	return withApp(cmd.Context(), cmd.ErrOrStderr(), func(a *app) error {
		if statusRefresh && a.store.IsLoggedIn() {
			if _, err := a.store.RefreshProfile(cmd.Context()); err != nil {
				a.logger.Warn("profile refresh failed, showing stored profile", "error", err)
			}
		}
		view := newStatusView(a.store.Snapshot(), a.cfg.Storage.Driver, time.Now())
		return writeStatus(cmd.OutOrStdout(), view, statusOutput)
	})
}

func writeStatus(w io.Writer, v statusView, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}

	if !v.LoggedIn {
		_, err := fmt.Fprintf(w, "Not logged in (storage: %s)\n", v.Storage)
		return err
	}
	fmt.Fprintf(w, "Logged in as %s", v.RoleName)
	if !v.KnownRole {
		fmt.Fprint(w, " (unrecognized role)")
	}
	fmt.Fprintf(w, "\n  Storage: %s\n", v.Storage)
	if v.Token != nil {
		if v.Token.Subject != "" {
			fmt.Fprintf(w, "  Subject: %s\n", v.Token.Subject)
		}
		if v.Token.ExpiresAt != nil {
			state := "valid"
			if v.Token.Expired {
				state = "expired"
			}
			fmt.Fprintf(w, "  Token:   %s until %s\n", state, v.Token.ExpiresAt.Format(time.RFC3339))
		}
	}
	if v.Profile == nil {
		_, err := fmt.Fprintln(w, "  Profile: none")
		return err
	}
	name := v.Name
	if name == "" {
		name = "(unnamed)"
	}
	_, err := fmt.Fprintf(w, "  Profile: %s\n", name)
	return err
}
