// Command hellopair es el CLI de la API de admin.
package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var (
		baseURL = envOr("HELLOPAIR_ADMIN_URL", "http://localhost:8080")
		apiKey  = envOr("HELLOPAIR_ADMIN_KEY", "")
		format  = envOr("HELLOPAIR_OUT", "text")
		timeout = 2 * time.Minute
	)
	cl := &client{Out: out}

	root := &cobra.Command{
		Use:           "hellopair",
		Short:         "CLI admin para hellopair",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cl.BaseURL = baseURL
			cl.APIKey = apiKey
			cl.OutFormat = format
			cl.HTTP = &http.Client{Timeout: timeout}
		},
	}
	root.PersistentFlags().StringVar(&baseURL, "admin-api-url", baseURL, "URL base del Admin API (env HELLOPAIR_ADMIN_URL)")
	root.PersistentFlags().StringVar(&apiKey, "admin-api-key", apiKey, "API key del Admin API (env HELLOPAIR_ADMIN_KEY)")
	root.PersistentFlags().StringVar(&format, "out", format, "Formato de salida: json|text")
	root.PersistentFlags().DurationVar(&timeout, "timeout", timeout, "Timeout de cada request")

	root.AddCommand(&cobra.Command{
		Use:   "ping",
		Short: "GET /readyz",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call(http.MethodGet, "/readyz", nil)
		},
	})

	var annotation string
	optinCmd := &cobra.Command{
		Use:   "optin <tenant> <participant>",
		Short: "Inscribe a un participante para la próxima ronda",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call(http.MethodPut, tenantPath(args[0], "optins", args[1]), map[string]string{"annotation": annotation})
		},
	}
	optinCmd.Flags().StringVar(&annotation, "annotation", "", "Nota libre del opt-in")
	root.AddCommand(optinCmd)

	root.AddCommand(&cobra.Command{
		Use:   "optout <tenant> <participant>",
		Short: "Quita a un participante de la próxima ronda",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call(http.MethodDelete, tenantPath(args[0], "optins", args[1]), nil)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "optins <tenant> [participant]",
		Short: "Lista los inscriptos (o muestra uno)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 {
				return cl.call(http.MethodGet, tenantPath(args[0], "optins", args[1]), nil)
			}
			return cl.call(http.MethodGet, tenantPath(args[0], "optins"), nil)
		},
	})

	var historyParticipant string
	historyCmd := &cobra.Command{
		Use:   "history <tenant>",
		Short: "Lista los pares ya emparejados",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := tenantPath(args[0], "history")
			if historyParticipant != "" {
				path += "?participant=" + url.QueryEscape(historyParticipant)
			}
			return cl.call(http.MethodGet, path, nil)
		},
	}
	historyCmd.Flags().StringVar(&historyParticipant, "participant", "", "Solo aristas de este participante")
	root.AddCommand(historyCmd)

	root.AddCommand(newProfileCmd(cl))

	root.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Dispara un sweep manual de todos los tenants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call(http.MethodPost, "/v1/sweeps", nil)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "run <tenant>",
		Short: "Corre la ronda de un tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call(http.MethodPost, tenantPath(args[0], "runs"), nil)
		},
	})

	return root
}

func newProfileCmd(cl *client) *cobra.Command {
	profileCmd := &cobra.Command{Use: "profile", Short: "Operaciones sobre perfiles"}

	profileCmd.AddCommand(&cobra.Command{
		Use:   "get <tenant> <participant>",
		Short: "Muestra un perfil",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call(http.MethodGet, tenantPath(args[0], "profiles", args[1]), nil)
		},
	})

	var attrs []string
	setCmd := &cobra.Command{
		Use:   "set <tenant> <participant> --attr key=value ...",
		Short: "Reemplaza los atributos de un perfil",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := parseAttrs(attrs)
			if err != nil {
				return err
			}
			return cl.call(http.MethodPut, tenantPath(args[0], "profiles", args[1]), map[string]any{"attributes": m})
		},
	}
	setCmd.Flags().StringArrayVar(&attrs, "attr", nil, "Atributo key=value (repetible)")
	profileCmd.AddCommand(setCmd)

	profileCmd.AddCommand(&cobra.Command{
		Use:   "delete <tenant> <participant>",
		Short: "Borra un perfil",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call(http.MethodDelete, tenantPath(args[0], "profiles", args[1]), nil)
		},
	})
	return profileCmd
}

func parseAttrs(kvs []string) (map[string]string, error) {
	out := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --attr %q (want key=value)", kv)
		}
		out[strings.TrimSpace(k)] = v
	}
	return out, nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
