package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/HartBrook/tokun/internal/bridge"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	listen    string
	fallback  string
	noHistory bool
}

// NewServeCmd creates the serve command.
func NewServeCmd(g *globalOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local server used by the browser extension",
		Long: `Runs a local HTTP and WebSocket server that answers the browser extension's
optimize_prompt, count_tokens and suggest messages.

Endpoints:
  POST /v1/message   one JSON message, one JSON reply
  GET  /v1/ws        WebSocket, one reply per message
  GET  /healthz      liveness check

Settings are read once at startup; restart after changing them.`,
		Example: `  tokun serve
  tokun serve --listen 127.0.0.1:9000 --fallback local`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, g, opts)
		},
	}

	cmd.Flags().StringVar(&opts.listen, "listen", "", "Address to listen on (default from config, 127.0.0.1:7878)")
	cmd.Flags().StringVar(&opts.fallback, "fallback", "", "On provider failure: none or local (default from config)")
	cmd.Flags().BoolVar(&opts.noHistory, "no-history", false, "Do not record requests in history")

	return cmd
}

func runServe(cmd *cobra.Command, g *globalOptions, opts *serveOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, g)
	if err != nil {
		return err
	}
	defer a.Close()

	listen := a.cfg.Bridge.Listen
	if opts.listen != "" {
		listen = opts.listen
	}
	fallbackName := a.cfg.Bridge.Fallback
	if opts.fallback != "" {
		fallbackName = opts.fallback
	}
	fallback, err := bridge.ParseFallback(fallbackName)
	if err != nil {
		return err
	}

	svc, err := a.service(serviceOptions{noHistory: opts.noHistory})
	if err != nil {
		return err
	}

	handler := bridge.NewHandler(svc,
		bridge.WithFallback(fallback),
		bridge.WithLogger(a.logger),
	)

	printSuccess(cmd.OutOrStdout(), "Listening on %s (%s, fallback %s)",
		info("http://"+listen), providerDisplayName(a.settings.Get().Provider), fallback)
	a.logger.Info("bridge started", "listen", listen, "fallback", fallback)

	return serve(ctx, bridge.NewServer(handler), listen)
}

// serve is replaced in tests.
var serve = func(ctx context.Context, srv *bridge.Server, addr string) error {
	return srv.ListenAndServe(ctx, addr)
}
