package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/creditverify/config"
	"github.com/BaSui01/creditverify/internal/fakeapp"
	"github.com/BaSui01/creditverify/internal/server"
)

// =============================================================================
// 🧪 fakeapp 命令
// =============================================================================

func runFakeApp(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("fakeapp", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", server.DefaultConfig().Addr, "Listen address")
	user := fs.String("username", "admin", "Login username")
	pass := fs.String("password", "admin", "Login password")
	suppress := fs.Bool("suppress-otp-dialog", false, "Do not alert the OTP after login")
	hide := fs.Bool("hide-otp-field", false, "Do not render the OTP input after login")
	level := fs.String("log-level", "info", "Log level")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	logCfg := config.DefaultLogConfig()
	logCfg.Level = *level
	logger := initLogger(logCfg)
	defer func() { _ = logger.Sync() }()

	g, gctx := errgroup.WithContext(ctx)

	app := fakeapp.New(gctx, fakeapp.Options{
		Username:          *user,
		Password:          *pass,
		SuppressOTPDialog: *suppress,
		HideOTPField:      *hide,
	}, logger)

	srvCfg := server.DefaultConfig()
	srvCfg.Addr = *addr
	mgr := server.NewManager(app, srvCfg, logger)
	if err := mgr.Start(); err != nil {
		fmt.Fprintf(stderr, "Failed to start fake app: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Fake credit app listening on %s\n", mgr.URL())

	g.Go(func() error { return mgr.Run(gctx) })
	if err := g.Wait(); err != nil {
		fmt.Fprintf(stderr, "Fake app stopped: %v\n", err)
		return 1
	}
	return 0
}
