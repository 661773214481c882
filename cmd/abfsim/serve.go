package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/abfsim/internal/config"
	"github.com/san-kum/abfsim/internal/ledger"
	"github.com/san-kum/abfsim/internal/protocol"
)

func openLedger(ctx context.Context, cfg *config.Config) (ledger.Ledger, error) {
	path := cfg.Serve.LedgerPath
	if cfg.Serve.Ledger == "sqlite" && path == "" {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, err
		}
		path = filepath.Join(dataDir, "episodes.db")
	}
	l, err := ledger.NewLedger(cfg.Serve.Ledger, path)
	if err != nil {
		return nil, err
	}
	if err := l.Init(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer l.Close()

	if cfg.Serve.Listen == "" {
		return serveAgent(ctx, cfg, l, protocol.NewStream(os.Stdin, os.Stdout), 0)
	}
	return serveTCP(ctx, cfg, l)
}

// serveAgent runs one session. offset decorrelates the reset draws of
// concurrent sessions.
func serveAgent(ctx context.Context, cfg *config.Config, l ledger.Ledger, st *protocol.Stream, offset int64) error {
	defer st.Close()

	e, err := newEnvironment(cfg, offset)
	if err != nil {
		return err
	}
	s := protocol.NewSession(e, protocol.NewConn(st))
	s.Ledger = l
	s.MaxEpisodes = cfg.Serve.MaxEpisodes
	s.Logger = logger.With("session", s.ID)

	err = s.Run(ctx)
	s.Logger.Info("session ended", "episodes", s.Episodes())
	return err
}

func serveTCP(ctx context.Context, cfg *config.Config, l ledger.Ledger) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", cfg.Serve.Listen)
	if err != nil {
		return err
	}
	logger.Info("listening", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()

	for k := int64(1); ; k++ {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		wg.Add(1)
		go func(conn net.Conn, offset int64) {
			defer wg.Done()
			defer conn.Close()
			logger.Info("agent connected", "remote", conn.RemoteAddr().String())
			if err := serveAgent(ctx, cfg, l, protocol.NewStream(conn, conn), offset); err != nil && ctx.Err() == nil {
				logger.Error("session failed", "remote", conn.RemoteAddr().String(), "err", err)
			}
		}(conn, k)
	}
}

func listEpisodes(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Serve.Ledger = "sqlite"

	ctx := context.Background()
	l, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer l.Close()

	session := ""
	if len(args) > 0 {
		session = args[0]
	}
	eps, err := l.Episodes(ctx, session)
	if err != nil {
		return err
	}
	if len(eps) == 0 {
		fmt.Println("no episodes found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tEPISODE\tSTATUS\tSTEPS\tRETURN\tSTART DIST\tFINAL DIST\tELAPSED")
	for _, ep := range eps {
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%+.3f\t%.3f\t%.3f\t%v\n",
			ep.SessionID[:min(8, len(ep.SessionID))],
			ep.Index,
			ep.Status,
			ep.Steps,
			ep.Return,
			ep.InitialDistance,
			ep.FinalDistance,
			ep.Elapsed.Round(time.Millisecond),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	sum := ledger.Summarize(eps)
	fmt.Printf("\n%d episodes, %d successes (%.1f%%), mean return %+.3f, mean steps %.1f\n",
		sum.Episodes, sum.Successes, 100*sum.SuccessRate, sum.MeanReturn, sum.MeanSteps)
	return nil
}
