package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/park285/chessmaster/internal/adapter/chesspresenter"
	"github.com/park285/chessmaster/internal/cli"
	"github.com/park285/chessmaster/internal/client"
	"github.com/park285/chessmaster/internal/msgcat"
	"github.com/park285/chessmaster/internal/obslog"
	"github.com/park285/chessmaster/internal/session"
	"github.com/park285/chessmaster/pkg/chessdto"
)

type options struct {
	server   string
	gameID   string
	dataDir  string
	watch    bool
	messages string
	timeout  time.Duration
	conns    int
}

func main() {
	var opts options
	flag.StringVar(&opts.server, "server", "", "play against a chess-server at this URL instead of locally")
	flag.StringVar(&opts.gameID, "game", "", "game id to join (remote) or resume (local with -data)")
	flag.StringVar(&opts.dataDir, "data", "", "keep local games in this Badger directory and resume the latest")
	flag.BoolVar(&opts.watch, "watch", false, "print updates of -game from -server instead of playing")
	flag.StringVar(&opts.messages, "messages", os.Getenv("MESSAGES_DIR"), "directory with message overrides")
	flag.DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout against -server")
	flag.IntVar(&opts.conns, "conns", 0, "max pooled connections to -server (0 keeps the client default)")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "chess: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	// stdout belongs to the board; logs only go to a file when asked
	logOpts := obslog.OptionsFromEnv()
	logOpts.Console = false
	if err := obslog.Init(logOpts); err != nil {
		return err
	}
	defer func() { _ = obslog.L().Sync() }()

	catalog, err := msgcat.New(opts.messages)
	if err != nil {
		return err
	}
	formatter := chesspresenter.NewFormatter(catalog)

	// Ctrl+C must still kill a prompt blocked on stdin, so only -watch
	// traps signals.
	ctx := context.Background()
	if opts.watch {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
	}

	if opts.server != "" {
		return runRemote(ctx, opts, formatter)
	}
	if opts.watch {
		return errors.New("-watch needs -server")
	}
	return runLocal(ctx, opts, formatter)
}

func runLocal(ctx context.Context, opts options, f *chesspresenter.Formatter) error {
	var store session.Store = session.NewMemoryStore(0)
	if opts.dataDir != "" {
		bs, err := session.OpenBadgerStore(opts.dataDir, 0)
		if err != nil {
			return err
		}
		store = bs
	}
	mgr := session.NewManager(store)
	defer mgr.Close()

	id, err := pickLocalGame(ctx, mgr, opts, f)
	if err != nil {
		return err
	}
	return ignoreCanceled(cli.New(mgr, id, os.Stdout, f).Run(ctx, os.Stdin))
}

// pickLocalGame resumes -game or the latest unfinished game, or starts one.
func pickLocalGame(ctx context.Context, mgr *session.Manager, opts options, f *chesspresenter.Formatter) (string, error) {
	if opts.dataDir != "" {
		var rec *session.Record
		var err error
		if opts.gameID != "" {
			_, rec, err = mgr.Load(ctx, opts.gameID)
		} else {
			rec, err = mgr.Latest(ctx)
		}
		switch {
		case err == nil:
			fmt.Println(f.Resumed(rec.ID, len(rec.Moves)))
			return rec.ID, nil
		case !errors.Is(err, session.ErrGameNotFound):
			return "", err
		case opts.gameID != "":
			return "", fmt.Errorf("game %s: %w", opts.gameID, err)
		}
	}
	id, _, err := mgr.Create(ctx)
	return id, err
}

func runRemote(ctx context.Context, opts options, f *chesspresenter.Formatter) error {
	c := client.New(opts.server, client.WithTimeout(opts.timeout), client.WithMaxConnsPerHost(opts.conns))

	if opts.watch {
		if opts.gameID == "" {
			return errors.New("-watch needs -game")
		}
		fmt.Println(f.Watching(opts.gameID))
		return c.Watch(ctx, opts.gameID, func(ev chessdto.StateEvent) {
			fmt.Println(f.Update(ev.GameID))
			fmt.Println(f.Board(ev.State))
		})
	}

	id := strings.TrimSpace(opts.gameID)
	if id == "" {
		var err error
		if id, _, err = c.NewGame(ctx); err != nil {
			return err
		}
	}
	fmt.Println(f.RemoteGame(id, c.BaseURL()))
	return ignoreCanceled(cli.New(c, id, os.Stdout, f).Run(ctx, os.Stdin))
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
