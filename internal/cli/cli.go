package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/chessmaster/internal/adapter/chesspresenter"
	"github.com/park285/chessmaster/internal/chess"
	"github.com/park285/chessmaster/internal/obslog"
)

// Games is served by both session.Manager (local play) and client.Client
// (remote play).
type Games interface {
	State(ctx context.Context, id string) (chess.State, error)
	Move(ctx context.Context, id, text string) (chess.MoveResult, chess.State, error)
	PossibleMoves(ctx context.Context, id string, row, col int) ([]chess.Square, error)
	Reset(ctx context.Context, id string) (chess.State, error)
}

// Loop is one interactive session on a single game.
type Loop struct {
	games     Games
	id        string
	out       io.Writer
	presenter *chesspresenter.Presenter
	format    *chesspresenter.Formatter
}

func New(games Games, id string, out io.Writer, f *chesspresenter.Formatter) *Loop {
	if f == nil {
		f = chesspresenter.NewFormatter(nil)
	}
	l := &Loop{games: games, id: id, out: out, format: f}
	l.presenter = chesspresenter.NewPresenter(func(msg string) error {
		_, err := fmt.Fprintln(out, msg)
		return err
	}, f)
	return l
}

// Run prints the welcome and board, then reads commands from in until quit,
// end of input or the end of the game.
func (l *Loop) Run(ctx context.Context, in io.Reader) error {
	if err := l.presenter.Message(l.format.Welcome() + "\n"); err != nil {
		return err
	}
	st, err := l.games.State(ctx, l.id)
	if err != nil {
		return err
	}
	if err := l.presenter.Board("", st); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for !st.GameOver {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := io.WriteString(l.out, l.format.Prompt(st.CurrentPlayer)); err != nil {
			return err
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return l.presenter.Message("\n" + l.format.Goodbye())
		}
		line := strings.ToLower(strings.TrimSpace(scanner.Text()))

		next, quit, err := l.handle(ctx, line, st)
		if err != nil {
			return err
		}
		if quit {
			return l.presenter.Message("\n" + l.format.Goodbye())
		}
		st = next
	}
	return nil
}

// handle runs one command and returns the state to prompt with.
func (l *Loop) handle(ctx context.Context, line string, st chess.State) (chess.State, bool, error) {
	switch {
	case line == "quit" || line == "exit":
		return st, true, nil
	case line == "board" || line == "b":
		st, err := l.games.State(ctx, l.id)
		if err != nil {
			return st, false, err
		}
		return st, false, l.presenter.Board("", st)
	case line == "help" || line == "h":
		return st, false, l.presenter.Message("\n" + l.format.Help() + "\n")
	case line == "reset":
		st, err := l.games.Reset(ctx, l.id)
		if err != nil {
			return st, false, err
		}
		return st, false, l.presenter.Board(l.format.Reset(), st)
	case line == "moves" || strings.HasPrefix(line, "moves "):
		return st, false, l.showMoves(ctx, strings.TrimSpace(strings.TrimPrefix(line, "moves")))
	}

	res, next, err := l.games.Move(ctx, l.id, line)
	if err != nil {
		return st, false, err
	}
	if !res.Success {
		obslog.L().Debug("cli_move_rejected", zap.String("game_id", l.id), zap.String("move", line), zap.String("reason", res.Message))
		return next, false, l.presenter.Message(res.Message)
	}
	return next, false, l.presenter.Board(res.Message, next)
}

func (l *Loop) showMoves(ctx context.Context, arg string) error {
	sq, err := chess.ParseSquare(arg)
	if err != nil {
		return l.presenter.Message(l.format.MovesUsage())
	}
	moves, err := l.games.PossibleMoves(ctx, l.id, sq.Row, sq.Col)
	if err != nil {
		return err
	}
	return l.presenter.Message(l.format.Moves(sq, moves))
}
