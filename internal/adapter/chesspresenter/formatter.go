package chesspresenter

import (
	"strings"

	"github.com/park285/chessmaster/internal/chess"
	"github.com/park285/chessmaster/internal/msgcat"
)

// Formatter renders game state into terminal text using the message catalog.
type Formatter struct {
	catalog *msgcat.Catalog
}

// NewFormatter falls back to the embedded catalog when catalog is nil.
func NewFormatter(catalog *msgcat.Catalog) *Formatter {
	if catalog == nil {
		catalog = msgcat.Default()
	}
	return &Formatter{catalog: catalog}
}

func (f *Formatter) text(key string, data any) string {
	if f == nil {
		return msgcat.Default().Text(key, data)
	}
	return f.catalog.Text(key, data)
}

func (f *Formatter) Welcome() string { return f.text("cli.welcome", nil) }
func (f *Formatter) Help() string    { return f.text("cli.help", nil) }
func (f *Formatter) Goodbye() string { return f.text("cli.goodbye", nil) }

// Prompt asks the side to move, e.g. "white's move: ".
func (f *Formatter) Prompt(player chess.Color) string {
	return f.text("cli.prompt", map[string]string{"Player": player.String()})
}

// Status is the line under the board.
func (f *Formatter) Status(st chess.State) string {
	if st.GameOver && st.Winner != nil {
		return f.text("status.over", map[string]string{"Winner": st.Winner.String()})
	}
	return f.text("status.to_move", map[string]string{"Player": st.CurrentPlayer.String()})
}

// Board draws the grid followed by the status line, without a trailing
// newline; line-oriented writers add it.
func (f *Formatter) Board(st chess.State) string {
	return st.Board.String() + f.Status(st)
}

// Moves lists destinations from sq in algebraic form.
func (f *Formatter) Moves(sq chess.Square, moves []chess.Square) string {
	if len(moves) == 0 {
		return f.text("cli.no_moves", map[string]string{"Square": sq.String()})
	}
	return f.text("cli.moves", map[string]string{"Square": sq.String(), "Moves": SquareList(moves)})
}

func (f *Formatter) MovesUsage() string { return f.text("cli.moves_usage", nil) }
func (f *Formatter) Reset() string      { return f.text("cli.reset", nil) }

func (f *Formatter) Resumed(id string, plies int) string {
	return f.text("cli.resumed", map[string]any{"ID": id, "Count": plies})
}

func (f *Formatter) RemoteGame(id, server string) string {
	return f.text("cli.remote_game", map[string]string{"ID": id, "Server": server})
}

func (f *Formatter) Watching(id string) string {
	return f.text("cli.watching", map[string]string{"ID": id})
}

func (f *Formatter) Update(id string) string {
	return f.text("cli.update", map[string]string{"ID": id})
}

// SquareList joins squares as "e3, e4".
func SquareList(squares []chess.Square) string {
	names := make([]string, 0, len(squares))
	for _, sq := range squares {
		names = append(names, sq.String())
	}
	return strings.Join(names, ", ")
}
