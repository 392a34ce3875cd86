package chesspresenter

import (
	"strings"

	"github.com/park285/chessmaster/internal/chess"
)

// Presenter delivers formatted messages and boards without coupling to the
// input loop.
type Presenter struct {
	sendMessage func(message string) error
	formatter   *Formatter
}

func NewPresenter(sendMessage func(message string) error, formatter *Formatter) *Presenter {
	if formatter == nil {
		formatter = NewFormatter(nil)
	}
	return &Presenter{sendMessage: sendMessage, formatter: formatter}
}

func (p *Presenter) Formatter() *Formatter { return p.formatter }

// Message sends text unless it is blank.
func (p *Presenter) Message(message string) error {
	if p == nil || p.sendMessage == nil {
		return nil
	}
	if strings.TrimSpace(message) == "" {
		return nil
	}
	return p.sendMessage(message)
}

// Board sends message, if any, and then the board with its status line.
func (p *Presenter) Board(message string, st chess.State) error {
	if p == nil {
		return nil
	}
	if err := p.Message(message); err != nil {
		return err
	}
	return p.Message(p.formatter.Board(st))
}
