package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/park285/chessmaster/internal/chess"
	"github.com/park285/chessmaster/internal/msgcat"
)

// RenderOptions decorates a board image.
type RenderOptions struct {
	// Highlight marks destination squares, typically possible moves.
	Highlight []chess.Square
	// Selected tints the origin square.
	Selected *chess.Square
	// Flip draws the board from black's side.
	Flip bool
	// Header replaces the default status line.
	Header string
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, st chess.State, opts RenderOptions) ([]byte, error)
}

// Layout in pixels.
const (
	SquareSize   = 64
	SideMargin   = 28
	TopMargin    = 60
	BottomMargin = 28

	boardPixels = SquareSize * chess.Size
	Width       = boardPixels + SideMargin*2
	Height      = boardPixels + TopMargin + BottomMargin

	hudHeight  = 32
	hudRadius  = 10
	hudPadding = 18
)

type boardRenderer struct {
	catalog *msgcat.Catalog
	face    font.Face
}

// NewBoardRenderer returns a PNG renderer. A nil catalog uses the embedded
// messages.
func NewBoardRenderer(catalog *msgcat.Catalog) BoardRenderer {
	if catalog == nil {
		catalog = msgcat.Default()
	}
	return &boardRenderer{catalog: catalog, face: basicfont.Face7x13}
}

var (
	lightSquare     = color.RGBA{233, 207, 163, 255}
	darkSquare      = color.RGBA{187, 136, 96, 255}
	backgroundColor = color.RGBA{40, 44, 58, 255}
	selectedFill    = color.NRGBA{R: 255, G: 228, B: 120, A: 150}
	targetDot       = color.NRGBA{R: 20, G: 85, B: 30, A: 140}
	hudPanelColor   = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	hudTextPrimary  = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	coordinateColor = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

func (r *boardRenderer) RenderPNG(ctx context.Context, st chess.State, opts RenderOptions) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)
	origin := image.Pt(SideMargin, TopMargin)

	r.drawHUD(img, r.headerText(st, opts))
	drawSquares(img, origin)
	if opts.Selected != nil && opts.Selected.InBounds() {
		imagedraw.Draw(img, squareRect(*opts.Selected, opts.Flip, origin), image.NewUniform(selectedFill), image.Point{}, imagedraw.Over)
	}
	if err := drawPieces(img, st.Board, opts.Flip, origin); err != nil {
		return nil, err
	}
	drawTargets(img, st.Board, opts.Highlight, opts.Flip, origin)
	r.drawCoordinates(img, opts.Flip, origin)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *boardRenderer) headerText(st chess.State, opts RenderOptions) string {
	if h := strings.TrimSpace(opts.Header); h != "" {
		return h
	}
	if st.GameOver && st.Winner != nil {
		return r.catalog.Text("render.header_over", map[string]string{"Winner": titleCase(st.Winner.String())})
	}
	return r.catalog.Text("render.header_to_move", map[string]string{"Player": titleCase(st.CurrentPlayer.String())})
}

func (r *boardRenderer) drawHUD(img *image.RGBA, text string) {
	drawer := &font.Drawer{Dst: img, Face: r.face}
	top := (TopMargin - hudHeight) / 2
	width := drawer.MeasureString(text).Round() + hudPadding*2
	if width > boardPixels {
		width = boardPixels
	}
	left := SideMargin + (boardPixels-width)/2
	rect := image.Rect(left, top, left+width, top+hudHeight)
	drawRoundedPanel(img, rect, hudRadius, hudPanelColor)
	drawCenteredString(drawer, rect, truncateWithEllipsis(r.face, text, width-hudPadding*2), hudTextPrimary)
}

// displayCell maps a board square to its on-screen cell.
func displayCell(sq chess.Square, flip bool) (row, col int) {
	if flip {
		return chess.Size - 1 - sq.Row, chess.Size - 1 - sq.Col
	}
	return sq.Row, sq.Col
}

func squareRect(sq chess.Square, flip bool, origin image.Point) image.Rectangle {
	row, col := displayCell(sq, flip)
	x := origin.X + col*SquareSize
	y := origin.Y + row*SquareSize
	return image.Rect(x, y, x+SquareSize, y+SquareSize)
}

func squareColor(sq chess.Square) color.Color {
	// a8 (row 0, col 0) is light
	if (sq.Row+sq.Col)%2 == 0 {
		return lightSquare
	}
	return darkSquare
}

func drawSquares(img *image.RGBA, origin image.Point) {
	for row := 0; row < chess.Size; row++ {
		for col := 0; col < chess.Size; col++ {
			sq := chess.Sq(row, col)
			// colors follow the square, so flipping needs no special case
			imagedraw.Draw(img, squareRect(sq, false, origin), image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(img *image.RGBA, grid chess.Grid, flip bool, origin image.Point) error {
	for row := 0; row < chess.Size; row++ {
		for col := 0; col < chess.Size; col++ {
			v := grid[row][col]
			if v == nil {
				continue
			}
			token, err := renderPieceImage(v.Color, v.Type, SquareSize)
			if err != nil {
				return err
			}
			imagedraw.Draw(img, squareRect(chess.Sq(row, col), flip, origin), token, image.Point{}, imagedraw.Over)
		}
	}
	return nil
}

// drawTargets puts a dot on empty targets and a ring around capturable pieces.
func drawTargets(img *image.RGBA, grid chess.Grid, targets []chess.Square, flip bool, origin image.Point) {
	for _, sq := range targets {
		if !sq.InBounds() {
			continue
		}
		rect := squareRect(sq, flip, origin)
		center := image.Pt(rect.Min.X+SquareSize/2, rect.Min.Y+SquareSize/2)
		if grid[sq.Row][sq.Col] != nil {
			drawRing(img, center, SquareSize/2-2, 5, targetDot)
			continue
		}
		drawDisc(img, center, SquareSize/6, targetDot)
	}
}

func (r *boardRenderer) drawCoordinates(img *image.RGBA, flip bool, origin image.Point) {
	drawer := &font.Drawer{Dst: img, Face: r.face, Src: image.NewUniform(coordinateColor)}
	ascent := r.face.Metrics().Ascent.Ceil()
	for i := 0; i < chess.Size; i++ {
		sq := chess.Sq(i, i)
		label := sq.String() // file letter + rank digit of the diagonal square
		row, col := displayCell(sq, flip)
		rankY := origin.Y + row*SquareSize + SquareSize/2 + ascent/2
		fileX := origin.X + col*SquareSize + SquareSize/2
		drawCenteredText(drawer, label[1:], origin.X-SideMargin/2, rankY)
		drawCenteredText(drawer, label[:1], fileX, origin.Y+boardPixels+ascent+4)
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
