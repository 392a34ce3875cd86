package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/park285/chessmaster/internal/chess"
)

// Silhouettes on a 45x45 canvas. Only absolute M/L/C/Z path commands plus
// circle and rect elements, which oksvg handles reliably.
var pieceShapes = map[chess.PieceType]string{
	chess.Pawn: `<circle cx="22.5" cy="13" r="5.5"/>` +
		`<path d="M17,33 L28,33 L26,20 L19,20 Z"/>` +
		`<rect x="11" y="33" width="23" height="4"/>`,
	chess.Rook:   `<path d="M12,37 L33,37 L33,32 L30,32 L29,17 L32,17 L32,10 L28,10 L28,13 L25,13 L25,10 L20,10 L20,13 L17,13 L17,10 L13,10 L13,17 L16,17 L15,32 L12,32 Z"/>`,
	chess.Knight: `<path d="M13,37 L33,37 L31,29 L29,19 C28,13 24,9 19,8 L18,11 L14,14 L10,22 L13,25 L18,21 L20,23 L15,29 Z"/>`,
	chess.Bishop: `<circle cx="22.5" cy="8" r="2.5"/>` +
		`<path d="M22.5,11 C16,15 15,23 18,29 L27,29 C30,23 29,15 22.5,11 Z"/>` +
		`<rect x="16" y="29" width="13" height="3"/>` +
		`<rect x="12" y="33" width="21" height="4"/>`,
	chess.Queen: `<circle cx="10" cy="12" r="2.2"/><circle cx="19" cy="9" r="2.2"/>` +
		`<circle cx="26" cy="9" r="2.2"/><circle cx="35" cy="12" r="2.2"/>` +
		`<path d="M10,14 L14,29 L31,29 L35,14 L28,22 L26,11 L22.5,21 L19,11 L17,22 Z"/>` +
		`<rect x="12" y="31" width="21" height="6"/>`,
	chess.King: `<path d="M21,4 L24,4 L24,7 L27,7 L27,10 L24,10 L24,15 L21,15 L21,10 L18,10 L18,7 L21,7 Z"/>` +
		`<path d="M12,31 C9,23 16,16 22.5,17 C29,16 36,23 33,31 Z"/>` +
		`<rect x="12" y="32" width="21" height="5"/>`,
}

// pieceSVG returns a complete SVG document for one piece.
func pieceSVG(c chess.Color, t chess.PieceType) (string, error) {
	shape, ok := pieceShapes[t]
	if !ok {
		return "", fmt.Errorf("no shape for piece type %s", t)
	}
	fill, stroke := "#ffffff", "#1a1a1a"
	if c == chess.Black {
		fill, stroke = "#2b2b2b", "#000000"
	}
	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45" width="45" height="45">`)
	fmt.Fprintf(&b, `<g fill="%s" stroke="%s" stroke-width="1.5" stroke-linejoin="round">`, fill, stroke)
	b.WriteString(shape)
	b.WriteString(`</g></svg>`)
	return b.String(), nil
}

type pieceCacheKey struct {
	color chess.Color
	kind  chess.PieceType
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func renderPieceImage(c chess.Color, t chess.PieceType, size int) (image.Image, error) {
	key := pieceCacheKey{color: c, kind: t, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	doc, err := pieceSVG(c, t)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()
	return img, nil
}
