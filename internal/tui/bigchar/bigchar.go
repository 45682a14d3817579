// Package bigchar renders words as large block art using half-block characters.
package bigchar

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	faceSize  = 64
	padding   = 4
	threshold = uint8(40)
)

var (
	faceOnce   sync.Once
	loadedFace font.Face
)

// fontPaths are tried in order before falling back to the bundled Go font.
var fontPaths = []string{
	// macOS
	"/System/Library/Fonts/Supplemental/Arial Bold.ttf",
	"/System/Library/Fonts/Helvetica.ttc",
	"/Library/Fonts/Arial Unicode.ttf",
	// Linux
	"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans-Bold.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Bold.ttf",
	"/usr/share/fonts/liberation/LiberationSans-Bold.ttf",
	"/usr/share/fonts/noto/NotoSans-Bold.ttf",
	// Windows
	"C:\\Windows\\Fonts\\arialbd.ttf",
	"C:\\Windows\\Fonts\\segoeuib.ttf",
}

func face() font.Face {
	faceOnce.Do(func() {
		for _, path := range fontPaths {
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			if f := parseFace(data); f != nil {
				loadedFace = f
				return
			}
		}
		loadedFace = parseFace(gobold.TTF)
	})
	return loadedFace
}

// parseFace loads the first font of a collection or a single font file.
func parseFace(data []byte) font.Face {
	opts := &opentype.FaceOptions{Size: faceSize, DPI: 72, Hinting: font.HintingFull}

	if coll, err := opentype.ParseCollection(data); err == nil && coll.NumFonts() > 0 {
		if fnt, err := coll.Font(0); err == nil {
			if f, err := opentype.NewFace(fnt, opts); err == nil {
				return f
			}
		}
	}
	if fnt, err := opentype.Parse(data); err == nil {
		if f, err := opentype.NewFace(fnt, opts); err == nil {
			return f
		}
	}
	return nil
}

// RowsForFontSize maps a font size in points to a height in terminal rows.
func RowsForFontSize(size int) int {
	rows := size / 4
	if rows < 2 {
		rows = 2
	}
	return rows
}

// Render draws word rows cells tall, scaled to keep its proportions and
// clipped to maxCols. It returns "" when the word cannot be rendered.
func Render(word string, rows, maxCols int) string {
	f := face()
	if word == "" || f == nil || rows <= 0 {
		return ""
	}

	metrics := f.Metrics()
	ascent := metrics.Ascent.Ceil()
	height := ascent + metrics.Descent.Ceil() + padding*2
	width := font.MeasureString(f, word).Ceil() + padding*2

	src := image.NewGray(image.Rect(0, 0, width, height))
	draw.Draw(src, src.Bounds(), &image.Uniform{color.Black}, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  src,
		Src:  image.White,
		Face: f,
		Dot:  fixed.P(padding, padding+ascent),
	}
	d.DrawString(word)

	// Half blocks give two pixels per cell vertically, so a cell holds a
	// square pixel pair and the aspect ratio carries over directly.
	targetHeight := rows * 2
	cols := width * targetHeight / height
	if maxCols > 0 && cols > maxCols {
		cols = maxCols
	}
	if cols <= 0 {
		return ""
	}

	return imageToHalfBlocks(scaleDown(src, cols, targetHeight), cols, rows)
}

// scaleDown scales a grayscale image using area averaging.
func scaleDown(src *image.Gray, dstWidth, dstHeight int) *image.Gray {
	srcWidth := src.Bounds().Max.X
	srcHeight := src.Bounds().Max.Y

	dst := image.NewGray(image.Rect(0, 0, dstWidth, dstHeight))

	xRatio := float64(srcWidth) / float64(dstWidth)
	yRatio := float64(srcHeight) / float64(dstHeight)

	for dy := 0; dy < dstHeight; dy++ {
		for dx := 0; dx < dstWidth; dx++ {
			sx1 := int(float64(dx) * xRatio)
			sy1 := int(float64(dy) * yRatio)
			sx2 := max(int(float64(dx+1)*xRatio), sx1+1)
			sy2 := max(int(float64(dy+1)*yRatio), sy1+1)
			sx2 = min(sx2, srcWidth)
			sy2 = min(sy2, srcHeight)

			var sum, count int
			for sy := sy1; sy < sy2; sy++ {
				for sx := sx1; sx < sx2; sx++ {
					sum += int(src.GrayAt(sx, sy).Y)
					count++
				}
			}
			if count > 0 {
				dst.SetGray(dx, dy, color.Gray{Y: uint8(sum / count)})
			}
		}
	}

	return dst
}

// imageToHalfBlocks converts a grayscale image to half-block art.
func imageToHalfBlocks(img *image.Gray, cols, rows int) string {
	var b strings.Builder

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			topOn := brightness(img, col, row*2) > threshold
			bottomOn := brightness(img, col, row*2+1) > threshold

			switch {
			case topOn && bottomOn:
				b.WriteRune('█')
			case topOn:
				b.WriteRune('▀')
			case bottomOn:
				b.WriteRune('▄')
			default:
				b.WriteRune(' ')
			}
		}
		if row < rows-1 {
			b.WriteRune('\n')
		}
	}

	return b.String()
}

func brightness(img *image.Gray, x, y int) uint8 {
	if x < 0 || y < 0 || x >= img.Bounds().Max.X || y >= img.Bounds().Max.Y {
		return 0
	}
	return img.GrayAt(x, y).Y
}

// Available reports whether a font could be loaded.
func Available() bool {
	return face() != nil
}

var (
	cacheMu sync.Mutex
	cache   = make(map[string]string)
)

// Cached returns the cached rendering of word, rendering it on a miss.
func Cached(word string, rows, maxCols int) string {
	key := fmt.Sprintf("%s\x00%d\x00%d", word, rows, maxCols)

	cacheMu.Lock()
	defer cacheMu.Unlock()

	if s, ok := cache[key]; ok {
		return s
	}
	s := Render(word, rows, maxCols)
	cache[key] = s
	return s
}
