package imaging

import (
	"bytes"
	"image"

	"github.com/bep/imagemeta"
	"github.com/disintegration/gift"
)

// Orientation reads the EXIF Orientation tag (1..8). It returns 1 when the
// tag is absent or the metadata cannot be parsed.
func Orientation(data []byte) int {
	orientation := 1

	_, err := imagemeta.Decode(imagemeta.Options{
		R:       bytes.NewReader(data),
		Sources: imagemeta.EXIF,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			return ti.Tag == "Orientation"
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			if v, ok := toInt(ti.Value); ok && v >= 1 && v <= 8 {
				orientation = v
			}
			return nil
		},
	})
	if err != nil {
		return 1
	}
	return orientation
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case int64:
		return int(n), true
	case uint8:
		return int(n), true
	default:
		return 0, false
	}
}

// ApplyOrientation rotates or flips src so it displays upright.
func ApplyOrientation(src image.Image, orientation int) image.Image {
	var f gift.Filter
	switch orientation {
	case 2:
		f = gift.FlipHorizontal()
	case 3:
		f = gift.Rotate180()
	case 4:
		f = gift.FlipVertical()
	case 5:
		f = gift.Transpose()
	case 6:
		f = gift.Rotate270()
	case 7:
		f = gift.Transverse()
	case 8:
		f = gift.Rotate90()
	default:
		return src
	}
	return apply(src, f)
}
