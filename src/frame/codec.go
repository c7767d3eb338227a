// Package frame holds the encoded screen image exchanged between capture,
// the differencer, the handoff channel and the model.
package frame

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"image"
)

// Frame is one encoded PNG image. A nil or empty Frame means no frame was
// available and must not be acted on.
type Frame []byte

// Empty reports whether f carries no image.
func (f Frame) Empty() bool { return len(f) == 0 }

// Base64 returns the standard base64 form used on the wire.
func (f Frame) Base64() string {
	if f.Empty() {
		return ""
	}
	return base64.StdEncoding.EncodeToString(f)
}

// FromBase64 decodes a wire frame. Invalid input yields an empty Frame.
func FromBase64(s string) Frame {
	if s == "" {
		return nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil
	}
	return b
}

// ChannelOrder names the byte layout of a packed 4-byte pixel.
type ChannelOrder int

const (
	BGRA ChannelOrder = iota
	RGBA
)

const compressionLevel = 6

var signature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Encode writes a packed row-major buffer of w*h 4-byte pixels as a PNG with
// one IDAT chunk. Channels are reordered to RGBA and alpha is forced to 255.
func Encode(pix []byte, w, h int, order ChannelOrder) (Frame, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", w, h)
	}
	if len(pix) < w*h*4 {
		return nil, fmt.Errorf("pixel buffer too short: %d bytes for %dx%d", len(pix), w, h)
	}

	stride := w * 4
	raw := make([]byte, 0, h*(stride+1))
	for y := 0; y < h; y++ {
		raw = append(raw, 0)
		row := pix[y*stride : (y+1)*stride]
		for x := 0; x < stride; x += 4 {
			switch order {
			case BGRA:
				raw = append(raw, row[x+2], row[x+1], row[x], 0xff)
			case RGBA:
				raw = append(raw, row[x], row[x+1], row[x+2], 0xff)
			default:
				return nil, fmt.Errorf("unknown channel order %d", order)
			}
		}
	}

	var idat bytes.Buffer
	zw, err := zlib.NewWriterLevel(&idat, compressionLevel)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], uint32(w))
	binary.BigEndian.PutUint32(ihdr[4:], uint32(h))
	ihdr[8] = 8  // bit depth
	ihdr[9] = 6  // truecolor with alpha
	ihdr[10] = 0 // deflate
	ihdr[11] = 0 // adaptive filtering
	ihdr[12] = 0 // no interlace

	var out bytes.Buffer
	out.Grow(len(signature) + idat.Len() + 3*12 + len(ihdr))
	out.Write(signature)
	writeChunk(&out, "IHDR", ihdr)
	writeChunk(&out, "IDAT", idat.Bytes())
	writeChunk(&out, "IEND", nil)
	return out.Bytes(), nil
}

// EncodeImage encodes an RGBA image, honoring its stride and bounds.
func EncodeImage(img *image.RGBA) (Frame, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if img.Stride == w*4 && b.Min == (image.Point{}) {
		return Encode(img.Pix, w, h, RGBA)
	}
	packed := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(packed[y*w*4:(y+1)*w*4], img.Pix[off:off+w*4])
	}
	return Encode(packed, w, h, RGBA)
}

func writeChunk(buf *bytes.Buffer, typ string, data []byte) {
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[:4], uint32(len(data)))
	copy(hdr[4:], typ)
	buf.Write(hdr[:])
	buf.Write(data)

	crc := crc32.NewIEEE()
	crc.Write(hdr[4:])
	crc.Write(data)
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc.Sum32())
	buf.Write(sum[:])
}
