package export

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/png"
	"io"
	"math"

	errs "github.com/matzehuels/mandel/pkg/errors"
)

// ErrNoResolution is returned when a file carries no resolution metadata.
var ErrNoResolution = errors.New("no resolution metadata")

const (
	pngSignature = "\x89PNG\r\n\x1a\n"

	// signature + IHDR chunk (length, type, 13 data bytes, CRC)
	pngHeaderLen = len(pngSignature) + 4 + 4 + 13 + 4

	// pHYs unit specifier for metres
	physUnitMetre = 1

	metresPerInch = 0.0254
)

// encodePNG writes img as PNG and inserts a pHYs chunk right after IHDR.
// image/png has no hook for ancillary chunks, so the encoded stream is
// spliced.
func encodePNG(w io.Writer, img image.Image, dpi int) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return errs.Wrap(errs.ErrCodeInternal, err, "encode png")
	}
	data := buf.Bytes()
	if len(data) < pngHeaderLen || string(data[12:16]) != "IHDR" {
		return errs.New(errs.ErrCodeInternal, "encode png: unexpected header")
	}

	ppm := dpiToPPM(dpi)
	phys := make([]byte, 9)
	binary.BigEndian.PutUint32(phys[0:4], ppm)
	binary.BigEndian.PutUint32(phys[4:8], ppm)
	phys[8] = physUnitMetre

	bw := bufio.NewWriter(w)
	bw.Write(data[:pngHeaderLen])
	writeChunk(bw, "pHYs", phys)
	bw.Write(data[pngHeaderLen:])
	if err := bw.Flush(); err != nil {
		return errs.Wrap(errs.ErrCodeIO, err, "write png")
	}
	return nil
}

// writeChunk emits a PNG chunk: length, type, data, CRC over type+data.
// Errors surface on the caller's Flush.
func writeChunk(w *bufio.Writer, typ string, data []byte) {
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[0:4], uint32(len(data)))
	copy(hdr[4:8], typ)

	crc := crc32.NewIEEE()
	crc.Write(hdr[4:8])
	crc.Write(data)

	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc.Sum32())

	w.Write(hdr[:])
	w.Write(data)
	w.Write(sum[:])
}

func dpiToPPM(dpi int) uint32 {
	return uint32(math.Round(float64(dpi) / metresPerInch))
}

func ppmToDPI(ppm uint32) int {
	return int(math.Round(float64(ppm) * metresPerInch))
}

// ReadPNGResolution returns the horizontal and vertical DPI recorded in a
// PNG stream's pHYs chunk. It returns ErrNoResolution if the chunk is
// absent or its unit is not metres.
func ReadPNGResolution(r io.Reader) (dpiX, dpiY int, err error) {
	br := bufio.NewReader(r)

	sig := make([]byte, len(pngSignature))
	if _, err := io.ReadFull(br, sig); err != nil || string(sig) != pngSignature {
		return 0, 0, errs.New(errs.ErrCodeInvalidArgument, "not a PNG stream")
	}

	var hdr [8]byte
	for {
		if _, err := io.ReadFull(br, hdr[:]); err != nil {
			return 0, 0, errs.Wrap(errs.ErrCodeInvalidArgument, err, "read png chunk")
		}
		n := binary.BigEndian.Uint32(hdr[0:4])
		typ := string(hdr[4:8])

		switch typ {
		case "pHYs":
			if n != 9 {
				return 0, 0, errs.New(errs.ErrCodeInvalidArgument, "pHYs chunk has length %d", n)
			}
			var phys [9]byte
			if _, err := io.ReadFull(br, phys[:]); err != nil {
				return 0, 0, errs.Wrap(errs.ErrCodeInvalidArgument, err, "read pHYs")
			}
			if phys[8] != physUnitMetre {
				return 0, 0, ErrNoResolution
			}
			return ppmToDPI(binary.BigEndian.Uint32(phys[0:4])),
				ppmToDPI(binary.BigEndian.Uint32(phys[4:8])), nil
		case "IDAT", "IEND":
			// pHYs must precede the image data.
			return 0, 0, ErrNoResolution
		}

		// Skip data and CRC.
		if _, err := br.Discard(int(n) + 4); err != nil {
			return 0, 0, errs.Wrap(errs.ErrCodeInvalidArgument, err, "skip %s chunk", typ)
		}
	}
}
