package export

import (
	"bytes"
	"encoding/binary"
	"image"
	"io"
	"math"

	"golang.org/x/image/tiff"

	errs "github.com/matzehuels/mandel/pkg/errors"
)

// TIFF tags and field types used for resolution metadata.
const (
	tagXResolution    = 282
	tagYResolution    = 283
	tagResolutionUnit = 296

	typeShort    = 3
	typeRational = 5

	resUnitInch       = 2
	resUnitCentimetre = 3
)

// encodeTIFF writes img as deflate-compressed TIFF with the requested DPI.
// x/image/tiff always records 72 dpi, so the resolution entries of the
// encoded IFD are rewritten in place.
func encodeTIFF(w io.Writer, img image.Image, dpi int) error {
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return errs.Wrap(errs.ErrCodeInternal, err, "encode tiff")
	}
	data := buf.Bytes()
	if err := setTIFFResolution(data, dpi); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return errs.Wrap(errs.ErrCodeIO, err, "write tiff")
	}
	return nil
}

// ifdEntry is a decoded 12-byte IFD entry. off is the entry's position in
// the file; value holds the inline value or the offset of out-of-line data.
type ifdEntry struct {
	off   int
	tag   uint16
	typ   uint16
	count uint32
	value uint32
}

// firstIFD decodes the header and the entries of the first IFD.
func firstIFD(data []byte) (binary.ByteOrder, []ifdEntry, error) {
	if len(data) < 8 {
		return nil, nil, errs.New(errs.ErrCodeInvalidArgument, "tiff: short header")
	}
	var bo binary.ByteOrder
	switch string(data[0:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return nil, nil, errs.New(errs.ErrCodeInvalidArgument, "tiff: bad byte order")
	}
	if bo.Uint16(data[2:4]) != 42 {
		return nil, nil, errs.New(errs.ErrCodeInvalidArgument, "tiff: bad magic")
	}

	off := int(bo.Uint32(data[4:8]))
	if off+2 > len(data) {
		return nil, nil, errs.New(errs.ErrCodeInvalidArgument, "tiff: IFD out of range")
	}
	n := int(bo.Uint16(data[off : off+2]))
	if off+2+12*n > len(data) {
		return nil, nil, errs.New(errs.ErrCodeInvalidArgument, "tiff: IFD truncated")
	}

	entries := make([]ifdEntry, n)
	for i := range entries {
		p := off + 2 + 12*i
		entries[i] = ifdEntry{
			off:   p,
			tag:   bo.Uint16(data[p : p+2]),
			typ:   bo.Uint16(data[p+2 : p+4]),
			count: bo.Uint32(data[p+4 : p+8]),
			value: bo.Uint32(data[p+8 : p+12]),
		}
	}
	return bo, entries, nil
}

// setTIFFResolution rewrites XResolution, YResolution and ResolutionUnit of
// the first IFD to dpi pixels per inch.
func setTIFFResolution(data []byte, dpi int) error {
	bo, entries, err := firstIFD(data)
	if err != nil {
		return errs.Wrap(errs.ErrCodeInternal, err, "patch tiff resolution")
	}

	found := 0
	for _, e := range entries {
		switch e.tag {
		case tagXResolution, tagYResolution:
			if e.typ != typeRational || e.count != 1 || int(e.value)+8 > len(data) {
				return errs.New(errs.ErrCodeInternal, "tiff: unexpected resolution entry for tag %d", e.tag)
			}
			bo.PutUint32(data[e.value:e.value+4], uint32(dpi))
			bo.PutUint32(data[e.value+4:e.value+8], 1)
			found++
		case tagResolutionUnit:
			if e.typ != typeShort {
				return errs.New(errs.ErrCodeInternal, "tiff: unexpected resolution unit entry")
			}
			bo.PutUint16(data[e.off+8:e.off+10], resUnitInch)
			found++
		}
	}
	if found != 3 {
		return errs.New(errs.ErrCodeInternal, "tiff: resolution entries missing")
	}
	return nil
}

// ReadTIFFResolution returns the horizontal and vertical DPI of the first
// image in a TIFF stream. It returns ErrNoResolution if the tags are absent
// or carry no absolute unit.
func ReadTIFFResolution(r io.Reader) (dpiX, dpiY int, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, 0, errs.Wrap(errs.ErrCodeIO, err, "read tiff")
	}
	bo, entries, err := firstIFD(data)
	if err != nil {
		return 0, 0, err
	}

	var x, y float64
	unit := uint16(resUnitInch) // TIFF default
	for _, e := range entries {
		switch e.tag {
		case tagXResolution, tagYResolution:
			if e.typ != typeRational || int(e.value)+8 > len(data) {
				return 0, 0, errs.New(errs.ErrCodeInvalidArgument, "tiff: malformed resolution tag")
			}
			num := bo.Uint32(data[e.value : e.value+4])
			den := bo.Uint32(data[e.value+4 : e.value+8])
			if den == 0 {
				return 0, 0, ErrNoResolution
			}
			v := float64(num) / float64(den)
			if e.tag == tagXResolution {
				x = v
			} else {
				y = v
			}
		case tagResolutionUnit:
			unit = bo.Uint16(data[e.off+8 : e.off+10])
		}
	}
	if x == 0 || y == 0 {
		return 0, 0, ErrNoResolution
	}

	switch unit {
	case resUnitInch:
	case resUnitCentimetre:
		x, y = x*2.54, y*2.54
	default:
		return 0, 0, ErrNoResolution
	}
	return int(math.Round(x)), int(math.Round(y)), nil
}
