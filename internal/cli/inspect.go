package cli

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	errs "github.com/matzehuels/mandel/pkg/errors"
	"github.com/matzehuels/mandel/pkg/export"
)

// fileInfo describes a rendered image file.
type fileInfo struct {
	Format string
	Width  int
	Height int
	DPIX   int // zero when the file carries no resolution
	DPIY   int
	Bytes  int64
}

// inspectCommand prints the size and resolution of an image file.
func (c *CLI) inspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "Show pixel size and DPI of an image file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := inspectFile(args[0])
			if err != nil {
				return err
			}
			printKeyValue(c.Out, "File", args[0])
			printKeyValue(c.Out, "Format", info.Format)
			printKeyValue(c.Out, "Size", fmt.Sprintf("%d x %d px", info.Width, info.Height))
			printKeyValue(c.Out, "Resolution", formatDPI(info))
			printKeyValue(c.Out, "Bytes", formatBytes(int(info.Bytes)))
			return nil
		},
	}
}

// inspectFile decodes the header and resolution metadata of path.
func inspectFile(path string) (*fileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeIO, err, "open %s", path)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeIO, err, "stat %s", path)
	}

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeUnsupported, err, "decode %s", path)
	}
	info := &fileInfo{Format: format, Width: cfg.Width, Height: cfg.Height, Bytes: st.Size()}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, errs.Wrap(errs.ErrCodeIO, err, "seek %s", path)
	}
	switch format {
	case export.FormatPNG:
		info.DPIX, info.DPIY, err = export.ReadPNGResolution(f)
	case export.FormatTIFF:
		info.DPIX, info.DPIY, err = export.ReadTIFFResolution(f)
	default:
		err = export.ErrNoResolution
	}
	if err != nil && !errors.Is(err, export.ErrNoResolution) {
		return nil, errs.Wrap(errs.ErrCodeIO, err, "read resolution of %s", path)
	}
	return info, nil
}

func formatDPI(info *fileInfo) string {
	if info.DPIX == 0 {
		return "none"
	}
	if info.DPIX == info.DPIY {
		return strconv.Itoa(info.DPIX) + " dpi"
	}
	return fmt.Sprintf("%d x %d dpi", info.DPIX, info.DPIY)
}
