package header

import (
	"fmt"
	"io"

	"github.com/astrogo/fitsio"

	"github.com/banshee-data/mosaic.offsets/internal/fsutil"
)

// ReadFITS reads the primary HDU header of a FITS stream into a Record.
// Commentary cards (COMMENT, HISTORY, blank) carry no values and are skipped.
func ReadFITS(r io.Reader) (Record, error) {
	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open FITS stream: %w", err)
	}
	defer f.Close()

	if len(f.HDUs()) == 0 {
		return nil, fmt.Errorf("FITS stream has no HDUs")
	}

	hdr := f.HDU(0).Header()
	rec := make(Record)
	for _, key := range hdr.Keys() {
		switch key {
		case "", "COMMENT", "HISTORY", "END":
			continue
		}
		card := hdr.Get(key)
		if card == nil {
			continue
		}
		rec[key] = card.Value
	}
	return rec, nil
}

// LoadFITS reads the primary header of each file in paths, in order.
func LoadFITS(fsys fsutil.FileSystem, paths []string) (Batch, error) {
	batch := make(Batch, 0, len(paths))
	for _, path := range paths {
		f, err := fsys.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		rec, err := ReadFITS(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		batch = append(batch, rec)
	}
	return batch, nil
}
