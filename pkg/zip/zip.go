package zip

import (
	"archive/zip"
	"bytes"
)

// File is one entry in an export archive.
type File struct {
	Name string
	Data []byte
}

// Archive packs the files into a zip held in memory. Export archives are
// small (a page of invoices at most), so no streaming writer is needed.
func Archive(files []File) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, f := range files {
		w, err := zw.Create(f.Name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(f.Data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
