package corpus

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/verbum/core/errors"
)

// Format identifies an on-disk dataset format.
type Format string

// Supported dataset formats.
const (
	FormatJSON   Format = "json"
	FormatOSIS   Format = "osis"
	FormatSQLite Format = "sqlite"
)

// maxDatasetSize bounds how much decompressed data a loader will read (512 MB).
const maxDatasetSize = 512 << 20

// xzNewReader is a variable so tests can inject failures.
var xzNewReader = xz.NewReader

// DetectFormat infers the dataset format from a file name. A trailing ".xz"
// is ignored; compressed reports whether it was present.
func DetectFormat(path string) (format Format, compressed bool, err error) {
	name := strings.ToLower(filepath.Base(path))
	if strings.HasSuffix(name, ".xz") {
		compressed = true
		name = strings.TrimSuffix(name, ".xz")
	}

	switch filepath.Ext(name) {
	case ".json":
		return FormatJSON, compressed, nil
	case ".xml", ".osis":
		return FormatOSIS, compressed, nil
	case ".db", ".sqlite", ".sqlite3":
		if compressed {
			return "", false, errors.NewUnsupported("dataset format", "compressed SQLite databases must be decompressed first")
		}
		return FormatSQLite, false, nil
	}
	return "", false, errors.NewUnsupported("dataset format", filepath.Ext(name))
}

// Load reads a dataset from path, picking the decoder from the file name.
func Load(ctx context.Context, path string) (*Corpus, error) {
	format, compressed, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	if format == FormatSQLite {
		return LoadSQLite(ctx, path)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errors.NotFoundError{Resource: "dataset", ID: path, Err: err}
		}
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if compressed {
		xr, err := xzNewReader(f)
		if err != nil {
			return nil, errors.NewIO("decompress", path, err)
		}
		r = xr
	}

	c, err := Decode(r, format)
	if err != nil {
		var pe *errors.ParseError
		if errors.As(err, &pe) && pe.Path == "" {
			pe.Path = path
		}
		return nil, err
	}
	return c, nil
}

// Decode reads a JSON or OSIS dataset from r.
func Decode(r io.Reader, format Format) (*Corpus, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxDatasetSize+1))
	if err != nil {
		return nil, errors.NewIO("read", "", err)
	}
	if len(data) > maxDatasetSize {
		return nil, errors.NewValidation("dataset", "dataset exceeds maximum size")
	}

	switch format {
	case FormatJSON:
		return DecodeJSON(bytes.NewReader(data))
	case FormatOSIS:
		return DecodeOSIS(bytes.NewReader(data))
	}
	return nil, errors.NewUnsupported("dataset format", string(format))
}
