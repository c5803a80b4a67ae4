package document

import (
	"os"

	"codeberg.org/mutker/hostwatch/internal/errors"
	"github.com/google/renameio/v2"
)

const defaultFilePerm os.FileMode = 0o644

// FileWriter writes encoded documents to disk. Each write goes to a
// temporary file in the target directory that is then renamed into place,
// so readers of path never see a partially written document.
type FileWriter struct {
	enc Encoder
}

func NewFileWriter(enc Encoder) *FileWriter {
	return &FileWriter{enc: enc}
}

func (w *FileWriter) Format() Format {
	return w.enc.Format()
}

func (w *FileWriter) Write(path string, doc Document) error {
	errFactory := errors.New()

	data, err := w.enc.Encode(doc)
	if err != nil {
		return errFactory.Wrap(errors.ErrInvalidFormat, err)
	}

	if err := renameio.WriteFile(path, data, defaultFilePerm); err != nil {
		return errFactory.WithData(errors.ErrOperationFailed, struct {
			Path  string
			Error string
		}{
			Path:  path,
			Error: err.Error(),
		})
	}

	return nil
}
