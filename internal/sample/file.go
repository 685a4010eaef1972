package sample

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// FileSource replays a previously captured I/Q sample file instead of a
// live device (spec section 4.10's second back-end, built here as a
// supplemented feature per SPEC_FULL.md section 5 -- the teacher never
// implemented it). Optionally loops the file indefinitely (--loop).
type FileSource struct {
	Path    string
	Loop    bool
	logger  logrus.FieldLogger
}

// NewFileSource constructs a FileSource. logger may be nil.
func NewFileSource(path string, loop bool, logger logrus.FieldLogger) *FileSource {
	if logger == nil {
		logger = logrus.New()
	}
	return &FileSource{Path: path, Loop: loop, logger: logger}
}

// Run implements Source: blocking reads of DataLen-sized chunks, feeding
// each into w.Fill, until ctx is cancelled or (absent --loop) EOF.
func (f *FileSource) Run(ctx context.Context, w *Window) error {
	chunk := make([]byte, w.dataLen)

	for {
		file, err := os.Open(f.Path)
		if err != nil {
			return fmt.Errorf("sample: open %s: %w", f.Path, err)
		}

		err = f.replay(ctx, file, w, chunk)
		file.Close()
		if err != nil {
			return err
		}

		if !f.Loop {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		f.logger.WithField("file", f.Path).Debug("Looping sample file")
	}
}

func (f *FileSource) replay(ctx context.Context, r io.Reader, w *Window, chunk []byte) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := io.ReadFull(r, chunk)
		switch err {
		case nil:
			w.Fill(chunk)
		case io.ErrUnexpectedEOF:
			if n > 0 {
				w.Fill(chunk[:n])
			}
			return nil
		case io.EOF:
			return nil
		default:
			return fmt.Errorf("sample: read %s: %w", f.Path, err)
		}
	}
}
