package terminal

import (
	"bytes"
	"io"
	"os"
)

// pagingWriter holds a command's output until Flush.
type pagingWriter struct {
	w   io.Writer
	buf bytes.Buffer
}

func (pw *pagingWriter) Write(p []byte) (int, error) {
	return pw.buf.Write(p)
}

func (pw *pagingWriter) Flush() error {
	if pw.buf.Len() == 0 {
		return nil
	}
	_, err := pw.w.Write(pw.buf.Bytes())
	pw.buf.Reset()
	return err
}

func (pw *pagingWriter) Reset() {
	pw.buf.Reset()
}

// transcriptWriter copies terminal output to an optional transcript file.
type transcriptWriter struct {
	pw   *pagingWriter
	file *os.File
}

func newTranscriptWriter(w io.Writer) *transcriptWriter {
	return &transcriptWriter{pw: &pagingWriter{w: w}}
}

func (w *transcriptWriter) Write(p []byte) (int, error) {
	if w.file != nil {
		if _, err := w.file.Write(p); err != nil {
			return 0, err
		}
	}
	return w.pw.Write(p)
}

// Echo writes p to the transcript only.
func (w *transcriptWriter) Echo(s string) {
	if w.file != nil {
		_, _ = w.file.WriteString(s)
	}
}

func (w *transcriptWriter) Flush() {
	_ = w.pw.Flush()
}

func (w *transcriptWriter) OpenTranscript(name string, truncate bool) error {
	if err := w.CloseTranscript(); err != nil {
		return err
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if truncate {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	//nolint:gosec // G304: the transcript path comes from the user.
	f, err := os.OpenFile(name, flags, 0o600)
	if err != nil {
		return err
	}
	w.file = f
	return nil
}

func (w *transcriptWriter) CloseTranscript() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
