package logging

import (
	"io"

	"github.com/zrepl/wsema/logger"
)

type WriterOutlet struct {
	formatter EntryFormatter
	writer    io.Writer
}

func NewWriterOutlet(formatter EntryFormatter, writer io.Writer) WriterOutlet {
	return WriterOutlet{formatter, writer}
}

func (h WriterOutlet) WriteEntry(entry logger.Entry) error {
	bytes, err := h.formatter.Format(&entry)
	if err != nil {
		return err
	}
	// single write so that lines of concurrent outlets on the same fd do not interleave
	_, err = h.writer.Write(append(bytes, '\n'))
	return err
}
