package storage

import (
	"github.com/coffersTech/seglog/internal/codec"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet every tabular segment writes to.
const SheetName = "log"

// sheetWriter buffers rows in a workbook stream and only materializes the
// file on Close. Rows buffered since the last Close are lost on a crash.
type sheetWriter struct {
	file    *excelize.File
	stream  *excelize.StreamWriter
	path    string
	maxRows int
	rows    int
}

func openSheetWriter(path string, header []any, maxRows int) (*sheetWriter, error) {
	if maxRows <= 0 || maxRows > excelize.TotalRows {
		maxRows = excelize.TotalRows
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		f.Close()
		return nil, err
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		f.Close()
		return nil, err
	}

	w := &sheetWriter{file: f, stream: sw, path: path, maxRows: maxRows}
	if len(header) > 0 {
		if err := w.Append(codec.Entry{Row: header}); err != nil {
			f.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *sheetWriter) Path() string { return w.path }

func (w *sheetWriter) Written() int64 { return int64(w.rows) }

func (w *sheetWriter) Fits(codec.Entry) bool {
	return w.rows < w.maxRows
}

func (w *sheetWriter) Append(e codec.Entry) error {
	cell, err := excelize.CoordinatesToCellName(1, w.rows+1)
	if err != nil {
		return err
	}

	row := make([]interface{}, len(e.Row))
	for i, v := range e.Row {
		if b, ok := v.([]byte); ok {
			row[i] = string(b)
			continue
		}
		row[i] = v
	}
	if err := w.stream.SetRow(cell, row); err != nil {
		return errors.Wrapf(err, "append row %d", w.rows+1)
	}
	w.rows++
	return nil
}

// Flush is a no-op: a workbook can only be written out as a whole.
func (w *sheetWriter) Flush() error {
	return nil
}

func (w *sheetWriter) Close() error {
	defer w.file.Close()

	if err := w.stream.Flush(); err != nil {
		return errors.Wrap(err, "flush sheet stream")
	}
	if err := w.file.SaveAs(w.path); err != nil {
		return errors.Wrapf(err, "save workbook %s", w.path)
	}
	return nil
}
