package main

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/coffersTech/seglog/internal/codec"
	"github.com/coffersTech/seglog/internal/model"
	"github.com/coffersTech/seglog/internal/storage"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"
)

func newInspectCmd() *cobra.Command {
	var kinds []string

	cmd := &cobra.Command{
		Use:   "inspect <segment>",
		Short: "Print a segment as CSV",
		Long: `Decodes a segment file (csv, tlv, bin or xlsx, optionally .gz or .zst
compressed) and prints it as CSV on stdout. Fixed-binary records carry no
type information; pass --kinds to decode them, otherwise only the header is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed := make([]model.Kind, 0, len(kinds))
			for _, k := range kinds {
				kind, err := model.ParseKind(strings.TrimSpace(k))
				if err != nil {
					return err
				}
				parsed = append(parsed, kind)
			}
			return inspectSegment(cmd.OutOrStdout(), args[0], parsed)
		},
	}
	cmd.Flags().StringSliceVar(&kinds, "kinds", nil, "field kinds of a fixed-binary segment (bool,int,float,string)")
	return cmd
}

// segmentFormat derives the format from the file name, ignoring a
// compression suffix.
func segmentFormat(path string) (codec.Format, error) {
	name := filepath.Base(path)
	for _, c := range []storage.Codec{storage.Gzip, storage.Zstd} {
		name = strings.TrimSuffix(name, c.Suffix())
	}
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	for _, f := range []codec.Format{codec.CSV, codec.FixedBinary, codec.TLV, codec.Tabular} {
		if f.Extension() == ext {
			return f, nil
		}
	}
	return 0, errors.Wrapf(codec.ErrUnsupportedFormat, "extension %q", ext)
}

func inspectSegment(out io.Writer, path string, kinds []model.Kind) error {
	format, err := segmentFormat(path)
	if err != nil {
		return err
	}

	rc, err := storage.OpenSegment(path)
	if err != nil {
		return err
	}
	defer rc.Close()

	w := bufio.NewWriter(out)
	switch format {
	case codec.CSV:
		_, err = io.Copy(w, rc)
	case codec.TLV:
		err = inspectTLV(w, rc)
	case codec.FixedBinary:
		err = inspectFixed(w, rc, kinds)
	case codec.Tabular:
		err = inspectSheet(w, rc)
	}
	if err != nil {
		return errors.Wrapf(err, "inspect %s", path)
	}
	return w.Flush()
}

func inspectTLV(w io.Writer, r io.Reader) error {
	tr, err := codec.NewTLVReader(r)
	if err != nil {
		return err
	}
	if err := writeLine(w, toValues(tr.Schema())); err != nil {
		return err
	}
	for {
		rec, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := writeLine(w, rec); err != nil {
			return err
		}
	}
}

func inspectFixed(w io.Writer, r io.Reader, kinds []model.Kind) error {
	br := bufio.NewReader(r)
	_, schema, err := codec.ReadBinaryHeader(br)
	if err != nil {
		return err
	}
	if err := writeLine(w, toValues(schema)); err != nil {
		return err
	}
	if len(kinds) == 0 {
		return nil
	}
	if len(kinds) != len(schema) {
		return errors.Wrapf(codec.ErrSchemaMismatch, "%d kinds for %d fields", len(kinds), len(schema))
	}

	body, err := io.ReadAll(br)
	if err != nil {
		return err
	}
	for len(body) > 0 {
		rec, n, err := codec.DecodeFixed(body, kinds)
		if err != nil {
			return err
		}
		if err := writeLine(w, rec); err != nil {
			return err
		}
		body = body[n:]
	}
	return nil
}

func inspectSheet(w io.Writer, r io.Reader) error {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.GetRows(storage.SheetName)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, strings.Join(row, ",")); err != nil {
			return err
		}
	}
	return nil
}

func toValues(schema model.Schema) []any {
	out := make([]any, len(schema))
	for i, name := range schema {
		out[i] = name
	}
	return out
}

func writeLine(w io.Writer, values []any) error {
	parts := make([]string, len(values))
	for i, v := range values {
		s, err := codec.FormatText(v)
		if err != nil {
			return err
		}
		parts[i] = s
	}
	_, err := fmt.Fprintln(w, strings.Join(parts, ","))
	return err
}
