package codec

import "github.com/coffersTech/seglog/internal/model"

// tabularEncoder hands values to the sheet writer unchanged, after checking
// that each one is a supported scalar.
type tabularEncoder struct{}

func (tabularEncoder) sealed() {}

func (tabularEncoder) Format() Format { return Tabular }

func (tabularEncoder) Header(schema model.Schema) (Entry, error) {
	if len(schema) == 0 {
		return Entry{}, nil
	}
	row := make([]any, len(schema))
	for i, name := range schema {
		row[i] = name
	}
	return Entry{Row: row}, nil
}

func (tabularEncoder) Encode(schema model.Schema, rec model.Record) (Entry, error) {
	if err := rejectNull(schema, rec); err != nil {
		return Entry{}, err
	}
	row := make([]any, len(rec))
	for i, v := range rec {
		nv, _, err := model.Normalize(v)
		if err != nil {
			return Entry{}, err
		}
		row[i] = nv
	}
	return Entry{Row: row}, nil
}
