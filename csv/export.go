package csv

import (
	"encoding/csv"
	"io"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/fwojciec/wikifetch"
)

// ExportResults writes one row per result: key, display name, every carried
// field (union of names, sorted), the result file name and the article
// length in characters.
func ExportResults(w io.Writer, results []*wikifetch.FetchResult, ext string) error {
	names := make(map[string]bool)
	for _, r := range results {
		for k := range r.CarriedFields {
			names[k] = true
		}
	}
	fields := make([]string, 0, len(names))
	for k := range names {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	cw := csv.NewWriter(w)

	header := append([]string{"key", "display_name"}, fields...)
	header = append(header, "article_file", "article_length")
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range results {
		row := make([]string, 0, len(header))
		row = append(row, r.Key, r.DisplayName)
		for _, f := range fields {
			row = append(row, r.Field(f))
		}
		row = append(row, filepath.Base(r.Key+ext), strconv.Itoa(r.BodyLength()))
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
