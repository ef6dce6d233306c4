package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/wikifetch"
	"gopkg.in/yaml.v3"
)

// BatchOptions controls how a batch file is formatted.
type BatchOptions struct {
	// Generated is the timestamp written in the batch header.
	Generated time.Time

	// Category is the category filter the batch was built with, if any.
	Category string

	// Starts and Ends select the article section included for each entry.
	// They default to the career headings.
	Starts []string
	Ends   []string
}

// batchFrontmatter is the YAML header written before each entry.
type batchFrontmatter struct {
	Index    int               `yaml:"index"`
	Key      string            `yaml:"key"`
	Name     string            `yaml:"name"`
	Title    string            `yaml:"title"`
	URL      string            `yaml:"url"`
	Fields   map[string]string `yaml:"fields,omitempty"`
	Sections []string          `yaml:"sections,omitempty"`
}

const batchRule = "================================================================================"

// FormatBatch renders found results as a single text batch: a header
// followed, for each result, by a YAML frontmatter block and the extracted
// article section.
func FormatBatch(results []*wikifetch.FetchResult, opts BatchOptions) (string, error) {
	starts, ends := opts.Starts, opts.Ends
	if len(starts) == 0 {
		starts = wikifetch.CareerHeadings
	}
	if len(ends) == 0 {
		ends = wikifetch.CareerEndHeadings
	}
	category := opts.Category
	if category == "" {
		category = "none"
	}

	var b strings.Builder
	b.WriteString("# Article batch\n")
	fmt.Fprintf(&b, "# Generated: %s\n", opts.Generated.Format(time.RFC3339))
	fmt.Fprintf(&b, "# Total articles: %d\n", len(results))
	fmt.Fprintf(&b, "# Category filter: %s\n", category)
	b.WriteString("\n" + batchRule + "\n\n")

	for i, r := range results {
		if r.Status != wikifetch.StatusFound || r.Document == nil {
			return "", wikifetch.Errorf(wikifetch.EINVALID, "result %q has no article", r.Key)
		}

		header, err := yaml.Marshal(batchFrontmatter{
			Index:    i + 1,
			Key:      r.Key,
			Name:     r.DisplayName,
			Title:    r.Document.Title,
			URL:      r.Document.URL,
			Fields:   r.CarriedFields,
			Sections: wikifetch.TopHeadings(r.Document.Body),
		})
		if err != nil {
			return "", fmt.Errorf("encode frontmatter for %q: %w", r.Key, err)
		}

		b.WriteString("---\n")
		b.Write(header)
		b.WriteString("---\n\n")
		b.WriteString(wikifetch.ExtractSection(r.Document.Body, starts, ends))
		b.WriteString("\n\n" + batchRule + "\n\n")
	}

	return b.String(), nil
}

// WriteBatchFile formats results and writes them atomically to path,
// creating parent directories as needed.
func WriteBatchFile(path string, results []*wikifetch.FetchResult, opts BatchOptions) error {
	content, err := FormatBatch(results, opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create batch directory: %w", err)
	}
	return writeFileAtomic(path, []byte(content), os.Rename)
}
