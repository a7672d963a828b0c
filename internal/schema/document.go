package schema

import (
	"encoding/json"
	"time"
)

// Author is one document author.
type Author struct {
	Name        string `json:"name"`
	Institution string `json:"institution"`
}

// Keyword is one document keyword.
type Keyword struct {
	Name string `json:"name"`
}

// Document is the payload a preprocess task operates on. FileName is the
// object key within the source PDF bucket and may contain "/". Bucket, when
// set, overrides the default source bucket.
type Document struct {
	Title           string     `json:"title"`
	Authors         []Author   `json:"authors"`
	Keywords        []Keyword  `json:"keywords"`
	FileName        string     `json:"fileName"`
	DocType         string     `json:"docType"`
	Bucket          string     `json:"bucket,omitempty"`
	PublicationDate *time.Time `json:"publicationDate,omitempty"`
	Language        string     `json:"language,omitempty"`
}

// documentWire accepts both field-name and alias forms on ingest.
type documentWire struct {
	Title           string     `json:"title"`
	Authors         []Author   `json:"authors"`
	Keywords        []Keyword  `json:"keywords"`
	FileName        *string    `json:"fileName"`
	FileNameSnake   *string    `json:"file_name"`
	DocType         *string    `json:"docType"`
	DocTypeSnake    *string    `json:"doc_type"`
	Bucket          string     `json:"bucket"`
	PublicationDate *time.Time `json:"publicationDate"`
	Language        *string    `json:"language"`
}

// UnmarshalJSON decodes a document accepting camelCase and snake_case key
// forms. A missing language defaults to "unknown".
func (d *Document) UnmarshalJSON(data []byte) error {
	var w documentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	d.Title = w.Title
	d.Authors = w.Authors
	d.Keywords = w.Keywords
	d.FileName = firstOf(w.FileName, w.FileNameSnake)
	d.DocType = firstOf(w.DocType, w.DocTypeSnake)
	d.Bucket = w.Bucket
	d.PublicationDate = w.PublicationDate
	if w.Language != nil {
		d.Language = *w.Language
	} else {
		d.Language = "unknown"
	}
	return nil
}

func firstOf(values ...*string) string {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return ""
}

// Metadata derives the per-row metadata object stored alongside each chunk.
func (d *Document) Metadata() map[string]any {
	authors := make([]map[string]string, 0, len(d.Authors))
	for _, a := range d.Authors {
		authors = append(authors, map[string]string{
			"name":        a.Name,
			"institution": a.Institution,
		})
	}
	keywords := make([]map[string]string, 0, len(d.Keywords))
	for _, k := range d.Keywords {
		keywords = append(keywords, map[string]string{"name": k.Name})
	}

	var pubDate any
	if d.PublicationDate != nil {
		pubDate = d.PublicationDate.Format(time.RFC3339)
	}

	return map[string]any{
		"authors":         authors,
		"keywords":        keywords,
		"title":           d.Title,
		"publicationDate": pubDate,
		"language":        d.Language,
	}
}

// Stem returns the file name minus directory prefix and extension, used as
// the per-paper prefix in the preprocessed bucket.
func (d *Document) Stem() string {
	name := d.FileName
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '/' {
			name = name[i+1:]
			break
		}
	}
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[:i]
		}
		if name[i] == '/' {
			break
		}
	}
	return name
}
