package httpclient

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strings"

	"cis-portal/internal/domain"
)

// FilePart is one file attached to a multipart form.
type FilePart struct {
	Field string
	File  domain.File
}

// Form is a multipart/form-data body.
type Form struct {
	Fields map[string]string
	Files  []FilePart
}

// NewForm returns an empty form.
func NewForm() *Form {
	return &Form{Fields: map[string]string{}}
}

// Set adds a text field.
func (f *Form) Set(name, value string) *Form {
	if f.Fields == nil {
		f.Fields = map[string]string{}
	}
	f.Fields[name] = value
	return f
}

// Attach adds a file under field.
func (f *Form) Attach(field string, file domain.File) *Form {
	f.Files = append(f.Files, FilePart{Field: field, File: file})
	return f
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (f *Form) encode() (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	names := make([]string, 0, len(f.Fields))
	for k := range f.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if err := w.WriteField(k, f.Fields[k]); err != nil {
			return nil, "", err
		}
	}

	for _, part := range f.Files {
		ct := part.File.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(part.Field), quoteEscaper.Replace(part.File.Name)))
		h.Set("Content-Type", ct)
		pw, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := pw.Write(part.File.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}
