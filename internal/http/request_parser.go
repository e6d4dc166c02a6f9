package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"pedidos/internal/services"
)

const (
	uploadField = "file"
	yearsNone   = "none"
)

var (
	errNoFile        = errors.New("no file uploaded")
	errUploadTooBig  = errors.New("upload too large")
	errBadYear       = errors.New("invalid year")
	allowedExtension = []string{".csv", ".txt", ".tsv", ".xlsx"}
)

// ParseSelection reads the year choice from query or form values.
// No year values selects every available year; years=none selects none.
// Values may repeat (year=2023&year=2024) or be comma separated.
func ParseSelection(values url.Values) (services.Selection, error) {
	if strings.EqualFold(strings.TrimSpace(values.Get("years")), yearsNone) {
		return services.OnlyYears(), nil
	}

	raw := lo.FlatMap(values["year"], func(v string, _ int) []string {
		return strings.Split(v, ",")
	})
	raw = lo.Filter(lo.Map(raw, func(v string, _ int) string { return strings.TrimSpace(v) }),
		func(v string, _ int) bool { return v != "" })
	if len(raw) == 0 {
		return services.AllYears(), nil
	}

	years := make([]int, 0, len(raw))
	for _, v := range raw {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1900 || y > 9999 {
			return services.Selection{}, fmt.Errorf("%w: %q", errBadYear, v)
		}
		years = append(years, y)
	}
	return services.OnlyYears(years...), nil
}

// readUpload reads the multipart file field, enforcing maxBytes on the whole body.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (services.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		if isTooLarge(err) {
			return services.Upload{}, errUploadTooBig
		}
		return services.Upload{}, fmt.Errorf("%w: %v", errNoFile, err)
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return services.Upload{}, errNoFile
	}
	defer file.Close()

	name := sanitizeFileName(header.Filename)
	if ext := strings.ToLower(filepath.Ext(name)); ext != "" && !lo.Contains(allowedExtension, ext) {
		return services.Upload{}, fmt.Errorf("%w: unsupported file type %s", errNoFile, ext)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		if isTooLarge(err) {
			return services.Upload{}, errUploadTooBig
		}
		return services.Upload{}, fmt.Errorf("read upload: %w", err)
	}
	return services.Upload{Name: name, Data: data}, nil
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || errors.Is(err, errUploadTooBig)
}

// sanitizeFileName keeps the base name and drops control characters.
func sanitizeFileName(s string) string {
	s = filepath.Base(strings.ReplaceAll(strings.TrimSpace(s), "\\", "/"))
	s = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
	if s == "." || s == "/" || s == "" {
		return "upload.csv"
	}
	return s
}
