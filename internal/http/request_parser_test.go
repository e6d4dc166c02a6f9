package http

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		all     bool
		want    []int
		wantErr bool
	}{
		{name: "absent selects all", query: "", all: true},
		{name: "blank value selects all", query: "year=", all: true},
		{name: "explicit none", query: "years=none", want: []int{}},
		{name: "none wins over years", query: "years=NONE&year=2024", want: []int{}},
		{name: "repeated", query: "year=2023&year=2024", want: []int{2023, 2024}},
		{name: "comma separated", query: "year=2022,%202024", want: []int{2022, 2024}},
		{name: "garbage", query: "year=abc", wantErr: true},
		{name: "out of range", query: "year=12", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatal(err)
			}
			sel, err := ParseSelection(values)
			if tt.wantErr {
				if !errors.Is(err, errBadYear) {
					t.Fatalf("expected errBadYear, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.all {
				if sel.Years != nil {
					t.Fatalf("expected all years, got %v", *sel.Years)
				}
				return
			}
			if sel.Years == nil {
				t.Fatalf("expected explicit selection")
			}
			got := *sel.Years
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func multipartRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(data)
	}
	mw.Close()
	r := httptest.NewRequest(http.MethodPost, "/reports", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestReadUpload(t *testing.T) {
	r := multipartRequest(t, "file", "../../pedidos.csv", []byte("restaurant,amount\n"))
	up, err := readUpload(httptest.NewRecorder(), r, 1<<20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if up.Name != "pedidos.csv" || string(up.Data) != "restaurant,amount\n" {
		t.Fatalf("unexpected upload %+v", up)
	}

	r = multipartRequest(t, "other", "x.csv", []byte("a"))
	if _, err := readUpload(httptest.NewRecorder(), r, 1<<20); !errors.Is(err, errNoFile) {
		t.Fatalf("expected errNoFile, got %v", err)
	}

	r = multipartRequest(t, "file", "photo.png", []byte("a"))
	if _, err := readUpload(httptest.NewRecorder(), r, 1<<20); !errors.Is(err, errNoFile) {
		t.Fatalf("expected unsupported type error, got %v", err)
	}

	r = multipartRequest(t, "file", "big.csv", bytes.Repeat([]byte("x"), 4096))
	if _, err := readUpload(httptest.NewRecorder(), r, 1024); !errors.Is(err, errUploadTooBig) {
		t.Fatalf("expected errUploadTooBig, got %v", err)
	}
}

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"pedidos.csv":           "pedidos.csv",
		`C:\Users\me\data.xlsx`: "data.xlsx",
		"a\x00b.csv":            "ab.csv",
		"":                      "upload.csv",
	}
	for in, want := range cases {
		if got := sanitizeFileName(in); got != want {
			t.Errorf("sanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}
