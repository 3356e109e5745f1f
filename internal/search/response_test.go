package search

import (
	"errors"
	"testing"
)

const jsonpPage = `/*O_o*/
google.search.cse.api4321({
  "kind": "customsearch#search",
  "queries": {
    "request": [{"totalResults": "23", "startIndex": 1}]
  },
  "searchInformation": {"totalResults": "25"},
  "items": [
    {"title": "Login | Example", "link": "https://login.example.com/", "displayLink": "login.example.com"},
    {"title": "Admin", "link": "https://admin.example.com/x", "displayLink": "admin.example.com"},
    {"title": "", "link": "https://nolabel.example.com/", "displayLink": "nolabel.example.com"}
  ]
});`

func TestExtractJSONP(t *testing.T) {
	page, err := Extract([]byte(jsonpPage))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if page.TotalResults != "23" {
		t.Errorf("Expected totalResults from request block, got %q", page.TotalResults)
	}
	if n, ok := page.Total(); !ok || n != 23 {
		t.Errorf("Expected total 23, got %d (%v)", n, ok)
	}

	if len(page.Items) != 2 {
		t.Fatalf("Expected 2 complete items, got %d", len(page.Items))
	}
	if page.Items[0].DisplayLink != "login.example.com" || page.Items[0].Title != "Login | Example" {
		t.Errorf("Unexpected first item: %+v", page.Items[0])
	}
}

func TestExtractPlainJSON(t *testing.T) {
	page, err := Extract([]byte(`{"searchInformation":{"totalResults":"150"},"items":[]}`))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if n, _ := page.Total(); n != 150 {
		t.Errorf("Expected fallback total 150, got %d", n)
	}
	if len(page.Items) != 0 {
		t.Errorf("Expected no items, got %d", len(page.Items))
	}
}

func TestExtractMissingTotal(t *testing.T) {
	page, err := Extract([]byte(`google.search.cse.api1({"kind":"customsearch#search"});`))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if _, ok := page.Total(); ok {
		t.Error("Expected missing total")
	}

	page.TotalResults = "about 40"
	if _, ok := page.Total(); ok {
		t.Error("Expected unparseable total")
	}
}

func TestExtractMalformed(t *testing.T) {
	bodies := []string{
		"",
		"<html><body>502 Bad Gateway</body></html>",
		`google.search.cse.api1({"items": [`,
	}

	for _, body := range bodies {
		if _, err := Extract([]byte(body)); !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("Expected ErrMalformedResponse for %q, got %v", body, err)
		}
	}
}

func TestExtractErrorCode(t *testing.T) {
	tests := []struct {
		body string
		code int
		ok   bool
	}{
		{`google.search.cse.api77({"error":{"code":403,"message":"forbidden"}});`, 403, true},
		{`{"error": {"code": 429, "errors": []}}`, 429, true},
		{jsonpPage, 0, false},
		{"not json", 0, false},
	}

	for _, tt := range tests {
		code, ok := ExtractErrorCode([]byte(tt.body))
		if code != tt.code || ok != tt.ok {
			t.Errorf("ExtractErrorCode(%.30q) = %d, %v; want %d, %v", tt.body, code, ok, tt.code, tt.ok)
		}
	}
}
