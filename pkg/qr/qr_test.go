package qr

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
)

func TestDataURL(t *testing.T) {
	url, err := DataURL("2@abc,def,ghi")
	if err != nil {
		t.Fatalf("DataURL: %v", err)
	}
	if !IsDataURL(url) {
		t.Fatalf("missing data url prefix: %q", url[:32])
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, dataURLPrefix))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte("\x89PNG")) {
		t.Fatal("payload is not a PNG")
	}
}

func TestDataURLEmpty(t *testing.T) {
	if _, err := DataURL("  "); err == nil {
		t.Fatal("expected error for empty code")
	}
}

func TestTerminal(t *testing.T) {
	var buf bytes.Buffer
	Terminal("hello", &buf)
	if buf.Len() == 0 {
		t.Fatal("nothing written")
	}
}
