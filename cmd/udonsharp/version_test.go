package main

import (
	"bytes"
	"strings"
	"testing"

	"udonsharp/internal/version"
)

func TestCollectVersionInfo(t *testing.T) {
	short := collectVersionInfo(false, false, false, false)
	if short.Version != version.Version || short.GitCommit != "" || short.Catalog != "" {
		t.Fatalf("plain info: got %+v", short)
	}
	full := collectVersionInfo(true, true, true, true)
	if full.GitCommit == "" || full.BuildDate == "" {
		t.Fatalf("build fields should fall back to unknown: %+v", full)
	}
	if len(full.Catalog) != 64 {
		t.Fatalf("catalog fingerprint: got %q", full.Catalog)
	}
	if strings.Join(full.Formats, ",") != "uasm,msgpack,cbor" {
		t.Fatalf("formats: got %v", full.Formats)
	}
}

func TestRenderVersion(t *testing.T) {
	var buf bytes.Buffer
	renderVersion(&buf, versionInfo{Version: "1.2.3", GitCommit: "abc123", Formats: []string{"uasm"}}, false)
	want := "udonsharp 1.2.3\ncommit:  abc123\nformats: uasm\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}
