package main

import (
	"bytes"
	"encoding/json"
	"io"

	"egress/internal/manifest"
)

func bytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}

func manifestToJSON(m manifest.Manifest) ([]byte, error) {
	return json.Marshal(m)
}
