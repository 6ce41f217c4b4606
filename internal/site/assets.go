package site

import (
	"embed"
	"fmt"
	"os"
)

//go:embed assets/*
var embeddedAssets embed.FS

const (
	assetStyle  = "style.css"
	assetScript = "script.js"
	assetLayout = "layout.html"
	assetIndex  = "index.html"

	indexFile = "index.html"
)

// staticAssets are copied verbatim into the output root.
var staticAssets = []string{assetStyle, assetScript}

func embeddedAsset(name string) ([]byte, error) {
	data, err := embeddedAssets.ReadFile("assets/" + name)
	if err != nil {
		return nil, fmt.Errorf("embedded asset %s: %w", name, err)
	}
	return data, nil
}

// assetSource returns the file at override when set, the embedded asset
// otherwise.
func assetSource(name, override string) (data []byte, origin string, err error) {
	if override == "" {
		data, err = embeddedAsset(name)
		return data, "embedded", err
	}
	data, err = os.ReadFile(override)
	if err != nil {
		return nil, override, fmt.Errorf("read %s: %w", override, err)
	}
	return data, override, nil
}
