package server

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"
)

//go:embed static/*
var staticFiles embed.FS

var staticFS = mustSubFS(staticFiles, "static")

func mustSubFS(fsys fs.FS, dir string) fs.FS {
	subFS, err := fs.Sub(fsys, dir)
	if err != nil {
		panic("Failed to create sub filesystem: " + err.Error())
	}
	return subFS
}

// StaticFilesFS is the embedded front-end bundle rooted at static/.
func StaticFilesFS() fs.FS {
	return staticFS
}

// StreamFile serves an embedded file. Range and conditional requests are
// handled by http.ServeContent; embedded files carry no modification time.
func StreamFile(w http.ResponseWriter, r *http.Request, fileName string) error {
	fileName = path.Clean(fileName)
	if !fs.ValidPath(fileName) {
		return fmt.Errorf("invalid path %s", fileName)
	}
	data, err := fs.ReadFile(staticFS, fileName)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", fileName, err)
	}

	ctype := mime.TypeByExtension(strings.ToLower(path.Ext(fileName)))
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	if strings.HasPrefix(ctype, "text/") && !strings.Contains(strings.ToLower(ctype), "charset=") {
		ctype += "; charset=utf-8"
	}
	w.Header().Set("Content-Type", ctype)
	http.ServeContent(w, r, fileName, time.Time{}, bytes.NewReader(data))
	return nil
}
