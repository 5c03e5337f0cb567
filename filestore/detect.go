package filestore

import (
	"os"
	"path/filepath"
	"strings"
)

// FileInfo is what a Detector reports about a local work file.
type FileInfo struct {
	// Proprietary is true when the file is already in a recognized
	// proprietary bilingual format and must keep its name as-is.
	Proprietary bool
	// Extension is the file's extension, lower-case, without the dot.
	Extension string
}

// A Detector inspects a local file to decide the target extension of
// its cached work copy.
type Detector interface {
	Detect(path string) (FileInfo, error)
}

// XliffDetector recognizes XLIFF work files by sniffing the head of the
// file. A file whose XLIFF root carries a known tool namespace is
// reported as proprietary.
type XliffDetector struct{}

var _ Detector = XliffDetector{}

// markers of tool-specific XLIFF dialects
var proprietaryMarkers = []string{
	"xmlns:sdl=",        // SDL Trados Studio
	"sdl.com/FileTypes", // SDL file type framework
	"xmlns:mq=",         // memoQ
	"xmlns:iws=",        // Idiom WorldServer
}

const sniffLen = 1024

// Detect reads the head of the file at path and reports its extension
// and whether it is a proprietary XLIFF dialect.
func (XliffDetector) Detect(path string) (FileInfo, error) {
	info := FileInfo{
		Extension: strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")),
	}
	f, err := os.Open(path)
	if err != nil {
		return info, err
	}
	defer f.Close()
	buf := make([]byte, sniffLen)
	n, _ := f.Read(buf)
	head := string(buf[:n])
	if strings.Contains(head, "<xliff") {
		for _, marker := range proprietaryMarkers {
			if strings.Contains(head, marker) {
				info.Proprietary = true
				break
			}
		}
	}
	return info, nil
}
