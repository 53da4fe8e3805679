package input

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/kris-hansen/scrollystory/utils/config"
	"github.com/kris-hansen/scrollystory/utils/fileutil"
)

// StdinPath selects standard input as the source
const StdinPath = "-"

// InputType represents where an input was read from
type InputType int

const (
	FileInput InputType = iota
	StdinInput
	URLInput
)

func (t InputType) String() string {
	switch t {
	case FileInput:
		return "file"
	case StdinInput:
		return "stdin"
	case URLInput:
		return "url"
	default:
		return "unknown"
	}
}

// Input is the text of one dataset or document
type Input struct {
	Path     string
	Name     string
	Type     InputType
	Contents []byte
}

// Text returns the contents as a string
func (i *Input) Text() string {
	return string(i.Contents)
}

// Handler loads inputs from a file path, standard input or a URL
type Handler struct {
	stdin   io.Reader
	fetcher *Fetcher
}

// NewHandler creates a handler reading "-" from os.Stdin
func NewHandler() *Handler {
	return &Handler{
		stdin:   os.Stdin,
		fetcher: NewFetcher(),
	}
}

// WithStdin replaces the reader used for "-"
func (h *Handler) WithStdin(r io.Reader) *Handler {
	h.stdin = r
	return h
}

// IsURL reports whether path is an http(s) URL
func IsURL(p string) bool {
	u, err := url.Parse(p)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Load reads the input named by path
func (h *Handler) Load(p string) (*Input, error) {
	switch {
	case p == "":
		return nil, fmt.Errorf("path cannot be empty")
	case p == StdinPath:
		return h.loadStdin()
	case IsURL(p):
		return h.loadURL(p)
	default:
		return h.loadFile(p)
	}
}

func (h *Handler) loadFile(p string) (*Input, error) {
	config.DebugLog("Reading input file: %s", p)
	contents, err := fileutil.SafeReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", p, err)
	}
	return &Input{Path: p, Name: filepath.Base(p), Type: FileInput, Contents: contents}, nil
}

func (h *Handler) loadStdin() (*Input, error) {
	config.DebugLog("Reading input from stdin")
	contents, err := fileutil.SafeReadAll(h.stdin, fileutil.MaxFileSize)
	if err != nil {
		return nil, err
	}
	return &Input{Path: StdinPath, Name: "stdin.csv", Type: StdinInput, Contents: contents}, nil
}

func (h *Handler) loadURL(p string) (*Input, error) {
	contents, err := h.fetcher.Fetch(p)
	if err != nil {
		return nil, err
	}
	return &Input{Path: p, Name: nameFromURL(p), Type: URLInput, Contents: contents}, nil
}

func nameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "data.csv"
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || strings.TrimSpace(base) == "" {
		return "data.csv"
	}
	return base
}
