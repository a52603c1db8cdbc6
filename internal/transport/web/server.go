// Package web serves the client-side extension script. It is a collaborator
// of the bridge core, not part of the command protocol: one template, the
// default ws URL and block catalog injected, CORS and caching per config.
package web

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"

	"twbridge.dev/internal/sim/world"
)

//go:embed assets/twbridge.js
var scriptTemplate string

var wsDefaultPattern = regexp.MustCompile(`const WS_DEFAULT = "[^"]+";`)

const blockChoicesPlaceholder = "__TWB_BLOCK_CHOICES__"

type Options struct {
	Path             string
	CORSAllowOrigins []string
	CacheSeconds     int
	WSDefaultURL     string
}

type Server struct {
	log  *log.Logger
	opts Options

	script []byte
	etag   string
	cors   map[string]struct{}
}

func NewServer(opts Options, logger *log.Logger) (*Server, error) {
	if opts.Path == "" {
		opts.Path = "/tw/twbridge.js"
	}
	if opts.CacheSeconds < 0 {
		opts.CacheSeconds = 0
	}

	blocks, err := json.Marshal(world.BlockCatalog())
	if err != nil {
		return nil, fmt.Errorf("block catalog: %w", err)
	}
	body := scriptTemplate
	if opts.WSDefaultURL != "" {
		body = wsDefaultPattern.ReplaceAllString(body, fmt.Sprintf("const WS_DEFAULT = %q;", opts.WSDefaultURL))
	}
	if !strings.Contains(body, blockChoicesPlaceholder) {
		return nil, fmt.Errorf("script template missing %s placeholder", blockChoicesPlaceholder)
	}
	body = strings.Replace(body, blockChoicesPlaceholder, string(blocks), 1)

	sum := sha256.Sum256([]byte(body))
	s := &Server{
		log:    logger,
		opts:   opts,
		script: []byte(body),
		etag:   `"` + hex.EncodeToString(sum[:8]) + `"`,
		cors:   map[string]struct{}{},
	}
	for _, o := range opts.CORSAllowOrigins {
		if o != "" {
			s.cors[o] = struct{}{}
		}
	}
	return s, nil
}

func (s *Server) Path() string { return s.opts.Path }

// ScriptHandler serves the rendered extension script.
func (s *Server) ScriptHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.applyCORS(rw, r)
		rw.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		rw.Header().Set("ETag", s.etag)
		if s.opts.CacheSeconds > 0 {
			rw.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", s.opts.CacheSeconds))
		} else {
			rw.Header().Set("Cache-Control", "no-cache")
		}
		if match := r.Header.Get("If-None-Match"); match != "" && match == s.etag {
			rw.WriteHeader(http.StatusNotModified)
			return
		}
		if r.Method == http.MethodHead {
			return
		}
		_, _ = rw.Write(s.script)
	}
}

// RootHandler answers the bare root with a pointer to the script path.
func (s *Server) RootHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(rw, r)
			return
		}
		rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(rw, "twbridge: extension script at %s\n", s.opts.Path)
	}
}

func (s *Server) applyCORS(rw http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.cors) == 0 {
		return
	}
	if _, any := s.cors["*"]; any {
		rw.Header().Set("Access-Control-Allow-Origin", "*")
		return
	}
	if _, ok := s.cors[origin]; ok {
		rw.Header().Set("Access-Control-Allow-Origin", origin)
		rw.Header().Set("Vary", "Origin")
	}
}
