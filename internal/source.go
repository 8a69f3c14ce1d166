package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/telavant/tmfbridge"
	"go.uber.org/zap"
)

const schemaFetchTimeout = 10 * time.Second

// SchemaSource resolves the native OpenAPI document from ranked origins:
// explicit local path, primary URL, legacy URL, bundled fallback.
type SchemaSource struct {
	cfg    *tmfbridge.Config
	client *http.Client
}

// NewSchemaSource creates a source using the given HTTP client. A nil
// client gets a default with a bounded fetch timeout.
func NewSchemaSource(cfg *tmfbridge.Config, client *http.Client) *SchemaSource {
	if client == nil {
		client = &http.Client{Timeout: schemaFetchTimeout}
	}
	return &SchemaSource{cfg: cfg, client: client}
}

// Resolve runs the ranked resolution. An explicit path that is set but
// unreadable or invalid fails the whole step; URL failures fall through.
// The bundled document is the resolution floor.
func (s *SchemaSource) Resolve(ctx context.Context) (*tmfbridge.SchemaSnapshot, error) {
	if s.cfg.SchemaPath != "" {
		raw, err := os.ReadFile(s.cfg.SchemaPath)
		if err != nil {
			return nil, tmfbridge.NewSchemaLoadError(
				fmt.Sprintf("read schema file %s", s.cfg.SchemaPath), err)
		}
		snap, err := buildSnapshot(raw, tmfbridge.OriginPath, nil)
		if err != nil {
			return nil, tmfbridge.NewSchemaLoadError(
				fmt.Sprintf("parse schema file %s", s.cfg.SchemaPath), err)
		}
		return snap, nil
	}

	if url, origin := s.remoteOrigin(); url != "" {
		if snap := s.fetch(ctx, url, origin, nil); snap != nil {
			return snap, nil
		}
	}

	snap, err := buildSnapshot(bundledSchema, tmfbridge.OriginBundled, nil)
	if err != nil {
		// The bundled document is validated by tests; reaching this means
		// the binary itself is broken.
		return nil, tmfbridge.NewSchemaLoadError("parse bundled schema", err)
	}
	return snap, nil
}

// Reload re-runs resolution. When the active origin is a URL and caching
// validators are present, a conditional fetch is issued; a not-modified
// result returns the current snapshot unchanged. A reload failure never
// discards a previously good snapshot.
func (s *SchemaSource) Reload(ctx context.Context, current *tmfbridge.SchemaSnapshot) (*tmfbridge.SchemaSnapshot, bool, error) {
	if current != nil && current.Meta.Validators != nil &&
		(current.Meta.Origin == tmfbridge.OriginURL || current.Meta.Origin == tmfbridge.OriginLegacyURL) {
		url, _ := s.remoteOrigin()
		if url != "" {
			snap, notModified := s.conditionalFetch(ctx, url, current.Meta.Origin, current.Meta.Validators)
			if notModified {
				return current, false, nil
			}
			if snap != nil {
				return snap, true, nil
			}
			// fetch failed; stale-but-valid beats none
			zap.S().Warnw("schema reload fetch failed, keeping current snapshot", "url", url)
			return current, false, nil
		}
	}

	snap, err := s.Resolve(ctx)
	if err != nil {
		if current != nil {
			return current, false, err
		}
		return nil, false, err
	}
	if current != nil && bytes.Equal(snap.Raw, current.Raw) && snap.Meta.Origin == current.Meta.Origin {
		return current, false, nil
	}
	return snap, true, nil
}

// remoteOrigin returns the URL candidate to try: the primary URL, or the
// legacy URL only when the primary is unset.
func (s *SchemaSource) remoteOrigin() (string, tmfbridge.SchemaOrigin) {
	if s.cfg.SchemaURL != "" {
		return s.cfg.SchemaURL, tmfbridge.OriginURL
	}
	if s.cfg.LegacySchemaURL != "" {
		return s.cfg.LegacySchemaURL, tmfbridge.OriginLegacyURL
	}
	return "", ""
}

func (s *SchemaSource) fetch(ctx context.Context, url string, origin tmfbridge.SchemaOrigin, validators *tmfbridge.CacheValidators) *tmfbridge.SchemaSnapshot {
	snap, _ := s.doFetch(ctx, url, origin, validators)
	return snap
}

func (s *SchemaSource) conditionalFetch(ctx context.Context, url string, origin tmfbridge.SchemaOrigin, validators *tmfbridge.CacheValidators) (*tmfbridge.SchemaSnapshot, bool) {
	return s.doFetch(ctx, url, origin, validators)
}

// doFetch returns (snapshot, false) on success, (nil, true) on a 304
// response, and (nil, false) on any failure.
func (s *SchemaSource) doFetch(ctx context.Context, url string, origin tmfbridge.SchemaOrigin, validators *tmfbridge.CacheValidators) (*tmfbridge.SchemaSnapshot, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		zap.S().Warnw("invalid schema URL", "url", url, "error", err)
		return nil, false
	}
	if validators != nil {
		if validators.ETag != "" {
			req.Header.Set("If-None-Match", validators.ETag)
		}
		if validators.LastModified != "" {
			req.Header.Set("If-Modified-Since", validators.LastModified)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		zap.S().Warnw("schema fetch failed", "url", url, "error", err)
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil, true
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		zap.S().Warnw("schema fetch returned non-2xx", "url", url, "status", resp.StatusCode)
		return nil, false
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		zap.S().Warnw("schema fetch read failed", "url", url, "error", err)
		return nil, false
	}

	captured := &tmfbridge.CacheValidators{
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}
	if captured.ETag == "" && captured.LastModified == "" {
		captured = nil
	}

	snap, err := buildSnapshot(raw, origin, captured)
	if err != nil {
		zap.S().Warnw("fetched schema failed to parse", "url", url, "error", err)
		return nil, false
	}
	return snap, false
}

func buildSnapshot(raw []byte, origin tmfbridge.SchemaOrigin, validators *tmfbridge.CacheValidators) (*tmfbridge.SchemaSnapshot, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, err
	}
	names, err := componentSchemaNames(raw)
	if err != nil {
		return nil, err
	}
	return &tmfbridge.SchemaSnapshot{
		Doc: doc,
		Raw: raw,
		Meta: tmfbridge.SchemaMetadata{
			Origin:         origin,
			LoadedAt:       time.Now(),
			Validators:     validators,
			ComponentNames: names,
		},
	}, nil
}

// componentSchemaNames extracts the keys of components.schemas in document
// order. The parsed document stores schemas in a map, which would make
// catalogue ordering nondeterministic.
func componentSchemaNames(raw []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("schema document is not a JSON object")
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)
		if key == "components" {
			return schemaNamesInComponents(dec)
		}
		if err := skipJSONValue(dec); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func schemaNamesInComponents(dec *json.Decoder) ([]string, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil
	}
	var names []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)
		if key != "schemas" {
			if err := skipJSONValue(dec); err != nil {
				return nil, err
			}
			continue
		}
		inner, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if d, ok := inner.(json.Delim); !ok || d != '{' {
			continue
		}
		for dec.More() {
			nameTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			if name, ok := nameTok.(string); ok {
				names = append(names, name)
			}
			if err := skipJSONValue(dec); err != nil {
				return nil, err
			}
		}
		if _, err := dec.Token(); err != nil { // closing brace of schemas
			return nil, err
		}
	}
	return names, nil
}

func skipJSONValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := tok.(json.Delim)
	if !ok || (d != '{' && d != '[') {
		return nil
	}
	for dec.More() {
		if d == '{' {
			if _, err := dec.Token(); err != nil { // key
				return err
			}
		}
		if err := skipJSONValue(dec); err != nil {
			return err
		}
	}
	_, err = dec.Token() // closing delim
	return err
}
