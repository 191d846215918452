package render

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	// ErrTemplateInvalid covers structurally broken templates: not a readable
	// archive, or the main document part is absent.
	ErrTemplateInvalid = errors.New("template_invalid")
)

const mainDocumentPart = "word/document.xml"

// Renderer merges a flat placeholder map into a document template. Templates
// are DOCX archives; placeholders are {{token}} markers in the XML parts.
type Renderer interface {
	// Render is a pure function of template bytes and data: the same inputs
	// always produce byte-identical output. Unrecognized markers survive
	// untouched so template and code can evolve independently.
	Render(template []byte, data map[string]string) ([]byte, error)

	// RenderToFile renders templatePath and writes the intermediate document
	// into outputDir named after the control number, creating outputDir if
	// absent. The intermediate survives a later conversion failure.
	RenderToFile(templatePath, outputDir, controlNumber string, data map[string]string) (string, error)
}

type renderer struct {
	log *zap.Logger
}

func NewRenderer(log *zap.Logger) Renderer {
	return &renderer{log: log.Named("render")}
}

func (r *renderer) Render(template []byte, data map[string]string) ([]byte, error) {
	archive, err := zip.NewReader(bytes.NewReader(template), int64(len(template)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateInvalid, err)
	}

	if !hasPart(archive, mainDocumentPart) {
		return nil, fmt.Errorf("%w: missing %s", ErrTemplateInvalid, mainDocumentPart)
	}

	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	for _, part := range archive.File {
		content, err := readPart(part)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrTemplateInvalid, part.Name, err)
		}

		if isTextPart(part.Name) {
			content = substitute(content, data)
		}

		header := part.FileHeader
		w, err := zw.CreateHeader(&header)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(content); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	return out.Bytes(), nil
}

func (r *renderer) RenderToFile(templatePath, outputDir, controlNumber string, data map[string]string) (string, error) {
	template, err := os.ReadFile(templatePath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateInvalid, err)
	}

	rendered, err := r.Render(template, data)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", err
	}

	ext := filepath.Ext(templatePath)
	if ext == "" {
		ext = ".docx"
	}
	outPath := filepath.Join(outputDir, controlNumber+ext)
	if err := os.WriteFile(outPath, rendered, 0o644); err != nil {
		return "", err
	}

	r.log.Debug("template rendered",
		zap.String("template", filepath.Base(templatePath)),
		zap.String("output", outPath),
		zap.Int("placeholders", len(data)),
	)
	return outPath, nil
}

// isTextPart matches the document body plus headers and footers, the parts
// that can carry placeholder markers.
func isTextPart(name string) bool {
	if name == mainDocumentPart {
		return true
	}
	if !strings.HasPrefix(name, "word/") || !strings.HasSuffix(name, ".xml") {
		return false
	}
	base := strings.TrimPrefix(name, "word/")
	return strings.HasPrefix(base, "header") || strings.HasPrefix(base, "footer")
}

func substitute(content []byte, data map[string]string) []byte {
	text := string(content)
	for token, value := range data {
		marker := "{{" + token + "}}"
		if !strings.Contains(text, marker) {
			continue
		}
		text = strings.ReplaceAll(text, marker, escapeXML(value))
	}
	return []byte(text)
}

func escapeXML(value string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return replacer.Replace(value)
}

func hasPart(archive *zip.Reader, name string) bool {
	for _, part := range archive.File {
		if part.Name == name {
			return true
		}
	}
	return false
}

func readPart(part *zip.File) ([]byte, error) {
	rc, err := part.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

var Module = fx.Module("render",
	fx.Provide(NewRenderer),
)
