package assemble

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/veratrix/esg/errors"
)

// DirProvider serves section content from a flat directory of files named
// <section code>.<ext>, e.g. "2.7.1.pdf". This is the CLI-facing provider;
// embedding applications supply their own ContentProvider.
type DirProvider struct {
	root string
}

// NewDirProvider creates a provider over a sections directory
func NewDirProvider(root string) *DirProvider {
	return &DirProvider{root: root}
}

// ListSections implements ContentProvider
func (p *DirProvider) ListSections(ctx context.Context, submissionID string) ([]string, error) {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sections directory %s", p.root)
	}

	var codes []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		code := strings.TrimSuffix(name, ext)
		if code == "" {
			continue
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// Render implements ContentProvider
func (p *DirProvider) Render(ctx context.Context, submissionID, sectionCode string) ([]byte, error) {
	matches, err := filepath.Glob(filepath.Join(p.root, sectionCode+".*"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, errors.NewNotFoundError("content file for section %s", sectionCode)
	}
	return os.ReadFile(matches[0])
}
