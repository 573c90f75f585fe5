// Package assemble builds the on-disk regulatory submission package:
// module skeleton, hashed content files, backbone manifest, checksum
// side-file, and the final archive artifact.
package assemble

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/veratrix/esg/config"
	"github.com/veratrix/esg/errors"
	"github.com/veratrix/esg/submission"
)

// ContentProvider renders section content. It is external to this core:
// a render failure for one section is tolerated, the section is skipped.
type ContentProvider interface {
	// ListSections returns the codes of sections that have content for
	// this submission. Sections absent here are not an error.
	ListSections(ctx context.Context, submissionID string) ([]string, error)

	// Render returns the binary content for one section
	Render(ctx context.Context, submissionID, sectionCode string) ([]byte, error)
}

// Result is the outcome of a successful assembly
type Result struct {
	PackagePath string // Archive artifact path
	FileCount   int    // Total files in the package, including backbone and checksum
}

// Assembler builds submission packages
type Assembler struct {
	store    *submission.Store
	provider ContentProvider
	cfg      config.AssemblerConfig
	logger   *zap.SugaredLogger
}

// NewAssembler creates a package assembler. All output paths and backbone
// metadata come from cfg, not process-wide state.
func NewAssembler(store *submission.Store, provider ContentProvider, cfg config.AssemblerConfig, logger *zap.SugaredLogger) *Assembler {
	if cfg.ChecksumsFile == "" {
		cfg.ChecksumsFile = "index-md5.txt"
	}
	return &Assembler{
		store:    store,
		provider: provider,
		cfg:      cfg,
		logger:   logger,
	}
}

// Assemble builds the complete package for a submission: stages the module
// skeleton, writes each renderable section with integrity digests, builds
// the backbone manifest and checksum side-file, and archives the result.
//
// Per-section render failures are logged and skipped; a failure writing the
// backbone, checksum file, or archive aborts the whole operation.
func (a *Assembler) Assemble(ctx context.Context, submissionID string) (*Result, error) {
	sub, err := a.store.GetSubmission(submissionID)
	if err != nil {
		return nil, err
	}

	stagingDir := filepath.Join(a.cfg.OutputDir, fmt.Sprintf("%s-seq%04d", sub.DocumentID, sub.SequenceNumber))
	for _, dir := range moduleSkeleton {
		if err := os.MkdirAll(filepath.Join(stagingDir, filepath.FromSlash(dir)), 0755); err != nil {
			return nil, errors.Wrapf(err, "failed to create module directory %s", dir)
		}
	}

	sections, err := a.provider.ListSections(ctx, submissionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sections with content")
	}
	// Sections are processed in code order so the backbone file list, and
	// therefore the backbone digest, is deterministic.
	sort.Strings(sections)

	var leaves []backboneLeaf
	for _, code := range sections {
		content, err := a.provider.Render(ctx, submissionID, code)
		if err != nil {
			// Partial-failure tolerance: the submission proceeds with
			// the sections that rendered.
			a.logger.Warnw("Section render failed, skipping",
				"submission_id", submissionID,
				"section", code,
				"error", err)
			continue
		}
		if len(content) == 0 {
			continue
		}

		relPath := filepath.ToSlash(filepath.Join(ModuleDirForSection(code), sectionFileName(code)))
		md5Hex, sha256Hex, err := a.writeFile(stagingDir, relPath, content)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to write section %s", code)
		}

		if err := a.store.CreateFile(&submission.File{
			SubmissionID: submissionID,
			Path:         relPath,
			Kind:         submission.FileKindContent,
			SizeBytes:    int64(len(content)),
			MD5:          md5Hex,
			SHA256:       sha256Hex,
		}); err != nil {
			return nil, err
		}

		leaves = append(leaves, backboneLeaf{
			Href:         relPath,
			Checksum:     md5Hex,
			ChecksumType: "md5",
			Title:        code,
		})

		a.logger.Debugw("Section written",
			"submission_id", submissionID,
			"section", code,
			"path", relPath,
			"size", len(content))
	}

	backboneBytes, err := buildBackbone(backbone{
		DTDVersion:        a.cfg.DTDVersion,
		Applicant:         a.cfg.Applicant,
		ApplicationNumber: sub.DocumentID,
		SequenceNumber:    fmt.Sprintf("%04d", sub.SequenceNumber),
		SubmissionType:    sub.SubmissionType,
		Leaves:            leaves,
	})
	if err != nil {
		return nil, err
	}

	backboneMD5, backboneSHA256, err := a.writeFile(stagingDir, BackboneFileName, backboneBytes)
	if err != nil {
		return nil, errors.Wrap(err, "failed to write backbone")
	}
	if err := a.store.CreateFile(&submission.File{
		SubmissionID: submissionID,
		Path:         BackboneFileName,
		Kind:         submission.FileKindBackbone,
		SizeBytes:    int64(len(backboneBytes)),
		MD5:          backboneMD5,
		SHA256:       backboneSHA256,
	}); err != nil {
		return nil, err
	}

	// Checksum side-file at the package root lists the backbone digest
	checksumBytes := []byte(backboneMD5 + "\n")
	checksumMD5, checksumSHA256, err := a.writeFile(stagingDir, a.cfg.ChecksumsFile, checksumBytes)
	if err != nil {
		return nil, errors.Wrap(err, "failed to write checksum file")
	}
	if err := a.store.CreateFile(&submission.File{
		SubmissionID: submissionID,
		Path:         a.cfg.ChecksumsFile,
		Kind:         submission.FileKindChecksum,
		SizeBytes:    int64(len(checksumBytes)),
		MD5:          checksumMD5,
		SHA256:       checksumSHA256,
	}); err != nil {
		return nil, err
	}

	archivePath := stagingDir + ".tar.gz"
	fileCount, err := createArchive(stagingDir, archivePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create package archive")
	}

	if err := a.store.SetPackagePath(submissionID, archivePath); err != nil {
		return nil, err
	}

	a.logger.Infow("Package assembled",
		"submission_id", submissionID,
		"archive", archivePath,
		"files", fileCount,
		"sections", len(leaves))

	return &Result{PackagePath: archivePath, FileCount: fileCount}, nil
}

// writeFile writes bytes under the staging directory and returns the MD5
// and SHA-256 digests of exactly those bytes.
func (a *Assembler) writeFile(stagingDir, relPath string, data []byte) (string, string, error) {
	absPath := filepath.Join(stagingDir, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return "", "", err
	}
	if err := os.WriteFile(absPath, data, 0644); err != nil {
		return "", "", err
	}

	md5Sum := md5.Sum(data)
	sha256Sum := sha256.Sum256(data)
	return hex.EncodeToString(md5Sum[:]), hex.EncodeToString(sha256Sum[:]), nil
}
