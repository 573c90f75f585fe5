package assemble

import (
	"archive/tar"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veratrix/esg/config"
	"github.com/veratrix/esg/errors"
	esgtest "github.com/veratrix/esg/internal/testing"
	"github.com/veratrix/esg/submission"
)

// fakeProvider serves scripted section content
type fakeProvider struct {
	content map[string][]byte
	failing map[string]bool
}

func (p *fakeProvider) ListSections(ctx context.Context, submissionID string) ([]string, error) {
	var codes []string
	for code := range p.content {
		codes = append(codes, code)
	}
	for code := range p.failing {
		codes = append(codes, code)
	}
	return codes, nil
}

func (p *fakeProvider) Render(ctx context.Context, submissionID, sectionCode string) ([]byte, error) {
	if p.failing[sectionCode] {
		return nil, errors.New("render exploded")
	}
	return p.content[sectionCode], nil
}

func createTestSubmission(t *testing.T, store *submission.Store) *submission.Submission {
	t.Helper()

	sub := &submission.Submission{
		ID:             uuid.NewString(),
		DocumentID:     "NDA-123456",
		Status:         submission.StatusPreparing,
		SubmissionType: "original",
		SequenceNumber: 1,
		Center:         "CDER",
		PackageFormat:  "ectd",
		TenantID:       "default",
		Environment:    submission.EnvironmentTest,
	}
	require.NoError(t, store.CreateSubmission(sub))
	return sub
}

func readArchive(t *testing.T, path string) map[string][]byte {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	entries := make(map[string][]byte)
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		entries[hdr.Name] = data
	}
	return entries
}

func TestAssembleBuildsPackage(t *testing.T) {
	db := esgtest.CreateTestDB(t)
	store := submission.NewStore(db)
	sub := createTestSubmission(t, store)

	provider := &fakeProvider{content: map[string][]byte{
		"2.7.1":   []byte("clinical summary content"),
		"3.2.P.1": []byte("drug product content"),
	}}

	cfg := config.AssemblerConfig{
		OutputDir:     t.TempDir(),
		Applicant:     "Veratrix",
		DTDVersion:    "3.3",
		ChecksumsFile: "index-md5.txt",
	}

	assembler := NewAssembler(store, provider, cfg, zap.NewNop().Sugar())
	result, err := assembler.Assemble(context.Background(), sub.ID)
	require.NoError(t, err)

	// 2 content files + backbone + checksum
	assert.Equal(t, 4, result.FileCount)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "NDA-123456-seq0001.tar.gz"), result.PackagePath)

	entries := readArchive(t, result.PackagePath)
	assert.Contains(t, entries, "index.xml")
	assert.Contains(t, entries, "index-md5.txt")
	assert.Contains(t, entries, "m2/27-clin-sum/2-7-1.pdf")
	assert.Contains(t, entries, "m3/32-body-data/32p-drug-prod/3-2-P-1.pdf")

	// Checksum side-file holds the digest of the exact backbone bytes
	backboneSum := md5.Sum(entries["index.xml"])
	assert.Equal(t, hex.EncodeToString(backboneSum[:])+"\n", string(entries["index-md5.txt"]))

	// Registry records every file with its digests
	files, err := store.ListFiles(sub.ID)
	require.NoError(t, err)
	require.Len(t, files, 4)

	kinds := make(map[submission.FileKind]int)
	for _, f := range files {
		kinds[f.Kind]++
		assert.NotEmpty(t, f.MD5)
		assert.NotEmpty(t, f.SHA256)
	}
	assert.Equal(t, 2, kinds[submission.FileKindContent])
	assert.Equal(t, 1, kinds[submission.FileKindBackbone])
	assert.Equal(t, 1, kinds[submission.FileKindChecksum])

	// Archive path is recorded on the submission
	updated, err := store.GetSubmission(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, result.PackagePath, updated.PackagePath)
}

func TestAssembleSkipsFailedSections(t *testing.T) {
	db := esgtest.CreateTestDB(t)
	store := submission.NewStore(db)
	sub := createTestSubmission(t, store)

	provider := &fakeProvider{
		content: map[string][]byte{"2.5": []byte("clinical overview")},
		failing: map[string]bool{"4.2.1": true},
	}

	cfg := config.AssemblerConfig{OutputDir: t.TempDir(), DTDVersion: "3.3"}
	assembler := NewAssembler(store, provider, cfg, zap.NewNop().Sugar())

	result, err := assembler.Assemble(context.Background(), sub.ID)
	require.NoError(t, err)

	// Failed section is skipped, the rest of the package proceeds
	assert.Equal(t, 3, result.FileCount)

	entries := readArchive(t, result.PackagePath)
	assert.Contains(t, entries, "m2/25-clin-over/2-5.pdf")
	assert.NotContains(t, entries, "m4/42-stud-rep/4-2-1.pdf")
}

func TestAssembleEmptySectionsOmitted(t *testing.T) {
	db := esgtest.CreateTestDB(t)
	store := submission.NewStore(db)
	sub := createTestSubmission(t, store)

	provider := &fakeProvider{content: map[string][]byte{
		"1.1": []byte("cover letter"),
		"1.2": {},
	}}

	cfg := config.AssemblerConfig{OutputDir: t.TempDir(), DTDVersion: "3.3"}
	assembler := NewAssembler(store, provider, cfg, zap.NewNop().Sugar())

	result, err := assembler.Assemble(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, result.FileCount)
}

func TestAssembleDeterministicArchive(t *testing.T) {
	db := esgtest.CreateTestDB(t)
	store := submission.NewStore(db)

	provider := &fakeProvider{content: map[string][]byte{
		"2.7.1": []byte("identical content"),
		"5.3.5": []byte("study report"),
	}}

	var archives [][]byte
	for i := 0; i < 2; i++ {
		sub := &submission.Submission{
			ID:             uuid.NewString(),
			DocumentID:     "NDA-777",
			Status:         submission.StatusPreparing,
			SubmissionType: "original",
			SequenceNumber: i + 1,
			Center:         "CDER",
			PackageFormat:  "ectd",
			TenantID:       "default",
			Environment:    submission.EnvironmentTest,
		}
		require.NoError(t, store.CreateSubmission(sub))

		cfg := config.AssemblerConfig{OutputDir: t.TempDir(), DTDVersion: "3.3"}
		assembler := NewAssembler(store, provider, cfg, zap.NewNop().Sugar())
		result, err := assembler.Assemble(context.Background(), sub.ID)
		require.NoError(t, err)

		// Compare content per entry rather than raw archive bytes: the
		// backbone embeds the sequence number.
		entries := readArchive(t, result.PackagePath)
		archives = append(archives, entries["m2/27-clin-sum/2-7-1.pdf"])
	}

	assert.Equal(t, archives[0], archives[1])
}
