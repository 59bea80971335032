package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"volunteerhub/pkg/platform/sentinel"
)

// =============================================================================
// Filesystem Proof Store Test Suite
// =============================================================================

type FilesystemStoreSuite struct {
	suite.Suite
	store *FilesystemStore
}

func TestFilesystemStoreSuite(t *testing.T) {
	suite.Run(t, new(FilesystemStoreSuite))
}

func (s *FilesystemStoreSuite) SetupTest() {
	store, err := NewFilesystemStore(s.T().TempDir())
	s.Require().NoError(err)
	s.store = store
}

func (s *FilesystemStoreSuite) TestSaveAndOpen() {
	ctx := context.Background()

	key, err := s.store.Save(ctx, "proof-1", "image/png", strings.NewReader("fake png bytes"))
	s.Require().NoError(err)
	s.Equal("proof-1", key)

	rc, contentType, err := s.store.Open(ctx, "proof-1")
	s.Require().NoError(err)
	defer rc.Close()

	body, err := io.ReadAll(rc)
	s.Require().NoError(err)
	s.Equal("fake png bytes", string(body))
	s.Equal("image/png", contentType)
}

func (s *FilesystemStoreSuite) TestSaveRefusesOverwrite() {
	ctx := context.Background()

	_, err := s.store.Save(ctx, "proof-1", "image/png", strings.NewReader("first"))
	s.Require().NoError(err)

	_, err = s.store.Save(ctx, "proof-1", "image/png", strings.NewReader("second"))
	s.Require().True(errors.Is(err, sentinel.ErrConflict))

	rc, _, err := s.store.Open(ctx, "proof-1")
	s.Require().NoError(err)
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	s.Equal("first", string(body))
}

func (s *FilesystemStoreSuite) TestOpenMissingKey() {
	_, _, err := s.store.Open(context.Background(), "nope")
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *FilesystemStoreSuite) TestRemove() {
	ctx := context.Background()

	_, err := s.store.Save(ctx, "proof-1", "application/pdf", strings.NewReader("doc"))
	s.Require().NoError(err)

	s.Require().NoError(s.store.Remove(ctx, "proof-1"))
	_, _, err = s.store.Open(ctx, "proof-1")
	s.True(errors.Is(err, sentinel.ErrNotFound))

	s.Run("removing again is a no-op", func() {
		s.NoError(s.store.Remove(ctx, "proof-1"))
	})
}

func (s *FilesystemStoreSuite) TestRejectsEscapingKeys() {
	ctx := context.Background()
	for _, key := range []string{"", "..", "../outside", "a/b", `a\b`} {
		_, err := s.store.Save(ctx, key, "text/plain", strings.NewReader("x"))
		s.Error(err, "key %q", key)
	}
}

func (s *FilesystemStoreSuite) TestEmptyContentTypeFallsBack() {
	ctx := context.Background()

	_, err := s.store.Save(ctx, "proof-1", "", strings.NewReader("raw"))
	s.Require().NoError(err)

	rc, contentType, err := s.store.Open(ctx, "proof-1")
	s.Require().NoError(err)
	defer rc.Close()
	s.Equal("application/octet-stream", contentType)
}
