package upload_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"marketplace/internal/upload"

	"github.com/stretchr/testify/require"
)

func TestSaveAcceptedFile(t *testing.T) {
	dir := t.TempDir()
	s := upload.NewDeliverableSaver(dir)

	url, err := s.Save(strings.NewReader("%PDF-1.4"), "report.pdf", "application/pdf", 8)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "/uploads/"))
	require.True(t, strings.HasSuffix(url, ".pdf"))

	// The stored name is randomized, not the original.
	require.NotContains(t, url, "report")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestSaveRejectsDisallowedType(t *testing.T) {
	s := upload.NewDeliverableSaver(t.TempDir())

	_, err := s.Save(strings.NewReader("#!/bin/sh"), "run.sh", "application/x-sh", 9)
	require.ErrorIs(t, err, upload.ErrBadType)
}

func TestSaveRejectsOversize(t *testing.T) {
	s := upload.NewDeliverableSaver(t.TempDir())

	_, err := s.Save(strings.NewReader(""), "big.zip", "application/zip", 101<<20)
	require.ErrorIs(t, err, upload.ErrFileTooLarge)
}

func TestBidVideoSaver(t *testing.T) {
	dir := t.TempDir()
	s := upload.NewBidVideoSaver(dir)

	_, err := s.Save(strings.NewReader("pdf"), "doc.pdf", "application/pdf", 3)
	require.ErrorIs(t, err, upload.ErrBadType)

	_, err = s.Save(strings.NewReader("vid"), "clip.mp4", "video/mp4", 51<<20)
	require.ErrorIs(t, err, upload.ErrFileTooLarge)

	url, err := s.Save(strings.NewReader("vid"), "clip.mp4", "video/mp4", 3)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "/uploads/bid-videos/"))

	entries, err := os.ReadDir(filepath.Join(dir, "bid-videos"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
