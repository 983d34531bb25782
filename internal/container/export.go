// Package container packages a deck store, its manifest and media blobs
// into a single portable .mflash archive, and unpacks one back into an
// attached store. Both directions are all-or-nothing: export never
// leaves a partial file at the destination and open never returns a
// partially usable handle. Every ephemeral artifact (scratch database,
// partial archive) is owned by the operation that created it and is
// removed on every exit path.
package container

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/morflash/morflash/internal/logger"
	"github.com/morflash/morflash/internal/manifest"
	"github.com/morflash/morflash/internal/models"
	"github.com/morflash/morflash/internal/store"
)

// Archive entry names for container version 1. The media/ prefix is a
// packaging convention only; file_name values in the database never
// carry it.
const (
	ManifestEntry  = "manifest.json"
	DatabaseEntry  = "deck.sqlite"
	MediaPrefix    = "media/"
	ThumbnailEntry = "thumbnail.png"
)

// ExportInput is everything needed to package one deck.
type ExportInput struct {
	Deck         models.Deck
	Cards        []models.Card
	Media        []models.Media
	ReviewStates []models.ReviewState

	// MediaBlobs maps file_name to content. Rows without a blob are
	// packaged as dangling references; they surface as
	// ErrMediaFileMissing only when the file is requested after import.
	MediaBlobs map[string][]byte

	// Thumbnail, when set, becomes the optional thumbnail.png entry.
	Thumbnail []byte

	// Prior carries the manifest of a previously opened container so a
	// re-export keeps the original creation instant.
	Prior *models.Manifest

	Generator string

	// Now overrides the manifest timestamp; zero means time.Now.
	Now time.Time
}

// Export builds a complete .mflash archive at dest. The archive is
// assembled at a temporary sibling path and moved into place with a
// single rename; on any failure dest is left untouched and all scratch
// artifacts are removed.
func Export(ctx context.Context, in ExportInput, dest string) error {
	log := logger.FromContext(ctx).WithPrefix("container")
	log.Info("exporting deck %d (%d cards) to %s", in.Deck.ID, len(in.Cards), dest)

	scratch, err := os.MkdirTemp(filepath.Dir(dest), ".mflash-export-")
	if err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	dbPath := filepath.Join(scratch, DatabaseEntry)
	m, err := buildSnapshot(ctx, in, dbPath)
	if err != nil {
		return err
	}

	manifestJSON, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	tmp := filepath.Join(scratch, uuid.NewString()+".mflash")
	if err := writeArchive(tmp, manifestJSON, dbPath, in); err != nil {
		return err
	}

	if err := os.Rename(tmp, dest); err != nil {
		return fmt.Errorf("move archive into place: %w", err)
	}
	log.Info("export complete: %s", dest)
	return nil
}

// buildSnapshot populates a scratch store at dbPath and derives the
// manifest from what actually landed in it. The store is closed before
// returning so the file is a complete, self-contained snapshot.
func buildSnapshot(ctx context.Context, in ExportInput, dbPath string) (models.Manifest, error) {
	var m models.Manifest

	st, err := store.Open(dbPath)
	if err != nil {
		return m, err
	}
	defer st.Close()

	if err := st.Populate(ctx, in.Deck, in.Cards, in.Media, in.ReviewStates); err != nil {
		return m, err
	}

	count, err := st.CardCount(ctx)
	if err != nil {
		return m, err
	}
	hasDeckMedia, err := st.HasDeckMedia(ctx)
	if err != nil {
		return m, err
	}

	flags := manifest.Flags{
		HasThumbnail: len(in.Thumbnail) > 0,
		HasDeckMedia: hasDeckMedia,
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	if in.Prior != nil {
		m = manifest.Rebuild(*in.Prior, in.Deck, count, flags, in.Generator, now)
	} else {
		m = manifest.Build(in.Deck, count, flags, in.Generator, now)
	}

	if err := st.Close(); err != nil {
		return m, fmt.Errorf("flush snapshot: %w", err)
	}
	return m, nil
}

func writeArchive(path string, manifestJSON []byte, dbPath string, in ExportInput) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer func() {
		if f != nil {
			f.Close()
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	zw := zip.NewWriter(f)

	w, err := zw.Create(ManifestEntry)
	if err != nil {
		return err
	}
	if _, err = w.Write(manifestJSON); err != nil {
		return err
	}

	if err = copyFileEntry(zw, DatabaseEntry, dbPath); err != nil {
		return err
	}

	// Blob entries are written in sorted order so identical input
	// produces an identical archive layout.
	names := make([]string, 0, len(in.MediaBlobs))
	for name := range in.MediaBlobs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if strings.Contains(name, "/") || strings.Contains(name, `\`) {
			return fmt.Errorf("media file name %q must not contain a path separator", name)
		}
		w, err = zw.Create(MediaPrefix + name)
		if err != nil {
			return err
		}
		if _, err = w.Write(in.MediaBlobs[name]); err != nil {
			return err
		}
	}

	if len(in.Thumbnail) > 0 {
		w, err = zw.Create(ThumbnailEntry)
		if err != nil {
			return err
		}
		if _, err = w.Write(in.Thumbnail); err != nil {
			return err
		}
	}

	if err = zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	if err = f.Sync(); err != nil {
		return err
	}
	cerr := f.Close()
	f = nil
	if cerr != nil {
		err = cerr
	}
	return err
}

func copyFileEntry(zw *zip.Writer, entry, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	w, err := zw.Create(entry)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}
