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
	"sync"

	"github.com/morflash/morflash/internal/logger"
	"github.com/morflash/morflash/internal/manifest"
	"github.com/morflash/morflash/internal/models"
	"github.com/morflash/morflash/internal/store"
)

// OpenDeck is the handle returned by Open. It owns the ephemeral
// database materialization for its whole lifetime: Close detaches the
// store and removes the scratch directory. There is no ambient
// "current deck"; callers pass the handle into every operation.
type OpenDeck struct {
	manifest models.Manifest
	store    *store.Store

	source     string
	scratchDir string
	mediaNames map[string]struct{}

	mu     sync.Mutex
	closed bool
}

// Open unpacks and validates a .mflash container. All format, version
// and integrity checks run before the handle is returned; a failure
// anywhere aborts the whole open, cleans up the ephemeral database and
// returns no handle.
func Open(ctx context.Context, source string) (*OpenDeck, error) {
	log := logger.FromContext(ctx).WithPrefix("container")
	log.Info("opening deck container: %s", source)

	zr, err := zip.OpenReader(source)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("open %s: %w", source, err)
		}
		return nil, fmt.Errorf("%w: %s", ErrNotAContainer, source)
	}
	defer zr.Close()

	m, err := readManifest(&zr.Reader)
	if err != nil {
		return nil, err
	}
	// Format and version are rejected before deck.sqlite is even located.
	if err := manifest.Validate(*m); err != nil {
		return nil, err
	}

	dbEntry := findEntry(&zr.Reader, DatabaseEntry)
	if dbEntry == nil {
		return nil, ErrMissingDatabase
	}

	scratch, err := os.MkdirTemp("", "mflash-open-")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}

	st, err := attachSnapshot(ctx, dbEntry, scratch, *m)
	if err != nil {
		os.RemoveAll(scratch)
		return nil, err
	}

	names := make(map[string]struct{})
	for _, f := range zr.File {
		if name, ok := strings.CutPrefix(f.Name, MediaPrefix); ok && name != "" && !strings.Contains(name, "/") {
			names[name] = struct{}{}
		}
	}

	log.Info("deck container opened: %q, %d cards, %d media entries", m.Name, m.CardCount, len(names))
	return &OpenDeck{
		manifest:   *m,
		store:      st,
		source:     source,
		scratchDir: scratch,
		mediaNames: names,
	}, nil
}

func readManifest(zr *zip.Reader) (*models.Manifest, error) {
	entry := findEntry(zr, ManifestEntry)
	if entry == nil {
		return nil, ErrMissingManifest
	}
	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedManifest, err)
	}
	defer rc.Close()

	var m models.Manifest
	dec := json.NewDecoder(rc)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedManifest, err)
	}
	return &m, nil
}

// attachSnapshot materializes the database entry into the scratch dir,
// attaches the store and cross-checks the card count against the
// manifest. On failure the store is closed; the caller removes scratch.
func attachSnapshot(ctx context.Context, entry *zip.File, scratch string, m models.Manifest) (*store.Store, error) {
	dbPath := filepath.Join(scratch, DatabaseEntry)

	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptDatabase, err)
	}
	defer rc.Close()

	dst, err := os.Create(dbPath)
	if err != nil {
		return nil, fmt.Errorf("materialize snapshot: %w", err)
	}
	if _, err := io.Copy(dst, rc); err != nil {
		dst.Close()
		return nil, fmt.Errorf("materialize snapshot: %w", err)
	}
	if err := dst.Close(); err != nil {
		return nil, fmt.Errorf("materialize snapshot: %w", err)
	}

	st, err := store.Attach(dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptDatabase, err)
	}

	count, err := st.CardCount(ctx)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("%w: %v", ErrCorruptDatabase, err)
	}
	if err := manifest.CheckCardCount(m, count); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func findEntry(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Manifest returns the validated manifest the container was opened with.
func (d *OpenDeck) Manifest() models.Manifest {
	return d.manifest
}

// Store returns the attached deck store.
func (d *OpenDeck) Store() *store.Store {
	return d.store
}

// Source returns the path of the archive this handle was opened from.
func (d *OpenDeck) Source() string {
	return d.source
}

// MediaNames lists the media file names present in the archive, sorted.
func (d *OpenDeck) MediaNames() []string {
	names := make([]string, 0, len(d.mediaNames))
	for name := range d.mediaNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasMedia reports whether the archive carries the named media file.
func (d *OpenDeck) HasMedia(name string) bool {
	_, ok := d.mediaNames[name]
	return ok
}

// MediaFile reads one media file from the archive. Content is read
// lazily, only when requested; a media row whose file is absent from
// the archive costs nothing until this call, which then returns
// ErrMediaFileMissing.
func (d *OpenDeck) MediaFile(name string) ([]byte, error) {
	if !d.HasMedia(name) {
		return nil, fmt.Errorf("%w: %s", ErrMediaFileMissing, name)
	}

	zr, err := zip.OpenReader(d.source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotAContainer, d.source)
	}
	defer zr.Close()

	entry := findEntry(&zr.Reader, MediaPrefix+name)
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrMediaFileMissing, name)
	}
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Thumbnail reads the optional thumbnail.png entry, or nil when absent.
func (d *OpenDeck) Thumbnail() ([]byte, error) {
	zr, err := zip.OpenReader(d.source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotAContainer, d.source)
	}
	defer zr.Close()

	entry := findEntry(&zr.Reader, ThumbnailEntry)
	if entry == nil {
		return nil, nil
	}
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Close detaches the store and removes the ephemeral database. It is
// safe to call more than once.
func (d *OpenDeck) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	var first error
	if err := d.store.Close(); err != nil {
		first = err
	}
	if err := os.RemoveAll(d.scratchDir); err != nil && first == nil {
		first = err
	}
	return first
}
