package container_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morflash/morflash/internal/container"
	"github.com/morflash/morflash/internal/manifest"
	"github.com/morflash/morflash/internal/models"
	"github.com/morflash/morflash/internal/scheduler"
	"github.com/morflash/morflash/internal/store"
)

var exportTime = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

func sampleInput() container.ExportInput {
	deck := models.Deck{
		ID:          100,
		Name:        "Hiragana",
		Description: "The basic syllabary",
		Tags:        []string{"japanese"},
		LangFront:   "en",
		LangBack:    "ja",
	}
	cards := []models.Card{
		{ID: 1, DeckID: deck.ID, Term: "a", Definition: "あ", SortOrder: 1},
		{ID: 2, DeckID: deck.ID, Term: "i", Definition: "い", SortOrder: 2},
	}
	media := []models.Media{
		{ID: 1, FileName: "a.mp3", Kind: models.MediaAudio, MimeType: "audio/mpeg", Binding: models.BindCard(1)},
		{ID: 2, FileName: "cover.png", Kind: models.MediaImage, MimeType: "image/png", Binding: models.BindDeckWide()},
	}
	states := []models.ReviewState{
		scheduler.NewState(1, exportTime),
		scheduler.NewState(2, exportTime),
	}
	return container.ExportInput{
		Deck:         deck,
		Cards:        cards,
		Media:        media,
		ReviewStates: states,
		MediaBlobs: map[string][]byte{
			"a.mp3":     []byte("fake audio"),
			"cover.png": []byte("fake image"),
		},
		Thumbnail: []byte("fake thumbnail"),
		Generator: "morflash/1.0-test",
		Now:       exportTime,
	}
}

func exportSample(t *testing.T, in container.ExportInput) string {
	t.Helper()
	dest := filepath.Join(t.TempDir(), "hiragana.mflash")
	require.NoError(t, container.Export(context.Background(), in, dest))
	return dest
}

func TestExportOpen_RoundTrip(t *testing.T) {
	in := sampleInput()
	dest := exportSample(t, in)
	ctx := context.Background()

	d, err := container.Open(ctx, dest)
	require.NoError(t, err)
	defer d.Close()

	m := d.Manifest()
	assert.Equal(t, "morflash.mflash", m.Format)
	assert.Equal(t, 1, m.Version)
	assert.Equal(t, in.Deck.ID, m.DeckID)
	assert.Equal(t, in.Deck.Name, m.Name)
	assert.Equal(t, len(in.Cards), m.CardCount)
	assert.True(t, m.HasThumbnail)
	assert.True(t, m.HasDeckMedia)
	assert.Equal(t, in.Generator, m.Generator)

	deck, err := d.Store().Deck(ctx)
	require.NoError(t, err)
	assert.Equal(t, in.Deck, *deck)

	cards, err := d.Store().CardsInOrder(ctx, in.Deck.ID)
	require.NoError(t, err)
	assert.Equal(t, in.Cards, cards)

	mediaRows, err := d.Store().MediaRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, in.Media, mediaRows)

	states, err := d.Store().ReviewStates(ctx)
	require.NoError(t, err)
	assert.Equal(t, in.ReviewStates, states)

	assert.Equal(t, []string{"a.mp3", "cover.png"}, d.MediaNames())

	blob, err := d.MediaFile("a.mp3")
	require.NoError(t, err)
	assert.Equal(t, []byte("fake audio"), blob)

	thumb, err := d.Thumbnail()
	require.NoError(t, err)
	assert.Equal(t, in.Thumbnail, thumb)
}

func TestExport_ArchiveLayout(t *testing.T) {
	dest := exportSample(t, sampleInput())

	zr, err := zip.OpenReader(dest)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{
		"manifest.json",
		"deck.sqlite",
		"media/a.mp3",
		"media/cover.png",
		"thumbnail.png",
	}, names)
}

func TestExport_Reexport_KeepsCreationInstant(t *testing.T) {
	in := sampleInput()
	dest := exportSample(t, in)
	ctx := context.Background()

	d, err := container.Open(ctx, dest)
	require.NoError(t, err)
	prior := d.Manifest()
	require.NoError(t, d.Close())

	in.Prior = &prior
	in.Now = exportTime.Add(72 * time.Hour)
	in.Cards = append(in.Cards, models.Card{ID: 3, DeckID: in.Deck.ID, Term: "u", Definition: "う", SortOrder: 3})
	in.ReviewStates = append(in.ReviewStates, scheduler.NewState(3, in.Now))

	dest2 := filepath.Join(t.TempDir(), "hiragana-v2.mflash")
	require.NoError(t, container.Export(ctx, in, dest2))

	d2, err := container.Open(ctx, dest2)
	require.NoError(t, err)
	defer d2.Close()

	m := d2.Manifest()
	assert.True(t, m.CreatedAtUTC.Equal(prior.CreatedAtUTC), "re-export keeps the original creation instant")
	assert.True(t, m.UpdatedAtUTC.After(prior.UpdatedAtUTC))
	assert.Equal(t, 3, m.CardCount)
}

func TestExport_FailureLeavesDestinationUntouched(t *testing.T) {
	in := sampleInput()
	in.MediaBlobs = map[string][]byte{"../escape.png": []byte("nope")}

	dest := filepath.Join(t.TempDir(), "bad.mflash")
	err := container.Export(context.Background(), in, dest)
	require.Error(t, err)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "no partial archive may remain at the destination")

	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch artifacts must be cleaned up")
}

func TestExport_RejectsInvalidMediaBinding(t *testing.T) {
	in := sampleInput()
	in.Media = append(in.Media, models.Media{ID: 3, FileName: "loose.png", Kind: models.MediaImage})

	dest := filepath.Join(t.TempDir(), "bad.mflash")
	err := container.Export(context.Background(), in, dest)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrIntegrity)
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestOpen_FileDoesNotExist(t *testing.T) {
	_, err := container.Open(context.Background(), filepath.Join(t.TempDir(), "nope.mflash"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpen_NotAContainer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.mflash")
	require.NoError(t, os.WriteFile(path, []byte("just text, not a zip"), 0o644))

	_, err := container.Open(context.Background(), path)
	assert.ErrorIs(t, err, container.ErrNotAContainer)
}

func TestOpen_MissingManifest(t *testing.T) {
	path := writeZip(t, map[string][]byte{"deck.sqlite": []byte("irrelevant")})

	_, err := container.Open(context.Background(), path)
	assert.ErrorIs(t, err, container.ErrMissingManifest)
}

func TestOpen_MalformedManifest(t *testing.T) {
	path := writeZip(t, map[string][]byte{"manifest.json": []byte("{not json")})

	_, err := container.Open(context.Background(), path)
	assert.ErrorIs(t, err, container.ErrMalformedManifest)
}

func TestOpen_UnsupportedFormat(t *testing.T) {
	// No deck.sqlite entry on purpose: the format check must fire before
	// the database is even located.
	path := writeZip(t, map[string][]byte{
		"manifest.json": manifestJSON(t, func(m *models.Manifest) { m.Format = "anki.apkg" }),
	})

	_, err := container.Open(context.Background(), path)
	assert.ErrorIs(t, err, manifest.ErrUnsupportedFormat)
	assert.NotErrorIs(t, err, container.ErrMissingDatabase)
}

func TestOpen_UnsupportedVersion(t *testing.T) {
	path := writeZip(t, map[string][]byte{
		"manifest.json": manifestJSON(t, func(m *models.Manifest) { m.Version = 2 }),
	})

	_, err := container.Open(context.Background(), path)
	assert.ErrorIs(t, err, manifest.ErrUnsupportedVersion)
}

func TestOpen_MissingDatabase(t *testing.T) {
	path := writeZip(t, map[string][]byte{
		"manifest.json": manifestJSON(t, nil),
	})

	_, err := container.Open(context.Background(), path)
	assert.ErrorIs(t, err, container.ErrMissingDatabase)
}

func TestOpen_CorruptDatabase(t *testing.T) {
	path := writeZip(t, map[string][]byte{
		"manifest.json": manifestJSON(t, nil),
		"deck.sqlite":   []byte("this is not a sqlite file"),
	})

	_, err := container.Open(context.Background(), path)
	assert.ErrorIs(t, err, container.ErrCorruptDatabase)
}

func TestOpen_CardCountMismatch(t *testing.T) {
	dest := exportSample(t, sampleInput())

	tampered := repackZip(t, dest, "manifest.json", func(data []byte) []byte {
		var m models.Manifest
		require.NoError(t, json.Unmarshal(data, &m))
		m.CardCount = 99
		out, err := json.Marshal(m)
		require.NoError(t, err)
		return out
	})

	_, err := container.Open(context.Background(), tampered)
	assert.ErrorIs(t, err, manifest.ErrIntegrityMismatch)
}

func TestMediaFile_DanglingReference(t *testing.T) {
	in := sampleInput()
	// The a.mp3 row stays in the database but its blob is never packaged.
	delete(in.MediaBlobs, "a.mp3")
	dest := exportSample(t, in)

	d, err := container.Open(context.Background(), dest)
	require.NoError(t, err, "a dangling media reference must not fail the open")
	defer d.Close()

	assert.False(t, d.HasMedia("a.mp3"))
	_, err = d.MediaFile("a.mp3")
	assert.ErrorIs(t, err, container.ErrMediaFileMissing)

	blob, err := d.MediaFile("cover.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("fake image"), blob)
}

func TestThumbnail_AbsentIsNil(t *testing.T) {
	in := sampleInput()
	in.Thumbnail = nil
	dest := exportSample(t, in)

	d, err := container.Open(context.Background(), dest)
	require.NoError(t, err)
	defer d.Close()

	assert.False(t, d.Manifest().HasThumbnail)
	thumb, err := d.Thumbnail()
	require.NoError(t, err)
	assert.Nil(t, thumb)
}

func TestClose_Idempotent(t *testing.T) {
	dest := exportSample(t, sampleInput())

	d, err := container.Open(context.Background(), dest)
	require.NoError(t, err)

	dbPath := d.Store().Path()
	_, err = os.Stat(dbPath)
	require.NoError(t, err)

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	_, err = os.Stat(dbPath)
	assert.True(t, os.IsNotExist(err), "ephemeral database must be removed on close")

	// The archive itself is untouched and can be opened again.
	d2, err := container.Open(context.Background(), dest)
	require.NoError(t, err)
	require.NoError(t, d2.Close())
}

// writeZip builds a zip at a temp path with the given entries, in
// deterministic name order.
func writeZip(t *testing.T, entries map[string][]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crafted.mflash")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, name := range []string{"manifest.json", "deck.sqlite", "thumbnail.png"} {
		data, ok := entries[name]
		if !ok {
			continue
		}
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func manifestJSON(t *testing.T, mutate func(*models.Manifest)) []byte {
	t.Helper()
	m := manifest.Build(models.Deck{ID: 1, Name: "crafted"}, 0, manifest.Flags{}, "test", exportTime)
	if mutate != nil {
		mutate(&m)
	}
	data, err := json.Marshal(m)
	require.NoError(t, err)
	return data
}

// repackZip copies an archive, replacing the content of one entry.
func repackZip(t *testing.T, src, entry string, transform func([]byte) []byte) string {
	t.Helper()
	zr, err := zip.OpenReader(src)
	require.NoError(t, err)
	defer zr.Close()

	path := filepath.Join(t.TempDir(), "tampered.mflash")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)

	for _, zf := range zr.File {
		rc, err := zf.Open()
		require.NoError(t, err)
		var buf bytes.Buffer
		_, err = io.Copy(&buf, rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())

		data := buf.Bytes()
		if zf.Name == entry {
			data = transform(data)
		}
		w, err := zw.Create(zf.Name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}
