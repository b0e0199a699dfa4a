package weld_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/packweld/pkg/weld"
)

func decodeMcmeta(t *testing.T, data string) map[string]any {
	t.Helper()

	var meta struct {
		Pack map[string]any `json:"pack"`
	}
	gt.NoError(t, json.Unmarshal([]byte(data), &meta))
	return meta.Pack
}

func TestPack_Save(t *testing.T) {
	archive := func(t *testing.T) weld.Archive {
		return newArchive(t, "dp.zip", map[string]string{
			"pack.mcmeta":                       `{"pack":{"pack_format":15,"description":"Source"}}`,
			"data/foo/function/load.mcfunction": "say hi",
		})
	}

	t.Run("zipped output contains mcmeta and files", func(t *testing.T) {
		dir := t.TempDir()
		wctx := runWeld(t, weld.Options{}, archive(t))
		wctx.Data.Name = "welded-dp"

		path, err := wctx.Data.Save(dir, weld.SaveOptions{Zipped: true})
		gt.NoError(t, err)
		gt.Value(t, path).Equal(filepath.Join(dir, "welded-dp.zip"))

		files := readZip(t, path)
		gt.Value(t, files["data/foo/function/load.mcfunction"]).Equal("say hi")

		pack := decodeMcmeta(t, files["pack.mcmeta"])
		gt.Value(t, pack["pack_format"]).Equal(any(float64(15)))
		gt.Value(t, pack["description"]).Equal(any("Source"))
	})

	t.Run("pack_format follows minecraft metadata", func(t *testing.T) {
		dir := t.TempDir()
		wctx := runWeld(t, weld.Options{}, archive(t))
		wctx.Meta.SetDefault(weld.MetaMinecraft, "1.21")

		path, err := wctx.Data.Save(dir, weld.SaveOptions{Zipped: true})
		gt.NoError(t, err)

		pack := decodeMcmeta(t, readZip(t, path)["pack.mcmeta"])
		gt.Value(t, pack["pack_format"]).Equal(any(float64(48)))
	})

	t.Run("pack_format override from options", func(t *testing.T) {
		dir := t.TempDir()
		wctx := runWeld(t, weld.Options{
			Meta:        map[string]string{weld.MetaMinecraft: "1.99"},
			PackFormats: map[string]weld.PackFormats{"1.99": {Data: 99, Resource: 77}},
			Description: "Bundle",
		}, archive(t))

		path, err := wctx.Assets.Save(dir, weld.SaveOptions{Zipped: true})
		gt.NoError(t, err)

		pack := decodeMcmeta(t, readZip(t, path)["pack.mcmeta"])
		gt.Value(t, pack["pack_format"]).Equal(any(float64(77)))
		gt.Value(t, pack["description"]).Equal(any("Bundle"))
	})

	t.Run("empty side still gets pack.mcmeta", func(t *testing.T) {
		dir := t.TempDir()
		wctx := runWeld(t, weld.Options{}, archive(t))

		path, err := wctx.Assets.Save(dir, weld.SaveOptions{Zipped: true})
		gt.NoError(t, err)

		files := readZip(t, path)
		gt.A(t, mapKeys(files)).Length(1)
		gt.Value(t, decodeMcmeta(t, files["pack.mcmeta"])["description"]).Equal(any("Welded pack"))
	})

	t.Run("refuses to overwrite without option", func(t *testing.T) {
		dir := t.TempDir()
		wctx := runWeld(t, weld.Options{}, archive(t))

		_, err := wctx.Data.Save(dir, weld.SaveOptions{Zipped: true})
		gt.NoError(t, err)

		_, err = wctx.Data.Save(dir, weld.SaveOptions{Zipped: true})
		gt.True(t, errors.Is(err, weld.ErrAlreadyExists))

		_, err = wctx.Data.Save(dir, weld.SaveOptions{Zipped: true, Overwrite: true})
		gt.NoError(t, err)
	})

	t.Run("identical input yields identical archive", func(t *testing.T) {
		dir1, dir2 := t.TempDir(), t.TempDir()
		wctx := runWeld(t, weld.Options{}, archive(t))

		p1, err := wctx.Data.Save(dir1, weld.SaveOptions{Zipped: true})
		gt.NoError(t, err)
		p2, err := wctx.Data.Save(dir2, weld.SaveOptions{Zipped: true})
		gt.NoError(t, err)

		b1, err := os.ReadFile(p1)
		gt.NoError(t, err)
		b2, err := os.ReadFile(p2)
		gt.NoError(t, err)
		gt.Value(t, b1).Equal(b2)
	})

	t.Run("directory output", func(t *testing.T) {
		dir := t.TempDir()
		wctx := runWeld(t, weld.Options{}, archive(t))

		path, err := wctx.Data.Save(dir, weld.SaveOptions{})
		gt.NoError(t, err)

		content, err := os.ReadFile(filepath.Join(path, "data", "foo", "function", "load.mcfunction"))
		gt.NoError(t, err)
		gt.Value(t, string(content)).Equal("say hi")
		_, err = os.Stat(filepath.Join(path, "pack.mcmeta"))
		gt.NoError(t, err)
	})

	t.Run("closed context cannot save", func(t *testing.T) {
		wctx, err := weld.Run(context.Background(), []weld.Archive{archive(t)}, weld.Options{})
		gt.NoError(t, err)
		gt.NoError(t, wctx.Close())
		gt.NoError(t, wctx.Close())

		_, err = wctx.Data.Save(t.TempDir(), weld.SaveOptions{Zipped: true})
		gt.True(t, errors.Is(err, weld.ErrContextClosed))
	})
}

func mapKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
