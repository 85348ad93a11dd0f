package malha

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geodata-br/censomap/internal/census"
	"github.com/geodata-br/censomap/internal/fetcher"
)

// FetchShapefileMesh downloads the municipal mesh ZIP from geoftp (or any
// HTTP mirror), extracts it, and parses the contained shapefile.
func FetchShapefileMesh(ctx context.Context, f fetcher.Fetcher, meshURL, destDir string) ([]census.Geometry, error) {
	shpPath, err := Download(ctx, f, meshURL, destDir)
	if err != nil {
		return nil, err
	}
	return ParseShapefile(shpPath)
}

// Download fetches a mesh ZIP and extracts the shapefile set. Returns the
// path to the extracted .shp file. An existing non-empty ZIP is reused.
func Download(ctx context.Context, f fetcher.Fetcher, meshURL, destDir string) (string, error) {
	log := zap.L().With(
		zap.String("component", "malha.download"),
		zap.String("url", meshURL),
	)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", eris.Wrap(err, "malha: create dest dir")
	}

	parts := strings.Split(meshURL, "/")
	zipName := parts[len(parts)-1]
	zipPath := filepath.Join(destDir, zipName)

	if info, err := os.Stat(zipPath); err == nil && info.Size() > 0 {
		log.Debug("zip already exists, skipping download", zap.String("path", zipPath))
	} else {
		log.Info("downloading municipal mesh")
		if _, err := f.DownloadToFile(ctx, meshURL, zipPath); err != nil {
			return "", eris.Wrap(err, "malha: download mesh zip")
		}
	}

	extractDir := filepath.Join(destDir, strings.TrimSuffix(zipName, ".zip"))
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return "", eris.Wrap(err, "malha: create extract dir")
	}

	if err := extractZIP(zipPath, extractDir); err != nil {
		return "", eris.Wrap(err, "malha: extract zip")
	}

	shpPath, err := findFileByExt(extractDir, ".shp")
	if err != nil {
		return "", eris.Wrap(err, "malha: find .shp file")
	}

	return shpPath, nil
}

// extractZIP extracts a ZIP archive to the destination directory.
func extractZIP(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return eris.Wrap(err, "open zip")
	}
	defer r.Close() //nolint:errcheck

	for _, f := range r.File {
		name := filepath.Base(f.Name)
		destPath := filepath.Join(destDir, name)

		if f.FileInfo().IsDir() {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return eris.Wrapf(err, "open zip entry %s", f.Name)
		}

		outFile, err := os.Create(destPath)
		if err != nil {
			_ = rc.Close()
			return eris.Wrapf(err, "create %s", destPath)
		}

		if _, err := io.Copy(outFile, rc); err != nil {
			_ = outFile.Close()
			_ = rc.Close()
			return eris.Wrapf(err, "extract %s", f.Name)
		}
		_ = outFile.Close()
		_ = rc.Close()
	}

	return nil
}

// findFileByExt finds the first file with the given extension in a directory.
func findFileByExt(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", eris.Wrap(err, "read directory")
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ext) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", eris.Errorf("no %s file found in %s", ext, dir)
}
