package pocketbase

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// ReleaseBaseURL is where release archives are fetched from. Tests and
// mirrors override it on the Installer.
const ReleaseBaseURL = "https://github.com/pocketbase/pocketbase/releases/download"

// ErrBinaryMissing means no installed binary was found; the user needs
// to run the install command first.
var ErrBinaryMissing = errors.New("pocketbase binary not installed")

// Installer downloads and unpacks a pinned PocketBase release.
type Installer struct {
	BaseURL string
	BinDir  string
	http    *http.Client
}

// NewInstaller returns an Installer placing binaries under binDir.
func NewInstaller(binDir string) *Installer {
	return &Installer{
		BaseURL: ReleaseBaseURL,
		BinDir:  binDir,
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
}

func binaryName() string {
	if runtime.GOOS == "windows" {
		return "pocketbase.exe"
	}
	return "pocketbase"
}

// BinaryPath returns where the installed executable lives.
func (i *Installer) BinaryPath() string {
	return filepath.Join(i.BinDir, binaryName())
}

func (i *Installer) stampPath() string {
	return filepath.Join(i.BinDir, ".version")
}

// InstalledVersion returns the version stamp of the current binary, or
// "" when nothing is installed.
func (i *Installer) InstalledVersion() string {
	if _, err := os.Stat(i.BinaryPath()); err != nil {
		return ""
	}
	data, err := os.ReadFile(i.stampPath())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// AssetName returns the release archive name for version on this platform.
func AssetName(version string) string {
	return fmt.Sprintf("pocketbase_%s_%s_%s.zip", version, runtime.GOOS, runtime.GOARCH)
}

// EnsureInstalled verifies the binary exists, returning ErrBinaryMissing
// with guidance when it does not.
func (i *Installer) EnsureInstalled() error {
	if _, err := os.Stat(i.BinaryPath()); err != nil {
		return fmt.Errorf("%w (run `pbj install`)", ErrBinaryMissing)
	}
	return nil
}

// Install downloads the archive for version and unpacks the executable
// into BinDir. A matching installed version is a no-op unless force is
// set.
func (i *Installer) Install(version string, force bool) error {
	if !force && i.InstalledVersion() == version {
		log.Info("PocketBase already installed", "version", version)
		return nil
	}

	url := fmt.Sprintf("%s/v%s/%s", i.BaseURL, version, AssetName(version))
	log.Info("Downloading PocketBase", "version", version, "url", url)

	resp, err := i.http.Get(url)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: status %d", url, resp.StatusCode)
	}

	archive, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	if err := os.MkdirAll(i.BinDir, 0755); err != nil {
		return fmt.Errorf("create bin dir: %w", err)
	}
	if err := i.extract(archive); err != nil {
		return err
	}
	if err := os.WriteFile(i.stampPath(), []byte(version+"\n"), 0644); err != nil {
		return fmt.Errorf("write version stamp: %w", err)
	}
	log.Info("Installed PocketBase", "version", version, "path", i.BinaryPath())
	return nil
}

// extract pulls the executable out of the release zip. The archive also
// carries CHANGELOG and LICENSE entries which are skipped.
func (i *Installer) extract(archive []byte) error {
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	for _, file := range reader.File {
		if filepath.Base(file.Name) != binaryName() {
			continue
		}
		src, err := file.Open()
		if err != nil {
			return fmt.Errorf("open %s in archive: %w", file.Name, err)
		}
		defer src.Close()

		dst, err := os.OpenFile(i.BinaryPath(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
		if err != nil {
			return fmt.Errorf("create binary: %w", err)
		}
		if _, err := io.Copy(dst, src); err != nil {
			dst.Close()
			return fmt.Errorf("extract binary: %w", err)
		}
		return dst.Close()
	}
	return fmt.Errorf("archive has no %s entry", binaryName())
}
