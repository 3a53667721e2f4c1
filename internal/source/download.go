package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"lightsd-formula/internal/fileutil"
	"lightsd-formula/internal/logging"
	"lightsd-formula/internal/services"
)

// download places the archive in the download cache and returns its path. A
// cached file whose digest already matches is reused.
func (f *Fetcher) download(ctx context.Context, origin Origin) (string, error) {
	parsed, err := url.Parse(origin.URL)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, step, "download", "", err)
	}
	base := path.Base(parsed.Path)
	if base == "." || base == "/" || base == "" {
		return "", services.Wrap(services.ErrConfiguration, step, "download", fmt.Sprintf("cannot name archive from %q", origin.URL), nil)
	}
	if err := os.MkdirAll(f.downloadDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrBuild, step, "download", "", err)
	}
	target := filepath.Join(f.downloadDir, origin.SHA256[:12]+"-"+base)

	if sum, err := fileutil.HashFile(target); err == nil && sum == origin.SHA256 {
		logging.WithContext(ctx, f.logger).Debug("archive cache hit", logging.String("path", target))
		return target, nil
	}

	body, err := f.open(ctx, parsed)
	if err != nil {
		return "", err
	}
	defer body.Close()

	tmp, err := os.CreateTemp(f.downloadDir, ".download-*")
	if err != nil {
		return "", services.Wrap(services.ErrBuild, step, "download", "", err)
	}
	defer os.Remove(tmp.Name())

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, hasher), body); err != nil {
		_ = tmp.Close()
		return "", services.Wrap(services.ErrBuild, step, "download", origin.URL, err)
	}
	if err := tmp.Close(); err != nil {
		return "", services.Wrap(services.ErrBuild, step, "download", "", err)
	}
	sum := hex.EncodeToString(hasher.Sum(nil))
	if sum != origin.SHA256 {
		return "", services.Wrap(services.ErrBuild, step, "verify", fmt.Sprintf("sha256 mismatch: got %s want %s", sum, origin.SHA256), nil)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", services.Wrap(services.ErrBuild, step, "download", "", err)
	}
	return target, nil
}

func (f *Fetcher) open(ctx context.Context, parsed *url.URL) (io.ReadCloser, error) {
	if parsed.Scheme == "file" {
		file, err := os.Open(parsed.Path)
		if err != nil {
			return nil, services.Wrap(services.ErrBuild, step, "download", "", err)
		}
		return file, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, step, "download", "build request", err)
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrBuild, step, "download", "request failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		return nil, services.Wrap(services.ErrBuild, step, "download", fmt.Sprintf("%s: %s", resp.Status, strings.TrimSpace(string(snippet))), nil)
	}
	return resp.Body, nil
}
