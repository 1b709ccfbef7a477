package fetch

import (
	"archive/tar"
	"bufio"
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/crane"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/platformbuild/pbuild/prodinfo"
)

// S3Client gets objects from S3.
type S3Client interface {
	GetObject(
		ctx context.Context,
		params *s3.GetObjectInput,
		optFns ...func(*s3.Options),
	) (*s3.GetObjectOutput, error)
}

func newS3Client(ctx context.Context) (S3Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// ImagePuller fetches a container image by reference.
type ImagePuller func(ctx context.Context, ref string) (v1.Image, error)

func pullImage(ctx context.Context, ref string) (v1.Image, error) {
	return crane.Pull(
		ref,
		crane.WithContext(ctx),
		crane.WithAuthFromKeychain(authn.DefaultKeychain),
	)
}

const (
	s3Scheme  = "s3://"
	ociScheme = "oci://"
)

func (f *Fetcher) fetchArchive(ctx context.Context, p *prodinfo.Product, s *prodinfo.ArchiveSource) error {
	switch {
	case strings.HasPrefix(s.URL, s3Scheme):
		file, err := f.downloadS3(ctx, s.URL)
		if err != nil {
			return err
		}
		f.logf("%s: unpacking %s", p.Name, file)
		return ExtractFile(file, p.SourceDir)

	case strings.HasPrefix(s.URL, ociScheme):
		ref := strings.TrimPrefix(s.URL, ociScheme)
		pull := f.Pull
		if pull == nil {
			pull = pullImage
		}
		f.logf("%s: pulling %s", p.Name, ref)
		img, err := pull(ctx, ref)
		if err != nil {
			return fmt.Errorf("pull %s: %w", ref, err)
		}
		rc := mutate.Extract(img)
		defer rc.Close()
		return Extract(rc, p.SourceDir)
	}

	f.logf("%s: unpacking %s", p.Name, s.URL)
	return ExtractFile(s.URL, p.SourceDir)
}

func parseS3URL(u string) (bucket, key string, err error) {
	parsed, err := url.Parse(u)
	if err != nil {
		return "", "", fmt.Errorf("parse %q: %w", u, err)
	}
	key = strings.TrimPrefix(parsed.Path, "/")
	if parsed.Host == "" || key == "" {
		return "", "", fmt.Errorf("%q is not an s3://bucket/key url", u)
	}
	return parsed.Host, key, nil
}

// downloadS3 downloads the object into the archive dir, and returns the
// file path. Archives downloaded before are reused unless forced.
func (f *Fetcher) downloadS3(ctx context.Context, u string) (string, error) {
	bucket, key, err := parseS3URL(u)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(f.App.ArchiveDir, path.Base(key))
	if _, err := os.Stat(dst); err == nil && !f.Force {
		f.logf("using downloaded %s", dst)
		return dst, nil
	}

	newClient := f.S3
	if newClient == nil {
		newClient = newS3Client
	}
	client, err := newClient(ctx)
	if err != nil {
		return "", err
	}

	f.logf("downloading %s", u)
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("get %s: %w", u, err)
	}
	defer out.Body.Close()

	if err := os.MkdirAll(f.App.ArchiveDir, 0755); err != nil {
		return "", fmt.Errorf("make archive dir: %w", err)
	}
	tmp := dst + ".part"
	w, err := os.Create(tmp)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(w, out.Body); err != nil {
		w.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("download %s: %w", u, err)
	}
	if err := w.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// ExtractFile unpacks the archive file into dest.
func ExtractFile(file, dest string) error {
	r, err := os.Open(file)
	if err != nil {
		return err
	}
	defer r.Close()
	if err := Extract(r, dest); err != nil {
		return fmt.Errorf("extract %s: %w", file, err)
	}
	return nil
}

// sniffLen is how many bytes the format detection looks at.
const sniffLen = 3072

func decompress(r *bufio.Reader) (io.Reader, func(), error) {
	head, err := r.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("read archive header: %w", err)
	}
	noop := func() {}

	mt := mimetype.Detect(head)
	switch {
	case mt.Is("application/x-tar"):
		return r, noop, nil
	case mt.Is("application/gzip"):
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, func() { zr.Close() }, nil
	case mt.Is("application/zstd"):
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	case mt.Is("application/x-xz"):
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return xr, noop, nil
	case mt.Is("application/x-bzip2"):
		return bzip2.NewReader(r), noop, nil
	}
	return nil, nil, fmt.Errorf("unsupported archive format %s", mt.String())
}

// Extract unpacks a tar archive, plain or compressed with gzip, zstd, xz or
// bzip2, into dest. When all entries are under a single top-level
// directory, its content becomes the content of dest. Entries that would
// land outside of dest fail the extraction.
func Extract(r io.Reader, dest string) error {
	tr, done, err := decompress(bufio.NewReaderSize(r, sniffLen))
	if err != nil {
		return err
	}
	defer done()

	parent := filepath.Dir(dest)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return err
	}
	tmp, err := os.MkdirTemp(parent, ".extract-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	if err := untar(tar.NewReader(tr), tmp); err != nil {
		return err
	}

	root := tmp
	entries, err := os.ReadDir(tmp)
	if err != nil {
		return err
	}
	if len(entries) == 1 && entries[0].IsDir() {
		root = filepath.Join(tmp, entries[0].Name())
	}
	return os.Rename(root, dest)
}

func localPath(dir, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if !filepath.IsLocal(clean) {
		return "", fmt.Errorf("archive entry %q escapes the destination", name)
	}
	target := filepath.Join(dir, clean)
	if err := checkParents(dir, clean); err != nil {
		return "", err
	}
	return target, nil
}

// checkParents fails when a parent of the entry is a symlink, which
// would let the entry land wherever the link points.
func checkParents(dir, rel string) error {
	p := dir
	parts := strings.Split(rel, string(filepath.Separator))
	for _, part := range parts[:len(parts)-1] {
		p = filepath.Join(p, part)
		info, err := os.Lstat(p)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			return fmt.Errorf("archive entry %q escapes the destination through a symlink", rel)
		}
	}
	return nil
}

// checkLink fails when the symlink at target does not point inside dir.
func checkLink(dir, target, link string) error {
	if filepath.IsAbs(link) {
		return fmt.Errorf("archive symlink %q -> %q escapes the destination", target, link)
	}
	rel, err := filepath.Rel(dir, filepath.Join(filepath.Dir(target), link))
	if err != nil || !filepath.IsLocal(rel) {
		return fmt.Errorf("archive symlink %q -> %q escapes the destination", target, link)
	}
	return nil
}

func untar(tr *tar.Reader, dir string) error {
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil && !errors.Is(err, tar.ErrInsecurePath) {
			return fmt.Errorf("read archive: %w", err)
		}
		if path.Clean(hdr.Name) == "." {
			continue
		}

		target, err := localPath(dir, hdr.Name)
		if err != nil {
			return err
		}
		mode := os.FileMode(hdr.Mode).Perm()

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, mode|0700); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(tr, target, mode); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := checkLink(dir, target, hdr.Linkname); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		case tar.TypeLink:
			src, err := localPath(dir, hdr.Linkname)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			if err := os.Link(src, target); err != nil {
				return err
			}
		}
	}
}

func writeFile(r io.Reader, target string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	w, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode|0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("write %s: %w", target, err)
	}
	return w.Close()
}
