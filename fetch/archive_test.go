package fetch

import (
	"testing"

	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

type tarEntry struct {
	name string
	body string
	mode int64
	dir  bool
	link string
}

func makeTar(t *testing.T, entries []tarEntry) []byte {
	t.Helper()

	buf := new(bytes.Buffer)
	tw := tar.NewWriter(buf)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: e.mode}
		switch {
		case e.dir:
			hdr.Typeflag = tar.TypeDir
			if hdr.Mode == 0 {
				hdr.Mode = 0755
			}
		case e.link != "":
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = e.link
		default:
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(e.body))
			if hdr.Mode == 0 {
				hdr.Mode = 0644
			}
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write header %q: %v", e.name, err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := io.WriteString(tw, e.body); err != nil {
				t.Fatalf("write %q: %v", e.name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	return buf.Bytes()
}

var zlibTree = []tarEntry{
	{name: "zlib-1.3/", dir: true},
	{name: "zlib-1.3/configure", body: "#!/bin/sh\necho configured\n", mode: 0755},
	{name: "zlib-1.3/src/zlib.h", body: "#define ZLIB_VERSION \"1.3\"\n"},
	{name: "zlib-1.3/include", link: "src"},
}

func compress(t *testing.T, format string, bs []byte) []byte {
	t.Helper()

	buf := new(bytes.Buffer)
	var w io.WriteCloser
	switch format {
	case "tar":
		return bs
	case "gzip":
		w = gzip.NewWriter(buf)
	case "zstd":
		zw, err := zstd.NewWriter(buf)
		if err != nil {
			t.Fatal(err)
		}
		w = zw
	case "xz":
		xw, err := xz.NewWriter(buf)
		if err != nil {
			t.Fatal(err)
		}
		w = xw
	default:
		t.Fatalf("unknown format %q", format)
	}
	if _, err := w.Write(bs); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close compressor: %v", err)
	}
	return buf.Bytes()
}

func checkFile(t *testing.T, p, want string) {
	t.Helper()

	got, err := os.ReadFile(p)
	if err != nil {
		t.Errorf("read %s: %v", p, err)
		return
	}
	if string(got) != want {
		t.Errorf("%s: got %q, want %q", p, got, want)
	}
}

func checkZlibTree(t *testing.T, dest string) {
	t.Helper()

	checkFile(t, filepath.Join(dest, "configure"), "#!/bin/sh\necho configured\n")
	checkFile(t, filepath.Join(dest, "src", "zlib.h"), "#define ZLIB_VERSION \"1.3\"\n")
	checkFile(t, filepath.Join(dest, "include", "zlib.h"), "#define ZLIB_VERSION \"1.3\"\n")

	stat, err := os.Stat(filepath.Join(dest, "configure"))
	if err != nil {
		t.Fatal(err)
	}
	if stat.Mode().Perm()&0100 == 0 {
		t.Errorf("configure lost its exec bit: %v", stat.Mode())
	}
}

func TestExtract(t *testing.T) {
	archive := makeTar(t, zlibTree)

	for _, format := range []string{"tar", "gzip", "zstd", "xz"} {
		t.Run(format, func(t *testing.T) {
			tmp := t.TempDir()
			dest := filepath.Join(tmp, "SOURCES", "zlib")

			bs := compress(t, format, archive)
			if err := Extract(bytes.NewReader(bs), dest); err != nil {
				t.Fatalf("extract: %v", err)
			}
			checkZlibTree(t, dest)

			entries, err := os.ReadDir(filepath.Join(tmp, "SOURCES"))
			if err != nil {
				t.Fatal(err)
			}
			if len(entries) != 1 {
				t.Errorf("extraction left %d entries, want only zlib", len(entries))
			}
		})
	}
}

func TestExtract_noSingleTopDir(t *testing.T) {
	tmp := t.TempDir()
	dest := filepath.Join(tmp, "src")

	bs := makeTar(t, []tarEntry{
		{name: "README", body: "read me"},
		{name: "lib/a.c", body: "int a;"},
	})
	if err := Extract(bytes.NewReader(bs), dest); err != nil {
		t.Fatalf("extract: %v", err)
	}
	checkFile(t, filepath.Join(dest, "README"), "read me")
	checkFile(t, filepath.Join(dest, "lib", "a.c"), "int a;")
}

func TestExtract_escape(t *testing.T) {
	for _, name := range []string{"../evil", "a/../../evil", "/etc/evil"} {
		tmp := t.TempDir()
		dest := filepath.Join(tmp, "sub", "src")

		bs := makeTar(t, []tarEntry{{name: name, body: "boom"}})
		err := Extract(bytes.NewReader(bs), dest)
		if err == nil || !strings.Contains(err.Error(), "escapes") {
			t.Errorf("%q: got error %v, want an escape error", name, err)
		}
		if _, err := os.Stat(filepath.Join(tmp, "evil")); err == nil {
			t.Errorf("%q: file written outside of the destination", name)
		}
		if _, err := os.Stat(dest); err == nil {
			t.Errorf("%q: destination exists after failed extraction", name)
		}
	}
}

func TestExtract_symlinkEscape(t *testing.T) {
	for _, tc := range []struct {
		name    string
		entries func(outside string) []tarEntry
	}{{
		name: "absolute link",
		entries: func(outside string) []tarEntry {
			return []tarEntry{
				{name: "evil", link: outside},
				{name: "evil/pwned", body: "owned"},
			}
		},
	}, {
		name: "relative link",
		entries: func(string) []tarEntry {
			return []tarEntry{
				{name: "top/evil", link: "../../../outside"},
				{name: "top/evil/pwned", body: "owned"},
			}
		},
	}, {
		name: "write through link",
		entries: func(string) []tarEntry {
			return []tarEntry{
				{name: "top/src/", dir: true},
				{name: "top/alias", link: "src"},
				{name: "top/alias/zlib.h", body: "owned"},
			}
		},
	}} {
		t.Run(tc.name, func(t *testing.T) {
			tmp := t.TempDir()
			outside := filepath.Join(tmp, "outside")
			if err := os.Mkdir(outside, 0755); err != nil {
				t.Fatal(err)
			}
			dest := filepath.Join(tmp, "sub", "src")

			bs := makeTar(t, tc.entries(outside))
			err := Extract(bytes.NewReader(bs), dest)
			if err == nil || !strings.Contains(err.Error(), "escapes") {
				t.Errorf("got error %v, want an escape error", err)
			}
			if _, err := os.Stat(filepath.Join(outside, "pwned")); err == nil {
				t.Errorf("file written outside of the destination")
			}
			if _, err := os.Stat(dest); err == nil {
				t.Errorf("destination exists after failed extraction")
			}
		})
	}
}

func TestExtract_unsupported(t *testing.T) {
	tmp := t.TempDir()
	err := Extract(strings.NewReader("just some text"), filepath.Join(tmp, "src"))
	if err == nil || !strings.Contains(err.Error(), "unsupported archive format") {
		t.Errorf("got %v, want an unsupported format error", err)
	}
}

func TestExtractFile(t *testing.T) {
	tmp := t.TempDir()
	file := filepath.Join(tmp, "zlib-1.3.tar.gz")
	if err := os.WriteFile(file, compress(t, "gzip", makeTar(t, zlibTree)), 0644); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(tmp, "zlib")
	if err := ExtractFile(file, dest); err != nil {
		t.Fatalf("extract file: %v", err)
	}
	checkZlibTree(t, dest)

	if err := ExtractFile(filepath.Join(tmp, "missing.tgz"), dest); err == nil {
		t.Error("missing archive extracted")
	}
}

func TestParseS3URL(t *testing.T) {
	for _, test := range []struct {
		url, bucket, key string
		bad              bool
	}{
		{url: "s3://archives/zlib/zlib-1.3.tar.gz", bucket: "archives", key: "zlib/zlib-1.3.tar.gz"},
		{url: "s3://archives/x.tgz", bucket: "archives", key: "x.tgz"},
		{url: "s3://archives/", bad: true},
		{url: "s3:///x.tgz", bad: true},
	} {
		bucket, key, err := parseS3URL(test.url)
		if test.bad {
			if err == nil {
				t.Errorf("%q: got %q %q, want error", test.url, bucket, key)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: %v", test.url, err)
			continue
		}
		if bucket != test.bucket || key != test.key {
			t.Errorf(
				"%q: got %q %q, want %q %q",
				test.url, bucket, key, test.bucket, test.key,
			)
		}
	}
}
