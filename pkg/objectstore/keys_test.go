package objectstore

import "testing"

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My Site", "my-site"},
		{"already-clean-1", "already-clean-1"},
		{"Weird!@#Name", "weird---name"},
		{"ÜmläutS", "-ml-uts"},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	t.Run("idempotent", func(t *testing.T) {
		for _, s := range []string{"My Site", "a!b@c", "plain"} {
			once := Sanitize(s)
			if twice := Sanitize(once); twice != once {
				t.Errorf("Sanitize not idempotent on %q: %q != %q", s, once, twice)
			}
		}
	})
}

func TestKeyGrammar(t *testing.T) {
	prefix := ProjectPrefix("My Site", "p1")
	if prefix != "my-site-p1" {
		t.Fatalf("unexpected prefix %q", prefix)
	}

	if got := OriginalImageKey(prefix, "f1", "png"); got != "my-site-p1/images/original/f1.png" {
		t.Errorf("original key: %q", got)
	}
	if got := VariantKey(prefix, "thumb", "f1", "webp"); got != "my-site-p1/images/thumb/f1.webp" {
		t.Errorf("variant key: %q", got)
	}
	if got := RawFileKey(prefix, "f1", "pdf"); got != "my-site-p1/files/f1.pdf" {
		t.Errorf("raw file key: %q", got)
	}
}

func TestExtensionForMIME(t *testing.T) {
	tests := []struct {
		mime string
		want string
	}{
		{"image/avif", "avif"},
		{"image/webp", "webp"},
		{"image/png", "png"},
		{"image/jpeg", "jpg"},
		{"image/jpg", "jpg"},
		{"application/pdf", "bin"},
		{"", "bin"},
	}
	for _, tt := range tests {
		if got := ExtensionForMIME(tt.mime); got != tt.want {
			t.Errorf("ExtensionForMIME(%q) = %q, want %q", tt.mime, got, tt.want)
		}
	}
}

func TestExtensionForFilename(t *testing.T) {
	if got := ExtensionForFilename("report.PDF", "application/pdf"); got != "pdf" {
		t.Errorf("filename extension: %q", got)
	}
	if got := ExtensionForFilename("noext", "image/png"); got != "png" {
		t.Errorf("mime fallback: %q", got)
	}
	if got := ExtensionForFilename("blob", "application/octet-stream"); got != "bin" {
		t.Errorf("unknown fallback: %q", got)
	}
}

func TestResolveKey(t *testing.T) {
	tests := []struct {
		name   string
		bucket string
		value  string
		want   string
	}{
		{
			name:   "virtual hosted url",
			bucket: "bucket",
			value:  "https://bucket.s3.us-east-1.amazonaws.com/a/b/c.jpg",
			want:   "a/b/c.jpg",
		},
		{
			name:   "path style url with bucket segment",
			bucket: "bucket",
			value:  "https://cdn.example/bucket/a/b/c.jpg",
			want:   "a/b/c.jpg",
		},
		{
			name:   "bare key passes through",
			bucket: "bucket",
			value:  "a/b/c.jpg",
			want:   "a/b/c.jpg",
		},
		{
			name:   "minio endpoint path style",
			bucket: "media",
			value:  "http://localhost:9000/media/site-1/images/thumb/f1.webp",
			want:   "site-1/images/thumb/f1.webp",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveKey(tt.bucket, tt.value); got != tt.want {
				t.Errorf("ResolveKey(%q, %q) = %q, want %q", tt.bucket, tt.value, got, tt.want)
			}
		})
	}
}
