package spaces

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentTypeForKey(t *testing.T) {
	cases := []struct {
		key  string
		want string
	}{
		{"hls/123/master.m3u8", "application/vnd.apple.mpegurl"},
		{"hls/123/segment_000.ts", "video/mp2t"},
		{"hls/123/poster.jpg", "image/jpeg"},
		{"hls/123/poster.JPG", "image/jpeg"},
		{"hls/123/poster.png", "image/png"},
		{"hls/123/unknown.bin", "application/octet-stream"},
		{"noextension", "application/octet-stream"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ContentTypeForKey(tc.key), "key=%s", tc.key)
	}
}

func TestFullKeyPrefixing(t *testing.T) {
	c := &client{keyPrefix: "jobreel-storage"}
	assert.Equal(t, "jobreel-storage/hls/7/master.m3u8", c.fullKey("/hls/7/master.m3u8"))

	bare := &client{}
	assert.Equal(t, "hls/7/master.m3u8", bare.fullKey("hls/7/master.m3u8"))
}

func TestPublicURL(t *testing.T) {
	c := &client{cdnURL: "https://videos.cdn.example.com", keyPrefix: ""}
	assert.Equal(t, "https://videos.cdn.example.com/hls/7/master.m3u8", c.PublicURL("hls/7/master.m3u8"))

	unset := &client{}
	assert.Equal(t, "", unset.PublicURL("hls/7/master.m3u8"))
}
