package service

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejanapp/api/internal/client"
	"github.com/ejanapp/api/internal/model"
	"github.com/ejanapp/api/internal/repository"
)

var jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46}
var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00}
var webpBytes = append([]byte("RIFF"), append([]byte{0, 0, 0, 0}, []byte("WEBP")...)...)

func newStyleService() (*StyleService, *client.MemoryStorage, *repository.MemoryStyleRepository) {
	storage := client.NewMemoryStorage()
	repo := repository.NewMemoryStyleRepository()
	images := NewImageService(&fakeGenerator{configured: false}, geminiTestConfig)
	return NewStyleService(images, storage, repo), storage, repo
}

func TestDecodePhoto(t *testing.T) {
	t.Run("valid jpeg", func(t *testing.T) {
		data, mime, err := decodePhoto(base64.StdEncoding.EncodeToString(jpegBytes))
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", mime)
		assert.Equal(t, jpegBytes, data)
	})

	t.Run("data uri prefix", func(t *testing.T) {
		encoded := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
		_, mime, err := decodePhoto(encoded)
		require.NoError(t, err)
		assert.Equal(t, "image/png", mime)
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, _, err := decodePhoto("not!!base64@@")
		var vErr *model.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "photo", vErr.Field)
	})

	t.Run("oversized", func(t *testing.T) {
		big := make([]byte, model.MaxPhotoBytes+1)
		copy(big, jpegBytes)
		_, _, err := decodePhoto(base64.StdEncoding.EncodeToString(big))
		var vErr *model.ValidationError
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, _, err := decodePhoto(base64.StdEncoding.EncodeToString([]byte("GIF89a junk")))
		var vErr *model.ValidationError
		require.ErrorAs(t, err, &vErr)
	})
}

func TestSniffImageType(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want string
		ok   bool
	}{
		{"jpeg", jpegBytes, "image/jpeg", true},
		{"png", pngBytes, "image/png", true},
		{"webp", webpBytes, "image/webp", true},
		{"empty", nil, "", false},
		{"text", []byte("hello world, not an image"), "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := sniffImageType(tc.data)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGenerateStyles_ReturnsFixedCount(t *testing.T) {
	svc, storage, _ := newStyleService()

	req := &model.StyleGenerateRequest{
		Photo:  base64.StdEncoding.EncodeToString(jpegBytes),
		Gender: model.GenderFemale,
	}

	resp, err := svc.GenerateStyles(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Styles, model.StylesPerRequest)

	for _, style := range resp.Styles {
		assert.NotEmpty(t, style.ID)
		assert.NotEmpty(t, style.Title)
		assert.NotEmpty(t, style.ImageURL)
	}
	assert.Equal(t, model.StylesPerRequest, storage.ObjectCount())
}

func TestGenerateStyles_InvalidPhoto(t *testing.T) {
	svc, _, _ := newStyleService()

	_, err := svc.GenerateStyles(context.Background(), &model.StyleGenerateRequest{
		Photo:  "%%%",
		Gender: model.GenderNeutral,
	})
	var vErr *model.ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestGetStyle_Roundtrip(t *testing.T) {
	svc, _, _ := newStyleService()

	resp, err := svc.GenerateStyles(context.Background(), &model.StyleGenerateRequest{
		Photo:  base64.StdEncoding.EncodeToString(pngBytes),
		Gender: model.GenderMale,
	})
	require.NoError(t, err)

	detail, err := svc.GetStyle(context.Background(), resp.Styles[0].ID)
	require.NoError(t, err)
	assert.Equal(t, resp.Styles[0].ID, detail.ID)
	assert.NotEmpty(t, detail.RawDescription, "detail view exposes the full style text")
}

func TestGetStyle_NotFound(t *testing.T) {
	svc, _, _ := newStyleService()

	_, err := svc.GetStyle(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrStyleNotFound)
}
