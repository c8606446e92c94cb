package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facemark/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/facemark/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/facemark/internal/domain"
	"github.com/saturnino-fabrica-de-software/facemark/internal/model"
	"github.com/saturnino-fabrica-de-software/facemark/internal/provider"
	"github.com/saturnino-fabrica-de-software/facemark/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/facemark/internal/provider/pigo"
	"github.com/saturnino-fabrica-de-software/facemark/internal/render"
	"github.com/saturnino-fabrica-de-software/facemark/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newProvisioner returns a provisioner whose model file already exists, so
// Ensure never reaches the network.
func newProvisioner(t *testing.T, faces int) *model.Provisioner {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.dat")
	require.NoError(t, os.WriteFile(path, []byte("model"), 0o644))

	loader := func(ctx context.Context) (*provider.Capabilities, error) {
		return &provider.Capabilities{
			Locator:   &mock.Locator{Faces: faces},
			Predictor: &mock.Predictor{},
		}, nil
	}
	assets := []model.Asset{{Name: "landmark model", Path: path, URL: "http://127.0.0.1:0/unused"}}
	return model.NewProvisioner(assets, model.NewFetcher(model.DefaultFetcherConfig()), loader, testLogger())
}

func setupRouter(t *testing.T, p *model.Provisioner, cfg Config) *Router {
	t.Helper()
	deps := &Dependencies{
		Service:   service.NewLandmarkService(p, render.New()),
		Readiness: p,
	}
	r := NewRouter(testLogger(), deps, cfg)
	r.Setup()
	t.Cleanup(func() { _ = r.Shutdown() })
	return r
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 90, G: uint8(x % 256), B: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func uploadRequest(t *testing.T, path string, content []byte, contentType string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="face.jpg"`)
	h.Set("Content-Type", contentType)
	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestRouter_HealthBeforeModelLoads(t *testing.T) {
	r := setupRouter(t, newProvisioner(t, 1), Config{})

	resp, err := r.App().Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var health handler.HealthResponse
	require.NoError(t, jsoniter.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)

	resp, err = r.App().Test(httptest.NewRequest("GET", "/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)
}

func TestRouter_ProcessImageNotReady(t *testing.T) {
	r := setupRouter(t, newProvisioner(t, 1), Config{})

	resp, err := r.App().Test(uploadRequest(t, "/process-image/", jpegBytes(t, 64, 64), "image/jpeg"))
	require.NoError(t, err)

	assert.Equal(t, 503, resp.StatusCode)
	assert.Equal(t, "5", resp.Header.Get("Retry-After"))
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))

	var errResp middleware.ErrorResponse
	require.NoError(t, jsoniter.NewDecoder(resp.Body).Decode(&errResp))
	assert.Equal(t, domain.ErrNotReady.Message, errResp.Error)
}

func TestRouter_ProcessImage(t *testing.T) {
	p := newProvisioner(t, 2)
	require.NoError(t, p.Ensure(context.Background()))
	r := setupRouter(t, p, Config{})

	resp, err := r.App().Test(httptest.NewRequest("GET", "/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	for _, path := range []string{"/process-image", "/process-image/"} {
		t.Run(path, func(t *testing.T) {
			resp, err := r.App().Test(uploadRequest(t, path, jpegBytes(t, 200, 100), "image/jpeg"), -1)
			require.NoError(t, err)
			require.Equal(t, 200, resp.StatusCode)

			var result handler.ProcessImageResponse
			require.NoError(t, jsoniter.NewDecoder(resp.Body).Decode(&result))

			require.Len(t, result.Landmarks, 2)
			for _, face := range result.Landmarks {
				assert.Len(t, face.Landmarks, domain.LandmarkCount)
			}

			raw, err := base64.StdEncoding.DecodeString(result.Image)
			require.NoError(t, err)
			annotated, err := jpeg.Decode(bytes.NewReader(raw))
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 200, 100), annotated.Bounds())
		})
	}
}

func TestRouter_ProcessImageErrors(t *testing.T) {
	p := newProvisioner(t, 0)
	require.NoError(t, p.Ensure(context.Background()))
	r := setupRouter(t, p, Config{})

	tests := []struct {
		name        string
		content     []byte
		contentType string
		wantStatus  int
		wantError   string
	}{
		{"no faces", jpegBytes(t, 64, 64), "image/jpeg", 400, "No faces detected in the image"},
		{"not an image", []byte("plain text"), "text/plain", 400, "File must be an image"},
		{"corrupt image", []byte("not really a jpeg"), "image/jpeg", 400, "Could not read the image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := r.App().Test(uploadRequest(t, "/process-image", tt.content, tt.contentType))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var errResp middleware.ErrorResponse
			require.NoError(t, jsoniter.NewDecoder(resp.Body).Decode(&errResp))
			assert.Equal(t, tt.wantError, errResp.Error)
		})
	}
}

// contrastCascade packs a one-tree pigo cascade that only fires where the
// left side of a window is brighter than its right side.
func contrastCascade() []byte {
	b := make([]byte, 8)
	b = binary.LittleEndian.AppendUint32(b, 1)
	b = binary.LittleEndian.AppendUint32(b, 1)
	b = append(b, 0, 0xC0, 0, 64)
	b = binary.LittleEndian.AppendUint32(b, math.Float32bits(1))
	b = binary.LittleEndian.AppendUint32(b, math.Float32bits(-1))
	return binary.LittleEndian.AppendUint32(b, math.Float32bits(0))
}

func TestRouter_ProcessImageUniformThroughPigo(t *testing.T) {
	cfg := pigo.DefaultConfig()
	cfg.MinSize = 20
	cfg.MaxSize = 100
	cfg.ScoreThreshold = 0
	locator, err := pigo.NewLocator(contrastCascade(), cfg)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.dat")
	require.NoError(t, os.WriteFile(path, []byte("model"), 0o644))
	loader := func(ctx context.Context) (*provider.Capabilities, error) {
		return &provider.Capabilities{Locator: locator, Predictor: &mock.Predictor{}}, nil
	}
	assets := []model.Asset{{Name: "landmark model", Path: path, URL: "http://127.0.0.1:0/unused"}}
	p := model.NewProvisioner(assets, model.NewFetcher(model.DefaultFetcherConfig()), loader, testLogger())
	require.NoError(t, p.Ensure(context.Background()))
	r := setupRouter(t, p, Config{})

	img := image.NewGray(image.Rect(0, 0, 100, 100))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	resp, err := r.App().Test(uploadRequest(t, "/process-image", buf.Bytes(), "image/png"), -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	var errResp middleware.ErrorResponse
	require.NoError(t, jsoniter.NewDecoder(resp.Body).Decode(&errResp))
	assert.Equal(t, "No faces detected in the image", errResp.Error)
}

func TestRouter_RateLimit(t *testing.T) {
	r := setupRouter(t, newProvisioner(t, 1), Config{RateLimitRPS: 0.01, RateLimitBurst: 1})

	resp, err := r.App().Test(uploadRequest(t, "/process-image", []byte("x"), "text/plain"))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	resp, err = r.App().Test(uploadRequest(t, "/process-image", []byte("x"), "text/plain"))
	require.NoError(t, err)
	assert.Equal(t, 429, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	// health is never limited
	resp, err = r.App().Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestRouter_Static(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>facemark</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))

	r := setupRouter(t, newProvisioner(t, 1), Config{StaticDir: dir})

	resp, err := r.App().Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "facemark")

	resp, err = r.App().Test(httptest.NewRequest("GET", "/static/app.js", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestRouter_MissingStaticDir(t *testing.T) {
	r := setupRouter(t, newProvisioner(t, 1), Config{StaticDir: filepath.Join(t.TempDir(), "missing")})

	resp, err := r.App().Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}
