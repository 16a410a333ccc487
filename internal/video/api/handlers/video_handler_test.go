package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"

	"elearning_video_service/internal/video/domain"
	errprocess "elearning_video_service/pkg/err"
	"elearning_video_service/pkg/logger"
	"elearning_video_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.SetNewNop()
	os.Exit(m.Run())
}

type mockUseCase struct {
	mock.Mock
}

func (m *mockUseCase) EnqueueUpload(ctx context.Context, req domain.UploadVideoReq) (*domain.AssetView, error) {
	args := m.Called(req)
	if v := args.Get(0); v != nil {
		return v.(*domain.AssetView), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUseCase) GetAsset(ctx context.Context, videoID uint, ident domain.Identity) (*domain.AssetView, error) {
	args := m.Called(videoID, ident)
	if v := args.Get(0); v != nil {
		return v.(*domain.AssetView), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUseCase) GetLessonAsset(ctx context.Context, lessonID uint, ident domain.Identity) (*domain.AssetView, error) {
	args := m.Called(lessonID, ident)
	if v := args.Get(0); v != nil {
		return v.(*domain.AssetView), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUseCase) AttachThumbnail(ctx context.Context, req domain.UploadThumbnailReq) (*domain.AssetView, error) {
	args := m.Called(req)
	if v := args.Get(0); v != nil {
		return v.(*domain.AssetView), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUseCase) AttachLessonThumbnail(ctx context.Context, lessonID uint, req domain.UploadThumbnailReq) (*domain.AssetView, error) {
	args := m.Called(lessonID, req)
	if v := args.Get(0); v != nil {
		return v.(*domain.AssetView), args.Error(1)
	}
	return nil, args.Error(1)
}

// newTestApp wires the handler behind a stub identity middleware so the
// routes see the same locals the JWT middleware would set.
func newTestApp(uc *mockUseCase, ident domain.Identity) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(middlewares.TokenUserID, ident.UserID)
		c.Locals(middlewares.TokenRole, ident.Role)
		return c.Next()
	})

	h := &VideoHandler{UseCase: uc, MaxFileSizeMB: 1}
	app.Post("/lessons/:lessonId/video", h.UploadVideo)
	app.Get("/lessons/:lessonId/video", h.GetLessonVideo)
	app.Get("/videos/:id", h.GetVideo)
	app.Post("/videos/:id/thumbnail", h.UploadThumbnail)
	app.Post("/lessons/:lessonId/thumbnail", h.UploadLessonThumbnail)
	return app
}

func multipartBody(t *testing.T, fileName, mimeType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

var teacher = domain.Identity{UserID: "teacher-1", Role: domain.RoleTeacher}

func TestUploadVideoRoute(t *testing.T) {
	t.Run("accepted upload responds 202 with the asset view", func(t *testing.T) {
		uc := new(mockUseCase)
		uc.On("EnqueueUpload", mock.MatchedBy(func(req domain.UploadVideoReq) bool {
			return req.LessonID == 5 &&
				req.Identity == teacher &&
				req.OriginalFileName == "lecture.mp4" &&
				req.MimeType == "video/mp4"
		})).Return(&domain.AssetView{ID: 11, Status: domain.VideoUploaded}, nil)

		app := newTestApp(uc, teacher)
		body, contentType := multipartBody(t, "lecture.mp4", "video/mp4", []byte("raw"))
		req := httptest.NewRequest(http.MethodPost, "/lessons/5/video", body)
		req.Header.Set("Content-Type", contentType)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)

		var view domain.AssetView
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
		assert.Equal(t, uint(11), view.ID)
		assert.Equal(t, domain.VideoUploaded, view.Status)
	})

	t.Run("missing file is a 400", func(t *testing.T) {
		uc := new(mockUseCase)
		app := newTestApp(uc, teacher)

		req := httptest.NewRequest(http.MethodPost, "/lessons/5/video", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		uc.AssertNotCalled(t, "EnqueueUpload", mock.Anything)
	})

	t.Run("oversized file is rejected before the usecase runs", func(t *testing.T) {
		uc := new(mockUseCase)
		app := newTestApp(uc, teacher)

		big := bytes.Repeat([]byte("x"), 2*1024*1024)
		body, contentType := multipartBody(t, "big.mp4", "video/mp4", big)
		req := httptest.NewRequest(http.MethodPost, "/lessons/5/video", body)
		req.Header.Set("Content-Type", contentType)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		uc.AssertNotCalled(t, "EnqueueUpload", mock.Anything)
	})

	t.Run("usecase errors keep their status code", func(t *testing.T) {
		uc := new(mockUseCase)
		uc.On("EnqueueUpload", mock.Anything).
			Return(nil, errprocess.Forbidden("You do not have permission to modify this lesson"))

		app := newTestApp(uc, teacher)
		body, contentType := multipartBody(t, "lecture.mp4", "video/mp4", []byte("raw"))
		req := httptest.NewRequest(http.MethodPost, "/lessons/5/video", body)
		req.Header.Set("Content-Type", contentType)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestGetVideoRoute(t *testing.T) {
	t.Run("found asset is returned as json", func(t *testing.T) {
		uc := new(mockUseCase)
		uc.On("GetAsset", uint(20), teacher).
			Return(&domain.AssetView{ID: 20, Status: domain.VideoReady}, nil)

		app := newTestApp(uc, teacher)
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/videos/20", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("hidden asset surfaces as 404", func(t *testing.T) {
		uc := new(mockUseCase)
		uc.On("GetAsset", uint(20), mock.Anything).
			Return(nil, errprocess.NotFound("Video is not available"))

		app := newTestApp(uc, domain.Identity{UserID: "student-1", Role: domain.RoleStudent})
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/videos/20", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("non-numeric id is a 400", func(t *testing.T) {
		uc := new(mockUseCase)
		app := newTestApp(uc, teacher)
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/videos/abc", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("internal errors stay opaque", func(t *testing.T) {
		uc := new(mockUseCase)
		uc.On("GetAsset", uint(20), mock.Anything).
			Return(nil, io.ErrUnexpectedEOF)

		app := newTestApp(uc, teacher)
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/videos/20", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		payload, _ := io.ReadAll(resp.Body)
		assert.NotContains(t, string(payload), "unexpected EOF")
	})
}

func TestGetLessonVideoRoute(t *testing.T) {
	uc := new(mockUseCase)
	uc.On("GetLessonAsset", uint(5), teacher).
		Return(&domain.AssetView{ID: 21, Status: domain.VideoProcessing}, nil)

	app := newTestApp(uc, teacher)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/lessons/5/video", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var view domain.AssetView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, domain.VideoProcessing, view.Status)
}

func TestUploadThumbnailRoute(t *testing.T) {
	uc := new(mockUseCase)
	uc.On("AttachThumbnail", mock.MatchedBy(func(req domain.UploadThumbnailReq) bool {
		return req.VideoID == 30 && req.MimeType == "image/png"
	})).Return(&domain.AssetView{ID: 30, Status: domain.VideoReady}, nil)

	app := newTestApp(uc, teacher)
	body, contentType := multipartBody(t, "cover.png", "image/png", []byte("icon"))
	req := httptest.NewRequest(http.MethodPost, "/videos/30/thumbnail", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
