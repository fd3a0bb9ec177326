package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietwire/dmcore/internal/devicesync/domain"
	"github.com/quietwire/dmcore/internal/devicesync/usecase"
	"github.com/quietwire/dmcore/internal/httputil"
)

// fakeSyncUseCase is an in-package fake for usecase.SyncUseCase.
type fakeSyncUseCase struct {
	result     *usecase.SyncResult
	requestErr error
	confirmErr error
	devices    []*domain.DeviceRegistration

	lastChallengeID uuid.UUID
	lastCode        string
}

func (f *fakeSyncUseCase) RequestSync(
	context.Context,
	uuid.UUID,
	string, string, string,
) (*usecase.SyncResult, error) {
	return f.result, f.requestErr
}

func (f *fakeSyncUseCase) ConfirmVerification(_ context.Context, challengeID uuid.UUID, code string) error {
	f.lastChallengeID = challengeID
	f.lastCode = code
	return f.confirmErr
}

func (f *fakeSyncUseCase) ListDevices(context.Context, uuid.UUID) ([]*domain.DeviceRegistration, error) {
	return f.devices, nil
}

func setupSyncRouter(sync *fakeSyncUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewSyncHandler(sync, logger)

	router := gin.New()
	handler.RegisterRoutes(router)
	return router
}

func doSyncRequest(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(httputil.UserIDHeader, uuid.Must(uuid.NewV7()).String())

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func validSyncBody() map[string]string {
	return map[string]string{
		"passphrase":  "a strong passphrase",
		"fingerprint": "fp-phone",
		"device_type": "mobile",
	}
}

func TestSyncHandler_RequestSyncHandler(t *testing.T) {
	t.Run("VerifiedDevice", func(t *testing.T) {
		sync := &fakeSyncUseCase{result: &usecase.SyncResult{Verified: true}}
		router := setupSyncRouter(sync)

		recorder := doSyncRequest(t, router, http.MethodPost, "/sync/request", validSyncBody())

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.JSONEq(t, `{"verified":true}`, recorder.Body.String())
	})

	t.Run("VerificationRequired", func(t *testing.T) {
		challengeID := uuid.Must(uuid.NewV7())
		sync := &fakeSyncUseCase{result: &usecase.SyncResult{Verified: false, ChallengeID: challengeID}}
		router := setupSyncRouter(sync)

		recorder := doSyncRequest(t, router, http.MethodPost, "/sync/request", validSyncBody())

		assert.Equal(t, http.StatusAccepted, recorder.Code)

		var response map[string]any
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		assert.Equal(t, false, response["verified"])
		assert.Equal(t, challengeID.String(), response["challenge_id"])
	})

	t.Run("InvalidDeviceType", func(t *testing.T) {
		router := setupSyncRouter(&fakeSyncUseCase{})

		body := validSyncBody()
		body["device_type"] = "toaster"
		recorder := doSyncRequest(t, router, http.MethodPost, "/sync/request", body)

		assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	})

	t.Run("MissingPassphrase", func(t *testing.T) {
		router := setupSyncRouter(&fakeSyncUseCase{})

		body := validSyncBody()
		delete(body, "passphrase")
		recorder := doSyncRequest(t, router, http.MethodPost, "/sync/request", body)

		assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	})
}

func TestSyncHandler_ConfirmVerificationHandler(t *testing.T) {
	challengeID := uuid.Must(uuid.NewV7())

	t.Run("Success", func(t *testing.T) {
		sync := &fakeSyncUseCase{}
		router := setupSyncRouter(sync)

		recorder := doSyncRequest(t, router, http.MethodPost, "/sync/confirm",
			map[string]string{"challenge_id": challengeID.String(), "code": "123456"})

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, challengeID, sync.lastChallengeID)
		assert.Equal(t, "123456", sync.lastCode)
	})

	t.Run("WrongCode", func(t *testing.T) {
		sync := &fakeSyncUseCase{confirmErr: domain.ErrInvalidVerificationCode}
		router := setupSyncRouter(sync)

		recorder := doSyncRequest(t, router, http.MethodPost, "/sync/confirm",
			map[string]string{"challenge_id": challengeID.String(), "code": "654321"})

		assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	})

	t.Run("ExpiredChallenge", func(t *testing.T) {
		sync := &fakeSyncUseCase{confirmErr: domain.ErrChallengeNotFound}
		router := setupSyncRouter(sync)

		recorder := doSyncRequest(t, router, http.MethodPost, "/sync/confirm",
			map[string]string{"challenge_id": challengeID.String(), "code": "123456"})

		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("MalformedChallengeID", func(t *testing.T) {
		router := setupSyncRouter(&fakeSyncUseCase{})

		recorder := doSyncRequest(t, router, http.MethodPost, "/sync/confirm",
			map[string]string{"challenge_id": "not-a-uuid", "code": "123456"})

		assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	})
}

func TestSyncHandler_ListDevicesHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		sync := &fakeSyncUseCase{
			devices: []*domain.DeviceRegistration{{
				ID:           uuid.Must(uuid.NewV7()),
				UserID:       uuid.Must(uuid.NewV7()),
				Fingerprint:  "fp-phone",
				DeviceType:   "mobile",
				RegisteredAt: time.Now(),
			}},
		}
		router := setupSyncRouter(sync)

		recorder := doSyncRequest(t, router, http.MethodGet, "/sync/devices", nil)

		assert.Equal(t, http.StatusOK, recorder.Code)

		var response struct {
			Data []map[string]any `json:"data"`
		}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		require.Len(t, response.Data, 1)
		assert.Equal(t, "fp-phone", response.Data[0]["fingerprint"])
	})

	t.Run("Empty", func(t *testing.T) {
		router := setupSyncRouter(&fakeSyncUseCase{})

		recorder := doSyncRequest(t, router, http.MethodGet, "/sync/devices", nil)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.JSONEq(t, `{"data":[]}`, recorder.Body.String())
	})
}
