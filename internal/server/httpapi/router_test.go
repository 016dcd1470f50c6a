package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/mvasilyev/mediavault/internal/common"
	"github.com/mvasilyev/mediavault/internal/dbx"
	"github.com/mvasilyev/mediavault/internal/logging"
	"github.com/mvasilyev/mediavault/internal/server/auth"
	"github.com/mvasilyev/mediavault/internal/server/metrics"
	"github.com/mvasilyev/mediavault/internal/server/models"
	accountsrepo "github.com/mvasilyev/mediavault/internal/server/repositories/accounts"
	assetsrepo "github.com/mvasilyev/mediavault/internal/server/repositories/assets"
	"github.com/mvasilyev/mediavault/internal/server/services"
)

// --- in-memory collaborators ---

type memAccounts struct {
	byEmail map[string]*models.Account
}

func (m *memAccounts) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if _, ok := m.byEmail[account.Email]; ok {
		return nil, common.ErrEmailTaken
	}
	account.CreatedAt = time.Now()
	m.byEmail[account.Email] = account
	return account, nil
}

func (m *memAccounts) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if account, ok := m.byEmail[email]; ok {
		return account, nil
	}
	return nil, common.ErrorNotFound
}

func (m *memAccounts) GetByID(ctx context.Context, id string) (*models.Account, error) {
	for _, account := range m.byEmail {
		if account.ID == id {
			return account, nil
		}
	}
	return nil, common.ErrorNotFound
}

type memAssets struct {
	byID map[string]*models.MediaAsset
}

func (m *memAssets) Create(ctx context.Context, asset *models.MediaAsset) (*models.MediaAsset, error) {
	m.byID[asset.ID] = asset
	return asset, nil
}

func (m *memAssets) GetByID(ctx context.Context, id string) (*models.MediaAsset, error) {
	if asset, ok := m.byID[id]; ok {
		return asset, nil
	}
	return nil, common.ErrorNotFound
}

func (m *memAssets) Update(ctx context.Context, id string, accountID string, changes *models.MediaAssetChanges) (*models.MediaAsset, error) {
	asset, ok := m.byID[id]
	if !ok || asset.AccountID != accountID {
		return nil, common.ErrorNotFound
	}
	if changes.Description != nil {
		asset.Description = changes.Description
	}
	if changes.Tags != nil {
		asset.Tags = *changes.Tags
	}
	asset.UpdatedAt = time.Now()
	return asset, nil
}

func (m *memAssets) Delete(ctx context.Context, id string, accountID string) error {
	asset, ok := m.byID[id]
	if !ok || asset.AccountID != accountID {
		return common.ErrorNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memAssets) owned(accountID string, kind models.MediaKind) []*models.MediaAsset {
	items := make([]*models.MediaAsset, 0)
	for _, asset := range m.byID {
		if asset.AccountID == accountID && (kind == "" || asset.MediaKind == kind) {
			items = append(items, asset)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items
}

func (m *memAssets) Search(ctx context.Context, accountID string, query string, page, pageSize int) ([]*models.MediaAsset, int64, error) {
	matched := make([]*models.MediaAsset, 0)
	for _, asset := range m.owned(accountID, "") {
		if strings.Contains(strings.ToLower(asset.OriginalFileName), strings.ToLower(query)) {
			matched = append(matched, asset)
		}
	}
	return matched, int64(len(matched)), nil
}

func (m *memAssets) ListByOwner(ctx context.Context, accountID string, page, pageSize int, kind models.MediaKind) ([]*models.MediaAsset, int64, error) {
	items := m.owned(accountID, kind)
	return items, int64(len(items)), nil
}

type memRepoManager struct {
	accounts *memAccounts
	assets   *memAssets
}

func (m *memRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *memRepoManager) Accounts(dbx.DBTX) accountsrepo.Repository { return m.accounts }
func (m *memRepoManager) Assets(dbx.DBTX) assetsrepo.Repository { return m.assets }

type memBlobs struct{}

func (memBlobs) Put(ctx context.Context, body io.Reader, key string, contentType string) (string, error) {
	return "http://blob.local/media/" + key, nil
}
func (memBlobs) Delete(ctx context.Context, key string) error { return nil }

type stubThumbnailer struct{}

func (stubThumbnailer) Generate([]byte) ([]byte, error) { return []byte("jpeg"), nil }

// --- fixture ---

func newTestRouter(t *testing.T) (http.Handler, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	repos := &memRepoManager{
		accounts: &memAccounts{byEmail: map[string]*models.Account{}},
		assets:   &memAssets{byID: map[string]*models.MediaAsset{}},
	}

	hasher := auth.NewCredentialHasher(4)
	tokens := auth.NewTokenService([]byte("router-test-key"), time.Hour)
	collector := metrics.NewCollector()

	users := services.NewUserService(db, repos, hasher, tokens)
	assets := services.NewAssetService(db, repos, memBlobs{}, stubThumbnailer{}, 1024*1024, logger, metrics.Nop{})

	return NewRouter(&RouterDeps{
		Users:         users,
		Assets:        assets,
		Identity:      auth.NewIdentityExtractor(tokens),
		Collector:     collector,
		MaxUploadSize: 1024 * 1024,
		Logger:        logger,
	}), mock
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func registerAccount(t *testing.T, router http.Handler, mock sqlmock.Sqlmock, email string) string {
	t.Helper()

	mock.ExpectBegin()
	mock.ExpectCommit()

	rec := doJSON(t, router, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "user-" + email,
		"email":    email,
		"password": "pw123456",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func uploadFile(t *testing.T, router http.Handler, token, filename, contentType, tags string, payload []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename=%q`, filename)}
	header["Content-Type"] = []string{contentType}
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)

	if tags != "" {
		require.NoError(t, writer.WriteField("tags", tags))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/media", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// --- tests ---

func TestAuthEndpoints(t *testing.T) {
	router, mock := newTestRouter(t)

	token := registerAccount(t, router, mock, "alice@example.com")

	// duplicate email rolls the registration transaction back
	mock.ExpectBegin()
	mock.ExpectRollback()
	rec := doJSON(t, router, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice2", "email": "alice@example.com", "password": "other",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())

	// wrong password
	rec = doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// valid login
	rec = doJSON(t, router, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "pw123456",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// current account behind the bearer token
	rec = doJSON(t, router, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me models.AccountView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	require.Equal(t, "alice@example.com", me.Email)

	rec = doJSON(t, router, http.MethodGet, "/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMediaEndpointsRequireBearerToken(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/media", "/media/search?query=x", "/media/some-id"} {
		rec := doJSON(t, router, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
		require.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	}

	rec := doJSON(t, router, http.MethodGet, "/media", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMediaLifecycle(t *testing.T) {
	router, mock := newTestRouter(t)

	aliceToken := registerAccount(t, router, mock, "alice@example.com")
	bobToken := registerAccount(t, router, mock, "bob@example.com")

	// upload
	rec := uploadFile(t, router, aliceToken, "cat.png", "image/png", `["pets"]`, []byte("png-bytes"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var uploaded models.MediaAssetView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &uploaded))
	require.Equal(t, models.MediaKindImage, uploaded.MediaKind)
	require.NotEmpty(t, uploaded.ThumbnailURL)
	require.Equal(t, []string{"pets"}, uploaded.Tags)

	// list
	rec = doJSON(t, router, http.MethodGet, "/media", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Items []models.MediaAssetView `json:"items"`
		Total int64                   `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Equal(t, int64(1), listed.Total)

	// get by id
	rec = doJSON(t, router, http.MethodGet, "/media/"+uploaded.ID, aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// cross-account access is forbidden, not "not found"
	rec = doJSON(t, router, http.MethodGet, "/media/"+uploaded.ID, bobToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// unknown id
	rec = doJSON(t, router, http.MethodGet, "/media/no-such-asset", aliceToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// partial update keeps tags
	rec = doJSON(t, router, http.MethodPut, "/media/"+uploaded.ID, aliceToken, map[string]any{
		"description": "my cat",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated models.MediaAssetView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.NotNil(t, updated.Description)
	require.Equal(t, "my cat", *updated.Description)
	require.Equal(t, []string{"pets"}, updated.Tags)

	// delete
	rec = doJSON(t, router, http.MethodDelete, "/media/"+uploaded.ID, aliceToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/media/"+uploaded.ID, aliceToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadValidation(t *testing.T) {
	router, mock := newTestRouter(t)
	token := registerAccount(t, router, mock, "carol@example.com")

	rec := uploadFile(t, router, token, "doc.pdf", "application/pdf", "", []byte("%PDF"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = uploadFile(t, router, token, "cat.png", "image/png", "{broken", []byte("png"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "tags")
}

func TestSearchEndpoint(t *testing.T) {
	router, mock := newTestRouter(t)
	token := registerAccount(t, router, mock, "dave@example.com")

	rec := uploadFile(t, router, token, "sunset.png", "image/png", "", []byte("png"))
	require.Equal(t, http.StatusCreated, rec.Code)

	// query parameter is mandatory
	rec = doJSON(t, router, http.MethodGet, "/media/search", token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/media/search?query=sunset", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result struct {
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, int64(1), result.Total)
}

func TestListValidation(t *testing.T) {
	router, mock := newTestRouter(t)
	token := registerAccount(t, router, mock, "erin@example.com")

	rec := doJSON(t, router, http.MethodGet, "/media?page=abc", token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/media?mediaType=audio", token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/media?mediaType=video", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestOperationalEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/ping", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "mediavault_http_requests_total")
}
