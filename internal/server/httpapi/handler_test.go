package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/cloudstore/internal/common"
	"github.com/dmitrijs2005/cloudstore/internal/logging"
	"github.com/dmitrijs2005/cloudstore/internal/server/blob"
	"github.com/dmitrijs2005/cloudstore/internal/server/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger          { return n }

type fakeUsers struct {
	accounts map[string]string // login -> password
	sessions *fakeSessions
}

func (f *fakeUsers) Register(ctx context.Context, login, password string) (*models.User, error) {
	if _, ok := f.accounts[login]; ok {
		return nil, common.ErrorAlreadyExists
	}
	f.accounts[login] = password
	return &models.User{ID: "id-" + login, Login: login}, nil
}

func (f *fakeUsers) Login(ctx context.Context, login, password string) (string, error) {
	if pw, ok := f.accounts[login]; !ok || pw != password {
		return "", common.ErrorUnauthorized
	}
	return f.sessions.Issue(login)
}

func (f *fakeUsers) Logout(ctx context.Context, token string) error {
	if !f.sessions.Validate(token) {
		return common.ErrorUnauthorized
	}
	f.sessions.Revoke(token)
	return nil
}

func (f *fakeUsers) Get(ctx context.Context, login string) (*models.User, error) {
	if _, ok := f.accounts[login]; !ok {
		return nil, common.ErrorNotFound
	}
	return &models.User{ID: "id-" + login, Login: login}, nil
}

type fakeSessions struct {
	tokens map[string]string // token -> login
	next   int
}

func (f *fakeSessions) Issue(login string) (string, error) {
	f.next++
	token := "token-" + login + "-" + string(rune('0'+f.next))
	f.tokens[token] = login
	return token, nil
}

func (f *fakeSessions) Validate(token string) bool {
	_, ok := f.tokens[token]
	return ok
}

func (f *fakeSessions) Resolve(token string) (string, bool) {
	login, ok := f.tokens[token]
	return login, ok
}

func (f *fakeSessions) Revoke(token string) {
	delete(f.tokens, token)
}

type storedBlob struct {
	file *models.StoredFile
	data []byte
}

type fakeStorage struct {
	files map[string]*storedBlob // userID/filename
}

func (f *fakeStorage) key(user *models.User, name string) string { return user.ID + "/" + name }

func (f *fakeStorage) Save(ctx context.Context, user *models.User, name, originalName, contentType string, data []byte) (*models.StoredFile, error) {
	if err := blob.ValidateFilename(name); err != nil {
		return nil, err
	}
	if _, ok := f.files[f.key(user, name)]; ok {
		return nil, common.ErrorAlreadyExists
	}
	file := &models.StoredFile{
		ID: "f-" + name, UserID: user.ID, Filename: name,
		OriginalFilename: originalName, Size: int64(len(data)),
		ContentType: contentType, CreatedAt: time.Now().UTC(),
	}
	f.files[f.key(user, name)] = &storedBlob{file: file, data: data}
	return file, nil
}

func (f *fakeStorage) Read(ctx context.Context, user *models.User, name string) ([]byte, error) {
	if err := blob.ValidateFilename(name); err != nil {
		return nil, err
	}
	b, ok := f.files[f.key(user, name)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return b.data, nil
}

func (f *fakeStorage) Delete(ctx context.Context, user *models.User, name string) error {
	if err := blob.ValidateFilename(name); err != nil {
		return err
	}
	if _, ok := f.files[f.key(user, name)]; !ok {
		return common.ErrorNotFound
	}
	delete(f.files, f.key(user, name))
	return nil
}

func (f *fakeStorage) Rename(ctx context.Context, user *models.User, oldName, newName string) error {
	if err := blob.ValidateFilename(oldName); err != nil {
		return err
	}
	if err := blob.ValidateFilename(newName); err != nil {
		return err
	}
	if _, ok := f.files[f.key(user, newName)]; ok {
		return common.ErrorAlreadyExists
	}
	b, ok := f.files[f.key(user, oldName)]
	if !ok {
		return common.ErrorNotFound
	}
	delete(f.files, f.key(user, oldName))
	b.file.Filename = newName
	f.files[f.key(user, newName)] = b
	return nil
}

func (f *fakeStorage) List(ctx context.Context, user *models.User, limit int) ([]*models.StoredFile, error) {
	var result []*models.StoredFile
	for _, b := range f.files {
		if b.file.UserID == user.ID {
			result = append(result, b.file)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

type testEnv struct {
	engine   *gin.Engine
	users    *fakeUsers
	sessions *fakeSessions
	storage  *fakeStorage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	sessions := &fakeSessions{tokens: make(map[string]string)}
	users := &fakeUsers{accounts: make(map[string]string), sessions: sessions}
	storage := &fakeStorage{files: make(map[string]*storedBlob)}

	srv, err := NewServer(":0", nopLogger{}, users, sessions, storage, 1<<20)
	require.NoError(t, err)

	return &testEnv{engine: srv.router(), users: users, sessions: sessions, storage: storage}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func (e *testEnv) loginAs(t *testing.T, login string) string {
	t.Helper()
	e.users.accounts[login] = "password1"
	token, err := e.sessions.Issue(login)
	require.NoError(t, err)
	return token
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/register",
		jsonBody(t, map[string]string{"login": "alice", "password": "password1"}))
	w := env.do(req)
	assert.Equal(t, http.StatusOK, w.Code)

	// same login again
	req = httptest.NewRequest(http.MethodPost, "/register",
		jsonBody(t, map[string]string{"login": "alice", "password": "password1"}))
	w = env.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegister_BadPayload(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{
		`{}`,
		`{"login":"al"}`,
		`{"login":"alice","password":"short"}`,
		`not json`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
		w := env.do(req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
	}
}

func TestLoginAndLogout(t *testing.T) {
	env := newTestEnv(t)
	env.users.accounts["alice"] = "password1"

	req := httptest.NewRequest(http.MethodPost, "/login",
		jsonBody(t, map[string]string{"login": "alice", "password": "password1"}))
	w := env.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp authResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AuthToken)
	assert.Equal(t, "alice", resp.Login)

	// token works
	req = httptest.NewRequest(http.MethodGet, "/list", nil)
	req.Header.Set(common.AuthTokenHeaderName, resp.AuthToken)
	w = env.do(req)
	assert.Equal(t, http.StatusOK, w.Code)

	// logout revokes it
	req = httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set(common.AuthTokenHeaderName, resp.AuthToken)
	w = env.do(req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/list", nil)
	req.Header.Set(common.AuthTokenHeaderName, resp.AuthToken)
	w = env.do(req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_WrongCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.users.accounts["alice"] = "password1"

	for _, creds := range []map[string]string{
		{"login": "alice", "password": "wrong"},
		{"login": "nobody", "password": "password1"},
	} {
		req := httptest.NewRequest(http.MethodPost, "/login", jsonBody(t, creds))
		w := env.do(req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	token := env.loginAs(t, "alice")

	data := []byte("file payload")
	body, contentType := multipartBody(t, "file", "report.txt", data)

	req := httptest.NewRequest(http.MethodPost, "/file?filename=report.txt", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(common.AuthTokenHeaderName, token)
	w := env.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp fileResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "report.txt", resp.Filename)
	assert.Equal(t, int64(len(data)), resp.Size)

	req = httptest.NewRequest(http.MethodGet, "/file?filename=report.txt", nil)
	req.Header.Set(common.AuthTokenHeaderName, token)
	w = env.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, data, w.Body.Bytes())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "report.txt")
}

func TestUpload_InvalidFilename(t *testing.T) {
	env := newTestEnv(t)
	token := env.loginAs(t, "alice")

	body, contentType := multipartBody(t, "file", "x", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/file?filename=..%2Fescape", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(common.AuthTokenHeaderName, token)

	w := env.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.storage.files)
}

func TestUpload_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	token := env.loginAs(t, "alice")

	for i, wantCode := range []int{http.StatusOK, http.StatusBadRequest} {
		body, contentType := multipartBody(t, "file", "report.txt", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/file?filename=report.txt", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set(common.AuthTokenHeaderName, token)
		w := env.do(req)
		assert.Equal(t, wantCode, w.Code, "attempt %d", i)
	}
}

func TestDownload_Missing(t *testing.T) {
	env := newTestEnv(t)
	token := env.loginAs(t, "alice")

	req := httptest.NewRequest(http.MethodGet, "/file?filename=ghost.txt", nil)
	req.Header.Set(common.AuthTokenHeaderName, token)
	w := env.do(req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)
	token := env.loginAs(t, "alice")

	_, err := env.storage.Save(context.Background(),
		&models.User{ID: "id-alice", Login: "alice"}, "report.txt", "report.txt", "", []byte("x"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/file?filename=report.txt", nil)
	req.Header.Set(common.AuthTokenHeaderName, token)
	w := env.do(req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodDelete, "/file?filename=report.txt", nil)
	req.Header.Set(common.AuthTokenHeaderName, token)
	w = env.do(req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRename(t *testing.T) {
	env := newTestEnv(t)
	token := env.loginAs(t, "alice")

	_, err := env.storage.Save(context.Background(),
		&models.User{ID: "id-alice", Login: "alice"}, "old.txt", "old.txt", "", []byte("x"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/file?filename=old.txt",
		jsonBody(t, map[string]string{"filename": "new.txt"}))
	req.Header.Set(common.AuthTokenHeaderName, token)
	w := env.do(req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/file?filename=new.txt", nil)
	req.Header.Set(common.AuthTokenHeaderName, token)
	w = env.do(req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRename_BadTargetRejectedAtBinding(t *testing.T) {
	env := newTestEnv(t)
	token := env.loginAs(t, "alice")

	for _, target := range []string{"../evil", "a/b", ""} {
		req := httptest.NewRequest(http.MethodPut, "/file?filename=old.txt",
			jsonBody(t, map[string]string{"filename": target}))
		req.Header.Set(common.AuthTokenHeaderName, token)
		w := env.do(req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "target %q", target)
	}
}

func TestList(t *testing.T) {
	env := newTestEnv(t)
	token := env.loginAs(t, "alice")
	alice := &models.User{ID: "id-alice", Login: "alice"}

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		_, err := env.storage.Save(context.Background(), alice, name, name, "", []byte("x"))
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodGet, "/list", nil)
	req.Header.Set(common.AuthTokenHeaderName, token)
	w := env.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	var files []fileResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &files))
	assert.Len(t, files, 3)

	req = httptest.NewRequest(http.MethodGet, "/list?limit=2", nil)
	req.Header.Set(common.AuthTokenHeaderName, token)
	w = env.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	files = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &files))
	assert.Len(t, files, 2)

	req = httptest.NewRequest(http.MethodGet, "/list?limit=abc", nil)
	req.Header.Set(common.AuthTokenHeaderName, token)
	w = env.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpload_MissingFilePart(t *testing.T) {
	env := newTestEnv(t)
	token := env.loginAs(t, "alice")

	// No body at all.
	req := httptest.NewRequest(http.MethodPost, "/file?filename=report.txt", nil)
	req.Header.Set(common.AuthTokenHeaderName, token)
	w := env.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Multipart body with the wrong field name.
	body, contentType := multipartBody(t, "attachment", "report.txt", []byte("x"))
	req = httptest.NewRequest(http.MethodPost, "/file?filename=report.txt", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(common.AuthTokenHeaderName, token)
	w = env.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.storage.files)
}

func TestUpload_TooLarge(t *testing.T) {
	env := newTestEnv(t)
	token := env.loginAs(t, "alice")

	body, contentType := multipartBody(t, "file", "big.bin", bytes.Repeat([]byte("a"), 2<<20))
	req := httptest.NewRequest(http.MethodPost, "/file?filename=big.bin", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(common.AuthTokenHeaderName, token)

	w := env.do(req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
