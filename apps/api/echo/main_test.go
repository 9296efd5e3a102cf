package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DailyDoseOfWezs/Schedulink/core"
	"github.com/DailyDoseOfWezs/Schedulink/core/classroom"
	"github.com/DailyDoseOfWezs/Schedulink/core/room"
	"github.com/DailyDoseOfWezs/Schedulink/core/user"
	"github.com/DailyDoseOfWezs/Schedulink/core/watch"
	emailsvc "github.com/DailyDoseOfWezs/Schedulink/services/email"
	logsvc "github.com/DailyDoseOfWezs/Schedulink/services/logger"
	inmemdb "github.com/DailyDoseOfWezs/Schedulink/storage/database/inmem"
)

var errMissingToken = map[string]string{"error": "missing or malformed jwt"}

type testEnv struct {
	app      *server
	conf     *core.Config
	usrSvc   user.ServiceInterface
	classSvc classroom.ServiceInterface
	roomSvc  room.ServiceInterface
	monitor  *room.Monitor
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()

	conf := &core.Config{
		Env:      "TEST",
		TestMode: true,
		AppName:  "Schedulink",
		SecretKey: []byte("secret"),
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Polling: core.PollingConfig{RoomRefreshInterval: 5 * time.Millisecond},
	}

	db := inmemdb.NewDB()
	mailSvc := emailsvc.NewConsoleService(conf)
	usrSvc := user.NewService(inmemdb.NewUserRepository(db), mailSvc, conf)
	classSvc := classroom.NewService(inmemdb.NewClassroomRepository(db))
	roomSvc := room.NewService(inmemdb.NewRoomRepository(db))
	monitor := room.NewMonitor(roomSvc, conf, nil)

	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	classroom.InitValidators(validate, translator)

	logger := logsvc.NewRollbarLogger(log.New(os.Stderr, "TEST : ", log.LstdFlags), conf)

	// one dedup store per viewer, shared across requests like the durable one
	var seenMu sync.Mutex
	seenStores := make(map[string]watch.SeenStore)
	seenStore := func(viewerID string) watch.SeenStore {
		seenMu.Lock()
		defer seenMu.Unlock()
		store, ok := seenStores[viewerID]
		if !ok {
			store = watch.NewMemorySeenStore()
			seenStores[viewerID] = store
		}
		return store
	}

	app := NewServer(&Options{
		Conf:           conf,
		Logger:         logger,
		DisableReqLogs: true,
		UserSvc:        usrSvc,
		ClassroomSvc:   classSvc,
		RoomSvc:        roomSvc,
		RoomMonitor:    monitor,
		SeenStore:      seenStore,
		Validate:       validate,
		Translator:     translator,
		SignalShutdown: func() {},
	}).(*server)

	return &testEnv{
		app:      app,
		conf:     conf,
		usrSvc:   usrSvc,
		classSvc: classSvc,
		roomSvc:  roomSvc,
		monitor:  monitor,
	}
}

func newTestTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func (env *testEnv) createUser(t *testing.T, name, email, role, pwd string) user.User {
	t.Helper()
	usr, err := env.usrSvc.Create(context.Background(), user.NewUser{
		Name:            name,
		Email:           email,
		Role:            role,
		Password:        pwd,
		PasswordConfirm: pwd,
	})
	require.NoError(t, err)
	return usr
}

func (env *testEnv) getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := env.app.auth.GenerateToken(env.app.auth.GetUserClaims(usr))
	require.NoError(t, err)
	return token
}

func (env *testEnv) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buff bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buff).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buff)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.app.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestServer_home(t *testing.T) {
	env := setupServer(t)

	rec := env.request(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Schedulink API!", rec.Body.String())
}

func TestServer_authRequired(t *testing.T) {
	env := setupServer(t)

	for _, path := range []string{"/v1/users/me", "/v1/classes", "/v1/rooms"} {
		rec := env.request(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)

		var body map[string]string
		decode(t, rec, &body)
		assert.Equal(t, errMissingToken, body, path)
	}
}
