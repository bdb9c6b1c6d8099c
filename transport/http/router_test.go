package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropwire/dropwire/adapters/jose"
	"github.com/dropwire/dropwire/adapters/store"
	"github.com/dropwire/dropwire/challenge"
	"github.com/dropwire/dropwire/core"
	"github.com/dropwire/dropwire/internal/identtest"
	"github.com/dropwire/dropwire/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	cfg    service.Config
	store  *store.MemoryAccountStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	server := identtest.NewIdentity(t, "", "Test Server")
	cfg := service.Config{ServerName: "testsrv", SelfIdentBlob: server.SelfIdent}

	accounts := store.NewMemoryAccountStore()
	auth, err := challenge.NewAuthenticator(core.NewCatalog(core.ChallengeNone), nil)
	require.NoError(t, err)

	signup := service.NewSignupService(cfg, accounts, nil, jose.NewVerifier(), auth, nil)
	phonebook := service.NewPhonebookService(accounts, nil)

	router, err := SetupRouter(cfg, signup, phonebook, nil)
	require.NoError(t, err)

	return &testServer{router: router, cfg: cfg, store: accounts}
}

func (s *testServer) post(t *testing.T, endpoint, clientKey string, envelope any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(envelope)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/wire/"+endpoint, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if clientKey != "" {
		req.Header.Set("X-Client-Key", clientKey)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func signupEnvelope(t *testing.T, srv *testServer, id *identtest.Identity, clientKey string) map[string]any {
	t.Helper()
	bundle := &core.SignupBundle{
		SelfIdent:   id.SelfIdent,
		ClientAuths: []string{id.Authorize(t, clientKey)},
	}
	raw, err := json.Marshal(bundle)
	require.NoError(t, err)
	return map[string]any{"verb": "signup", "body": json.RawMessage(raw)}
}

func TestSignupOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	clientKey, _ := identtest.NewKeyPair(t)
	id := identtest.NewIdentity(t, srv.cfg.SelfIdentBlob, "Olivia")

	rec := srv.post(t, "signup", clientKey, signupEnvelope(t, srv, id, clientKey))
	require.Equal(t, http.StatusOK, rec.Code)

	var msg core.SignedUpMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, "signedUp", msg.Type)

	_, ok := srv.store.Account(id.RootPub)
	assert.True(t, ok)
}

func TestRepeatedSignupOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	clientKey, _ := identtest.NewKeyPair(t)
	id := identtest.NewIdentity(t, srv.cfg.SelfIdentBlob, "Olivia")
	env := signupEnvelope(t, srv, id, clientKey)

	rec := srv.post(t, "signup", clientKey, env)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.post(t, "signup", clientKey, env)
	require.Equal(t, http.StatusOK, rec.Code)
	var msg core.ChallengeMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, core.OutcomeAlreadySignedUp, msg.Challenge.Mechanism)
}

func TestMissingClientKeyIsRejected(t *testing.T) {
	srv := newTestServer(t)
	id := identtest.NewIdentity(t, srv.cfg.SelfIdentBlob, "Olivia")
	clientKey, _ := identtest.NewKeyPair(t)

	rec := srv.post(t, "signup", "", signupEnvelope(t, srv, id, clientKey))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownEndpointIs404(t *testing.T) {
	srv := newTestServer(t)
	clientKey, _ := identtest.NewKeyPair(t)

	rec := srv.post(t, "mailroom", clientKey, map[string]any{"verb": "deliver"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMalformedEnvelopeIs400(t *testing.T) {
	srv := newTestServer(t)
	clientKey, _ := identtest.NewKeyPair(t)

	req := httptest.NewRequest(http.MethodPost, "/wire/signup", bytes.NewReader([]byte("{")))
	req.Header.Set("X-Client-Key", clientKey)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownVerbIsTerminalChallenge(t *testing.T) {
	srv := newTestServer(t)
	clientKey, _ := identtest.NewKeyPair(t)

	rec := srv.post(t, "signup", clientKey, map[string]any{"verb": "frobnicate"})
	require.Equal(t, http.StatusOK, rec.Code)
	var msg core.ChallengeMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, core.OutcomeTryAgainLater, msg.Challenge.Mechanism)
}

func TestListPeepsOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	clientKey, _ := identtest.NewKeyPair(t)

	id := identtest.NewIdentity(t, srv.cfg.SelfIdentBlob, "Olivia")
	bundle := &core.SignupBundle{
		SelfIdent:     id.SelfIdent,
		ClientAuths:   []string{id.Authorize(t, clientKey)},
		PublicListing: true,
	}
	raw, err := json.Marshal(bundle)
	require.NoError(t, err)
	rec := srv.post(t, "signup", clientKey, map[string]any{"verb": "signup", "body": json.RawMessage(raw)})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.post(t, "phonebook", clientKey, map[string]any{"verb": "listPeeps"})
	require.Equal(t, http.StatusOK, rec.Code)
	var listing core.ListingMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Equal(t, []string{id.SelfIdent}, listing.SelfIdentBlobs)
}

func TestWellKnownSelfIdentDocument(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/.well-known/testsrv-server.selfident.json", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var doc struct {
		SelfIdent string `json:"selfIdent"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, srv.cfg.SelfIdentBlob, doc.SelfIdent)
}
