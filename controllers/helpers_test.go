package controllers

import (
	"context"
	"testing"
	"time"

	"dripmate/models"
	"dripmate/services"
	"dripmate/storage"
	"dripmate/test"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	stub    *test.StubAPI
	api     *services.APIClient
	session *storage.SessionStore
	prefs   *storage.PreferenceStore
	logger  *zap.Logger
}

func setup(t *testing.T) fixture {
	t.Helper()
	stub := test.NewStubAPI("")
	server, baseURL := stub.Start()
	t.Cleanup(server.Close)

	backend := storage.NewMemoryBackend()
	logger := zap.NewNop()
	session := storage.NewSessionStore(backend, logger)
	return fixture{
		stub:    stub,
		api:     services.NewAPIClient(services.StaticBaseURL(baseURL), session, services.WithTimeout(5*time.Second)),
		session: session,
		prefs:   storage.NewPreferenceStore(backend, logger),
		logger:  logger,
	}
}

// login signs a user in through the client so the session holds a real token.
func (f fixture) login(t *testing.T) models.Profile {
	t.Helper()
	profile, _ := f.stub.CreateUser("Ada", "ada@example.com", "secret1")
	_, err := f.api.Login(context.Background(), models.LoginIn{Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)
	return profile
}

func (f fixture) chat() *ChatView {
	return NewChatView(f.api, f.prefs, f.session, f.logger)
}

func suggestion(item string, vibe string) models.OutfitRequest {
	req := models.DefaultOutfitRequest()
	req.Item = item
	req.Vibe = vibe
	return req
}
