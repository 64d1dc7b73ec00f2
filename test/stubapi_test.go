package test

import (
	"encoding/json"
	"net/http"
	"testing"

	"dripmate/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubProtectedRoutesCheckToken(t *testing.T) {
	stub := NewStubAPI("")
	e := stub.Echo()
	profile, token := stub.CreateUser("Ada", "ada@example.com", "secret1")

	code, body := InternalRequestJSON(e, NewJSONAuthRequest(http.MethodGet, "/api/profile", token, nil))
	require.Equal(t, http.StatusOK, code)
	var got models.Profile
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, profile.ID, got.ID)

	foreign := GenerateUserToken("another-secret", "1")
	code, body = InternalRequestJSON(e, NewJSONAuthRequest(http.MethodGet, "/api/profile", foreign, nil))
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.JSONEq(t, `{"detail":"Not authenticated"}`, string(body))

	code, _ = InternalRequestJSON(e, NewJSONRequest(http.MethodGet, "/api/wardrobe", nil))
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestStubWardrobeBelongsToOwner(t *testing.T) {
	stub := NewStubAPI("")
	e := stub.Echo()
	_, ada := stub.CreateUser("Ada", "ada@example.com", "secret1")
	_, grace := stub.CreateUser("Grace", "grace@example.com", "secret1")

	code, _ := InternalRequestJSON(e, NewJSONAuthRequest(http.MethodPost, "/api/wardrobe", ada,
		models.WardrobeItem{Category: models.CategoryFootwear, Name: "Loafers"}))
	require.Equal(t, http.StatusCreated, code)

	_, body := InternalRequestJSON(e, NewJSONAuthRequest(http.MethodGet, "/api/wardrobe", grace, nil))
	var items []models.WardrobeItem
	require.NoError(t, json.Unmarshal(body, &items))
	assert.Empty(t, items)

	_, body = InternalRequestJSON(e, NewJSONAuthRequest(http.MethodGet, "/api/wardrobe", ada, nil))
	require.NoError(t, json.Unmarshal(body, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Loafers", items[0].Name)
}
