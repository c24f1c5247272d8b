package httpapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/station-labs/station/authz"
	"github.com/station-labs/station/model"
)

func TestListUsersReturnsRegisteredUsers(t *testing.T) {
	h := newTestHarness(t)
	mustRegisterAdminUser(t, h, model.Principal{0x20})

	rec := doRequest(t, h.server.Router(), http.MethodGet, "/v1/users", nil, authz.Caller{Anonymous: true})
	require.Equal(t, http.StatusOK, rec.Code)

	var users []*model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 1)
}

func TestGetUserNotFound(t *testing.T) {
	h := newTestHarness(t)
	rec := doRequest(t, h.server.Router(), http.MethodGet, "/v1/users/"+model.NewUUID().String(), nil, authz.Caller{Anonymous: true})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListNotificationsEmptyForAnonymous(t *testing.T) {
	h := newTestHarness(t)
	rec := doRequest(t, h.server.Router(), http.MethodGet, "/v1/notifications", nil, authz.Caller{Anonymous: true})
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())
}
