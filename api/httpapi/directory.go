package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/station-labs/station/model"
	"github.com/station-labs/station/stationerr"
)

// The handlers in this file are api/httpapi's read-only surface: a thin
// (a) decode id, (b) repository Get/All, (c) encode JSON triple, with no
// orchestration beyond the lookup itself. Mutating the directory (adding a
// user, editing an account, ...) only ever happens indirectly, by a Request
// whose operation a factory executes — the directory itself has no
// standalone write endpoints, per spec.md §4.1's "every state-changing
// operation against the directory travels through a Request."

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.cfg.Users.All()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParseUUID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, stationerr.Validation("malformed user id: %v", err))
		return
	}
	u, ok, err := s.cfg.Users.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeError(w, stationerr.NotFound("user %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.cfg.Accounts.All()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParseUUID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, stationerr.Validation("malformed account id: %v", err))
		return
	}
	a, ok, err := s.cfg.Accounts.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeError(w, stationerr.NotFound("account %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := s.cfg.Assets.All()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParseUUID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, stationerr.Validation("malformed asset id: %v", err))
		return
	}
	a, ok, err := s.cfg.Assets.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeError(w, stationerr.NotFound("asset %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleListAddressBook(w http.ResponseWriter, r *http.Request) {
	entries, err := s.cfg.AddressBook.All()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := s.cfg.Policies.All()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, policies)
}

func (s *Server) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	permissions, err := s.cfg.Permissions.All()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, permissions)
}

// handleListNotifications returns the caller's own notification inbox,
// newest first. Anonymous callers (no resolved User) see an empty inbox
// rather than an error.
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	caller := callerFromContext(r.Context())
	if caller.User.IsNil() {
		writeJSON(w, http.StatusOK, []model.Notification{})
		return
	}
	notifications, err := s.cfg.Notifications.ByUser(caller.User)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}
