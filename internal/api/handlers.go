package api

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/asaphhq/asaph/internal/server"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthedRequest struct {
	Uid   string `json:"uid"`
	Token string `json:"token"`
}

type UpdateProfileRequest struct {
	Uid     string            `json:"uid"`
	Token   string            `json:"token"`
	Profile map[string]string `json:"profile"`
}

type CreateSessionRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Uid      string `json:"uid"`
	Token    string `json:"token"`
}

type JoinSessionRequest struct {
	Sid      string `json:"sid"`
	Password string `json:"password"`
	Uid      string `json:"uid"`
	Token    string `json:"token"`
	Save     bool   `json:"save,omitempty"`
}

type RemoveSessionRequest struct {
	Sid   string `json:"sid"`
	Uid   string `json:"uid"`
	Token string `json:"token"`
}

func (s *AsaphApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *AsaphApp) writeError(w http.ResponseWriter, errResp *ApiError) {
	if errResp.Err != nil {
		s.log.Println(errResp.Error())
	}
	s.writeJson(w, errResp.StatusCode, errResp)
}

func (s *AsaphApp) createAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	if req.Email == "" || req.Password == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	creds, err := s.store.CreateAccount(req.Email, req.Password, req.Name)
	if err != nil {
		s.writeError(w, newStoreError(err))
		return
	}

	s.writeJson(w, http.StatusCreated, creds)
}

func (s *AsaphApp) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	if req.Email == "" || req.Password == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	creds, err := s.store.Login(req.Email, req.Password)
	if err != nil {
		s.writeError(w, newStoreError(err))
		return
	}

	s.writeJson(w, http.StatusOK, creds)
}

func (s *AsaphApp) signOut(w http.ResponseWriter, r *http.Request) {
	var req AuthedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	if req.Uid == "" || req.Token == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	if err := s.store.SignOut(req.Uid, req.Token); err != nil {
		s.writeError(w, newStoreError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *AsaphApp) getProfile(w http.ResponseWriter, r *http.Request) {
	uid, token := r.URL.Query().Get("uid"), r.URL.Query().Get("token")
	if uid == "" || token == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	profile, err := s.store.GetProfile(uid, token)
	if err != nil {
		s.writeError(w, newStoreError(err))
		return
	}

	s.writeJson(w, http.StatusOK, profile)
}

func (s *AsaphApp) setProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	if req.Uid == "" || req.Token == "" || len(req.Profile) == 0 {
		s.writeError(w, NewBadRequestError())
		return
	}

	if err := s.store.SetProfile(req.Uid, req.Token, req.Profile); err != nil {
		s.writeError(w, newStoreError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *AsaphApp) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	if req.Name == "" || req.Password == "" || req.Uid == "" || req.Token == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	view, err := s.store.CreateRoom(req.Name, req.Password, req.Uid, req.Token)
	if err != nil {
		s.writeError(w, newStoreError(err))
		return
	}

	s.writeJson(w, http.StatusOK, view)
}

func (s *AsaphApp) joinSession(w http.ResponseWriter, r *http.Request) {
	var req JoinSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	if req.Sid == "" || req.Password == "" || req.Uid == "" || req.Token == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	view, err := s.store.JoinRoom(req.Sid, req.Password, req.Uid, req.Token, req.Save)
	if err != nil {
		s.writeError(w, newStoreError(err))
		return
	}

	s.writeJson(w, http.StatusOK, view)
}

func (s *AsaphApp) leaveSession(w http.ResponseWriter, r *http.Request) {
	var req AuthedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	if req.Uid == "" || req.Token == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	if err := s.store.LeaveRoom(req.Uid, req.Token); err != nil {
		s.writeError(w, newStoreError(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *AsaphApp) savedSessions(w http.ResponseWriter, r *http.Request) {
	uid, token := r.URL.Query().Get("uid"), r.URL.Query().Get("token")
	if uid == "" || token == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	views, err := s.store.SavedRooms(uid, token)
	if err != nil {
		s.writeError(w, newStoreError(err))
		return
	}

	s.writeJson(w, http.StatusOK, views)
}

func (s *AsaphApp) removeSession(w http.ResponseWriter, r *http.Request) {
	var req RemoveSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, NewBadRequestError())
		return
	}

	if req.Sid == "" || req.Uid == "" || req.Token == "" {
		s.writeError(w, NewBadRequestError())
		return
	}

	deleted, err := s.store.RemoveRoom(req.Sid, req.Uid, req.Token)
	if err != nil {
		s.writeError(w, newStoreError(err))
		return
	}
	if deleted {
		s.hub.NotifyRoomRemoved(req.Sid)
	}

	w.WriteHeader(http.StatusNoContent)
}

// iceConfig hands out the statically configured ICE servers. Minting
// short-lived TURN credentials is the business of the external
// credential service, not this one.
func (s *AsaphApp) iceConfig(w http.ResponseWriter, _ *http.Request) {
	type iceServer struct {
		Urls []string `json:"urls"`
	}

	servers := make([]iceServer, 0, len(s.iceServers))
	for _, u := range s.iceServers {
		servers = append(servers, iceServer{Urls: []string{u}})
	}

	s.writeJson(w, http.StatusOK, map[string]any{"iceServers": servers})
}

func (s *AsaphApp) serveWs(w http.ResponseWriter, r *http.Request) {
	uid, token := r.URL.Query().Get("uid"), r.URL.Query().Get("token")
	if _, err := s.store.VerifyAccount(uid, token); err != nil {
		s.writeError(w, newStoreError(err))
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("upgrade connection:", err)
		return
	}

	client := server.NewClient(uuid.NewString(), conn, s.hub, s.log)
	s.hub.Register(client)

	go client.Write()
	go client.Read()
}
