package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/usersvc/internal/common"
	"github.com/dmitrijs2005/usersvc/internal/server/auth"
	"github.com/dmitrijs2005/usersvc/internal/server/models"
	"github.com/dmitrijs2005/usersvc/internal/server/services"
	"github.com/go-chi/chi/v5"
)

const (
	maxBodyBytes   = 1 << 20
	maxUploadBytes = 5 << 20
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type nameRequest struct {
	Name string `json:"name"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

type roleRequest struct {
	Role string `json:"role"`
}

type profileImageResponse struct {
	ProfileImage string `json:"profileImage"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body", common.ErrorInvalidInput)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := idParam(r)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrorInvalidInput, err)
	}
	return id, nil
}

func (h *handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			h.logger.Warn(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// login answers 401 for both an unknown email and a wrong password.
func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.onError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		h.onError(w, r, fmt.Errorf("%w: email and password are required", common.ErrorInvalidInput))
		return
	}

	token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrorUnauthorized) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
			return
		}
		h.onError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{AccessToken: token})
}

func (h *handler) create(w http.ResponseWriter, r *http.Request) {
	var req services.NewUser
	if err := decodeJSON(w, r, &req); err != nil {
		h.onError(w, r, err)
		return
	}

	u, err := h.users.Create(r.Context(), req)
	if err != nil {
		h.onError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *handler) findOne(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.onError(w, r, err)
		return
	}

	u, err := h.users.FindOne(r.Context(), id)
	if err != nil {
		h.onError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *handler) updateOne(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.onError(w, r, err)
		return
	}
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.onError(w, r, err)
		return
	}

	u, err := h.users.UpdateOne(r.Context(), id, req.Name)
	if err != nil {
		h.onError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *handler) updatePassword(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.onError(w, r, err)
		return
	}
	var req passwordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.onError(w, r, err)
		return
	}

	u, err := h.users.UpdatePassword(r.Context(), id, req.Password)
	if err != nil {
		h.onError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *handler) upload(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		h.onError(w, r, common.ErrorUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		h.onError(w, r, fmt.Errorf("%w: image exceeds %d bytes", common.ErrorTooLarge, tooBig.Limit))
		return
	}
	if err != nil {
		h.onError(w, r, fmt.Errorf("%w: multipart field \"file\" is required", common.ErrorInvalidInput))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		h.onError(w, r, fmt.Errorf("%w: only images can be uploaded", common.ErrorInvalidInput))
		return
	}

	name, err := h.users.UploadProfileImage(r.Context(), ac.ID, header.Filename, contentType, header.Size, file)
	if err != nil {
		h.onError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileImageResponse{ProfileImage: name})
}

func (h *handler) deleteOne(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.onError(w, r, err)
		return
	}

	if err := h.users.DeleteOne(r.Context(), id); err != nil {
		h.onError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// index lists users. Unparsable page and limit values fall back to the
// service defaults.
func (h *handler) index(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	p, err := h.users.Paginate(r.Context(), models.PageOptions{
		Page:  page,
		Limit: limit,
		Route: h.pageRoute,
		Name:  q.Get("name"),
	})
	if err != nil {
		h.onError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) findByEmail(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.onError(w, r, err)
		return
	}

	u, err := h.users.FindOneByEmail(r.Context(), req.Email)
	if err != nil {
		h.onError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.onError(w, r, err)
		return
	}
	var req roleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.onError(w, r, err)
		return
	}

	u, err := h.users.UpdateRole(r.Context(), id, req.Role)
	if err != nil {
		h.onError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *handler) emailExist(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.onError(w, r, err)
		return
	}

	exists, err := h.users.EmailExists(r.Context(), req.Email)
	if err != nil {
		h.onError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exists)
}

func (h *handler) profileImage(w http.ResponseWriter, r *http.Request) {
	url, err := h.users.ProfileImageURL(r.Context(), chi.URLParam(r, "imageName"))
	if err != nil {
		h.onError(w, r, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}
