package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"patentflow/caseflow/auth"
	"patentflow/caseflow/schema"
	"patentflow/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserService struct {
	db *gorm.DB

	userAuth auth.IdentityProvider
}

func (s *UserService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/login", s.Login)

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)

		r.Post("/logout", s.Logout)
		r.Get("/info", s.Info)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(schema.RoleAdmin, schema.RoleManager))

			r.Get("/list", s.List)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.AdminOnly())

			r.Post("/create", s.Create)
			r.Post("/bulk-create", s.BulkCreate)
			r.Post("/{user_id}/roles", s.UpdateRoles)
		})
	})

	return r
}

type UserInfo struct {
	Id          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Roles       []string  `json:"roles"`
	HighestRole string    `json:"highest_role"`
}

func convertToUserInfo(user *schema.User) UserInfo {
	return UserInfo{
		Id:          user.Id,
		Username:    user.Username,
		Email:       user.Email,
		Roles:       user.RoleNames(),
		HighestRole: user.HighestRole(),
	}
}

func (s *UserService) Login(w http.ResponseWriter, r *http.Request) {
	email, password, ok := r.BasicAuth()
	if !ok {
		http.Error(w, "basic auth credentials must be provided", http.StatusUnauthorized)
		return
	}

	result, err := s.userAuth.LoginWithEmail(email, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		} else {
			http.Error(w, "unable to complete login", http.StatusInternalServerError)
		}
		return
	}

	http.SetCookie(w, auth.SessionCookie(result.AccessToken))

	utils.WriteJsonResponse(w, map[string]interface{}{
		"user_id": result.UserId, "access_token": result.AccessToken,
	})
}

func (s *UserService) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, auth.ExpiredSessionCookie())
	utils.WriteSuccess(w)
}

func (s *UserService) Info(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	info := convertToUserInfo(&user)
	utils.WriteJsonResponse(w, info)
}

func (s *UserService) List(w http.ResponseWriter, r *http.Request) {
	var users []schema.User
	result := s.db.Preload("Roles").Order("username").Find(&users)
	if result.Error != nil {
		slog.Error("sql error listing users", "error", result.Error)
		http.Error(w, "unable to list users", http.StatusInternalServerError)
		return
	}

	infos := make([]UserInfo, 0, len(users))
	for i := range users {
		infos = append(infos, convertToUserInfo(&users[i]))
	}

	utils.WriteJsonResponse(w, infos)
}

type createUserRequest struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
}

func (s *UserService) createUser(params createUserRequest) (uuid.UUID, error) {
	if params.Username == "" || params.Email == "" || params.Password == "" {
		return uuid.Nil, CodedError(errors.New("username, email, and password must be specified"), http.StatusUnprocessableEntity)
	}
	if len(params.Roles) == 0 {
		return uuid.Nil, CodedError(errors.New("at least one role must be specified"), http.StatusUnprocessableEntity)
	}
	for _, role := range params.Roles {
		if err := schema.CheckValidRole(role); err != nil {
			return uuid.Nil, CodedError(err, http.StatusUnprocessableEntity)
		}
	}

	userId, err := s.userAuth.CreateUser(params.Username, params.Email, params.Password, params.Roles)
	if err != nil {
		if errors.Is(err, auth.ErrEmailAlreadyInUse) || errors.Is(err, auth.ErrUsernameAlreadyInUse) {
			return uuid.Nil, CodedError(err, http.StatusConflict)
		}
		return uuid.Nil, CodedError(err, http.StatusInternalServerError)
	}

	return userId, nil
}

func (s *UserService) Create(w http.ResponseWriter, r *http.Request) {
	var params createUserRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	userId, err := s.createUser(params)
	if err != nil {
		http.Error(w, fmt.Sprintf("error creating user: %v", err), GetResponseCode(err))
		return
	}

	slog.Info("user created", "user_id", userId, "username", params.Username)

	utils.WriteJsonResponse(w, map[string]interface{}{"user_id": userId})
}

type bulkCreateRequest struct {
	Users []createUserRequest `json:"users"`
}

type bulkCreateResult struct {
	Email  string     `json:"email"`
	UserId *uuid.UUID `json:"user_id,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// BulkCreate creates each user independently. A failure on one entry is
// reported in its result and does not roll back the others.
func (s *UserService) BulkCreate(w http.ResponseWriter, r *http.Request) {
	var params bulkCreateRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if len(params.Users) == 0 {
		http.Error(w, "at least one user must be specified", http.StatusUnprocessableEntity)
		return
	}

	results := make([]bulkCreateResult, 0, len(params.Users))
	for _, entry := range params.Users {
		userId, err := s.createUser(entry)
		if err != nil {
			results = append(results, bulkCreateResult{Email: entry.Email, Error: err.Error()})
			continue
		}
		results = append(results, bulkCreateResult{Email: entry.Email, UserId: &userId})
	}

	utils.WriteJsonResponse(w, map[string]interface{}{"results": results})
}

type updateRolesRequest struct {
	Roles []string `json:"roles"`
}

func (s *UserService) UpdateRoles(w http.ResponseWriter, r *http.Request) {
	userId, err := utils.URLParamUUID(r, "user_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params updateRolesRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if len(params.Roles) == 0 {
		http.Error(w, "at least one role must be specified", http.StatusUnprocessableEntity)
		return
	}
	for _, role := range params.Roles {
		if err := schema.CheckValidRole(role); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
	}

	keepsAdmin := false
	for _, role := range params.Roles {
		if role == schema.RoleAdmin {
			keepsAdmin = true
		}
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		user, err := schema.GetUser(userId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrUserNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if user.IsAdmin() && !keepsAdmin {
			var adminCount int64
			result := txn.Model(&schema.UserRole{}).Where("role = ?", schema.RoleAdmin).Count(&adminCount)
			if result.Error != nil {
				slog.Error("sql error counting admins", "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
			if adminCount < 2 {
				return CodedError(errors.New("cannot remove the admin role from the only admin"), http.StatusUnprocessableEntity)
			}
		}

		result := txn.Where("user_id = ?", userId).Delete(&schema.UserRole{})
		if result.Error != nil {
			slog.Error("sql error clearing user roles", "user_id", userId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		seen := make(map[string]bool, len(params.Roles))
		roles := make([]schema.UserRole, 0, len(params.Roles))
		for _, role := range params.Roles {
			if seen[role] {
				continue
			}
			seen[role] = true
			roles = append(roles, schema.UserRole{UserId: userId, Role: role})
		}
		result = txn.Create(&roles)
		if result.Error != nil {
			slog.Error("sql error assigning user roles", "user_id", userId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating roles for user %v: %v", userId, err), GetResponseCode(err))
		return
	}

	slog.Info("user roles updated", "user_id", userId, "roles", params.Roles)

	utils.WriteSuccess(w)
}
