package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"patentflow/caseflow/auth"
	"patentflow/caseflow/schema"
	"patentflow/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MetadataService manages the dropdown collections (clients, processes,
// countries, document types, renewal agents). Reads are open to any
// authenticated user; writes are admin only.
type MetadataService struct {
	db *gorm.DB

	userAuth auth.IdentityProvider
}

func (s *MetadataService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)

		r.Get("/{kind}", s.List)

		r.Group(func(r chi.Router) {
			r.Use(auth.AdminOnly())

			r.Post("/{kind}", s.Create)
			r.Put("/{kind}/{item_id}", s.Update)
			r.Delete("/{kind}/{item_id}", s.Delete)
		})
	})

	return r
}

type LookupItemInfo struct {
	Id   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func lookupKindParam(r *http.Request) (string, error) {
	kind := chi.URLParam(r, "kind")
	if err := schema.CheckValidLookupKind(kind); err != nil {
		return "", err
	}
	return kind, nil
}

func (s *MetadataService) List(w http.ResponseWriter, r *http.Request) {
	kind, err := lookupKindParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	var items []schema.LookupItem
	result := s.db.Where("kind = ?", kind).Order("name").Find(&items)
	if result.Error != nil {
		slog.Error("sql error listing lookup items", "kind", kind, "error", result.Error)
		http.Error(w, "unable to list items", http.StatusInternalServerError)
		return
	}

	infos := make([]LookupItemInfo, 0, len(items))
	for _, item := range items {
		infos = append(infos, LookupItemInfo{Id: item.Id, Name: item.Name})
	}

	utils.WriteJsonResponse(w, infos)
}

type lookupItemRequest struct {
	Name string `json:"name"`
}

func (s *MetadataService) Create(w http.ResponseWriter, r *http.Request) {
	kind, err := lookupKindParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	var params lookupItemRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	name := strings.TrimSpace(params.Name)
	if name == "" {
		http.Error(w, "name must be specified", http.StatusUnprocessableEntity)
		return
	}

	item := schema.LookupItem{Id: uuid.New(), Kind: kind, Name: name}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		var existing schema.LookupItem
		result := txn.Limit(1).Find(&existing, "kind = ? AND name = ?", kind, name)
		if result.Error != nil {
			slog.Error("sql error checking for existing lookup item", "kind", kind, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		if result.RowsAffected > 0 {
			return CodedError(fmt.Errorf("%v '%v' already exists", kind, name), http.StatusConflict)
		}

		result = txn.Create(&item)
		if result.Error != nil {
			slog.Error("sql error creating lookup item", "kind", kind, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error creating %v: %v", kind, err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, LookupItemInfo{Id: item.Id, Name: item.Name})
}

func (s *MetadataService) Update(w http.ResponseWriter, r *http.Request) {
	kind, err := lookupKindParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	itemId, err := utils.URLParamUUID(r, "item_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params lookupItemRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	name := strings.TrimSpace(params.Name)
	if name == "" {
		http.Error(w, "name must be specified", http.StatusUnprocessableEntity)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		item, err := schema.GetLookupItem(kind, itemId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrLookupNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		result := txn.Model(&item).Update("name", name)
		if result.Error != nil {
			slog.Error("sql error renaming lookup item", "kind", kind, "item_id", itemId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating %v %v: %v", kind, itemId, err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}

func (s *MetadataService) Delete(w http.ResponseWriter, r *http.Request) {
	kind, err := lookupKindParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	itemId, err := utils.URLParamUUID(r, "item_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result := s.db.Where("kind = ? AND id = ?", kind, itemId).Delete(&schema.LookupItem{})
	if result.Error != nil {
		slog.Error("sql error deleting lookup item", "kind", kind, "item_id", itemId, "error", result.Error)
		http.Error(w, "unable to delete item", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, fmt.Sprintf("%v %v not found", kind, itemId), http.StatusNotFound)
		return
	}

	utils.WriteSuccess(w)
}
