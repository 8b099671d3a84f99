package schema

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProjectNotFound = errors.New("project not found")
	ErrLookupNotFound  = errors.New("metadata item not found")
	ErrDbAccessFailed  = errors.New("db access failed")
)

func GetUser(userId uuid.UUID, db *gorm.DB) (User, error) {
	var user User

	result := db.Preload("Roles").First(&user, "id = ?", userId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		slog.Error("sql error in get user", "user_id", userId, "error", result.Error)
		return user, ErrDbAccessFailed
	}

	return user, nil
}

func GetProject(projectId uuid.UUID, db *gorm.DB, loadEntries bool) (Project, error) {
	var project Project

	query := db
	if loadEntries {
		query = query.Preload("Entries")
	}
	result := query.First(&project, "id = ?", projectId)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return project, ErrProjectNotFound
		}
		slog.Error("sql error in get project", "project_id", projectId, "error", result.Error)
		return project, ErrDbAccessFailed
	}

	return project, nil
}

func GetLookupItem(kind string, itemId uuid.UUID, db *gorm.DB) (LookupItem, error) {
	var item LookupItem

	result := db.First(&item, "id = ? AND kind = ?", itemId, kind)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return item, ErrLookupNotFound
		}
		slog.Error("sql error in get metadata item", "kind", kind, "item_id", itemId, "error", result.Error)
		return item, ErrDbAccessFailed
	}

	return item, nil
}
