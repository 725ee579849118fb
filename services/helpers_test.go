package services

import (
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/newsboard/config"
	"github.com/cppla/newsboard/models"
)

// newTestDB opens a private in-memory sqlite database migrated with every model.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	db, err := config.OpenDatabase(config.AppConfig{
		DBDriver:    "sqlite",
		DatabaseURI: "file:" + name + "?mode=memory&cache=shared",
		LogLevel:    "silent",
	}, models.All()...)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email, role string) models.User {
	t.Helper()
	u := models.User{Email: email, Name: email, Role: role}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedPost(t *testing.T, db *gorm.DB, email, title string, at time.Time) models.Post {
	t.Helper()
	p := models.Post{UserEmail: email, Title: title, Content: title + " body", DatePosted: at}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed post: %v", err)
	}
	return p
}

func seedNews(t *testing.T, db *gorm.DB, id int64, title string, at int64) models.NewsItem {
	t.Helper()
	n := models.NewsItem{ID: id, Title: title, Time: at, Author: "hn", URL: NoURLSentinel, ItemType: "story"}
	if err := db.Create(&n).Error; err != nil {
		t.Fatalf("seed news: %v", err)
	}
	return n
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
