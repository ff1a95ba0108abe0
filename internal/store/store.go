package store

import (
	"context"
	"errors"
	"time"

	"storyia/internal/models"
)

var (
	// ErrNotFound is returned when a row does not exist or is not owned by
	// the requesting user.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a uniqueness rule would be broken.
	ErrConflict = errors.New("conflict")
)

// Store defines the interface for all database operations.
// Every user-owned lookup takes the owner's ID and answers ErrNotFound for
// rows owned by someone else.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *models.User) (int64, error)
	GetUser(ctx context.Context, id int64) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	GetUserByLogin(ctx context.Context, login string) (models.User, error)
	UsernameTaken(ctx context.Context, username string, exceptID int64) (bool, error)
	UpdateUser(ctx context.Context, u models.User) error
	SetPassword(ctx context.Context, userID int64, hash string) error
	SetUserPhoto(ctx context.Context, userID int64, photo string) error
	DeleteUser(ctx context.Context, userID int64) error
	ListUsers(ctx context.Context, f models.UserFilter) ([]models.User, error)
	SignupStats(ctx context.Context, now time.Time) (models.SignupStats, error)

	// Journal
	CreateEntry(ctx context.Context, e *models.JournalEntry) (int64, error)
	GetEntry(ctx context.Context, userID, id int64) (models.JournalEntry, error)
	ListEntries(ctx context.Context, userID int64, query string) ([]models.JournalEntry, error)
	ListEntriesBetween(ctx context.Context, userID int64, from, to string) ([]models.JournalEntry, error)
	EntryExists(ctx context.Context, userID int64, date, title string, exceptID int64) (bool, error)
	UpdateEntry(ctx context.Context, e models.JournalEntry) error
	DeleteEntry(ctx context.Context, userID, id int64) ([]string, error) // returns media files to remove
	ListTags(ctx context.Context) ([]string, error)
	AddMedia(ctx context.Context, userID int64, m *models.MediaAsset) (int64, error)
	DeleteMedia(ctx context.Context, userID, entryID, mediaID int64) (string, error)

	// Images
	CreateImage(ctx context.Context, img *models.ImageModel) (int64, error)
	GetImage(ctx context.Context, userID, id int64) (models.ImageModel, error)
	ListImages(ctx context.Context, userID int64, f models.ImageFilter) ([]models.ImageModel, error)
	MergeImageTags(ctx context.Context, userID, id int64, tags models.Tags) (models.ImageModel, error)
	DeleteImage(ctx context.Context, userID, id int64) (models.ImageModel, error)
	ImageStats(ctx context.Context, userID int64) (models.ImageStats, error)
	CreateGenerated(ctx context.Context, g *models.GeneratedImage) (int64, error)
	ListGenerated(ctx context.Context, userID int64) ([]models.GeneratedImage, error)
	DeleteGenerated(ctx context.Context, userID, id int64) (models.GeneratedImage, error)

	// Vocal notes
	CreateVocal(ctx context.Context, v *models.VocalNote) (int64, error)
	GetVocal(ctx context.Context, userID, id int64) (models.VocalNote, error)
	ListVocals(ctx context.Context, userID int64, f models.VocalFilter) ([]models.VocalNote, error)
	ListVocalsBetween(ctx context.Context, userID int64, from, to time.Time) ([]models.VocalNote, error)
	DeleteVocal(ctx context.Context, userID, id int64) (models.VocalNote, error)
	SetTranscription(ctx context.Context, userID, id int64, text string, at time.Time) error
	SetSentiment(ctx context.Context, userID, id int64, label string, score float64, at time.Time) error
	SetVocalSummary(ctx context.Context, userID, id int64, summary string) error
	SetTopics(ctx context.Context, userID, id int64, t models.VocalTopics) error
	VocalStats(ctx context.Context, userID int64) (models.VocalStats, error)

	// Reclamations
	CreateReclamation(ctx context.Context, r *models.Reclamation) (int64, error)
	ListReclamations(ctx context.Context, userID int64) ([]models.Reclamation, error)
	DeleteReclamation(ctx context.Context, userID, id int64) error

	// Summaries
	CreateSummary(ctx context.Context, s *models.Summarizer) (int64, error)
	GetSummary(ctx context.Context, userID, id int64) (models.Summarizer, error)
	ListSummaries(ctx context.Context, userID int64) ([]models.Summarizer, error)
	SetSummaryText(ctx context.Context, userID, id int64, summary string) error
	DeleteSummary(ctx context.Context, userID, id int64) error

	Close() error
}
