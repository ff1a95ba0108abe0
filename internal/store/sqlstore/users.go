package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"storyia/internal/models"
	"storyia/internal/store"
)

const userColumns = "id, username, email, password_hash, first_name, last_name, is_staff, is_superuser, birth_date, photo, date_joined"

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (models.User, error) {
	var u models.User
	var birth sql.NullString
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.FirstName, &u.LastName,
		&u.IsStaff, &u.IsSuperuser, &birth, &u.Photo, &u.DateJoined)
	if birth.Valid {
		u.BirthDate = &birth.String
	}
	return u, mapErr(err)
}

func nullString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// CreateUser inserts u. Usernames are unique regardless of case.
func (s *SQLStore) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	taken, err := s.UsernameTaken(ctx, u.Username, 0)
	if err != nil {
		return 0, err
	}
	if taken {
		return 0, fmt.Errorf("%w: username %q", store.ErrConflict, u.Username)
	}
	if u.DateJoined.IsZero() {
		u.DateJoined = time.Now().UTC()
	}
	id, err := s.insert(ctx, s.db,
		"INSERT INTO users (username, email, password_hash, first_name, last_name, is_staff, is_superuser, birth_date, photo, date_joined) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		u.Username, u.Email, u.Password, u.FirstName, u.LastName, u.IsStaff, u.IsSuperuser, nullString(u.BirthDate), u.Photo, u.DateJoined)
	if err != nil {
		return 0, err
	}
	u.ID = id
	return id, nil
}

func (s *SQLStore) GetUser(ctx context.Context, id int64) (models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, s.rebind("SELECT "+userColumns+" FROM users WHERE id = ?"), id))
}

func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, s.rebind("SELECT "+userColumns+" FROM users WHERE LOWER(username) = LOWER(?)"), username))
}

// GetUserByLogin finds a user by username or email, both case-insensitive.
func (s *SQLStore) GetUserByLogin(ctx context.Context, login string) (models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE LOWER(username) = LOWER(?) OR (email <> '' AND LOWER(email) = LOWER(?)) ORDER BY id LIMIT 1"
	return scanUser(s.db.QueryRowContext(ctx, s.rebind(query), login, login))
}

func (s *SQLStore) UsernameTaken(ctx context.Context, username string, exceptID int64) (bool, error) {
	n, err := s.count(ctx, "SELECT COUNT(*) FROM users WHERE LOWER(username) = LOWER(?) AND id <> ?", username, exceptID)
	return n > 0, err
}

func (s *SQLStore) UpdateUser(ctx context.Context, u models.User) error {
	return s.exec(ctx, s.db,
		"UPDATE users SET username = ?, email = ?, first_name = ?, last_name = ?, is_staff = ?, is_superuser = ?, birth_date = ? WHERE id = ?",
		u.Username, u.Email, u.FirstName, u.LastName, u.IsStaff, u.IsSuperuser, nullString(u.BirthDate), u.ID)
}

func (s *SQLStore) SetPassword(ctx context.Context, userID int64, hash string) error {
	return s.exec(ctx, s.db, "UPDATE users SET password_hash = ? WHERE id = ?", hash, userID)
}

func (s *SQLStore) SetUserPhoto(ctx context.Context, userID int64, photo string) error {
	return s.exec(ctx, s.db, "UPDATE users SET photo = ? WHERE id = ?", photo, userID)
}

// DeleteUser removes the account; owned rows go with it by cascade.
func (s *SQLStore) DeleteUser(ctx context.Context, userID int64) error {
	return s.exec(ctx, s.db, "DELETE FROM users WHERE id = ?", userID)
}

func (s *SQLStore) ListUsers(ctx context.Context, f models.UserFilter) ([]models.User, error) {
	query := "SELECT " + userColumns + " FROM users"
	var args []any
	if q := strings.TrimSpace(f.Query); q != "" {
		query += " WHERE LOWER(username) LIKE ? OR LOWER(email) LIKE ?"
		args = append(args, likePattern(q), likePattern(q))
	}
	if f.Order == "date" {
		query += " ORDER BY date_joined ASC, id ASC"
	} else {
		query += " ORDER BY date_joined DESC, id DESC"
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SignupStats buckets signups into the twelve months ending with now's month
// and counts superusers against everyone else.
func (s *SQLStore) SignupStats(ctx context.Context, now time.Time) (models.SignupStats, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT date_joined, is_superuser FROM users")
	if err != nil {
		return models.SignupStats{}, err
	}
	defer rows.Close()

	perMonth := map[string]int{}
	var total, admins int
	for rows.Next() {
		var joined time.Time
		var super bool
		if err := rows.Scan(&joined, &super); err != nil {
			return models.SignupStats{}, err
		}
		perMonth[joined.UTC().Format("2006-01")]++
		total++
		if super {
			admins++
		}
	}
	if err := rows.Err(); err != nil {
		return models.SignupStats{}, err
	}

	stats := models.SignupStats{
		RoleLabels: []string{"Admin", "User"},
		RoleCounts: []int{admins, max(total-admins, 0)},
		TotalUsers: total,
	}
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -11, 0)
	for i := 0; i < 12; i++ {
		label := first.AddDate(0, i, 0).Format("2006-01")
		stats.MonthLabels = append(stats.MonthLabels, label)
		stats.MonthCounts = append(stats.MonthCounts, perMonth[label])
	}
	return stats, nil
}
