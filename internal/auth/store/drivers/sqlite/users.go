package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ecowise/ecowise/internal/auth/domain"
	"github.com/ecowise/ecowise/internal/auth/store"
	"github.com/ecowise/ecowise/pkg/authsdk"
	"github.com/ecowise/ecowise/pkg/cryptox"
)

type usersRepo struct {
	db dbtx
}

// selectUser is the user projection; %s is the password_hash column or a
// blank placeholder for it.
const selectUser = `SELECT id, first_name, last_name, email, %s, role, avatar,
	eco_points, level, badges, city, country, lat, lng,
	notify_email, notify_campaigns, notify_blogs, theme,
	is_verified, verification_token, password_reset_token, password_reset_expires,
	last_login, is_active, token_version, created_at, updated_at
FROM users `

func projection(includePassword bool) string {
	if includePassword {
		return fmt.Sprintf(selectUser, "password_hash")
	}
	return fmt.Sprintf(selectUser, "'' AS password_hash")
}

type badgeRecord struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	EarnedAt    time.Time `json:"earnedAt"`
}

func encodeBadges(badges []domain.Badge) (string, error) {
	recs := make([]badgeRecord, len(badges))
	for i, b := range badges {
		recs[i] = badgeRecord(b)
	}
	out, err := json.Marshal(recs)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func decodeBadges(raw string) ([]domain.Badge, error) {
	var recs []badgeRecord
	if err := json.Unmarshal([]byte(raw), &recs); err != nil {
		return nil, fmt.Errorf("decode badges: %w", err)
	}
	badges := make([]domain.Badge, len(recs))
	for i, r := range recs {
		badges[i] = domain.Badge(r)
	}
	return badges, nil
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u            domain.User
		role, theme  string
		badges       string
		lat, lng     sql.NullFloat64
		verifyToken  sql.NullString
		resetToken   sql.NullString
		resetExpires sql.NullTime
		lastLogin    sql.NullTime
		prefs        = &u.Preferences.Notifications
	)

	err := row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &role, &u.Avatar,
		&u.EcoPoints, &u.Level, &badges, &u.Location.City, &u.Location.Country, &lat, &lng,
		&prefs.Email, &prefs.Campaigns, &prefs.Blogs, &theme,
		&u.IsVerified, &verifyToken, &resetToken, &resetExpires,
		&lastLogin, &u.IsActive, &u.TokenVersion, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.Role = domain.Role(role)
	u.Preferences.Theme = domain.Theme(theme)
	u.Location.Coordinates.Lat = mapNullFloatPtr(lat)
	u.Location.Coordinates.Lng = mapNullFloatPtr(lng)
	u.VerificationToken = verifyToken.String
	u.PasswordResetToken = resetToken.String
	u.PasswordResetExpires = mapNullTimePtr(resetExpires)
	u.LastLogin = mapNullTimePtr(lastLogin)

	if u.Badges, err = decodeBadges(badges); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	if err := u.CheckInvariants(); err != nil {
		return err
	}
	badges, err := encodeBadges(u.Badges)
	if err != nil {
		return err
	}
	n := u.Preferences.Notifications

	_, err = r.db.ExecContext(ctx, `INSERT INTO users (
		id, first_name, last_name, email, password_hash, role, avatar,
		eco_points, level, badges, city, country, lat, lng,
		notify_email, notify_campaigns, notify_blogs, theme,
		is_verified, verification_token, password_reset_token, password_reset_expires,
		last_login, is_active, token_version, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash, string(u.Role), u.Avatar,
		u.EcoPoints, u.Level, badges, u.Location.City, u.Location.Country,
		mapOptionalFloat(u.Location.Coordinates.Lat), mapOptionalFloat(u.Location.Coordinates.Lng),
		n.Email, n.Campaigns, n.Blogs, string(u.Preferences.Theme),
		u.IsVerified, mapStringNull(u.VerificationToken), mapStringNull(u.PasswordResetToken),
		mapOptionalTime(u.PasswordResetExpires),
		mapOptionalTime(u.LastLogin), u.IsActive, u.TokenVersion, u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, projection(false)+`WHERE id = ?`, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string, includePassword bool) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		projection(includePassword)+`WHERE email = ?`, authsdk.NormalizeEmail(email)))
}

func (r *usersRepo) GetPasswordHash(ctx context.Context, id string) (string, error) {
	var hash string
	err := r.db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE id = ?`, id).Scan(&hash)
	if err != nil {
		return "", mapNotFound(err)
	}
	return hash, nil
}

func (r *usersRepo) UpdateProfile(ctx context.Context, u domain.User) error {
	if err := u.CheckProfile(); err != nil {
		return err
	}
	n := u.Preferences.Notifications

	res, err := r.db.ExecContext(ctx, `UPDATE users SET
		first_name = ?, last_name = ?, avatar = ?,
		city = ?, country = ?, lat = ?, lng = ?,
		notify_email = ?, notify_campaigns = ?, notify_blogs = ?, theme = ?,
		updated_at = ?
	WHERE id = ?`,
		u.FirstName, u.LastName, u.Avatar,
		u.Location.City, u.Location.Country,
		mapOptionalFloat(u.Location.Coordinates.Lat), mapOptionalFloat(u.Location.Coordinates.Lng),
		n.Email, n.Campaigns, n.Blogs, string(u.Preferences.Theme),
		u.UpdatedAt.UTC(), u.ID,
	)
	return requireRow(res, err)
}

func (r *usersRepo) UpdatePassword(ctx context.Context, id, hash string) (int, error) {
	if !cryptox.IsPasswordHash(hash) {
		return 0, fmt.Errorf("%w: password is not hashed", domain.ErrInvalidUser)
	}

	var version int
	err := r.db.QueryRowContext(ctx, `UPDATE users
		SET password_hash = ?, token_version = token_version + 1, updated_at = ?
		WHERE id = ?
		RETURNING token_version`,
		hash, time.Now().UTC(), id,
	).Scan(&version)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return version, nil
}

func (r *usersRepo) RehashPassword(ctx context.Context, id, hash string) error {
	if !cryptox.IsPasswordHash(hash) {
		return fmt.Errorf("%w: password is not hashed", domain.ErrInvalidUser)
	}
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
	return requireRow(res, err)
}

func (r *usersRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, at.UTC(), id)
	return requireRow(res, err)
}

func (r *usersRepo) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`, active, time.Now().UTC(), id)
	return requireRow(res, err)
}

func (r *usersRepo) SetRole(ctx context.Context, id string, role domain.Role) error {
	if !authsdk.IsValidRole(string(role)) {
		return fmt.Errorf("%w: role %q", domain.ErrInvalidUser, role)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`, string(role), time.Now().UTC(), id)
	return requireRow(res, err)
}

func (r *usersRepo) ClearExpiredPasswordResets(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE users
		SET password_reset_token = NULL, password_reset_expires = NULL
		WHERE password_reset_token IS NOT NULL AND password_reset_expires < ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var _ store.Users = (*usersRepo)(nil)

// requireRow maps an update that matched nothing to store.ErrNotFound.
func requireRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func mapStringNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func mapNullFloatPtr(nf sql.NullFloat64) *float64 {
	if nf.Valid {
		val := nf.Float64
		return &val
	}
	return nil
}

func mapOptionalFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{Valid: false}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func mapNullTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		val := nt.Time
		return &val
	}
	return nil
}

func mapOptionalTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
