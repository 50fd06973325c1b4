package postgres

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

const userColumns = `id, first_name, last_name, email, %s, role, avatar,
	eco_points, level, badges, city, country, lat, lng,
	notify_email, notify_campaigns, notify_blogs, theme,
	is_verified, verification_token, password_reset_token, password_reset_expires,
	last_login, is_active, token_version, created_at, updated_at`

func selectUsers(includePassword bool) string {
	hash := "'' AS password_hash"
	if includePassword {
		hash = "password_hash"
	}
	return "SELECT " + fmt.Sprintf(userColumns, hash) + " FROM users "
}

// badgeJSON is the JSONB element shape of users.badges.
type badgeJSON struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	EarnedAt    time.Time `json:"earnedAt"`
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u            domain.User
		role, theme  string
		badges       []byte
		lat, lng     sql.NullFloat64
		verifyToken  sql.NullString
		resetToken   sql.NullString
		resetExpires sql.NullTime
		lastLogin    sql.NullTime
		n            = &u.Preferences.Notifications
	)

	if err := row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &role, &u.Avatar,
		&u.EcoPoints, &u.Level, &badges, &u.Location.City, &u.Location.Country, &lat, &lng,
		&n.Email, &n.Campaigns, &n.Blogs, &theme,
		&u.IsVerified, &verifyToken, &resetToken, &resetExpires,
		&lastLogin, &u.IsActive, &u.TokenVersion, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return domain.User{}, mapNotFound(err)
	}

	var recs []badgeJSON
	if err := json.Unmarshal(badges, &recs); err != nil {
		return domain.User{}, fmt.Errorf("decode badges of %s: %w", u.ID, err)
	}
	u.Badges = make([]domain.Badge, len(recs))
	for i, b := range recs {
		u.Badges[i] = domain.Badge(b)
	}

	u.Role = domain.Role(role)
	u.Preferences.Theme = domain.Theme(theme)
	if lat.Valid {
		u.Location.Coordinates.Lat = &lat.Float64
	}
	if lng.Valid {
		u.Location.Coordinates.Lng = &lng.Float64
	}
	u.VerificationToken = verifyToken.String
	u.PasswordResetToken = resetToken.String
	if resetExpires.Valid {
		u.PasswordResetExpires = &resetExpires.Time
	}
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	if err := u.CheckInvariants(); err != nil {
		return err
	}

	recs := make([]badgeJSON, len(u.Badges))
	for i, b := range u.Badges {
		recs[i] = badgeJSON(b)
	}
	badges, err := json.Marshal(recs)
	if err != nil {
		return err
	}
	n := u.Preferences.Notifications

	_, err = r.db.ExecContext(ctx, `INSERT INTO users (`+fmt.Sprintf(userColumns, "password_hash")+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)`,
		u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash, string(u.Role), u.Avatar,
		u.EcoPoints, u.Level, string(badges), u.Location.City, u.Location.Country,
		nullFloat(u.Location.Coordinates.Lat), nullFloat(u.Location.Coordinates.Lng),
		n.Email, n.Campaigns, n.Blogs, string(u.Preferences.Theme),
		u.IsVerified, nullString(u.VerificationToken), nullString(u.PasswordResetToken),
		nullTime(u.PasswordResetExpires), nullTime(u.LastLogin),
		u.IsActive, u.TokenVersion, u.CreatedAt, u.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, selectUsers(false)+`WHERE id = $1`, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string, includePassword bool) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		selectUsers(includePassword)+`WHERE lower(email) = $1`, authsdk.NormalizeEmail(email)))
}

func (r *usersRepo) GetPasswordHash(ctx context.Context, id string) (string, error) {
	var hash string
	if err := r.db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE id = $1`, id).Scan(&hash); err != nil {
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
			first_name = $2, last_name = $3, avatar = $4,
			city = $5, country = $6, lat = $7, lng = $8,
			notify_email = $9, notify_campaigns = $10, notify_blogs = $11, theme = $12,
			updated_at = $13
		WHERE id = $1`,
		u.ID, u.FirstName, u.LastName, u.Avatar,
		u.Location.City, u.Location.Country,
		nullFloat(u.Location.Coordinates.Lat), nullFloat(u.Location.Coordinates.Lng),
		n.Email, n.Campaigns, n.Blogs, string(u.Preferences.Theme),
		u.UpdatedAt,
	)
	return affectedOne(res, err)
}

func (r *usersRepo) UpdatePassword(ctx context.Context, id, hash string) (int, error) {
	if !cryptox.IsPasswordHash(hash) {
		return 0, fmt.Errorf("%w: password is not hashed", domain.ErrInvalidUser)
	}

	var version int
	err := r.db.QueryRowContext(ctx, `UPDATE users
		SET password_hash = $2, token_version = token_version + 1, updated_at = now()
		WHERE id = $1
		RETURNING token_version`, id, hash).Scan(&version)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return version, nil
}

func (r *usersRepo) RehashPassword(ctx context.Context, id, hash string) error {
	if !cryptox.IsPasswordHash(hash) {
		return fmt.Errorf("%w: password is not hashed", domain.ErrInvalidUser)
	}
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	return affectedOne(res, err)
}

func (r *usersRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
	return affectedOne(res, err)
}

func (r *usersRepo) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	return affectedOne(res, err)
}

func (r *usersRepo) SetRole(ctx context.Context, id string, role domain.Role) error {
	if !authsdk.IsValidRole(string(role)) {
		return fmt.Errorf("%w: role %q", domain.ErrInvalidUser, role)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET role = $2, updated_at = now() WHERE id = $1`, id, string(role))
	return affectedOne(res, err)
}

func (r *usersRepo) ClearExpiredPasswordResets(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE users
		SET password_reset_token = NULL, password_reset_expires = NULL
		WHERE password_reset_token IS NOT NULL AND password_reset_expires < $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var _ store.Users = (*usersRepo)(nil)

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	switch {
	case err != nil:
		return err
	case n == 0:
		return store.ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
