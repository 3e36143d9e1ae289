package store

import (
	"database/sql"
	"time"

	"github.com/edumap/selserver/internal/model"
)

const resetCodeTTL = 15 * time.Minute

// SetResetCode stores a password reset code for an email, replacing any
// earlier code. Codes expire after 15 minutes.
func (s *Store) SetResetCode(aud model.Audience, email, code string) error {
	expires := time.Now().UTC().Add(resetCodeTTL)
	_, err := s.db.Exec(
		`INSERT INTO reset_codes (audience, email, code, expires_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(audience, email) DO UPDATE SET code = ?, expires_at = ?`,
		aud, email, code, expires, code, expires,
	)
	return err
}

// CheckResetCode reports whether the code matches and has not expired.
// The code stays valid for the follow-up password reset call.
func (s *Store) CheckResetCode(aud model.Audience, email, code string) (bool, error) {
	stored, expires, err := s.getResetCode(aud, email)
	if err != nil || stored == "" {
		return false, err
	}
	return stored == code && time.Now().UTC().Before(expires), nil
}

// ConsumeResetCode validates the code and deletes it so it cannot be
// replayed. Returns false for wrong or expired codes.
func (s *Store) ConsumeResetCode(aud model.Audience, email, code string) (bool, error) {
	ok, err := s.CheckResetCode(aud, email, code)
	if err != nil || !ok {
		return false, err
	}
	_, err = s.db.Exec(`DELETE FROM reset_codes WHERE audience = ? AND email = ?`, aud, email)
	return err == nil, err
}

func (s *Store) getResetCode(aud model.Audience, email string) (string, time.Time, error) {
	var code string
	var expires time.Time
	err := s.db.QueryRow(
		`SELECT code, expires_at FROM reset_codes WHERE audience = ? AND email = ?`, aud, email,
	).Scan(&code, &expires)
	if err == sql.ErrNoRows {
		return "", time.Time{}, nil
	}
	if err != nil {
		return "", time.Time{}, err
	}
	return code, expires, nil
}
