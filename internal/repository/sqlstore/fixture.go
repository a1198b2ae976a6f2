package sqlstore

import (
	"context"
	"fmt"

	"franklink-backend/internal/repository"
)

// Seed writes the fixture in one transaction. Accounts are created through
// auth when it is non-nil and skipped otherwise.
func (s *Store) Seed(ctx context.Context, f *repository.Fixture, auth *LocalAuth) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	for _, u := range f.Users {
		var year any
		if u.GraduationYear != nil {
			year = *u.GraduationYear
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO users (id, name, phone_number, university, graduation_year)
			VALUES (?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), ?)`,
			u.ID, u.Name, u.PhoneNumber, u.University, year); err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}

	for _, r := range f.Requests {
		if _, err := tx.ExecContext(ctx, `INSERT INTO connection_requests (initiator_user_id, target_user_id, status)
			VALUES (?, ?, ?)`, r.Initiator, r.Target, r.StatusOrDefault()); err != nil {
			return fmt.Errorf("seed request %s->%s: %w", r.Initiator, r.Target, err)
		}
	}

	for _, c := range f.Chats {
		count := c.Count()
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO group_chats (chat_guid, member_count, display_name)
			VALUES (?, ?, NULLIF(?, ''))`, c.ID, count, c.DisplayName); err != nil {
			return fmt.Errorf("seed chat %s: %w", c.ID, err)
		}
		for _, uid := range c.Members {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO group_chat_participants (chat_guid, user_id)
				VALUES (?, ?)`, c.ID, uid); err != nil {
				return fmt.Errorf("seed participant %s/%s: %w", c.ID, uid, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}

	if auth != nil {
		for _, a := range f.Accounts {
			if err := auth.CreateAccount(ctx, a.Email, a.Password, a.UserID); err != nil {
				return fmt.Errorf("seed account %s: %w", a.Email, err)
			}
		}
	}
	return nil
}
